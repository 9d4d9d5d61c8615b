package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentregistry/internal/config"
)

const seedFixtures = `students:
  - name: Alice
    dateBirth: "2010-01-01"
    dateAdmission: "2020-01-01"
    course: Math
    courseType: Full
    location: Campus A
    parent: Bob
    parentNumber: 12345
`

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.Storage.Driver = driver
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "nested", "students.db")
	return cfg
}

func TestSetupStorageMemory(t *testing.T) {
	storage, err := SetupStorage(testConfig(t, config.StorageDriverMemory), zerolog.Nop())

	require.NoError(t, err)
	assert.NotNil(t, storage.Repository)
	assert.NoError(t, storage.Close())
}

func TestSetupStorageSQLite(t *testing.T) {
	cfg := testConfig(t, config.StorageDriverSQLite)

	storage, err := SetupStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer storage.Close()

	students, err := storage.Repository.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.FileExists(t, cfg.Storage.SQLitePath)
}

func TestSetupStorageUnknownDriver(t *testing.T) {
	_, err := SetupStorage(testConfig(t, "cassandra"), zerolog.Nop())

	assert.Error(t, err)
}

func TestBuildDependenciesAppliesSeed(t *testing.T) {
	cfg := testConfig(t, config.StorageDriverMemory)
	cfg.Seed.File = filepath.Join(t.TempDir(), "students.yaml")
	require.NoError(t, os.WriteFile(cfg.Seed.File, []byte(seedFixtures), 0644))

	storage, err := SetupStorage(cfg, zerolog.Nop())
	require.NoError(t, err)

	deps, err := BuildDependencies(cfg, storage, zerolog.Nop())
	require.NoError(t, err)
	defer deps.FeedHub.Close()

	student, err := deps.StudentService.GetStudentByName(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "Math", student.Course)
}

func TestSetupRouter(t *testing.T) {
	cfg := testConfig(t, config.StorageDriverMemory)
	storage, err := SetupStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	deps, err := BuildDependencies(cfg, storage, zerolog.Nop())
	require.NoError(t, err)
	defer deps.FeedHub.Close()

	router := SetupRouter(cfg, deps, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
