package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentregistry/internal/app/migrations"
	"github.com/yigit/studentregistry/internal/app/models"
	"github.com/yigit/studentregistry/internal/db"
	"github.com/yigit/studentregistry/internal/pkg/apperrors"
)

func newTestStudent(id, name string) *models.Student {
	return &models.Student{
		ID:            id,
		Name:          name,
		DateBirth:     "2010-01-01",
		DateAdmission: "2020-01-01",
		Course:        "Math",
		CourseType:    "Full",
		Location:      "Campus A",
		Parent:        "Bob",
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC),
	}
}

func openSQLiteRepository(t *testing.T, path string) *SQLiteStudentRepository {
	t.Helper()
	ctx := context.Background()

	sqliteDB, err := db.NewSQLiteDB(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteDB.Close() })

	require.NoError(t, migrations.NewSQLiteMigrator(sqliteDB.DB, zerolog.Nop()).Migrate(ctx))
	return NewSQLiteStudentRepository(sqliteDB.DB)
}

// postgresDSNEnv names a disposable PostgreSQL database; the students table is emptied by every test.
const postgresDSNEnv = "STUDENT_REGISTRY_TEST_POSTGRES_DSN"

func openPostgresRepository(t *testing.T, dsn string) *PostgresStudentRepository {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	require.NoError(t, migrations.NewPostgresMigrator(pool, zerolog.Nop()).Migrate(ctx))
	_, err = pool.Exec(ctx, "TRUNCATE TABLE "+studentsTable)
	require.NoError(t, err)
	return NewPostgresStudentRepository(pool)
}

func repositoryFactories() map[string]func(t *testing.T) StudentRepository {
	factories := map[string]func(t *testing.T) StudentRepository{
		"Memory": func(t *testing.T) StudentRepository {
			return NewMemoryStudentRepository()
		},
		"SQLite": func(t *testing.T) StudentRepository {
			return openSQLiteRepository(t, filepath.Join(t.TempDir(), "students.db"))
		},
	}
	if dsn := os.Getenv(postgresDSNEnv); dsn != "" {
		factories["Postgres"] = func(t *testing.T) StudentRepository {
			return openPostgresRepository(t, dsn)
		}
	}
	return factories
}


func TestStudentRepositoryContract(t *testing.T) {
	for name, factory := range repositoryFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("CreateAndGet", func(t *testing.T) {
				repo := factory(t)
				student := newTestStudent("b-id", "Alice")

				require.NoError(t, repo.Create(ctx, student))

				got, err := repo.GetByID(ctx, "b-id")
				require.NoError(t, err)
				assert.Equal(t, student, got)
				assert.Nil(t, got.UpdatedAt)
			})

			t.Run("CreateDuplicate", func(t *testing.T) {
				repo := factory(t)
				require.NoError(t, repo.Create(ctx, newTestStudent("dup", "Alice")))

				err := repo.Create(ctx, newTestStudent("dup", "Carol"))

				assert.ErrorIs(t, err, apperrors.ErrStudentIDAlreadyExists)
			})

			t.Run("GetMissing", func(t *testing.T) {
				repo := factory(t)

				_, err := repo.GetByID(ctx, "nope")

				assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
				assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
			})

			t.Run("ListIsKeyOrdered", func(t *testing.T) {
				repo := factory(t)
				empty, err := repo.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, empty)
				assert.NotNil(t, empty)

				for _, id := range []string{"c", "a", "b"} {
					require.NoError(t, repo.Create(ctx, newTestStudent(id, "S-"+id)))
				}

				students, err := repo.List(ctx)
				require.NoError(t, err)
				require.Len(t, students, 3)
				assert.Equal(t, "a", students[0].ID)
				assert.Equal(t, "b", students[1].ID)
				assert.Equal(t, "c", students[2].ID)
			})

			t.Run("Update", func(t *testing.T) {
				repo := factory(t)
				student := newTestStudent("u", "Alice")
				require.NoError(t, repo.Create(ctx, student))

				updatedAt := student.CreatedAt.Add(time.Minute)
				changed := student.Clone()
				changed.Course = "Physics"
				changed.UpdatedAt = &updatedAt
				require.NoError(t, repo.Update(ctx, changed))

				got, err := repo.GetByID(ctx, "u")
				require.NoError(t, err)
				assert.Equal(t, changed, got)

				missing := newTestStudent("missing", "Nobody")
				assert.ErrorIs(t, repo.Update(ctx, missing), apperrors.ErrStudentNotFound)
			})

			t.Run("Delete", func(t *testing.T) {
				repo := factory(t)
				student := newTestStudent("d", "Alice")
				require.NoError(t, repo.Create(ctx, student))

				removed, err := repo.Delete(ctx, "d")
				require.NoError(t, err)
				assert.Equal(t, student, removed)

				_, err = repo.GetByID(ctx, "d")
				assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)

				_, err = repo.Delete(ctx, "d")
				assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
			})
		})
	}
}

func TestMemoryRepositoryDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStudentRepository()
	student := newTestStudent("x", "Alice")
	require.NoError(t, repo.Create(ctx, student))

	student.Name = "Mallory"
	got, err := repo.GetByID(ctx, "x")
	require.NoError(t, err)
	got.Course = "Art"

	again, err := repo.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
	assert.Equal(t, "Math", again.Course)
}

func TestSQLiteRepositoryIsDurable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.db")

	first := openSQLiteRepository(t, path)
	require.NoError(t, first.Create(ctx, newTestStudent("persisted", "Alice")))
	require.NoError(t, first.db.Close())

	second := openSQLiteRepository(t, path)
	got, err := second.GetByID(ctx, "persisted")

	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}
