package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentregistry/internal/app/controllers"
	"github.com/yigit/studentregistry/internal/app/models"
	"github.com/yigit/studentregistry/internal/app/models/dto"
	"github.com/yigit/studentregistry/internal/app/repositories"
	"github.com/yigit/studentregistry/internal/app/services"
	"github.com/yigit/studentregistry/internal/pkg/metrics"
	"github.com/yigit/studentregistry/internal/pkg/websocket"
)

type studentEnvelope struct {
	Success bool            `json:"success"`
	Data    *models.Student `json:"data"`
}

type listEnvelope struct {
	Success bool              `json:"success"`
	Data    []*models.Student `json:"data"`
}

type pageEnvelope struct {
	Data struct {
		Items      []*models.Student  `json:"items"`
		Pagination dto.PaginationInfo `json:"pagination"`
	} `json:"data"`
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	hub := websocket.NewHub(zerolog.Nop())
	svc := services.NewStudentService(repositories.NewMemoryStudentRepository(), zerolog.Nop(), services.WithEventPublisher(hub))
	router := gin.New()
	SetupRouter(router, controllers.NewStudentController(svc), websocket.NewHandler(hub, zerolog.Nop()))
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func alicePayload() models.StudentPayload {
	return models.StudentPayload{
		Name:          "Alice",
		DateBirth:     "2010-01-01",
		DateAdmission: "2020-01-01",
		Course:        "Math",
		CourseType:    "Full",
		Location:      "Campus A",
		Parent:        "Bob",
		ParentNumber:  12345,
	}
}

func createStudent(t *testing.T, router *gin.Engine, payload models.StudentPayload) *models.Student {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/v1/students", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp studentEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	return resp.Data
}

func TestPingRoute(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodGet, "/ping", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestStudentLifecycle(t *testing.T) {
	router := newTestRouter()

	created := createStudent(t, router, alicePayload())
	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.UpdatedAt)

	t.Run("GetByID", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/students/"+created.ID, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp studentEnvelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, created, resp.Data)
	})

	t.Run("GetByName", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/students/search?name=alice", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp studentEnvelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, created.ID, resp.Data.ID)
	})

	t.Run("Update", func(t *testing.T) {
		payload := alicePayload()
		payload.Course = "Physics"

		w := doRequest(t, router, http.MethodPut, "/api/v1/students/"+created.ID, payload)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, router, http.MethodGet, "/api/v1/students/"+created.ID, nil)
		var resp studentEnvelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Physics", resp.Data.Course)
		assert.NotNil(t, resp.Data.UpdatedAt)
		assert.Equal(t, created.CreatedAt, resp.Data.CreatedAt)
	})

	t.Run("Delete", func(t *testing.T) {
		w := doRequest(t, router, http.MethodDelete, "/api/v1/students/"+created.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, router, http.MethodGet, "/api/v1/students/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStudentErrors(t *testing.T) {
	router := newTestRouter()

	t.Run("NotFoundMentionsID", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/students/nonexistent-id", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrorCodeResourceNotFound, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "nonexistent-id")
	})

	t.Run("SearchWithoutName", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/students/search", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("CreateMissingFields", func(t *testing.T) {
		before := metrics.OperationCounter("create", metrics.OutcomeValidation).Get()
		payload := alicePayload()
		payload.Parent = ""

		w := doRequest(t, router, http.MethodPost, "/api/v1/students", payload)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
		assert.Equal(t, "invalid payload properties for creating a student", resp.Error.Message)
		assert.Equal(t, before+1, metrics.OperationCounter("create", metrics.OutcomeValidation).Get())
	})

	t.Run("UpdateMissingFields", func(t *testing.T) {
		created := createStudent(t, router, alicePayload())
		payload := alicePayload()
		payload.Parent = ""

		w := doRequest(t, router, http.MethodPut, "/api/v1/students/"+created.ID, payload)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid ID or payload properties for updating a student", resp.Error.Message)
	})

	t.Run("CreateBlankName", func(t *testing.T) {
		payload := alicePayload()
		payload.Name = "   "

		w := doRequest(t, router, http.MethodPost, "/api/v1/students", payload)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/students", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Invalid request format", resp.Error.Message)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPut, "/api/v1/students/missing", alicePayload())

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListStudents(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodGet, "/api/v1/students", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var empty listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Empty(t, empty.Data)

	for i := 0; i < 3; i++ {
		createStudent(t, router, alicePayload())
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/students", nil)
	var all listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all.Data, 3)
	assert.Less(t, all.Data[0].ID, all.Data[1].ID)
	assert.Less(t, all.Data[1].ID, all.Data[2].ID)

	w = doRequest(t, router, http.MethodGet, "/api/v1/students?page=2&size=2", nil)
	var page pageEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data.Items, 1)
	assert.Equal(t, all.Data[2].ID, page.Data.Items[0].ID)
	assert.Equal(t, 2, page.Data.Pagination.TotalPages)
	assert.Equal(t, 3, page.Data.Pagination.TotalItems)
}

func TestEventsRouteRequiresUpgrade(t *testing.T) {
	router := newTestRouter()

	w := doRequest(t, router, http.MethodGet, "/api/v1/students/events", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter()
	createStudent(t, router, alicePayload())

	w := doRequest(t, router, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `student_registry_operations_total{operation="create",outcome="ok"}`)
}
