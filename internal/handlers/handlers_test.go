package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/policy"
	"github.com/SAP-F-2025/lms-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"github.com/SAP-F-2025/lms-service/pkg"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, pkg.AutoMigrate(db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sm := services.NewServiceManager(services.Dependencies{
		Repo:      postgres.NewRepository(db),
		Cache:     cache.NewMemoryCache(),
		Logger:    log,
		Validator: validator.New(),
		ResultTTL: time.Minute,
	})

	router := gin.New()
	NewHandlerManager(sm, NewHeaderAuthenticator(), policy.Default(), utils.NewSlogLogger(log)).SetupRoutes(router)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, caller *models.Caller, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("X-User-ID", caller.ID)
		req.Header.Set("X-User-Role", string(caller.Role))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeID(t *testing.T, w *httptest.ResponseRecorder, field string) uint {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	id, ok := body[field].(float64)
	require.True(t, ok, "missing %s in %s", field, w.Body.String())
	return uint(id)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var (
	teacherCaller = &models.Caller{ID: "teacher-1", Role: models.RoleTeacher}
	studentCaller = &models.Caller{ID: "student-1", Role: models.RoleStudent}
)

// seedAssessment creates a course with the student enrolled and a one-question quiz.
func seedAssessment(t *testing.T, router *gin.Engine, maxAttempts int) uint {
	t.Helper()

	w := do(t, router, http.MethodPost, "/api/v1/courses", teacherCaller, services.CreateCourseRequest{Title: "Compilers"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	courseID := decodeID(t, w, "id")

	w = do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/enrollments", courseID), teacherCaller, services.EnrollRequest{UserID: studentCaller.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/v1/assessments", teacherCaller, services.CreateAssessmentRequest{
		CourseID:     courseID,
		Title:        "Parsing",
		TotalMarks:   4,
		PassingMarks: 2,
		MaxAttempts:  maxAttempts,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assessmentID := decodeID(t, w, "id")

	w = do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/assessments/%d/questions", assessmentID), teacherCaller, services.CreateQuestionRequest{
		Text:  "Name an LR parser generator.",
		Type:  models.ShortAnswer,
		Marks: 4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return assessmentID
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAuthMiddleware(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodGet, "/api/v1/assessments/1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not authenticated", decodeError(t, w).Message)

	w = do(t, router, http.MethodGet, "/api/v1/assessments/1", &models.Caller{ID: "x", Role: "janitor"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireCapability(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodPost, "/api/v1/assessments", studentCaller, services.CreateAssessmentRequest{Title: "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", decodeError(t, w).Code)

	w = do(t, router, http.MethodPost, "/api/v1/grading/submissions/1/approve", studentCaller, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodPost, "/api/v1/courses", teacherCaller, services.CreateCourseRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Equal(t, string(services.KindValidation), resp.Code)

	w = do(t, router, http.MethodGet, "/api/v1/assessments/404", teacherCaller, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(services.KindNotFound), decodeError(t, w).Code)

	w = do(t, router, http.MethodGet, "/api/v1/assessments/abc", teacherCaller, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id", decodeError(t, w).Message)
}

func TestStartAttempt_ResumeAndLimit(t *testing.T) {
	router := setupRouter(t)
	assessmentID := seedAssessment(t, router, 1)
	path := fmt.Sprintf("/api/v1/assessments/%d/attempts", assessmentID)

	w := do(t, router, http.MethodPost, path, studentCaller, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	submissionID := decodeID(t, w, "submission_id")
	assert.NotContains(t, w.Body.String(), "is_correct")

	w = do(t, router, http.MethodPost, path, studentCaller, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resumed services.AttemptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resumed))
	assert.True(t, resumed.Resumed)
	assert.Equal(t, submissionID, resumed.SubmissionID)

	w = do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/submit", submissionID), studentCaller, services.SubmitRequest{AssessmentID: assessmentID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, path, studentCaller, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(services.KindAttemptsExceeded), decodeError(t, w).Code)

	// Released only after approval.
	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/submissions/%d/result", submissionID), studentCaller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(models.ResultPendingReview))

	w = do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/grading/submissions/%d/approve", submissionID), teacherCaller, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, fmt.Sprintf("/api/v1/grading/submissions/%d/approve", submissionID), teacherCaller, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrAssessmentNotFound, http.StatusNotFound},
		{services.ErrAttemptLimitExceeded, http.StatusConflict},
		{services.ErrConcurrentAttempt, http.StatusConflict},
		{services.ErrGradingIncomplete, http.StatusConflict},
		{services.ErrMarksOutOfRange, http.StatusBadRequest},
		{services.ErrInvalidConfiguration, http.StatusUnprocessableEntity},
		{fmt.Errorf("lock: %w", cache.ErrLockTimeout), http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForError(tt.err), "%v", tt.err)
	}
}

func TestRoleFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		user   casdoorsdk.User
		want   models.UserRole
		wantOK bool
	}{
		{"admin flag", casdoorsdk.User{IsAdmin: true, Tag: "student"}, models.RoleAdmin, true},
		{"role name", casdoorsdk.User{Roles: []*casdoorsdk.Role{nil, {Name: "Teacher"}}}, models.RoleTeacher, true},
		{"tag fallback", casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "staff"}}, Tag: "student"}, models.RoleStudent, true},
		{"unknown", casdoorsdk.User{Tag: "guest"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := roleFromClaims(&casdoorsdk.Claims{User: tt.user})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Bearer  tok.en ")
	assert.Equal(t, "tok.en", bearerToken(req))
}
