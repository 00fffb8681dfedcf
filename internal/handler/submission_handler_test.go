package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/submitech/submitech-api/internal/config"
	"github.com/submitech/submitech-api/internal/dto"
	"github.com/submitech/submitech-api/internal/handler"
	"github.com/submitech/submitech-api/internal/models"
	"github.com/submitech/submitech-api/internal/repository"
	"github.com/submitech/submitech-api/internal/router"
	"github.com/submitech/submitech-api/internal/service"
)

type testFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newTestFileStore() *testFileStore {
	return &testFileStore{files: make(map[string][]byte)}
}

func (s *testFileStore) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	url := "https://files.example.com/" + name
	s.files[url] = data
	return url, nil
}

func (s *testFileStore) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[url], nil
}

type stubEvaluation struct {
	mu       sync.Mutex
	enqueued []uint
	full     bool
}

func (s *stubEvaluation) Enqueue(submissionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return service.ErrQueueFull
	}
	s.enqueued = append(s.enqueued, submissionID)
	return nil
}

func (s *stubEvaluation) Evaluate(ctx context.Context, submissionID uint) error { return nil }

func (s *stubEvaluation) RecomputeCohort(ctx context.Context, assignmentID uint) (int, error) {
	return 0, nil
}

func (s *stubEvaluation) Start(ctx context.Context) {}

type testApp struct {
	app        *fiber.App
	db         *gorm.DB
	evaluation *stubEvaluation
}

func setupApp(t *testing.T) testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Assignment{}, &models.Submission{}, &models.Notification{}))

	require.NoError(t, db.Create(&models.Student{Name: "Ada Lovelace", Email: "ada@example.com"}).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	store := newTestFileStore()
	evaluation := &stubEvaluation{}

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	assignmentService := service.NewAssignmentService(assignmentRepo, validate, store, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, studentRepo, validate, store, evaluation, logger)
	notificationService := service.NewNotificationService(notificationRepo, nil, "", logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, evaluation, logger),
		PlagiarismHandler:   handler.NewPlagiarismHandler(assignmentService, evaluation, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
	})

	return testApp{app: app, db: db, evaluation: evaluation}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func createAssignment(t *testing.T, app testApp) uint {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("title", "Data Structures"))
	require.NoError(t, writer.WriteField("description", "Implement and explain heaps"))
	require.NoError(t, writer.WriteField("due_date", time.Now().Add(2*time.Hour).Format(time.RFC3339)))
	part, err := writer.CreateFormFile("model_answer", "model.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("a heap is a complete binary tree"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/assignments", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var createResp struct {
		Success bool                   `json:"success"`
		Data    dto.AssignmentResponse `json:"data"`
	}
	decodeResponse(t, resp, &createResp)
	require.True(t, createResp.Success)
	require.NotZero(t, createResp.Data.ID)
	return createResp.Data.ID
}

func createSubmission(t *testing.T, app testApp, assignmentID uint) uint {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("assignment_id", strconv.FormatUint(uint64(assignmentID), 10)))
	require.NoError(t, writer.WriteField("student_id", "1"))
	part, err := writer.CreateFormFile("file", "answer.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("my heap answer"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var createResp struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &createResp)
	require.Equal(t, "uploaded", createResp.Data.Status)
	return createResp.Data.ID
}

func TestSubmissionLifecycleOverHTTP(t *testing.T) {
	app := setupApp(t)

	assignmentID := createAssignment(t, app)
	submissionID := createSubmission(t, app, assignmentID)

	// Intake queues the evaluation automatically.
	require.Equal(t, []uint{submissionID}, app.evaluation.enqueued)

	// Manual re-evaluation is accepted asynchronously.
	req := httptest.NewRequest("POST", "/api/v1/submissions/1/evaluate", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var evalResp struct {
		Data dto.EvaluationEnqueuedResponse `json:"data"`
	}
	decodeResponse(t, resp, &evalResp)
	require.Equal(t, "queued", evalResp.Data.Status)

	// Listing surfaces the stored submission.
	listReq := httptest.NewRequest("GET", "/api/v1/submissions?assignment_id=1", nil)
	listResp, err := app.app.Test(listReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var list struct {
		Data []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, listResp, &list)
	require.Len(t, list.Data, 1)
	require.Equal(t, submissionID, list.Data[0].ID)
}

func TestEvaluateUnknownSubmissionReturns404(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest("POST", "/api/v1/submissions/99/evaluate", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestEvaluateFullQueueReturns429(t *testing.T) {
	app := setupApp(t)

	assignmentID := createAssignment(t, app)
	createSubmission(t, app, assignmentID)

	app.evaluation.full = true
	req := httptest.NewRequest("POST", "/api/v1/submissions/1/evaluate", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestSubmissionCreateUnknownStudentReturns404(t *testing.T) {
	app := setupApp(t)
	createAssignment(t, app)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("assignment_id", "1"))
	require.NoError(t, writer.WriteField("student_id", "42"))
	part, err := writer.CreateFormFile("file", "answer.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("text"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPlagiarismRecomputeEndpoint(t *testing.T) {
	app := setupApp(t)
	createAssignment(t, app)

	req := httptest.NewRequest("POST", "/api/v1/assignments/1/plagiarism/recompute", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var recompute struct {
		Data dto.PlagiarismRecomputeResponse `json:"data"`
	}
	decodeResponse(t, resp, &recompute)
	require.Equal(t, "completed", recompute.Data.Status)
}

func TestPlagiarismRecomputeUnknownAssignment(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest("POST", "/api/v1/assignments/7/plagiarism/recompute", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationEndpoints(t *testing.T) {
	app := setupApp(t)

	require.NoError(t, app.db.Create(&models.Notification{
		Recipient: "student:1",
		Kind:      models.NotificationKindGraded,
		Message:   "Your submission for assignment 1 has been graded: A1 (91.00).",
	}).Error)

	req := httptest.NewRequest("GET", "/api/v1/notifications?recipient=student:1", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list struct {
		Data []dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, resp, &list)
	require.Len(t, list.Data, 1)
	require.False(t, list.Data[0].Read)

	readReq := httptest.NewRequest("PATCH", "/api/v1/notifications/1/read?recipient=student:1", nil)
	readResp, err := app.app.Test(readReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, readResp.StatusCode)

	var read struct {
		Data dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, readResp, &read)
	require.True(t, read.Data.Read)
}

func TestNotificationListRequiresRecipient(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest("GET", "/api/v1/notifications", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health struct {
		Data handler.HealthResponse `json:"data"`
	}
	decodeResponse(t, resp, &health)
	require.Equal(t, "ok", health.Data.Status)
}
