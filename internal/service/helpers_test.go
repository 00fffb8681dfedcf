package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/submitech/submitech-api/internal/models"
	"github.com/submitech/submitech-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["file"][0]
}

type memoryAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[uint]models.Assignment
	nextID      uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{
		assignments: make(map[uint]models.Assignment),
		nextID:      1,
	}
}

func (m *memoryAssignmentRepo) ListWithFilter(ctx context.Context, filter repository.AssignmentFilter) ([]models.Assignment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.Assignment, 0, len(m.assignments))
	for _, assignment := range m.assignments {
		results = append(results, assignment)
	}
	return results, int64(len(results)), nil
}

func (m *memoryAssignmentRepo) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment.ID = m.nextID
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = time.Now()
	m.assignments[m.nextID] = *assignment
	m.nextID++
	return nil
}

func (m *memoryAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.UpdatedAt = time.Now()
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

type memorySubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	nextID      uint
}

func newMemorySubmissionRepo() *memorySubmissionRepo {
	return &memorySubmissionRepo{
		submissions: make(map[uint]models.Submission),
		nextID:      1,
	}
}

func (m *memorySubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.Submission, 0, len(m.submissions))
	for _, submission := range m.submissions {
		if filter.AssignmentID != nil && submission.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		results = append(results, submission)
	}
	return results, nil
}

func (m *memorySubmissionRepo) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.Submission, 0)
	for id := uint(1); id < m.nextID; id++ {
		if submission, ok := m.submissions[id]; ok && submission.AssignmentID == assignmentID {
			results = append(results, submission)
		}
	}
	return results, nil
}

func (m *memorySubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (m *memorySubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission.ID = m.nextID
	submission.CreatedAt = time.Now()
	submission.UpdatedAt = time.Now()
	m.submissions[m.nextID] = *submission
	m.nextID++
	return nil
}

func (m *memorySubmissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.submissions[submission.ID] = *submission
	return nil
}

func (m *memorySubmissionRepo) UpdateScores(ctx context.Context, update repository.ScoreUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(update)
}

func (m *memorySubmissionRepo) UpdateScoresBatch(ctx context.Context, updates []repository.ScoreUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, update := range updates {
		if err := m.applyLocked(update); err != nil {
			return err
		}
	}
	return nil
}

func (m *memorySubmissionRepo) applyLocked(update repository.ScoreUpdate) error {
	submission, ok := m.submissions[update.SubmissionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	submission.ExtractedText = update.ExtractedText
	submission.NormalizedText = update.NormalizedText
	submission.DiagramText = update.DiagramText
	submission.TextSimilarityScore = update.TextSimilarityScore
	submission.DiagramSimilarityScore = update.DiagramSimilarityScore
	submission.GrammarScore = update.GrammarScore
	submission.PlagiarismScore = update.PlagiarismScore
	submission.IsLate = update.IsLate
	submission.FinalMark = update.FinalMark
	submission.Grade = update.Grade
	submission.Feedback = update.Feedback
	submission.Status = update.Status
	m.submissions[update.SubmissionID] = submission
	return nil
}

type memoryStudentRepo struct {
	students map[uint]models.Student
}

func newMemoryStudentRepo(ids ...uint) *memoryStudentRepo {
	repo := &memoryStudentRepo{students: make(map[uint]models.Student)}
	for _, id := range ids {
		repo.students[id] = models.Student{ID: id, Name: fmt.Sprintf("Student %d", id)}
	}
	return repo
}

func (m *memoryStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

type memoryNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (m *memoryNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	notification.ID = uint(len(m.notifications) + 1)
	m.notifications = append(m.notifications, *notification)
	return nil
}

func (m *memoryNotificationRepo) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	for i := range notifications {
		if err := m.Create(ctx, &notifications[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryNotificationRepo) ListByRecipient(ctx context.Context, recipient string, limit, offset int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.Notification, 0)
	for _, notification := range m.notifications {
		if notification.Recipient == recipient {
			results = append(results, notification)
		}
	}
	return results, nil
}

func (m *memoryNotificationRepo) MarkRead(ctx context.Context, id uint, recipient string) (models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, notification := range m.notifications {
		if notification.ID == id && notification.Recipient == recipient {
			m.notifications[i].Read = true
			return m.notifications[i], nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

type noopDiagramReader struct{}

func (*noopDiagramReader) ExtractDiagramText(_ context.Context, _ []image.Image) string {
	return ""
}

// stubStore serves uploaded files back by URL.
type stubStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	uploads int
}

func newStubStore() *stubStore {
	return &stubStore{files: make(map[string][]byte)}
}

func (s *stubStore) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.uploads++
	url := "https://files.example.com/" + name
	s.files[url] = data
	return url, nil
}

func (s *stubStore) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[url]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", url)
	}
	return data, nil
}

func (s *stubStore) put(url string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[url] = data
}
