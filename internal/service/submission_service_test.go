package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/submitech/submitech-api/internal/dto"
	"github.com/submitech/submitech-api/internal/models"
	"github.com/submitech/submitech-api/internal/repository"
)

type recordingQueue struct {
	mu  sync.Mutex
	ids []uint
}

func (q *recordingQueue) Enqueue(submissionID uint) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, submissionID)
	return nil
}

func newSubmissionFixture(t *testing.T) (*memorySubmissionRepo, *memoryAssignmentRepo, *recordingQueue, SubmissionService) {
	t.Helper()

	submissions := newMemorySubmissionRepo()
	assignments := newMemoryAssignmentRepo()
	students := newMemoryStudentRepo(1, 2)
	queue := &recordingQueue{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSubmissionService(submissions, assignments, students, validate, newStubStore(), queue, testLogger())

	assignment := models.Assignment{
		Title:       "Databases",
		Description: "Explain B-tree indexes",
		DueDate:     time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, assignments.Create(context.Background(), &assignment))

	return submissions, assignments, queue, svc
}

func TestSubmissionServiceCreateEnqueuesEvaluation(t *testing.T) {
	_, _, queue, svc := newSubmissionFixture(t)

	payload := dto.SubmissionCreateRequest{AssignmentID: 1, StudentID: 1}
	file := newTestFileHeader(t, "answer.pdf", []byte("%PDF-1.4 content"))

	result, err := svc.Create(context.Background(), payload, file)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusUploaded, result.Status)
	require.Equal(t, "answer.pdf", result.FileName)
	require.NotEmpty(t, result.FileURL)
	require.Equal(t, []uint{result.ID}, queue.ids)
}

func TestSubmissionServiceCreateAcceptsAnyFileType(t *testing.T) {
	_, _, _, svc := newSubmissionFixture(t)

	payload := dto.SubmissionCreateRequest{AssignmentID: 1, StudentID: 1}
	file := newTestFileHeader(t, "answer.xyz", []byte{0x01, 0x02, 0x03})

	result, err := svc.Create(context.Background(), payload, file)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusUploaded, result.Status)
}

func TestSubmissionServiceCreateAcceptsLateSubmission(t *testing.T) {
	submissions, assignments, _, svc := newSubmissionFixture(t)

	overdue := models.Assignment{
		Title:       "Overdue",
		Description: "Deadline already passed",
		DueDate:     time.Now().Add(-time.Hour),
	}
	require.NoError(t, assignments.Create(context.Background(), &overdue))

	payload := dto.SubmissionCreateRequest{AssignmentID: overdue.ID, StudentID: 1}
	file := newTestFileHeader(t, "late.txt", []byte("late answer"))

	result, err := svc.Create(context.Background(), payload, file)
	require.NoError(t, err)

	stored, err := submissions.GetByID(context.Background(), result.ID)
	require.NoError(t, err)

	// Lateness is decided at evaluation time, not intake.
	require.Equal(t, models.SubmissionStatusUploaded, stored.Status)
	require.False(t, stored.IsLate)
}

func TestSubmissionServiceCreateUnknownAssignment(t *testing.T) {
	_, _, _, svc := newSubmissionFixture(t)

	payload := dto.SubmissionCreateRequest{AssignmentID: 99, StudentID: 1}
	file := newTestFileHeader(t, "answer.txt", []byte("text"))

	_, err := svc.Create(context.Background(), payload, file)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSubmissionServiceCreateUnknownStudent(t *testing.T) {
	_, _, _, svc := newSubmissionFixture(t)

	payload := dto.SubmissionCreateRequest{AssignmentID: 1, StudentID: 77}
	file := newTestFileHeader(t, "answer.txt", []byte("text"))

	_, err := svc.Create(context.Background(), payload, file)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestSubmissionServiceCreateRequiresFile(t *testing.T) {
	_, _, _, svc := newSubmissionFixture(t)

	payload := dto.SubmissionCreateRequest{AssignmentID: 1, StudentID: 1}
	_, err := svc.Create(context.Background(), payload, nil)
	require.Error(t, err)
}

func TestSubmissionServiceListFiltersByStatus(t *testing.T) {
	submissions, _, _, svc := newSubmissionFixture(t)

	graded := models.Submission{AssignmentID: 1, StudentID: 1, Status: models.SubmissionStatusGraded, SubmittedAt: time.Now()}
	uploaded := models.Submission{AssignmentID: 1, StudentID: 2, Status: models.SubmissionStatusUploaded, SubmittedAt: time.Now()}
	require.NoError(t, submissions.Create(context.Background(), &graded))
	require.NoError(t, submissions.Create(context.Background(), &uploaded))

	status := models.SubmissionStatusGraded
	results, err := svc.List(context.Background(), repository.SubmissionFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, graded.ID, results[0].ID)
}
