package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/submitech/submitech-api/internal/dto"
	"github.com/submitech/submitech-api/internal/models"
	"github.com/submitech/submitech-api/internal/repository"
)

// ErrSubmissionNotFound indicates a submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrStudentNotFound indicates the submitting student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// EvaluationEnqueuer accepts submission ids for asynchronous evaluation.
type EvaluationEnqueuer interface {
	Enqueue(submissionID uint) error
}

// SubmissionService orchestrates submission intake.
type SubmissionService interface {
	List(ctx context.Context, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	students    repository.StudentRepository
	validator   *validator.Validate
	store       FileStore
	queue       EvaluationEnqueuer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	studentRepo repository.StudentRepository,
	validate *validator.Validate,
	store FileStore,
	queue EvaluationEnqueuer,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		students:    studentRepo,
		validator:   validate,
		store:       store,
		queue:       queue,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Create stores the uploaded file and queues the submission for evaluation.
// Any file type is accepted; unsupported formats are handled downstream by
// scoring the affected components zero. Late submissions are accepted and
// penalized at grading time.
func (s *submissionService) Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if file == nil {
		return dto.SubmissionResponse{}, fmt.Errorf("submission file is required")
	}

	if _, err := s.assignments.GetByID(ctx, payload.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if _, err := s.students.GetByID(ctx, payload.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrStudentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	s.logFileType(file)

	reader, err := file.Open()
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	uploadURL, err := s.store.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("failed to upload file: %w", err)
	}

	submission := models.Submission{
		AssignmentID: payload.AssignmentID,
		StudentID:    payload.StudentID,
		FileURL:      uploadURL,
		FileName:     file.Filename,
		Status:       models.SubmissionStatusUploaded,
		SubmittedAt:  s.now(),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(submission.ID); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to enqueue evaluation")
		}
	}

	s.logger.Info().Uint("submission_id", submission.ID).Msg("submission created")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) logFileType(file *multipart.FileHeader) {
	reader, err := file.Open()
	if err != nil {
		return
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(io.LimitReader(reader, 3072))
	if err != nil {
		return
	}

	s.logger.Debug().Str("file", file.Filename).Str("mime", mime.String()).Msg("submission file received")
}
