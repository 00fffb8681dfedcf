package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/submitech/submitech-api/internal/dto"
	"github.com/submitech/submitech-api/internal/models"
	"github.com/submitech/submitech-api/internal/repository"
)

// ErrAssignmentNotFound indicates the requested assignment does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

const (
	defaultAssignmentPageSize = 20
	maxAssignmentPageSize     = 100
)

// FileStore abstracts durable storage for uploaded documents.
type FileStore interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	List(ctx context.Context, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, modelAnswer *multipart.FileHeader) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	validator *validator.Validate
	store     FileStore
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, validate *validator.Validate, store FileStore, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		validator: validate,
		store:     store,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		now:       time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultAssignmentPageSize
	}
	if pageSize > maxAssignmentPageSize {
		pageSize = maxAssignmentPageSize
	}

	assignments, total, err := s.repo.ListWithFilter(ctx, repository.AssignmentFilter{
		Search:   query.Search,
		Sort:     query.Sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.AssignmentListResponse{
		Assignments: dto.NewAssignmentResponseSlice(assignments),
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}

		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, modelAnswer *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if modelAnswer == nil {
		return dto.AssignmentResponse{}, fmt.Errorf("model answer file is required")
	}

	dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
	}

	if !dueDate.After(s.now()) {
		return dto.AssignmentResponse{}, fmt.Errorf("due date must be in the future")
	}

	keywords, err := encodeKeywords(payload.Keywords, s.sanitizer)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Title:           strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description:     strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Keywords:        keywords,
		DueDate:         dueDate,
		ModelAnswerName: modelAnswer.Filename,
	}

	url, err := s.uploadFile(ctx, modelAnswer)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	assignment.ModelAnswerURL = url

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) uploadFile(ctx context.Context, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	url, err := s.store.Upload(ctx, file.Filename, src)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return url, nil
}

func encodeKeywords(keywords []string, sanitizer *bluemonday.Policy) (datatypes.JSON, error) {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(sanitizer.Sanitize(keyword))
		if keyword != "" {
			cleaned = append(cleaned, keyword)
		}
	}

	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}

	return datatypes.JSON(encoded), nil
}
