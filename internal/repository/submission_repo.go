package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/submitech/submitech-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	Status       *string
}

// ScoreUpdate carries every field the evaluation pipeline writes for a single
// submission. All fields are persisted in one statement so readers never see
// a half-written score set.
type ScoreUpdate struct {
	SubmissionID uint

	ExtractedText  string
	NormalizedText string
	DiagramText    string

	TextSimilarityScore    float64
	DiagramSimilarityScore float64
	GrammarScore           int
	PlagiarismScore        float64

	IsLate    bool
	FinalMark *float64
	Grade     string
	Feedback  string
	Status    string
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	UpdateScores(ctx context.Context, update ScoreUpdate) error
	UpdateScoresBatch(ctx context.Context, updates []ScoreUpdate) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) UpdateScores(ctx context.Context, update ScoreUpdate) error {
	return applyScoreUpdate(r.db.WithContext(ctx), update)
}

// UpdateScoresBatch writes a cohort's score sets in a single transaction so a
// plagiarism recompute lands atomically across all affected submissions.
func (r *submissionRepository) UpdateScoresBatch(ctx context.Context, updates []ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			if err := applyScoreUpdate(tx, update); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyScoreUpdate(tx *gorm.DB, update ScoreUpdate) error {
	result := tx.Model(&models.Submission{}).
		Where("id = ?", update.SubmissionID).
		Updates(map[string]interface{}{
			"extracted_text":           update.ExtractedText,
			"normalized_text":          update.NormalizedText,
			"diagram_text":             update.DiagramText,
			"text_similarity_score":    update.TextSimilarityScore,
			"diagram_similarity_score": update.DiagramSimilarityScore,
			"grammar_score":            update.GrammarScore,
			"plagiarism_score":         update.PlagiarismScore,
			"is_late":                  update.IsLate,
			"final_mark":               update.FinalMark,
			"grade":                    update.Grade,
			"feedback":                 update.Feedback,
			"status":                   update.Status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
