package dto

import (
	"time"

	"github.com/submitech/submitech-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for submitting work.
// The submitted file arrives as a separate form part.
type SubmissionCreateRequest struct {
	AssignmentID uint `form:"assignment_id" json:"assignment_id" validate:"required,min=1"`
	StudentID    uint `form:"student_id" json:"student_id" validate:"required,min=1"`
}

// SubmissionResponse is the serialized representation returned to API clients.
type SubmissionResponse struct {
	ID           uint   `json:"id"`
	AssignmentID uint   `json:"assignment_id"`
	StudentID    uint   `json:"student_id"`
	FileURL      string `json:"file_url"`
	FileName     string `json:"file_name"`
	Status       string `json:"status"`

	TextSimilarityScore    float64 `json:"text_similarity_score"`
	DiagramSimilarityScore float64 `json:"diagram_similarity_score"`
	GrammarScore           int     `json:"grammar_score"`
	PlagiarismScore        float64 `json:"plagiarism_score"`

	IsLate    bool     `json:"is_late"`
	FinalMark *float64 `json:"final_mark"`
	Grade     string   `json:"grade"`
	Feedback  string   `json:"feedback"`

	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:                     model.ID,
		AssignmentID:           model.AssignmentID,
		StudentID:              model.StudentID,
		FileURL:                model.FileURL,
		FileName:               model.FileName,
		Status:                 model.Status,
		TextSimilarityScore:    model.TextSimilarityScore,
		DiagramSimilarityScore: model.DiagramSimilarityScore,
		GrammarScore:           model.GrammarScore,
		PlagiarismScore:        model.PlagiarismScore,
		IsLate:                 model.IsLate,
		FinalMark:              model.FinalMark,
		Grade:                  model.Grade,
		Feedback:               model.Feedback,
		SubmittedAt:            model.SubmittedAt,
		CreatedAt:              model.CreatedAt,
		UpdatedAt:              model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
