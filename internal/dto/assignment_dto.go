package dto

import (
	"encoding/json"
	"time"

	"github.com/submitech/submitech-api/internal/models"
)

// AssignmentCreateRequest describes the multipart payload for creating an
// assignment. The model answer file arrives as a separate form part.
type AssignmentCreateRequest struct {
	Title       string   `form:"title" json:"title" validate:"required,min=3"`
	Description string   `form:"description" json:"description" validate:"required,min=10"`
	Keywords    []string `form:"keywords" json:"keywords" validate:"omitempty,dive,min=1"`
	DueDate     string   `form:"due_date" json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssignmentListQuery carries the list endpoint's search, sort and
// pagination options.
type AssignmentListQuery struct {
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// AssignmentListResponse is a paginated page of assignments.
type AssignmentListResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Keywords        []string  `json:"keywords"`
	DueDate         time.Time `json:"due_date"`
	ModelAnswerURL  string    `json:"model_answer_url"`
	ModelAnswerName string    `json:"model_answer_name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	keywords := []string{}
	if len(model.Keywords) > 0 {
		_ = json.Unmarshal(model.Keywords, &keywords)
	}

	return AssignmentResponse{
		ID:              model.ID,
		Title:           model.Title,
		Description:     model.Description,
		Keywords:        keywords,
		DueDate:         model.DueDate,
		ModelAnswerURL:  model.ModelAnswerURL,
		ModelAnswerName: model.ModelAnswerName,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
