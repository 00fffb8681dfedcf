package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment represents an assignment definition together with the teacher's
// model answer. The normalized text and diagram text extracted from the model
// answer are cached on the row so repeated evaluations skip re-extraction.
type Assignment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Keywords        datatypes.JSON `gorm:"type:json" json:"keywords"`
	DueDate         time.Time      `gorm:"not null" json:"due_date"`
	ModelAnswerURL  string         `gorm:"size:512" json:"model_answer_url"`
	ModelAnswerName string         `gorm:"size:255" json:"model_answer_name"`

	// Cached evaluation artifacts derived from the model answer.
	ModelAnswerText       string `gorm:"type:text" json:"-"`
	ModelAnswerNormalized string `gorm:"type:text" json:"-"`
	ModelAnswerDiagram    string `gorm:"type:text" json:"-"`

	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Submissions []Submission `json:"-"`
}

// IsPastDue reports whether the reference time is after the deadline.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// HasCachedArtifacts reports whether the model answer has already been
// extracted and normalized.
func (a Assignment) HasCachedArtifacts() bool {
	return a.ModelAnswerNormalized != "" || a.ModelAnswerDiagram != ""
}
