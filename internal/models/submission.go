package models

import "time"

// Submission represents a file submitted by a student for an assignment
// together with every score produced by the evaluation pipeline.
type Submission struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	AssignmentID uint   `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint   `gorm:"not null;index" json:"student_id"`
	FileURL      string `gorm:"size:512" json:"file_url"`
	FileName     string `gorm:"size:255" json:"file_name"`
	Status       string `gorm:"size:32;not null" json:"status"`

	// Pipeline artifacts. Extracted and normalized text are persisted so
	// plagiarism recomputes can run without refetching the file.
	ExtractedText  string `gorm:"type:text" json:"-"`
	NormalizedText string `gorm:"type:text" json:"-"`
	DiagramText    string `gorm:"type:text" json:"-"`

	TextSimilarityScore    float64 `json:"text_similarity_score"`
	DiagramSimilarityScore float64 `json:"diagram_similarity_score"`
	GrammarScore           int     `json:"grammar_score"`
	PlagiarismScore        float64 `json:"plagiarism_score"`

	IsLate    bool     `json:"is_late"`
	FinalMark *float64 `json:"final_mark"`
	Grade     string   `gorm:"size:2" json:"grade"`
	Feedback  string   `gorm:"type:text" json:"feedback"`

	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Assignment  Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student     Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Submission lifecycle statuses, in pipeline order.
const (
	// SubmissionStatusUploaded indicates the file is stored but not yet evaluated.
	SubmissionStatusUploaded = "uploaded"
	// SubmissionStatusExtracted indicates text and images have been pulled from the file.
	SubmissionStatusExtracted = "extracted"
	// SubmissionStatusNormalized indicates the extracted text has been normalized.
	SubmissionStatusNormalized = "normalized"
	// SubmissionStatusScored indicates similarity and grammar scores are computed.
	SubmissionStatusScored = "scored"
	// SubmissionStatusPlagiarismPending indicates a cohort recompute is in flight.
	SubmissionStatusPlagiarismPending = "plagiarism_pending"
	// SubmissionStatusGraded indicates the final mark and grade are assigned.
	SubmissionStatusGraded = "graded"
)

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}
