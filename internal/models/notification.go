package models

import "time"

// Notification represents a persisted alert delivered to a recipient.
// Recipient is either "student:<id>" or the "teachers" broadcast audience.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Recipient string    `gorm:"size:64;not null;index" json:"recipient"`
	Kind      string    `gorm:"size:32;not null" json:"kind"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	// NotificationKindPlagiarism flags a submission above the plagiarism threshold.
	NotificationKindPlagiarism = "plagiarism_alert"
	// NotificationKindGraded announces that a submission has been graded.
	NotificationKindGraded = "submission_graded"
)
