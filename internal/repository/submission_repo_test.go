package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/submitech/submitech-api/internal/models"
)

func TestSubmissionRepositoryUpdateScores(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	submission := seedSubmission(t, db, 1)

	mark := 72.5
	err := repo.UpdateScores(context.Background(), ScoreUpdate{
		SubmissionID:           submission.ID,
		ExtractedText:          "raw text",
		NormalizedText:         "raw text",
		TextSimilarityScore:    80,
		DiagramSimilarityScore: 10,
		GrammarScore:           9,
		PlagiarismScore:        12.5,
		FinalMark:              &mark,
		Grade:                  "B1",
		Feedback:               "Good, but needs improvement.",
		Status:                 models.SubmissionStatusGraded,
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.Equal(t, 80.0, stored.TextSimilarityScore)
	require.Equal(t, 9, stored.GrammarScore)
	require.NotNil(t, stored.FinalMark)
	require.Equal(t, 72.5, *stored.FinalMark)
	require.Equal(t, "B1", stored.Grade)
}

func TestSubmissionRepositoryUpdateScoresMissingRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	err := repo.UpdateScores(context.Background(), ScoreUpdate{SubmissionID: 999, Status: models.SubmissionStatusGraded})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryUpdateScoresBatchAtomic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	first := seedSubmission(t, db, 1)
	second := seedSubmission(t, db, 2)

	updates := []ScoreUpdate{
		{SubmissionID: first.ID, PlagiarismScore: 90, Status: models.SubmissionStatusGraded},
		{SubmissionID: second.ID, PlagiarismScore: 90, Status: models.SubmissionStatusGraded},
		{SubmissionID: 12345, PlagiarismScore: 90, Status: models.SubmissionStatusGraded},
	}

	err := repo.UpdateScoresBatch(context.Background(), updates)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The failed batch must not have written anything.
	stored, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusUploaded, stored.Status)
	require.Zero(t, stored.PlagiarismScore)
}

func TestSubmissionRepositoryListByAssignment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	seedSubmission(t, db, 1)
	seedSubmission(t, db, 2)

	submissions, err := repo.ListByAssignment(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	require.Less(t, submissions[0].ID, submissions[1].ID, "expected stable id ordering")
}

func seedSubmission(t *testing.T, db *gorm.DB, studentID uint) models.Submission {
	t.Helper()

	submission := models.Submission{
		AssignmentID: 1,
		StudentID:    studentID,
		FileURL:      "https://files.example.com/answer.pdf",
		FileName:     "answer.pdf",
		Status:       models.SubmissionStatusUploaded,
		SubmittedAt:  time.Now(),
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Assignment{},
		&models.Submission{},
		&models.Notification{},
	))
	return db
}
