package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/submitech/submitech-api/internal/dto"
	"github.com/submitech/submitech-api/internal/models"
	"github.com/submitech/submitech-api/internal/observability"
	"github.com/submitech/submitech-api/internal/repository"
)

// RecipientTeachers is the broadcast audience for staff-facing alerts.
const RecipientTeachers = "teachers"

// StudentRecipient builds the recipient key for a student.
func StudentRecipient(studentID uint) string {
	return fmt.Sprintf("student:%d", studentID)
}

// NotificationService persists alerts and publishes them to the message bus.
type NotificationService interface {
	NotifyPlagiarism(ctx context.Context, submission models.Submission, score float64) error
	NotifyGraded(ctx context.Context, submission models.Submission) error
	List(ctx context.Context, recipient string, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, recipient string) (dto.NotificationResponse, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
}

type notificationEvent struct {
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// NewNotificationService constructs a notification service. A nil NATS
// connection disables bus publishing while keeping rows persisted.
func NewNotificationService(repo repository.NotificationRepository, natsConn *nats.Conn, natsSubject string, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:        repo,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/submitech/submitech-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *notificationService) NotifyPlagiarism(ctx context.Context, submission models.Submission, score float64) error {
	studentMessage := fmt.Sprintf(
		"Your submission for assignment %d was flagged for similarity review (%.1f%% overlap detected).",
		submission.AssignmentID, score,
	)
	teacherMessage := fmt.Sprintf(
		"Submission %d (student %d, assignment %d) exceeded the plagiarism threshold at %.1f%%.",
		submission.ID, submission.StudentID, submission.AssignmentID, score,
	)

	notifications := []models.Notification{
		{Recipient: StudentRecipient(submission.StudentID), Kind: models.NotificationKindPlagiarism, Message: studentMessage},
		{Recipient: RecipientTeachers, Kind: models.NotificationKindPlagiarism, Message: teacherMessage},
	}

	observability.PlagiarismAlerts().Inc()

	return s.deliver(ctx, models.NotificationKindPlagiarism, notifications)
}

func (s *notificationService) NotifyGraded(ctx context.Context, submission models.Submission) error {
	mark := 0.0
	if submission.FinalMark != nil {
		mark = *submission.FinalMark
	}

	message := fmt.Sprintf(
		"Your submission for assignment %d has been graded: %s (%.2f). %s",
		submission.AssignmentID, submission.Grade, mark, submission.Feedback,
	)

	notifications := []models.Notification{
		{Recipient: StudentRecipient(submission.StudentID), Kind: models.NotificationKindGraded, Message: message},
	}

	return s.deliver(ctx, models.NotificationKindGraded, notifications)
}

func (s *notificationService) deliver(ctx context.Context, kind string, notifications []models.Notification) error {
	attrs := []attribute.KeyValue{
		attribute.String("notification.kind", kind),
		attribute.Int("notification.count", len(notifications)),
	}
	spanCtx, span := s.tracer.Start(ctx, "notifications.deliver", trace.WithAttributes(attrs...))
	defer span.End()

	for i := range notifications {
		clean := strings.TrimSpace(s.sanitizer.Sanitize(notifications[i].Message))
		if clean == "" {
			return errors.New("notification message empty after sanitization")
		}
		notifications[i].Message = clean
	}

	if err := s.repo.CreateBatch(spanCtx, notifications); err != nil {
		span.RecordError(err)
		return err
	}

	for _, notification := range notifications {
		observability.NotificationsPublishedTotal().WithLabelValues(notification.Kind).Inc()

		if s.nats == nil || s.natsSubject == "" {
			continue
		}

		event := notificationEvent{
			Kind:      notification.Kind,
			Recipient: notification.Recipient,
			Message:   notification.Message,
			SentAt:    time.Now().UTC(),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to encode notification event")
			continue
		}
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish notification to bus")
		}
	}

	return nil
}

func (s *notificationService) List(ctx context.Context, recipient string, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, errors.New("recipient is required")
	}

	notifications, err := s.repo.ListByRecipient(ctx, recipient, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, recipient string) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, recipient)
	if err != nil {
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}
