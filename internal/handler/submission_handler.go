package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/submitech/submitech-api/internal/dto"
	"github.com/submitech/submitech-api/internal/repository"
	"github.com/submitech/submitech-api/internal/service"
	"github.com/submitech/submitech-api/internal/utils"
)

// SubmissionHandler wires submission HTTP routes, including the evaluation
// trigger.
type SubmissionHandler struct {
	service    service.SubmissionService
	evaluation service.EvaluationService
	logger     zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc service.SubmissionService, evaluation service.EvaluationService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:    svc,
		evaluation: evaluation,
		logger:     logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission endpoints to the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Post("/:id/evaluate", h.evaluate)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := repository.SubmissionFilter{}

	if raw := strings.TrimSpace(c.Query("assignment_id")); raw != "" {
		id, err := parseQueryInt(c, "assignment_id")
		if err != nil || id < 1 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
		}
		value := uint(id)
		filter.AssignmentID = &value
	}

	if raw := strings.TrimSpace(c.Query("student_id")); raw != "" {
		id, err := parseQueryInt(c, "student_id")
		if err != nil || id < 1 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
		}
		value := uint(id)
		filter.StudentID = &value
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = &status
	}

	submissions, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	payload := dto.SubmissionCreateRequest{}

	if id, err := parseQueryFormUint(c, "assignment_id"); err == nil {
		payload.AssignmentID = id
	}
	if id, err := parseQueryFormUint(c, "student_id"); err == nil {
		payload.StudentID = id
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	submission, err := h.service.Create(c.Context(), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) evaluate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := h.service.Get(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		}
		return h.internalError(c, err)
	}

	if err := h.evaluation.Enqueue(id); err != nil {
		if errors.Is(err, service.ErrQueueFull) {
			return utils.SendError(c, fiber.StatusTooManyRequests, "evaluation queue is full, try again later")
		}
		return h.internalError(c, err)
	}

	response := dto.EvaluationEnqueuedResponse{SubmissionID: id, Status: "queued"}
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "evaluation queued", response)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *SubmissionHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
