package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/submitech/submitech-api/internal/dto"
	"github.com/submitech/submitech-api/internal/service"
	"github.com/submitech/submitech-api/internal/utils"
)

// PlagiarismHandler exposes the cohort recompute endpoint.
type PlagiarismHandler struct {
	assignments service.AssignmentService
	evaluation  service.EvaluationService
	logger      zerolog.Logger
}

// NewPlagiarismHandler constructs the handler.
func NewPlagiarismHandler(assignments service.AssignmentService, evaluation service.EvaluationService, logger zerolog.Logger) *PlagiarismHandler {
	return &PlagiarismHandler{
		assignments: assignments,
		evaluation:  evaluation,
		logger:      logger.With().Str("component", "plagiarism_handler").Logger(),
	}
}

// Register attaches the recompute endpoint to the assignment router group.
func (h *PlagiarismHandler) Register(router fiber.Router) {
	router.Post("/:id/plagiarism/recompute", h.recompute)
}

func (h *PlagiarismHandler) recompute(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := h.assignments.Get(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrAssignmentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	cohortSize, err := h.evaluation.RecomputeCohort(c.Context(), id)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Uint("assignment_id", id).Msg("plagiarism recompute failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "plagiarism recompute failed")
	}

	response := dto.PlagiarismRecomputeResponse{
		AssignmentID: id,
		Status:       "completed",
		CohortSize:   cohortSize,
	}
	return utils.SendSuccess(c, "plagiarism recomputed", response)
}
