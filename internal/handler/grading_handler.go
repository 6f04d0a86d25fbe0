package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Kadalzz/edu-project-sub000/internal/dto"
	"github.com/Kadalzz/edu-project-sub000/internal/service"
	"github.com/Kadalzz/edu-project-sub000/internal/utils"
)

// GradingHandler wires the teacher-facing manual grading routes.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the grading endpoints to the router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("/assignments/:id/pending", h.listPending)
	router.Get("/attempts/:id", h.getAttempt)
	router.Put("/attempts/:id/answers/:questionId/points", h.setManualPoints)
	router.Post("/attempts/:id/complete", h.completeGrading)
}

func (h *GradingHandler) listPending(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attempts, err := h.service.ListPending(c.Context(), userIDFromContext(c), assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "pending attempts retrieved", attempts)
}

func (h *GradingHandler) getAttempt(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attempt, err := h.service.GetAttempt(c.Context(), userIDFromContext(c), attemptID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "attempt retrieved", attempt)
}

func (h *GradingHandler) setManualPoints(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SetManualPointsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attempt, err := h.service.SetManualPoints(c.Context(), userIDFromContext(c), attemptID, questionID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "manual points recorded", attempt)
}

func (h *GradingHandler) completeGrading(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CompleteGradingRequest
	if err := c.BodyParser(&payload); err != nil && len(c.Body()) > 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attempt, err := h.service.CompleteGrading(c.Context(), userIDFromContext(c), attemptID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grading completed", attempt)
}
