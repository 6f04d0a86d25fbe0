package handler

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Kadalzz/edu-project-sub000/internal/dto"
	"github.com/Kadalzz/edu-project-sub000/internal/service"
	"github.com/Kadalzz/edu-project-sub000/internal/utils"
)

// AttemptHandler wires the student-facing attempt routes.
type AttemptHandler struct {
	assignments service.AssignmentService
	attempts    service.AttemptService
	logger      zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(assignments service.AssignmentService, attempts service.AttemptService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		assignments: assignments,
		attempts:    attempts,
		logger:      logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register attaches the student endpoints to the router group.
func (h *AttemptHandler) Register(router fiber.Router) {
	router.Get("/assignments", h.listAssignments)
	router.Post("/assignments/:id/attempts", h.start)
	router.Get("/attempts/:id", h.get)
	router.Put("/attempts/:id/answers/:questionId", h.recordAnswer)
	router.Post("/attempts/:id/submit", h.submit)
}

func (h *AttemptHandler) listAssignments(c *fiber.Ctx) error {
	assignments, err := h.assignments.ListVisibleTo(c.Context(), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AttemptHandler) start(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.StartAttemptRequest
	if err := c.BodyParser(&payload); err != nil && len(c.Body()) > 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attempt, err := h.attempts.Start(c.Context(), userIDFromContext(c), assignmentID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt started", attempt)
}

func (h *AttemptHandler) get(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attempt, err := h.attempts.Get(c.Context(), userIDFromContext(c), attemptID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "attempt retrieved", attempt)
}

func (h *AttemptHandler) recordAnswer(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RecordAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attempt, err := h.attempts.RecordAnswer(c.Context(), userIDFromContext(c), attemptID, questionID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "answer recorded", attempt)
}

// submit finalizes the attempt. The same endpoint serves both the student
// clicking submit and the client-side countdown reaching zero; idempotent
// finalization neutralizes double submission.
func (h *AttemptHandler) submit(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	// Evidence is optional, but a multipart body that fails to parse means the
	// student tried to attach one; finalizing without it would lose the file.
	var evidence *multipart.FileHeader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid evidence upload")
		}
		if files := form.File["evidence"]; len(files) > 0 {
			evidence = files[0]
		}
	}

	attempt, err := h.attempts.Finalize(c.Context(), userIDFromContext(c), attemptID, evidence)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "attempt submitted", attempt)
}
