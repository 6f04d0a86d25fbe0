package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Kadalzz/edu-project-sub000/internal/apperr"
	"github.com/Kadalzz/edu-project-sub000/internal/middleware"
	"github.com/Kadalzz/edu-project-sub000/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError maps the error taxonomy onto HTTP statuses with structured
// detail. Anything outside the taxonomy is logged and reported generically.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErr *apperr.ValidationError
	var authorizationErr *apperr.AuthorizationError
	var conflictErr *apperr.ConflictError
	var notFoundErr *apperr.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", validationErr.Fields)
	case errors.As(err, &authorizationErr):
		return utils.SendError(c, fiber.StatusForbidden, authorizationErr.Error())
	case errors.As(err, &notFoundErr):
		return utils.SendError(c, fiber.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		return utils.SendErrorWithDetails(c, fiber.StatusConflict, conflictErr.Error(), fiber.Map{
			"resource": conflictErr.Resource,
			"id":       conflictErr.ID,
		})
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
