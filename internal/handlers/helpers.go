package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// serviceError maps domain errors onto the HTTP envelope. Unknown
// errors collapse to a 500 with the caller-provided message so storage
// details never leak.
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return utils.Error(c, fiber.StatusBadRequest, validationErr.Message)
	case errors.Is(err, services.ErrNotFound):
		return utils.Error(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, services.ErrUsernameTaken):
		return utils.Error(c, fiber.StatusConflict, "username already taken")
	case errors.Is(err, services.ErrEmailTaken):
		return utils.Error(c, fiber.StatusConflict, "email already registered")
	case errors.Is(err, services.ErrMissingEmail):
		return utils.Error(c, fiber.StatusPreconditionFailed, "identity has no email address")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, fallback)
	}
}
