package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/minilink/backend/internal/middleware"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/utils"
)

type AnalyticsHandler struct {
	Tracking *services.TrackingService
}

func NewAnalyticsHandler(tracking *services.TrackingService) *AnalyticsHandler {
	return &AnalyticsHandler{Tracking: tracking}
}

func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	summary, err := h.Tracking.Summary(c.Context(), user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading analytics")
	}
	return utils.Success(c, fiber.StatusOK, summary)
}

// TrackClick is hit by the public page when a visitor activates a link.
// Recording is fire-and-forget: the response never depends on whether
// the event lands.
func (h *AnalyticsHandler) TrackClick(c *fiber.Ctx) error {
	linkID, err := parseUUID(c.Params("linkId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid link id")
	}

	h.Tracking.RecordClick(linkID, c.Get("User-Agent"), c.Get("Referer"))

	return utils.Success(c, fiber.StatusAccepted, fiber.Map{"message": "recorded"})
}
