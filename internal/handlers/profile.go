package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minilink/backend/internal/middleware"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/claimtoken"
	"github.com/minilink/backend/pkg/utils"
)

type ProfileHandler struct {
	Accounts *services.AccountService
	Links    *services.LinkService
	Tracking *services.TrackingService
}

func NewProfileHandler(accounts *services.AccountService, links *services.LinkService, tracking *services.TrackingService) *ProfileHandler {
	return &ProfileHandler{Accounts: accounts, Links: links, Tracking: tracking}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

type updateProfileRequest struct {
	Username        *string `json:"username"`
	Name            *string `json:"name"`
	Bio             *string `json:"bio"`
	AvatarURL       *string `json:"avatarURL"`
	Theme           *string `json:"theme"`
	ThemeBackground *string `json:"themeBackground"`
	ThemeCard       *string `json:"themeCard"`
	ThemeText       *string `json:"themeText"`
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.Accounts.UpdateProfile(c.Context(), user.ID, services.ProfileUpdate{
		Username:        req.Username,
		Name:            req.Name,
		Bio:             req.Bio,
		AvatarURL:       req.AvatarURL,
		Theme:           req.Theme,
		ThemeBackground: req.ThemeBackground,
		ThemeCard:       req.ThemeCard,
		ThemeText:       req.ThemeText,
	})
	if err != nil {
		return serviceError(c, err, "failed updating profile")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

// CheckUsername backs the live-typing availability indicator. It is
// advisory: the profile update re-checks under the unique constraint.
func (h *ProfileHandler) CheckUsername(c *fiber.Ctx) error {
	candidate := strings.TrimSpace(c.Query("username"))
	if candidate == "" {
		return utils.Error(c, fiber.StatusBadRequest, "username query parameter is required")
	}

	requestingUserID := uuid.Nil
	if user := middleware.GetCurrentUser(c); user != nil {
		requestingUserID = user.ID
	}

	available, err := h.Accounts.CheckUsernameAvailable(c.Context(), candidate, requestingUserID)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			return utils.Success(c, fiber.StatusOK, fiber.Map{
				"available": false,
				"reason":    validationErr.Message,
			})
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking username")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"available": available})
}

type claimUsernameRequest struct {
	Username string `json:"username"`
}

// ClaimUsername reserves a handle before signup: the landing page calls
// this, stores the token, and presents it during registration.
func (h *ProfileHandler) ClaimUsername(c *fiber.Ctx) error {
	var req claimUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	candidate := strings.TrimSpace(req.Username)
	if err := services.ValidateUsername(candidate); err != nil {
		return serviceError(c, err, "invalid username")
	}

	available, err := h.Accounts.CheckUsernameAvailable(c.Context(), candidate, uuid.Nil)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking username")
	}
	if !available {
		return utils.Error(c, fiber.StatusConflict, "username already taken")
	}

	token, expiresAt := claimtoken.Generate(candidate)
	if token == "" {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating claim token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token":     token,
		"username":  candidate,
		"expiresAt": expiresAt.UTC(),
	})
}

// PublicProfile renders the shareable page: profile fields plus active
// links in display order. Every render records a page view, best-effort.
func (h *ProfileHandler) PublicProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	user, err := h.Accounts.GetByUsername(c.Context(), username)
	if err != nil {
		return serviceError(c, err, "failed loading profile")
	}

	links, err := h.Links.ListActive(c.Context(), user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading links")
	}

	h.Tracking.RecordView(user.ID, c.Get("User-Agent"), c.Get("Referer"))

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"profile": user.Public(),
		"links":   links,
	})
}
