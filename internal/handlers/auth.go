package handlers

import (
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/minilink/backend/internal/middleware"
	"github.com/minilink/backend/internal/models"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/claimtoken"
	"github.com/minilink/backend/pkg/logger"
	"github.com/minilink/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB       *gorm.DB
	Accounts *services.AccountService
}

func NewAuthHandler(db *gorm.DB, accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{DB: db, Accounts: accounts}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	ClaimToken string `json:"claimToken"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	claimedUsername := ""
	if req.ClaimToken != "" {
		claim, err := claimtoken.Validate(req.ClaimToken)
		if err != nil {
			logger.Warn("claim_token_rejected", map[string]interface{}{
				"error": err.Error(),
				"ip":    c.IP(),
			})
		} else {
			claimedUsername = claim.Username
		}
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	user, err := h.Accounts.RegisterLocal(c.Context(), req.Email, passwordHash, req.Name, req.Username, claimedUsername)
	if err != nil {
		return serviceError(c, err, "failed creating user")
	}

	if req.ClaimToken != "" && claimedUsername != "" {
		claimtoken.MarkUsed(req.ClaimToken)
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id":  user.ID.String(),
		"email":    user.Email,
		"username": user.Username,
	})

	token, err := utils.GenerateToken(user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if user.PasswordHash == nil || !utils.CheckPassword(req.Password, *user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("user_login", map[string]interface{}{
		"user_id": user.ID.String(),
		"ip":      c.IP(),
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user)
}
