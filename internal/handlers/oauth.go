package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/minilink/backend/internal/config"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/claimtoken"
	"github.com/minilink/backend/pkg/logger"
	"github.com/minilink/backend/pkg/utils"
)

type OAuthHandler struct {
	Cfg      *config.Config
	OAuth    *services.OAuthService
	Accounts *services.AccountService
}

func NewOAuthHandler(cfg *config.Config, oauth *services.OAuthService, accounts *services.AccountService) *OAuthHandler {
	return &OAuthHandler{Cfg: cfg, OAuth: oauth, Accounts: accounts}
}

func (h *OAuthHandler) GetLoginRedirect(c *fiber.Ctx) error {
	provider := c.Params("provider")

	oauthCfg, err := h.OAuth.GetOAuthConfig(provider)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.OAuth.GenerateState()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating state")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url": oauthCfg.AuthCodeURL(state),
	})
}

func (h *OAuthHandler) HandleCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	code := c.Query("code")

	frontendURL := h.Cfg.Server.FrontendURL

	if code == "" {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape("authorization code is required"))
	}

	token, err := h.OAuth.ExchangeCode(c.Context(), provider, code)
	if err != nil {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape(err.Error()))
	}

	identity, err := h.OAuth.GetIdentity(c.Context(), provider, token)
	if err != nil {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape(err.Error()))
	}

	// A username claimed pre-signup rides along in a cookie set by the
	// frontend before redirecting to the provider.
	claimCookie := c.Cookies("minilink_claim")
	if claimCookie != "" {
		if claim, err := claimtoken.Validate(claimCookie); err == nil {
			identity.ClaimedUsername = claim.Username
		}
	}

	user, err := h.Accounts.ResolveUser(c.Context(), *identity)
	if err != nil {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape(err.Error()))
	}

	if claimCookie != "" && identity.ClaimedUsername != "" {
		claimtoken.MarkUsed(claimCookie)
	}

	jwtToken, err := utils.GenerateToken(user)
	if err != nil {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape("failed to generate token"))
	}

	logger.Info("oauth_login_success", map[string]interface{}{
		"user_id":  user.ID.String(),
		"provider": provider,
	})

	return c.Redirect(frontendURL + "/auth/callback?token=" + jwtToken)
}
