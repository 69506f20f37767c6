package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/minilink/backend/internal/config"
	"github.com/minilink/backend/internal/models"
	"github.com/minilink/backend/pkg/logger"
	"golang.org/x/oauth2"
	github "golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// OAuthService turns a provider's authorization code into an
// ExternalIdentity for the account service.
type OAuthService struct {
	Cfg *config.Config
}

func NewOAuthService(cfg *config.Config) *OAuthService {
	return &OAuthService{Cfg: cfg}
}

func (s *OAuthService) GetOAuthConfig(provider string) (*oauth2.Config, error) {
	switch strings.ToLower(provider) {
	case "google":
		if !s.Cfg.OAuth.Google.Enabled {
			return nil, errors.New("google oauth is not enabled")
		}
		return &oauth2.Config{
			ClientID:     s.Cfg.OAuth.Google.ClientID,
			ClientSecret: s.Cfg.OAuth.Google.ClientSecret,
			RedirectURL:  s.Cfg.OAuth.Google.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}, nil

	case "github":
		if !s.Cfg.OAuth.GitHub.Enabled {
			return nil, errors.New("github oauth is not enabled")
		}
		return &oauth2.Config{
			ClientID:     s.Cfg.OAuth.GitHub.ClientID,
			ClientSecret: s.Cfg.OAuth.GitHub.ClientSecret,
			RedirectURL:  s.Cfg.OAuth.GitHub.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil

	default:
		return nil, errors.New("unknown oauth provider: " + provider)
	}
}

func (s *OAuthService) GenerateState() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(nonce), nil
}

func (s *OAuthService) ExchangeCode(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	oauthCfg, err := s.GetOAuthConfig(provider)
	if err != nil {
		return nil, err
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Warn("oauth_exchange_failed", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return nil, errors.New("failed to exchange code for token")
	}

	return token, nil
}

func (s *OAuthService) GetIdentity(ctx context.Context, provider string, token *oauth2.Token) (*ExternalIdentity, error) {
	switch strings.ToLower(provider) {
	case "google":
		return s.getGoogleIdentity(ctx, token)
	case "github":
		return s.getGitHubIdentity(ctx, token)
	default:
		return nil, errors.New("unknown provider: " + provider)
	}
}

func (s *OAuthService) getGoogleIdentity(ctx context.Context, token *oauth2.Token) (*ExternalIdentity, error) {
	oauthCfg, err := s.GetOAuthConfig("google")
	if err != nil {
		return nil, err
	}
	client := oauthCfg.Client(ctx, token)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	identity := &ExternalIdentity{
		SubjectID: "google:" + data.ID,
		Email:     data.Email,
		Name:      data.Name,
		Provider:  models.AuthProviderGoogle,
	}
	if data.Picture != "" {
		identity.AvatarURL = &data.Picture
	}
	return identity, nil
}

func (s *OAuthService) getGitHubIdentity(ctx context.Context, token *oauth2.Token) (*ExternalIdentity, error) {
	oauthCfg, err := s.GetOAuthConfig("github")
	if err != nil {
		return nil, err
	}
	client := oauthCfg.Client(ctx, token)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	email := data.Email
	if email == "" {
		email, err = s.getGitHubPrimaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
	}

	name := data.Name
	if name == "" {
		name = data.Login
	}

	identity := &ExternalIdentity{
		SubjectID:    "github:" + strconv.FormatInt(data.ID, 10),
		Email:        email,
		Name:         name,
		Provider:     models.AuthProviderGitHub,
		UsernameHint: data.Login,
	}
	if data.AvatarURL != "" {
		identity.AvatarURL = &data.AvatarURL
	}
	return identity, nil
}

func (s *OAuthService) getGitHubPrimaryEmail(ctx context.Context, client *http.Client) (string, error) {
	resp, err := client.Get("https://api.github.com/user/emails")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails api returned status %d", resp.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}
