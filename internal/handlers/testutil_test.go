package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/minilink/backend/internal/middleware"
	"github.com/minilink/backend/internal/models"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/claimtoken"
	"github.com/minilink/backend/pkg/logger"
	"github.com/minilink/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	accounts  *services.AccountService
	links     *services.LinkService
	tracking  *services.TrackingService
	drainOnce sync.Once
}

// drainTracking flushes queued analytics events so assertions on counts
// are deterministic. Safe to call more than once.
func (env *testEnv) drainTracking() {
	env.drainOnce.Do(env.tracking.Close)
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
		claimtoken.SetSecret("test-secret")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Link{},
		&models.PageView{},
		&models.Click{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	accountService := services.NewAccountService(db)
	linkService := services.NewLinkService(db)
	trackingService := services.NewTrackingService(db, 64)

	authHandler := NewAuthHandler(db, accountService)
	profileHandler := NewProfileHandler(accountService, linkService, trackingService)
	linksHandler := NewLinksHandler(linkService)
	analyticsHandler := NewAnalyticsHandler(trackingService)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 1 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	userRoutes := api.Group("/user")
	userRoutes.Get("/profile", authMiddleware.RequireAuth, profileHandler.Get)
	userRoutes.Put("/profile", authMiddleware.RequireAuth, profileHandler.Update)
	userRoutes.Get("/check-username", authMiddleware.OptionalAuth, profileHandler.CheckUsername)
	userRoutes.Post("/claim-username", profileHandler.ClaimUsername)

	linkRoutes := api.Group("/links", authMiddleware.RequireAuth)
	linkRoutes.Get("/", linksHandler.List)
	linkRoutes.Post("/", linksHandler.Create)
	linkRoutes.Patch("/", linksHandler.Reorder)
	linkRoutes.Put("/:id", linksHandler.Update)
	linkRoutes.Delete("/:id", linksHandler.Delete)

	api.Get("/analytics", authMiddleware.RequireAuth, analyticsHandler.Summary)
	api.Post("/track/:linkId", analyticsHandler.TrackClick)

	api.Get("/profile/:username", profileHandler.PublicProfile)

	env := &testEnv{
		app:      app,
		db:       db,
		accounts: accountService,
		links:    linkService,
		tracking: trackingService,
	}

	t.Cleanup(func() {
		env.drainTracking()
		_ = sqlDB.Close()
	})

	return env
}

func createTestUser(t *testing.T, env *testEnv, email, username string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user, err := env.accounts.RegisterLocal(context.TODO(), email, hash, "Test User", username, "")
	if err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestLink(t *testing.T, env *testEnv, user *models.User, title, url string) *models.Link {
	t.Helper()
	link, err := env.links.Create(context.TODO(), user.ID, title, url, nil)
	if err != nil {
		t.Fatalf("failed creating test link: %v", err)
	}
	return link
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
