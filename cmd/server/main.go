package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/minilink/backend/internal/config"
	"github.com/minilink/backend/internal/database"
	"github.com/minilink/backend/internal/handlers"
	"github.com/minilink/backend/internal/middleware"
	"github.com/minilink/backend/internal/services"
	"github.com/minilink/backend/pkg/claimtoken"
	"github.com/minilink/backend/pkg/logger"
	"github.com/minilink/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	claimtoken.SetSecret(cfg.JWT.Secret)
	claimtoken.StartCleanup(5 * time.Minute)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	accountService := services.NewAccountService(db)
	linkService := services.NewLinkService(db)
	trackingService := services.NewTrackingService(db, cfg.Tracking.QueueBufferSize)
	oauthService := services.NewOAuthService(cfg)

	authHandler := handlers.NewAuthHandler(db, accountService)
	oauthHandler := handlers.NewOAuthHandler(cfg, oauthService, accountService)
	profileHandler := handlers.NewProfileHandler(accountService, linkService, trackingService)
	linksHandler := handlers.NewLinksHandler(linkService)
	analyticsHandler := handlers.NewAnalyticsHandler(trackingService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 1 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Get("/oauth/:provider", oauthHandler.GetLoginRedirect)
	authRoutes.Get("/oauth/:provider/callback", oauthHandler.HandleCallback)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			trackingService.Close()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
