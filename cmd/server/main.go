package main

import (
	"fmt"
	"log"
	"net/http"

	"notebridge/internal/api"
	"notebridge/internal/api/handlers"
	"notebridge/internal/api/middleware"
	"notebridge/internal/engine/gate"
	"notebridge/internal/engine/license"
	"notebridge/internal/engine/oauth"
	"notebridge/internal/engine/workspace"
	"notebridge/internal/pkg/logger"
	"notebridge/internal/platform/auth"
	"notebridge/internal/platform/config"
	"notebridge/internal/platform/database"
	"notebridge/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	licenseRepo := repositories.NewLicenseRepository(db)

	// Services
	sessionSvc := auth.NewSessionService(cfg.Session)
	licenseSvc := license.NewService(licenseRepo, cfg.License.Prefix)
	exchanger := oauth.NewExchanger(cfg.OAuth)
	refresher := oauth.NewRefresher(exchanger, userRepo)
	wsClient := workspace.NewClient(cfg.OAuth)
	authGate := gate.New(refresher, userRepo)

	// Handlers
	oauthHandler := handlers.NewOAuthHandler(exchanger, licenseSvc, userRepo, sessionSvc)
	licenseHandler := handlers.NewLicenseHandler(licenseSvc)
	userHandler := handlers.NewUserHandler(userRepo)
	notesHandler := handlers.NewNotesHandler(authGate, wsClient)
	workspaceHandler := handlers.NewWorkspaceHandler(authGate, wsClient)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(sessionSvc, userRepo, licenseRepo)

	deps := &api.Dependencies{
		OAuthHandler:     oauthHandler,
		LicenseHandler:   licenseHandler,
		UserHandler:      userHandler,
		NotesHandler:     notesHandler,
		WorkspaceHandler: workspaceHandler,
		HealthHandler:    healthHandler,
		AuthMiddleware:   authMiddleware,
	}
	router := api.NewRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      middleware.RequestLogger(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
