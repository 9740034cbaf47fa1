// Package main implements the entry point for the Quill API server,
// which stores users' documents and runs asynchronous AI tools over
// them through a worker pool.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/quilldocs/quill-api/internal/config"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/quilldocs/quill-api/internal/platform/postgres"
)

// main wires the application together: configuration, logging,
// database, migrations, services, and finally the HTTP server. Any
// failure during startup is fatal; once Run returns the process has
// already completed its graceful shutdown.
func main() {
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx := context.Background()

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		appLogger.Error("Failed to run migrations", "error", err)
		log.Fatalf("Failed to run migrations: %v", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("Error closing database connection", "error", closeErr)
		}
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up structured logging.
// Returns the loaded config and the configured logger, or any
// initialization error.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	// Log configuration details using structured logging
	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_backend", cfg.LLM.Backend)

	// Log additional configuration details at debug level if available
	if cfg.Database.URL != "" {
		slog.Debug("Database configuration", "url_present", true)
	}
	if cfg.Auth.JWTSecret != "" {
		slog.Debug("Auth configuration", "jwt_secret_present", true)
	}
	if cfg.Mail.Enabled {
		slog.Debug("Mail configuration", "host", cfg.Mail.Host, "port", cfg.Mail.Port)
	}

	return cfg, appLogger, nil
}
