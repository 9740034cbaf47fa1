package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/quilldocs/quill-api/internal/config"
	"github.com/quilldocs/quill-api/internal/events"
	"github.com/quilldocs/quill-api/internal/extract"
	"github.com/quilldocs/quill-api/internal/generation"
	"github.com/quilldocs/quill-api/internal/model"
	"github.com/quilldocs/quill-api/internal/platform/gemini"
	"github.com/quilldocs/quill-api/internal/platform/mailer"
	"github.com/quilldocs/quill-api/internal/platform/postgres"
	"github.com/quilldocs/quill-api/internal/platform/s3"
	"github.com/quilldocs/quill-api/internal/platform/vertex"
	"github.com/quilldocs/quill-api/internal/service"
	"github.com/quilldocs/quill-api/internal/service/auth"
	"github.com/quilldocs/quill-api/internal/store"
	"github.com/quilldocs/quill-api/internal/task"
	"github.com/quilldocs/quill-api/internal/tools"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore     store.UserStore
	taskStore     store.TaskStore
	documentStore store.DocumentStore

	// Authentication
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier

	// Generation pipeline
	callPool  *generation.CallPool
	executor  *generation.Executor
	discovery *model.DiscoveryCache
	registry  *tools.Registry

	// Service interfaces
	taskService     service.TaskService
	documentService service.DocumentService

	// Event system
	eventEmitter events.Emitter

	// Task handling
	taskRunner *task.Runner
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password verifier
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.documentStore = postgres.NewPostgresDocumentStore(db, logger)

	// Initialize object storage for document bytes
	blobStore, err := s3.New(ctx, logger, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	// The Gemini backend is always constructed: it serves generation
	// when selected, and image model discovery for every backend.
	geminiBackend, err := gemini.New(ctx, logger.With("component", "gemini_backend"), gemini.Config{
		APIKey: cfg.LLM.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini backend: %w", err)
	}

	var backend generation.Backend = geminiBackend
	if cfg.LLM.Backend == "vertex" {
		backend, err = vertex.New(logger.With("component", "vertex_backend"), vertex.Config{
			Endpoint:    cfg.LLM.VertexEndpoint,
			AccessToken: cfg.LLM.VertexAccessToken,
			Project:     cfg.LLM.VertexProjectID,
			Location:    cfg.LLM.VertexLocation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vertex backend: %w", err)
		}
	}
	logger.Info("Generation backend initialized", "backend", backend.Name())

	// Initialize the routing and generation pipeline
	router, err := model.NewRouter(model.DefaultRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model router: %w", err)
	}

	app.callPool = generation.NewCallPool(cfg.LLM.CallPoolSize)

	app.executor, err = generation.NewExecutor(generation.ExecutorConfig{
		Router:                 router,
		Backend:                backend,
		Pool:                   app.callPool,
		Logger:                 logger.With("component", "generation_executor"),
		DefaultMaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation executor: %w", err)
	}

	app.discovery, err = model.NewDiscoveryCache(geminiBackend, cfg.LLM.DiscoveryTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model discovery: %w", err)
	}

	// Initialize the tool registry over the generation pipeline
	app.registry, err = tools.NewRegistry(app.executor, app.discovery)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tool registry: %w", err)
	}

	// Initialize the task processor and worker pool
	notifier := mailer.New(logger, cfg.Mail)
	processor, err := task.NewToolProcessor(
		app.taskStore,
		app.documentStore,
		app.userStore,
		blobStore,
		extract.New(),
		app.registry,
		notifier,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task processor: %w", err)
	}

	app.taskRunner, err = setupTaskRunner(app, processor)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	// Initialize event emitter and connect submissions to the pool
	emitter := events.NewInMemoryEmitter(logger)
	submittedHandler, err := task.NewSubmittedEventHandler(app.taskStore, app.taskRunner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission event handler: %w", err)
	}
	emitter.RegisterHandler(submittedHandler)
	app.eventEmitter = emitter

	// Initialize application services
	app.taskService = service.NewTaskService(
		db,
		app.taskStore,
		app.documentStore,
		app.registry,
		app.eventEmitter,
		logger,
	)
	app.documentService = service.NewDocumentService(app.documentStore, blobStore, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	// Set up router using the application dependencies
	router := app.setupRouter()

	// Start the HTTP server
	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// setupTaskRunner initializes and starts the background worker pool.
// Startup recovery inside Start requeues any work a previous process
// left behind before the first worker accepts new tasks.
func setupTaskRunner(app *application, processor task.Processor) (*task.Runner, error) {
	taskRunner, err := task.NewRunner(app.taskStore, processor, task.RunnerConfig{
		WorkerCount:        app.config.Task.WorkerCount,
		QueueSize:          app.config.Task.QueueSize,
		SoftTimeLimit:      app.config.Task.SoftTimeLimit,
		HardTimeLimit:      app.config.Task.HardTimeLimit,
		MaxTasksPerWorker:  app.config.Task.MaxTasksPerWorker,
		StuckAge:           app.config.Task.StuckAge,
		StuckCheckInterval: app.config.Task.StuckCheckInterval,
	}, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task runner: %w", err)
	}

	taskRunner.Start()
	return taskRunner, nil
}

// cleanup handles graceful shutdown of application resources. The
// runner stops first so no worker is mid-pipeline when the call pool
// and database connections go away.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.callPool != nil {
		app.callPool.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
