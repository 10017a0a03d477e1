package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/phrazzld/task-api/internal/config"
	"github.com/phrazzld/task-api/internal/events"
	"github.com/phrazzld/task-api/internal/platform/logger"
	"github.com/phrazzld/task-api/internal/platform/memory"
	"github.com/phrazzld/task-api/internal/platform/postgres"
	"github.com/phrazzld/task-api/internal/platform/sqlite"
	"github.com/phrazzld/task-api/internal/redact"
	"github.com/phrazzld/task-api/internal/service"
	"github.com/phrazzld/task-api/internal/store"
	"github.com/spf13/cobra"
)

// dbConnectTimeout bounds the initial PostgreSQL ping.
const dbConnectTimeout = 10 * time.Second

// taskBackend is a repository that can also report its health.
type taskBackend interface {
	store.TaskStore
	store.Pinger
}

// application holds the shared application dependencies and the resources
// that must be released on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	taskStore    taskBackend
	eventEmitter events.EventEmitter
	taskService  service.TaskService

	// closers run in order during cleanup.
	closers []func() error
}

// initializeApp loads configuration and sets up the logger.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_backend", cfg.Storage.Backend)
	if cfg.Database.URL != "" {
		log.Debug("database configuration", "url", redact.DatabaseURL(cfg.Database.URL))
	}

	return cfg, log, nil
}

// newApplication opens the configured storage backend and builds the service
// layer on top of it.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: log,
	}

	if err := app.openStore(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(events.NewLoggingHandler(log))
	app.eventEmitter = emitter

	taskService, err := service.NewTaskService(app.taskStore, app.eventEmitter, log)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.taskService = taskService

	log.Info("application initialized", "storage_backend", cfg.Storage.Backend)
	return app, nil
}

// openStore selects the task repository according to the storage backend.
func (app *application) openStore(ctx context.Context) error {
	switch app.config.Storage.Backend {
	case config.BackendMemory:
		app.taskStore = memory.NewTaskStore(app.logger)
		return nil

	case config.BackendSQLite:
		s, err := sqlite.Open(app.config.SQLite.Path, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		app.taskStore = s
		app.closers = append(app.closers, s.Close)
		return nil

	case config.BackendPostgres:
		db, err := openPostgres(ctx, app.config.Database.URL, app.logger)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, db.Close)

		if err := postgres.Migrate(ctx, db, postgres.MigrateUp, app.logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.taskStore = postgres.NewPostgresTaskStore(db, app.logger)
		return nil

	default:
		return fmt.Errorf("unsupported storage backend %q", app.config.Storage.Backend)
	}
}

// openPostgres opens a pgx-backed connection pool and verifies it is reachable.
func openPostgres(ctx context.Context, databaseURL string, log *slog.Logger) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("database url is not configured")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Error("failed to close database after ping failure", "error", redact.Error(cerr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established", "url", redact.DatabaseURL(databaseURL))
	return db, nil
}

// cleanup releases application resources. It is safe to call more than once.
func (app *application) cleanup() {
	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			app.logger.Error("error closing resource", "error", redact.Error(err))
		}
	}
	app.closers = nil

	app.logger.Info("application shutdown completed")
}

// runServe is the serve command: it wires the application and blocks until
// the server stops.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := initializeApp()
	if err != nil {
		return err
	}

	app, err := newApplication(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", redact.Error(err))
		return err
	}

	return app.Run(cmd.Context())
}

// runMigrate is the migrate command. It always targets PostgreSQL, whatever
// storage backend the server is configured with.
func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := initializeApp()
	if err != nil {
		return err
	}

	log = log.With("correlation_id", uuid.NewString())
	ctx := cmd.Context()

	db, err := openPostgres(ctx, cfg.Database.URL, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("failed to close database connection", "error", redact.Error(cerr))
		}
	}()

	if err := postgres.Migrate(ctx, db, args[0], log); err != nil {
		log.Error("migration failed", "command", args[0], "error", redact.Error(err))
		return err
	}

	log.Info("migration finished", "command", args[0])
	return nil
}
