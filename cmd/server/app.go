package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pillbox-api/internal/config"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/notify"
	"github.com/phrazzld/pillbox-api/internal/platform/postgres"
	"github.com/phrazzld/pillbox-api/internal/platform/sqlite"
	"github.com/phrazzld/pillbox-api/internal/service"
	"github.com/phrazzld/pillbox-api/internal/service/auth"
	"github.com/phrazzld/pillbox-api/internal/store"
	"github.com/phrazzld/pillbox-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	pillStore store.PillStore
	jobStore  task.JobStore

	jwtService  auth.JWTService
	pillService service.PillService

	runner *task.Runner
}

// newApplication creates a new application instance with all dependencies initialized.
// The job runner is created but not started; Run starts it.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	switch cfg.Database.Driver {
	case driverPostgres:
		app.pillStore = postgres.NewPostgresPillStore(db, logger)
		app.jobStore = postgres.NewPostgresJobStore(db, logger)
	case driverSQLite:
		app.pillStore = sqlite.NewSQLitePillStore(db, logger)
		app.jobStore = sqlite.NewSQLiteJobStore(db, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	queue, err := task.NewQueue(app.jobStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create job queue: %w", err)
	}

	scheduler, err := task.NewReminderScheduler(queue, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder scheduler: %w", err)
	}

	dispatcher, err := notify.NewLogDispatcher(cfg.Notify.Methods, notify.Config{
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder dispatcher: %w", err)
	}

	reminderHandler, err := task.NewReminderHandler(app.pillStore, dispatcher, scheduler, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder handler: %w", err)
	}

	app.runner, err = task.NewRunner(app.jobStore, runnerConfig(cfg.Task), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create job runner: %w", err)
	}
	app.runner.Register(task.JobTypePillReminder, reminderHandler)

	// Pills may only use methods the dispatcher can deliver.
	methods := domain.NewMethodSet(dispatcher.Methods()...)
	app.pillService, err = service.NewPillService(app.pillStore, scheduler, methods, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pill service: %w", err)
	}

	logger.Info("application initialized successfully",
		slog.Any("notify_methods", dispatcher.Methods()))
	return app, nil
}

func runnerConfig(cfg config.TaskConfig) task.RunnerConfig {
	return task.RunnerConfig{
		WorkerCount:           cfg.WorkerCount,
		BatchSize:             cfg.BatchSize,
		PollInterval:          time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		StuckJobAge:           time.Duration(cfg.StuckJobAgeMinutes) * time.Minute,
		StuckJobCheckInterval: time.Duration(cfg.StuckJobCheckIntervalMinutes) * time.Minute,
		BackoffBase:           time.Duration(cfg.BackoffBaseSeconds) * time.Second,
		BackoffMax:            time.Duration(cfg.BackoffMaxSeconds) * time.Second,
	}
}

// Run starts the job runner and the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start job runner: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
