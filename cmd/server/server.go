package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/phrazzld/pillbox-api/internal/config"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
)

// startHTTPServer starts the HTTP server with graceful shutdown support.
// It returns once the server has stopped and the application has been cleaned up.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	app.watchConfig()

	go func() {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", slog.String("error", err.Error()))
			cancelServer()
		}
	}()

	app.notifySystemd(daemon.SdNotifyReady)

	select {
	case <-shutdownCh:
		app.logger.Info("shutting down server...")
	case <-serverCtx.Done():
		app.logger.Info("server context canceled, shutting down...")
	}

	app.notifySystemd(daemon.SdNotifyStopping)

	timeout := time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	app.cleanup()

	if shutdownErr != nil {
		app.logger.Error("server shutdown failed", slog.String("error", shutdownErr.Error()))
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}

	app.logger.Info("server shutdown completed")
	return nil
}

// notifySystemd reports state to systemd when running under a notify unit.
// Outside systemd this is a no-op.
func (app *application) notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		app.logger.Warn("failed to notify systemd",
			slog.String("state", state),
			slog.String("error", err.Error()))
		return
	}
	if sent {
		app.logger.Debug("notified systemd", slog.String("state", state))
	}
}

// watchConfig applies log level changes from the config file without a restart.
func (app *application) watchConfig() {
	err := config.Watch(func(cfg *config.Config) {
		app.applyConfigChange(cfg)
	})
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		app.logger.Warn("config file watching disabled", slog.String("error", err.Error()))
	}
}

// applyConfigChange applies the settings that can change at runtime.
// Everything else requires a restart.
func (app *application) applyConfigChange(cfg *config.Config) {
	if cfg.Server.LogLevel == app.config.Server.LogLevel {
		return
	}
	if err := logger.SetLevel(cfg.Server.LogLevel); err != nil {
		app.logger.Warn("ignoring invalid log level", slog.String("error", err.Error()))
		return
	}
	app.logger.Info("log level changed",
		slog.String("from", app.config.Server.LogLevel),
		slog.String("to", cfg.Server.LogLevel))
	app.config.Server.LogLevel = cfg.Server.LogLevel
}
