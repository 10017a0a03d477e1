package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/phrazzld/task-api/internal/redact"
)

// HTTP server timeouts.
const (
	defaultShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
)

// Run starts the HTTP server and blocks until it is shut down by a signal
// or fails to serve.
func (app *application) Run(ctx context.Context) error {
	server := app.newHTTPServer(app.setupRouter())

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// gfshutdown listens for SIGINT/SIGTERM and runs the operations
	// concurrently within the timeout.
	wait := gfshutdown.GracefulShutdown(ctx, app.shutdownTimeout(), app.shutdownOperations(server))

	select {
	case err, ok := <-serveErr:
		if !ok {
			// ListenAndServe returns as soon as Shutdown starts draining.
			return app.exitResult(<-wait)
		}
		app.logger.Error("server failed", "error", redact.Error(err))
		app.cleanup()
		return fmt.Errorf("server error: %w", err)

	case exitCode := <-wait:
		return app.exitResult(exitCode)
	}
}

func (app *application) exitResult(exitCode int) error {
	app.logger.Info("server shutdown completed", "exit_code", exitCode)
	if exitCode != 0 {
		return fmt.Errorf("graceful shutdown finished with exit code %d", exitCode)
	}
	return nil
}

// newHTTPServer configures the HTTP server for the configured port.
func (app *application) newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// shutdownOperations drains in-flight requests and then releases the
// storage backend.
func (app *application) shutdownOperations(server *http.Server) map[string]gfshutdown.Operation {
	return map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			app.logger.Info("shutting down server")
			err := server.Shutdown(ctx)
			app.cleanup()
			return err
		},
	}
}

func (app *application) shutdownTimeout() time.Duration {
	if app.config.Server.ShutdownTimeoutSeconds <= 0 {
		return defaultShutdownTimeout
	}
	return time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
}
