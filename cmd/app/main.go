package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"orders/cmd"

	"github.com/labstack/gommon/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config, err := cmd.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(config.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, config, logger)
	stop()
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// run serves until ctx is cancelled or the HTTP server fails. Everything it
// starts is stopped again before it returns, including on error.
func run(ctx context.Context, config cmd.Config, logger *slog.Logger) error {
	app, err := cmd.NewCompositionRoot(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("Closing resources failed", "error", closeErr)
		}
	}()

	jobManager, err := app.CreateJobManager()
	if err != nil {
		return fmt.Errorf("create jobs: %w", err)
	}
	if err = jobManager.StartAll(); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}
	defer jobManager.StopAll()

	router, err := app.CreateRouter()
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", config.HTTPPort, "store", config.Store)
		serverErr <- router.Start(fmt.Sprintf("0.0.0.0:%s", config.HTTPPort))
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = router.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	return runErr
}

func logLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
