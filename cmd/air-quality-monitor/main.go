package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/air-quality-monitor/internal/api/http"
	"github.com/i474232898/air-quality-monitor/internal/aqi"
	"github.com/i474232898/air-quality-monitor/internal/aqi/providers"
	"github.com/i474232898/air-quality-monitor/internal/config"
	"github.com/i474232898/air-quality-monitor/internal/logging"
	"github.com/i474232898/air-quality-monitor/internal/notify"
	"github.com/i474232898/air-quality-monitor/internal/scheduler"
	"github.com/i474232898/air-quality-monitor/internal/store"
)

const appName = "air-quality-monitor"

// Overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// historyStore is what main needs from a store: the poll contract plus release.
type historyStore interface {
	aqi.Store
	io.Closer
}

func main() {
	// Load configuration. A missing token fails here, before any network call.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg, version, appName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	err = run(cfg, logger)
	_ = logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"version", version,
		"station", cfg.Station,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
	)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store failed", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close", "error", err)
		}
	}()

	// Shared HTTP client for the outbound API call.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewWAQIProvider(httpClient, cfg.Token, cfg.BaseURL, cfg.Station)

	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.NotifyConsole {
		notifiers = append(notifiers, notify.NewConsole(os.Stdout))
	}

	service := aqi.NewService(provider, st, notifiers, logger)

	if !cfg.Daemon() {
		return pollOnce(ctx, cfg, service, os.Stdout, os.Stderr)
	}
	return serve(ctx, cfg, service, logger)
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (historyStore, error) {
	if cfg.DBPath == ":memory:" {
		return memoryStore{store.NewMemoryStore(cfg.StoreMaxHistory)}, nil
	}
	return store.OpenSQLite(ctx, cfg.DBPath, logger)
}

type memoryStore struct {
	*store.MemoryStore
}

func (memoryStore) Close() error { return nil }

// pollOnce runs a single cycle and prints the status block to stdout.
// A failed cycle is reported on stderr with its error class.
func pollOnce(ctx context.Context, cfg *config.AppConfig, service *aqi.Service, stdout, stderr io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout+5*time.Second)
	defer cancel()

	res, err := service.Poll(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error (%s): %v\n", aqi.Kind(err), err)
		return err
	}
	printStatus(stdout, res)
	return nil
}

func printStatus(w io.Writer, res aqi.PollResult) {
	r := res.Reading
	fmt.Fprintf(w, "\nStation:            %s\n", r.Station)
	fmt.Fprintf(w, "AQI:                %d\n", r.AQI)
	fmt.Fprintf(w, "Level:              %s\n", res.Level.Label)
	fmt.Fprintf(w, "Dominant pollutant: %s\n", r.DominantPollutant)
	fmt.Fprintf(w, "Updated:            %s\n", r.ObservedAt.Format(time.RFC3339))
	if res.Changed {
		fmt.Fprintf(w, "Level changed:      %s -> %s\n", res.Previous, res.Level.Label)
	}
}

// serve polls on a schedule and exposes the stored history until a signal arrives.
func serve(ctx context.Context, cfg *config.AppConfig, service *aqi.Service, logger *slog.Logger) error {
	sched := scheduler.New(service, cfg.PollInterval, cfg.HTTPTimeout+5*time.Second, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, service)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("fiber server stopped", "error", err)
			return err
		}
		return nil
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
		return err
	}
	return nil
}
