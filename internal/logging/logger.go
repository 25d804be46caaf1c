package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"

	"github.com/i474232898/air-quality-monitor/internal/config"
)

// New builds the process logger: coloured text on stderr in dev, JSON in prod,
// plus a JSON copy in cfg.LogFile when set. The returned closer releases the file.
func New(cfg *config.AppConfig, version, appName string) (*slog.Logger, io.Closer, error) {
	handlers := []slog.Handler{consoleHandler(os.Stderr, cfg)}

	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel}))
		closer = f
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = slogmulti.Fanout(handlers...)
	}

	logger := slog.New(h).With("app", appName)
	if version != "dev" {
		logger = logger.With("version", version, "env", cfg.AppEnv)
	}
	return logger, closer, nil
}

func consoleHandler(w io.Writer, cfg *config.AppConfig) slog.Handler {
	if cfg.AppEnv == "dev" {
		return tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  cfg.LogLevel <= slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
