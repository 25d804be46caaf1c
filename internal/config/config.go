package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
	"github.com/i474232898/air-quality-monitor/internal/aqi/providers"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level
	// LogFile, when set, receives a JSON copy of every log entry.
	LogFile string

	// Token is the WAQI API token (AQICN_TOKEN).
	Token   string `validate:"required"`
	BaseURL string `validate:"required,url"`
	Station string `validate:"required"`

	HTTPTimeout time.Duration `validate:"gt=0"`

	// DBPath is the SQLite file, or ":memory:" for a throwaway in-memory store.
	DBPath string `validate:"required"`
	// StoreMaxHistory caps the in-memory store (0 = unlimited).
	StoreMaxHistory int `validate:"gte=0"`

	// PollInterval of 0 runs a single poll and exits.
	PollInterval time.Duration `validate:"gte=0"`
	Port         string        `validate:"required,numeric"`

	NotifyConsole bool
}

// Daemon reports whether the process should keep polling on a schedule.
func (c *AppConfig) Daemon() bool {
	return c.PollInterval > 0
}

// Load reads configuration from the environment (and a .env file when present)
// with sensible defaults. Every returned error wraps aqi.ErrConfiguration.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: load .env: %v", aqi.ErrConfiguration, err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aqi.ErrConfiguration, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", aqi.ErrConfiguration, describe(err))
	}
	return cfg, nil
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))

	cfg.Token = strings.TrimSpace(os.Getenv("AQICN_TOKEN"))
	cfg.BaseURL = getenvDefault("AQI_BASE_URL", providers.DefaultWAQIBaseURL)
	cfg.Station = getenvDefault("AQI_STATION", providers.DefaultWAQIStation)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.DBPath = getenvDefault("DB_PATH", "aqi_history.db")
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 0); err != nil {
		return nil, err
	}

	// Poll interval: default 0, a single cycle per invocation.
	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", "0s"); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.NotifyConsole, err = getenvBool("NOTIFY_CONSOLE", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

// describe turns validator errors into messages naming the environment variable.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("%s is required", name))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("invalid %s %q (%s)", name, fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

var envNames = map[string]string{
	"AppEnv":          "APP_ENV",
	"Token":           "AQICN_TOKEN",
	"BaseURL":         "AQI_BASE_URL",
	"Station":         "AQI_STATION",
	"HTTPTimeout":     "HTTP_TIMEOUT",
	"DBPath":          "DB_PATH",
	"StoreMaxHistory": "STORE_MAX_HISTORY",
	"PollInterval":    "POLL_INTERVAL",
	"Port":            "PORT",
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
