// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// Telegram client, the mirror engine (source/target chats, admin and allowed
// users), message rendering, logging, the ops HTTP server, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TelegramConfig defines the chat-protocol client settings.
type TelegramConfig struct {
	BotToken      string // TELEGRAM_BOT_TOKEN
	Workers       int    // TELEGRAM_WORKERS: update-loop worker count
	UpdateTimeout int    // TELEGRAM_UPDATE_TIMEOUT: long-poll timeout, seconds
}

// MirrorConfig defines the static classification lists and render bounds
// consumed by the mirror engine. The id lists are snapshots: entities are
// classified against them once, at creation time.
type MirrorConfig struct {
	SourceChatIDs  []int64 // MIRROR_SOURCE_CHAT_IDS
	TargetChatIDs  []int64 // MIRROR_TARGET_CHAT_IDS
	AdminUserIDs   []int64 // MIRROR_ADMIN_USER_IDS
	AllowedUserIDs []int64 // MIRROR_ALLOWED_USER_IDS
	RenderImages   bool    // MIRROR_RENDER_IMAGES: system-wide render switch
	MaxImageWidth  int     // MIRROR_MAX_IMAGE_WIDTH, pixels
	MaxImageHeight int     // MIRROR_MAX_IMAGE_HEIGHT, pixels
}

// RenderConfig defines how rendered-image artifacts are produced.
type RenderConfig struct {
	ConverterPath string // RENDER_CONVERTER: HTML-to-image binary
	OutputDir     string // RENDER_OUTPUT_DIR: artifact directory
	Timeout       time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Logging
	LogLevel  string // debug|info|warn|error
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	// Ops HTTP server (health + metrics only)
	OpsAddr           string
	ReadHeaderTimeout time.Duration

	Telegram TelegramConfig
	Mirror   MirrorConfig
	Render   RenderConfig
	OTEL     OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		DBPath: getenv("DB_PATH", "telegram_mirror.db"),

		OpsAddr:           getenv("OPS_ADDR", ":8081"),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),

		Telegram: TelegramConfig{
			BotToken:      getenv("TELEGRAM_BOT_TOKEN", ""),
			Workers:       getint("TELEGRAM_WORKERS", 5),
			UpdateTimeout: getint("TELEGRAM_UPDATE_TIMEOUT", 60),
		},

		Mirror: MirrorConfig{
			RenderImages:   getbool("MIRROR_RENDER_IMAGES", true),
			MaxImageWidth:  getint("MIRROR_MAX_IMAGE_WIDTH", 800),
			MaxImageHeight: getint("MIRROR_MAX_IMAGE_HEIGHT", 1200),
		},

		Render: RenderConfig{
			ConverterPath: getenv("RENDER_CONVERTER", "wkhtmltoimage"),
			OutputDir:     getenv("RENDER_OUTPUT_DIR", "rendered"),
			Timeout:       getdur("RENDER_TIMEOUT", 30*time.Second),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "tg-mirror"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	var err error
	if cfg.Mirror.SourceChatIDs, err = getids("MIRROR_SOURCE_CHAT_IDS"); err != nil {
		return cfg, err
	}
	if cfg.Mirror.TargetChatIDs, err = getids("MIRROR_TARGET_CHAT_IDS"); err != nil {
		return cfg, err
	}
	if cfg.Mirror.AdminUserIDs, err = getids("MIRROR_ADMIN_USER_IDS"); err != nil {
		return cfg, err
	}
	if cfg.Mirror.AllowedUserIDs, err = getids("MIRROR_ALLOWED_USER_IDS"); err != nil {
		return cfg, err
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if cfg.Telegram.Workers < 1 {
		return cfg, errors.New("TELEGRAM_WORKERS must be >= 1")
	}
	if cfg.Telegram.UpdateTimeout < 0 {
		return cfg, errors.New("TELEGRAM_UPDATE_TIMEOUT must be >= 0")
	}
	if cfg.Mirror.MaxImageWidth <= 0 || cfg.Mirror.MaxImageHeight <= 0 {
		return cfg, errors.New("image dimension bounds must be > 0")
	}
	if strings.TrimSpace(cfg.Render.ConverterPath) == "" {
		return cfg, errors.New("RENDER_CONVERTER must not be empty")
	}
	if cfg.Render.Timeout <= 0 {
		return cfg, errors.New("RENDER_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return cfg, errors.New("READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getids parses a comma-separated list of numeric Telegram identifiers.
// Bracketed forms ("[-100123, -100456]") are tolerated because .env files
// often carry them over from other deployments.
func getids(k string) ([]int64, error) {
	v, ok := os.LookupEnv(k)
	if !ok {
		return nil, nil
	}
	ids, err := ParseIDList(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return ids, nil
}

// ParseIDList parses a comma-separated (optionally bracketed) list of int64
// values. Blank entries are skipped; a non-numeric entry is an error.
func ParseIDList(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t == "" {
			continue
		}
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", t)
		}
		out = append(out, id)
	}
	return out, nil
}
