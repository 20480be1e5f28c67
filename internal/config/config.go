// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/cheaf/cheaf-api/internal/sign"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside the valid range.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidPollInterval is returned when POLL_INTERVAL is not positive.
	ErrInvalidPollInterval = errors.New("config: POLL_INTERVAL must be positive")
	// ErrS3ConfigIncomplete is returned when only half of the S3 settings are present.
	ErrS3ConfigIncomplete = errors.New("config: S3_BUCKET and S3_REGION must be set together")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Provider settings. The credentials are the server-side defaults;
	// requests may carry their own and take precedence.
	VolcAccessKey   string `env:"VOLC_ACCESS_KEY" json:"-"` // Masked in JSON
	VolcSecretKey   string `env:"VOLC_SECRET_KEY" json:"-"` // Masked in JSON
	ProviderBaseURL string `env:"PROVIDER_BASE_URL" json:"provider_base_url,omitempty"`

	// Polling settings
	PollInterval time.Duration `env:"POLL_INTERVAL, default=3s" json:"poll_interval"`
	MaxPolls     int           `env:"MAX_POLLS, default=0" json:"max_polls"`

	// Script generation settings
	GeminiAPIKey string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	GeminiModel  string `env:"GEMINI_MODEL, default=gemini-2.5-flash" json:"gemini_model"`

	// Archive settings
	ArchiveEnabled bool   `env:"ARCHIVE_ENABLED, default=false" json:"archive_enabled"`
	ArchiveDir     string `env:"ARCHIVE_DIR, default=/tmp/cheaf" json:"archive_dir"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Credentials returns the server-side provider credentials. They may be
// absent; requests carrying their own keys still work.
func (c *Config) Credentials() sign.Credentials {
	return sign.Credentials{
		AccessKey: c.VolcAccessKey,
		SecretKey: c.VolcSecretKey,
	}
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
// Provider credentials are deliberately not required here: requests may
// supply their own.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if (c.S3Bucket == "") != (c.S3Region == "") {
		return ErrS3ConfigIncomplete
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ProviderBaseURL: %s, PollInterval: %s, MaxPolls: %d, GeminiModel: %s, ArchiveEnabled: %t, ArchiveDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ProviderBaseURL,
		c.PollInterval,
		c.MaxPolls,
		c.GeminiModel,
		c.ArchiveEnabled,
		c.ArchiveDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
