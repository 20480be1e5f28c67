package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv() {
	os.Unsetenv("PORT")
	os.Unsetenv("ALLOWED_ORIGINS")
	os.Unsetenv("VOLC_ACCESS_KEY")
	os.Unsetenv("VOLC_SECRET_KEY")
	os.Unsetenv("PROVIDER_BASE_URL")
	os.Unsetenv("POLL_INTERVAL")
	os.Unsetenv("MAX_POLLS")
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("GEMINI_MODEL")
	os.Unsetenv("ARCHIVE_ENABLED")
	os.Unsetenv("ARCHIVE_DIR")
	os.Unsetenv("S3_BUCKET")
	os.Unsetenv("S3_REGION")
	os.Unsetenv("AWS_ACCESS_KEY_ID")
	os.Unsetenv("AWS_SECRET_ACCESS_KEY")
	os.Unsetenv("LOG_FORMAT")
	os.Unsetenv("LOG_LEVEL")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.VolcAccessKey)
	assert.Empty(t, cfg.VolcSecretKey)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 0, cfg.MaxPolls)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.False(t, cfg.ArchiveEnabled)
	assert.Equal(t, "/tmp/cheaf", cfg.ArchiveDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("ALLOWED_ORIGINS", "https://cheaf.app,https://staging.cheaf.app")
	t.Setenv("VOLC_ACCESS_KEY", "server-access-key")
	t.Setenv("VOLC_SECRET_KEY", "server-secret-key")
	t.Setenv("PROVIDER_BASE_URL", "https://visual.example.com")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("MAX_POLLS", "40")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("ARCHIVE_DIR", "/custom/archive")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"https://cheaf.app", "https://staging.cheaf.app"}, cfg.AllowedOrigins)
	assert.Equal(t, "server-access-key", cfg.VolcAccessKey)
	assert.Equal(t, "server-secret-key", cfg.VolcSecretKey)
	assert.Equal(t, "https://visual.example.com", cfg.ProviderBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 40, cfg.MaxPolls)
	assert.Equal(t, "gemini-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.True(t, cfg.ArchiveEnabled)
	assert.Equal(t, "/custom/archive", cfg.ArchiveDir)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("POLL_INTERVAL", "soon")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_Credentials(t *testing.T) {
	t.Run("both keys present", func(t *testing.T) {
		cfg := &Config{
			VolcAccessKey: "ak",
			VolcSecretKey: "sk",
		}

		creds := cfg.Credentials()
		assert.Equal(t, "ak", creds.AccessKey)
		assert.Equal(t, "sk", creds.SecretKey)
		assert.True(t, creds.Present())
	})

	t.Run("partial keys are not present", func(t *testing.T) {
		cfg := &Config{VolcAccessKey: "ak"}
		assert.False(t, cfg.Credentials().Present())
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:         8080,
			PollInterval: 3 * time.Second,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("port too low", func(t *testing.T) {
		cfg := valid()
		cfg.Port = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)
	})

	t.Run("port too high", func(t *testing.T) {
		cfg := valid()
		cfg.Port = 70000
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)
	})

	t.Run("non-positive poll interval", func(t *testing.T) {
		cfg := valid()
		cfg.PollInterval = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPollInterval)
	})

	t.Run("bucket without region", func(t *testing.T) {
		cfg := valid()
		cfg.S3Bucket = "bucket"
		assert.ErrorIs(t, cfg.Validate(), ErrS3ConfigIncomplete)
	})

	t.Run("region without bucket", func(t *testing.T) {
		cfg := valid()
		cfg.S3Region = "us-east-1"
		assert.ErrorIs(t, cfg.Validate(), ErrS3ConfigIncomplete)
	})

	t.Run("bucket and region together", func(t *testing.T) {
		cfg := valid()
		cfg.S3Bucket = "bucket"
		cfg.S3Region = "us-east-1"
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:          8080,
		VolcAccessKey: "volc-access",
		VolcSecretKey: "volc-secret",
		GeminiAPIKey:  "gemini-secret",
		GeminiModel:   "gemini-2.5-flash",
		PollInterval:  3 * time.Second,
		ArchiveDir:    "/tmp/cheaf",
		S3Bucket:      "bucket",
		S3Region:      "region",
		LogFormat:     "json",
		LogLevel:      "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "gemini-2.5-flash")
	assert.Contains(t, str, "/tmp/cheaf")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "volc-access")
	assert.NotContains(t, str, "volc-secret")
	assert.NotContains(t, str, "gemini-secret")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	// Capture output to verify it's JSON
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	testLogger := slog.New(handler)
	testLogger.Info("test message")

	// Should have JSON structure
	assert.Contains(t, buf.String(), `"msg"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	// Just verify it returns a valid logger
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
