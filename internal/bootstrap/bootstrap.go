// Package bootstrap provides dependency initialization for the Cheaf API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/cheaf/cheaf-api/internal/archive"
	"github.com/cheaf/cheaf-api/internal/config"
	"github.com/cheaf/cheaf-api/internal/storage"
	"github.com/cheaf/cheaf-api/internal/volc"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Provider volc.Client
	Archiver *archive.Archiver // nil when archiving is disabled
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	var providerOpts []volc.ClientOption
	if cfg.ProviderBaseURL != "" {
		providerOpts = append(providerOpts, volc.WithBaseURL(cfg.ProviderBaseURL))
		logger.Info("provider base URL overridden",
			slog.String("base_url", cfg.ProviderBaseURL),
		)
	}

	deps := &Dependencies{
		Provider: volc.NewClient(providerOpts...),
	}

	if cfg.ArchiveEnabled {
		store, err := initStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Archiver = archive.New(store)
	}

	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 archive storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local archive storage configured",
		slog.String("dir", localStore.Dir()),
	)
	return localStore, nil
}
