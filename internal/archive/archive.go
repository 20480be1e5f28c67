// Package archive downloads finished videos from the provider's CDN and
// copies them into durable storage. Provider URLs expire after a day, so
// completed tasks are archived as soon as they are observed.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cheaf/cheaf-api/internal/storage"
)

const (
	defaultDownloadTimeout = 5 * time.Minute

	// DefaultMaxBytes caps how much video data a single archive
	// operation will download.
	DefaultMaxBytes int64 = 256 << 20
)

// ErrTooLarge is returned when a video exceeds the configured size limit.
var ErrTooLarge = errors.New("archive: video exceeds size limit")

// Archiver copies provider-hosted videos into a Storage backend.
type Archiver struct {
	store      storage.Storage
	httpClient *http.Client
	maxBytes   int64
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithHTTPClient sets a custom HTTP client for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Archiver) {
		a.httpClient = client
	}
}

// WithMaxBytes sets the download size limit.
func WithMaxBytes(n int64) Option {
	return func(a *Archiver) {
		a.maxBytes = n
	}
}

// New creates an Archiver backed by store.
func New(store storage.Storage, opts ...Option) *Archiver {
	a := &Archiver{
		store: store,
		httpClient: &http.Client{
			Timeout: defaultDownloadTimeout,
		},
		maxBytes: DefaultMaxBytes,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Archive downloads the video for taskID from videoURL and saves it to
// storage, returning the stored URL. Archiving an already stored task is
// a no-op that returns the existing URL.
func (a *Archiver) Archive(ctx context.Context, taskID, videoURL string) (string, error) {
	key := videoKey(taskID)

	stored, err := a.store.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("archive: check %s: %w", key, err)
	}
	if stored {
		return a.store.URL(key), nil
	}

	data, err := a.download(ctx, videoURL)
	if err != nil {
		return "", err
	}

	url, err := a.store.Save(ctx, key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("archive: save %s: %w", key, err)
	}

	return url, nil
}

// download fetches videoURL into memory, enforcing the size limit.
func (a *Archiver) download(ctx context.Context, videoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive: download video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive: download returned status %d", resp.StatusCode)
	}

	if resp.ContentLength > a.maxBytes {
		return nil, ErrTooLarge
	}

	// Read one byte past the limit to detect oversized chunked bodies.
	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("archive: read video: %w", err)
	}
	if int64(len(data)) > a.maxBytes {
		return nil, ErrTooLarge
	}

	return data, nil
}

// videoKey returns the storage key for a task's video.
func videoKey(taskID string) string {
	return "videos/" + taskID + ".mp4"
}
