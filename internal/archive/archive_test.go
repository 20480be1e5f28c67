package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cheaf/cheaf-api/internal/storage"
)

func setupTestArchiver(t *testing.T, opts ...Option) (*Archiver, *storage.LocalStorage) {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return New(store, opts...), store
}

func TestArchiver_Archive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		_, _ = w.Write([]byte("video bytes"))
	}))
	defer server.Close()

	arch, store := setupTestArchiver(t)
	ctx := context.Background()

	url, err := arch.Archive(ctx, "task-1", server.URL+"/video.mp4")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	if url != store.URL("videos/task-1.mp4") {
		t.Errorf("url = %v, want %v", url, store.URL("videos/task-1.mp4"))
	}

	reader, err := store.Open(ctx, "videos/task-1.mp4")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "video bytes" {
		t.Errorf("got %q, want %q", string(content), "video bytes")
	}
}

func TestArchiver_Archive_Idempotent(t *testing.T) {
	var downloads atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		_, _ = w.Write([]byte("video bytes"))
	}))
	defer server.Close()

	arch, _ := setupTestArchiver(t)
	ctx := context.Background()

	first, err := arch.Archive(ctx, "task-1", server.URL+"/video.mp4")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	second, err := arch.Archive(ctx, "task-1", server.URL+"/video.mp4")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	if first != second {
		t.Errorf("urls differ: %q vs %q", first, second)
	}
	if n := downloads.Load(); n != 1 {
		t.Errorf("downloads = %d, want 1", n)
	}
}

func TestArchiver_Archive_DownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer server.Close()

	arch, store := setupTestArchiver(t)
	ctx := context.Background()

	_, err := arch.Archive(ctx, "task-1", server.URL+"/video.mp4")
	if err == nil {
		t.Fatal("expected error for failed download")
	}
	if !strings.Contains(err.Error(), "status 403") {
		t.Errorf("error %q should mention status 403", err)
	}

	ok, err := store.Exists(ctx, "videos/task-1.mp4")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("nothing should be stored after a failed download")
	}
}

func TestArchiver_Archive_TooLarge(t *testing.T) {
	t.Run("content length over limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("0123456789abcdef"))
		}))
		defer server.Close()

		arch, _ := setupTestArchiver(t, WithMaxBytes(8))

		_, err := arch.Archive(context.Background(), "task-1", server.URL+"/video.mp4")
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("chunked body over limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Flush before writing the rest so no Content-Length is set.
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte("0123456789abcdef"))
		}))
		defer server.Close()

		arch, store := setupTestArchiver(t, WithMaxBytes(8))

		_, err := arch.Archive(context.Background(), "task-1", server.URL+"/video.mp4")
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}

		ok, err := store.Exists(context.Background(), "videos/task-1.mp4")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("nothing should be stored for an oversized video")
		}
	})

	t.Run("body exactly at limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("12345678"))
		}))
		defer server.Close()

		arch, _ := setupTestArchiver(t, WithMaxBytes(8))

		_, err := arch.Archive(context.Background(), "task-1", server.URL+"/video.mp4")
		if err != nil {
			t.Errorf("Archive() error = %v", err)
		}
	})
}

func TestArchiver_Archive_InvalidURL(t *testing.T) {
	arch, _ := setupTestArchiver(t)

	_, err := arch.Archive(context.Background(), "task-1", "://not-a-url")
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
