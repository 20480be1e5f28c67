package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "archive")

		store, err := NewLocalStorage(dir)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if store.Dir() != dir {
			t.Errorf("Dir() = %v, want %v", store.Dir(), dir)
		}

		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		store, err := NewLocalStorage("")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "cheaf")
		if store.Dir() != expected {
			t.Errorf("Dir() = %v, want %v", store.Dir(), expected)
		}
	})
}

func TestLocalStorage_Save(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	t.Run("saves data under nested key", func(t *testing.T) {
		url, err := store.Save(ctx, "videos/task-1.mp4", bytes.NewReader([]byte("video bytes")))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		path := filepath.Join(store.Dir(), "videos", "task-1.mp4")
		if url != "file://"+path {
			t.Errorf("url = %v, want %v", url, "file://"+path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(content) != "video bytes" {
			t.Errorf("got %q, want %q", string(content), "video bytes")
		}
	})

	t.Run("overwrites existing key", func(t *testing.T) {
		if _, err := store.Save(ctx, "videos/task-2.mp4", strings.NewReader("old")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := store.Save(ctx, "videos/task-2.mp4", strings.NewReader("new")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		content, err := os.ReadFile(filepath.Join(store.Dir(), "videos", "task-2.mp4"))
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(content) != "new" {
			t.Errorf("got %q, want %q", string(content), "new")
		}
	})

	t.Run("confines traversal keys to the root", func(t *testing.T) {
		_, err := store.Save(ctx, "../../escape.mp4", strings.NewReader("data"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(store.Dir(), "escape.mp4")); err != nil {
			t.Errorf("expected file inside root directory: %v", err)
		}
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := store.Save(ctx, "", strings.NewReader("data"))
		if !errors.Is(err, ErrEmptyKey) {
			t.Errorf("expected ErrEmptyKey, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.Save(cancelled, "videos/task-3.mp4", strings.NewReader("data"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Open(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	t.Run("opens saved key", func(t *testing.T) {
		if _, err := store.Save(ctx, "videos/open.mp4", strings.NewReader("open data")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		reader, err := store.Open(ctx, "videos/open.mp4")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = reader.Close() }()

		content, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to read: %v", err)
		}
		if string(content) != "open data" {
			t.Errorf("got %q, want %q", string(content), "open data")
		}
	})

	t.Run("returns error for missing key", func(t *testing.T) {
		_, err := store.Open(ctx, "videos/missing.mp4")
		if err == nil {
			t.Error("expected error for missing key")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.Open(cancelled, "videos/open.mp4")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Exists(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	t.Run("false for missing key", func(t *testing.T) {
		ok, err := store.Exists(ctx, "videos/nothing.mp4")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("expected false for missing key")
		}
	})

	t.Run("true for saved key", func(t *testing.T) {
		if _, err := store.Save(ctx, "videos/present.mp4", strings.NewReader("data")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		ok, err := store.Exists(ctx, "videos/present.mp4")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !ok {
			t.Error("expected true for saved key")
		}
	})
}

func TestLocalStorage_Remove(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes saved key", func(t *testing.T) {
		if _, err := store.Save(ctx, "videos/gone.mp4", strings.NewReader("data")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		if err := store.Remove(ctx, "videos/gone.mp4"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		ok, err := store.Exists(ctx, "videos/gone.mp4")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("expected key to be gone")
		}
	})

	t.Run("ignores missing key", func(t *testing.T) {
		if err := store.Remove(ctx, "videos/never-there.mp4"); err != nil {
			t.Errorf("Remove() should ignore missing keys, got %v", err)
		}
	})
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()

	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return store
}
