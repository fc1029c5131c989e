package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupFileBackend(t *testing.T) *FileBackend {
	t.Helper()

	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	t.Cleanup(func() {
		_ = backend.Close()
	})

	return backend
}

func TestFileBackend_SaveAndLoad(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	blob, err := Encode(map[string]int{"balance": 42}, time.Now())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if err := backend.Save(ctx, "wallet", blob); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := backend.Load(ctx, "wallet")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Version != BlobVersion {
		t.Errorf("Version mismatch: got %d, want %d", loaded.Version, BlobVersion)
	}

	var payload map[string]int
	if !Decode(loaded, &payload) {
		t.Fatal("Decode reported failure for a valid blob")
	}
	if payload["balance"] != 42 {
		t.Errorf("payload mismatch: got %d, want 42", payload["balance"])
	}
}

func TestFileBackend_Load_NotFound(t *testing.T) {
	backend := setupFileBackend(t)

	_, err := backend.Load(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileBackend_Load_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	defer backend.Close()

	if err := os.WriteFile(filepath.Join(dir, "wallet.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	// Corrupt blobs are treated as absent, never an error.
	_, err = backend.Load(context.Background(), "wallet")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for corrupt blob, got %v", err)
	}
}

func TestFileBackend_RejectsUnsafeKeys(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		if err := backend.Save(ctx, key, Blob{Version: 1}); err == nil {
			t.Errorf("Save accepted unsafe key %q", key)
		}
	}
}

func TestFileBackend_Keys(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	for _, key := range []string{"wallet", "progression", "topics"} {
		if err := backend.Save(ctx, key, Blob{Version: 1, Data: json.RawMessage("{}")}); err != nil {
			t.Fatalf("Save %q failed: %v", key, err)
		}
	}

	keys, err := backend.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 keys, got %d: %v", len(keys), keys)
	}
}

func TestFileBackend_Closed(t *testing.T) {
	backend := setupFileBackend(t)
	_ = backend.Close()

	if err := backend.Save(context.Background(), "wallet", Blob{}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}

func TestDecode_VersionGate(t *testing.T) {
	blob := Blob{Version: BlobVersion + 1, Data: json.RawMessage(`{"x":1}`)}

	var v map[string]int
	if Decode(blob, &v) {
		t.Error("Decode accepted a blob from a newer schema version")
	}
}
