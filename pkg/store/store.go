// Package store provides dual-store persistence for engine aggregates.
// Every aggregate is serialized into a versioned blob and written to a
// reliable local store and, best-effort, to an eventually-synced remote
// store. Loading returns both snapshots so the caller can reconcile them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Common errors for storage operations.
var (
	// ErrNotFound is returned when a key has no snapshot in a store.
	ErrNotFound = errors.New("snapshot not found")
	// ErrStoreClosed is returned when operating on a closed backend.
	ErrStoreClosed = errors.New("store backend is closed")
)

// BlobVersion is the current envelope schema version. Blobs with a higher
// version than this are treated as absent rather than decoded.
const BlobVersion = 1

// Blob is the versioned envelope persisted for every aggregate snapshot.
type Blob struct {
	// Version is the envelope schema version.
	Version int `json:"version"`
	// UpdatedAt is when the snapshot was written (UTC).
	UpdatedAt time.Time `json:"updatedAt"`
	// Data is the aggregate payload.
	Data json.RawMessage `json:"data"`
}

// Backend abstracts a single key-value snapshot store.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save writes the blob for a key, overwriting any previous value.
	Save(ctx context.Context, key string, blob Blob) error

	// Load retrieves the blob for a key.
	// Returns ErrNotFound if the key has never been written.
	Load(ctx context.Context, key string) (Blob, error)

	// Keys lists all keys present in the store.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Encode wraps an aggregate value into a versioned blob stamped at now.
func Encode(v any, now time.Time) (Blob, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Blob{}, err
	}
	return Blob{Version: BlobVersion, UpdatedAt: now.UTC(), Data: data}, nil
}

// Decode unmarshals a blob payload into v. A corrupt or newer-versioned
// blob reports ok=false so the caller can fall back to the other store or
// to defaults; it is never an error (see the engine's decode-or-default
// policy).
func Decode(blob Blob, v any) bool {
	if blob.Version == 0 || blob.Version > BlobVersion {
		return false
	}
	if len(blob.Data) == 0 {
		return false
	}
	return json.Unmarshal(blob.Data, v) == nil
}
