package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend implements Backend using Google Cloud Firestore.
// One document per aggregate key inside a single collection. Like the
// Redis backend it is a remote-side store only; Firestore's eventual
// visibility across devices is what the merge engine reconciles.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
	mu         sync.RWMutex
	closed     bool
}

// FirestoreConfig holds Firestore connection configuration.
type FirestoreConfig struct {
	// ProjectID is the GCP project ID (required).
	ProjectID string
	// CredentialsFile is a service account credentials path (optional;
	// falls back to application default credentials).
	CredentialsFile string
	// Collection is the collection holding snapshots (default: "focusforge-state").
	Collection string
}

// firestoreDoc is the stored document shape. The payload stays a JSON
// string so the store remains an opaque byte-blob interface.
type firestoreDoc struct {
	Version   int       `firestore:"version"`
	UpdatedAt time.Time `firestore:"updatedAt"`
	Data      string    `firestore:"data"`
}

// NewFirestoreBackend creates a Firestore store backend.
func NewFirestoreBackend(ctx context.Context, cfg FirestoreConfig) (*FirestoreBackend, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project ID is required")
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "focusforge-state"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &FirestoreBackend{client: client, collection: collection}, nil
}

// Save writes the blob for a key, overwriting any previous value.
func (b *FirestoreBackend) Save(ctx context.Context, key string, blob Blob) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrStoreClosed
	}
	b.mu.RUnlock()

	doc := firestoreDoc{
		Version:   blob.Version,
		UpdatedAt: blob.UpdatedAt,
		Data:      string(blob.Data),
	}

	if _, err := b.client.Collection(b.collection).Doc(key).Set(ctx, doc); err != nil {
		return fmt.Errorf("save blob: %w", err)
	}
	return nil
}

// Load retrieves the blob for a key.
func (b *FirestoreBackend) Load(ctx context.Context, key string) (Blob, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return Blob{}, ErrStoreClosed
	}
	b.mu.RUnlock()

	snap, err := b.client.Collection(b.collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("get blob: %w", err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return Blob{}, ErrNotFound
	}

	return Blob{
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
		Data:      json.RawMessage(doc.Data),
	}, nil
}

// Keys lists all keys present in the store.
func (b *FirestoreBackend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	b.mu.RUnlock()

	var keys []string
	iter := b.client.Collection(b.collection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		keys = append(keys, snap.Ref.ID)
	}
	return keys, nil
}

// Close releases resources held by the backend.
func (b *FirestoreBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	return b.client.Close()
}
