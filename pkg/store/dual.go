package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// defaultRemoteTimeout bounds every remote operation so a hung remote
// degrades to "absent" instead of stalling the caller.
const defaultRemoteTimeout = 3 * time.Second

// LoadResult carries both snapshots of one key. Either side may be absent.
type LoadResult struct {
	Local     Blob
	HasLocal  bool
	Remote    Blob
	HasRemote bool
}

// DualStore writes every snapshot to a reliable local backend and,
// best-effort, to an eventually-synced remote backend.
//
// Local failures surface to the caller so the mutation can be rolled
// back. Remote writes are fire-and-forget: Save parks the blob in a
// pending set and returns; a background drain pushes parked keys to the
// remote off the caller's goroutine. Re-sending a snapshot is safe
// because saves are whole-value overwrites. Remote reads are bounded by
// a timeout and report as absent on expiry.
type DualStore struct {
	local  Backend
	remote Backend // may be nil (offline-only profile)

	// limiter paces background drain starts so a flapping remote is not
	// hammered on every local mutation. Flush bypasses it.
	limiter       *rate.Limiter
	remoteTimeout time.Duration

	mu       sync.Mutex
	pending  map[string]Blob
	draining bool
	closed   bool

	// OnRemoteError is invoked for swallowed remote failures, if set.
	// Called from the drain goroutine; must be safe for concurrent use.
	OnRemoteError func(key string, err error)
}

// NewDualStore creates a dual store. remote may be nil, in which case all
// remote operations are no-ops and loads report no remote snapshot.
func NewDualStore(local, remote Backend) *DualStore {
	return &DualStore{
		local:         local,
		remote:        remote,
		limiter:       rate.NewLimiter(rate.Every(time.Second), 5),
		remoteTimeout: defaultRemoteTimeout,
		pending:       make(map[string]Blob),
	}
}

var tracer = otel.Tracer("github.com/focusforge-dev/focusforge/pkg/store")

// Save writes the blob locally and parks it for a remote push.
// A local write failure is returned; the remote side never is, and the
// remote push never runs on the caller's goroutine.
func (d *DualStore) Save(ctx context.Context, key string, blob Blob) error {
	ctx, span := tracer.Start(ctx, "store.Save")
	span.SetAttributes(attribute.String("store.key", key))
	defer span.End()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrStoreClosed
	}
	d.mu.Unlock()

	if err := d.local.Save(ctx, key, blob); err != nil {
		return fmt.Errorf("local save %q: %w", key, err)
	}

	if d.remote != nil {
		d.mu.Lock()
		d.pending[key] = blob
		d.mu.Unlock()
		d.kickDrain()
	}
	return nil
}

// Load retrieves both snapshots for a key. A missing, unreachable, or
// slow remote side is reported as absent, never as an error.
func (d *DualStore) Load(ctx context.Context, key string) (LoadResult, error) {
	ctx, span := tracer.Start(ctx, "store.Load")
	span.SetAttributes(attribute.String("store.key", key))
	defer span.End()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return LoadResult{}, ErrStoreClosed
	}
	d.mu.Unlock()

	var res LoadResult

	local, err := d.local.Load(ctx, key)
	switch {
	case err == nil:
		res.Local, res.HasLocal = local, true
	case errors.Is(err, ErrNotFound):
		// absent
	default:
		return LoadResult{}, fmt.Errorf("local load %q: %w", key, err)
	}

	if d.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, d.remoteTimeout)
		remote, err := d.remote.Load(rctx, key)
		cancel()
		if err == nil {
			res.Remote, res.HasRemote = remote, true
		}
		// Unreachable, slow, or missing remote is the same thing to callers.
	}

	return res, nil
}

// Flush synchronously pushes every pending key to the remote store,
// bypassing the drain pacing. Used by the sync loop and on shutdown.
func (d *DualStore) Flush(ctx context.Context) {
	for d.drainOnce(ctx) {
	}
}

// PendingCount reports how many keys still await a remote push.
func (d *DualStore) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close closes both backends.
func (d *DualStore) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := d.local.Close()
	if d.remote != nil {
		if rerr := d.remote.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

// kickDrain starts a background drain unless one is already running or
// the pacing limiter denies it. Keys left behind by a denied kick drain
// on a later kick or on the next Flush.
func (d *DualStore) kickDrain() {
	d.mu.Lock()
	if d.closed || d.draining {
		d.mu.Unlock()
		return
	}
	if !d.limiter.Allow() {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()

	go func() {
		for d.drainOnce(context.Background()) {
		}
		d.mu.Lock()
		d.draining = false
		d.mu.Unlock()
	}()
}

// drainOnce pushes a batch of pending keys. It reports true when at
// least one push succeeded and keys remain, so callers loop until the
// set is empty or the remote stops accepting.
func (d *DualStore) drainOnce(ctx context.Context) bool {
	if d.remote == nil {
		return false
	}

	d.mu.Lock()
	if d.closed || len(d.pending) == 0 {
		d.mu.Unlock()
		return false
	}
	batch := make(map[string]Blob, len(d.pending))
	for k, v := range d.pending {
		batch[k] = v
	}
	d.mu.Unlock()

	pushed := false
	for key, blob := range batch {
		pctx, cancel := context.WithTimeout(ctx, d.remoteTimeout)
		err := d.remote.Save(pctx, key, blob)
		cancel()
		if err != nil {
			if d.OnRemoteError != nil {
				d.OnRemoteError(key, err)
			}
			log.Printf("store: remote save %q deferred: %v", key, err)
			continue
		}
		pushed = true

		d.mu.Lock()
		// A newer blob may have been parked since the batch copy; only
		// clear the entry we actually pushed.
		if cur, ok := d.pending[key]; ok && cur.UpdatedAt.Equal(blob.UpdatedAt) {
			delete(d.pending, key)
		}
		d.mu.Unlock()
	}

	d.mu.Lock()
	remaining := len(d.pending) > 0
	d.mu.Unlock()
	return pushed && remaining
}
