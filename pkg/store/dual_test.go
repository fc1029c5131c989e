package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// flakyBackend is an in-memory backend whose writes can be failed on demand.
type flakyBackend struct {
	mu    sync.Mutex
	blobs map[string]Blob
	fail  bool
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{blobs: make(map[string]Blob)}
}

func (f *flakyBackend) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *flakyBackend) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[key]
	return ok
}

func (f *flakyBackend) Save(ctx context.Context, key string, blob Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("remote unreachable")
	}
	f.blobs[key] = blob
	return nil
}

func (f *flakyBackend) Load(ctx context.Context, key string) (Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return Blob{}, errors.New("remote unreachable")
	}
	blob, ok := f.blobs[key]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return blob, nil
}

func (f *flakyBackend) Keys(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.blobs))
	for k := range f.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *flakyBackend) Close() error { return nil }

// slowBackend delays every write, standing in for a high-latency remote.
type slowBackend struct {
	*flakyBackend
	delay time.Duration
}

func (s *slowBackend) Save(ctx context.Context, key string, blob Blob) error {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.flakyBackend.Save(ctx, key, blob)
}

// hungBackend never answers reads until the context gives up.
type hungBackend struct {
	*flakyBackend
}

func (h *hungBackend) Load(ctx context.Context, key string) (Blob, error) {
	<-ctx.Done()
	return Blob{}, ctx.Err()
}

func setupDual(t *testing.T) (*DualStore, *flakyBackend) {
	t.Helper()

	local, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	remote := newFlakyBackend()
	dual := NewDualStore(local, remote)

	t.Cleanup(func() {
		_ = dual.Close()
	})

	return dual, remote
}

func TestDualStore_SaveWritesBothSides(t *testing.T) {
	dual, remote := setupDual(t)
	ctx := context.Background()

	blob, _ := Encode(map[string]int{"n": 1}, time.Now())
	if err := dual.Save(ctx, "wallet", blob); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	dual.Flush(ctx)

	res, err := dual.Load(ctx, "wallet")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !res.HasLocal {
		t.Error("expected local snapshot")
	}
	if !res.HasRemote {
		t.Error("expected remote snapshot")
	}
	if !remote.has("wallet") {
		t.Error("remote backend never saw the blob")
	}
}

func TestDualStore_RemoteFailureIsSwallowed(t *testing.T) {
	dual, remote := setupDual(t)
	ctx := context.Background()

	var failures atomic.Int32
	dual.OnRemoteError = func(key string, err error) { failures.Add(1) }

	remote.setFail(true)

	blob, _ := Encode(map[string]int{"n": 1}, time.Now())
	if err := dual.Save(ctx, "wallet", blob); err != nil {
		t.Fatalf("Save must not surface remote failures, got: %v", err)
	}
	dual.Flush(ctx)

	if failures.Load() == 0 {
		t.Error("expected remote failure to be reported to OnRemoteError")
	}
	if dual.PendingCount() != 1 {
		t.Errorf("expected 1 pending key, got %d", dual.PendingCount())
	}

	// Remote comes back; the pending key drains on the next flush.
	remote.setFail(false)
	blob2, _ := Encode(map[string]int{"n": 2}, time.Now())
	if err := dual.Save(ctx, "streak", blob2); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	dual.Flush(ctx)

	if dual.PendingCount() != 0 {
		t.Errorf("expected pending queue to drain, %d keys left", dual.PendingCount())
	}
	if !remote.has("wallet") {
		t.Error("pending blob never reached the remote")
	}
	if !remote.has("streak") {
		t.Error("second blob never reached the remote")
	}
}

func TestDualStore_SaveNotBlockedBySlowRemote(t *testing.T) {
	local, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	remote := &slowBackend{flakyBackend: newFlakyBackend(), delay: 200 * time.Millisecond}
	dual := NewDualStore(local, remote)
	defer dual.Close()

	ctx := context.Background()
	keys := []string{"progression", "wallet", "resources", "streak", "topics"}

	start := time.Now()
	for _, key := range keys {
		blob, _ := Encode(map[string]int{"n": 1}, time.Now())
		if err := dual.Save(ctx, key, blob); err != nil {
			t.Fatalf("Save %q failed: %v", key, err)
		}
	}
	elapsed := time.Since(start)

	// Five saves against a 200ms-slow remote must not pay remote latency
	// on the caller's goroutine.
	if elapsed > 100*time.Millisecond {
		t.Errorf("saves took %v; remote latency leaked into the caller", elapsed)
	}

	dual.Flush(ctx)
	for _, key := range keys {
		if !remote.has(key) {
			t.Errorf("key %q never reached the remote after flush", key)
		}
	}
}

func TestDualStore_LoadTimesOutHungRemote(t *testing.T) {
	local, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	dual := NewDualStore(local, &hungBackend{flakyBackend: newFlakyBackend()})
	dual.remoteTimeout = 50 * time.Millisecond
	defer dual.Close()

	ctx := context.Background()
	blob, _ := Encode(map[string]int{"n": 1}, time.Now())
	if err := dual.Save(ctx, "wallet", blob); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	start := time.Now()
	res, err := dual.Load(ctx, "wallet")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Load must tolerate a hung remote, got: %v", err)
	}
	if !res.HasLocal {
		t.Error("expected local snapshot")
	}
	if res.HasRemote {
		t.Error("hung remote must be reported as absent")
	}
	if elapsed > time.Second {
		t.Errorf("Load took %v; the remote read deadline did not apply", elapsed)
	}
}

func TestDualStore_LoadWithUnreachableRemote(t *testing.T) {
	dual, remote := setupDual(t)
	ctx := context.Background()

	blob, _ := Encode(map[string]int{"n": 1}, time.Now())
	if err := dual.Save(ctx, "wallet", blob); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	dual.Flush(ctx)

	remote.setFail(true)

	res, err := dual.Load(ctx, "wallet")
	if err != nil {
		t.Fatalf("Load must tolerate an unreachable remote, got: %v", err)
	}
	if !res.HasLocal {
		t.Error("expected local snapshot")
	}
	if res.HasRemote {
		t.Error("unreachable remote must be reported as absent")
	}
}

func TestDualStore_NilRemote(t *testing.T) {
	local, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	dual := NewDualStore(local, nil)
	defer dual.Close()

	ctx := context.Background()
	blob, _ := Encode(map[string]int{"n": 1}, time.Now())
	if err := dual.Save(ctx, "wallet", blob); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	dual.Flush(ctx)

	res, err := dual.Load(ctx, "wallet")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.HasRemote {
		t.Error("nil remote must never report a snapshot")
	}
}
