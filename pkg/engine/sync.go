package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/focusforge-dev/focusforge/pkg/effect"
	"github.com/focusforge-dev/focusforge/pkg/mine"
	"github.com/focusforge-dev/focusforge/pkg/observability"
	"github.com/focusforge-dev/focusforge/pkg/progress"
	"github.com/focusforge-dev/focusforge/pkg/reward"
	"github.com/focusforge-dev/focusforge/pkg/session"
	"github.com/focusforge-dev/focusforge/pkg/store"
	"github.com/focusforge-dev/focusforge/pkg/streak"
	"github.com/focusforge-dev/focusforge/pkg/topic"
	"github.com/focusforge-dev/focusforge/pkg/wallet"
)

// persist encodes v and saves it under key. Caller holds e.mu.
func (e *Engine) persist(ctx context.Context, key string, v any) error {
	blob, err := store.Encode(v, e.now())
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return e.store.Save(ctx, key, blob)
}

// persistAll saves the current in-memory value of each named aggregate.
// Caller holds e.mu.
func (e *Engine) persistAll(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := e.persist(ctx, key, e.valueFor(key)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) valueFor(key string) any {
	switch key {
	case keyProgression:
		return e.prog
	case keyWallet:
		return e.wal
	case keyTopics:
		return e.topics
	case keyPurchases:
		return e.effects
	case keyResources:
		return e.field
	case keyStreak:
		return e.str
	case keySettings:
		return e.set
	default:
		panic("engine: unknown aggregate key " + key)
	}
}

// pair is the decoded form of one aggregate's two snapshots.
// Decode failures (corrupt payloads, newer envelope versions) are
// reported as absent so the caller falls back to the other side or to
// the zero value.
type pair struct {
	hasLocal, hasRemote bool
	localAt, remoteAt   time.Time
}

func (e *Engine) loadPair(ctx context.Context, key string, local, remote any) (pair, error) {
	res, err := e.store.Load(ctx, key)
	if err != nil {
		return pair{}, err
	}
	var p pair
	if res.HasLocal && store.Decode(res.Local, local) {
		p.hasLocal = true
		p.localAt = res.Local.UpdatedAt
	}
	if res.HasRemote && store.Decode(res.Remote, remote) {
		p.hasRemote = true
		p.remoteAt = res.Remote.UpdatedAt
	}
	return p, nil
}

// load reconciles both stores into memory at startup and re-arms any
// interrupted session from the local snapshot.
func (e *Engine) load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	lp, rp := progress.New(), progress.New()
	if _, err := e.loadPair(ctx, keyProgression, &lp, &rp); err != nil {
		return err
	}
	e.prog = progress.Merge(lp, rp)

	lw, rw := wallet.New(), wallet.New()
	if _, err := e.loadPair(ctx, keyWallet, &lw, &rw); err != nil {
		return err
	}
	e.wal = wallet.Merge(lw, rw)

	lt, rt := topic.NewList(), topic.NewList()
	if _, err := e.loadPair(ctx, keyTopics, lt, rt); err != nil {
		return err
	}
	e.topics = topic.Merge(lt, rt)

	le, re := effect.NewLedger(), effect.NewLedger()
	if _, err := e.loadPair(ctx, keyPurchases, le, re); err != nil {
		return err
	}
	e.effects.Effects = effect.Merge(le, re).Effects

	lf, rf := mine.NewField(), mine.NewField()
	if _, err := e.loadPair(ctx, keyResources, lf, rf); err != nil {
		return err
	}
	e.field = mine.Merge(lf, rf)

	// A brand-new profile gets a starter collectible to mine.
	if len(e.field.Resources) == 0 && len(e.field.Collected) == 0 {
		e.field.Grant(reward.TierTiny)
		if err := e.persistAll(ctx, keyResources); err != nil {
			return err
		}
	}

	var ls, rs streak.State
	if _, err := e.loadPair(ctx, keyStreak, &ls, &rs); err != nil {
		return err
	}
	e.str = streak.Merge(ls, rs)

	var lset, rset Settings
	p, err := e.loadPair(ctx, keySettings, &lset, &rset)
	if err != nil {
		return err
	}
	e.set = mergeSettings(lset, p.localAt, rset, p.remoteAt)

	// Multipliers are derived from the merged ledger, never trusted from
	// the persisted wallet scalar.
	e.effects.Rebroadcast(now)

	// Session snapshots are device-local: only the local side re-arms.
	var snap, unused session.Snapshot
	sp, err := e.loadPair(ctx, keySession, &snap, &unused)
	if err != nil {
		return err
	}
	if sp.hasLocal && snap.PlannedDurationSec > 0 {
		if outcome, expired := e.timer.Restore(snap, now); expired {
			log.Printf("engine: recovered session expired while offline, crediting %ds", outcome.ElapsedSec)
			e.closeSession(ctx, outcome)
		}
	}

	return nil
}

// SyncNow pulls remote snapshots, merges them into memory, and persists
// the merged state to both stores. Merge happens before any mutation
// reads the result, so a session closing mid-sync can never interleave
// with a half-merged aggregate.
func (e *Engine) SyncNow(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged := false

	rp := progress.New()
	p, err := e.loadPair(ctx, keyProgression, &struct{}{}, &rp)
	if err != nil {
		return err
	}
	if p.hasRemote {
		e.prog = progress.Merge(e.prog, rp)
		observability.RecordMerge(keyProgression)
		merged = true
	}

	rw := wallet.New()
	if p, err = e.loadPair(ctx, keyWallet, &struct{}{}, &rw); err != nil {
		return err
	}
	if p.hasRemote {
		e.wal = wallet.Merge(e.wal, rw)
		observability.RecordMerge(keyWallet)
		merged = true
	}

	rt := topic.NewList()
	if p, err = e.loadPair(ctx, keyTopics, &struct{}{}, rt); err != nil {
		return err
	}
	if p.hasRemote {
		e.topics = topic.Merge(e.topics, rt)
		observability.RecordMerge(keyTopics)
		merged = true
	}

	re := effect.NewLedger()
	if p, err = e.loadPair(ctx, keyPurchases, &struct{}{}, re); err != nil {
		return err
	}
	if p.hasRemote {
		e.effects.Effects = effect.Merge(e.effects, re).Effects
		observability.RecordMerge(keyPurchases)
		merged = true
	}

	rf := mine.NewField()
	if p, err = e.loadPair(ctx, keyResources, &struct{}{}, rf); err != nil {
		return err
	}
	if p.hasRemote {
		e.field = mine.Merge(e.field, rf)
		observability.RecordMerge(keyResources)
		merged = true
	}

	var rs streak.State
	if p, err = e.loadPair(ctx, keyStreak, &struct{}{}, &rs); err != nil {
		return err
	}
	if p.hasRemote {
		e.str = streak.Merge(e.str, rs)
		observability.RecordMerge(keyStreak)
		merged = true
	}

	var rset Settings
	if p, err = e.loadPair(ctx, keySettings, &struct{}{}, &rset); err != nil {
		return err
	}
	if p.hasRemote {
		e.set = mergeSettings(e.set, p.localAt, rset, p.remoteAt)
		observability.RecordMerge(keySettings)
		merged = true
	}

	if !merged {
		return nil
	}

	e.effects.Rebroadcast(e.now())

	if err := e.persistAll(ctx,
		keyProgression, keyWallet, keyTopics, keyPurchases,
		keyResources, keyStreak, keySettings,
	); err != nil {
		return fmt.Errorf("persist merged state: %w", err)
	}

	e.notifyChange()
	return nil
}
