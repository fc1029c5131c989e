package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/focusforge-dev/focusforge/pkg/observability"
)

// Run drives the engine's background loops until ctx is canceled:
// session ticking, mining auto-collection, effect expiration sweeps,
// and periodic remote sync. A final flush runs on shutdown.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.loop(ctx, e.opts.SessionTick, func(ctx context.Context) {
			e.TickSession(ctx)
		})
	})

	g.Go(func() error {
		return e.loop(ctx, e.opts.MiningTick, func(ctx context.Context) {
			e.TickMining(ctx)
		})
	})

	g.Go(func() error {
		return e.loop(ctx, e.opts.SweepInterval, func(ctx context.Context) {
			e.SweepEffects(ctx)
		})
	})

	g.Go(func() error {
		return e.loop(ctx, e.opts.SyncInterval, func(ctx context.Context) {
			if err := e.SyncNow(ctx); err != nil {
				log.Printf("engine: sync: %v", err)
			}
			e.store.Flush(ctx)
			observability.SetRemotePending(e.store.PendingCount())
		})
	})

	err := g.Wait()

	// Last chance to drain deferred remote pushes before the process
	// exits; bounded so shutdown stays prompt.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.store.Flush(flushCtx)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}
