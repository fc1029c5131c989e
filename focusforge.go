// Package focusforge wires configuration, storage, and the engine into
// a runnable application. The cmd/focusforge binary and embedding hosts
// both go through Open.
package focusforge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	internalobs "github.com/focusforge-dev/focusforge/internal/observability"
	"github.com/focusforge-dev/focusforge/pkg/config"
	"github.com/focusforge-dev/focusforge/pkg/engine"
	"github.com/focusforge-dev/focusforge/pkg/notify"
	"github.com/focusforge-dev/focusforge/pkg/observability"
	"github.com/focusforge-dev/focusforge/pkg/store"
)

// App is an opened focusforge instance.
type App struct {
	cfg       *config.Config
	store     *store.DualStore
	engine    *engine.Engine
	obsServer *observability.Server
	scheduler *notify.Scheduler
}

// Open loads configuration, connects both stores, and builds the engine.
// A missing config file runs with defaults (local-only persistence).
func Open(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := internalobs.InitFromEnv(); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	observability.InitMetrics()

	local, err := store.NewFileBackend(cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	remote, err := openRemote(ctx, cfg)
	if err != nil {
		// The engine is offline-first: a missing remote at startup is a
		// degraded mode, not a failure.
		log.Printf("focusforge: remote store unavailable, running offline: %v", err)
		remote = nil
	}

	dual := store.NewDualStore(local, remote)

	eng, err := engine.New(ctx, dual, engine.Options{
		MiningSpeed:   cfg.Engine.MiningSpeed,
		SessionTick:   cfg.Engine.SessionTick.Std(),
		MiningTick:    cfg.Engine.MiningTick.Std(),
		SweepInterval: cfg.Engine.SweepInterval.Std(),
		SyncInterval:  cfg.Engine.SyncInterval.Std(),
	})
	if err != nil {
		dual.Close()
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		store:     dual,
		engine:    eng,
		scheduler: notify.NewScheduler(),
	}

	if cfg.MetricsPort > 0 {
		checker := observability.NewHealthChecker()
		checker.RegisterCheck(observability.LocalStoreCheck(func(ctx context.Context) error {
			_, err := local.Keys(ctx)
			return err
		}))
		if remote != nil {
			checker.RegisterCheck(observability.RemoteStoreCheck(func(ctx context.Context) error {
				_, err := remote.Keys(ctx)
				return err
			}))
		}
		app.obsServer = observability.NewServer(cfg.MetricsPort, checker)
	}

	return app, nil
}

func openRemote(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Remote.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderRedis:
		return store.NewRedisBackend(store.RedisConfig{
			Addr:     cfg.Remote.Redis.Addr,
			Password: cfg.Remote.Redis.Password,
			DB:       cfg.Remote.Redis.DB,
		})
	case config.ProviderFirestore:
		return store.NewFirestoreBackend(ctx, store.FirestoreConfig{
			ProjectID:       cfg.Remote.Firestore.ProjectID,
			CredentialsFile: cfg.Remote.Firestore.CredentialsFile,
			Collection:      cfg.Remote.Firestore.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown remote provider %q", cfg.Remote.Provider)
	}
}

// Engine exposes the command and projection surface.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Run drives the engine loops, the reminder scheduler, and the metrics
// server until ctx is canceled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("focusforge: received %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.scheduler.Apply(a.engine.ReminderSchedule(), func(t notify.TimeOfDay) {
		log.Printf("focusforge: reminder %s: time to study", t)
	}); err != nil {
		log.Printf("focusforge: reminder schedule: %v", err)
	}
	a.scheduler.Start()
	defer a.scheduler.Stop()

	if a.obsServer != nil {
		go func() {
			if err := a.obsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("focusforge: observability server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.obsServer.Shutdown(shutdownCtx)
		}()
	}

	return a.engine.Run(ctx)
}

// Close flushes and releases both stores.
func (a *App) Close() error {
	if err := internalobs.Shutdown(context.Background()); err != nil {
		log.Printf("focusforge: tracing shutdown: %v", err)
	}
	return a.store.Close()
}
