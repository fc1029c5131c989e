// Package engine orchestrates the progression aggregates behind a
// single-writer command surface. The host UI issues commands and reads
// projections; every mutation is persisted through the dual store and
// later reconciled against remote snapshots by the sync path.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/focusforge-dev/focusforge/pkg/effect"
	"github.com/focusforge-dev/focusforge/pkg/mine"
	"github.com/focusforge-dev/focusforge/pkg/notify"
	"github.com/focusforge-dev/focusforge/pkg/observability"
	"github.com/focusforge-dev/focusforge/pkg/progress"
	"github.com/focusforge-dev/focusforge/pkg/reward"
	"github.com/focusforge-dev/focusforge/pkg/session"
	"github.com/focusforge-dev/focusforge/pkg/store"
	"github.com/focusforge-dev/focusforge/pkg/streak"
	"github.com/focusforge-dev/focusforge/pkg/topic"
	"github.com/focusforge-dev/focusforge/pkg/wallet"
)

// Aggregate keys in both stores.
const (
	keyProgression = "progression"
	keyWallet      = "wallet"
	keyTopics      = "topics"
	keyPurchases   = "purchases"
	keyResources   = "resources"
	keyStreak      = "streak"
	keySettings    = "settings"
	keySession     = "session"
)

// Options tunes engine behavior. Zero values get sensible defaults.
type Options struct {
	// Now overrides the clock, for tests.
	Now func() time.Time
	// MiningSpeed scales resource maturation (default 1.0).
	MiningSpeed float64
	// SessionTick is the session timer poll interval (default 1s).
	SessionTick time.Duration
	// MiningTick is the maturation poll interval (default 5s).
	MiningTick time.Duration
	// SweepInterval is the effect-expiration sweep interval (default 30s).
	SweepInterval time.Duration
	// SyncInterval is the remote pull/merge interval (default 1m).
	SyncInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.MiningSpeed <= 0 {
		o.MiningSpeed = 1.0
	}
	if o.SessionTick <= 0 {
		o.SessionTick = time.Second
	}
	if o.MiningTick <= 0 {
		o.MiningTick = 5 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 30 * time.Second
	}
	if o.SyncInterval <= 0 {
		o.SyncInterval = time.Minute
	}
}

// Engine is the single writer over all aggregates. Commands, timer
// ticks, and the sync path all serialize on one mutex, so no partial
// mutation is ever observable or persisted.
type Engine struct {
	mu    sync.Mutex
	store *store.DualStore
	opts  Options
	now   func() time.Time

	prog    progress.State
	wal     wallet.Wallet
	topics  *topic.List
	effects *effect.Ledger
	field   *mine.Field
	str     streak.State
	set     Settings

	timer        *session.Timer
	xpMultiplier float64

	onChange func(View)
}

// New builds an engine over the dual store, loading and reconciling any
// persisted state (including an interrupted session) before returning.
func New(ctx context.Context, st *store.DualStore, opts Options) (*Engine, error) {
	opts.applyDefaults()

	e := &Engine{
		store:        st,
		opts:         opts,
		now:          opts.Now,
		topics:       topic.NewList(),
		effects:      effect.NewLedger(),
		field:        mine.NewField(),
		prog:         progress.New(),
		wal:          wallet.New(),
		timer:        session.NewTimer(),
		xpMultiplier: 1.0,
	}
	e.effects.Subscribe((*multiplierSink)(e))

	st.OnRemoteError = func(key string, err error) {
		observability.RecordRemotePushFailure()
	}

	if err := e.load(ctx); err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return e, nil
}

// multiplierSink receives ledger broadcasts. Calls arrive only from
// ledger methods invoked while the engine mutex is already held.
type multiplierSink Engine

func (s *multiplierSink) MultiplierChanged(t effect.Type, m float64) {
	e := (*Engine)(s)
	switch t {
	case effect.XPBoost:
		if m < 1.0 {
			m = 1.0
		}
		e.xpMultiplier = m
	case effect.CurrencyBoost:
		e.wal.SetMultiplier(m)
	}
}

// OnChange registers a projection callback fired after every mutation.
// The callback runs on the mutating goroutine and must not call back
// into the engine.
func (e *Engine) OnChange(fn func(View)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// --- Commands -----------------------------------------------------------

// StartSession begins a focus session. Returns false while a session is
// in flight, when the duration is invalid, or when topicID is unknown.
func (e *Engine) StartSession(ctx context.Context, duration time.Duration, topicID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if topicID != "" && e.topics.Get(topicID) == nil {
		return false
	}
	now := e.now()
	if !e.timer.Start(duration, topicID, now) {
		return false
	}

	snap, _ := e.timer.Snapshot()
	if err := e.persist(ctx, keySession, snap); err != nil {
		// Local persistence is the durability guarantee for crash
		// recovery; without it the session must not start.
		e.timer.Stop(now)
		e.timer.FinishClose()
		log.Printf("engine: start session rolled back: %v", err)
		return false
	}

	e.notifyChange()
	return true
}

// StopSession ends the running session early and runs the close routine.
// Returns false when no session is running.
func (e *Engine) StopSession(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcome, ok := e.timer.Stop(e.now())
	if !ok {
		return false
	}
	e.closeSession(ctx, outcome)
	return true
}

// Purchase spends the item's price and appends its effect. Returns
// false for unknown items or insufficient balance.
func (e *Engine) Purchase(ctx context.Context, itemID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := findItem(itemID)
	if !ok {
		return false
	}

	backup := e.backup()
	if !e.wal.Spend(item.Price) {
		return false
	}
	e.effects.Purchase(item.Effect, item.Multiplier, item.Duration, e.now())

	if err := e.persistAll(ctx, keyWallet, keyPurchases); err != nil {
		e.restore(backup)
		log.Printf("engine: purchase rolled back: %v", err)
		return false
	}

	e.notifyChange()
	return true
}

// StartMining begins maturing the identified resource. Single slot:
// returns false while another resource is maturing.
func (e *Engine) StartMining(ctx context.Context, resourceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	backup := e.backup()
	if !e.field.StartMining(resourceID, e.now()) {
		return false
	}

	if err := e.persistAll(ctx, keyResources); err != nil {
		e.restore(backup)
		log.Printf("engine: start mining rolled back: %v", err)
		return false
	}

	e.notifyChange()
	return true
}

// CollectMaturedResource pays out the maturing resource if it reached
// full maturity. Returns false when nothing is collectible.
func (e *Engine) CollectMaturedResource(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collectMature(ctx)
}

// AddTopic creates a topic and returns its ID.
func (e *Engine) AddTopic(ctx context.Context, name string, weeklyGoalMinutes uint64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		return "", false
	}

	backup := e.backup()
	id := e.topics.Add(name, weeklyGoalMinutes)

	if err := e.persistAll(ctx, keyTopics); err != nil {
		e.restore(backup)
		log.Printf("engine: add topic rolled back: %v", err)
		return "", false
	}

	e.notifyChange()
	return id, true
}

// DeleteTopic removes a topic, clearing the selection if it pointed at it.
func (e *Engine) DeleteTopic(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	backup := e.backup()
	if !e.topics.Delete(id) {
		return false
	}
	keys := []string{keyTopics}
	if e.set.SelectedTopicID == id {
		e.set.SelectedTopicID = ""
		keys = append(keys, keySettings)
	}

	if err := e.persistAll(ctx, keys...); err != nil {
		e.restore(backup)
		log.Printf("engine: delete topic rolled back: %v", err)
		return false
	}

	e.notifyChange()
	return true
}

// SelectTopic marks a topic as the active default for new sessions.
func (e *Engine) SelectTopic(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.topics.Get(id) == nil {
		return false
	}

	backup := e.backup()
	e.set.SelectedTopicID = id

	if err := e.persistAll(ctx, keySettings); err != nil {
		e.restore(backup)
		return false
	}

	e.notifyChange()
	return true
}

// SetReminderTimes replaces the desired reminder schedule.
// Times must parse as "HH:MM".
func (e *Engine) SetReminderTimes(ctx context.Context, times []string) bool {
	for _, t := range times {
		if _, err := notify.Parse(t); err != nil {
			return false
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	backup := e.backup()
	e.set.ReminderTimes = append([]string(nil), times...)

	if err := e.persistAll(ctx, keySettings); err != nil {
		e.restore(backup)
		return false
	}

	e.notifyChange()
	return true
}

// ResetProgression zeroes XP and level back to {0, 1, 100} and clears
// XP multiplier state by dropping all XP-boost effects.
func (e *Engine) ResetProgression(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	backup := e.backup()
	e.prog.Reset()
	for id, ef := range e.effects.Effects {
		if ef.Type == effect.XPBoost {
			e.effects.Remove(id, e.now())
		}
	}

	if err := e.persistAll(ctx, keyProgression, keyPurchases); err != nil {
		e.restore(backup)
		return false
	}

	e.notifyChange()
	return true
}

// --- Session close routine ---------------------------------------------

// closeSession folds a finished session into the aggregates.
// Ordering matters: the expiration sweep rebroadcasts multipliers
// before any reward computation reads them.
func (e *Engine) closeSession(ctx context.Context, outcome session.Outcome) {
	now := e.now()

	e.effects.Sweep(now)

	r := reward.Compute(outcome.ElapsedSec)
	xp := uint64(float64(r.XP) * e.xpMultiplier)
	e.prog.AddXP(xp)
	coins := e.wal.EarnScaled(r.Coins)
	if res := e.field.Grant(r.Tier); res != nil {
		log.Printf("engine: session granted %s resource %s", res.Tier, res.ID)
	}
	e.str.Advance(now)
	if outcome.TopicID != "" {
		e.topics.Log(outcome.TopicID, now, outcome.ElapsedSec/60)
	}

	if err := e.persistAll(ctx,
		keyProgression, keyWallet, keyResources, keyStreak, keyTopics, keyPurchases,
	); err != nil {
		// The session itself is already spent; losing the local write
		// here means the device is in real trouble. Keep the in-memory
		// state and let the next successful save persist it.
		log.Printf("engine: session close persisted partially: %v", err)
	}
	if err := e.persist(ctx, keySession, session.Snapshot{}); err != nil {
		log.Printf("engine: clear session snapshot: %v", err)
	}

	e.timer.FinishClose()

	observability.RecordSession(outcome.Completed, outcome.ElapsedSec)
	observability.RecordRewards(xp, coins)
	e.notifyChange()
}

// collectMature pays out the matured resource. Caller holds e.mu.
func (e *Engine) collectMature(ctx context.Context) bool {
	backup := e.backup()
	r := e.field.CollectMature(e.now(), e.opts.MiningSpeed)
	if r == nil {
		return false
	}
	e.wal.Deposit(r.Payout)

	if err := e.persistAll(ctx, keyWallet, keyResources); err != nil {
		e.restore(backup)
		log.Printf("engine: collect rolled back: %v", err)
		return false
	}

	observability.RecordResourceCollected(string(r.Tier))
	e.notifyChange()
	return true
}

// --- Tick entry points (driven by Run) ----------------------------------

// TickSession advances the session timer, auto-completing at deadline.
func (e *Engine) TickSession(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if outcome, done := e.timer.Tick(e.now()); done {
		e.closeSession(ctx, outcome)
	}
}

// TickMining auto-collects a fully matured resource.
func (e *Engine) TickMining(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collectMature(ctx)
}

// SweepEffects excises expired effects and persists the ledger when
// anything changed.
func (e *Engine) SweepEffects(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.effects.Sweep(e.now()) == 0 {
		return
	}
	if err := e.persistAll(ctx, keyPurchases, keyWallet); err != nil {
		log.Printf("engine: persist after sweep: %v", err)
	}
	e.notifyChange()
}

// --- In-memory backup for rollback --------------------------------------

type memState struct {
	prog    progress.State
	wal     wallet.Wallet
	topics  *topic.List
	effects *effect.Ledger
	field   *mine.Field
	str     streak.State
	set     Settings
}

func (e *Engine) backup() memState {
	return memState{
		prog:    e.prog,
		wal:     e.wal,
		topics:  topic.Merge(e.topics, nil),
		effects: effect.Merge(e.effects, nil),
		field:   mine.Merge(e.field, nil),
		str:     e.str,
		set:     e.set,
	}
}

func (e *Engine) restore(m memState) {
	e.prog = m.prog
	e.wal = m.wal
	e.topics = m.topics
	e.effects = m.effects
	e.field = m.field
	e.str = m.str
	e.set = m.set
	e.effects.Rebroadcast(e.now())
}
