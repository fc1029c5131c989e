// Package effect implements the purchase ledger of stacked, time-boxed
// multiplicative boosts.
package effect

import (
	"time"

	"github.com/google/uuid"
)

// Type is the reward stream an effect multiplies.
type Type string

const (
	// XPBoost multiplies XP grants.
	XPBoost Type = "xp_boost"
	// CurrencyBoost multiplies coin grants.
	CurrencyBoost Type = "currency_boost"
)

// Effect is one purchased boost. Fields are immutable after purchase.
// A nil ExpiresAt means permanent.
type Effect struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Multiplier  float64    `json:"multiplier"`
	PurchasedAt time.Time  `json:"purchasedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Active reports whether the effect applies at now.
func (e *Effect) Active(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// Subscriber receives the recomputed multiplier for a type whenever the
// active set changes. Replaces broadcast-style notification with a typed
// observer interface.
type Subscriber interface {
	MultiplierChanged(t Type, multiplier float64)
}

// Ledger is the persisted purchases aggregate plus its subscribers.
// Subscribers are runtime wiring and are not serialized.
type Ledger struct {
	Effects map[string]*Effect `json:"effects,omitempty"`

	subscribers []Subscriber
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{Effects: make(map[string]*Effect)}
}

// Subscribe registers an observer for multiplier changes.
func (l *Ledger) Subscribe(s Subscriber) {
	l.subscribers = append(l.subscribers, s)
}

// Purchase appends an effect. A duration of zero means permanent.
// The new multiplier for the effect's type is broadcast immediately.
func (l *Ledger) Purchase(t Type, multiplier float64, duration time.Duration, now time.Time) *Effect {
	if l.Effects == nil {
		l.Effects = make(map[string]*Effect)
	}
	e := &Effect{
		ID:          uuid.New().String(),
		Type:        t,
		Multiplier:  multiplier,
		PurchasedAt: now.UTC(),
	}
	if duration > 0 {
		expires := now.UTC().Add(duration)
		e.ExpiresAt = &expires
	}
	l.Effects[e.ID] = e
	l.broadcast(t, now)
	return e
}

// ActiveMultiplier recomputes the product of all active multipliers of a
// type. Never cached: expiry that hasn't been swept yet still drops out
// of the product.
func (l *Ledger) ActiveMultiplier(t Type, now time.Time) float64 {
	m := 1.0
	for _, e := range l.Effects {
		if e.Type == t && e.Active(now) {
			m *= e.Multiplier
		}
	}
	return m
}

// Remove excises an effect by ID and rebroadcasts its type's multiplier.
// Returns false if the ID is unknown.
func (l *Ledger) Remove(id string, now time.Time) bool {
	e, ok := l.Effects[id]
	if !ok {
		return false
	}
	delete(l.Effects, id)
	l.broadcast(e.Type, now)
	return true
}

// Sweep excises all expired effects and rebroadcasts the multiplier for
// every type that changed. Removing the last effect of a type still
// broadcasts 1.0. Returns the number of effects removed.
func (l *Ledger) Sweep(now time.Time) int {
	removed := 0
	changed := make(map[Type]bool)
	for id, e := range l.Effects {
		if !e.Active(now) {
			delete(l.Effects, id)
			changed[e.Type] = true
			removed++
		}
	}
	for t := range changed {
		l.broadcast(t, now)
	}
	return removed
}

func (l *Ledger) broadcast(t Type, now time.Time) {
	m := l.ActiveMultiplier(t, now)
	for _, s := range l.subscribers {
		s.MultiplierChanged(t, m)
	}
}

// Merge reconciles two purchase snapshots: union by effect ID, local
// copy kept on collisions (effects are immutable after purchase).
// Subscribers carry over from the local side; the caller rebroadcasts
// after a merge.
func Merge(local, remote *Ledger) *Ledger {
	merged := NewLedger()
	if local != nil {
		merged.subscribers = local.subscribers
		for id, e := range local.Effects {
			merged.Effects[id] = e
		}
	}
	if remote != nil {
		for id, e := range remote.Effects {
			if _, ok := merged.Effects[id]; !ok {
				merged.Effects[id] = e
			}
		}
	}
	return merged
}

// Rebroadcast pushes the current multiplier for every known type to all
// subscribers. Called after merges and on startup.
func (l *Ledger) Rebroadcast(now time.Time) {
	for _, t := range []Type{XPBoost, CurrencyBoost} {
		l.broadcast(t, now)
	}
}
