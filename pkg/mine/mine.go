// Package mine implements collectible resources and their maturation
// timers. A resource sits uncollected until mining starts; maturity is
// derived from the persisted start timestamp, never from an in-memory
// countdown, so restarts cannot lose progress.
package mine

import (
	"time"

	"github.com/google/uuid"

	"github.com/focusforge-dev/focusforge/pkg/reward"
)

// Resource is one collectible. StartedAt nil means available; non-nil
// means maturing. At most one resource matures at a time per user.
type Resource struct {
	ID              string     `json:"id"`
	Tier            reward.Tier `json:"tier"`
	BaseMaturitySec uint64     `json:"baseMaturitySec"`
	Payout          uint64     `json:"payout"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
}

// MaturityFraction is the 0.0–1.0 progress toward payout at now, scaled
// by the mining speed multiplier. Zero when not maturing.
func (r *Resource) MaturityFraction(now time.Time, speed float64) float64 {
	if r.StartedAt == nil || r.BaseMaturitySec == 0 {
		return 0
	}
	if speed <= 0 {
		speed = 1
	}
	elapsed := now.Sub(*r.StartedAt).Seconds() * speed
	fraction := elapsed / float64(r.BaseMaturitySec)
	if fraction >= 1.0 {
		return 1.0
	}
	if fraction < 0 {
		return 0
	}
	return fraction
}

// Field is the persisted resources aggregate: everything still in the
// ground plus everything already collected. Keyed by resource ID.
type Field struct {
	Resources map[string]*Resource `json:"resources,omitempty"`
	Collected map[string]*Resource `json:"collected,omitempty"`
}

// NewField returns an empty field.
func NewField() *Field {
	return &Field{
		Resources: make(map[string]*Resource),
		Collected: make(map[string]*Resource),
	}
}

// Catalog entries per tier: base maturity seconds and payout.
var catalog = map[reward.Tier]struct {
	maturitySec uint64
	payout      uint64
}{
	reward.TierTiny:   {300, 10},
	reward.TierCommon: {900, 40},
	reward.TierRare:   {1800, 120},
}

// Grant adds a fresh uncollected resource of the given tier and returns
// it. TierNone grants nothing.
func (f *Field) Grant(tier reward.Tier) *Resource {
	spec, ok := catalog[tier]
	if !ok {
		return nil
	}
	if f.Resources == nil {
		f.Resources = make(map[string]*Resource)
	}
	r := &Resource{
		ID:              uuid.New().String(),
		Tier:            tier,
		BaseMaturitySec: spec.maturitySec,
		Payout:          spec.payout,
	}
	f.Resources[r.ID] = r
	return r
}

// Maturing returns the resource currently maturing, or nil.
func (f *Field) Maturing() *Resource {
	for _, r := range f.Resources {
		if r.StartedAt != nil {
			return r
		}
	}
	return nil
}

// StartMining begins maturation of the resource with id at now.
// Rejected (false) when the id is unknown or any resource is already
// maturing: there is a single concurrent mining slot.
func (f *Field) StartMining(id string, now time.Time) bool {
	r, ok := f.Resources[id]
	if !ok {
		return false
	}
	if f.Maturing() != nil {
		return false
	}
	started := now.UTC()
	r.StartedAt = &started
	return true
}

// CollectMature moves the maturing resource to the collected set if its
// maturity fraction reached 1.0 at now. Returns the collected resource,
// or nil when nothing is ready.
func (f *Field) CollectMature(now time.Time, speed float64) *Resource {
	r := f.Maturing()
	if r == nil || r.MaturityFraction(now, speed) < 1.0 {
		return nil
	}
	delete(f.Resources, r.ID)
	if f.Collected == nil {
		f.Collected = make(map[string]*Resource)
	}
	r.StartedAt = nil
	f.Collected[r.ID] = r
	return r
}

// Merge reconciles two field snapshots. Both maps union by ID. A
// resource collected on either side counts as collected. For a resource
// present uncollected on both sides, a non-nil StartedAt wins over nil
// and the earlier of two timestamps wins, so mining progress survives.
// If the union would leave more than one resource maturing, only the
// earliest keeps its slot.
func Merge(local, remote *Field) *Field {
	merged := NewField()

	copyInto := func(src *Field) {
		if src == nil {
			return
		}
		for id, r := range src.Collected {
			merged.Collected[id] = cloneResource(r)
		}
		for id, r := range src.Resources {
			cur, ok := merged.Resources[id]
			if !ok {
				merged.Resources[id] = cloneResource(r)
				continue
			}
			if r.StartedAt != nil && (cur.StartedAt == nil || r.StartedAt.Before(*cur.StartedAt)) {
				cur.StartedAt = cloneTime(r.StartedAt)
			}
		}
	}
	copyInto(local)
	copyInto(remote)

	// Collected wins over any lingering uncollected copy.
	for id := range merged.Collected {
		delete(merged.Resources, id)
	}

	// Single mining slot: the earliest start keeps it.
	var earliest *Resource
	for _, r := range merged.Resources {
		if r.StartedAt == nil {
			continue
		}
		if earliest == nil || r.StartedAt.Before(*earliest.StartedAt) {
			earliest = r
		}
	}
	if earliest != nil {
		for _, r := range merged.Resources {
			if r != earliest {
				r.StartedAt = nil
			}
		}
	}

	return merged
}

func cloneResource(r *Resource) *Resource {
	c := *r
	c.StartedAt = cloneTime(r.StartedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
