package effect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

type recorder struct {
	last map[Type]float64
}

func (r *recorder) MultiplierChanged(t Type, m float64) {
	if r.last == nil {
		r.last = make(map[Type]float64)
	}
	r.last[t] = m
}

func TestActiveMultiplier_ComposesMultiplicatively(t *testing.T) {
	l := NewLedger()
	l.Purchase(XPBoost, 1.5, 0, now)
	l.Purchase(XPBoost, 1.25, 0, now)

	assert.InDelta(t, 1.875, l.ActiveMultiplier(XPBoost, now), 1e-9)
	assert.Equal(t, 1.0, l.ActiveMultiplier(CurrencyBoost, now))
}

func TestRemove_RecomputesFromScratch(t *testing.T) {
	l := NewLedger()
	big := l.Purchase(XPBoost, 1.5, 0, now)
	l.Purchase(XPBoost, 1.25, 0, now)

	require.True(t, l.Remove(big.ID, now))

	assert.InDelta(t, 1.25, l.ActiveMultiplier(XPBoost, now), 1e-9)
	assert.False(t, l.Remove(big.ID, now))
}

func TestActiveMultiplier_IgnoresExpiredBeforeSweep(t *testing.T) {
	l := NewLedger()
	l.Purchase(XPBoost, 2.0, time.Hour, now)

	assert.Equal(t, 2.0, l.ActiveMultiplier(XPBoost, now.Add(59*time.Minute)))
	// Expired but not yet swept: the recompute still excludes it.
	assert.Equal(t, 1.0, l.ActiveMultiplier(XPBoost, now.Add(2*time.Hour)))
}

func TestSweep_BroadcastsOneWhenLastEffectExpires(t *testing.T) {
	l := NewLedger()
	rec := &recorder{}
	l.Subscribe(rec)

	l.Purchase(CurrencyBoost, 3.0, time.Hour, now)
	require.Equal(t, 3.0, rec.last[CurrencyBoost])

	removed := l.Sweep(now.Add(2 * time.Hour))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1.0, rec.last[CurrencyBoost], "removing the last effect must still broadcast 1.0")
	assert.Empty(t, l.Effects)
}

func TestSweep_KeepsPermanentAndUnexpired(t *testing.T) {
	l := NewLedger()
	l.Purchase(XPBoost, 1.5, 0, now)
	l.Purchase(XPBoost, 1.2, 3*time.Hour, now)
	l.Purchase(XPBoost, 1.1, time.Hour, now)

	removed := l.Sweep(now.Add(2 * time.Hour))

	assert.Equal(t, 1, removed)
	assert.Len(t, l.Effects, 2)
	assert.InDelta(t, 1.8, l.ActiveMultiplier(XPBoost, now.Add(2*time.Hour)), 1e-9)
}

func TestMerge_UnionByID(t *testing.T) {
	a := NewLedger()
	ea := a.Purchase(XPBoost, 1.5, 0, now)

	b := NewLedger()
	eb := b.Purchase(CurrencyBoost, 2.0, 0, now)

	merged := Merge(a, b)

	assert.Len(t, merged.Effects, 2)
	assert.Contains(t, merged.Effects, ea.ID)
	assert.Contains(t, merged.Effects, eb.ID)

	// Idempotent.
	again := Merge(merged, merged)
	assert.Len(t, again.Effects, 2)
}

func TestRebroadcast(t *testing.T) {
	l := NewLedger()
	l.Purchase(XPBoost, 1.5, 0, now)

	rec := &recorder{}
	l.Subscribe(rec)
	l.Rebroadcast(now)

	assert.Equal(t, 1.5, rec.last[XPBoost])
	assert.Equal(t, 1.0, rec.last[CurrencyBoost])
}
