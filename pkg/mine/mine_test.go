package mine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusforge-dev/focusforge/pkg/reward"
)

var now = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestGrant_FromCatalog(t *testing.T) {
	f := NewField()

	r := f.Grant(reward.TierRare)
	require.NotNil(t, r)
	assert.Equal(t, uint64(1800), r.BaseMaturitySec)
	assert.Equal(t, uint64(120), r.Payout)
	assert.Nil(t, r.StartedAt)

	assert.Nil(t, f.Grant(reward.TierNone))
}

func TestStartMining_SingleSlot(t *testing.T) {
	f := NewField()
	a := f.Grant(reward.TierTiny)
	b := f.Grant(reward.TierCommon)

	require.True(t, f.StartMining(a.ID, now))
	assert.False(t, f.StartMining(b.ID, now), "second concurrent mining must be rejected")
	assert.False(t, f.StartMining("unknown", now))
	assert.Equal(t, a.ID, f.Maturing().ID)
}

func TestMaturityFraction(t *testing.T) {
	f := NewField()
	r := f.Grant(reward.TierTiny) // 300s base
	require.True(t, f.StartMining(r.ID, now))

	assert.InDelta(t, 0.5, r.MaturityFraction(now.Add(150*time.Second), 1.0), 1e-9)
	assert.Equal(t, 1.0, r.MaturityFraction(now.Add(600*time.Second), 1.0))
	assert.InDelta(t, 1.0, r.MaturityFraction(now.Add(150*time.Second), 2.0), 1e-9)
}

func TestResumeAfterRestart(t *testing.T) {
	// startedAt 40s in the past, base 60s, speed 2 => 80/60 capped at 1.0.
	started := now.Add(-40 * time.Second)
	r := &Resource{ID: "r1", Tier: reward.TierTiny, BaseMaturitySec: 60, Payout: 10, StartedAt: &started}
	f := &Field{Resources: map[string]*Resource{"r1": r}}

	assert.Equal(t, 1.0, r.MaturityFraction(now, 2.0))

	collected := f.CollectMature(now, 2.0)
	require.NotNil(t, collected, "resumed resource must be immediately collectible")
	assert.Equal(t, uint64(10), collected.Payout)
}

func TestCollectMature_NotReady(t *testing.T) {
	f := NewField()
	r := f.Grant(reward.TierCommon)
	require.True(t, f.StartMining(r.ID, now))

	assert.Nil(t, f.CollectMature(now.Add(10*time.Second), 1.0))
	assert.Len(t, f.Resources, 1)
}

func TestCollectMature_MovesToCollected(t *testing.T) {
	f := NewField()
	r := f.Grant(reward.TierTiny)
	require.True(t, f.StartMining(r.ID, now))

	collected := f.CollectMature(now.Add(301*time.Second), 1.0)

	require.NotNil(t, collected)
	assert.NotContains(t, f.Resources, r.ID)
	assert.Contains(t, f.Collected, r.ID)
	assert.Nil(t, f.Collected[r.ID].StartedAt)
	assert.Nil(t, f.Maturing())
}

func TestMerge_UnionAndCollectedWins(t *testing.T) {
	a := NewField()
	shared := a.Grant(reward.TierTiny)
	onlyA := a.Grant(reward.TierCommon)

	b := &Field{
		Resources: map[string]*Resource{},
		Collected: map[string]*Resource{
			shared.ID: {ID: shared.ID, Tier: shared.Tier, BaseMaturitySec: shared.BaseMaturitySec, Payout: shared.Payout},
		},
	}

	merged := Merge(a, b)

	assert.Contains(t, merged.Collected, shared.ID)
	assert.NotContains(t, merged.Resources, shared.ID, "collected on one side wins")
	assert.Contains(t, merged.Resources, onlyA.ID)
}

func TestMerge_EarlierStartWins(t *testing.T) {
	early := now.Add(-10 * time.Minute)
	late := now.Add(-1 * time.Minute)

	a := &Field{Resources: map[string]*Resource{
		"r1": {ID: "r1", Tier: reward.TierTiny, BaseMaturitySec: 300, Payout: 10, StartedAt: &late},
	}}
	b := &Field{Resources: map[string]*Resource{
		"r1": {ID: "r1", Tier: reward.TierTiny, BaseMaturitySec: 300, Payout: 10, StartedAt: &early},
	}}

	merged := Merge(a, b)
	require.NotNil(t, merged.Resources["r1"].StartedAt)
	assert.True(t, merged.Resources["r1"].StartedAt.Equal(early), "earlier start preserves more progress")
}

func TestMerge_SingleMaturingSlotSurvives(t *testing.T) {
	s1 := now.Add(-5 * time.Minute)
	s2 := now.Add(-2 * time.Minute)

	a := &Field{Resources: map[string]*Resource{
		"r1": {ID: "r1", Tier: reward.TierTiny, BaseMaturitySec: 300, StartedAt: &s1},
	}}
	b := &Field{Resources: map[string]*Resource{
		"r2": {ID: "r2", Tier: reward.TierTiny, BaseMaturitySec: 300, StartedAt: &s2},
	}}

	merged := Merge(a, b)

	assert.NotNil(t, merged.Resources["r1"].StartedAt)
	assert.Nil(t, merged.Resources["r2"].StartedAt, "only the earliest keeps the mining slot")
}

func TestMerge_Idempotent(t *testing.T) {
	f := NewField()
	r := f.Grant(reward.TierRare)
	require.True(t, f.StartMining(r.ID, now))

	merged := Merge(f, f)

	assert.Len(t, merged.Resources, 1)
	assert.NotNil(t, merged.Resources[r.ID].StartedAt)
}
