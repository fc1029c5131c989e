package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_RareSession(t *testing.T) {
	r := Compute(1850)

	assert.Equal(t, uint64(1850), r.XP)
	assert.Equal(t, uint64(61), r.Coins) // floor(1850/60 * 2.0)
	assert.Equal(t, TierRare, r.Tier)
}

func TestCompute_ShortSessionGrantsNoResource(t *testing.T) {
	r := Compute(250)

	assert.Equal(t, uint64(250), r.XP)
	assert.Equal(t, uint64(4), r.Coins) // floor(250/60 * 1.0)
	assert.Equal(t, TierNone, r.Tier)
}

func TestCompute_TierBoundaries(t *testing.T) {
	cases := []struct {
		elapsed uint64
		tier    Tier
	}{
		{299, TierNone},
		{300, TierTiny},
		{899, TierTiny},
		{900, TierCommon},
		{1799, TierCommon},
		{1800, TierRare},
		{3600, TierRare},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.tier, Compute(tc.elapsed).Tier, "elapsed=%d", tc.elapsed)
	}
}

func TestCompute_CoinRates(t *testing.T) {
	assert.Equal(t, uint64(15), Compute(900).Coins)  // 15min * 1.5
	assert.Equal(t, uint64(60), Compute(1800).Coins) // 30min * 2.0
	assert.Equal(t, uint64(10), Compute(600).Coins)  // 10min * 1.0
	assert.Equal(t, uint64(0), Compute(0).Coins)
}
