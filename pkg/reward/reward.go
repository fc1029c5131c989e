// Package reward converts elapsed focus time into payouts.
package reward

// Tier classifies the collectible resource a session earns.
type Tier string

const (
	// TierNone means the session was too short to grant a collectible.
	TierNone Tier = ""
	// TierTiny is granted for sessions of at least 5 minutes.
	TierTiny Tier = "tiny"
	// TierCommon is granted for sessions of at least 15 minutes.
	TierCommon Tier = "common"
	// TierRare is granted for sessions of at least 30 minutes.
	TierRare Tier = "rare"
)

// Session length thresholds, in seconds.
const (
	rareThreshold   = 1800
	commonThreshold = 900
	resourceFloor   = 300
)

// Reward is the outcome of a completed session before multipliers.
type Reward struct {
	Tier  Tier
	Coins uint64
	XP    uint64
}

// Compute derives the base payout for elapsedSec of focus.
// XP is second-for-second. Coins pay a tiered per-minute rate: 2.0 from
// 30 minutes, 1.5 from 15, otherwise 1.0, floored to whole coins. No
// collectible is granted below 5 minutes. Pure; callers apply the
// multiplier ledger and fold results into the aggregates.
func Compute(elapsedSec uint64) Reward {
	minutes := float64(elapsedSec) / 60.0

	var rate float64
	var tier Tier
	switch {
	case elapsedSec >= rareThreshold:
		rate, tier = 2.0, TierRare
	case elapsedSec >= commonThreshold:
		rate, tier = 1.5, TierCommon
	default:
		rate, tier = 1.0, TierTiny
	}
	if elapsedSec < resourceFloor {
		tier = TierNone
	}

	return Reward{
		Tier:  tier,
		Coins: uint64(minutes * rate),
		XP:    elapsedSec,
	}
}
