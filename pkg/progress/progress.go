// Package progress implements the XP/level progression ledger.
package progress

// State is the persisted progression aggregate.
// Invariant after normalization: XP < XPToNextLevel and
// XPToNextLevel == 100 * Level * Level.
type State struct {
	XP            uint64 `json:"xp"`
	Level         uint64 `json:"level"`
	XPToNextLevel uint64 `json:"xpToNextLevel"`
}

// New returns a fresh level-1 progression state.
func New() State {
	return State{XP: 0, Level: 1, XPToNextLevel: thresholdFor(1)}
}

func thresholdFor(level uint64) uint64 {
	return 100 * level * level
}

// AddXP credits amount (already multiplier-scaled by the caller) and
// normalizes. The loop steps one level at a time so large injections,
// such as merge-driven jumps, are exactly equivalent to many small ones.
func (s *State) AddXP(amount uint64) {
	if s.Level == 0 {
		*s = New()
	}
	s.XP += amount
	s.normalize()
}

func (s *State) normalize() {
	for s.XP >= s.XPToNextLevel {
		s.XP -= s.XPToNextLevel
		s.Level++
		s.XPToNextLevel = thresholdFor(s.Level)
	}
}

// Reset returns progression to the initial {0, 1, 100} state.
func (s *State) Reset() {
	*s = New()
}

// TotalXP is the cumulative XP implied by the current level and remainder.
// It is the monotonic counter the merge rule compares.
func (s State) TotalXP() uint64 {
	var total uint64
	for l := uint64(1); l < s.Level; l++ {
		total += thresholdFor(l)
	}
	return total + s.XP
}

// Merge reconciles two snapshots of the same progression aggregate.
// Cumulative XP merges by max; level and threshold are re-derived by
// replaying normalization from level 1 so a partial merge can never
// violate the stored invariant.
func Merge(local, remote State) State {
	winning := local.TotalXP()
	if r := remote.TotalXP(); r > winning {
		winning = r
	}
	merged := New()
	merged.AddXP(winning)
	return merged
}
