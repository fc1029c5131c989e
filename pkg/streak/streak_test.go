package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var noon = time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)

func TestAdvance_FirstSession(t *testing.T) {
	var s State
	s.Advance(noon)

	assert.Equal(t, uint64(1), s.DailyStreak)
	assert.Equal(t, "2026-08-28", s.LastStudyDate)
}

func TestAdvance_Yesterday_Increments(t *testing.T) {
	s := State{DailyStreak: 4, LastStudyDate: "2026-08-27"}
	s.Advance(noon)

	assert.Equal(t, uint64(5), s.DailyStreak)
	assert.Equal(t, "2026-08-28", s.LastStudyDate)
}

func TestAdvance_SameDay_Unchanged(t *testing.T) {
	s := State{DailyStreak: 4, LastStudyDate: "2026-08-28"}
	s.Advance(noon.Add(3 * time.Hour))

	assert.Equal(t, uint64(4), s.DailyStreak)
}

func TestAdvance_GapResets(t *testing.T) {
	s := State{DailyStreak: 9, LastStudyDate: "2026-08-25"}
	s.Advance(noon)

	assert.Equal(t, uint64(1), s.DailyStreak)
}

func TestMerge_Rules(t *testing.T) {
	a := State{DailyStreak: 3, LastStudyDate: "2026-08-26"}
	b := State{DailyStreak: 5, LastStudyDate: "2026-08-28"}

	merged := Merge(a, b)

	assert.Equal(t, uint64(5), merged.DailyStreak)
	assert.Equal(t, "2026-08-28", merged.LastStudyDate)
	assert.Equal(t, Merge(b, a), merged)
	assert.Equal(t, merged, Merge(merged, merged))
}
