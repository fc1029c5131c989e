// Package streak tracks consecutive study days.
package streak

import "time"

const dayFormat = "2006-01-02"

// State is the persisted streak aggregate. LastStudyDate is a local
// calendar day in "2006-01-02" form, empty when no session has ever
// completed.
type State struct {
	DailyStreak   uint64 `json:"dailyStreak"`
	LastStudyDate string `json:"lastStudyDate,omitempty"`
}

// Day formats t as the local calendar day used throughout the tracker.
func Day(t time.Time) string {
	return t.In(time.Local).Format(dayFormat)
}

// Advance records a completed session on day today.
// Same day: unchanged. Exactly yesterday: streak increments. Any longer
// gap (or no history): streak restarts at 1.
func (s *State) Advance(today time.Time) {
	day := Day(today)
	yesterday := Day(today.AddDate(0, 0, -1))

	switch s.LastStudyDate {
	case day:
		return
	case yesterday:
		if s.DailyStreak > 0 {
			s.DailyStreak++
		} else {
			s.DailyStreak = 1
		}
	default:
		s.DailyStreak = 1
	}
	s.LastStudyDate = day
}

// Merge reconciles two streak snapshots. The streak counter merges by
// max; the most recent study date wins.
func Merge(local, remote State) State {
	merged := local
	if remote.DailyStreak > merged.DailyStreak {
		merged.DailyStreak = remote.DailyStreak
	}
	if remote.LastStudyDate > merged.LastStudyDate {
		merged.LastStudyDate = remote.LastStudyDate
	}
	return merged
}
