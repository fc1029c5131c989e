package engine

import (
	"sort"
	"time"
)

// Settings is the small aggregate of non-counter scalars: the selected
// topic (last-writer-wins) and the desired reminder schedule (union).
type Settings struct {
	SelectedTopicID string   `json:"selectedTopicId,omitempty"`
	ReminderTimes   []string `json:"reminderTimes,omitempty"` // "HH:MM", local time
}

// mergeSettings reconciles two settings snapshots. SelectedTopicID is
// last-writer-wins on the envelope timestamps, local winning ties and
// missing timestamps (the active device is assumed authoritative).
// Reminder times merge by union.
func mergeSettings(local Settings, localAt time.Time, remote Settings, remoteAt time.Time) Settings {
	merged := local
	if remote.SelectedTopicID != "" &&
		(local.SelectedTopicID == "" || remoteAt.After(localAt)) {
		merged.SelectedTopicID = remote.SelectedTopicID
	}

	seen := make(map[string]bool, len(local.ReminderTimes)+len(remote.ReminderTimes))
	var union []string
	for _, t := range append(append([]string{}, local.ReminderTimes...), remote.ReminderTimes...) {
		if !seen[t] {
			seen[t] = true
			union = append(union, t)
		}
	}
	sort.Strings(union)
	merged.ReminderTimes = union

	return merged
}
