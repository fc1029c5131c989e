package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeSettingsSelectedTopic(t *testing.T) {
	older := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	local := Settings{SelectedTopicID: "a"}
	remote := Settings{SelectedTopicID: "b"}

	// Newer remote wins.
	got := mergeSettings(local, older, remote, newer)
	assert.Equal(t, "b", got.SelectedTopicID)

	// Newer local wins.
	got = mergeSettings(local, newer, remote, older)
	assert.Equal(t, "a", got.SelectedTopicID)

	// Ties go local.
	got = mergeSettings(local, newer, remote, newer)
	assert.Equal(t, "a", got.SelectedTopicID)

	// An empty local selection defers to any remote one.
	got = mergeSettings(Settings{}, newer, remote, older)
	assert.Equal(t, "b", got.SelectedTopicID)

	// An empty remote selection never clears local.
	got = mergeSettings(local, older, Settings{}, newer)
	assert.Equal(t, "a", got.SelectedTopicID)
}

func TestMergeSettingsRemindersUnion(t *testing.T) {
	now := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)

	local := Settings{ReminderTimes: []string{"21:30", "08:00"}}
	remote := Settings{ReminderTimes: []string{"08:00", "12:15"}}

	got := mergeSettings(local, now, remote, now)
	assert.Equal(t, []string{"08:00", "12:15", "21:30"}, got.ReminderTimes)

	// Merging with itself changes nothing.
	again := mergeSettings(got, now, got, now)
	assert.Equal(t, got, again)
}
