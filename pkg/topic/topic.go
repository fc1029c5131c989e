// Package topic implements study topics and their calendar-bucketed logs.
package topic

import (
	"time"

	"github.com/google/uuid"
)

const dayFormat = "2006-01-02"

// Topic is one study category with a weekly goal and per-day minute logs.
// DailyLogs holds at most one bucket per local calendar day; logging an
// existing day accumulates minutes.
type Topic struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	WeeklyGoalMinutes uint64            `json:"weeklyGoalMinutes"`
	DailyLogs         map[string]uint64 `json:"dailyLogs,omitempty"`
}

// List is the persisted topics aggregate, keyed by topic ID.
type List struct {
	Topics map[string]*Topic `json:"topics,omitempty"`
}

// NewList returns an empty topic list.
func NewList() *List {
	return &List{Topics: make(map[string]*Topic)}
}

// Add creates a topic and returns its ID.
func (l *List) Add(name string, weeklyGoalMinutes uint64) string {
	if l.Topics == nil {
		l.Topics = make(map[string]*Topic)
	}
	id := uuid.New().String()
	l.Topics[id] = &Topic{
		ID:                id,
		Name:              name,
		WeeklyGoalMinutes: weeklyGoalMinutes,
		DailyLogs:         make(map[string]uint64),
	}
	return id
}

// Delete removes a topic. Returns false if the ID is unknown.
func (l *List) Delete(id string) bool {
	if _, ok := l.Topics[id]; !ok {
		return false
	}
	delete(l.Topics, id)
	return true
}

// Get returns the topic for id, or nil.
func (l *List) Get(id string) *Topic {
	if l.Topics == nil {
		return nil
	}
	return l.Topics[id]
}

// Log accumulates minutes into the topic's bucket for day. Returns false
// if the topic is unknown.
func (l *List) Log(id string, day time.Time, minutes uint64) bool {
	t := l.Get(id)
	if t == nil {
		return false
	}
	if t.DailyLogs == nil {
		t.DailyLogs = make(map[string]uint64)
	}
	t.DailyLogs[day.In(time.Local).Format(dayFormat)] += minutes
	return true
}

// WeeklyMinutes sums the topic's logged minutes for the calendar week
// containing now (Monday through Sunday, local time).
func (t *Topic) WeeklyMinutes(now time.Time) uint64 {
	now = now.In(time.Local)
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the week
	}
	monday := now.AddDate(0, 0, -(weekday - 1))

	var total uint64
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i).Format(dayFormat)
		total += t.DailyLogs[day]
	}
	return total
}

// Merge reconciles two topic-list snapshots: union by topic ID; for a
// topic on both sides the weekly goal merges by max, daily buckets merge
// per-day by max, and the local name wins (the active device is assumed
// authoritative for plain renames).
func Merge(local, remote *List) *List {
	merged := NewList()
	if local != nil {
		for id, t := range local.Topics {
			merged.Topics[id] = cloneTopic(t)
		}
	}
	if remote != nil {
		for id, rt := range remote.Topics {
			lt, ok := merged.Topics[id]
			if !ok {
				merged.Topics[id] = cloneTopic(rt)
				continue
			}
			if rt.WeeklyGoalMinutes > lt.WeeklyGoalMinutes {
				lt.WeeklyGoalMinutes = rt.WeeklyGoalMinutes
			}
			for day, minutes := range rt.DailyLogs {
				if minutes > lt.DailyLogs[day] {
					lt.DailyLogs[day] = minutes
				}
			}
		}
	}
	return merged
}

func cloneTopic(t *Topic) *Topic {
	c := &Topic{
		ID:                t.ID,
		Name:              t.Name,
		WeeklyGoalMinutes: t.WeeklyGoalMinutes,
		DailyLogs:         make(map[string]uint64, len(t.DailyLogs)),
	}
	for day, minutes := range t.DailyLogs {
		c.DailyLogs[day] = minutes
	}
	return c
}
