package engine

import (
	"sort"
	"time"

	"github.com/focusforge-dev/focusforge/pkg/notify"
	"github.com/focusforge-dev/focusforge/pkg/session"
)

// TopicView is the per-topic projection row.
type TopicView struct {
	ID                string
	Name              string
	WeeklyGoalMinutes uint64
	WeeklyMinutes     uint64
	Selected          bool
}

// ResourceView is the per-collectible projection row.
type ResourceView struct {
	ID               string
	Tier             string
	Payout           uint64
	Maturing         bool
	MaturityFraction float64
}

// View is a consistent read-only snapshot of everything a UI renders.
// It is assembled under the engine lock and safe to retain.
type View struct {
	SessionState     session.State
	SessionRemaining time.Duration
	SessionTopicID   string

	Level         uint64
	XP            uint64
	XPToNextLevel uint64

	Balance            uint64
	XPMultiplier       float64
	CurrencyMultiplier float64

	DailyStreak   uint64
	LastStudyDate string

	Topics        []TopicView
	Resources     []ResourceView
	ReminderTimes []string
	PendingPushes int
}

// Snapshot assembles the current projection.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	now := e.now()

	v := View{
		SessionState:     e.timer.State(),
		SessionRemaining: e.timer.Remaining(now),

		Level:         e.prog.Level,
		XP:            e.prog.XP,
		XPToNextLevel: e.prog.XPToNextLevel,

		Balance:            e.wal.Balance,
		XPMultiplier:       e.xpMultiplier,
		CurrencyMultiplier: e.wal.CurrencyMultiplier,

		DailyStreak:   e.str.DailyStreak,
		LastStudyDate: e.str.LastStudyDate,

		ReminderTimes: append([]string(nil), e.set.ReminderTimes...),
		PendingPushes: e.store.PendingCount(),
	}
	if snap, ok := e.timer.Snapshot(); ok {
		v.SessionTopicID = snap.TopicID
	}

	for id, t := range e.topics.Topics {
		v.Topics = append(v.Topics, TopicView{
			ID:                id,
			Name:              t.Name,
			WeeklyGoalMinutes: t.WeeklyGoalMinutes,
			WeeklyMinutes:     t.WeeklyMinutes(now),
			Selected:          id == e.set.SelectedTopicID,
		})
	}
	sort.Slice(v.Topics, func(i, j int) bool { return v.Topics[i].Name < v.Topics[j].Name })

	for id, r := range e.field.Resources {
		v.Resources = append(v.Resources, ResourceView{
			ID:               id,
			Tier:             string(r.Tier),
			Payout:           r.Payout,
			Maturing:         r.StartedAt != nil,
			MaturityFraction: r.MaturityFraction(now, e.opts.MiningSpeed),
		})
	}
	sort.Slice(v.Resources, func(i, j int) bool { return v.Resources[i].ID < v.Resources[j].ID })

	return v
}

// notifyChange fires the registered projection callback. Caller holds e.mu.
func (e *Engine) notifyChange() {
	if e.onChange == nil {
		return
	}
	e.onChange(e.viewLocked())
}

// ReminderSchedule parses the configured reminder times for the
// notification scheduler. Invalid entries were rejected at set time; a
// corrupt persisted entry is skipped.
func (e *Engine) ReminderSchedule() []notify.TimeOfDay {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []notify.TimeOfDay
	for _, s := range e.set.ReminderTimes {
		t, err := notify.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}
