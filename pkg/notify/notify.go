// Package notify schedules daily study reminders.
package notify

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
)

// TimeOfDay is a wall-clock reminder time in the local timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Parse reads a strict "HH:MM" reminder time.
func Parse(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if len(s) != 5 || s[2] != ':' {
		return t, fmt.Errorf("invalid reminder time %q: want HH:MM", s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &t.Hour, &t.Minute); err != nil {
		return t, fmt.Errorf("invalid reminder time %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid reminder time %q: out of range", s)
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// cronSpec renders the daily cron expression for this time.
func (t TimeOfDay) cronSpec() string {
	return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour)
}

// Scheduler fires a callback at each configured reminder time, daily.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries []cron.EntryID
}

// NewScheduler returns a stopped scheduler; call Start to begin firing.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Apply replaces the schedule. fn is invoked with the reminder time
// that fired.
func (s *Scheduler) Apply(times []TimeOfDay, fn func(TimeOfDay)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	for _, t := range times {
		t := t
		id, err := s.cron.AddFunc(t.cronSpec(), func() { fn(t) })
		if err != nil {
			return fmt.Errorf("schedule reminder %s: %w", t, err)
		}
		s.entries = append(s.entries, id)
	}
	return nil
}

// Start begins firing reminders in the scheduler's own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, waiting for a running callback to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
