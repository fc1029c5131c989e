// Package session implements the focus-session timer state machine.
//
// A session records a fixed deadline at start (startedAt + planned
// duration) rather than counting down, so host-process suspension cannot
// drift it. The start/duration pair is the only thing persisted; on
// restart the machine is re-armed from it and an already-expired session
// closes immediately with full credit.
package session

import (
	"sync"
	"time"
)

// State names for the timer machine.
type State string

const (
	// Idle means no session is running and no close routine is pending.
	Idle State = "idle"
	// Running means a session is in flight.
	Running State = "running"
	// Completed means the deadline was reached; the close routine has
	// not finished yet.
	Completed State = "completed"
	// Aborted means the user stopped early; the close routine has not
	// finished yet.
	Aborted State = "aborted"
)

// MaxDuration is the longest plannable session.
const MaxDuration = 3600 * time.Second

// Snapshot is the persisted shape of an in-flight session.
type Snapshot struct {
	StartedAt          time.Time `json:"startedAt"`
	PlannedDurationSec uint64    `json:"plannedDurationSec"`
	TopicID            string    `json:"topicId,omitempty"`
}

// Outcome describes a finished session, handed to the close routine.
// ElapsedSec is capped at the planned duration.
type Outcome struct {
	StartedAt          time.Time
	PlannedDurationSec uint64
	ElapsedSec         uint64
	TopicID            string
	Completed          bool
}

// Timer is the session state machine. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	state  State
	snap   Snapshot
	endsAt time.Time
}

// NewTimer returns an idle timer.
func NewTimer() *Timer {
	return &Timer{state: Idle}
}

// State reports the current machine state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start begins a session. No-op (false) while a session is running or a
// prior session's close routine has not finished, or when the duration
// is zero or exceeds one hour.
func (t *Timer) Start(duration time.Duration, topicID string, now time.Time) bool {
	if duration <= 0 || duration > MaxDuration {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle {
		return false
	}

	t.snap = Snapshot{
		StartedAt:          now.UTC(),
		PlannedDurationSec: uint64(duration / time.Second),
		TopicID:            topicID,
	}
	// Fixed at start; never recomputed from a running countdown.
	t.endsAt = t.snap.StartedAt.Add(duration)
	t.state = Running
	return true
}

// Restore re-arms the machine from a persisted snapshot. If the deadline
// already passed, the session transitions straight to Completed and the
// outcome is returned for the close routine.
func (t *Timer) Restore(snap Snapshot, now time.Time) (Outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle || snap.PlannedDurationSec == 0 {
		return Outcome{}, false
	}

	t.snap = snap
	t.endsAt = snap.StartedAt.Add(time.Duration(snap.PlannedDurationSec) * time.Second)
	t.state = Running

	if !now.Before(t.endsAt) {
		return t.finishLocked(now, true), true
	}
	return Outcome{}, false
}

// Snapshot returns the persisted shape of the in-flight session.
// ok is false when nothing is running.
func (t *Timer) Snapshot() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Running {
		return Snapshot{}, false
	}
	return t.snap, true
}

// Remaining reports time left at now; zero when not running.
func (t *Timer) Remaining(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Running {
		return 0
	}
	remaining := t.endsAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Tick advances the machine at now. When the deadline has been reached
// the session auto-completes exactly once and its outcome is returned.
func (t *Timer) Tick(now time.Time) (Outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Running || now.Before(t.endsAt) {
		return Outcome{}, false
	}
	return t.finishLocked(now, true), true
}

// Stop ends the session early. ok is false when nothing is running.
func (t *Timer) Stop(now time.Time) (Outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Running {
		return Outcome{}, false
	}
	return t.finishLocked(now, false), true
}

// FinishClose returns the machine to Idle after the close routine has
// fully run. Until then Start keeps rejecting: one in-flight session.
func (t *Timer) FinishClose() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Completed || t.state == Aborted {
		t.state = Idle
		t.snap = Snapshot{}
	}
}

func (t *Timer) finishLocked(now time.Time, completed bool) Outcome {
	elapsed := now.Sub(t.snap.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	elapsedSec := uint64(elapsed / time.Second)
	if elapsedSec > t.snap.PlannedDurationSec {
		elapsedSec = t.snap.PlannedDurationSec
	}

	if completed {
		t.state = Completed
	} else {
		t.state = Aborted
	}

	return Outcome{
		StartedAt:          t.snap.StartedAt,
		PlannedDurationSec: t.snap.PlannedDurationSec,
		ElapsedSec:         elapsedSec,
		TopicID:            t.snap.TopicID,
		Completed:          completed,
	}
}
