// Package resttimer implements the between-sets countdown: a small state
// machine driven by a one-second ticker, with pause/resume/stop and
// observable tick events.
package resttimer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Status is the timer's current variant. Exactly one holds at any instant.
type Status int

const (
	Inactive Status = iota
	Active
	Paused
	Completed
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status by its wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a wire-name status.
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "inactive":
		*s = Inactive
	case "active":
		*s = Active
	case "paused":
		*s = Paused
	case "completed":
		*s = Completed
	default:
		return fmt.Errorf("unknown timer status %q", name)
	}
	return nil
}

// State is an observable snapshot of the timer.
type State struct {
	Status       Status `json:"status"`
	RemainingSec int    `json:"remaining_sec"`
	TotalSec     int    `json:"total_sec"`
}

// Events receives timer notifications. FinalCountdown fires once for each of
// the last three ticks (remaining 3, 2, 1) — the haptic cue in the mobile
// client. Implementations must not call back into the timer.
type Events interface {
	Tick(remaining int)
	FinalCountdown(remaining int)
	Completed(total int)
}

// NopEvents is an Events implementation that does nothing.
type NopEvents struct{}

func (NopEvents) Tick(int)           {}
func (NopEvents) FinalCountdown(int) {}
func (NopEvents) Completed(int)      {}

// Option configures the timer.
type Option func(*Timer)

// WithTickInterval sets the real-time length of one countdown second.
// Tests shrink this to run countdowns quickly.
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) {
		t.tickInterval = d
	}
}

// WithEvents sets the event sink.
func WithEvents(ev Events) Option {
	return func(t *Timer) {
		t.events = ev
	}
}

// Timer is a single countdown. Start cancels any previous countdown; the
// ticker goroutine is fully stopped (not merely ignored) on pause, stop,
// and reset, so no stray ticks arrive after a transition.
type Timer struct {
	log          *slog.Logger
	tickInterval time.Duration
	events       Events

	mu        sync.Mutex
	status    Status
	remaining int
	total     int
	stop      chan struct{} // closed to kill the current ticker goroutine
}

// New creates an inactive timer.
func New(log *slog.Logger, opts ...Option) *Timer {
	t := &Timer{
		log:          log,
		tickInterval: time.Second,
		events:       NopEvents{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns a snapshot of the timer.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{Status: t.status, RemainingSec: t.remaining, TotalSec: t.total}
}

// Start begins a countdown of the given number of seconds, cancelling any
// countdown already in progress. A duration <= 0 completes immediately.
func (t *Timer) Start(durationSec int) {
	t.mu.Lock()
	t.stopTickerLocked()

	if durationSec <= 0 {
		t.status = Completed
		t.remaining = 0
		t.total = 0
		t.mu.Unlock()
		t.events.Completed(0)
		return
	}

	t.status = Active
	t.total = durationSec
	t.remaining = durationSec
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	t.log.Debug("rest timer started", "duration_sec", durationSec)
	go t.run(stop)
}

// Pause freezes the countdown. Valid only while Active; otherwise a no-op.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != Active {
		return
	}
	t.stopTickerLocked()
	t.status = Paused
	t.log.Debug("rest timer paused", "remaining_sec", t.remaining)
}

// Resume continues a paused countdown from the frozen remaining time.
// Valid only while Paused; otherwise a no-op.
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.status != Paused {
		t.mu.Unlock()
		return
	}
	t.status = Active
	stop := make(chan struct{})
	t.stop = stop
	remaining := t.remaining
	t.mu.Unlock()

	t.log.Debug("rest timer resumed", "remaining_sec", remaining)
	go t.run(stop)
}

// Stop cancels the countdown and returns to Inactive, discarding remaining
// and total.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTickerLocked()
	t.status = Inactive
	t.remaining = 0
	t.total = 0
}

// Reset is an alias for Stop.
func (t *Timer) Reset() {
	t.Stop()
}

// stopTickerLocked kills the current ticker goroutine, if any. Callers hold
// the lock.
func (t *Timer) stopTickerLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// run decrements once per tick interval until completion or cancellation.
func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.tick(stop) {
				return
			}
		}
	}
}

// tick applies one decrement. Returns false when the countdown is over or
// this goroutine has been superseded.
func (t *Timer) tick(stop chan struct{}) bool {
	t.mu.Lock()
	if t.stop != stop || t.status != Active {
		t.mu.Unlock()
		return false
	}

	t.remaining--
	remaining := t.remaining
	total := t.total
	done := remaining <= 0
	if done {
		t.remaining = 0
		t.status = Completed
		t.stop = nil
	}
	t.mu.Unlock()

	t.events.Tick(remaining)
	if remaining >= 1 && remaining <= 3 {
		t.events.FinalCountdown(remaining)
	}
	if done {
		t.log.Debug("rest timer completed", "total_sec", total)
		t.events.Completed(total)
		return false
	}
	return true
}
