// Package counter implements optimistic counter updates: taps mutate the
// local value immediately, rapid taps coalesce through a debounce window
// into a single remote write, and authoritative snapshots are suppressed
// while a write is in flight so the UI never rewinds.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// ErrUnknownCounter is returned for operations on a counter the engine has
// never seen a snapshot for.
var ErrUnknownCounter = errors.New("unknown counter")

// ErrSyncTimeout is reported when a flush outlives the configured sync
// timeout. The pending delta is dropped; a fresh tap is required to retry.
var ErrSyncTimeout = errors.New("counter sync timed out")

// Store is the remote source of truth. ApplyDelta carries a coalesced
// signed delta; SetAbsolute writes an exact today-count plus a log entry.
type Store interface {
	ApplyCounterDelta(ctx context.Context, id string, delta int) error
	SetCounterAbsolute(ctx context.Context, c models.Counter, entry models.CounterLogEntry) error
}

// Option configures the engine.
type Option func(*Engine)

// WithDebounce sets how long after the last tap a flush is issued.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithSettleDelay sets how long after a successful flush the syncing flag
// stays up, absorbing the echo of our own write.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.settleDelay = d
	}
}

// WithSyncTimeout bounds how long a flush may stay in flight. Zero disables
// the timeout, matching the reference behavior.
func WithSyncTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.syncTimeout = d
	}
}

// WithClock overrides the engine's time source. Used in tests to move the
// calendar day.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// OnError receives asynchronous flush failures. The engine never retries on
// its own; the callback is the UI's cue to surface a message.
type OnError func(id string, err error)

// state is the per-counter bookkeeping.
type state struct {
	counter      models.Counter
	pendingDelta int
	isSyncing    bool
	inFlight     bool
	debounce     *time.Timer
}

// Engine owns the in-memory counter cache and the debounce-and-flush
// machinery. At most one flush is in flight per counter id.
type Engine struct {
	store       Store
	log         *slog.Logger
	now         func() time.Time
	debounce    time.Duration
	settleDelay time.Duration
	syncTimeout time.Duration
	onError     OnError

	mu       sync.Mutex
	counters map[string]*state
}

// New creates a counter engine over the given store.
func New(store Store, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		log:         log,
		now:         time.Now,
		debounce:    300 * time.Millisecond,
		settleDelay: 100 * time.Millisecond,
		counters:    make(map[string]*state),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetErrorHandler installs the asynchronous flush-failure callback.
func (e *Engine) SetErrorHandler(fn OnError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = fn
}

// ApplySnapshot merges an authoritative counter snapshot into the cache.
// Snapshots for a counter with a sync in flight are ignored — the optimistic
// local value wins until the sync settles. Returns true if accepted.
func (e *Engine) ApplySnapshot(c models.Counter) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.counters[c.ID]
	if !ok {
		e.counters[c.ID] = &state{counter: c}
		return true
	}
	if st.isSyncing {
		e.log.Debug("snapshot ignored while syncing", "counter", c.ID)
		return false
	}
	st.counter = c
	return true
}

// Get returns the engine's current view of a counter, with the lazy daily
// reset applied, plus its syncing flag.
func (e *Engine) Get(id string) (models.Counter, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.counters[id]
	if !ok {
		return models.Counter{}, false, ErrUnknownCounter
	}
	st.counter.ApplyDailyReset(models.Today(e.now()))
	return st.counter, st.isSyncing, nil
}

// List returns all cached counters ordered by name.
func (e *Engine) List() []models.Counter {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := models.Today(e.now())
	out := make([]models.Counter, 0, len(e.counters))
	for _, st := range e.counters {
		st.counter.ApplyDailyReset(today)
		out = append(out, st.counter)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Increment applies +1 to the counter immediately and schedules a flush.
func (e *Engine) Increment(id string) error {
	return e.applyDelta(id, 1)
}

// Decrement applies -1 to the counter immediately and schedules a flush.
// Counts clamp at zero; a decrement that would go negative is dropped.
func (e *Engine) Decrement(id string) error {
	return e.applyDelta(id, -1)
}

// applyDelta is the shared tap path: apply locally (daily reset first,
// clamped at 0), accumulate into pendingDelta, and restart the debounce
// timer so rapid taps coalesce into one remote write.
func (e *Engine) applyDelta(id string, delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.counters[id]
	if !ok {
		return ErrUnknownCounter
	}

	st.counter.ApplyDailyReset(models.Today(e.now()))

	if delta < 0 && st.counter.TodayCount == 0 {
		return nil
	}
	st.counter.TodayCount += delta
	st.counter.CurrentCount += delta
	if st.counter.TodayCount < 0 {
		st.counter.TodayCount = 0
	}
	if st.counter.CurrentCount < 0 {
		st.counter.CurrentCount = 0
	}

	st.pendingDelta += delta
	st.isSyncing = true

	if st.debounce != nil {
		st.debounce.Stop()
	}
	st.debounce = time.AfterFunc(e.debounce, func() { e.flush(id) })
	return nil
}

// flush issues the single coalesced remote write for a counter. At-most-once:
// success or failure, the pending delta is cleared and a fresh tap is needed
// to send anything further.
func (e *Engine) flush(id string) {
	e.mu.Lock()
	st, ok := e.counters[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	if st.inFlight {
		// Previous flush still running: hold the delta until its result
		// has been applied, then try again.
		st.debounce = time.AfterFunc(e.debounce, func() { e.flush(id) })
		e.mu.Unlock()
		return
	}
	delta := st.pendingDelta
	st.pendingDelta = 0
	st.debounce = nil
	st.inFlight = true
	e.mu.Unlock()

	if delta == 0 {
		e.finishFlight(id)
		e.settle(id, nil)
		return
	}

	ctx := context.Background()
	var cancel context.CancelFunc = func() {}
	if e.syncTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.syncTimeout)
	}
	defer cancel()

	err := e.store.ApplyCounterDelta(ctx, id, delta)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", ErrSyncTimeout, e.syncTimeout)
	}
	e.finishFlight(id)
	if err != nil {
		e.log.Error("counter flush failed", "counter", id, "delta", delta, "error", err)
		e.clearSyncing(id)
		e.reportError(id, err)
		return
	}

	e.log.Debug("counter flushed", "counter", id, "delta", delta)
	e.settle(id, nil)
}

// finishFlight marks the flush result as applied, releasing the
// one-in-flight-per-id gate.
func (e *Engine) finishFlight(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.counters[id]; ok {
		st.inFlight = false
	}
}

// settle clears the syncing flag after the settle delay, letting the echo of
// our own write land before snapshots are honored again.
func (e *Engine) settle(id string, _ error) {
	if e.settleDelay <= 0 {
		e.clearSyncing(id)
		return
	}
	time.AfterFunc(e.settleDelay, func() { e.clearSyncing(id) })
}

func (e *Engine) clearSyncing(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.counters[id]; ok && st.debounce == nil && st.pendingDelta == 0 {
		st.isSyncing = false
	}
}

func (e *Engine) reportError(id string, err error) {
	e.mu.Lock()
	fn := e.onError
	e.mu.Unlock()
	if fn != nil {
		fn(id, err)
	}
}

// SetExactTodayCount bypasses the delta path: any pending debounce is
// cancelled and superseded, the difference is applied to both counts, and
// the remote write goes out immediately with an explicit log entry.
func (e *Engine) SetExactTodayCount(ctx context.Context, id string, newValue int) error {
	if newValue < 0 {
		newValue = 0
	}

	e.mu.Lock()
	st, ok := e.counters[id]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownCounter
	}

	if st.debounce != nil {
		st.debounce.Stop()
		st.debounce = nil
	}
	st.pendingDelta = 0

	st.counter.ApplyDailyReset(models.Today(e.now()))
	diff := newValue - st.counter.TodayCount
	st.counter.TodayCount = newValue
	st.counter.CurrentCount += diff
	if st.counter.CurrentCount < 0 {
		st.counter.CurrentCount = 0
	}
	st.isSyncing = true
	snapshot := st.counter
	e.mu.Unlock()

	entry := models.CounterLogEntry{
		ID:        uuid.NewString(),
		CounterID: id,
		UserID:    snapshot.UserID,
		Delta:     diff,
		Source:    "exact_set",
		LoggedAt:  e.now(),
	}

	if err := e.store.SetCounterAbsolute(ctx, snapshot, entry); err != nil {
		e.log.Error("counter exact set failed", "counter", id, "error", err)
		e.clearSyncing(id)
		return fmt.Errorf("setting counter %s: %w", id, err)
	}

	e.settle(id, nil)
	return nil
}
