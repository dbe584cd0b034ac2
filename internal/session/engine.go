// Package session implements the active workout state machine: a single
// in-progress workout, mutated synchronously in memory and persisted only
// when the user finishes it.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// Persister receives finished workouts. Implementations live in storage.
type Persister interface {
	PersistFinishedWorkout(ctx context.Context, w models.FinishedWorkout) error
}

// History supplies read-only previous/best set values for an exercise.
// Implementations may return nil slices when no history exists.
type History interface {
	LastSets(ctx context.Context, exerciseName string) ([]models.ExerciseSet, error)
	BestSet(ctx context.Context, exerciseName string) (*models.ExerciseSet, error)
}

// Listener observes session state changes. Implementations must not call
// back into the engine.
type Listener interface {
	SessionChanged(s models.WorkoutSession)
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the engine's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine owns the single active workout session. All operations serialize on
// an internal mutex; the in-memory state mutates immediately and only Finish
// touches the network.
type Engine struct {
	store   Persister
	history History
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	active    *models.WorkoutSession
	listeners []Listener
}

// New creates a session engine with the given collaborators.
func New(store Persister, history History, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		history: history,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddListener registers a state-change observer.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Active returns a snapshot of the current session, or false if none exists.
func (e *Engine) Active() (models.WorkoutSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return models.WorkoutSession{}, false
	}
	return snapshot(e.active), true
}

// Resolve runs the conflict resolution policy against the current session.
func (e *Engine) Resolve(requestedRoutineID, requestedRoutineName string) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	var current *models.WorkoutSession
	if e.active != nil {
		s := snapshot(e.active)
		current = &s
	}
	return Resolve(current, requestedRoutineID, requestedRoutineName)
}

// Start begins a new workout session. It fails with ErrWorkoutConflict if a
// session is already active; callers resolve that through Resolve and either
// navigate back to the existing session or Discard first.
func (e *Engine) Start(ctx context.Context, routineID, routineName string, exercises []models.Exercise) (models.WorkoutSession, error) {
	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return models.WorkoutSession{}, ErrWorkoutConflict
	}

	s := &models.WorkoutSession{
		ID:          uuid.NewString(),
		RoutineID:   routineID,
		RoutineName: routineName,
		StartTime:   e.now(),
		IsActive:    true,
	}
	for _, ex := range exercises {
		s.Exercises = append(s.Exercises, e.newWorkoutExercise(ctx, ex))
	}
	e.active = s
	e.refreshProgress()
	snap := snapshot(s)
	e.mu.Unlock()

	e.log.Info("workout started", "session", s.ID, "routine", routineName, "exercises", len(exercises))
	e.notify(snap)
	return snap, nil
}

// AddExercise appends an exercise with one default set to the session.
func (e *Engine) AddExercise(ctx context.Context, ex models.Exercise) error {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	e.active.Exercises = append(e.active.Exercises, e.newWorkoutExercise(ctx, ex))
	e.refreshProgress()
	snap := snapshot(e.active)
	e.mu.Unlock()

	e.log.Debug("exercise added", "exercise", ex.Name)
	e.notify(snap)
	return nil
}

// ReplaceExercise swaps the static exercise definition at index, keeping the
// logged sets, notes, and superset/dropset flags.
func (e *Engine) ReplaceExercise(idx int, ex models.Exercise) error {
	return e.mutate(func(s *models.WorkoutSession) {
		if idx < 0 || idx >= len(s.Exercises) {
			return
		}
		s.Exercises[idx].Exercise = ex
	})
}

// RemoveExercise removes the exercise at index, discarding its sets.
// Out-of-range indices are a no-op.
func (e *Engine) RemoveExercise(idx int) error {
	return e.mutate(func(s *models.WorkoutSession) {
		if idx < 0 || idx >= len(s.Exercises) {
			return
		}
		s.Exercises = append(s.Exercises[:idx], s.Exercises[idx+1:]...)
	})
}

// ReorderExercises moves the exercise at from to position to. Out-of-range
// indices are a no-op.
func (e *Engine) ReorderExercises(from, to int) error {
	return e.mutate(func(s *models.WorkoutSession) {
		n := len(s.Exercises)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return
		}
		ex := s.Exercises[from]
		rest := append(s.Exercises[:from], s.Exercises[from+1:]...)
		s.Exercises = append(rest[:to], append([]models.WorkoutExercise{ex}, rest[to:]...)...)
	})
}

// AddSet appends a set to the exercise at index. Field values default to the
// previous set's logged values as a convenience.
func (e *Engine) AddSet(idx int) error {
	return e.mutate(func(s *models.WorkoutSession) {
		if idx < 0 || idx >= len(s.Exercises) {
			return
		}
		we := &s.Exercises[idx]
		set := models.ExerciseSet{SetNumber: len(we.Sets) + 1}
		if n := len(we.Sets); n > 0 {
			prev := we.Sets[n-1]
			set.Weight = prev.Weight
			set.Reps = prev.Reps
			set.Distance = prev.Distance
			set.TimeSec = prev.TimeSec
		}
		we.Sets = append(we.Sets, set)
	})
}

// DeleteSet removes the numbered set and renumbers the rest so set numbers
// stay gapless and 1-based. Unknown set numbers are a no-op.
func (e *Engine) DeleteSet(idx, setNumber int) error {
	return e.mutate(func(s *models.WorkoutSession) {
		if idx < 0 || idx >= len(s.Exercises) {
			return
		}
		we := &s.Exercises[idx]
		pos := -1
		for i, set := range we.Sets {
			if set.SetNumber == setNumber {
				pos = i
				break
			}
		}
		if pos < 0 {
			return
		}
		we.Sets = append(we.Sets[:pos], we.Sets[pos+1:]...)
		for i := range we.Sets {
			we.Sets[i].SetNumber = i + 1
		}
	})
}

// UpdateSet mutates one field of the numbered set in place. Values are
// clamped to >= 0, never rejected. Unknown fields or set numbers are a no-op.
func (e *Engine) UpdateSet(idx, setNumber int, field models.SetField, value float64) error {
	return e.mutate(func(s *models.WorkoutSession) {
		set := findSet(s, idx, setNumber)
		if set == nil {
			return
		}
		if value < 0 {
			value = 0
		}
		switch field {
		case models.FieldWeight:
			set.Weight = value
		case models.FieldReps:
			set.Reps = int(value)
		case models.FieldDistance:
			set.Distance = value
		case models.FieldTime:
			set.TimeSec = int(value)
		}
	})
}

// ToggleSetCompletion marks the numbered set complete or incomplete.
func (e *Engine) ToggleSetCompletion(idx, setNumber int, completed bool) error {
	return e.mutate(func(s *models.WorkoutSession) {
		set := findSet(s, idx, setNumber)
		if set == nil {
			return
		}
		set.IsCompleted = completed
	})
}

// ToggleSuperset flips the superset flag on the exercise at index.
func (e *Engine) ToggleSuperset(idx int) error {
	return e.mutate(func(s *models.WorkoutSession) {
		if idx < 0 || idx >= len(s.Exercises) {
			return
		}
		s.Exercises[idx].IsSuperset = !s.Exercises[idx].IsSuperset
	})
}

// ToggleDropset flips the dropset flag on the exercise at index.
func (e *Engine) ToggleDropset(idx int) error {
	return e.mutate(func(s *models.WorkoutSession) {
		if idx < 0 || idx >= len(s.Exercises) {
			return
		}
		s.Exercises[idx].IsDropset = !s.Exercises[idx].IsDropset
	})
}

// SetNotes replaces the free-text notes on the exercise at index.
func (e *Engine) SetNotes(idx int, notes string) error {
	return e.mutate(func(s *models.WorkoutSession) {
		if idx < 0 || idx >= len(s.Exercises) {
			return
		}
		s.Exercises[idx].Notes = notes
	})
}

// Discard clears the session unconditionally. Nothing is persisted.
func (e *Engine) Discard() error {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	id := e.active.ID
	e.active = nil
	e.mu.Unlock()

	e.log.Info("workout discarded", "session", id)
	e.notify(models.WorkoutSession{})
	return nil
}

// Finish computes the workout summary, hands it to the persister, and clears
// the session only after persistence succeeds. On failure the session stays
// active and a *PersistenceError is returned so the user can retry.
func (e *Engine) Finish(ctx context.Context) (models.WorkoutSummary, error) {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return models.WorkoutSummary{}, ErrNoActiveSession
	}

	s := e.active
	end := e.now()
	summary := models.WorkoutSummary{
		WorkoutID:     s.ID,
		RoutineID:     s.RoutineID,
		RoutineName:   s.RoutineName,
		StartTime:     s.StartTime,
		EndTime:       end,
		Duration:      end.Sub(s.StartTime),
		ExerciseCount: len(s.Exercises),
	}
	for _, we := range s.Exercises {
		for _, set := range we.Sets {
			if !set.IsCompleted {
				continue
			}
			summary.TotalSets++
			if we.Exercise.UsesWeight {
				summary.TotalVolume += set.Weight * float64(set.Reps)
			}
		}
	}
	finished := models.FinishedWorkout{
		Summary:   summary,
		Exercises: snapshot(s).Exercises,
	}
	e.mu.Unlock()

	if err := e.store.PersistFinishedWorkout(ctx, finished); err != nil {
		e.log.Error("finish workout persistence failed", "session", s.ID, "error", err)
		return models.WorkoutSummary{}, &PersistenceError{Op: "finish workout", Err: err}
	}

	e.mu.Lock()
	// The session may only be cleared if it is still the one we persisted.
	if e.active != nil && e.active.ID == summary.WorkoutID {
		e.active = nil
	}
	e.mu.Unlock()

	e.log.Info("workout finished", "session", summary.WorkoutID,
		"sets", summary.TotalSets, "volume", summary.TotalVolume,
		"duration", summary.Duration.Round(time.Second).String())
	e.notify(models.WorkoutSession{})
	return summary, nil
}

// mutate runs fn on the active session under the lock, refreshes the
// denormalized progress counters, and notifies listeners.
func (e *Engine) mutate(fn func(*models.WorkoutSession)) error {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	fn(e.active)
	e.refreshProgress()
	snap := snapshot(e.active)
	e.mu.Unlock()

	e.notify(snap)
	return nil
}

// refreshProgress recomputes CompletedSets and CurrentExercise. Callers hold
// the lock.
func (e *Engine) refreshProgress() {
	s := e.active
	s.CompletedSets = 0
	s.CurrentExercise = ""
	for _, we := range s.Exercises {
		s.CompletedSets += we.CompletedSets()
	}
	for _, we := range s.Exercises {
		if we.CompletedSets() < len(we.Sets) {
			s.CurrentExercise = we.Exercise.Name
			break
		}
	}
}

// newWorkoutExercise builds an exercise instance with one default set,
// filling the read-only previous/best reference values from history.
func (e *Engine) newWorkoutExercise(ctx context.Context, ex models.Exercise) models.WorkoutExercise {
	set := models.ExerciseSet{SetNumber: 1}

	if e.history != nil {
		last, err := e.history.LastSets(ctx, ex.Name)
		if err != nil {
			e.log.Warn("loading previous sets", "exercise", ex.Name, "error", err)
		} else if len(last) > 0 {
			prev := last[0]
			set.PreviousWeight = &prev.Weight
			set.PreviousReps = &prev.Reps
			set.PreviousDistance = &prev.Distance
			set.PreviousTimeSec = &prev.TimeSec
		}
		best, err := e.history.BestSet(ctx, ex.Name)
		if err != nil {
			e.log.Warn("loading best set", "exercise", ex.Name, "error", err)
		} else if best != nil {
			set.BestWeight = &best.Weight
			set.BestReps = &best.Reps
			set.BestDistance = &best.Distance
			set.BestTimeSec = &best.TimeSec
		}
	}

	return models.WorkoutExercise{Exercise: ex, Sets: []models.ExerciseSet{set}}
}

func (e *Engine) notify(s models.WorkoutSession) {
	e.mu.Lock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		l.SessionChanged(s)
	}
}

// findSet locates a set by exercise index and set number. Callers hold the lock.
func findSet(s *models.WorkoutSession, idx, setNumber int) *models.ExerciseSet {
	if idx < 0 || idx >= len(s.Exercises) {
		return nil
	}
	we := &s.Exercises[idx]
	for i := range we.Sets {
		if we.Sets[i].SetNumber == setNumber {
			return &we.Sets[i]
		}
	}
	return nil
}

// snapshot deep-copies a session so callers never alias engine-owned state.
func snapshot(s *models.WorkoutSession) models.WorkoutSession {
	out := *s
	out.Exercises = make([]models.WorkoutExercise, len(s.Exercises))
	for i, we := range s.Exercises {
		cp := we
		cp.Sets = make([]models.ExerciseSet, len(we.Sets))
		copy(cp.Sets, we.Sets)
		out.Exercises[i] = cp
	}
	return out
}
