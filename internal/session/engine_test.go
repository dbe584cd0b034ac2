package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// fakeStore records the last finished workout it was handed and can be told
// to fail.
type fakeStore struct {
	persisted []models.FinishedWorkout
	err       error
}

func (f *fakeStore) PersistFinishedWorkout(ctx context.Context, w models.FinishedWorkout) error {
	if f.err != nil {
		return f.err
	}
	f.persisted = append(f.persisted, w)
	return nil
}

// fakeHistory serves canned previous/best values.
type fakeHistory struct {
	last []models.ExerciseSet
	best *models.ExerciseSet
}

func (f *fakeHistory) LastSets(ctx context.Context, name string) ([]models.ExerciseSet, error) {
	return f.last, nil
}

func (f *fakeHistory) BestSet(ctx context.Context, name string) (*models.ExerciseSet, error) {
	return f.best, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) (*Engine, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	return New(store, &fakeHistory{}, testLogger()), store
}

var benchPress = models.Exercise{Name: "Bench Press", MuscleGroup: "Chest", UsesWeight: true}
var pullUp = models.Exercise{Name: "Pull Up", MuscleGroup: "Back", IsBodyweight: true}

// TestStartCreatesSession verifies that starting a workout produces an active
// session with one default set per exercise.
func TestStartCreatesSession(t *testing.T) {
	e, _ := newTestEngine(t)

	s, err := e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID == "" {
		t.Error("session ID is empty")
	}
	if !s.IsActive {
		t.Error("session is not active")
	}
	if len(s.Exercises) != 1 {
		t.Fatalf("exercises = %d, want 1", len(s.Exercises))
	}
	if got := len(s.Exercises[0].Sets); got != 1 {
		t.Fatalf("default sets = %d, want 1", got)
	}
	if got := s.Exercises[0].Sets[0].SetNumber; got != 1 {
		t.Errorf("first set number = %d, want 1", got)
	}
	if s.CurrentExercise != "Bench Press" {
		t.Errorf("current exercise = %q, want %q", s.CurrentExercise, "Bench Press")
	}
}

// TestStartConflict verifies that a second start while a session is active
// fails with ErrWorkoutConflict and leaves the first session untouched.
func TestStartConflict(t *testing.T) {
	e, _ := newTestEngine(t)
	first, err := e.Start(context.Background(), "r1", "Push Day", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := e.Start(context.Background(), "r2", "Leg Day", nil); !errors.Is(err, ErrWorkoutConflict) {
		t.Fatalf("error = %v, want ErrWorkoutConflict", err)
	}

	active, ok := e.Active()
	if !ok || active.ID != first.ID {
		t.Error("first session should remain active after rejected start")
	}
}

// TestStartFillsHistory verifies that previous/best reference values from
// history land on the default set.
func TestStartFillsHistory(t *testing.T) {
	store := &fakeStore{}
	hist := &fakeHistory{
		last: []models.ExerciseSet{{SetNumber: 1, Weight: 80, Reps: 8, IsCompleted: true}},
		best: &models.ExerciseSet{SetNumber: 2, Weight: 100, Reps: 5, IsCompleted: true},
	}
	e := New(store, hist, testLogger())

	s, err := e.Start(context.Background(), "r1", "Push Day", []models.Exercise{benchPress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set := s.Exercises[0].Sets[0]
	if set.PreviousWeight == nil || *set.PreviousWeight != 80 {
		t.Errorf("previous weight = %v, want 80", set.PreviousWeight)
	}
	if set.PreviousReps == nil || *set.PreviousReps != 8 {
		t.Errorf("previous reps = %v, want 8", set.PreviousReps)
	}
	if set.BestWeight == nil || *set.BestWeight != 100 {
		t.Errorf("best weight = %v, want 100", set.BestWeight)
	}
	if set.Weight != 0 || set.Reps != 0 {
		t.Error("reference values must not prefill the editable fields")
	}
}

// TestAddSetCopiesPrevious verifies that a new set starts numbered after the
// last one and copies the previous set's logged values.
func TestAddSetCopiesPrevious(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})
	e.UpdateSet(0, 1, models.FieldWeight, 60)
	e.UpdateSet(0, 1, models.FieldReps, 10)

	if err := e.AddSet(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := e.Active()
	sets := s.Exercises[0].Sets
	if len(sets) != 2 {
		t.Fatalf("sets = %d, want 2", len(sets))
	}
	if sets[1].SetNumber != 2 {
		t.Errorf("set number = %d, want 2", sets[1].SetNumber)
	}
	if sets[1].Weight != 60 || sets[1].Reps != 10 {
		t.Errorf("copied values = %v kg x %d, want 60 x 10", sets[1].Weight, sets[1].Reps)
	}
	if sets[1].IsCompleted {
		t.Error("new set must start incomplete")
	}
}

// TestDeleteSetRenumbers verifies that deleting a middle set closes the gap
// and renumbers the remainder 1-based.
func TestDeleteSetRenumbers(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})
	e.AddSet(0)
	e.AddSet(0)
	e.UpdateSet(0, 3, models.FieldWeight, 70)

	if err := e.DeleteSet(0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := e.Active()
	sets := s.Exercises[0].Sets
	if len(sets) != 2 {
		t.Fatalf("sets = %d, want 2", len(sets))
	}
	for i, set := range sets {
		if set.SetNumber != i+1 {
			t.Errorf("sets[%d].SetNumber = %d, want %d", i, set.SetNumber, i+1)
		}
	}
	// The former set 3 is now set 2 and keeps its values.
	if sets[1].Weight != 70 {
		t.Errorf("renumbered set weight = %v, want 70", sets[1].Weight)
	}
}

// TestDeleteSetUnknownNumber verifies that deleting a set that does not exist
// is a silent no-op.
func TestDeleteSetUnknownNumber(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})

	if err := e.DeleteSet(0, 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := e.Active()
	if got := len(s.Exercises[0].Sets); got != 1 {
		t.Errorf("sets = %d, want 1", got)
	}
}

// TestUpdateSetClampsNegative verifies that negative field values are clamped
// to zero instead of rejected.
func TestUpdateSetClampsNegative(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})

	if err := e.UpdateSet(0, 1, models.FieldWeight, -25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := e.Active()
	if got := s.Exercises[0].Sets[0].Weight; got != 0 {
		t.Errorf("weight = %v, want 0", got)
	}
}

// TestUpdateSetFields verifies that each field constant routes to the right
// struct member.
func TestUpdateSetFields(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})

	e.UpdateSet(0, 1, models.FieldWeight, 62.5)
	e.UpdateSet(0, 1, models.FieldReps, 8)
	e.UpdateSet(0, 1, models.FieldDistance, 1.5)
	e.UpdateSet(0, 1, models.FieldTime, 45)

	s, _ := e.Active()
	set := s.Exercises[0].Sets[0]
	if set.Weight != 62.5 {
		t.Errorf("weight = %v, want 62.5", set.Weight)
	}
	if set.Reps != 8 {
		t.Errorf("reps = %d, want 8", set.Reps)
	}
	if set.Distance != 1.5 {
		t.Errorf("distance = %v, want 1.5", set.Distance)
	}
	if set.TimeSec != 45 {
		t.Errorf("time = %d, want 45", set.TimeSec)
	}
}

// TestProgressTracking verifies that CompletedSets and CurrentExercise follow
// set completion across exercises.
func TestProgressTracking(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "r1", "Pull Day", []models.Exercise{benchPress, pullUp})

	e.ToggleSetCompletion(0, 1, true)
	s, _ := e.Active()
	if s.CompletedSets != 1 {
		t.Errorf("completed sets = %d, want 1", s.CompletedSets)
	}
	if s.CurrentExercise != "Pull Up" {
		t.Errorf("current exercise = %q, want %q", s.CurrentExercise, "Pull Up")
	}

	e.ToggleSetCompletion(1, 1, true)
	s, _ = e.Active()
	if s.CompletedSets != 2 {
		t.Errorf("completed sets = %d, want 2", s.CompletedSets)
	}
	if s.CurrentExercise != "" {
		t.Errorf("current exercise = %q, want empty when everything is done", s.CurrentExercise)
	}

	// Un-completing moves the pointer back.
	e.ToggleSetCompletion(0, 1, false)
	s, _ = e.Active()
	if s.CurrentExercise != "Bench Press" {
		t.Errorf("current exercise = %q, want %q", s.CurrentExercise, "Bench Press")
	}
}

// TestReorderExercises verifies the move semantics and that out-of-range
// indices are a no-op.
func TestReorderExercises(t *testing.T) {
	e, _ := newTestEngine(t)
	squat := models.Exercise{Name: "Squat", UsesWeight: true}
	e.Start(context.Background(), "r1", "Full Body", []models.Exercise{benchPress, pullUp, squat})

	if err := e.ReorderExercises(2, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := e.Active()
	want := []string{"Squat", "Bench Press", "Pull Up"}
	for i, name := range want {
		if got := s.Exercises[i].Exercise.Name; got != name {
			t.Errorf("exercises[%d] = %q, want %q", i, got, name)
		}
	}

	if err := e.ReorderExercises(0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ = e.Active()
	if got := s.Exercises[0].Exercise.Name; got != "Squat" {
		t.Errorf("out-of-range reorder changed order, first = %q", got)
	}
}

// TestReplaceExerciseKeepsSets verifies that swapping the exercise definition
// preserves logged sets, notes, and flags.
func TestReplaceExerciseKeepsSets(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})
	e.UpdateSet(0, 1, models.FieldWeight, 60)
	e.SetNotes(0, "slow negatives")
	e.ToggleSuperset(0)

	incline := models.Exercise{Name: "Incline Press", UsesWeight: true}
	if err := e.ReplaceExercise(0, incline); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := e.Active()
	we := s.Exercises[0]
	if we.Exercise.Name != "Incline Press" {
		t.Errorf("exercise = %q, want %q", we.Exercise.Name, "Incline Press")
	}
	if we.Sets[0].Weight != 60 {
		t.Errorf("weight = %v, want 60 (sets preserved)", we.Sets[0].Weight)
	}
	if we.Notes != "slow negatives" {
		t.Errorf("notes = %q, want preserved", we.Notes)
	}
	if !we.IsSuperset {
		t.Error("superset flag should be preserved")
	}
}

// TestToggleFlagsIndependent verifies that superset and dropset flags flip
// independently.
func TestToggleFlagsIndependent(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})

	e.ToggleSuperset(0)
	e.ToggleDropset(0)
	s, _ := e.Active()
	if !s.Exercises[0].IsSuperset || !s.Exercises[0].IsDropset {
		t.Error("both flags should be set")
	}

	e.ToggleSuperset(0)
	s, _ = e.Active()
	if s.Exercises[0].IsSuperset {
		t.Error("superset flag should be cleared")
	}
	if !s.Exercises[0].IsDropset {
		t.Error("dropset flag should be unaffected")
	}
}

// TestFinishQuickWorkout runs a complete quick workout and checks the
// resulting summary and persisted payload.
func TestFinishQuickWorkout(t *testing.T) {
	start := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	clock := start
	store := &fakeStore{}
	e := New(store, &fakeHistory{}, testLogger(), WithClock(func() time.Time { return clock }))

	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})
	e.UpdateSet(0, 1, models.FieldWeight, 60)
	e.UpdateSet(0, 1, models.FieldReps, 10)
	e.ToggleSetCompletion(0, 1, true)

	clock = start.Add(30 * time.Minute)
	summary, err := e.Finish(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalSets != 1 {
		t.Errorf("total sets = %d, want 1", summary.TotalSets)
	}
	if summary.TotalVolume != 600 {
		t.Errorf("total volume = %v, want 600", summary.TotalVolume)
	}
	if summary.ExerciseCount != 1 {
		t.Errorf("exercise count = %d, want 1", summary.ExerciseCount)
	}
	if summary.Duration != 30*time.Minute {
		t.Errorf("duration = %v, want 30m", summary.Duration)
	}

	if _, ok := e.Active(); ok {
		t.Error("session should be cleared after a successful finish")
	}
	if len(store.persisted) != 1 {
		t.Fatalf("persisted workouts = %d, want 1", len(store.persisted))
	}
	if got := len(store.persisted[0].Exercises); got != 1 {
		t.Errorf("persisted exercises = %d, want 1", got)
	}
}

// TestFinishSkipsIncompleteSets verifies that incomplete sets count for
// neither total sets nor volume.
func TestFinishSkipsIncompleteSets(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})
	e.UpdateSet(0, 1, models.FieldWeight, 60)
	e.UpdateSet(0, 1, models.FieldReps, 10)
	e.AddSet(0)
	e.ToggleSetCompletion(0, 2, true)

	summary, err := e.Finish(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalSets != 1 {
		t.Errorf("total sets = %d, want 1", summary.TotalSets)
	}
	if summary.TotalVolume != 600 {
		t.Errorf("total volume = %v, want 600 (only the completed set)", summary.TotalVolume)
	}
}

// TestFinishVolumeIgnoresBodyweight verifies that volume only accumulates for
// weighted exercises.
func TestFinishVolumeIgnoresBodyweight(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{pullUp})
	e.UpdateSet(0, 1, models.FieldReps, 12)
	e.ToggleSetCompletion(0, 1, true)

	summary, err := e.Finish(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalSets != 1 {
		t.Errorf("total sets = %d, want 1", summary.TotalSets)
	}
	if summary.TotalVolume != 0 {
		t.Errorf("total volume = %v, want 0", summary.TotalVolume)
	}
}

// TestFinishPersistenceFailureKeepsSession verifies that a failing persister
// returns a *PersistenceError and leaves the session active for retry.
func TestFinishPersistenceFailureKeepsSession(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	e := New(store, &fakeHistory{}, testLogger())
	started, _ := e.Start(context.Background(), "r1", "Push Day", []models.Exercise{benchPress})
	e.ToggleSetCompletion(0, 1, true)

	_, err := e.Finish(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PersistenceError", err)
	}

	active, ok := e.Active()
	if !ok {
		t.Fatal("session should stay active after persistence failure")
	}
	if active.ID != started.ID || active.CompletedSets != 1 {
		t.Error("session state should be untouched after persistence failure")
	}

	// Retry succeeds once the store recovers.
	store.err = nil
	if _, err := e.Finish(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if _, ok := e.Active(); ok {
		t.Error("session should be cleared after successful retry")
	}
}

// TestDiscard verifies that discarding clears the session without touching
// the store.
func TestDiscard(t *testing.T) {
	e, store := newTestEngine(t)
	e.Start(context.Background(), "r1", "Push Day", []models.Exercise{benchPress})

	if err := e.Discard(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.Active(); ok {
		t.Error("session should be gone after discard")
	}
	if len(store.persisted) != 0 {
		t.Error("discard must not persist anything")
	}
	if err := e.Discard(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("second discard error = %v, want ErrNoActiveSession", err)
	}
}

// TestOperationsWithoutSession verifies that mutations without an active
// session fail with ErrNoActiveSession.
func TestOperationsWithoutSession(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.AddSet(0); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("AddSet error = %v, want ErrNoActiveSession", err)
	}
	if err := e.AddExercise(context.Background(), benchPress); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("AddExercise error = %v, want ErrNoActiveSession", err)
	}
	if _, err := e.Finish(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Finish error = %v, want ErrNoActiveSession", err)
	}
}

// TestSnapshotIsolation verifies that mutating a returned snapshot does not
// leak into engine state.
func TestSnapshotIsolation(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})

	s, _ := e.Active()
	s.Exercises[0].Sets[0].Weight = 999

	fresh, _ := e.Active()
	if fresh.Exercises[0].Sets[0].Weight != 0 {
		t.Error("snapshot mutation leaked into engine state")
	}
}

// recordingListener captures every session change notification.
type recordingListener struct {
	changes []models.WorkoutSession
}

func (r *recordingListener) SessionChanged(s models.WorkoutSession) {
	r.changes = append(r.changes, s)
}

// TestListenerNotifications verifies that listeners observe start, mutation,
// and finish.
func TestListenerNotifications(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := &recordingListener{}
	e.AddListener(rec)

	e.Start(context.Background(), "", "Quick Workout", []models.Exercise{benchPress})
	e.ToggleSetCompletion(0, 1, true)
	e.Finish(context.Background())

	if len(rec.changes) != 3 {
		t.Fatalf("notifications = %d, want 3", len(rec.changes))
	}
	if !rec.changes[0].IsActive {
		t.Error("first notification should carry the active session")
	}
	if rec.changes[1].CompletedSets != 1 {
		t.Errorf("second notification completed sets = %d, want 1", rec.changes[1].CompletedSets)
	}
	if rec.changes[2].IsActive {
		t.Error("final notification should carry the cleared session")
	}
}
