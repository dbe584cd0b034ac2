package models

import "testing"

// TestScoreWeighted verifies that weighted exercises score by volume
// (weight times reps).
func TestScoreWeighted(t *testing.T) {
	ex := Exercise{Name: "Bench Press", UsesWeight: true}
	s := ExerciseSet{Weight: 60, Reps: 10}
	if got := s.Score(ex); got != 600 {
		t.Errorf("score = %v, want 600", got)
	}
}

// TestScoreDistance verifies that distance-tracked exercises score by distance.
func TestScoreDistance(t *testing.T) {
	ex := Exercise{Name: "Running", TracksDistance: true}
	s := ExerciseSet{Distance: 5.2, Reps: 1}
	if got := s.Score(ex); got != 5.2 {
		t.Errorf("score = %v, want 5.2", got)
	}
}

// TestScoreTimeBased verifies that time-based exercises score by duration.
func TestScoreTimeBased(t *testing.T) {
	ex := Exercise{Name: "Plank", IsTimeBased: true}
	s := ExerciseSet{TimeSec: 90}
	if got := s.Score(ex); got != 90 {
		t.Errorf("score = %v, want 90", got)
	}
}

// TestScoreBodyweight verifies that plain bodyweight exercises score by reps.
func TestScoreBodyweight(t *testing.T) {
	ex := Exercise{Name: "Pull Up", IsBodyweight: true}
	s := ExerciseSet{Reps: 12}
	if got := s.Score(ex); got != 12 {
		t.Errorf("score = %v, want 12", got)
	}
}

// TestScoreWeightPrecedence verifies that UsesWeight wins when an exercise
// carries multiple flags.
func TestScoreWeightPrecedence(t *testing.T) {
	ex := Exercise{Name: "Weighted Carry", UsesWeight: true, TracksDistance: true}
	s := ExerciseSet{Weight: 40, Reps: 2, Distance: 100}
	if got := s.Score(ex); got != 80 {
		t.Errorf("score = %v, want 80", got)
	}
}

// TestCompletedSets verifies the completed-set count over a mixed list.
func TestCompletedSets(t *testing.T) {
	we := WorkoutExercise{Sets: []ExerciseSet{
		{SetNumber: 1, IsCompleted: true},
		{SetNumber: 2},
		{SetNumber: 3, IsCompleted: true},
	}}
	if got := we.CompletedSets(); got != 2 {
		t.Errorf("completed sets = %d, want 2", got)
	}
}

// TestSetFieldValid verifies the known field names and rejects unknowns.
func TestSetFieldValid(t *testing.T) {
	for _, f := range []SetField{FieldWeight, FieldReps, FieldDistance, FieldTime} {
		if !f.Valid() {
			t.Errorf("Valid(%q) = false, want true", f)
		}
	}
	if SetField("rpe").Valid() {
		t.Error("Valid(\"rpe\") = true, want false")
	}
}
