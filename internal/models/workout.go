package models

import "time"

// Exercise is a static exercise definition. The flags describe which set
// fields are meaningful for the exercise.
type Exercise struct {
	Name           string `json:"name"`
	MuscleGroup    string `json:"muscle_group"`
	Equipment      string `json:"equipment"`
	UsesWeight     bool   `json:"uses_weight"`
	TracksDistance bool   `json:"tracks_distance"`
	IsTimeBased    bool   `json:"is_time_based"`
	IsBodyweight   bool   `json:"is_bodyweight"`
}

// ExerciseSet is one performed or planned set. SetNumber is 1-based and
// gapless within its exercise. The Previous*/Best* fields are historical
// reference values supplied by storage; the engine never writes them back.
type ExerciseSet struct {
	SetNumber   int     `json:"set_number"`
	Weight      float64 `json:"weight"`
	Reps        int     `json:"reps"`
	Distance    float64 `json:"distance"`
	TimeSec     int     `json:"time_sec"`
	IsCompleted bool    `json:"is_completed"`

	PreviousWeight   *float64 `json:"previous_weight,omitempty"`
	PreviousReps     *int     `json:"previous_reps,omitempty"`
	PreviousDistance *float64 `json:"previous_distance,omitempty"`
	PreviousTimeSec  *int     `json:"previous_time_sec,omitempty"`

	BestWeight   *float64 `json:"best_weight,omitempty"`
	BestReps     *int     `json:"best_reps,omitempty"`
	BestDistance *float64 `json:"best_distance,omitempty"`
	BestTimeSec  *int     `json:"best_time_sec,omitempty"`
}

// Score returns the comparable score of a set for personal-record purposes,
// picked by the exercise's flags: volume for weighted work, distance for
// distance work, duration for time-based work, reps otherwise.
func (s ExerciseSet) Score(ex Exercise) float64 {
	switch {
	case ex.UsesWeight:
		return s.Weight * float64(s.Reps)
	case ex.TracksDistance:
		return s.Distance
	case ex.IsTimeBased:
		return float64(s.TimeSec)
	default:
		return float64(s.Reps)
	}
}

// WorkoutExercise is one exercise instance within the active workout.
// IsSuperset and IsDropset are independent flags; nothing couples them.
type WorkoutExercise struct {
	Exercise   Exercise      `json:"exercise"`
	Sets       []ExerciseSet `json:"sets"`
	IsSuperset bool          `json:"is_superset"`
	IsDropset  bool          `json:"is_dropset"`
	Notes      string        `json:"notes"`
}

// CompletedSets counts the sets marked complete.
func (we WorkoutExercise) CompletedSets() int {
	n := 0
	for _, s := range we.Sets {
		if s.IsCompleted {
			n++
		}
	}
	return n
}

// WorkoutSession is the single in-progress workout. RoutineID is empty for
// an ad-hoc quick workout.
type WorkoutSession struct {
	ID              string            `json:"id"`
	RoutineID       string            `json:"routine_id,omitempty"`
	RoutineName     string            `json:"routine_name"`
	Exercises       []WorkoutExercise `json:"exercises"`
	StartTime       time.Time         `json:"start_time"`
	IsActive        bool              `json:"is_active"`
	CurrentExercise string            `json:"current_exercise,omitempty"`
	CompletedSets   int               `json:"completed_sets"`
}

// WorkoutSummary is the result of finishing a workout. TotalVolume sums
// weight*reps over completed sets only.
type WorkoutSummary struct {
	WorkoutID     string        `json:"workout_id"`
	RoutineID     string        `json:"routine_id,omitempty"`
	RoutineName   string        `json:"routine_name"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
	TotalSets     int           `json:"total_sets"`
	TotalVolume   float64       `json:"total_volume"`
	ExerciseCount int           `json:"exercise_count"`
}

// FinishedWorkout is what gets handed to the persistence layer: the summary
// plus every logged exercise and set.
type FinishedWorkout struct {
	Summary   WorkoutSummary    `json:"summary"`
	Exercises []WorkoutExercise `json:"exercises"`
}

// SetField names a mutable ExerciseSet field for update operations.
type SetField string

const (
	FieldWeight   SetField = "weight"
	FieldReps     SetField = "reps"
	FieldDistance SetField = "distance"
	FieldTime     SetField = "time"
)

// Valid reports whether f is one of the known set fields.
func (f SetField) Valid() bool {
	switch f {
	case FieldWeight, FieldReps, FieldDistance, FieldTime:
		return true
	}
	return false
}
