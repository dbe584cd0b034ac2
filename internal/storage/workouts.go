package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// PersistFinishedWorkout writes the workout summary row and batch-inserts
// every logged set in one transaction. Re-finishing the same workout is a
// no-op on conflict, so a retry after a half-applied failure is safe.
func (db *DB) PersistFinishedWorkout(ctx context.Context, w models.FinishedWorkout) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sum := w.Summary
	_, err = tx.Exec(ctx,
		`INSERT INTO workouts (id, routine_id, routine_name, start_time, end_time,
		 duration_sec, total_sets, total_volume, exercise_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO NOTHING`,
		sum.WorkoutID, nullIfEmpty(sum.RoutineID), sum.RoutineName, sum.StartTime, sum.EndTime,
		int(sum.Duration.Seconds()), sum.TotalSets, sum.TotalVolume, sum.ExerciseCount)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}

	if err := insertSets(ctx, tx, sum.WorkoutID, w.Exercises); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing workout: %w", err)
	}
	return nil
}

// insertSets batch-inserts all sets of a finished workout.
func insertSets(ctx context.Context, tx pgx.Tx, workoutID string, exercises []models.WorkoutExercise) error {
	const cols = 13
	var valueStrings []string
	var args []any

	row := 0
	for pos, we := range exercises {
		for _, set := range we.Sets {
			base := row * cols
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7,
				base+8, base+9, base+10, base+11, base+12, base+13,
			))
			args = append(args, workoutID, pos, we.Exercise.Name, we.Exercise.MuscleGroup,
				we.IsSuperset, we.IsDropset, we.Notes,
				set.SetNumber, set.Weight, set.Reps, set.Distance, set.TimeSec, set.IsCompleted)
			row++
		}
	}
	if row == 0 {
		return nil
	}

	query := `INSERT INTO workout_sets (workout_id, exercise_position, exercise_name, muscle_group,
		is_superset, is_dropset, notes, set_number, weight, reps, distance, time_sec, is_completed) VALUES ` +
		strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting workout sets: %w", err)
	}
	return nil
}

// QueryWorkouts retrieves finished-workout summaries in a time range, most
// recent first.
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, COALESCE(routine_id, ''), routine_name, start_time, end_time,
		 duration_sec, total_sets, total_volume, exercise_count
		 FROM workouts
		 WHERE start_time >= $1 AND start_time < $2
		 ORDER BY start_time DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSummary
	for rows.Next() {
		var s models.WorkoutSummary
		var durationSec int
		if err := rows.Scan(&s.WorkoutID, &s.RoutineID, &s.RoutineName, &s.StartTime, &s.EndTime,
			&durationSec, &s.TotalSets, &s.TotalVolume, &s.ExerciseCount); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		s.Duration = time.Duration(durationSec) * time.Second
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetWorkout retrieves one finished workout with its sets grouped back into
// exercises in logged order.
func (db *DB) GetWorkout(ctx context.Context, id string) (*models.FinishedWorkout, error) {
	var w models.FinishedWorkout
	var durationSec int
	err := db.Pool.QueryRow(ctx,
		`SELECT id, COALESCE(routine_id, ''), routine_name, start_time, end_time,
		 duration_sec, total_sets, total_volume, exercise_count
		 FROM workouts WHERE id = $1`, id).
		Scan(&w.Summary.WorkoutID, &w.Summary.RoutineID, &w.Summary.RoutineName,
			&w.Summary.StartTime, &w.Summary.EndTime, &durationSec,
			&w.Summary.TotalSets, &w.Summary.TotalVolume, &w.Summary.ExerciseCount)
	if err != nil {
		return nil, fmt.Errorf("querying workout %s: %w", id, err)
	}
	w.Summary.Duration = time.Duration(durationSec) * time.Second

	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_position, exercise_name, muscle_group, is_superset, is_dropset, notes,
		 set_number, weight, reps, distance, time_sec, is_completed
		 FROM workout_sets WHERE workout_id = $1
		 ORDER BY exercise_position ASC, set_number ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	lastPos := -1
	for rows.Next() {
		var pos int
		var we models.WorkoutExercise
		var set models.ExerciseSet
		if err := rows.Scan(&pos, &we.Exercise.Name, &we.Exercise.MuscleGroup,
			&we.IsSuperset, &we.IsDropset, &we.Notes,
			&set.SetNumber, &set.Weight, &set.Reps, &set.Distance, &set.TimeSec, &set.IsCompleted); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		if pos != lastPos {
			w.Exercises = append(w.Exercises, we)
			lastPos = pos
		}
		last := &w.Exercises[len(w.Exercises)-1]
		last.Sets = append(last.Sets, set)
	}
	return &w, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
