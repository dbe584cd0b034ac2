package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// LastSets returns the completed sets from the most recent workout that
// included the exercise, ordered by set number. Empty when the exercise has
// never been logged.
func (db *DB) LastSets(ctx context.Context, exerciseName string) ([]models.ExerciseSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT ws.set_number, ws.weight, ws.reps, ws.distance, ws.time_sec
		 FROM workout_sets ws
		 WHERE ws.exercise_name = $1 AND ws.is_completed
		   AND ws.workout_id = (
		     SELECT w.id FROM workouts w
		     JOIN workout_sets s ON s.workout_id = w.id
		     WHERE s.exercise_name = $1 AND s.is_completed
		     ORDER BY w.start_time DESC LIMIT 1)
		 ORDER BY ws.set_number ASC`,
		exerciseName)
	if err != nil {
		return nil, fmt.Errorf("querying previous sets: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseSet
	for rows.Next() {
		var s models.ExerciseSet
		s.IsCompleted = true
		if err := rows.Scan(&s.SetNumber, &s.Weight, &s.Reps, &s.Distance, &s.TimeSec); err != nil {
			return nil, fmt.Errorf("scanning previous set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// BestSet returns the all-time best completed set for the exercise, ranked
// by volume, then distance, then duration, then reps — the same ordering the
// personal-record comparison uses across exercise types.
func (db *DB) BestSet(ctx context.Context, exerciseName string) (*models.ExerciseSet, error) {
	var s models.ExerciseSet
	s.IsCompleted = true
	err := db.Pool.QueryRow(ctx,
		`SELECT set_number, weight, reps, distance, time_sec
		 FROM workout_sets
		 WHERE exercise_name = $1 AND is_completed
		 ORDER BY weight * reps DESC, distance DESC, time_sec DESC, reps DESC
		 LIMIT 1`,
		exerciseName).
		Scan(&s.SetNumber, &s.Weight, &s.Reps, &s.Distance, &s.TimeSec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying best set: %w", err)
	}
	return &s, nil
}
