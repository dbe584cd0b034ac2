package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Local is a SQLite-backed store for single-user dev deployments. It serves
// the same collaborator interfaces as DB; the schema is created inline, no
// migration tooling involved.
type Local struct {
	db *sql.DB
}

// OpenLocal opens (or creates) the SQLite database at dir/liftlog.db.
func OpenLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "liftlog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}

	for _, stmt := range localSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating local schema: %w", err)
		}
	}
	return &Local{db: db}, nil
}

// Close closes the database.
func (l *Local) Close() error {
	return l.db.Close()
}

var localSchema = []string{
	`CREATE TABLE IF NOT EXISTS workouts (
		id             TEXT PRIMARY KEY,
		routine_id     TEXT,
		routine_name   TEXT NOT NULL,
		start_time     TIMESTAMP NOT NULL,
		end_time       TIMESTAMP NOT NULL,
		duration_sec   INTEGER NOT NULL,
		total_sets     INTEGER NOT NULL,
		total_volume   REAL NOT NULL,
		exercise_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workout_sets (
		workout_id        TEXT NOT NULL,
		exercise_position INTEGER NOT NULL,
		exercise_name     TEXT NOT NULL,
		muscle_group      TEXT NOT NULL DEFAULT '',
		is_superset       INTEGER NOT NULL DEFAULT 0,
		is_dropset        INTEGER NOT NULL DEFAULT 0,
		notes             TEXT NOT NULL DEFAULT '',
		set_number        INTEGER NOT NULL,
		weight            REAL NOT NULL DEFAULT 0,
		reps              INTEGER NOT NULL DEFAULT 0,
		distance          REAL NOT NULL DEFAULT 0,
		time_sec          INTEGER NOT NULL DEFAULT 0,
		is_completed      INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (workout_id, exercise_position, set_number)
	)`,
	`CREATE TABLE IF NOT EXISTS counters (
		id              TEXT PRIMARY KEY,
		user_id         INTEGER NOT NULL DEFAULT 1,
		name            TEXT NOT NULL,
		current_count   INTEGER NOT NULL DEFAULT 0,
		today_count     INTEGER NOT NULL DEFAULT 0,
		last_reset_date TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS counter_logs (
		id         TEXT PRIMARY KEY,
		counter_id TEXT NOT NULL,
		user_id    INTEGER NOT NULL DEFAULT 1,
		delta      INTEGER NOT NULL,
		source     TEXT NOT NULL,
		logged_at  TIMESTAMP NOT NULL
	)`,
}

// PersistFinishedWorkout writes the summary row and all sets.
func (l *Local) PersistFinishedWorkout(ctx context.Context, w models.FinishedWorkout) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	sum := w.Summary
	var routineID any
	if sum.RoutineID != "" {
		routineID = sum.RoutineID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO workouts (id, routine_id, routine_name, start_time, end_time,
		 duration_sec, total_sets, total_volume, exercise_count)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		sum.WorkoutID, routineID, sum.RoutineName, sum.StartTime, sum.EndTime,
		int(sum.Duration.Seconds()), sum.TotalSets, sum.TotalVolume, sum.ExerciseCount)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}

	for pos, we := range w.Exercises {
		for _, set := range we.Sets {
			_, err = tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO workout_sets (workout_id, exercise_position, exercise_name,
				 muscle_group, is_superset, is_dropset, notes, set_number, weight, reps, distance,
				 time_sec, is_completed)
				 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
				sum.WorkoutID, pos, we.Exercise.Name, we.Exercise.MuscleGroup,
				we.IsSuperset, we.IsDropset, we.Notes,
				set.SetNumber, set.Weight, set.Reps, set.Distance, set.TimeSec, set.IsCompleted)
			if err != nil {
				return fmt.Errorf("inserting workout set: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing workout: %w", err)
	}
	return nil
}

// QueryWorkouts retrieves finished-workout summaries in a time range.
func (l *Local) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, COALESCE(routine_id, ''), routine_name, start_time, end_time,
		 duration_sec, total_sets, total_volume, exercise_count
		 FROM workouts
		 WHERE start_time >= ? AND start_time < ?
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

// GetWorkout retrieves one finished workout with its sets.
func (l *Local) GetWorkout(ctx context.Context, id string) (*models.FinishedWorkout, error) {
	var w models.FinishedWorkout
	var durationSec int
	err := l.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(routine_id, ''), routine_name, start_time, end_time,
		 duration_sec, total_sets, total_volume, exercise_count
		 FROM workouts WHERE id = ?`, id).
		Scan(&w.Summary.WorkoutID, &w.Summary.RoutineID, &w.Summary.RoutineName,
			&w.Summary.StartTime, &w.Summary.EndTime, &durationSec,
			&w.Summary.TotalSets, &w.Summary.TotalVolume, &w.Summary.ExerciseCount)
	if err != nil {
		return nil, fmt.Errorf("querying workout %s: %w", id, err)
	}
	w.Summary.Duration = time.Duration(durationSec) * time.Second

	rows, err := l.db.QueryContext(ctx,
		`SELECT exercise_position, exercise_name, muscle_group, is_superset, is_dropset, notes,
		 set_number, weight, reps, distance, time_sec, is_completed
		 FROM workout_sets WHERE workout_id = ?
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

// LastSets returns the completed sets from the most recent workout that
// included the exercise, ordered by set number.
func (l *Local) LastSets(ctx context.Context, exerciseName string) ([]models.ExerciseSet, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT ws.set_number, ws.weight, ws.reps, ws.distance, ws.time_sec
		 FROM workout_sets ws
		 WHERE ws.exercise_name = ? AND ws.is_completed
		   AND ws.workout_id = (
		     SELECT w.id FROM workouts w
		     JOIN workout_sets s ON s.workout_id = w.id
		     WHERE s.exercise_name = ? AND s.is_completed
		     ORDER BY w.start_time DESC LIMIT 1)
		 ORDER BY ws.set_number ASC`,
		exerciseName, exerciseName)
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

// BestSet returns the all-time best completed set for the exercise.
func (l *Local) BestSet(ctx context.Context, exerciseName string) (*models.ExerciseSet, error) {
	var s models.ExerciseSet
	s.IsCompleted = true
	err := l.db.QueryRowContext(ctx,
		`SELECT set_number, weight, reps, distance, time_sec
		 FROM workout_sets
		 WHERE exercise_name = ? AND is_completed
		 ORDER BY weight * reps DESC, distance DESC, time_sec DESC, reps DESC
		 LIMIT 1`,
		exerciseName).
		Scan(&s.SetNumber, &s.Weight, &s.Reps, &s.Distance, &s.TimeSec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying best set: %w", err)
	}
	return &s, nil
}

// CreateCounter inserts a new counter starting at zero.
func (l *Local) CreateCounter(ctx context.Context, name string, userID int) (models.Counter, error) {
	c := models.Counter{
		ID:            uuid.NewString(),
		Name:          name,
		UserID:        userID,
		LastResetDate: models.Today(time.Now()),
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO counters (id, user_id, name, current_count, today_count, last_reset_date)
		 VALUES (?,?,?,0,0,?)`,
		c.ID, c.UserID, c.Name, c.LastResetDate)
	if err != nil {
		return models.Counter{}, fmt.Errorf("inserting counter: %w", err)
	}
	return c, nil
}

// ListCounters returns all counters for a user, ordered by name.
func (l *Local) ListCounters(ctx context.Context, userID int) ([]models.Counter, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, name, current_count, today_count, last_reset_date
		 FROM counters WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying counters: %w", err)
	}
	defer rows.Close()

	var result []models.Counter
	for rows.Next() {
		var c models.Counter
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CurrentCount, &c.TodayCount, &c.LastResetDate); err != nil {
			return nil, fmt.Errorf("scanning counter: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ApplyCounterDelta applies a coalesced signed delta, with the server-side
// daily reset and zero clamp.
func (l *Local) ApplyCounterDelta(ctx context.Context, id string, delta int) error {
	today := models.Today(time.Now())
	res, err := l.db.ExecContext(ctx,
		`UPDATE counters SET
		   today_count = MAX((CASE WHEN last_reset_date = ? THEN today_count ELSE 0 END) + ?, 0),
		   current_count = MAX(current_count + ?, 0),
		   last_reset_date = ?
		 WHERE id = ?`,
		today, delta, delta, today, id)
	if err != nil {
		return fmt.Errorf("applying counter delta: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("counter %s not found", id)
	}
	return nil
}

// SetCounterAbsolute writes exact counter values plus an audit log entry.
func (l *Local) SetCounterAbsolute(ctx context.Context, c models.Counter, entry models.CounterLogEntry) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE counters SET today_count = ?, current_count = ?, last_reset_date = ?
		 WHERE id = ?`,
		c.TodayCount, c.CurrentCount, c.LastResetDate, c.ID)
	if err != nil {
		return fmt.Errorf("updating counter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("counter %s not found", c.ID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO counter_logs (id, counter_id, user_id, delta, source, logged_at)
		 VALUES (?,?,?,?,?,?)`,
		entry.ID, entry.CounterID, entry.UserID, entry.Delta, entry.Source, entry.LoggedAt)
	if err != nil {
		return fmt.Errorf("inserting counter log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing counter update: %w", err)
	}
	return nil
}
