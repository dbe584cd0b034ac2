package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateCounter inserts a new counter starting at zero, reset to today.
func (db *DB) CreateCounter(ctx context.Context, name string, userID int) (models.Counter, error) {
	c := models.Counter{
		ID:            uuid.NewString(),
		Name:          name,
		UserID:        userID,
		LastResetDate: models.Today(time.Now()),
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO counters (id, user_id, name, current_count, today_count, last_reset_date)
		 VALUES ($1,$2,$3,0,0,$4)`,
		c.ID, c.UserID, c.Name, c.LastResetDate)
	if err != nil {
		return models.Counter{}, fmt.Errorf("inserting counter: %w", err)
	}
	return c, nil
}

// ListCounters returns all counters for a user, ordered by name.
func (db *DB) ListCounters(ctx context.Context, userID int) ([]models.Counter, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, current_count, today_count, last_reset_date
		 FROM counters WHERE user_id = $1 ORDER BY name ASC`, userID)
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

// ApplyCounterDelta applies a coalesced signed delta to a counter, mirroring
// the engine's daily-reset-then-clamp rule on the server side: a stale
// last_reset_date zeroes today_count before the delta lands.
func (db *DB) ApplyCounterDelta(ctx context.Context, id string, delta int) error {
	today := models.Today(time.Now())
	tag, err := db.Pool.Exec(ctx,
		`UPDATE counters SET
		   today_count = GREATEST(CASE WHEN last_reset_date = $2 THEN today_count ELSE 0 END + $3, 0),
		   current_count = GREATEST(current_count + $3, 0),
		   last_reset_date = $2
		 WHERE id = $1`,
		id, today, delta)
	if err != nil {
		return fmt.Errorf("applying counter delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("counter %s not found", id)
	}
	return nil
}

// SetCounterAbsolute writes the exact counter values plus an audit log entry
// for the adjustment, in one transaction.
func (db *DB) SetCounterAbsolute(ctx context.Context, c models.Counter, entry models.CounterLogEntry) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE counters SET today_count = $2, current_count = $3, last_reset_date = $4
		 WHERE id = $1`,
		c.ID, c.TodayCount, c.CurrentCount, c.LastResetDate)
	if err != nil {
		return fmt.Errorf("updating counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("counter %s not found", c.ID)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO counter_logs (id, counter_id, user_id, delta, source, logged_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		entry.ID, entry.CounterID, entry.UserID, entry.Delta, entry.Source, entry.LoggedAt)
	if err != nil {
		return fmt.Errorf("inserting counter log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing counter update: %w", err)
	}
	return nil
}
