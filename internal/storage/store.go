package storage

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/counter"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// Store abstracts the persistence layer for the server and MCP surfaces.
// Both *DB (Postgres) and *Local (SQLite) satisfy it.
type Store interface {
	session.Persister
	session.History
	counter.Store

	QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutSummary, error)
	GetWorkout(ctx context.Context, id string) (*models.FinishedWorkout, error)
	CreateCounter(ctx context.Context, name string, userID int) (models.Counter, error)
	ListCounters(ctx context.Context, userID int) ([]models.Counter, error)
}

// Compile-time checks.
var (
	_ Store = (*DB)(nil)
	_ Store = (*Local)(nil)
)
