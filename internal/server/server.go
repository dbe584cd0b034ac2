package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/counter"
	"github.com/claude/liftlog/internal/resttimer"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
)

// defaultUserID scopes counters on a single-user instance.
const defaultUserID = 1

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine       *session.Engine
	counters     *counter.Engine
	timer        *resttimer.Timer
	store        storage.Store
	log          *slog.Logger
	apiKey       string
	timerDefault int // rest timer duration when a start request omits one
	router       chi.Router
}

// New creates a new Server with all routes configured.
func New(engine *session.Engine, counters *counter.Engine, timer *resttimer.Timer, store storage.Store, apiKey string, timerDefaultSec int, log *slog.Logger) *Server {
	s := &Server{
		engine:       engine,
		counters:     counters,
		timer:        timer,
		store:        store,
		log:          log,
		apiKey:       apiKey,
		timerDefault: timerDefaultSec,
		router:       chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		// Active workout session
		r.Get("/session", s.handleGetSession)
		r.Post("/session/start", s.handleStartSession)
		r.Post("/session/finish", s.handleFinishSession)
		r.Post("/session/discard", s.handleDiscardSession)
		r.Post("/session/reorder", s.handleReorderExercises)
		r.Post("/session/exercises", s.handleAddExercise)
		r.Route("/session/exercises/{idx}", func(r chi.Router) {
			r.Put("/", s.handleReplaceExercise)
			r.Delete("/", s.handleRemoveExercise)
			r.Post("/sets", s.handleAddSet)
			r.Patch("/sets/{num}", s.handleUpdateSet)
			r.Delete("/sets/{num}", s.handleDeleteSet)
			r.Post("/superset", s.handleToggleSuperset)
			r.Post("/dropset", s.handleToggleDropset)
			r.Put("/notes", s.handleSetNotes)
		})

		// Rest timer
		r.Get("/timer", s.handleTimerState)
		r.Post("/timer", s.handleTimerStart)
		r.Post("/timer/pause", s.handleTimerPause)
		r.Post("/timer/resume", s.handleTimerResume)
		r.Post("/timer/stop", s.handleTimerStop)

		// Counters
		r.Get("/counters", s.handleListCounters)
		r.Post("/counters", s.handleCreateCounter)
		r.Post("/counters/{id}/increment", s.handleIncrementCounter)
		r.Post("/counters/{id}/decrement", s.handleDecrementCounter)
		r.Put("/counters/{id}/today", s.handleSetCounterToday)

		// Finished-workout history
		r.Get("/workouts", s.handleQueryWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
	})
}
