package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/go-chi/chi/v5"
)

type startSessionRequest struct {
	RoutineID   string            `json:"routine_id"`
	RoutineName string            `json:"routine_name"`
	Exercises   []models.Exercise `json:"exercises"`
	// Resolve carries the user's answer to an earlier conflict response:
	// "resume", "discard", or "cancel".
	Resolve session.Choice `json:"resolve,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.RoutineName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "routine_name required"})
		return
	}

	decision := s.engine.Resolve(req.RoutineID, req.RoutineName)
	switch decision.Outcome {
	case session.StartImmediately:
		// Fall through to start below.

	case session.ResumeExisting:
		writeJSON(w, http.StatusOK, map[string]any{
			"resumed": true,
			"session": decision.Current,
		})
		return

	case session.RequiresUserChoice:
		switch req.Resolve {
		case session.ChoiceResume:
			writeJSON(w, http.StatusOK, map[string]any{
				"resumed": true,
				"session": decision.Current,
			})
			return
		case session.ChoiceDiscard:
			if err := s.engine.Discard(); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			// Fall through to start below.
		default:
			// No choice supplied (or explicit cancel): surface the conflict.
			writeJSON(w, http.StatusConflict, decision)
			return
		}
	}

	started, err := s.engine.Start(r.Context(), req.RoutineID, req.RoutineName, req.Exercises)
	if err != nil {
		if errors.Is(err, session.ErrWorkoutConflict) {
			writeJSON(w, http.StatusConflict, s.engine.Resolve(req.RoutineID, req.RoutineName))
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	active, ok := s.engine.Active()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, active)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Finish(r.Context())
	if err != nil {
		var perr *session.PersistenceError
		switch {
		case errors.Is(err, session.ErrNoActiveSession):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.As(err, &perr):
			// Session is still active; the client may retry.
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Discard(); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var ex models.Exercise
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if ex.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise name required"})
		return
	}
	s.sessionMutation(w, s.engine.AddExercise(r.Context(), ex))
}

func (s *Server) handleReplaceExercise(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	var ex models.Exercise
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.sessionMutation(w, s.engine.ReplaceExercise(idx, ex))
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	s.sessionMutation(w, s.engine.RemoveExercise(idx))
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.sessionMutation(w, s.engine.ReorderExercises(req.From, req.To))
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	s.sessionMutation(w, s.engine.AddSet(idx))
}

type updateSetRequest struct {
	Field     models.SetField `json:"field,omitempty"`
	Value     float64         `json:"value,omitempty"`
	Completed *bool           `json:"completed,omitempty"`
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	num, ok := urlIndex(w, r, "num")
	if !ok {
		return
	}
	var req updateSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if req.Completed != nil {
		s.sessionMutation(w, s.engine.ToggleSetCompletion(idx, num, *req.Completed))
		return
	}
	if !req.Field.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field must be weight, reps, distance, or time"})
		return
	}
	s.sessionMutation(w, s.engine.UpdateSet(idx, num, req.Field, req.Value))
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	num, ok := urlIndex(w, r, "num")
	if !ok {
		return
	}
	s.sessionMutation(w, s.engine.DeleteSet(idx, num))
}

func (s *Server) handleToggleSuperset(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	s.sessionMutation(w, s.engine.ToggleSuperset(idx))
}

func (s *Server) handleToggleDropset(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	s.sessionMutation(w, s.engine.ToggleDropset(idx))
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.sessionMutation(w, s.engine.SetNotes(idx, req.Notes))
}

// sessionMutation writes the post-mutation session snapshot, or 404 when no
// session is active.
func (s *Server) sessionMutation(w http.ResponseWriter, err error) {
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	active, _ := s.engine.Active()
	writeJSON(w, http.StatusOK, active)
}

// urlIndex parses a non-negative integer URL parameter, writing a 400 on
// malformed input.
func urlIndex(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
