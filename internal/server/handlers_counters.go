package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/liftlog/internal/counter"
	"github.com/claude/liftlog/internal/models"
	"github.com/go-chi/chi/v5"
)

// counterView is a counter plus its sync flag, the pair the UI observes.
type counterView struct {
	models.Counter
	IsSyncing bool `json:"is_syncing"`
}

// handleListCounters returns the engine's merged optimistic view. Counters
// are re-read from the store first; the engine ignores snapshots for any
// counter with a sync in flight, so optimistic values never rewind.
func (s *Server) handleListCounters(w http.ResponseWriter, r *http.Request) {
	fromStore, err := s.store.ListCounters(r.Context(), defaultUserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	for _, c := range fromStore {
		s.counters.ApplySnapshot(c)
	}

	out := make([]counterView, 0)
	for _, c := range s.counters.List() {
		_, syncing, err := s.counters.Get(c.ID)
		if err != nil {
			continue
		}
		out = append(out, counterView{Counter: c, IsSyncing: syncing})
	}
	writeJSON(w, http.StatusOK, out)
}

type createCounterRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCounter(w http.ResponseWriter, r *http.Request) {
	var req createCounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	c, err := s.store.CreateCounter(r.Context(), req.Name, defaultUserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.counters.ApplySnapshot(c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleIncrementCounter(w http.ResponseWriter, r *http.Request) {
	s.counterTap(w, r, s.counters.Increment)
}

func (s *Server) handleDecrementCounter(w http.ResponseWriter, r *http.Request) {
	s.counterTap(w, r, s.counters.Decrement)
}

// counterTap applies a tap and returns the immediate optimistic view; the
// coalesced remote write follows after the debounce window.
func (s *Server) counterTap(w http.ResponseWriter, r *http.Request, tap func(string) error) {
	id := chi.URLParam(r, "id")
	if err := tap(id); err != nil {
		if errors.Is(err, counter.ErrUnknownCounter) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	c, syncing, err := s.counters.Get(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, counterView{Counter: c, IsSyncing: syncing})
}

type setTodayRequest struct {
	Value int `json:"value"`
}

func (s *Server) handleSetCounterToday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setTodayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := s.counters.SetExactTodayCount(r.Context(), id, req.Value); err != nil {
		if errors.Is(err, counter.ErrUnknownCounter) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	c, syncing, err := s.counters.Get(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, counterView{Counter: c, IsSyncing: syncing})
}
