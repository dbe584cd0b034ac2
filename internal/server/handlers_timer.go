package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleTimerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.timer.State())
}

type timerStartRequest struct {
	DurationSec int `json:"duration_sec"`
}

func (s *Server) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	var req timerStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	dur := req.DurationSec
	if dur == 0 {
		dur = s.timerDefault
	}
	s.timer.Start(dur)
	writeJSON(w, http.StatusOK, s.timer.State())
}

func (s *Server) handleTimerPause(w http.ResponseWriter, r *http.Request) {
	s.timer.Pause()
	writeJSON(w, http.StatusOK, s.timer.State())
}

func (s *Server) handleTimerResume(w http.ResponseWriter, r *http.Request) {
	s.timer.Resume()
	writeJSON(w, http.StatusOK, s.timer.State())
}

func (s *Server) handleTimerStop(w http.ResponseWriter, r *http.Request) {
	s.timer.Stop()
	writeJSON(w, http.StatusOK, s.timer.State())
}
