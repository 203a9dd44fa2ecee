package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

const (
	minSensitivity = 0.5
	maxSensitivity = 1.5
)

type startRequest struct {
	Scenario    catalog.Scenario `json:"scenario"`
	Sensitivity float64          `json:"sensitivity"`
}

type chunkRequest struct {
	Text        string `json:"text"`
	TimestampMs int64  `json:"timestamp_ms"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Scenario != "" && !s.knownScenario(req.Scenario) {
		writeError(w, http.StatusBadRequest, "unknown scenario: "+string(req.Scenario))
		return
	}

	sess, err := s.deps.Sessions.Start(r.Context(), session.StartOptions{
		Scenario:    req.Scenario,
		Sensitivity: req.Sensitivity,
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.deps.Sessions.List()})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) ingestChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	var at time.Time
	if req.TimestampMs > 0 {
		at = time.UnixMilli(req.TimestampMs)
	}
	if err := s.deps.Sessions.Ingest(chi.URLParam(r, "id"), req.Text, at); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Sessions.Stop(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Cancel(chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Settings.GetSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	var st session.Settings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if st.Sensitivity < minSensitivity || st.Sensitivity > maxSensitivity {
		writeError(w, http.StatusBadRequest, "sensitivity must be between 0.5 and 1.5")
		return
	}
	if !s.knownScenario(st.Scenario) {
		writeError(w, http.StatusBadRequest, "unknown scenario: "+string(st.Scenario))
		return
	}
	if err := s.deps.Settings.SaveSettings(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotRunning), errors.Is(err, session.ErrAlreadyStarted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrEngineUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
