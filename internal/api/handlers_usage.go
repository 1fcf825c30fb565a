package api

import (
	"net/http"
	"strings"

	"github.com/goodtune/pqoptimizer/internal/analytics"
	"github.com/goodtune/pqoptimizer/internal/source"
)

// handleGetUsage returns the raw usage store.
func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	store, err := s.recorder.Load(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load usage store")
		WriteError(w, http.StatusInternalServerError, "Failed to load usage data", "")
		return
	}

	WriteJSON(w, http.StatusOK, store)
}

// handleRecordSession records a session supplied by the client.
func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	var req RecordSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	src := req.Source
	switch {
	case src == "":
		src = source.Detect(req.PowerQueryCode)
	case !source.IsLabel(src):
		WriteError(w, http.StatusBadRequest, "Invalid source", "source must be one of: "+strings.Join(source.Labels(), ", "))
		return
	}

	session, err := s.recorder.Record(r.Context(), req.StepsReduced, req.Patterns, src)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to record session")
		WriteError(w, http.StatusInternalServerError, "Failed to record session", "")
		return
	}

	WriteJSON(w, http.StatusCreated, session)
}

// handleResetUsage clears the usage store. Confirmation is the client's job.
func (s *Server) handleResetUsage(w http.ResponseWriter, r *http.Request) {
	if err := s.recorder.Reset(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset usage store")
		WriteError(w, http.StatusInternalServerError, "Failed to reset usage data", "")
		return
	}

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Usage store reset via API")
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary returns the headline dashboard figures.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	store, err := s.recorder.Load(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load usage store")
		WriteError(w, http.StatusInternalServerError, "Failed to load usage data", "")
		return
	}

	WriteJSON(w, http.StatusOK, analytics.Summarize(store, s.now()))
}

// handleAdvanced returns trend and breakdown figures.
func (s *Server) handleAdvanced(w http.ResponseWriter, r *http.Request) {
	store, err := s.recorder.Load(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load usage store")
		WriteError(w, http.StatusInternalServerError, "Failed to load usage data", "")
		return
	}

	WriteJSON(w, http.StatusOK, analytics.Advanced(store.Sessions, s.now()))
}
