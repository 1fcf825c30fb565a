package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/goodtune/pqoptimizer/internal/analytics"
)

// CodeExportFilename is the download name of an optimized query.
const CodeExportFilename = "optimized-query.pq"

// handleExportCSV streams the analytics export as a CSV attachment.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	store, err := s.recorder.Load(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load usage store")
		WriteError(w, http.StatusInternalServerError, "Failed to load usage data", "")
		return
	}

	now := s.now()
	summary := analytics.Summarize(store, now)
	adv := analytics.Advanced(store.Sessions, now)

	var buf bytes.Buffer
	if err := analytics.WriteCSV(&buf, now, summary, adv, store.Patterns); err != nil {
		s.logger.Error().Err(err).Msg("Failed to build analytics export")
		WriteError(w, http.StatusInternalServerError, "Failed to export analytics", "")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(analytics.ExportFilename(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleExportCode returns optimized code as a plain-text download.
func (s *Server) handleExportCode(w http.ResponseWriter, r *http.Request) {
	var req ExportCodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.OptimizedCode) == "" {
		WriteError(w, http.StatusBadRequest, "Optimized code is required", "")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(CodeExportFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(req.OptimizedCode))
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
