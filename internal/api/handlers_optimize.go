package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goodtune/pqoptimizer/internal/optimizer"
	"github.com/goodtune/pqoptimizer/internal/source"
)

// maxBodyBytes bounds request bodies; M scripts are small.
const maxBodyBytes = 1 << 20

// handleOptimize forwards code to the optimizer and records the outcome.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	// A client disconnect must not abort the provider call; shutdown drains in-flight requests.
	ctx := context.WithoutCancel(r.Context())

	result, err := s.optimizer.Submit(ctx, req.PowerQueryCode)
	if err != nil {
		writeOptimizeError(w, err)
		return
	}

	if s.config.RecordOnOptimize {
		src := source.Detect(req.PowerQueryCode)
		if _, err := s.recorder.Record(ctx, result.StepsReduced(), result.PatternNames(), src); err != nil {
			// Recording failures do not fail the optimization.
			s.logger.Warn().Err(err).Str("source", src).Msg("Failed to record usage session")
		}
	}

	WriteJSON(w, http.StatusOK, result)
}

// handleEnvCheck reports credential presence without side effects.
func (s *Server) handleEnvCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, EnvCheckResponse{
		HasAPIKey:  s.config.APIKey != "",
		KeyPreview: KeyPreview(s.config.APIKey),
		Model:      s.optimizer.Model(),
		Storage:    s.config.StorageType,
	})
}

// handleDetectSource returns the connector label for the submitted code.
func (s *Server) handleDetectSource(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, DetectSourceResponse{Source: source.Detect(req.PowerQueryCode)})
}

// KeyPreview redacts a credential to its first and last four characters.
func KeyPreview(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

func writeOptimizeError(w http.ResponseWriter, err error) {
	var oe *optimizer.Error
	if !errors.As(err, &oe) {
		oe = optimizer.Classify(err, "")
	}
	WriteError(w, oe.Kind.Status(), oe.Message, oe.Details)
}

// decodeBody decodes a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
