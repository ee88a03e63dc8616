package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/stafflink/tender-pipeline/internal/pipeline"
	"github.com/stafflink/tender-pipeline/internal/scrape"
	"github.com/stafflink/tender-pipeline/internal/types"
)

// AcquireRequest is the request body for POST /acquire.
type AcquireRequest struct {
	Categories     []string `json:"categories,omitempty"`
	Headless       *bool    `json:"headless,omitempty"`
	MaxAttempts    int      `json:"max_attempts,omitempty"`
	AttemptTimeout int      `json:"attempt_timeout_ms,omitempty"`
}

// handleAcquire runs the full pipeline synchronously and returns the summary.
func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req AcquireRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	categories := req.Categories
	if len(categories) == 0 {
		categories = s.categories
	}
	if len(categories) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "At least one category is required")
		return
	}

	opts := scrape.Options{
		Headless:       true,
		MaxAttempts:    req.MaxAttempts,
		AttemptTimeout: time.Duration(req.AttemptTimeout) * time.Millisecond,
	}
	if req.Headless != nil {
		opts.Headless = *req.Headless
	}

	summary, err := pipeline.Run(r.Context(), s.deps, categories, opts)
	if err != nil {
		if errors.Is(err, scrape.ErrBusy) {
			s.errorResponse(w, http.StatusConflict, "An acquisition run is already in flight")
			return
		}
		var exhausted *scrape.AcquisitionExhaustedError
		if errors.As(err, &exhausted) {
			s.errorResponse(w, http.StatusBadGateway, exhausted.Error())
			return
		}
		log.Printf("[SERVER] acquisition run failed: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, summary)
}

// handleSessionStatus returns one session with its recent milestones and
// errors, or 404.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	session, err := s.monitor.SessionStatus(id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, session)
}

// handleAllSessions returns global stats, all sessions newest-first and the
// recent global errors.
func (s *Server) handleAllSessions(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.monitor.AllSessions())
}

// handleHealth returns the rolling 24h health classification.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	report := s.monitor.Health()

	status := http.StatusOK
	if report.Level == types.HealthCritical {
		status = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, status, report)
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[SERVER] failed to encode response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
