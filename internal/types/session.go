package types

import "time"

// SessionStatus is the lifecycle state of one acquisition session.
type SessionStatus string

// Session statuses.
const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Milestone is one timestamped event in an acquisition session.
type Milestone struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// SessionError is one error recorded against a session.
type SessionError struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
}

// SessionStats is the mutable stats block of a session. Fields are merged
// last-write-wins per field via StatsPatch.
type SessionStats struct {
	RequestsMade   int `json:"requests_made"`
	TendersFound   int `json:"tenders_found"`
	TendersSaved   int `json:"tenders_saved"`
	CaptchasSolved int `json:"captchas_solved"`
	RateLimitHits  int `json:"rate_limit_hits"`
	RetryAttempts  int `json:"retry_attempts"`
}

// StatsPatch carries a partial stats update; nil fields are left untouched.
type StatsPatch struct {
	RequestsMade   *int `json:"requests_made,omitempty"`
	TendersFound   *int `json:"tenders_found,omitempty"`
	TendersSaved   *int `json:"tenders_saved,omitempty"`
	CaptchasSolved *int `json:"captchas_solved,omitempty"`
	RateLimitHits  *int `json:"rate_limit_hits,omitempty"`
	RetryAttempts  *int `json:"retry_attempts,omitempty"`
}

// AcquisitionSession tracks one acquisition run end to end. Milestones and
// Errors are append-only; the stats block is mutated only by the orchestrator
// driving the run.
type AcquisitionSession struct {
	ID         string         `json:"id"`
	Config     map[string]any `json:"config,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    *time.Time     `json:"ended_at,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Status     SessionStatus  `json:"status"`
	Milestones []Milestone    `json:"milestones"`
	Errors     []SessionError `json:"errors"`
	Stats      SessionStats   `json:"stats"`
}

// GlobalStats is the process-wide aggregate updated at the end of every session.
type GlobalStats struct {
	TotalSessions     int        `json:"total_sessions"`
	SuccessfulRuns    int        `json:"successful_runs"`
	FailedRuns        int        `json:"failed_runs"`
	TotalTendersFound int        `json:"total_tenders_found"`
	TotalErrors       int        `json:"total_errors"`
	AvgDurationMS     int64      `json:"avg_duration_ms"`
	CaptchasSolved    int        `json:"captchas_solved"`
	CaptchaSolveRate  float64    `json:"captcha_solve_rate"`
	LastSuccessfulRun *time.Time `json:"last_successful_run,omitempty"`
}

// HealthLevel is a coarse classification of recent acquisition health.
type HealthLevel string

// Health levels.
const (
	HealthHealthy  HealthLevel = "healthy"
	HealthWarning  HealthLevel = "warning"
	HealthCritical HealthLevel = "critical"
)

// HealthReport summarizes the last 24 hours of sessions.
type HealthReport struct {
	Level           HealthLevel `json:"level"`
	SuccessRate     float64     `json:"success_rate"`
	AvgErrorRate    float64     `json:"avg_error_rate"`
	WindowSessions  int         `json:"window_sessions"`
	Recommendations []string    `json:"recommendations"`
}
