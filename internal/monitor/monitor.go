// Package monitor tracks acquisition-run lifecycle and aggregate health,
// independent of how acquisition is performed.
package monitor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/stafflink/tender-pipeline/internal/types"
)

const (
	// GlobalErrorCapacity bounds the global error ring buffer.
	GlobalErrorCapacity = 100
	// DefaultRetention is how long terminal sessions are kept before cleanup.
	DefaultRetention = 24 * time.Hour
	// healthWindow is the rolling window considered by Health.
	healthWindow = 24 * time.Hour
)

// Monitor is the acquisition session bookkeeper. All methods are safe for
// concurrent use. Sessions are only ever appended to and garbage-collected;
// a session's stats block is mutated by the orchestrator driving that run.
type Monitor struct {
	mu           sync.Mutex
	sessions     map[string]*types.AcquisitionSession
	global       types.GlobalStats
	recentErrors []types.SessionError // ring, oldest evicted first
	snapshotPath string               // empty disables persistence
	captchaSeen  int
	now          func() time.Time
	verbose      bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSnapshotPath enables diagnostics persistence to the given file. The
// snapshot is written on every EndSession and loaded at construction; a
// missing file is a fresh start, not an error.
func WithSnapshotPath(path string) Option {
	return func(m *Monitor) { m.snapshotPath = path }
}

// WithVerbose enables milestone logging.
func WithVerbose(verbose bool) Option {
	return func(m *Monitor) { m.verbose = verbose }
}

// New creates a Monitor, seeding global stats from the diagnostics snapshot
// when one is configured and present.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		sessions: make(map[string]*types.AcquisitionSession),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.snapshotPath != "" {
		m.loadSnapshot()
	}
	return m
}

// StartSession creates and stores a new session keyed by id. Starting a
// session with an id that already exists is a no-op returning the existing
// session unchanged.
func (m *Monitor) StartSession(id string, config map[string]any) *types.AcquisitionSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[id]; ok {
		return existing
	}

	session := &types.AcquisitionSession{
		ID:         id,
		Config:     config,
		StartedAt:  m.now(),
		Status:     types.SessionRunning,
		Milestones: []types.Milestone{},
		Errors:     []types.SessionError{},
	}
	m.sessions[id] = session
	m.global.TotalSessions++

	if m.verbose {
		log.Printf("[MONITOR] session %s started", id)
	}
	return session
}

// AddMilestone appends a milestone to the session. Unknown sessions are a
// no-op returning false; this must never fail the caller.
func (m *Monitor) AddMilestone(id, milestoneType, message string, data map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return false
	}

	session.Milestones = append(session.Milestones, types.Milestone{
		Timestamp: m.now(),
		Type:      milestoneType,
		Message:   message,
		Data:      data,
	})

	if m.verbose {
		log.Printf("[MONITOR] session %s: %s - %s", id, milestoneType, message)
	}
	return true
}

// UpdateStats merges the non-nil fields of the patch into the session's
// stats block, last write wins per field. Unknown sessions return false.
func (m *Monitor) UpdateStats(id string, patch types.StatsPatch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return false
	}

	m.applyPatch(session, patch)
	return true
}

// ReportError appends the error to the session's error list and to the
// bounded global ring buffer, and increments the global error counter.
func (m *Monitor) ReportError(id string, err error, context string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := types.SessionError{
		Timestamp: m.now(),
		Message:   err.Error(),
		Context:   context,
		SessionID: id,
	}

	m.recentErrors = append(m.recentErrors, entry)
	if len(m.recentErrors) > GlobalErrorCapacity {
		m.recentErrors = m.recentErrors[len(m.recentErrors)-GlobalErrorCapacity:]
	}
	m.global.TotalErrors++

	session, ok := m.sessions[id]
	if !ok {
		return false
	}
	session.Errors = append(session.Errors, entry)
	return true
}

// RecordCaptcha tracks a CAPTCHA encounter and whether it was solved, for the
// global solve-rate aggregate.
func (m *Monitor) RecordCaptcha(solved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.captchaSeen++
	if solved {
		m.global.CaptchasSolved++
	}
	if m.captchaSeen > 0 {
		m.global.CaptchaSolveRate = float64(m.global.CaptchasSolved) / float64(m.captchaSeen)
	}
}

// EndSession sets the session's terminal status, stamps the end time, merges
// final stats and updates the global aggregates. Calling it again on an
// already-ended session overwrites the end time and duration (last call
// wins), so defensive calls from cleanup paths are harmless.
func (m *Monitor) EndSession(id string, success bool, finalStats *types.StatsPatch) bool {
	m.mu.Lock()

	session, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return false
	}

	alreadyEnded := session.Status != types.SessionRunning

	ended := m.now()
	session.EndedAt = &ended
	session.DurationMS = ended.Sub(session.StartedAt).Milliseconds()
	if success {
		session.Status = types.SessionCompleted
	} else {
		session.Status = types.SessionFailed
	}

	if finalStats != nil {
		m.applyPatch(session, *finalStats)
	}

	if !alreadyEnded {
		if success {
			m.global.SuccessfulRuns++
			last := ended
			m.global.LastSuccessfulRun = &last
		} else {
			m.global.FailedRuns++
		}
		m.global.TotalTendersFound += session.Stats.TendersFound
	}
	m.recomputeAvgDuration()

	if m.verbose {
		log.Printf("[MONITOR] session %s ended: status=%s duration=%dms tenders=%d",
			id, session.Status, session.DurationMS, session.Stats.TendersFound)
	}
	m.mu.Unlock()

	if m.snapshotPath != "" {
		if err := m.persistSnapshot(); err != nil {
			log.Printf("[MONITOR] failed to persist diagnostics snapshot: %v", err)
		}
	}
	return true
}

func (m *Monitor) applyPatch(session *types.AcquisitionSession, patch types.StatsPatch) {
	if patch.RequestsMade != nil {
		session.Stats.RequestsMade = *patch.RequestsMade
	}
	if patch.TendersFound != nil {
		session.Stats.TendersFound = *patch.TendersFound
	}
	if patch.TendersSaved != nil {
		session.Stats.TendersSaved = *patch.TendersSaved
	}
	if patch.CaptchasSolved != nil {
		session.Stats.CaptchasSolved = *patch.CaptchasSolved
	}
	if patch.RateLimitHits != nil {
		session.Stats.RateLimitHits = *patch.RateLimitHits
	}
	if patch.RetryAttempts != nil {
		session.Stats.RetryAttempts = *patch.RetryAttempts
	}
}

// recomputeAvgDuration averages run duration over all terminal sessions.
// Caller must hold the mutex.
func (m *Monitor) recomputeAvgDuration() {
	var total int64
	count := 0
	for _, s := range m.sessions {
		if s.Status != types.SessionRunning {
			total += s.DurationMS
			count++
		}
	}
	if count > 0 {
		m.global.AvgDurationMS = total / int64(count)
	}
}

// CleanupOldSessions evicts terminal sessions older than maxAge. Running
// sessions are never evicted regardless of age. Returns the eviction count.
func (m *Monitor) CleanupOldSessions(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	evicted := 0
	for id, s := range m.sessions {
		if s.Status == types.SessionRunning {
			continue
		}
		if s.StartedAt.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}

	if m.verbose && evicted > 0 {
		log.Printf("[MONITOR] evicted %d sessions older than %s", evicted, maxAge)
	}
	return evicted
}

// GlobalStats returns a copy of the process-wide aggregates.
func (m *Monitor) GlobalStats() types.GlobalStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.global
}

// notFound is the error returned by the query surfaces for unknown sessions.
func notFound(id string) error {
	return fmt.Errorf("session %s not found", id)
}
