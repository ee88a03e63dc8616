package monitor

import (
	"sort"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// Health thresholds over the rolling 24h window.
const (
	criticalSuccessRate = 0.50
	warningSuccessRate  = 0.80
	criticalErrorRate   = 5.0
	warningErrorRate    = 2.0
)

// Health classifies recent acquisition health from the sessions started in
// the last 24 hours. Sessions still running are excluded so an in-flight run
// never drags down the success rate. With no finished recent sessions the
// level is healthy with an advisory recommendation.
func (m *Monitor) Health() types.HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-healthWindow)

	total, succeeded, errorCount := 0, 0, 0
	for _, s := range m.sessions {
		if s.StartedAt.Before(cutoff) || s.Status == types.SessionRunning {
			continue
		}
		total++
		if s.Status == types.SessionCompleted {
			succeeded++
		}
		errorCount += len(s.Errors)
	}

	report := types.HealthReport{
		Level:          types.HealthHealthy,
		SuccessRate:    1,
		WindowSessions: total,
	}
	if total == 0 {
		report.Recommendations = append(report.Recommendations,
			"no acquisition runs in the last 24 hours; schedule a run to refresh tender data")
		return report
	}

	report.SuccessRate = float64(succeeded) / float64(total)
	report.AvgErrorRate = float64(errorCount) / float64(total)

	switch {
	case report.SuccessRate < criticalSuccessRate || report.AvgErrorRate > criticalErrorRate:
		report.Level = types.HealthCritical
	case report.SuccessRate < warningSuccessRate || report.AvgErrorRate > warningErrorRate:
		report.Level = types.HealthWarning
	}

	if report.SuccessRate < warningSuccessRate {
		report.Recommendations = append(report.Recommendations,
			"success rate is low; check whether the portal layout or anti-bot measures changed")
	}
	if report.AvgErrorRate > warningErrorRate {
		report.Recommendations = append(report.Recommendations,
			"error rate is elevated; inspect recent session errors for a common cause")
	}
	if m.global.CaptchaSolveRate > 0 && m.global.CaptchaSolveRate < 0.5 {
		report.Recommendations = append(report.Recommendations,
			"CAPTCHA solve rate is below 50%; consider longer solve timeouts or the feed fallback")
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations, "acquisition pipeline is operating normally")
	}

	return report
}

// SessionStatus returns a copy of the session with the last 5 milestones and
// last 3 errors, or a not-found error.
func (m *Monitor) SessionStatus(id string) (*types.AcquisitionSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, notFound(id)
	}

	view := *session
	view.Milestones = tailMilestones(session.Milestones, 5)
	view.Errors = tailErrors(session.Errors, 3)
	return &view, nil
}

// AllSessionsStatus is the aggregate view: global stats, all sessions sorted
// newest-first, and the last 10 global errors.
type AllSessionsStatus struct {
	Global       types.GlobalStats          `json:"global"`
	Sessions     []types.AcquisitionSession `json:"sessions"`
	RecentErrors []types.SessionError       `json:"recent_errors"`
}

// AllSessions returns the aggregate status view.
func (m *Monitor) AllSessions() AllSessionsStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]types.AcquisitionSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, *s)
	}
	sortSessionsNewestFirst(sessions)

	return AllSessionsStatus{
		Global:       m.global,
		Sessions:     sessions,
		RecentErrors: tailErrors(m.recentErrors, 10),
	}
}

func sortSessionsNewestFirst(sessions []types.AcquisitionSession) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
}

func tailMilestones(entries []types.Milestone, n int) []types.Milestone {
	if len(entries) <= n {
		return append([]types.Milestone{}, entries...)
	}
	return append([]types.Milestone{}, entries[len(entries)-n:]...)
}

func tailErrors(entries []types.SessionError, n int) []types.SessionError {
	if len(entries) <= n {
		return append([]types.SessionError{}, entries...)
	}
	return append([]types.SessionError{}, entries[len(entries)-n:]...)
}
