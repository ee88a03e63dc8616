package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// snapshotErrorLimit bounds how many recent errors the snapshot carries.
const snapshotErrorLimit = 20

// sessionSummary is the compact per-session view persisted in the snapshot.
type sessionSummary struct {
	ID           string              `json:"id"`
	Status       types.SessionStatus `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	DurationMS   int64               `json:"duration_ms"`
	TendersFound int                 `json:"tenders_found"`
	ErrorCount   int                 `json:"error_count"`
}

// snapshot is the diagnostics document persisted on every EndSession and
// loaded at startup to seed global stats and recent errors.
type snapshot struct {
	Timestamp        time.Time            `json:"timestamp"`
	GlobalStats      types.GlobalStats    `json:"global_stats"`
	RecentErrors     []types.SessionError `json:"recent_errors"`
	SessionSummaries []sessionSummary     `json:"session_summaries"`
}

// persistSnapshot writes the diagnostics snapshot to the configured path.
func (m *Monitor) persistSnapshot() error {
	m.mu.Lock()

	summaries := make([]sessionSummary, 0, len(m.sessions))
	for _, s := range m.sessions {
		summaries = append(summaries, sessionSummary{
			ID:           s.ID,
			Status:       s.Status,
			StartedAt:    s.StartedAt,
			DurationMS:   s.DurationMS,
			TendersFound: s.Stats.TendersFound,
			ErrorCount:   len(s.Errors),
		})
	}

	doc := snapshot{
		Timestamp:        m.now(),
		GlobalStats:      m.global,
		RecentErrors:     tailErrors(m.recentErrors, snapshotErrorLimit),
		SessionSummaries: summaries,
	}
	path := m.snapshotPath
	m.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write diagnostics snapshot: %w", err)
	}
	return nil
}

// loadSnapshot seeds global stats and recent errors from a previous run's
// snapshot. Absence of the file is a fresh start, not an error.
func (m *Monitor) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[MONITOR] could not read diagnostics snapshot %s: %v", m.snapshotPath, err)
		}
		return
	}

	var doc snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("[MONITOR] ignoring corrupt diagnostics snapshot %s: %v", m.snapshotPath, err)
		return
	}

	m.mu.Lock()
	m.global = doc.GlobalStats
	m.recentErrors = doc.RecentErrors
	if m.global.CaptchaSolveRate > 0 && m.global.CaptchasSolved > 0 {
		m.captchaSeen = int(float64(m.global.CaptchasSolved) / m.global.CaptchaSolveRate)
	}
	m.mu.Unlock()

	if m.verbose {
		log.Printf("[MONITOR] seeded diagnostics from snapshot (%d prior sessions)", doc.GlobalStats.TotalSessions)
	}
}
