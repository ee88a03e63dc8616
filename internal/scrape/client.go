package scrape

import (
	"context"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// Client is the heavyweight remote-rendering client the orchestrator drives
// through a fixed protocol: Initialize, Navigate, Extract, Cleanup. The
// orchestrator owns at most one live client at a time and tears it down on
// every exit path; a retried attempt always gets a fresh client.
type Client interface {
	// Initialize starts the rendering process. Must be called before any
	// other method.
	Initialize(ctx context.Context) error

	// Navigate loads the portal page, dismissing modal interruptions.
	Navigate(ctx context.Context, url string) error

	// CaptchaPresent reports whether a CAPTCHA challenge is structurally
	// present on the current page.
	CaptchaPresent(ctx context.Context) (bool, error)

	// SolveCaptcha invokes the solving step for a detected challenge.
	// Resolution is confirmed by polling CaptchaPresent afterwards.
	SolveCaptcha(ctx context.Context) error

	// Extract performs the search interaction for the given categories and
	// parses the result listing into raw tender records. An empty slice with
	// a nil error means the source genuinely had no matches.
	Extract(ctx context.Context, categories []string) ([]types.TenderRecord, error)

	// Cleanup tears down the rendering process. Safe to call more than once
	// and after a failed Initialize.
	Cleanup()
}

// ClientFactory produces a fresh client per attempt, in the requested
// rendering mode. Stale client state is assumed unrecoverable across
// attempts, so the orchestrator never reuses one.
type ClientFactory func(headless bool) Client
