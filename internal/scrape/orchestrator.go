package scrape

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/stafflink/tender-pipeline/internal/monitor"
	"github.com/stafflink/tender-pipeline/internal/types"
)

// State is the orchestrator's phase within one acquisition run.
type State string

// Run states. Completed and Failed are terminal.
const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateNavigating   State = "navigating"
	StateExtracting   State = "extracting"
	StateRetryPending State = "retry_pending"
	StateFallback     State = "fallback"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Default acquisition options.
const (
	DefaultMaxAttempts     = 3
	DefaultAttemptTimeout  = 30 * time.Second
	DefaultCaptchaBudget   = 15 * time.Second
	DefaultMinRequestDelay = 1 * time.Second
	DefaultMaxRequestDelay = 3 * time.Second
	maxBackoff             = 30 * time.Second
)

// Options configures one acquisition run.
type Options struct {
	Headless        bool
	MaxAttempts     int
	AttemptTimeout  time.Duration
	CaptchaBudget   time.Duration
	MinRequestDelay time.Duration
	MaxRequestDelay time.Duration
	// SessionID overrides the generated session identifier, mainly for tests.
	SessionID string
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	if o.CaptchaBudget <= 0 {
		o.CaptchaBudget = DefaultCaptchaBudget
	}
	if o.MinRequestDelay <= 0 {
		o.MinRequestDelay = DefaultMinRequestDelay
	}
	if o.MaxRequestDelay < o.MinRequestDelay {
		o.MaxRequestDelay = DefaultMaxRequestDelay
	}
	return o
}

// Result is the outcome of a successful acquisition run. The session is left
// running so the caller can report validation and persistence tallies into it
// before ending it.
type Result struct {
	SessionID    string
	Records      []types.TenderRecord
	UsedFallback bool
	Attempts     int
}

// Orchestrator drives the rendering client through the acquisition protocol
// with retry, backoff and the feed fallback, reporting every milestone to the
// session monitor. At most one acquisition run is in flight per orchestrator;
// the underlying client is a scarce resource that two runs must never share.
type Orchestrator struct {
	portalURL string
	newClient ClientFactory
	feed      *FeedFetcher
	limiter   *rate.Limiter
	monitor   *monitor.Monitor
	inflight  *semaphore.Weighted
	verbose   bool

	// backoffBase and captchaPoll shrink the waits in tests.
	backoffBase time.Duration
	captchaPoll time.Duration
}

// NewOrchestrator wires the orchestrator with its explicit dependencies. The
// token bucket gating client initialization is injected so the rate-limit
// policy is a visible, testable dependency.
func NewOrchestrator(portalURL string, factory ClientFactory, feed *FeedFetcher, limiter *rate.Limiter, mon *monitor.Monitor, verbose bool) *Orchestrator {
	return &Orchestrator{
		portalURL: portalURL,
		newClient: factory,
		feed:      feed,
		limiter:   limiter,
		monitor:   mon,
		inflight:  semaphore.NewWeighted(1),
		verbose:   verbose,
	}
}

// DefaultLimiter is the standard token bucket: 10 client initializations per
// 60-second window.
func DefaultLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(6*time.Second), 10)
}

// runStats accumulates the stats pushed into the session. Values are pushed
// as absolute numbers, so the monitor's last-write-wins merge holds.
type runStats struct {
	requestsMade   int
	tendersFound   int
	captchasSolved int
	rateLimitHits  int
	retryAttempts  int
}

func (s *runStats) patch() types.StatsPatch {
	return types.StatsPatch{
		RequestsMade:   &s.requestsMade,
		TendersFound:   &s.tendersFound,
		CaptchasSolved: &s.captchasSolved,
		RateLimitHits:  &s.rateLimitHits,
		RetryAttempts:  &s.retryAttempts,
	}
}

// Acquire retrieves raw tender records for the given categories. It opens a
// session, runs up to MaxAttempts active-extraction attempts with exponential
// backoff, then falls back to the passive feed when active extraction errors
// or yields nothing. On total failure it ends the session as failed and
// returns an AcquisitionExhaustedError; on success the session is left
// running for the caller to finish. A second concurrent call returns ErrBusy.
func (o *Orchestrator) Acquire(ctx context.Context, categories []string, opts Options) (*Result, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}
	opts = opts.withDefaults()

	if !o.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer o.inflight.Release(1)

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	o.monitor.StartSession(sessionID, map[string]any{
		"categories":   categories,
		"headless":     opts.Headless,
		"max_attempts": opts.MaxAttempts,
	})

	stats := &runStats{}
	result, err := o.run(ctx, sessionID, categories, opts, stats)
	o.monitor.UpdateStats(sessionID, stats.patch())

	if err != nil {
		o.transition(sessionID, StateFailed, err.Error())
		final := stats.patch()
		o.monitor.EndSession(sessionID, false, &final)
		return nil, err
	}

	o.transition(sessionID, StateCompleted, fmt.Sprintf("%d records extracted", len(result.Records)))
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, sessionID string, categories []string, opts Options, stats *runStats) (*Result, error) {
	records, attempts, activeErr := o.runActive(ctx, sessionID, categories, opts, stats)

	usedFallback := false
	if activeErr != nil || len(records) == 0 {
		// The fallback is always attempted when active extraction raised an
		// error, and also on a clean empty result.
		o.transition(sessionID, StateFallback, "active extraction yielded nothing, consulting feed")

		fallbackRecords, fallbackErr := o.feed.Fetch(ctx, categories)
		switch {
		case fallbackErr != nil && activeErr != nil:
			o.monitor.ReportError(sessionID, fallbackErr, "feed fallback")
			return nil, &AcquisitionExhaustedError{Attempts: attempts, LastErr: activeErr}
		case fallbackErr != nil:
			// Active extraction succeeded with zero records; an empty list is
			// a valid success even though the fallback could not be read.
			o.monitor.ReportError(sessionID, fallbackErr, "feed fallback")
			records = []types.TenderRecord{}
		default:
			records = fallbackRecords
			usedFallback = true
		}
	}

	stats.tendersFound = len(records)
	return &Result{
		SessionID:    sessionID,
		Records:      records,
		UsedFallback: usedFallback,
		Attempts:     attempts,
	}, nil
}

// runActive performs up to MaxAttempts browser-driven extractions. Each
// attempt gets a fresh client; stale client state is assumed unrecoverable.
func (o *Orchestrator) runActive(ctx context.Context, sessionID string, categories []string, opts Options, stats *runStats) ([]types.TenderRecord, int, error) {
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		records, err := o.attempt(ctx, sessionID, categories, opts, stats, attempt)
		if err == nil {
			return records, attempt, nil
		}
		lastErr = err

		o.monitor.ReportError(sessionID, err, fmt.Sprintf("attempt %d", attempt))
		stats.retryAttempts++
		o.monitor.UpdateStats(sessionID, stats.patch())

		if ctx.Err() != nil {
			return nil, attempt, fmt.Errorf("acquisition canceled: %w", ctx.Err())
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := backoffDelay(o.backoffBase, attempt)
		o.transition(sessionID, StateRetryPending, fmt.Sprintf("retrying in %s", delay))
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, attempt, fmt.Errorf("acquisition canceled during backoff: %w", err)
		}
	}

	return nil, opts.MaxAttempts, lastErr
}

// attempt runs one full protocol pass: permit, initialize, navigate, captcha
// check, extract. The client is torn down on every exit path.
func (o *Orchestrator) attempt(ctx context.Context, sessionID string, categories []string, opts Options, stats *runStats, attempt int) ([]types.TenderRecord, error) {
	o.transition(sessionID, StateInitializing, fmt.Sprintf("attempt %d of %d", attempt, opts.MaxAttempts))

	// The token bucket gates client initialization. An exhausted bucket is
	// recorded as a rate-limit hit, then the caller suspends for a permit;
	// that wait does not consume the attempt.
	if o.limiter != nil {
		if !o.limiter.Allow() {
			stats.rateLimitHits++
			o.monitor.UpdateStats(sessionID, stats.patch())
			o.monitor.AddMilestone(sessionID, "rate_limited", "waiting for an initialization permit", nil)
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, &RateLimitedError{Cause: err}
			}
		}
	}

	stats.requestsMade++
	o.monitor.UpdateStats(sessionID, stats.patch())

	attemptCtx, cancel := context.WithTimeout(ctx, opts.AttemptTimeout)
	defer cancel()

	client := o.newClient(opts.Headless)
	defer client.Cleanup()

	if err := client.Initialize(attemptCtx); err != nil {
		return nil, &InitializationError{Message: "rendering client failed to start", Cause: err}
	}

	o.transition(sessionID, StateNavigating, o.portalURL)
	if err := sleepCtx(attemptCtx, o.requestJitter(opts)); err != nil {
		return nil, fmt.Errorf("acquisition canceled before navigation: %w", err)
	}
	if err := client.Navigate(attemptCtx, o.portalURL); err != nil {
		return nil, err
	}

	outcome, err := handleCaptcha(attemptCtx, client, opts.CaptchaBudget, o.captchaPoll)
	switch outcome {
	case CaptchaResolved:
		stats.captchasSolved++
		o.monitor.RecordCaptcha(true)
		o.monitor.AddMilestone(sessionID, "captcha", "challenge resolved", nil)
	case CaptchaUnresolved:
		o.monitor.RecordCaptcha(false)
		if err == nil {
			err = &CaptchaUnresolvedError{Waited: opts.CaptchaBudget}
		}
		return nil, err
	case CaptchaAbsent:
		if err != nil {
			return nil, fmt.Errorf("captcha detection failed: %w", err)
		}
	}

	o.transition(sessionID, StateExtracting, fmt.Sprintf("searching %d categories", len(categories)))
	records, err := client.Extract(attemptCtx, categories)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, &NavigationTimeoutError{URL: o.portalURL, Cause: err}
		}
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	if o.verbose {
		log.Printf("[SCRAPER] attempt %d extracted %d records", attempt, len(records))
	}
	return records, nil
}

// transition records a state change as a session milestone.
func (o *Orchestrator) transition(sessionID string, state State, message string) {
	o.monitor.AddMilestone(sessionID, "phase", message, map[string]any{"state": string(state)})
	if o.verbose {
		log.Printf("[SCRAPER] session %s -> %s: %s", sessionID, state, message)
	}
}

// backoffDelay is the exponential retry delay: min(30s, base * 2^attempt)
// with a one-second base.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base << attempt
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// requestJitter picks a randomized inter-request delay within the configured
// bounds. Randomness here only shapes waiting, never extracted data.
func (o *Orchestrator) requestJitter(opts Options) time.Duration {
	spread := opts.MaxRequestDelay - opts.MinRequestDelay
	if spread <= 0 {
		return opts.MinRequestDelay
	}
	return opts.MinRequestDelay + time.Duration(rand.Int63n(int64(spread)))
}

// sleepCtx is a cooperative wait that aborts on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
