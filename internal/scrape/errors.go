// Package scrape drives the headless-browser acquisition of tender records
// from the procurement portal, with retry, anti-detection measures and a
// passive feed fallback.
package scrape

import (
	"errors"
	"fmt"
	"time"
)

// ErrBusy is returned when Acquire is called while another acquisition is
// already in flight on the same orchestrator.
var ErrBusy = errors.New("an acquisition run is already in flight")

// InitializationError means the browser client could not start. Fatal for
// the attempt; the orchestrator retries with a fresh client.
type InitializationError struct {
	Message string
	Cause   error
}

func (e *InitializationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("client initialization failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("client initialization failed: %s", e.Message)
}

func (e *InitializationError) Unwrap() error {
	return e.Cause
}

// NavigationTimeoutError means the portal was unreachable or too slow.
// Retryable.
type NavigationTimeoutError struct {
	URL   string
	Cause error
}

func (e *NavigationTimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("navigation to %s timed out: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("navigation to %s timed out", e.URL)
}

func (e *NavigationTimeoutError) Unwrap() error {
	return e.Cause
}

// CaptchaUnresolvedError means a CAPTCHA was detected but could not be
// resolved within the solve budget. Retryable under the normal attempt cap.
type CaptchaUnresolvedError struct {
	Waited time.Duration
}

func (e *CaptchaUnresolvedError) Error() string {
	return fmt.Sprintf("CAPTCHA unresolved after %s", e.Waited)
}

// RateLimitedError means the token bucket gating client initialization could
// not grant a permit. Distinct from navigation failure and retryable.
type RateLimitedError struct {
	Cause error
}

func (e *RateLimitedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rate limit permit not granted: %v", e.Cause)
	}
	return "rate limit permit not granted"
}

func (e *RateLimitedError) Unwrap() error {
	return e.Cause
}

// AcquisitionExhaustedError is terminal: every active-extraction attempt and
// the feed fallback failed.
type AcquisitionExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *AcquisitionExhaustedError) Error() string {
	return fmt.Sprintf("acquisition exhausted after %d attempts and feed fallback: %v", e.Attempts, e.LastErr)
}

func (e *AcquisitionExhaustedError) Unwrap() error {
	return e.LastErr
}
