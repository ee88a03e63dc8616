package scrape

import (
	"context"
	"time"
)

// CaptchaOutcome is the typed result of the CAPTCHA handling step.
type CaptchaOutcome string

// CAPTCHA outcomes.
const (
	CaptchaAbsent     CaptchaOutcome = "absent"
	CaptchaResolved   CaptchaOutcome = "resolved"
	CaptchaUnresolved CaptchaOutcome = "unresolved"
)

// captchaPollInterval is the gap between presence checks while waiting for a
// challenge to resolve.
const captchaPollInterval = 2 * time.Second

// handleCaptcha checks for a challenge and, if present, invokes the solving
// step and polls until the challenge disappears or the budget runs out. The
// wait consumes part of the per-attempt timeout; the budget is bounded by
// the surrounding attempt context.
func handleCaptcha(ctx context.Context, client Client, budget, pollInterval time.Duration) (CaptchaOutcome, error) {
	present, err := client.CaptchaPresent(ctx)
	if err != nil {
		return CaptchaAbsent, err
	}
	if !present {
		return CaptchaAbsent, nil
	}

	// Best-effort: even if the solve interaction fails, the challenge may
	// still clear on its own within the budget.
	_ = client.SolveCaptcha(ctx)

	if pollInterval <= 0 {
		pollInterval = captchaPollInterval
	}
	deadline := time.Now().Add(budget)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return CaptchaUnresolved, ctx.Err()
		case <-ticker.C:
			present, err := client.CaptchaPresent(ctx)
			if err != nil {
				return CaptchaUnresolved, err
			}
			if !present {
				return CaptchaResolved, nil
			}
			if time.Now().After(deadline) {
				return CaptchaUnresolved, &CaptchaUnresolvedError{Waited: budget}
			}
		}
	}
}
