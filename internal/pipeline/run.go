// Package pipeline composes acquisition, validation, deduplication and
// persistence into one end-to-end tender refresh run.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/stafflink/tender-pipeline/internal/dedupe"
	"github.com/stafflink/tender-pipeline/internal/monitor"
	"github.com/stafflink/tender-pipeline/internal/scrape"
	"github.com/stafflink/tender-pipeline/internal/types"
	"github.com/stafflink/tender-pipeline/internal/validation"
)

// MinAcceptConfidence is the duplicate-confidence floor: a record with similar
// matches and confidence below this is rejected as a probable duplicate.
const MinAcceptConfidence = 50

// RecordStore is the persistence collaborator. Insertion is idempotent per
// external identifier.
type RecordStore interface {
	InsertIfAbsent(ctx context.Context, v *types.ValidatedTender) (bool, error)
	ListExisting(ctx context.Context, source string) ([]types.ExistingTender, error)
}

// Deps wires the pipeline's collaborators.
type Deps struct {
	Orchestrator *scrape.Orchestrator
	Validator    *validation.Validator
	Store        RecordStore
	Monitor      *monitor.Monitor
	Verbose      bool
}

// Summary tallies one pipeline run.
type Summary struct {
	SessionID          string `json:"session_id"`
	Found              int    `json:"found"`
	Accepted           int    `json:"accepted"`
	RejectedInvalid    int    `json:"rejected_invalid"`
	RejectedDuplicates int    `json:"rejected_duplicates"`
	UsedFallback       bool   `json:"used_fallback"`
}

// Run executes one full acquisition run: acquire raw records, validate each,
// check it against the existing corpus, persist the accepted ones, and
// report final tallies into the session before ending it. A record with
// validation errors is rejected individually and never aborts the batch.
func Run(ctx context.Context, deps Deps, categories []string, opts scrape.Options) (*Summary, error) {
	result, err := deps.Orchestrator.Acquire(ctx, categories, opts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		SessionID:    result.SessionID,
		Found:        len(result.Records),
		UsedFallback: result.UsedFallback,
	}

	corpus, err := deps.Store.ListExisting(ctx, "")
	if err != nil {
		err = fmt.Errorf("could not load deduplication corpus: %w", err)
		deps.Monitor.ReportError(result.SessionID, err, "persistence")
		deps.Monitor.EndSession(result.SessionID, false, nil)
		return nil, err
	}

	for _, raw := range result.Records {
		validated := deps.Validator.Validate(raw)
		if !validated.IsValid {
			summary.RejectedInvalid++
			if deps.Verbose {
				log.Printf("[PIPELINE] rejected %q: %v", raw.Title, validated.Errors)
			}
			continue
		}

		check := dedupe.CheckDuplicates(dedupe.CandidateFromValidated(validated), corpus)
		if check.Exact != nil {
			summary.RejectedDuplicates++
			continue
		}
		if len(check.Similar) > 0 && check.Confidence < MinAcceptConfidence {
			summary.RejectedDuplicates++
			if deps.Verbose {
				log.Printf("[PIPELINE] probable duplicate %q (confidence %d%%)", raw.Title, check.Confidence)
			}
			continue
		}

		inserted, err := deps.Store.InsertIfAbsent(ctx, validated)
		if err != nil {
			deps.Monitor.ReportError(result.SessionID, err, "persistence")
			continue
		}
		if !inserted {
			summary.RejectedDuplicates++
			continue
		}

		summary.Accepted++
		corpus = append(corpus, types.ExistingTender{
			ExternalID:  validated.Record.ExternalID,
			Title:       validated.Record.Title,
			Agency:      validated.Record.Agency,
			Value:       validated.Record.EstimatedValue,
			ClosingDate: validated.ClosingDate,
		})
	}

	saved := summary.Accepted
	deps.Monitor.UpdateStats(result.SessionID, types.StatsPatch{TendersSaved: &saved})
	deps.Monitor.AddMilestone(result.SessionID, "persisted",
		fmt.Sprintf("%d of %d records accepted", summary.Accepted, summary.Found), nil)
	deps.Monitor.EndSession(result.SessionID, true, nil)

	return summary, nil
}
