package dedupe

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// Similarity weights. When a field is missing on either side its weight is
// dropped and the remaining weights are renormalized.
const (
	titleWeight  = 0.4
	agencyWeight = 0.2
	valueWeight  = 0.2
	dateWeight   = 0.2
)

// SimilarThreshold is the score above which two records are flagged as
// similar and routed for review.
const SimilarThreshold = 0.8

// dateDecayDays is the gap at which closing-date closeness reaches zero.
const dateDecayDays = 30.0

// Candidate carries the fields of a new record that duplicate detection uses.
type Candidate struct {
	Title       string
	Agency      string
	Value       float64
	ClosingDate time.Time
}

// CandidateFromValidated builds a Candidate from a validated tender.
func CandidateFromValidated(v *types.ValidatedTender) Candidate {
	return Candidate{
		Title:       v.Record.Title,
		Agency:      v.Record.Agency,
		Value:       v.Record.EstimatedValue,
		ClosingDate: v.ClosingDate,
	}
}

// CheckDuplicates compares a candidate against the corpus of previously
// accepted records. A fingerprint match short-circuits to an exact duplicate
// with confidence 0; otherwise entries scoring above SimilarThreshold are
// collected in descending order and confidence reflects the best match.
func CheckDuplicates(c Candidate, corpus []types.ExistingTender) *types.DuplicateCheck {
	fp := Fingerprint(c.Title, c.Agency, c.Value, c.ClosingDate)
	for i := range corpus {
		existing := corpus[i]
		if fp == Fingerprint(existing.Title, existing.Agency, existing.Value, existing.ClosingDate) {
			return &types.DuplicateCheck{Exact: &existing, Confidence: 0}
		}
	}

	var similar []types.SimilarityVerdict
	maxSimilarity := 0.0
	for _, existing := range corpus {
		score, reasons := similarity(c, existing)
		if score > SimilarThreshold {
			similar = append(similar, types.SimilarityVerdict{
				Match:      existing,
				Similarity: score,
				Reasons:    reasons,
			})
			if score > maxSimilarity {
				maxSimilarity = score
			}
		}
	}

	sort.Slice(similar, func(i, j int) bool {
		return similar[i].Similarity > similar[j].Similarity
	})

	confidence := 100
	if len(similar) > 0 {
		confidence = int(math.Round((1 - maxSimilarity) * 100))
	}

	return &types.DuplicateCheck{Similar: similar, Confidence: confidence}
}

// similarity blends title-token overlap, agency equality, value closeness and
// closing-date closeness, renormalized by the weights actually applicable.
func similarity(c Candidate, existing types.ExistingTender) (float64, []string) {
	var score, weightSum float64
	var reasons []string

	if c.Title != "" && existing.Title != "" {
		overlap := titleSimilarity(c.Title, existing.Title)
		score += titleWeight * overlap
		weightSum += titleWeight
		if overlap > 0.7 {
			reasons = append(reasons, fmt.Sprintf("titles share %.0f%% of their words", overlap*100))
		}
	}

	if c.Agency != "" && existing.Agency != "" {
		weightSum += agencyWeight
		if strings.EqualFold(strings.TrimSpace(c.Agency), strings.TrimSpace(existing.Agency)) {
			score += agencyWeight
			reasons = append(reasons, "same agency")
		}
	}

	if c.Value > 0 && existing.Value > 0 {
		closeness := valueCloseness(c.Value, existing.Value)
		score += valueWeight * closeness
		weightSum += valueWeight
		if closeness > 0.9 {
			reasons = append(reasons, "values within 10%")
		}
	}

	if !c.ClosingDate.IsZero() && !existing.ClosingDate.IsZero() {
		closeness := dateCloseness(c.ClosingDate, existing.ClosingDate)
		score += dateWeight * closeness
		weightSum += dateWeight
		if closeness == 1 {
			reasons = append(reasons, "same closing date")
		}
	}

	if weightSum == 0 {
		return 0, nil
	}
	return score / weightSum, reasons
}

// titleSimilarity is the Jaccard index of the lowercase word sets; exact
// string equality short-circuits to 1.
func titleSimilarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == nb {
		return 1
	}

	setA := wordSet(na)
	setB := wordSet(nb)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[stem(w)] = true
	}
	return set
}

// stem strips common inflection suffixes so that variants like "urgent" and
// "urgently" count as the same token.
func stem(w string) string {
	if len(w) <= 4 {
		return w
	}
	for _, suffix := range []string{"ingly", "edly", "ly", "ing", "ed", "es", "s"} {
		if strings.HasSuffix(w, suffix) && len(w)-len(suffix) >= 3 {
			return w[:len(w)-len(suffix)]
		}
	}
	return w
}

func valueCloseness(a, b float64) float64 {
	larger := math.Max(a, b)
	if larger == 0 {
		return 0
	}
	closeness := 1 - math.Abs(a-b)/larger
	if closeness < 0 {
		return 0
	}
	return closeness
}

func dateCloseness(a, b time.Time) float64 {
	days := math.Abs(a.Sub(b).Hours() / 24)
	closeness := 1 - days/dateDecayDays
	if closeness < 0 {
		return 0
	}
	return closeness
}
