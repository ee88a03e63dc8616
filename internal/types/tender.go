// Package types provides type definitions for structured data used throughout the tender-pipeline system.
package types

import (
	"time"
)

// TenderRecord represents one unvalidated tender opportunity as extracted
// from the procurement portal or the fallback feed. Fields are raw: free-text
// title and agency, a closing-date string of uncertain format, and numeric
// estimates that may be inferred rather than stated.
type TenderRecord struct {
	Title             string  `json:"title"`
	Agency            string  `json:"agency"`
	Category          string  `json:"category"`
	Description       string  `json:"description,omitempty"`
	Location          string  `json:"location,omitempty"`
	ClosingDate       string  `json:"closing_date"`
	EstimatedValue    float64 `json:"estimated_value"`
	RequiredHeadcount int     `json:"required_headcount"`
	DurationMonths    int     `json:"duration_months"`
	PayRate           float64 `json:"pay_rate"`
	ChargeRate        float64 `json:"charge_rate"`
	ExternalID        string  `json:"external_id"`
	SourceURL         string  `json:"source_url,omitempty"`
	PublishedDate     string  `json:"published_date,omitempty"`
	Source            string  `json:"source"` // "portal" or "feed"
}

// ValidatedTender is a TenderRecord after cleaning and rule evaluation.
// If Errors is non-empty the record must never be persisted.
type ValidatedTender struct {
	Record           TenderRecord `json:"record"`
	ClosingDate      time.Time    `json:"closing_date"`
	DataQualityScore int          `json:"data_quality_score"`
	Warnings         []string     `json:"warnings,omitempty"`
	Errors           []string     `json:"errors,omitempty"`
	IsValid          bool         `json:"is_valid"`
}

// ExistingTender is one row of the deduplication corpus: the fields of a
// previously accepted record that fingerprinting and similarity scoring use.
type ExistingTender struct {
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Agency      string    `json:"agency"`
	Value       float64   `json:"value"`
	ClosingDate time.Time `json:"closing_date"`
}

// SimilarityVerdict scores a candidate record against one historical record.
type SimilarityVerdict struct {
	Match      ExistingTender `json:"match"`
	Similarity float64        `json:"similarity"`
	Reasons    []string       `json:"reasons"`
}

// DuplicateCheck is the outcome of comparing a candidate against the corpus.
// Exact is set when a fingerprint matched; Similar holds entries above the
// similarity threshold sorted by descending similarity. Confidence is the
// percentage confidence that the candidate is not a duplicate.
type DuplicateCheck struct {
	Exact      *ExistingTender     `json:"exact,omitempty"`
	Similar    []SimilarityVerdict `json:"similar,omitempty"`
	Confidence int                 `json:"confidence"`
}
