package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stafflink/tender-pipeline/internal/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("Event Security Services", "MOE", 150000, date(2026, 10, 15))
	b := Fingerprint("Event Security Services", "MOE", 150000, date(2026, 10, 15))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_NormalizesCaseAndWhitespace(t *testing.T) {
	a := Fingerprint("  Event Security Services ", "moe", 150000, date(2026, 10, 15))
	b := Fingerprint("EVENT SECURITY SERVICES", "MOE", 150000, date(2026, 10, 15))
	assert.Equal(t, a, b)
}

func TestFingerprint_SensitiveToEachField(t *testing.T) {
	base := Fingerprint("Event Security Services", "MOE", 150000, date(2026, 10, 15))

	assert.NotEqual(t, base, Fingerprint("Event Cleaning Services", "MOE", 150000, date(2026, 10, 15)))
	assert.NotEqual(t, base, Fingerprint("Event Security Services", "MOH", 150000, date(2026, 10, 15)))
	assert.NotEqual(t, base, Fingerprint("Event Security Services", "MOE", 150000.01, date(2026, 10, 15)))
	assert.NotEqual(t, base, Fingerprint("Event Security Services", "MOE", 150000, date(2026, 10, 16)))
}

func TestFingerprint_DayPrecisionForClosingDate(t *testing.T) {
	morning := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)
	assert.Equal(t,
		Fingerprint("Event Security Services", "MOE", 150000, morning),
		Fingerprint("Event Security Services", "MOE", 150000, evening))
}

func TestCheckDuplicates_ExactMatchShortCircuits(t *testing.T) {
	candidate := Candidate{
		Title:       "Event Security Services",
		Agency:      "MOE",
		Value:       150000,
		ClosingDate: date(2026, 10, 15),
	}
	corpus := []types.ExistingTender{
		{ExternalID: "T-001", Title: "Facility Cleaning Contract", Agency: "HDB", Value: 90000, ClosingDate: date(2026, 9, 1)},
		{ExternalID: "T-002", Title: "event security services", Agency: "moe", Value: 150000, ClosingDate: date(2026, 10, 15)},
	}

	check := CheckDuplicates(candidate, corpus)
	require.NotNil(t, check.Exact)
	assert.Equal(t, "T-002", check.Exact.ExternalID)
	assert.Equal(t, 0, check.Confidence)
	assert.Empty(t, check.Similar)
}

func TestCheckDuplicates_RewordedTitleFlaggedSimilar(t *testing.T) {
	candidate := Candidate{
		Title:       "Event Staff Needed Urgently",
		Agency:      "MOE",
		Value:       82000,
		ClosingDate: date(2026, 10, 20),
	}
	corpus := []types.ExistingTender{
		{ExternalID: "T-010", Title: "Urgent Event Staff Required", Agency: "MOE", Value: 82000, ClosingDate: date(2026, 10, 20)},
	}

	check := CheckDuplicates(candidate, corpus)
	require.Nil(t, check.Exact)
	require.Len(t, check.Similar, 1)
	assert.Greater(t, check.Similar[0].Similarity, SimilarThreshold)
	assert.Less(t, check.Confidence, 50)
	assert.Contains(t, check.Similar[0].Reasons, "same agency")
	assert.Contains(t, check.Similar[0].Reasons, "same closing date")
}

func TestCheckDuplicates_UnrelatedCorpusIsClean(t *testing.T) {
	candidate := Candidate{
		Title:       "Library Security Officers",
		Agency:      "NLB",
		Value:       210000,
		ClosingDate: date(2026, 11, 30),
	}
	corpus := []types.ExistingTender{
		{ExternalID: "T-020", Title: "Grass Cutting Works", Agency: "NPARKS", Value: 40000, ClosingDate: date(2026, 9, 5)},
		{ExternalID: "T-021", Title: "Canteen Operations", Agency: "MOE", Value: 500000, ClosingDate: date(2027, 1, 15)},
	}

	check := CheckDuplicates(candidate, corpus)
	assert.Nil(t, check.Exact)
	assert.Empty(t, check.Similar)
	assert.Equal(t, 100, check.Confidence)
}

func TestCheckDuplicates_EmptyCorpus(t *testing.T) {
	check := CheckDuplicates(Candidate{Title: "Anything", Agency: "MOE", Value: 1000, ClosingDate: date(2026, 10, 1)}, nil)
	assert.Nil(t, check.Exact)
	assert.Empty(t, check.Similar)
	assert.Equal(t, 100, check.Confidence)
}

func TestCheckDuplicates_SimilarSortedByScore(t *testing.T) {
	candidate := Candidate{
		Title:       "Security Guard Deployment",
		Agency:      "LTA",
		Value:       300000,
		ClosingDate: date(2026, 10, 10),
	}
	corpus := []types.ExistingTender{
		{ExternalID: "T-030", Title: "Security Guard Deployment", Agency: "LTA", Value: 310000, ClosingDate: date(2026, 10, 12)},
		{ExternalID: "T-031", Title: "Security Guard Deployment", Agency: "LTA", Value: 300000, ClosingDate: date(2026, 10, 11)},
	}

	check := CheckDuplicates(candidate, corpus)
	require.Len(t, check.Similar, 2)
	assert.Equal(t, "T-031", check.Similar[0].Match.ExternalID)
	assert.GreaterOrEqual(t, check.Similar[0].Similarity, check.Similar[1].Similarity)
}

func TestSimilarity_RenormalizesMissingFields(t *testing.T) {
	// No value and no closing date on the candidate: only title and agency
	// weights apply, so an identical title plus agency still scores 1.
	candidate := Candidate{Title: "Pest Control Services", Agency: "NEA"}
	existing := types.ExistingTender{Title: "Pest Control Services", Agency: "NEA", Value: 50000, ClosingDate: date(2026, 12, 1)}

	score, reasons := similarity(candidate, existing)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Contains(t, reasons, "same agency")
}

func TestSimilarity_NoComparableFields(t *testing.T) {
	score, reasons := similarity(Candidate{}, types.ExistingTender{})
	assert.Zero(t, score)
	assert.Nil(t, reasons)
}

func TestTitleSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, titleSimilarity("Event Staffing", "event staffing"), 1e-9)
	assert.InDelta(t, 0.6, titleSimilarity("Event Staff Needed Urgently", "Urgent Event Staff Required"), 1e-9)
	assert.Zero(t, titleSimilarity("Cleaning Contract", "Forklift Rental"))
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"urgently": "urgent",
		"needed":   "need",
		"services": "servic",
		"staffing": "staff",
		"staff":    "staff",
		"bus":      "bus", // short words pass through
	}
	for in, want := range cases {
		assert.Equal(t, want, stem(in), in)
	}
}

func TestValueCloseness(t *testing.T) {
	assert.InDelta(t, 1.0, valueCloseness(100000, 100000), 1e-9)
	assert.InDelta(t, 0.9, valueCloseness(90000, 100000), 1e-9)
	assert.Zero(t, valueCloseness(0, 0))
}

func TestDateCloseness(t *testing.T) {
	d := date(2026, 10, 15)
	assert.InDelta(t, 1.0, dateCloseness(d, d), 1e-9)
	assert.InDelta(t, 0.5, dateCloseness(d, d.AddDate(0, 0, 15)), 1e-9)
	assert.Zero(t, dateCloseness(d, d.AddDate(0, 0, 45)))
}

func TestCandidateFromValidated(t *testing.T) {
	v := &types.ValidatedTender{
		Record: types.TenderRecord{
			Title:          "Event Security Services",
			Agency:         "MOE",
			EstimatedValue: 150000,
		},
		ClosingDate: date(2026, 10, 15),
	}
	c := CandidateFromValidated(v)
	assert.Equal(t, "Event Security Services", c.Title)
	assert.Equal(t, "MOE", c.Agency)
	assert.Equal(t, 150000.0, c.Value)
	assert.Equal(t, date(2026, 10, 15), c.ClosingDate)
}
