package scrape

import "strings"

// Tender categories assigned by inference.
const (
	CategoryEventSupport = "event-support"
	CategorySecurity     = "security"
	CategoryFacilities   = "facility-management"
	CategoryGeneral      = "general-services"
)

// Profile is the numeric estimate for a tender whose explicit fields are
// absent (always the case on the feed path, often on the active path).
type Profile struct {
	EstimatedValue    float64 `json:"estimated_value"`
	RequiredHeadcount int     `json:"required_headcount"`
	DurationMonths    int     `json:"duration_months"`
	PayRate           float64 `json:"pay_rate"`
	ChargeRate        float64 `json:"charge_rate"`
}

// baseProfile is the starting estimate before keyword and category signals.
var baseProfile = Profile{
	EstimatedValue:    120000,
	RequiredHeadcount: 10,
	DurationMonths:    6,
	PayRate:           10,
	ChargeRate:        14,
}

// categoryKeywords maps title keywords to categories, checked in order.
var categoryKeywords = []struct {
	keywords []string
	category string
}{
	{[]string{"event", "function", "exhibition", "conference"}, CategoryEventSupport},
	{[]string{"security", "guard", "surveillance", "patrol"}, CategorySecurity},
	{[]string{"cleaning", "maintenance", "facility", "facilities", "landscape"}, CategoryFacilities},
}

var urgencyKeywords = []string{"urgent", "immediate", "asap", "expedited"}

var seniorityKeywords = []string{"senior", "supervisor", "manager", "lead", "specialist"}

// InferCategory assigns a category by literal substring match against the
// requested categories first, then by keyword heuristics, else the generic
// default. Deterministic for a given title.
func InferCategory(title string, requested []string) string {
	lower := strings.ToLower(title)

	for _, category := range requested {
		if category != "" && strings.Contains(lower, strings.ToLower(category)) {
			return category
		}
	}

	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.category
			}
		}
	}

	return CategoryGeneral
}

// EstimateProfile derives numeric estimates from the title and category.
// The base profile is adjusted by keyword signals, then category-specific
// overrides from the profile table are applied. Both the active and fallback
// extraction paths use this single function, so their estimates never drift.
// The result is deterministic for a given title and profile table.
func EstimateProfile(title, category string, overrides map[string]Profile) Profile {
	lower := strings.ToLower(title)
	p := baseProfile

	if containsAny(lower, urgencyKeywords) {
		p.EstimatedValue *= 1.25
		p.PayRate += 1.5
		p.ChargeRate += 2.5
	}
	if containsAny(lower, seniorityKeywords) {
		p.PayRate += 3
		p.ChargeRate += 4
	}

	if override, ok := overrides[category]; ok {
		if override.EstimatedValue > 0 {
			p.EstimatedValue = override.EstimatedValue * (p.EstimatedValue / baseProfile.EstimatedValue)
		}
		if override.RequiredHeadcount > 0 {
			p.RequiredHeadcount = override.RequiredHeadcount
		}
		if override.DurationMonths > 0 {
			p.DurationMonths = override.DurationMonths
		}
		if override.PayRate > 0 {
			p.PayRate = override.PayRate + (p.PayRate - baseProfile.PayRate)
		}
		if override.ChargeRate > 0 {
			p.ChargeRate = override.ChargeRate + (p.ChargeRate - baseProfile.ChargeRate)
		}
	}

	return p
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
