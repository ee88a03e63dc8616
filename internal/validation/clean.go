// Package validation provides cleaning, canonicalization and business-rule
// validation for tender records before they are persisted.
package validation

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// allowedRe strips characters outside the allow-list used for free-text
	// fields. Keeps alphanumerics, common punctuation and currency symbols.
	allowedRe = regexp.MustCompile(`[^a-zA-Z0-9\s\-.,()&/':+#$%]`)
)

// CleanText collapses whitespace, strips characters outside the allow-list
// and trims the result.
func CleanText(s string) string {
	s = allowedRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CanonicalizeAgency maps a full agency name to its short code using the
// known-agency table. Already-canonical codes pass through unchanged; unknown
// agencies pass through cleaned but unmapped.
func (v *Validator) CanonicalizeAgency(agency string) string {
	cleaned := CleanText(agency)
	if cleaned == "" {
		return ""
	}

	if code, ok := v.agencies[strings.ToLower(cleaned)]; ok {
		return code
	}

	// The table values are the canonical short codes; accept them as-is.
	upper := strings.ToUpper(cleaned)
	for _, code := range v.agencies {
		if code == upper {
			return code
		}
	}

	return cleaned
}

// CanonicalizeLocation maps a free-text location to a canonical area name
// when it mentions a known landmark; otherwise it passes through cleaned.
func (v *Validator) CanonicalizeLocation(location string) string {
	cleaned := CleanText(location)
	if cleaned == "" {
		return ""
	}

	lower := strings.ToLower(cleaned)
	for landmark, area := range v.landmarks {
		if strings.Contains(lower, landmark) {
			return area
		}
	}

	return cleaned
}
