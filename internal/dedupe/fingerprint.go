// Package dedupe provides duplicate detection for tender records: a
// deterministic fingerprint for exact-duplicate detection and a fuzzy
// similarity score against a corpus of previously accepted records.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Fingerprint computes a stable hash over the normalized identifying tuple of
// a record. Two records with identical fingerprints are treated as exact
// duplicates regardless of any other field difference.
func Fingerprint(title, agency string, value float64, closingDate time.Time) string {
	parts := []string{
		normalize(title),
		normalize(agency),
		fmt.Sprintf("%.2f", value),
		closingDateKey(closingDate),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// closingDateKey reduces a closing date to day precision so that independent
// cleaning passes of the same logical record fingerprint identically.
func closingDateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
