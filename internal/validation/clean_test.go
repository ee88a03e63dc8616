package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims and collapses whitespace", "  Event   Staffing \t Services \n", "Event Staffing Services"},
		{"strips disallowed characters", "Security «Officers» — 24/7 deployment!", "Security Officers 24/7 deployment"},
		{"keeps currency and punctuation", "Budget: $150,000 (est.) + 7% GST", "Budget: $150,000 (est.) + 7% GST"},
		{"empty input", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanText(tc.in))
		})
	}
}

func TestCanonicalizeAgency(t *testing.T) {
	v := newTestValidator(t)

	// Full names map to their short codes, case-insensitively.
	assert.Equal(t, "MOE", v.CanonicalizeAgency("Ministry of Education"))
	assert.Equal(t, "MOE", v.CanonicalizeAgency("MINISTRY OF EDUCATION"))

	// Already-canonical codes pass through.
	assert.Equal(t, "LTA", v.CanonicalizeAgency("lta"))

	// Unknown agencies pass through cleaned but unmapped.
	assert.Equal(t, "Acme Facilities Pte Ltd", v.CanonicalizeAgency("  Acme   Facilities Pte Ltd "))
	assert.Equal(t, "", v.CanonicalizeAgency("   "))
}

func TestCanonicalizeLocation(t *testing.T) {
	v := newTestValidator(t)

	assert.Equal(t, "Changi", v.CanonicalizeLocation("near Changi Airport Terminal 3"))
	assert.Equal(t, "Downtown Core", v.CanonicalizeLocation("Marina Bay Sands"))
	assert.Equal(t, "Woodlands Ave 5", v.CanonicalizeLocation("Woodlands Ave 5"))
	assert.Equal(t, "", v.CanonicalizeLocation(""))
}
