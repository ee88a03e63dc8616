package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	cases := []struct {
		name      string
		title     string
		requested []string
		want      string
	}{
		{"requested category named in title", "Catering staff for canteen", []string{"catering"}, "catering"},
		{"event keyword", "Conference support crew", nil, CategoryEventSupport},
		{"security keyword", "Night patrol officers", nil, CategorySecurity},
		{"facilities keyword", "Landscape maintenance works", nil, CategoryFacilities},
		{"no signal falls back to general", "Office furniture procurement", nil, CategoryGeneral},
		{"requested match wins over keywords", "Security deployment for exhibition", []string{"security"}, "security"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InferCategory(tc.title, tc.requested))
		})
	}
}

func TestEstimateProfile_BaseWithoutSignals(t *testing.T) {
	p := EstimateProfile("Cleaning services for office block", CategoryFacilities, nil)
	assert.Equal(t, baseProfile, p)
}

func TestEstimateProfile_UrgencyAndSeniority(t *testing.T) {
	urgent := EstimateProfile("Urgent crowd marshals needed", CategoryEventSupport, nil)
	assert.InDelta(t, 150000, urgent.EstimatedValue, 1e-9)
	assert.InDelta(t, 11.5, urgent.PayRate, 1e-9)
	assert.InDelta(t, 16.5, urgent.ChargeRate, 1e-9)

	senior := EstimateProfile("Senior supervisor for facility team", CategoryFacilities, nil)
	assert.InDelta(t, 13, senior.PayRate, 1e-9)
	assert.InDelta(t, 18, senior.ChargeRate, 1e-9)
	assert.InDelta(t, baseProfile.EstimatedValue, senior.EstimatedValue, 1e-9)
}

func TestEstimateProfile_CategoryOverrides(t *testing.T) {
	overrides := map[string]Profile{
		CategorySecurity: {
			EstimatedValue:    200000,
			RequiredHeadcount: 8,
			DurationMonths:    12,
			PayRate:           12,
			ChargeRate:        18,
		},
	}

	p := EstimateProfile("Urgent security officers", CategorySecurity, overrides)

	// Keyword adjustments carry into the override as relative offsets.
	assert.InDelta(t, 250000, p.EstimatedValue, 1e-9)
	assert.InDelta(t, 13.5, p.PayRate, 1e-9)
	assert.InDelta(t, 20.5, p.ChargeRate, 1e-9)
	assert.Equal(t, 8, p.RequiredHeadcount)
	assert.Equal(t, 12, p.DurationMonths)
}

func TestEstimateProfile_Deterministic(t *testing.T) {
	a := EstimateProfile("Urgent senior event supervisor", CategoryEventSupport, nil)
	b := EstimateProfile("Urgent senior event supervisor", CategoryEventSupport, nil)
	assert.Equal(t, a, b)
}
