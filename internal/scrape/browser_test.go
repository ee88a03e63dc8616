package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListingHTML = `<html><body>
<div class="search-results">
  <div class="search-result-item">
    <h4><a href="/tenders/5501">Security Officers for MRT Stations</a></h4>
    <div class="tender-agency">Land Transport Authority</div>
    <div class="tender-description">Deployment of licensed officers across stations.</div>
    <div class="tender-location">Jurong East</div>
    <div class="tender-closing-date">2026-10-15</div>
    <div class="tender-value">S$ 450,000</div>
    <div class="tender-ref">LTA-5501</div>
  </div>
  <div class="tender-row">
    <div class="title"><a href="https://portal.example.sg/tenders/5502">Urgent Event Ushers</a></div>
    <div class="agency">Sport Singapore</div>
    <div class="closing-date">2026-09-30</div>
    <div class="reference-no">SSG-5502</div>
  </div>
  <div class="search-result-item">
    <div class="tender-title"></div>
  </div>
</div>
</body></html>`

func TestParseListing(t *testing.T) {
	c := &browserClient{baseURL: "https://portal.example.sg/search"}

	records, err := c.parseListing(sampleListingHTML, "security", []string{"security", "event-support"})
	require.NoError(t, err)
	require.Len(t, records, 2) // the titleless row is dropped

	first := records[0]
	assert.Equal(t, "Security Officers for MRT Stations", first.Title)
	assert.Equal(t, "Land Transport Authority", first.Agency)
	assert.Equal(t, "Jurong East", first.Location)
	assert.Equal(t, "2026-10-15", first.ClosingDate)
	assert.Equal(t, "LTA-5501", first.ExternalID)
	assert.Equal(t, "security", first.Category)
	assert.Equal(t, "portal", first.Source)
	// The listed value wins over the estimate.
	assert.InDelta(t, 450000, first.EstimatedValue, 1e-9)
	// Relative links are resolved against the portal base.
	assert.Equal(t, "https://portal.example.sg/search/tenders/5501", first.SourceURL)
	// Fields absent from the listing come from the estimator.
	assert.Greater(t, first.RequiredHeadcount, 0)
	assert.Greater(t, first.ChargeRate, first.PayRate)

	second := records[1]
	assert.Equal(t, "Urgent Event Ushers", second.Title)
	assert.Equal(t, "event-support", second.Category)
	assert.Equal(t, "SSG-5502", second.ExternalID)
	assert.Equal(t, "https://portal.example.sg/tenders/5502", second.SourceURL)
	// No listed value: the urgency-adjusted estimate fills in.
	assert.InDelta(t, 150000, second.EstimatedValue, 1e-9)
}

func TestParseListing_SearchTermBreaksGeneralTie(t *testing.T) {
	html := `<div class="tender-row"><div class="title"><a>Manpower Supply Contract</a></div></div>`
	c := &browserClient{}

	records, err := c.parseListing(html, "facility cleaning", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	// The title alone is generic; the search term carries the category signal.
	assert.Equal(t, CategoryFacilities, records[0].Category)
}

func TestParseListedValue(t *testing.T) {
	assert.InDelta(t, 450000, parseListedValue("S$ 450,000", 99), 1e-9)
	assert.InDelta(t, 1234.56, parseListedValue("Est. 1,234.56 total", 99), 1e-9)
	assert.InDelta(t, 99, parseListedValue("TBC", 99), 1e-9)
	assert.InDelta(t, 99, parseListedValue("", 99), 1e-9)
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://portal.example.sg/tenders/1", absoluteURL("https://portal.example.sg/", "/tenders/1"))
	assert.Equal(t, "https://portal.example.sg/tenders/1", absoluteURL("https://portal.example.sg", "tenders/1"))
	assert.Equal(t, "https://other.example.sg/x", absoluteURL("https://portal.example.sg", "https://other.example.sg/x"))
	assert.Equal(t, "", absoluteURL("https://portal.example.sg", ""))
}

func TestMergeDeadline_CallerCancelPropagates(t *testing.T) {
	browserCtx := context.Background()
	callerCtx, callerCancel := context.WithCancel(context.Background())

	runCtx, cancel := mergeDeadline(browserCtx, callerCtx)
	defer cancel()

	callerCancel()
	<-runCtx.Done()
	assert.ErrorIs(t, runCtx.Err(), context.Canceled)
}

func TestCleanup_Idempotent(t *testing.T) {
	c := &browserClient{}
	c.Cleanup()
	c.Cleanup() // must not panic on a client that never initialized
	assert.Nil(t, c.browserCtx)
}
