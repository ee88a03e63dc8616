package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Government Tender Notices</title>
    <item>
      <title>Security Guards for Community Hospital</title>
      <link>https://feed.example.sg/tenders/901</link>
      <guid>FEED-901</guid>
      <description><![CDATA[<p>Licensed officers required for ward coverage. Closing: 2026-10-20</p>]]></description>
      <pubDate>Mon, 24 Aug 2026 08:00:00 +0800</pubDate>
    </item>
    <item>
      <title>Event Crew for Convention Exhibition</title>
      <link>https://feed.example.sg/tenders/902</link>
      <description>Setup and teardown crew for a three-day exhibition.</description>
      <pubDate>Tue, 25 Aug 2026 09:00:00 +0800</pubDate>
    </item>
    <item>
      <title>Office Furniture Procurement and Delivery</title>
      <link>https://feed.example.sg/tenders/903</link>
      <guid>FEED-903</guid>
      <description>Supply of workstations.</description>
      <pubDate>Tue, 25 Aug 2026 10:00:00 +0800</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://feed.example.sg/tenders/904</link>
    </item>
  </channel>
</rss>`

func feedServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedFetch(t *testing.T) {
	srv := feedServer(t, sampleFeedXML, http.StatusOK)
	f := &FeedFetcher{URL: srv.URL}

	records, err := f.Fetch(context.Background(), []string{"security", "event-support"})
	require.NoError(t, err)
	// The furniture item matches no requested category; the untitled item is
	// dropped outright.
	require.Len(t, records, 2)

	sec := records[0]
	assert.Equal(t, "Security Guards for Community Hospital", sec.Title)
	assert.Equal(t, "security", sec.Category)
	assert.Equal(t, "MOH", sec.Agency) // inferred from "hospital"
	assert.Equal(t, "FEED-901", sec.ExternalID)
	assert.Equal(t, "2026-10-20", sec.ClosingDate) // stated in the description
	assert.Equal(t, "Licensed officers required for ward coverage. Closing: 2026-10-20", sec.Description)
	assert.Equal(t, "https://feed.example.sg/tenders/901", sec.SourceURL)
	assert.Equal(t, "feed", sec.Source)
	assert.Greater(t, sec.EstimatedValue, 0.0)
	assert.Greater(t, sec.RequiredHeadcount, 0)

	event := records[1]
	assert.Equal(t, "event-support", event.Category)
	// No stated closing date: publication date plus the default window.
	assert.Equal(t, "2026-09-15", event.ClosingDate)
	// No GUID: the link serves as the external id.
	assert.Equal(t, "https://feed.example.sg/tenders/902", event.ExternalID)
}

func TestFeedFetch_NoCategoryFilterKeepsAllTitledItems(t *testing.T) {
	srv := feedServer(t, sampleFeedXML, http.StatusOK)
	f := &FeedFetcher{URL: srv.URL}

	records, err := f.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, CategoryGeneral, records[2].Category)
	assert.Equal(t, "GOVT", records[2].Agency)
}

func TestFeedFetch_NoURLConfigured(t *testing.T) {
	f := &FeedFetcher{}
	_, err := f.Fetch(context.Background(), []string{"security"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feed URL")
}

func TestFeedFetch_ServerError(t *testing.T) {
	srv := feedServer(t, "upstream on fire", http.StatusInternalServerError)
	f := &FeedFetcher{URL: srv.URL}

	_, err := f.Fetch(context.Background(), []string{"security"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestFeedFetch_MalformedXML(t *testing.T) {
	srv := feedServer(t, "{not xml at all", http.StatusOK)
	f := &FeedFetcher{URL: srv.URL}

	_, err := f.Fetch(context.Background(), []string{"security"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse feed XML")
}

func TestInferAgency(t *testing.T) {
	assert.Equal(t, "MOE", inferAgency("cleaners for primary school campus"))
	assert.Equal(t, "MOH", inferAgency("polyclinic front desk staffing"))
	assert.Equal(t, "NPARKS", inferAgency("garden maintenance works"))
	assert.Equal(t, "LTA", inferAgency("crowd control at bus interchange"))
	assert.Equal(t, "HDB", inferAgency("estate cleaning contract"))
	assert.Equal(t, "GOVT", inferAgency("general manpower supply"))
}

func TestFeedClosingDate(t *testing.T) {
	// A stated closing date in any recognized shape wins.
	assert.Equal(t, "2026-10-20", feedClosingDate("Closing: 2026-10-20", ""))
	assert.Equal(t, "15/10/2026", feedClosingDate("closing date 15/10/2026", ""))
	assert.Equal(t, "20 Oct 2026", feedClosingDate("Closing Date: 20 Oct 2026", ""))

	// Otherwise the publication date plus the default window.
	assert.Equal(t, "2026-09-15", feedClosingDate("no date here", "Tue, 25 Aug 2026 09:00:00 +0800"))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Officers required for night shifts.",
		stripHTML("<p>Officers <b>required</b> for\n night shifts.</p>"))
	assert.Equal(t, "", stripHTML(""))
}
