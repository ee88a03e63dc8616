package scrape

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// defaultFeedWindowDays is the assumed bidding window when a feed item does
// not state a closing date.
const defaultFeedWindowDays = 21

// FeedFetcher parses the passive RSS-style feed consulted when active
// extraction fails or yields nothing. Feed items carry no explicit agency or
// numeric fields; those are inferred through the shared estimator, so
// fallback records have lower inherent information density.
type FeedFetcher struct {
	URL              string
	UserAgent        string
	HTTPClient       *http.Client
	ProfileOverrides map[string]Profile
	Verbose          bool
}

// rssDocument is the feed envelope.
type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// Fetch retrieves and parses the feed, returning raw records for items that
// match the requested categories.
func (f *FeedFetcher) Fetch(ctx context.Context, categories []string) ([]types.TenderRecord, error) {
	if f.URL == "" {
		return nil, fmt.Errorf("no feed URL configured")
	}

	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build feed request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("could not read feed body: %w", err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("could not parse feed XML: %w", err)
	}

	records := f.itemsToRecords(doc.Channel.Items, categories)
	if f.Verbose {
		log.Printf("[SCRAPER] feed fallback parsed %d items, %d matched categories",
			len(doc.Channel.Items), len(records))
	}
	return records, nil
}

// itemsToRecords converts matching feed items to raw records. Category,
// agency and numeric estimates are inferred deterministically from the title.
func (f *FeedFetcher) itemsToRecords(items []rssItem, categories []string) []types.TenderRecord {
	var records []types.TenderRecord
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		category := InferCategory(title, categories)
		if !categoryRequested(category, title, categories) {
			continue
		}

		description := stripHTML(item.Description)
		estimate := EstimateProfile(title, category, f.ProfileOverrides)

		rec := types.TenderRecord{
			Title:             title,
			Agency:            inferAgency(title + " " + description),
			Category:          category,
			Description:       description,
			ClosingDate:       feedClosingDate(description, item.PubDate),
			EstimatedValue:    estimate.EstimatedValue,
			RequiredHeadcount: estimate.RequiredHeadcount,
			DurationMonths:    estimate.DurationMonths,
			PayRate:           estimate.PayRate,
			ChargeRate:        estimate.ChargeRate,
			ExternalID:        feedExternalID(item),
			SourceURL:         strings.TrimSpace(item.Link),
			PublishedDate:     strings.TrimSpace(item.PubDate),
			Source:            "feed",
		}
		records = append(records, rec)
	}
	return records
}

// categoryRequested reports whether the item belongs to one of the requested
// categories, either by inference or literal mention in the title.
func categoryRequested(inferred, title string, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, c := range categories {
		if strings.EqualFold(c, inferred) || strings.Contains(lower, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// agencyKeywords maps title/description signals to agency short codes.
var agencyKeywords = []struct {
	keywords []string
	code     string
}{
	{[]string{"school", "education", "campus", "student"}, "MOE"},
	{[]string{"hospital", "clinic", "health", "polyclinic"}, "MOH"},
	{[]string{"park", "garden", "greenery"}, "NPARKS"},
	{[]string{"transport", "mrt", "bus interchange"}, "LTA"},
	{[]string{"housing", "estate", "town council"}, "HDB"},
}

// inferAgency guesses the owning agency from keyword signals. The feed carries
// no agency field; an unmatched item gets the generic government code.
func inferAgency(text string) string {
	lower := strings.ToLower(text)
	for _, group := range agencyKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.code
			}
		}
	}
	return "GOVT"
}

var closingDateRe = regexp.MustCompile(`(?i)closing(?:\s+date)?\s*:?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}\s+\w{3,9}\s+\d{4})`)

// feedClosingDate extracts a stated closing date from the description, else
// derives one from the publication date plus the default bidding window.
func feedClosingDate(description, pubDate string) string {
	if m := closingDateRe.FindStringSubmatch(description); m != nil {
		return m[1]
	}

	published, err := parsePubDate(pubDate)
	if err != nil {
		published = time.Now()
	}
	return published.AddDate(0, 0, defaultFeedWindowDays).Format("2006-01-02")
}

func parsePubDate(pubDate string) (time.Time, error) {
	pubDate = strings.TrimSpace(pubDate)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, pubDate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pubDate format: %q", pubDate)
}

// feedExternalID prefers the feed GUID, falling back to the link.
func feedExternalID(item rssItem) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	return strings.TrimSpace(item.Link)
}

// stripHTML reduces a feed item's HTML description to plain text.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
