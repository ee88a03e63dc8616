package scrape

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// realisticUserAgent is presented instead of the headless default so the
// client identity matches an ordinary desktop browser.
const realisticUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// blockedResourcePatterns suppresses non-essential sub-resource fetches to
// reduce latency and fingerprint surface.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg",
	"*.css", "*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3",
}

// modalDismissSelectors are clicked best-effort after navigation to clear
// cookie banners and announcement dialogs.
var modalDismissSelectors = []string{
	`button[id*="accept"]`,
	`button[class*="accept"]`,
	`button[class*="dismiss"]`,
	`.modal button.close`,
	`.announcement-banner .btn-close`,
}

// Portal result listing selectors.
const (
	searchInputSelector  = `input[name="searchCriteria"]`
	searchButtonSelector = `button[type="submit"].search-btn`
	resultRowSelector    = `.search-result-item, .tender-row`
)

// BrowserOptions configures the chromedp client.
type BrowserOptions struct {
	Headless  bool
	UserAgent string
	Verbose   bool
	// ProfileOverrides feeds the shared estimator for records whose numeric
	// fields are absent from the listing.
	ProfileOverrides map[string]Profile
}

// browserClient is the chromedp-backed Client implementation.
type browserClient struct {
	opts        BrowserOptions
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	browserCtx  context.Context
	baseURL     string
}

// NewBrowserClient creates a chromedp-backed client. The rendering process is
// not started until Initialize.
func NewBrowserClient(opts BrowserOptions) Client {
	if opts.UserAgent == "" {
		opts.UserAgent = realisticUserAgent
	}
	return &browserClient{opts: opts}
}

// Initialize starts the Chrome process and applies the anti-detection setup:
// realistic user agent and network-level blocking of heavy sub-resources.
func (c *browserClient) Initialize(ctx context.Context) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(c.opts.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetBlockedURLs(blockedResourcePatterns),
	)
	if err != nil {
		ctxCancel()
		allocCancel()
		return &InitializationError{Message: "could not start rendering process", Cause: err}
	}

	c.allocCancel = allocCancel
	c.ctxCancel = ctxCancel
	c.browserCtx = browserCtx

	if c.opts.Verbose {
		log.Printf("[SCRAPER] browser client initialized (headless=%v)", c.opts.Headless)
	}
	return nil
}

// Navigate loads the portal page, waits for it to settle and dismisses any
// modal interruptions.
func (c *browserClient) Navigate(ctx context.Context, url string) error {
	if c.browserCtx == nil {
		return &InitializationError{Message: "client not initialized"}
	}
	c.baseURL = url

	runCtx, cancel := mergeDeadline(c.browserCtx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			for _, sel := range modalDismissSelectors {
				// Best-effort; absent modals are not an error.
				_ = chromedp.Click(sel, chromedp.NodeVisible).Do(actionCtx)
			}
			return nil
		}),
	)
	if err != nil {
		return &NavigationTimeoutError{URL: url, Cause: err}
	}

	if c.opts.Verbose {
		log.Printf("[SCRAPER] navigated to %s", url)
	}
	return nil
}

// captchaIndicators are the structural signals of a CAPTCHA challenge.
const captchaIndicators = `iframe[src*="recaptcha"], iframe[src*="hcaptcha"], .g-recaptcha, #captcha, input[name="cf-turnstile-response"]`

// CaptchaPresent checks the page for CAPTCHA indicators.
func (c *browserClient) CaptchaPresent(ctx context.Context) (bool, error) {
	if c.browserCtx == nil {
		return false, &InitializationError{Message: "client not initialized"}
	}

	runCtx, cancel := mergeDeadline(c.browserCtx, ctx)
	defer cancel()

	var present bool
	expr := fmt.Sprintf(`document.querySelector(%q) !== null`, captchaIndicators)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &present)); err != nil {
		return false, fmt.Errorf("captcha detection failed: %w", err)
	}
	return present, nil
}

// SolveCaptcha clicks the challenge checkbox. Resolution is confirmed by the
// orchestrator polling CaptchaPresent.
func (c *browserClient) SolveCaptcha(ctx context.Context) error {
	if c.browserCtx == nil {
		return &InitializationError{Message: "client not initialized"}
	}

	runCtx, cancel := mergeDeadline(c.browserCtx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Click(`.recaptcha-checkbox, .g-recaptcha, #captcha .challenge-button`, chromedp.NodeVisible),
	)
	if err != nil {
		return fmt.Errorf("captcha solve interaction failed: %w", err)
	}
	return nil
}

// Extract runs the search interaction for each category and parses the
// rendered result listing.
func (c *browserClient) Extract(ctx context.Context, categories []string) ([]types.TenderRecord, error) {
	if c.browserCtx == nil {
		return nil, &InitializationError{Message: "client not initialized"}
	}

	var records []types.TenderRecord
	seen := make(map[string]bool)

	for _, category := range categories {
		runCtx, cancel := mergeDeadline(c.browserCtx, ctx)

		var html string
		err := chromedp.Run(runCtx,
			chromedp.WaitVisible(searchInputSelector),
			chromedp.Clear(searchInputSelector),
			chromedp.SendKeys(searchInputSelector, category),
			chromedp.Click(searchButtonSelector),
			chromedp.Sleep(2*time.Second),
			chromedp.WaitReady("body"),
			chromedp.OuterHTML("html", &html),
		)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("search interaction for %q failed: %w", category, err)
		}

		parsed, err := c.parseListing(html, category, categories)
		if err != nil {
			return nil, err
		}
		for _, rec := range parsed {
			if rec.ExternalID != "" && seen[rec.ExternalID] {
				continue
			}
			seen[rec.ExternalID] = true
			records = append(records, rec)
		}
	}

	return records, nil
}

// parseListing extracts raw records from the rendered result page. Numeric
// fields absent from the listing are filled by the shared estimator.
func (c *browserClient) parseListing(html, searchTerm string, requested []string) ([]types.TenderRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("could not parse result page: %w", err)
	}

	var records []types.TenderRecord
	doc.Find(resultRowSelector).Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(row.Find(".tender-title, .title a, h4 a").First().Text())
		if title == "" {
			return
		}

		rec := types.TenderRecord{
			Title:       title,
			Agency:      strings.TrimSpace(row.Find(".tender-agency, .agency").First().Text()),
			Description: strings.TrimSpace(row.Find(".tender-description, .description").First().Text()),
			Location:    strings.TrimSpace(row.Find(".tender-location, .location").First().Text()),
			ClosingDate: strings.TrimSpace(row.Find(".tender-closing-date, .closing-date").First().Text()),
			ExternalID:  strings.TrimSpace(row.Find(".tender-ref, .reference-no").First().Text()),
			Source:      "portal",
		}
		if href, ok := row.Find("a").First().Attr("href"); ok {
			rec.SourceURL = absoluteURL(c.baseURL, href)
		}

		rec.Category = InferCategory(title, requested)
		if rec.Category == CategoryGeneral && searchTerm != "" {
			rec.Category = InferCategory(searchTerm, requested)
		}

		estimate := EstimateProfile(title, rec.Category, c.opts.ProfileOverrides)
		rec.EstimatedValue = parseListedValue(row.Find(".tender-value, .value").First().Text(), estimate.EstimatedValue)
		rec.RequiredHeadcount = estimate.RequiredHeadcount
		rec.DurationMonths = estimate.DurationMonths
		rec.PayRate = estimate.PayRate
		rec.ChargeRate = estimate.ChargeRate

		records = append(records, rec)
	})

	return records, nil
}

// Cleanup tears down the rendering process. Idempotent.
func (c *browserClient) Cleanup() {
	if c.ctxCancel != nil {
		c.ctxCancel()
		c.ctxCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	c.browserCtx = nil

	if c.opts.Verbose {
		log.Printf("[SCRAPER] browser client torn down")
	}
}

var valueRe = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// parseListedValue extracts a numeric value like "S$ 150,000" from the
// listing, falling back to the estimate when the field is absent.
func parseListedValue(text string, fallback float64) float64 {
	match := valueRe.FindString(text)
	if match == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

// mergeDeadline runs browser actions under the caller's cancellation without
// detaching them from the browser context.
func mergeDeadline(browserCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	if callerCtx == nil {
		return context.WithCancel(browserCtx)
	}
	runCtx, cancel := context.WithCancel(browserCtx)
	stop := context.AfterFunc(callerCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
