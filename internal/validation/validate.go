package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stafflink/tender-pipeline/internal/types"
)

// Config holds the tunable business-rule thresholds. The tolerance bands are
// business policy, not structural requirements, so they are configurable
// rather than hard-coded.
type Config struct {
	// RevenueTolerance is the allowed relative deviation between the stated
	// total value and the value computed from headcount, rate and duration.
	RevenueTolerance float64
	// MarginMin and MarginMax bound the plausible (charge-pay)/charge margin.
	MarginMin float64
	MarginMax float64
	// MinBiddingWindowDays and MaxBiddingWindowDays bound the plausible gap
	// between now and the closing date.
	MinBiddingWindowDays int
	MaxBiddingWindowDays int
	// MaxClosingHorizonDays is how far out a closing date may be before it is
	// flagged as a warning.
	MaxClosingHorizonDays int
	// WorkingHoursPerMonth is used for revenue-consistency computation.
	WorkingHoursPerMonth float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		RevenueTolerance:      0.30,
		MarginMin:             0.15,
		MarginMax:             0.50,
		MinBiddingWindowDays:  7,
		MaxBiddingWindowDays:  90,
		MaxClosingHorizonDays: 365,
		WorkingHoursPerMonth:  160,
	}
}

// Validator validates tender records against field rules, cross-field
// consistency and business plausibility. It is stateless per call and safe
// for concurrent use.
type Validator struct {
	cfg       Config
	validate  *validator.Validate
	agencies  map[string]string // lowercased full name -> short code
	landmarks map[string]string // lowercased landmark -> canonical area
	now       func() time.Time
}

// New creates a Validator with the given thresholds and canonicalization
// tables. Nil tables are treated as empty.
func New(cfg Config, agencies, landmarks map[string]string) *Validator {
	if agencies == nil {
		agencies = map[string]string{}
	}
	if landmarks == nil {
		landmarks = map[string]string{}
	}
	return &Validator{
		cfg:       cfg,
		validate:  validator.New(),
		agencies:  agencies,
		landmarks: landmarks,
		now:       time.Now,
	}
}

// fieldRules mirrors the raw record fields that carry tag-expressible rules.
type fieldRules struct {
	Title             string  `validate:"required,min=10,max=200"`
	Agency            string  `validate:"required,min=2,max=100"`
	ClosingDate       string  `validate:"required"`
	EstimatedValue    float64 `validate:"required,gte=1000,lte=50000000"`
	RequiredHeadcount int     `validate:"required,gte=1,lte=1000"`
	DurationMonths    int     `validate:"required,gte=1,lte=60"`
	PayRate           float64 `validate:"required,gt=0,lte=200"`
	ChargeRate        float64 `validate:"required,gt=0,lte=300"`
}

// fieldRuleMessages maps field/tag pairs to readable rule-violation messages.
var fieldRuleMessages = map[string]string{
	"Title/required":             "title is required",
	"Title/min":                  "title is too short (minimum 10 characters)",
	"Title/max":                  "title is too long (maximum 200 characters)",
	"Agency/required":            "agency is required",
	"Agency/min":                 "agency name is too short",
	"Agency/max":                 "agency name is too long",
	"ClosingDate/required":       "closing date is required",
	"EstimatedValue/required":    "estimated value is required",
	"EstimatedValue/gte":         "estimated value is below the plausible minimum",
	"EstimatedValue/lte":         "estimated value is above the plausible maximum",
	"RequiredHeadcount/required": "required headcount is required",
	"RequiredHeadcount/gte":      "required headcount must be at least 1",
	"RequiredHeadcount/lte":      "required headcount is implausibly large",
	"DurationMonths/required":    "duration is required",
	"DurationMonths/gte":         "duration must be at least 1 month",
	"DurationMonths/lte":         "duration is implausibly long",
	"PayRate/required":           "pay rate is required",
	"PayRate/gt":                 "pay rate must be positive",
	"PayRate/lte":                "pay rate is implausibly high",
	"ChargeRate/required":        "charge rate is required",
	"ChargeRate/gt":              "charge rate must be positive",
	"ChargeRate/lte":             "charge rate is implausibly high",
}

// placeholderPatterns detect test/placeholder titles. Any match is fatal.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)lorem\s+ipsum`),
	regexp.MustCompile(`(?i)^test(\s|$)`),
	regexp.MustCompile(`(?i)^sample\b`),
	regexp.MustCompile(`(?i)^(undefined|null|n/?a)$`),
}

// closingDateFormats are tried in order when parsing the raw closing date.
var closingDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	time.RFC3339,
	"02/01/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// Validate cleans and canonicalizes the raw record, evaluates field,
// cross-field and plausibility rules, and computes the data quality score.
// Warnings never affect validity; any error makes the record invalid.
func (v *Validator) Validate(raw types.TenderRecord) *types.ValidatedTender {
	rec := raw
	rec.Title = CleanText(raw.Title)
	rec.Description = CleanText(raw.Description)
	rec.Agency = v.CanonicalizeAgency(raw.Agency)
	rec.Location = v.CanonicalizeLocation(raw.Location)
	rec.ClosingDate = strings.TrimSpace(raw.ClosingDate)

	result := &types.ValidatedTender{Record: rec}

	v.checkFields(rec, result)
	v.checkPlaceholders(rec, result)
	closing := v.checkClosingDate(rec, result)
	result.ClosingDate = closing
	v.checkCrossField(rec, result)
	v.checkPlausibility(rec, closing, result)

	result.DataQualityScore = v.score(rec, result)
	result.IsValid = len(result.Errors) == 0
	return result
}

func (v *Validator) checkFields(rec types.TenderRecord, result *types.ValidatedTender) {
	rules := fieldRules{
		Title:             rec.Title,
		Agency:            rec.Agency,
		ClosingDate:       rec.ClosingDate,
		EstimatedValue:    rec.EstimatedValue,
		RequiredHeadcount: rec.RequiredHeadcount,
		DurationMonths:    rec.DurationMonths,
		PayRate:           rec.PayRate,
		ChargeRate:        rec.ChargeRate,
	}

	err := v.validate.Struct(rules)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.Errors = append(result.Errors, fmt.Sprintf("field validation failed: %v", err))
		return
	}

	for _, fe := range fieldErrs {
		key := fe.Field() + "/" + fe.Tag()
		if msg, ok := fieldRuleMessages[key]; ok {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s violates rule %s", fe.Field(), fe.Tag()))
		}
	}
}

func (v *Validator) checkPlaceholders(rec types.TenderRecord, result *types.ValidatedTender) {
	title := strings.TrimSpace(rec.Title)
	for _, re := range placeholderPatterns {
		if re.MatchString(title) {
			result.Errors = append(result.Errors, "title matches a placeholder/test-data pattern")
			return
		}
	}
}

// checkClosingDate parses the closing date and evaluates date bounds.
// Returns the parsed time, or the zero time when unparseable.
func (v *Validator) checkClosingDate(rec types.TenderRecord, result *types.ValidatedTender) time.Time {
	if rec.ClosingDate == "" {
		return time.Time{}
	}

	var closing time.Time
	parsed := false
	for _, layout := range closingDateFormats {
		if t, err := time.Parse(layout, rec.ClosingDate); err == nil {
			closing = t
			parsed = true
			break
		}
	}
	if !parsed {
		result.Errors = append(result.Errors, fmt.Sprintf("unrecognized closing date format: %q", rec.ClosingDate))
		return time.Time{}
	}

	now := v.now()
	if closing.Before(now.Truncate(24 * time.Hour)) {
		result.Errors = append(result.Errors, "closing date is in the past")
	} else if closing.After(now.AddDate(0, 0, v.cfg.MaxClosingHorizonDays)) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("closing date is more than %d days out", v.cfg.MaxClosingHorizonDays))
	}

	return closing
}

func (v *Validator) checkCrossField(rec types.TenderRecord, result *types.ValidatedTender) {
	if rec.PayRate <= 0 || rec.ChargeRate <= 0 {
		return // field rules already flagged missing rates
	}

	if rec.PayRate >= rec.ChargeRate {
		result.Errors = append(result.Errors,
			fmt.Sprintf("pay rate %.2f is not below charge rate %.2f", rec.PayRate, rec.ChargeRate))
		return
	}

	margin := (rec.ChargeRate - rec.PayRate) / rec.ChargeRate
	if margin < v.cfg.MarginMin || margin > v.cfg.MarginMax {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("margin %.0f%% is outside the expected %.0f%%-%.0f%% band",
				margin*100, v.cfg.MarginMin*100, v.cfg.MarginMax*100))
	}

	// Upstream value estimation is approximate, so inconsistency between the
	// stated total and the computed total is advisory only.
	if rec.EstimatedValue > 0 && rec.RequiredHeadcount > 0 && rec.DurationMonths > 0 {
		computedMonthly := float64(rec.RequiredHeadcount) * rec.ChargeRate * v.cfg.WorkingHoursPerMonth
		computedTotal := computedMonthly * float64(rec.DurationMonths)
		deviation := math.Abs(computedTotal-rec.EstimatedValue) / computedTotal
		if deviation > v.cfg.RevenueTolerance {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("stated value %.0f deviates %.0f%% from computed value %.0f",
					rec.EstimatedValue, deviation*100, computedTotal))
		}
	}
}

func (v *Validator) checkPlausibility(rec types.TenderRecord, closing time.Time, result *types.ValidatedTender) {
	if !closing.IsZero() {
		switch closing.Weekday() {
		case time.Saturday, time.Sunday:
			result.Warnings = append(result.Warnings, "closing date falls on a weekend")
		}

		window := int(closing.Sub(v.now()).Hours() / 24)
		if window >= 0 && window < v.cfg.MinBiddingWindowDays {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("bidding window of %d days is under the %d-day minimum", window, v.cfg.MinBiddingWindowDays))
		} else if window > v.cfg.MaxBiddingWindowDays {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("bidding window of %d days exceeds the %d-day maximum", window, v.cfg.MaxBiddingWindowDays))
		}
	}

	switch rec.Category {
	case "event-support":
		if rec.DurationMonths > 12 {
			result.Warnings = append(result.Warnings, "event-support tenders rarely run longer than 12 months")
		}
	case "security":
		if rec.PayRate > 0 && rec.PayRate < 8 {
			result.Warnings = append(result.Warnings, "security pay rate is below the licensed-officer floor")
		}
	case "facility-management":
		if rec.RequiredHeadcount > 200 {
			result.Warnings = append(result.Warnings, "facility-management headcount above 200 is unusual")
		}
	}
}

// requiredFieldCount is the number of fields contributing to the completeness bonus.
const requiredFieldCount = 8

// score computes the 0-100 data quality score: -20 per error, -5 per warning,
// up to +20 for required-field completeness and +5 per optional field present.
func (v *Validator) score(rec types.TenderRecord, result *types.ValidatedTender) int {
	score := 100
	score -= 20 * len(result.Errors)
	score -= 5 * len(result.Warnings)

	present := 0
	if rec.Title != "" {
		present++
	}
	if rec.Agency != "" {
		present++
	}
	if rec.ClosingDate != "" {
		present++
	}
	if rec.EstimatedValue > 0 {
		present++
	}
	if rec.RequiredHeadcount > 0 {
		present++
	}
	if rec.DurationMonths > 0 {
		present++
	}
	if rec.PayRate > 0 {
		present++
	}
	if rec.ChargeRate > 0 {
		present++
	}
	score += 20 * present / requiredFieldCount

	for _, optional := range []string{rec.Description, rec.Location, rec.SourceURL, rec.PublishedDate} {
		if optional != "" {
			score += 5
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
