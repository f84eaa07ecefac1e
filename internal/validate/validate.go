// Package validate decides whether generated section text is usable and
// cross-checks prices quoted in it.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/StockBrief/internal/failure"
	"github.com/TobiSchelling/StockBrief/internal/locale"
	"github.com/TobiSchelling/StockBrief/internal/section"
)

// DefaultMinLength is the trimmed length below which text is rejected.
const DefaultMinLength = 100

// DefaultTolerance is the allowed relative deviation for the price check.
const DefaultTolerance = 0.1

// Markers are phrases a model emits when it narrates its own tool use instead
// of writing the analysis. Matching is case-sensitive.
var Markers = []string{
	"tool call",
	"I'll use",
	"Calling tool",
	"Let me",
	"I'll create",
	"I'll analyze",
}

// Validator applies the length, narration and keyword rules in that order.
type Validator struct {
	loc       *locale.Locale
	minLength int
	markers   []string
}

// New builds a Validator for loc. minLength < 1 selects DefaultMinLength;
// extraMarkers are checked after the built-in Markers.
func New(loc *locale.Locale, minLength int, extraMarkers []string) *Validator {
	if minLength < 1 {
		minLength = DefaultMinLength
	}
	markers := make([]string, 0, len(Markers)+len(extraMarkers))
	markers = append(markers, Markers...)
	for _, m := range extraMarkers {
		if m != "" {
			markers = append(markers, m)
		}
	}
	return &Validator{loc: loc, minLength: minLength, markers: markers}
}

// Validate returns nil when text is acceptable for id, otherwise a
// *failure.ValidationError for the first rule it breaks.
func (v *Validator) Validate(text string, id section.ID) error {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < v.minLength {
		return &failure.ValidationError{Section: id.String(), Reason: failure.ReasonTooShort}
	}

	for _, m := range v.markers {
		if strings.Contains(text, m) {
			return &failure.ValidationError{Section: id.String(), Reason: failure.ReasonToolNarration, Detail: m}
		}
	}

	// Keywords match regardless of case so a sentence may start with one.
	lower := strings.ToLower(text)
	for _, kw := range v.loc.RequiredKeywords[id] {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return &failure.ValidationError{Section: id.String(), Reason: failure.ReasonMissingKeyword, Detail: kw}
		}
	}
	return nil
}

// ExtractPrice returns the first price quoted in text under one of the
// locale's labels, trying the patterns in order.
func (v *Validator) ExtractPrice(text string) (decimal.Decimal, bool) {
	for _, re := range v.loc.PricePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		price, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		return price, true
	}
	return decimal.Zero, false
}

// Comparison is the outcome of a price cross-check.
type Comparison struct {
	Analyzed  float64
	Reference float64
	Tolerance float64
	Deviation float64
}

// Passed reports whether the deviation is within tolerance.
func (c Comparison) Passed() bool { return c.Deviation <= c.Tolerance }

// CheckPrice compares an analyzed price with a reference price. Both must be
// positive; otherwise the error wraps failure.ErrInvalidPrice and no deviation
// is computed. A deviation above tolerance yields a *failure.PriceMismatchError.
func CheckPrice(analyzed, reference, tolerance float64) (Comparison, error) {
	c := Comparison{Analyzed: analyzed, Reference: reference, Tolerance: tolerance}
	if analyzed <= 0 || reference <= 0 {
		return c, fmt.Errorf("%w: analyzed=%v reference=%v", failure.ErrInvalidPrice, analyzed, reference)
	}

	a := decimal.NewFromFloat(analyzed)
	r := decimal.NewFromFloat(reference)
	c.Deviation = a.Sub(r).Abs().Div(r).InexactFloat64()

	if !c.Passed() {
		return c, &failure.PriceMismatchError{
			Analyzed:  analyzed,
			Reference: reference,
			Tolerance: tolerance,
			Deviation: c.Deviation,
		}
	}
	return c, nil
}
