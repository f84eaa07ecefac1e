// Package section holds the fixed, ordered catalog of report sections.
package section

import "strings"

// ID identifies one analytical subtopic of the report.
type ID string

const (
	PriceVolume        ID = "price_volume_analysis"
	InvestorTrading    ID = "investor_trading_analysis"
	CompanyStatus      ID = "company_status"
	CompanyOverview    ID = "company_overview"
	News               ID = "news_analysis"
	MarketIndex        ID = "market_index_analysis"
	InvestmentStrategy ID = "investment_strategy"
)

// Catalog is the execution order and the document order. Never reorder it.
var Catalog = []ID{
	PriceVolume,
	InvestorTrading,
	CompanyStatus,
	CompanyOverview,
	News,
	MarketIndex,
}

// Document is Catalog with the synthesized strategy appended last.
func Document() []ID {
	ids := make([]ID, 0, len(Catalog)+1)
	ids = append(ids, Catalog...)
	return append(ids, InvestmentStrategy)
}

func (id ID) String() string { return string(id) }

// Upper is the label used in the combined text handed to synthesis.
func (id ID) Upper() string { return strings.ToUpper(string(id)) }

// CacheEligible reports whether the section's content is independent of the entity.
func (id ID) CacheEligible() bool { return id == MarketIndex }

// EntityScoped reports whether the producer needs the entity name and code.
func (id ID) EntityScoped() bool { return id != MarketIndex }

// Results maps sections to their text for one run. Iteration always takes an
// explicit order so the document never depends on map order.
type Results struct {
	texts map[ID]string
}

// NewResults returns an empty result set.
func NewResults() *Results {
	return &Results{texts: make(map[ID]string)}
}

// Set records the text for a section, replacing any earlier value.
func (r *Results) Set(id ID, text string) { r.texts[id] = text }

// Get returns the text for a section.
func (r *Results) Get(id ID) (string, bool) {
	t, ok := r.texts[id]
	return t, ok
}

// Len returns the number of recorded sections.
func (r *Results) Len() int { return len(r.texts) }

// Combined concatenates the recorded sections in the given order, each behind a
// "--- SECTION ---" divider. Missing sections are skipped.
func (r *Results) Combined(order []ID) string {
	var sb strings.Builder
	for _, id := range order {
		text, ok := r.texts[id]
		if !ok {
			continue
		}
		sb.WriteString("\n\n--- ")
		sb.WriteString(id.Upper())
		sb.WriteString(" ---\n\n")
		sb.WriteString(text)
	}
	return sb.String()
}

// Ordered returns the recorded (id, text) pairs in the given order.
func (r *Results) Ordered(order []ID) []Entry {
	var out []Entry
	for _, id := range order {
		if text, ok := r.texts[id]; ok {
			out = append(out, Entry{ID: id, Text: text})
		}
	}
	return out
}

// Entry is one recorded section.
type Entry struct {
	ID   ID
	Text string
}
