// Package analyst produces the per-section report text with an LLM, grounded
// in market data and recent news.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/llm"
	"github.com/TobiSchelling/StockBrief/internal/locale"
	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/marketdata"
	"github.com/TobiSchelling/StockBrief/internal/news"
	"github.com/TobiSchelling/StockBrief/internal/section"
)

// DateLayout is the reference date format.
const DateLayout = "20060102"

// MarketSource supplies price history. *marketdata.Client satisfies it.
type MarketSource interface {
	Symbol(code string) string
	History(ctx context.Context, symbol string, end time.Time, days int) (*marketdata.Series, error)
}

// NewsSource supplies recent articles. *news.Collector satisfies it.
type NewsSource interface {
	Gather(ctx context.Context, query string, terms []string, ref time.Time) []news.Article
}

// Options tunes the producers.
type Options struct {
	IndexSymbols []string
	MarketQuery  string
	HistoryDays  int
	RecentRows   int
	MaxTokens    int
}

// Analyst writes report sections.
type Analyst struct {
	provider llm.Provider
	market   MarketSource
	news     NewsSource
	loc      *locale.Locale
	opts     Options
}

// New creates an Analyst. news may be nil.
func New(provider llm.Provider, market MarketSource, newsSrc NewsSource, loc *locale.Locale, opts Options) *Analyst {
	if opts.HistoryDays < 1 {
		opts.HistoryDays = 180
	}
	if opts.RecentRows < 1 {
		opts.RecentRows = 20
	}
	if opts.MaxTokens < 1 {
		opts.MaxTokens = 2048
	}
	return &Analyst{provider: provider, market: market, news: newsSrc, loc: loc, opts: opts}
}

// ErrNoProvider is returned when no LLM is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Produce writes an entity-scoped section.
func (a *Analyst) Produce(ctx context.Context, id section.ID, name, code, date string) (string, error) {
	if a.provider == nil {
		return "", ErrNoProvider
	}
	ref, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return "", fmt.Errorf("parsing reference date %q: %w", date, err)
	}

	data, extra, err := a.sectionData(ctx, id, name, code, ref)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(sectionPrompt,
		name, code, ref.Format("2006-01-02"),
		a.loc.Title(id), focus[id], a.loc.Language, extra, data)
	return a.generate(ctx, id, prompt)
}

// ProduceMarket writes the market-wide section. It does not depend on the entity.
func (a *Analyst) ProduceMarket(ctx context.Context, id section.ID, date string) (string, error) {
	if a.provider == nil {
		return "", ErrNoProvider
	}
	ref, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return "", fmt.Errorf("parsing reference date %q: %w", date, err)
	}

	var sb strings.Builder
	for _, sym := range a.opts.IndexSymbols {
		series, err := a.market.History(ctx, sym, ref.AddDate(0, 0, 1), 90)
		if err != nil {
			logger.Log.Warnf("index %s unavailable: %v", sym, err)
			continue
		}
		sb.WriteString(series.Digest(10))
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no index data for %v", a.opts.IndexSymbols)
	}

	newsText := "No news source configured."
	if a.news != nil {
		newsText = news.Digest(a.news.Gather(ctx, a.opts.MarketQuery, nil, ref), 400)
	}

	prompt := fmt.Sprintf(marketPrompt, ref.Format("2006-01-02"), focus[id], a.loc.Language, sb.String(), newsText)
	return a.generate(ctx, id, prompt)
}

// sectionData returns the data block and any extra rules for a section.
func (a *Analyst) sectionData(ctx context.Context, id section.ID, name, code string, ref time.Time) (string, string, error) {
	var data strings.Builder
	var extra string

	needsPrice := id == section.PriceVolume || id == section.InvestorTrading || id == section.CompanyStatus
	if needsPrice {
		days := a.opts.HistoryDays
		if id == section.CompanyStatus {
			days = 365
		}
		series, err := a.market.History(ctx, a.market.Symbol(code), ref.AddDate(0, 0, 1), days)
		if err != nil {
			return "", "", fmt.Errorf("price history for %s: %w", code, err)
		}
		data.WriteString(series.Digest(a.opts.RecentRows))

		if id == section.PriceVolume {
			if last, ok := series.Last(); ok {
				line := fmt.Sprintf(a.loc.PriceLineFmt, thousands(int64(last.Close+0.5)))
				extra = fmt.Sprintf("- Quote the latest close exactly as \"%s\".\n- Use the terms %s.\n",
					line, strings.Join(quoted(a.loc.RequiredKeywords[id]), ", "))
			}
		}
	}

	needsNews := id == section.News || id == section.CompanyStatus || id == section.CompanyOverview
	if needsNews && a.news != nil {
		articles := a.news.Gather(ctx, name, []string{name, code}, ref)
		if data.Len() > 0 {
			data.WriteString("\n")
		}
		data.WriteString("Recent news:\n")
		data.WriteString(news.Digest(articles, 600))
	}

	if data.Len() == 0 {
		data.WriteString("No structured data available; rely on well-established public facts only.")
	}
	return data.String(), extra, nil
}

func (a *Analyst) generate(ctx context.Context, id section.ID, prompt string) (string, error) {
	logger.Log.Debugf("generating %s (%d prompt chars)", id, len(prompt))
	text, err := a.provider.Generate(ctx, prompt, a.opts.MaxTokens)
	if err != nil {
		return "", err
	}
	return llm.StripCodeFence(text), nil
}

func quoted(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strconv.Quote(w)
	}
	return out
}

// thousands formats n with comma separators.
func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var sb strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}
