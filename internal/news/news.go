// Package news gathers recent articles about an entity from RSS feeds and
// NewsAPI, to ground the news and market sections.
package news

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/logger"
)

// Article is one news item.
type Article struct {
	URL       string
	Title     string
	Published time.Time // zero when the source gave no date
	Content   string
	Source    string
}

// Options configures a Collector.
type Options struct {
	Feeds         []FeedConfig
	NewsAPIKeyEnv string // empty disables NewsAPI
	Language      string
	DaysBack      int
	MaxArticles   int
	FetchContent  bool
	FetchTimeout  time.Duration
}

// Collector combines feeds and NewsAPI into one deduplicated list.
type Collector struct {
	feeds       *FeedParser
	newsAPI     *NewsAPIClient
	fetcher     *ContentFetcher
	daysBack    int
	maxArticles int
}

// NewCollector creates a Collector.
func NewCollector(opts Options) *Collector {
	c := &Collector{daysBack: opts.DaysBack, maxArticles: opts.MaxArticles}
	if c.daysBack < 1 {
		c.daysBack = 7
	}
	if c.maxArticles < 1 {
		c.maxArticles = 15
	}
	if len(opts.Feeds) > 0 {
		c.feeds = NewFeedParser(opts.Feeds)
	}
	if opts.NewsAPIKeyEnv != "" {
		c.newsAPI = NewNewsAPIClient(opts.NewsAPIKeyEnv, opts.Language)
	}
	if opts.FetchContent {
		c.fetcher = NewContentFetcher(opts.FetchTimeout)
	}
	return c
}

// Gather returns the newest articles matching any of terms, published in the
// window before ref. Empty terms match everything. query is sent to NewsAPI.
func (c *Collector) Gather(ctx context.Context, query string, terms []string, ref time.Time) []Article {
	var all []Article

	if c.feeds != nil {
		for _, a := range c.feeds.ParseAll(ctx, ref, c.daysBack) {
			if matches(a, terms) {
				all = append(all, a)
			}
		}
	}

	if c.newsAPI != nil && c.newsAPI.IsConfigured() && query != "" {
		found, err := c.newsAPI.Search(ctx, query, ref, c.daysBack, c.maxArticles*2)
		if err != nil {
			logger.Log.Warnf("news search failed: %v", err)
		}
		all = append(all, found...)
	}

	all = dedupe(all)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Published.After(all[j].Published) })
	if len(all) > c.maxArticles {
		all = all[:c.maxArticles]
	}

	if c.fetcher != nil {
		c.fillContent(ctx, all)
	}
	logger.Log.Infof("gathered %d articles for %q", len(all), query)
	return all
}

// fillContent fetches full text for thin articles. After an HTTP error status
// the rest of that domain is skipped.
func (c *Collector) fillContent(ctx context.Context, articles []Article) {
	failedDomains := make(map[string]struct{})
	for i := range articles {
		if len([]rune(articles[i].Content)) >= minContentLength {
			continue
		}
		domain := ""
		if u, err := url.Parse(articles[i].URL); err == nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			continue
		}

		text, err := c.fetcher.FetchContent(ctx, articles[i].URL)
		var httpErr *HTTPError
		switch {
		case errors.As(err, &httpErr):
			failedDomains[domain] = struct{}{}
			logger.Log.Debugf("%s for %s, skipping remaining from %s", httpErr, articles[i].URL, domain)
		case err != nil:
			logger.Log.Debugf("fetching %s: %v", articles[i].URL, err)
		case text != "":
			articles[i].Content = text
		}
	}
}

func matches(a Article, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	hay := strings.ToLower(a.Title + " " + a.Content)
	for _, t := range terms {
		if t != "" && strings.Contains(hay, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func dedupe(in []Article) []Article {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, a := range in {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Digest formats articles for a prompt, truncating each body to maxChars.
func Digest(articles []Article, maxChars int) string {
	if len(articles) == 0 {
		return "No recent articles found."
	}
	var sb strings.Builder
	for i, a := range articles {
		date := "undated"
		if !a.Published.IsZero() {
			date = a.Published.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, "[%d] %s (%s, %s)\n", i+1, a.Title, a.Source, date)
		body := []rune(a.Content)
		if maxChars > 0 && len(body) > maxChars {
			body = append(body[:maxChars], '…')
		}
		if len(body) > 0 {
			sb.WriteString(string(body))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
