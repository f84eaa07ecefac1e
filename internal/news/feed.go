package news

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/StockBrief/internal/logger"
)

const maxPerFeed = 30

// FeedConfig is one RSS or Atom source.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser reads the configured feeds.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedParser creates a FeedParser.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	return &FeedParser{feeds: feeds, parser: gofeed.NewParser()}
}

// ParseAll returns entries published within daysBack of ref from every feed.
// A feed that fails to load is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, ref time.Time, daysBack int) []Article {
	cutoff := ref.AddDate(0, 0, -daysBack)
	var all []Article

	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := fp.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			logger.Log.Warnf("failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		entries := parseItems(feed.Items, name, cutoff, ref)
		all = append(all, entries...)
		logger.Log.Debugf("parsed %d entries from %s", len(entries), name)
	}
	return all
}

func parseItems(items []*gofeed.Item, source string, cutoff, ref time.Time) []Article {
	var out []Article
	for _, item := range items {
		if len(out) >= maxPerFeed {
			break
		}
		a, ok := parseItem(item, source)
		if !ok {
			continue
		}
		if a.Published.IsZero() || (!a.Published.Before(cutoff) && !a.Published.After(ref.AddDate(0, 0, 1))) {
			out = append(out, a)
		}
	}
	return out
}

func parseItem(item *gofeed.Item, source string) (Article, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return Article{}, false
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	return Article{
		URL:       link,
		Title:     title,
		Published: published,
		Content:   stripHTML(content),
		Source:    source,
	}, true
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(result.String())
	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "rss.", "feeds.", "news."} {
		host = strings.TrimPrefix(host, prefix)
	}
	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
		if len(parts) >= 3 && (name == "co" || name == "com") {
			name = parts[len(parts)-3]
		}
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
