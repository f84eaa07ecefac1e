package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/logger"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIClient searches NewsAPI's everything endpoint.
type NewsAPIClient struct {
	apiKey   string
	language string
	baseURL  string
	client   *http.Client
}

// NewNewsAPIClient reads the key from apiKeyEnv. language is an ISO 639-1 code.
func NewNewsAPIClient(apiKeyEnv, language string) *NewsAPIClient {
	return &NewsAPIClient{
		apiKey:   os.Getenv(apiKeyEnv),
		language: language,
		baseURL:  newsAPIBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns whether the API key is available.
func (c *NewsAPIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Search returns up to pageSize articles matching query published in the
// daysBack days before ref.
func (c *NewsAPIClient) Search(ctx context.Context, query string, ref time.Time, daysBack, pageSize int) ([]Article, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := url.Values{
		"q":        {query},
		"from":     {ref.AddDate(0, 0, -daysBack).Format("2006-01-02")},
		"to":       {ref.Format("2006-01-02")},
		"pageSize": {fmt.Sprint(pageSize)},
		"sortBy":   {"publishedAt"},
	}
	if c.language != "" {
		params.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Content     string `json:"content"`
			Description string `json:"description"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("newsapi: decoding response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.Status != "ok" {
		return nil, fmt.Errorf("newsapi: HTTP %d: %s", resp.StatusCode, result.Message)
	}

	var articles []Article
	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" || a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}
		var published time.Time
		if a.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				published = t
			}
		}
		content := a.Content
		if content == "" {
			content = a.Description
		}
		source := "NewsAPI"
		if a.Source.Name != "" {
			source = a.Source.Name
		}
		articles = append(articles, Article{
			URL:       a.URL,
			Title:     strings.TrimSpace(a.Title),
			Published: published,
			Content:   strings.TrimSpace(content),
			Source:    source,
		})
	}

	logger.Log.Debugf("fetched %d articles from NewsAPI for %q", len(articles), query)
	return articles, nil
}
