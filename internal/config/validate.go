package config

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/StockBrief/internal/locale"
)

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := locale.Get(c.Locale); err != nil {
		return fmt.Errorf("locale: %w", err)
	}

	p := strings.ToLower(c.Summarization.Provider)
	if p != "ollama" && p != "openai" {
		return fmt.Errorf("summarization.provider must be 'ollama' or 'openai', got %q", c.Summarization.Provider)
	}
	if c.Summarization.MaxTokens < 1 {
		return fmt.Errorf("summarization.max_tokens must be > 0, got %d", c.Summarization.MaxTokens)
	}

	for i, name := range c.Health.Required {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("health.required[%d] is empty", i)
		}
	}
	for i, pr := range c.Health.Probes {
		if pr.Name == "" || pr.URL == "" {
			return fmt.Errorf("health.probes[%d] needs both name and url", i)
		}
	}

	if c.Validation.MinLength < 1 {
		return fmt.Errorf("validation.min_length must be >= 1, got %d", c.Validation.MinLength)
	}
	if c.Validation.PriceTolerance <= 0 || c.Validation.PriceTolerance > 1 {
		return fmt.Errorf("validation.price_tolerance must be within (0,1], got %g", c.Validation.PriceTolerance)
	}

	if c.Alerts.QueueSize < 1 {
		return fmt.Errorf("alerts.queue_size must be >= 1, got %d", c.Alerts.QueueSize)
	}

	timeouts := map[string]int64{
		"summarization.timeout":    int64(c.Summarization.Timeout),
		"health.timeout":           int64(c.Health.Timeout),
		"market_data.timeout":      int64(c.MarketData.Timeout),
		"alerts.timeout":           int64(c.Alerts.Timeout),
		"pipeline.section_timeout": int64(c.Pipeline.SectionTimeout),
	}
	for name, d := range timeouts {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
