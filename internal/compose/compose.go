// Package compose synthesizes the cross-section investment strategy and the
// executive summary from the finished sections.
package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/StockBrief/internal/llm"
	"github.com/TobiSchelling/StockBrief/internal/locale"
	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/section"
)

const strategyPrompt = `You are the lead analyst finishing a stock report on %s (%s) as of %s.

Below are the report's analysis sections. Some may read "%s", which means that section could not be produced; do not invent its content.

%s

Write the investment strategy section in %s, in markdown, using ### subheadings only:
- overall view and the main reasons for it,
- separate guidance for short-term traders and long-term investors,
- key price levels to watch and the risks that would change the view.
Do not describe what you are going to do; write the section directly.`

const summaryPrompt = `You are writing the executive summary at the top of a stock report on %s (%s) as of %s.

Report sections:
%s

Respond with ONLY this JSON, all text in %s:
{
    "headline": "One sentence with the overall conclusion",
    "key_points": [
        "First key point",
        "Second key point",
        "Third key point"
    ],
    "outlook": "Two or three sentences on what to watch next"
}`

// ErrEmptyResponse is returned when the model answers with nothing usable.
var ErrEmptyResponse = errors.New("empty response from LLM")

// Composer runs the two synthesis steps.
type Composer struct {
	provider  llm.Provider
	loc       *locale.Locale
	maxTokens int
}

// New creates a Composer.
func New(provider llm.Provider, loc *locale.Locale, maxTokens int) *Composer {
	if maxTokens < 1 {
		maxTokens = 2048
	}
	return &Composer{provider: provider, loc: loc, maxTokens: maxTokens}
}

// Strategy writes the investment strategy from the combined section text.
func (c *Composer) Strategy(ctx context.Context, results *section.Results, combined, name, code, date string) (string, error) {
	if c.provider == nil {
		return "", errors.New("no LLM provider configured")
	}
	if results.Len() == 0 {
		return "", errors.New("no sections to build a strategy from")
	}

	prompt := fmt.Sprintf(strategyPrompt, name, code, displayDate(date),
		strings.TrimSuffix(c.loc.PlaceholderFmt, "%s"), combined, c.loc.Language)
	text, err := c.provider.Generate(ctx, prompt, c.maxTokens)
	if err != nil {
		return "", err
	}
	text = llm.StripCodeFence(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	logger.Log.Infof("strategy written for %s: %d characters", name, len([]rune(text)))
	return text, nil
}

// Summary writes the executive summary from every section, strategy included.
// A reply that is not the requested JSON is used as prose under the summary heading.
func (c *Composer) Summary(ctx context.Context, results *section.Results, name, code, date string) (string, error) {
	if c.provider == nil {
		return "", errors.New("no LLM provider configured")
	}

	prompt := fmt.Sprintf(summaryPrompt, name, code, displayDate(date),
		results.Combined(section.Document()), c.loc.Language)
	responseText, err := c.provider.Generate(ctx, prompt, 1024)
	if err != nil {
		return "", err
	}

	heading := "# " + c.loc.SummaryHeading + "\n\n"
	parsed := llm.ParseJSONResponse(responseText)
	if parsed != nil {
		if body := renderSummary(parsed); body != "" {
			return heading + body, nil
		}
	}

	prose := llm.StripCodeFence(responseText)
	if prose == "" {
		return "", ErrEmptyResponse
	}
	prose = strings.TrimPrefix(prose, "# "+c.loc.SummaryHeading)
	return heading + strings.TrimSpace(prose), nil
}

func renderSummary(m map[string]any) string {
	var parts []string
	if h := getStr(m, "headline", ""); h != "" {
		parts = append(parts, "**"+h+"**")
	}
	if arr, ok := m["key_points"].([]any); ok {
		var lines []string
		for _, p := range arr {
			if s, ok := p.(string); ok && s != "" {
				lines = append(lines, "- "+s)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}
	if o := getStr(m, "outlook", ""); o != "" {
		parts = append(parts, o)
	}
	return strings.Join(parts, "\n\n")
}

func getStr(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}

// displayDate turns YYYYMMDD into YYYY-MM-DD and leaves anything else alone.
func displayDate(date string) string {
	if len(date) != 8 {
		return date
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:]
}
