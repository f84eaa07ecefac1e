package llm

import (
	"encoding/json"
	"strings"

	"github.com/TobiSchelling/StockBrief/internal/logger"
)

// StripCodeFence removes a markdown code fence wrapping the whole text.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if endIdx <= 1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// ParseJSONResponse parses a JSON object from an LLM reply, tolerating code
// fences and prose around the object. Returns nil when nothing parses.
func ParseJSONResponse(text string) map[string]any {
	text = StripCodeFence(text)
	if text == "" {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &result); err == nil {
			return result
		}
	}

	logger.Log.Debugf("failed to parse LLM response as JSON (%d chars)", len(text))
	return nil
}
