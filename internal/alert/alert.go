// Package alert delivers operator-facing messages. Every sink is best effort:
// Send reports whether the message went out and never returns an error.
package alert

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/logger"
)

// Sink is a best-effort alert transport.
type Sink interface {
	Send(ctx context.Context, msg string) bool
}

// Severity orders how urgently an operator should react.
type Severity string

const (
	Critical Severity = "critical"
	Warning  Severity = "warning"
	Error    Severity = "error"
)

// Field is one labelled line of an alert body.
type Field struct {
	Label string
	Value string
}

// Message is a structured alert. Entity and Section are kept for the archive;
// the rendered text only shows what Fields carries.
type Message struct {
	Severity Severity
	Title    string
	Entity   string
	Section  string
	Fields   []Field
	Note     string // closing line after the fields
}

// Text renders the message for an HTML parse-mode chat.
func (m Message) Text() string {
	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(m.Title))
	sb.WriteString("</b>")
	if len(m.Fields) > 0 {
		sb.WriteString("\n")
	}
	for _, f := range m.Fields {
		sb.WriteString("\n")
		sb.WriteString(html.EscapeString(f.Label))
		sb.WriteString(": ")
		sb.WriteString(html.EscapeString(f.Value))
	}
	if m.Note != "" {
		sb.WriteString("\n\n")
		sb.WriteString(html.EscapeString(m.Note))
	}
	return sb.String()
}

// Nop is the sink used when no transport is configured.
type Nop struct{}

// Send logs the message locally and reports it as undelivered.
func (Nop) Send(_ context.Context, msg string) bool {
	logger.Log.Warnf("alert transport not configured, alert not sent: %s", firstLine(msg))
	return false
}

// NewSink picks the transport once: Telegram when both credentials are set,
// otherwise Nop.
func NewSink(botToken, chatID string, timeout time.Duration) Sink {
	if botToken == "" || chatID == "" {
		logger.Log.Info("telegram credentials missing, alerts will only be logged")
		return Nop{}
	}
	return NewTelegram(botToken, chatID, timeout)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
