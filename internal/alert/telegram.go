package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/failure"
	"github.com/TobiSchelling/StockBrief/internal/logger"
)

// Telegram posts alerts to a chat through the Bot API.
type Telegram struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	baseURL    string // overridable for testing; defaults to the Bot API
}

// NewTelegram creates a Telegram sink. Callers normally go through NewSink.
func NewTelegram(botToken, chatID string, timeout time.Duration) *Telegram {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Deliver posts msg and returns a *failure.AlertDeliveryError on any failure.
func (t *Telegram) Deliver(ctx context.Context, msg string) error {
	endpoint := t.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	}
	vals := url.Values{
		"chat_id":    {t.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return &failure.AlertDeliveryError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &failure.AlertDeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &failure.AlertDeliveryError{Err: fmt.Errorf("telegram %d: %s", resp.StatusCode, body.Description)}
	}
	return nil
}

// Send delivers msg, logging and swallowing any failure.
func (t *Telegram) Send(ctx context.Context, msg string) bool {
	if err := t.Deliver(ctx, msg); err != nil {
		logger.Log.Errorf("telegram: %v", err)
		return false
	}
	return true
}
