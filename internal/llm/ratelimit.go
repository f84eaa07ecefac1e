package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/metrics"
)

// RateLimit bounds how fast a provider is called.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
	MaxRetries        int
	BaseDelay         time.Duration
}

// RateLimited waits on a shared limiter before every call and retries calls
// rejected with HTTP 429, doubling the delay each time.
type RateLimited struct {
	inner   Provider
	name    string
	limiter *rate.Limiter
	retries int
	delay   time.Duration
}

// NewRateLimited wraps p. A non-positive RequestsPerMinute disables limiting.
func NewRateLimited(p Provider, name string, rl RateLimit) *RateLimited {
	limit := rate.Inf
	if rl.RequestsPerMinute > 0 {
		limit = rate.Limit(rl.RequestsPerMinute / 60.0)
	}
	burst := rl.Burst
	if burst < 1 {
		burst = 1
	}
	delay := rl.BaseDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &RateLimited{
		inner:   p,
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
		retries: rl.MaxRetries,
		delay:   delay,
	}
}

// IsConfigured delegates to the wrapped provider.
func (r *RateLimited) IsConfigured() bool { return r.inner.IsConfigured() }

// Generate implements Provider.
func (r *RateLimited) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var lastErr error
	for i := 0; i <= r.retries; i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}

		text, err := r.inner.Generate(ctx, prompt, maxTokens)
		if err == nil {
			metrics.LLMRequests.WithLabelValues(r.name, "ok").Inc()
			return text, nil
		}
		lastErr = err
		if !isRateLimited(err) || i == r.retries {
			break
		}

		metrics.LLMRequests.WithLabelValues(r.name, "throttled").Inc()
		wait := r.delay * time.Duration(1<<i)
		logger.Log.Warnf("%s rate limited, retrying in %s (%d/%d)", r.name, wait, i+1, r.retries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	metrics.LLMRequests.WithLabelValues(r.name, "error").Inc()
	return "", lastErr
}

func isRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}
