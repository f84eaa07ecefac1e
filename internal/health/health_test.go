package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TobiSchelling/StockBrief/internal/quality"
)

func TestCheck(t *testing.T) {
	c := NewChecker(50 * time.Millisecond)
	c.Register("ok", ProbeFunc(func(context.Context) error { return nil }))
	c.Register("err", ProbeFunc(func(context.Context) error { return errors.New("refused") }))
	c.Register("panic", ProbeFunc(func(context.Context) error { panic("nil map") }))
	c.Register("slow", ProbeFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	assert.True(t, c.Check(context.Background(), "ok"))
	assert.False(t, c.Check(context.Background(), "err"))
	assert.False(t, c.Check(context.Background(), "panic"))
	assert.False(t, c.Check(context.Background(), "slow"))
	assert.False(t, c.Check(context.Background(), "unregistered"))
}

func TestCheckAllKeepsOrder(t *testing.T) {
	c := NewChecker(0)
	c.Register("a", ProbeFunc(func(context.Context) error { return nil }))
	c.Register("b", ProbeFunc(func(context.Context) error { return errors.New("down") }))

	got := c.CheckAll(context.Background(), []string{"b", "a", "c"})
	assert.Equal(t, quality.Statuses{{Name: "b"}, {Name: "a", Healthy: true}, {Name: "c"}}, got)
}

func TestHTTPProbe(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.NoError(t, HTTPProbe(up.Client(), up.URL).Probe(context.Background()))
	err := HTTPProbe(down.Client(), down.URL).Probe(context.Background())
	assert.ErrorContains(t, err, "HTTP 503")
}
