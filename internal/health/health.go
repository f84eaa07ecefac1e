// Package health probes upstream dependencies before a run starts.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/metrics"
	"github.com/TobiSchelling/StockBrief/internal/quality"
)

// Probe verifies that one dependency is reachable.
type Probe interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// Checker runs registered probes by name.
type Checker struct {
	timeout time.Duration

	mu     sync.RWMutex
	probes map[string]Probe
}

// NewChecker creates a Checker. A positive timeout bounds every probe.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{timeout: timeout, probes: make(map[string]Probe)}
}

// Register installs the probe for name, replacing any previous one.
func (c *Checker) Register(name string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = p
}

// Check reports whether name is healthy. An unknown name, a probe error, a
// timeout and a panicking probe all count as unhealthy.
func (c *Checker) Check(ctx context.Context, name string) (healthy bool) {
	c.mu.RLock()
	p, ok := c.probes[name]
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("health probe %s panicked: %v", name, r)
			healthy = false
		}
		metrics.HealthChecks.WithLabelValues(name, metrics.Bool(healthy)).Inc()
	}()

	if !ok {
		logger.Log.Warnf("no health probe registered for %s", name)
		return false
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := p.Probe(ctx); err != nil {
		logger.Log.Warnf("health check %s failed: %v", name, err)
		return false
	}
	logger.Log.Debugf("health check %s ok", name)
	return true
}

// CheckAll probes every name in order without stopping at failures.
func (c *Checker) CheckAll(ctx context.Context, names []string) quality.Statuses {
	out := make(quality.Statuses, 0, len(names))
	for _, name := range names {
		out = append(out, quality.Status{Name: name, Healthy: c.Check(ctx, name)})
	}
	return out
}

// HTTPProbe treats any response below 400 from url as healthy.
func HTTPProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return ProbeFunc(func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s returned HTTP %d", url, resp.StatusCode)
		}
		return nil
	})
}
