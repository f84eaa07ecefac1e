package alert

import (
	"context"
	"sync"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/metrics"
)

// Queue hands messages to a background worker so the caller never blocks on
// the transport. The buffer is bounded; when it is full the incoming message
// is dropped.
type Queue struct {
	sink    Sink
	timeout time.Duration
	ch      chan queued
	// direct is set for a Nop sink: there is nothing to wait for.
	direct bool

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type queued struct {
	msg    string
	report func(delivered bool)
}

// NewQueue starts a worker draining into sink. Each send runs under timeout.
func NewQueue(sink Sink, size int, timeout time.Duration) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		sink:    sink,
		timeout: timeout,
		ch:      make(chan queued, size),
		done:    make(chan struct{}),
	}
	if _, ok := sink.(Nop); ok {
		q.direct = true
	}
	go q.run()
	return q
}

// Enqueue schedules msg without blocking and reports whether it was accepted.
func (q *Queue) Enqueue(msg string) bool {
	return q.Submit(msg, nil)
}

// Submit schedules msg and, once the worker has tried the transport, calls
// report with the delivery result. report is not called for a rejected
// message. A Nop sink handles the message inline and rejects it.
func (q *Queue) Submit(msg string, report func(delivered bool)) bool {
	if q.direct {
		return q.sink.Send(context.Background(), msg)
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.AlertsDropped.Inc()
		return false
	}
	select {
	case q.ch <- queued{msg: msg, report: report}:
		return true
	default:
		metrics.AlertsDropped.Inc()
		logger.Log.Warnf("alert queue full, dropping: %s", firstLine(msg))
		return false
	}
}

// Send implements Sink. It reports acceptance into the queue, not delivery;
// Recorder uses Submit to learn the real outcome.
func (q *Queue) Send(_ context.Context, msg string) bool {
	return q.Enqueue(msg)
}

func (q *Queue) run() {
	defer close(q.done)
	for item := range q.ch {
		ctx := context.Background()
		cancel := func() {}
		if q.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, q.timeout)
		}
		delivered := q.sink.Send(ctx, item.msg)
		cancel()
		if item.report != nil {
			item.report(delivered)
		}
	}
}

// Close stops accepting messages and waits for the worker to drain what is
// already queued, or for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
