package alert

import (
	"context"

	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/metrics"
)

// Store persists alerts. *database.DB satisfies it.
type Store interface {
	InsertAlert(severity, entity, section, message string, delivered bool) (int64, error)
	MarkAlertDelivered(id int64) error
}

// Deferred is a sink that delivers later and reports the outcome through a
// callback. *Queue satisfies it.
type Deferred interface {
	Submit(msg string, report func(delivered bool)) bool
}

// Recorder renders structured messages, sends them through a Sink and keeps a
// copy in the archive.
type Recorder struct {
	sink  Sink
	store Store
}

// NewRecorder wraps sink. A nil store skips persistence.
func NewRecorder(sink Sink, store Store) *Recorder {
	return &Recorder{sink: sink, store: store}
}

// Notify sends m and records it. For a Deferred sink the alert is stored as
// undelivered and flipped once the transport confirms; Notify then reports
// whether the message was accepted for delivery. Otherwise it reports delivery.
func (r *Recorder) Notify(ctx context.Context, m Message) bool {
	text := m.Text()

	d, ok := r.sink.(Deferred)
	if !ok {
		delivered := r.sink.Send(ctx, text)
		metrics.Alerts.WithLabelValues(string(m.Severity), metrics.Bool(delivered)).Inc()
		r.record(m, text, delivered)
		return delivered
	}

	id := r.record(m, text, false)
	accepted := d.Submit(text, func(delivered bool) {
		metrics.Alerts.WithLabelValues(string(m.Severity), metrics.Bool(delivered)).Inc()
		if !delivered || id == 0 {
			return
		}
		if err := r.store.MarkAlertDelivered(id); err != nil {
			logger.Log.Warnf("marking alert %d delivered: %v", id, err)
		}
	})
	if !accepted {
		metrics.Alerts.WithLabelValues(string(m.Severity), metrics.Bool(false)).Inc()
	}
	return accepted
}

// record stores the alert and returns its id, 0 when nothing was stored.
func (r *Recorder) record(m Message, text string, delivered bool) int64 {
	if r.store == nil {
		return 0
	}
	id, err := r.store.InsertAlert(string(m.Severity), m.Entity, m.Section, text, delivered)
	if err != nil {
		logger.Log.Warnf("recording alert: %v", err)
		return 0
	}
	return id
}
