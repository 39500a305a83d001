package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks ledger event delivery from the outbox table.
type OutboxMetrics struct {
	events *prometheus.CounterVec
	batch  prometheus.Histogram
}

// NewOutboxMetrics registers the publisher collectors. A nil registerer
// yields a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gtclicks_outbox_events_total",
			Help: "Outbox rows handled by event type and disposition.",
		}, []string{"event_type", "disposition"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gtclicks_outbox_batch_duration_seconds",
			Help:    "Time spent claiming and publishing one outbox batch.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.events, m.batch)
	return m
}

// IncEvent counts one row. Disposition is published, retry or dead_lettered.
func (m *OutboxMetrics) IncEvent(eventType, disposition string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(eventType, disposition).Inc()
}

func (m *OutboxMetrics) ObserveBatch(took time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(took.Seconds())
}
