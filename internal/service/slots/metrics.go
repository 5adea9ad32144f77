package slots

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts availability queries. A nil *Metrics records nothing.
type Metrics struct {
	queries   *prometheus.CounterVec
	openSlots prometheus.Histogram
}

func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schedula",
				Subsystem: "availability",
				Name:      "queries_total",
				Help:      "Availability queries, by outcome.",
			},
			[]string{"outcome"},
		),
		openSlots: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "schedula",
				Subsystem: "availability",
				Name:      "open_slots",
				Help:      "Open slots returned per query.",
				Buckets:   prometheus.LinearBuckets(0, 4, 10),
			},
		),
	}
	reg.MustRegister(m.queries, m.openSlots)
	return m
}

func (m *Metrics) query(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeOpen(n int) {
	if m == nil {
		return
	}
	m.openSlots.Observe(float64(n))
}
