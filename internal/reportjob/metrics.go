package reportjob

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for report job activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	polls       *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// MustNewMetrics registers the collectors with reg and panics on duplicate
// registration, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schedula",
				Subsystem: "report_job",
				Name:      "transitions_total",
				Help:      "Report job state transitions observed by the client.",
			},
			[]string{"status"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schedula",
				Subsystem: "report_job",
				Name:      "polls_total",
				Help:      "Poll requests issued, by outcome.",
			},
			[]string{"outcome"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "schedula",
				Subsystem: "report_job",
				Name:      "duration_seconds",
				Help:      "Time from submit to a terminal state.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(m.transitions, m.polls, m.jobDuration)
	return m
}

func (m *Metrics) transition(s Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(s)).Inc()
}

func (m *Metrics) poll(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) finished(s Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(string(s)).Observe(elapsed.Seconds())
}
