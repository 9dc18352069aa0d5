package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/relaunch/pkg/relaunch"
)

var outcomes = []relaunch.Outcome{
	relaunch.OutcomePathUnavailable,
	relaunch.OutcomeSpawned,
	relaunch.OutcomeSpawnFailed,
}

// Metrics are boring counters only. Every value can be explained by
// looking at the Results that produced it.
type Metrics struct {
	attempts    *prometheus.CounterVec
	duration    prometheus.Histogram
	lastAttempt *prometheus.GaugeVec
}

// NewMetrics creates the relaunch collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relaunch_attempts_total",
				Help: "Relaunch attempts by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relaunch_attempt_duration_seconds",
				Help:    "Time spent resolving the executable and handing the spawn to the OS",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		lastAttempt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relaunch_last_attempt_timestamp_seconds",
				Help: "Unix time of the last relaunch attempt by outcome",
			},
			[]string{"outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.duration, m.lastAttempt} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register relaunch metrics: %w", err)
		}
	}

	// Export zeroes for every outcome from the start.
	for _, o := range outcomes {
		m.attempts.WithLabelValues(string(o))
	}

	return m, nil
}

// RecordResult updates all collectors from a single Result.
// This is the only way metrics change.
func (m *Metrics) RecordResult(r *Result) {
	m.attempts.WithLabelValues(r.Outcome).Inc()
	m.duration.Observe(r.Duration.Seconds())
	m.lastAttempt.WithLabelValues(r.Outcome).Set(float64(r.EndTime.UnixNano()) / 1e9)
}
