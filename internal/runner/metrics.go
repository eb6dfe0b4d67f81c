package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records check outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the runner collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httpcheck",
			Name:      "checks_total",
			Help:      "Checks run, by check name and outcome.",
		}, []string{"check", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "httpcheck",
			Name:      "check_duration_seconds",
			Help:      "Wall time of a single check.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"check"}),
	}
	reg.MustRegister(m.checks, m.duration)
	return m
}

// observe counts res under its verdict status, or "fatal" for configuration
// errors and cancelled checks.
func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	outcome := string(res.Verdict.Status)
	if res.Err != nil {
		outcome = "fatal"
	}
	m.checks.WithLabelValues(res.Name, outcome).Inc()
	if res.Elapsed > 0 {
		m.duration.WithLabelValues(res.Name).Observe(res.Elapsed.Seconds())
	}
}
