package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job results recorded by Metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the conversion counters. A nil *Metrics records nothing.
type Metrics struct {
	pages    *prometheus.CounterVec
	attempts prometheus.Counter
	jobs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagebind",
			Name:      "pages_total",
			Help:      "Pages processed, by extraction outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pagebind",
			Name:      "extraction_attempts_total",
			Help:      "Calls made to the extraction service.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagebind",
			Name:      "jobs_total",
			Help:      "Conversion jobs finished, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pagebind",
			Name:      "job_duration_seconds",
			Help:      "Wall time of a conversion job.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	reg.MustRegister(m.pages, m.attempts, m.jobs, m.duration)
	return m
}

func (m *Metrics) page(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(outcome).Inc()
	m.attempts.Add(float64(attempts))
}

func (m *Metrics) job(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}
