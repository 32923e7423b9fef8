package migrate

import (
	"context"
	"time"

	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsNamespace = "aceman_migrate"

// Metrics are updated by the runner. A CLI run is short lived, so they are
// pushed to a Pushgateway at exit rather than scraped.
type Metrics struct {
	Registry *prometheus.Registry

	runs     *prometheus.CounterVec
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	version  prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Migration runs by direction and outcome.",
		}, []string{"direction", "outcome"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Migration steps by direction and result.",
		}, []string{"direction", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent executing one migration step.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"direction"}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "schema_version",
			Help:      "Schema version after the last run.",
		}),
	}
	m.Registry.MustRegister(m.runs, m.steps, m.duration, m.version)
	return m
}

func (m *Metrics) observeStep(dir source.Direction, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.steps.WithLabelValues(string(dir), result).Inc()
	m.duration.WithLabelValues(string(dir)).Observe(d.Seconds())
}

func (m *Metrics) observeRun(res *Result) {
	if m == nil || res == nil {
		return
	}
	m.runs.WithLabelValues(string(res.Direction), string(res.Outcome)).Inc()
	if res.Outcome != OutcomeFailed || len(res.Applied) > 0 {
		m.version.Set(float64(res.To))
	}
}

// Push sends the collected metrics to the Pushgateway at url, grouped by
// instance.
func (m *Metrics) Push(ctx context.Context, url, instance string) error {
	p := push.New(url, metricsNamespace).Gatherer(m.Registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	return p.PushContext(ctx)
}
