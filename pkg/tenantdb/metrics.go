package tenantdb

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "multitenant"
	metricsSubsystem = "tenantdb"
)

type metrics struct {
	directivesTotal   *prometheus.CounterVec
	directiveDuration *prometheus.HistogramVec
}

var (
	defaultMetricsOnce sync.Once
	defaultMetricsInst *metrics
)

func getDefaultMetrics() *metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetricsInst = newMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetricsInst
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		directivesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "directives_total",
			Help:      "Total number of tenant directives issued, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		directiveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "directive_duration_seconds",
			Help:      "Latency of tenant directives in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.directivesTotal, m.directiveDuration)
	}
	return m
}

func (m *metrics) observe(mode Mode, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.directivesTotal.WithLabelValues(mode.String(), outcome).Inc()
	m.directiveDuration.WithLabelValues(mode.String()).Observe(seconds)
}
