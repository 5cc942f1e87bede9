package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	transforms *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	queueDepth prometheus.Gauge
}

// New registers the transform collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tengine",
			Name:      "transforms_total",
			Help:      "Transform requests by transformer and outcome.",
		}, []string{"transformer", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tengine",
			Name:      "transform_duration_seconds",
			Help:      "Time spent in the transformer.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"transformer"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tengine",
			Name:      "watch_queue_depth",
			Help:      "Files waiting in the hot folder queue.",
		}),
	}
	m.registry.MustRegister(
		m.transforms,
		m.duration,
		m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one finished transform.
func (m *Metrics) Observe(transformer, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.transforms.WithLabelValues(transformer, status).Inc()
	m.duration.WithLabelValues(transformer).Observe(d.Seconds())
}

// SetQueueDepth records the number of queued hot folder files.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
