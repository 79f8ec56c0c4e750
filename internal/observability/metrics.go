package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_radar"

// Metrics holds the Prometheus counters, histograms, and gauges for the radar service.
type Metrics struct {
	// Watcher metrics.
	WatchersActive prometheus.Gauge
	ScansObserved  *prometheus.CounterVec // labels: station
	PollErrors     *prometheus.CounterVec // labels: station

	// Sweep pipeline metrics.
	SweepsBuilt        *prometheus.CounterVec // labels: outcome={success,error,skipped}
	FetchDuration      prometheus.Histogram
	TransformDuration  prometheus.Histogram
	CacheLookups       *prometheus.CounterVec // labels: result={hit,miss,error}
	NotificationErrors prometheus.Counter
	NotificationsSent  prometheus.Counter

	// Upstream metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source={s3,nws}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: source

	// Subscriber metrics.
	Subscribers prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		WatchersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchers_active",
			Help:      "Number of stations currently being watched.",
		}),
		ScansObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_observed_total",
			Help:      "New volume scans detected per station.",
		}, []string{"station"}),
		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Failed watcher polls per station.",
		}, []string{"station"}),
		SweepsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_built_total",
			Help:      "Sweep frames built by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of downloading and decoding one volume scan.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TransformDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Duration of transforming and encoding one sweep.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Listener invocations that failed or panicked.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Listener invocations that succeeded.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream requests by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_subscribers",
			Help:      "Connected WebSocket subscribers.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.WatchersActive,
		m.ScansObserved,
		m.PollErrors,
		m.SweepsBuilt,
		m.FetchDuration,
		m.TransformDuration,
		m.CacheLookups,
		m.NotificationErrors,
		m.NotificationsSent,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.Subscribers,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
