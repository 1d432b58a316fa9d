package monitoring

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the Prometheus metrics of the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	rankResolutions *prometheus.CounterVec
	rankLatency     *prometheus.HistogramVec

	externalRequests *prometheus.CounterVec
	externalLatency  *prometheus.HistogramVec

	collectedUsers *prometheus.CounterVec

	snapshotRebuilds   prometheus.Counter
	snapshotDuration   prometheus.Histogram
	populationSize     prometheus.Gauge
	snapshotAvailable  prometheus.Gauge
	rateLimited        *prometheus.CounterVec
	dependencyLevel    *prometheus.GaugeVec
	breakerState       *prometheus.GaugeVec
	collectionsRunning prometheus.Gauge
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom latency buckets, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// NewManager creates the metrics on their own registry, together with the
// Go runtime and process collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "aurameter",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	m.rankResolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rank",
		Name:      "resolutions_total",
		Help:      "Rank resolutions by result tier",
	}, []string{"tier"})

	m.rankLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "rank",
		Name:      "resolution_duration_seconds",
		Help:      "Time to resolve a rank, including store reads",
		Buckets:   m.histogramBuckets,
	}, []string{"tier"})

	m.externalRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "external",
		Name:      "requests_total",
		Help:      "Upstream API requests by api, endpoint and status code",
	}, []string{"api", "endpoint", "status_code"})

	m.externalLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "external",
		Name:      "request_duration_seconds",
		Help:      "Upstream API latency including retries",
		Buckets:   m.histogramBuckets,
	}, []string{"api", "endpoint"})

	m.collectedUsers = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "users_total",
		Help:      "Collected candidates by star band and outcome",
	}, []string{"level", "outcome"})

	m.collectionsRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "running",
		Help:      "1 while a collection run is in progress",
	})

	m.snapshotRebuilds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "distribution",
		Name:      "rebuilds_total",
		Help:      "Distribution snapshot rebuilds",
	})

	m.snapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "distribution",
		Name:      "rebuild_duration_seconds",
		Help:      "Time to scan the store and rebuild the snapshot",
		Buckets:   m.histogramBuckets,
	})

	m.populationSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "distribution",
		Name:      "population_size",
		Help:      "Users in the last scanned population",
	})

	m.snapshotAvailable = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "distribution",
		Name:      "snapshot_available",
		Help:      "1 when the population is large enough for a snapshot",
	})

	m.rateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ratelimit",
		Name:      "blocked_total",
		Help:      "Requests rejected by the API rate limiter",
	}, []string{"scope"})

	m.dependencyLevel = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "dependency",
		Name:      "degradation_level",
		Help:      "0 normal, 1 degraded, 2 critical, 3 emergency",
	}, []string{"service"})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "dependency",
		Name:      "circuit_breaker_state",
		Help:      "0 closed, 1 open, 2 half-open",
	}, []string{"name"})
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(route, method string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveRank records a resolved rank.
func (m *Manager) ObserveRank(tier string, duration time.Duration) {
	m.rankResolutions.WithLabelValues(tier).Inc()
	m.rankLatency.WithLabelValues(tier).Observe(duration.Seconds())
}

// ObserveExternalAPI records one upstream call. Status 0 is a transport failure.
func (m *Manager) ObserveExternalAPI(api, endpoint string, status int, duration time.Duration) {
	m.externalRequests.WithLabelValues(api, endpoint, strconv.Itoa(status)).Inc()
	m.externalLatency.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// ObserveCollected records one collection candidate.
func (m *Manager) ObserveCollected(level string, err error) {
	outcome := "added"
	switch {
	case err == nil:
	case apperrors.IsRateLimited(err):
		outcome = "rate_limited"
	case apperrors.IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	m.collectedUsers.WithLabelValues(level, outcome).Inc()
}

// SetCollectionRunning flips the running gauge.
func (m *Manager) SetCollectionRunning(running bool) {
	if running {
		m.collectionsRunning.Set(1)
		return
	}
	m.collectionsRunning.Set(0)
}

// ObserveSnapshot records a distribution rebuild.
func (m *Manager) ObserveSnapshot(population int, available bool, duration time.Duration) {
	m.snapshotRebuilds.Inc()
	m.snapshotDuration.Observe(duration.Seconds())
	m.populationSize.Set(float64(population))
	if available {
		m.snapshotAvailable.Set(1)
	} else {
		m.snapshotAvailable.Set(0)
	}
}

// IncrementRateLimited counts a request rejected by the limiter.
func (m *Manager) IncrementRateLimited(scope string) {
	m.rateLimited.WithLabelValues(scope).Inc()
}

// ObserveDependencies mirrors dependency health and breaker states into gauges.
func (m *Manager) ObserveDependencies(health []resilience.ServiceHealth, breakers map[string]resilience.CircuitBreakerState) {
	for _, h := range health {
		m.dependencyLevel.WithLabelValues(h.ServiceName).Set(float64(h.Level))
	}
	for name, state := range breakers {
		m.breakerState.WithLabelValues(name).Set(float64(state))
	}
}
