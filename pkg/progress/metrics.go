package progress

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus indicator.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "starter").
	Namespace string

	// Subsystem is the metrics subsystem (default: "navigation").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus indicator.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "starter",
		Subsystem: "navigation",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metricsIndicator struct {
	inFlight    prometheus.Gauge
	attempts    prometheus.Counter
	completed   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	showSpinner prometheus.Gauge

	mu      sync.Mutex
	started map[string]struct{}
}

// Prometheus returns an indicator that records navigation metrics.
//
// Metrics collected (with the default namespace and subsystem):
//   - starter_navigation_in_flight: navigations started but not done
//   - starter_navigation_attempts_total: resolve starts, including redirect attempts
//   - starter_navigation_completed_total: finished navigations by route and outcome
//   - starter_navigation_duration_seconds: time from first start to done
//   - starter_navigation_spinner_enabled: 1 when the spinner is configured on
//
// Registering twice on the same registry panics, as with promauto.
func Prometheus(opts ...MetricsOption) Indicator {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &metricsIndicator{
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "in_flight",
			Help:        "Number of navigations started but not yet done",
			ConstLabels: config.ConstLabels,
		}),
		attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "attempts_total",
			Help:        "Total navigation attempts, including guard redirects",
			ConstLabels: config.ConstLabels,
		}),
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "completed_total",
			Help:        "Total finished navigations by route and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "duration_seconds",
			Help:        "Navigation duration from first start to done",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
		showSpinner: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "spinner_enabled",
			Help:        "Whether the progress spinner is configured on",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *metricsIndicator) Configure(opts Options) {
	if opts.ShowSpinner {
		m.showSpinner.Set(1)
	} else {
		m.showSpinner.Set(0)
	}
}

func (m *metricsIndicator) Start(_ context.Context, ev Event) {
	m.attempts.Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.started[ev.ID]; ok {
		return
	}
	if m.started == nil {
		m.started = make(map[string]struct{})
	}
	m.started[ev.ID] = struct{}{}
	m.inFlight.Inc()
}

func (m *metricsIndicator) Done(_ context.Context, ev Event) {
	// A navigation whose target never resolved is done without a start.
	m.mu.Lock()
	if _, ok := m.started[ev.ID]; ok {
		delete(m.started, ev.ID)
		m.inFlight.Dec()
	}
	m.mu.Unlock()

	route := ev.Route
	if route == "" {
		// Unnamed records would otherwise explode label cardinality by path.
		route = "unnamed"
	}
	outcome := ev.Outcome
	if outcome == "" {
		outcome = "unknown"
	}
	m.completed.WithLabelValues(route, outcome).Inc()
	m.duration.WithLabelValues(route).Observe(time.Since(ev.StartedAt).Seconds())
}
