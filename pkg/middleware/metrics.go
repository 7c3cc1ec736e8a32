package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/navroute/pkg/history"
	"github.com/vango-dev/navroute/pkg/navigation"
	"github.com/vango-dev/navroute/pkg/routepath"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "navroute").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for transition duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collector.
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
		Namespace: "navroute",
		// Transitions are in-memory work; most land well under a millisecond.
		Buckets:  []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05, .1},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics collects navigation metrics. It implements navigation.Middleware.
type Metrics struct {
	navigations     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	historyPosition prometheus.Gauge
	activeSessions  prometheus.Gauge
}

var _ navigation.Middleware = (*Metrics)(nil)

// Prometheus creates a collector and registers its metrics. Registering
// twice on the same registry panics, as promauto does; share one
// collector between controllers instead.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigation transitions",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "mode", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation transition duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_errors_total",
			Help:        "Total number of failed navigation transitions",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "error_type"}),

		historyPosition: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "history_position",
			Help:        "History stack index of the last committed navigation",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected remote history sessions",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Handle implements navigation.Middleware.
func (m *Metrics) Handle(ctx context.Context, t *navigation.Transition, next func() error) error {
	start := time.Now()
	err := next()
	m.duration.WithLabelValues(string(t.Mode)).Observe(time.Since(start).Seconds())

	status := "skipped"
	route := "none"
	if t.Committed() {
		status = t.Result.Status.String()
		route = routeLabel(t.Result)
		m.historyPosition.Set(float64(t.Result.Position))
	}
	if err != nil {
		status = "error"
		m.errors.WithLabelValues(string(t.Mode), categorizeError(err)).Inc()
	}
	m.navigations.WithLabelValues(route, string(t.Mode), status).Inc()

	return err
}

// SessionStarted records a connected remote history session.
func (m *Metrics) SessionStarted() {
	m.activeSessions.Inc()
}

// SessionEnded records a disconnected remote history session.
func (m *Metrics) SessionEnded() {
	m.activeSessions.Dec()
}

func routeLabel(s navigation.State) string {
	if name := s.RouteName(); name != "" {
		return name
	}
	return "unmatched"
}

// categorizeError maps an error to a bounded label value.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, history.ErrClosed), errors.Is(err, navigation.ErrClosed):
		return "closed"
	case errors.Is(err, routepath.ErrInvalidPath),
		errors.Is(err, routepath.ErrBackslashInPath),
		errors.Is(err, routepath.ErrNullByteInPath),
		errors.Is(err, routepath.ErrInvalidPercentEscape),
		errors.Is(err, routepath.ErrPathEscapesRoot),
		errors.Is(err, routepath.ErrEncodedSlashInSegment):
		return "invalid_path"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
