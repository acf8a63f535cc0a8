package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics set.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "wsession").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for ping round-trip time.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics set.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the round-trip time histogram buckets.
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
		Namespace: "wsession",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is the Prometheus metrics set for one Client. A nil *Metrics is
// valid and records nothing.
//
// Metrics collected:
//   - wsession_connects_total: Counter of connect attempts
//   - wsession_connect_failures_total: Counter of construction failures
//   - wsession_state: Gauge of the current connection state enum
//   - wsession_messages_sent_total / _received_total: message counters
//   - wsession_bytes_sent_total / _received_total: byte counters
//   - wsession_pings_sent_total: Counter of keepalive sends
//   - wsession_ping_rtt_seconds: Histogram of keepalive round trips
//   - wsession_errors_total: Counter of errors by category
type Metrics struct {
	connectsTotal    prometheus.Counter
	connectFailures  prometheus.Counter
	stateGauge       prometheus.Gauge
	messagesSent     prometheus.Counter
	messagesReceived prometheus.Counter
	bytesSent        prometheus.Counter
	bytesReceived    prometheus.Counter
	pingsSent        prometheus.Counter
	pingRTT          prometheus.Histogram
	errorsTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics set.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		connectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "connects_total",
			Help:        "Total number of connect attempts",
			ConstLabels: config.ConstLabels,
		}),
		connectFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "connect_failures_total",
			Help:        "Total number of connect attempts that failed before a transport existed",
			ConstLabels: config.ConstLabels,
		}),
		stateGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "state",
			Help:        "Current connection state as its enum value",
			ConstLabels: config.ConstLabels,
		}),
		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_sent_total",
			Help:        "Total messages written to the transport",
			ConstLabels: config.ConstLabels,
		}),
		messagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_received_total",
			Help:        "Total messages received from the transport",
			ConstLabels: config.ConstLabels,
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "bytes_sent_total",
			Help:        "Total payload bytes written to the transport",
			ConstLabels: config.ConstLabels,
		}),
		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "bytes_received_total",
			Help:        "Total payload bytes received from the transport",
			ConstLabels: config.ConstLabels,
		}),
		pingsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "pings_sent_total",
			Help:        "Total keepalive pings sent",
			ConstLabels: config.ConstLabels,
		}),
		pingRTT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "ping_rtt_seconds",
			Help:        "Keepalive round-trip time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "errors_total",
			Help:        "Total session errors by category",
			ConstLabels: config.ConstLabels,
		}, []string{"category"}),
	}
}

func (m *Metrics) recordConnect() {
	if m == nil {
		return
	}
	m.connectsTotal.Inc()
}

func (m *Metrics) recordConnectFailure() {
	if m == nil {
		return
	}
	m.connectFailures.Inc()
}

func (m *Metrics) recordState(s ConnectionState) {
	if m == nil {
		return
	}
	m.stateGauge.Set(float64(s))
}

func (m *Metrics) recordSent(bytes int) {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
	m.bytesSent.Add(float64(bytes))
}

func (m *Metrics) recordReceived(bytes int) {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
	m.bytesReceived.Add(float64(bytes))
}

func (m *Metrics) recordPingSent() {
	if m == nil {
		return
	}
	m.pingsSent.Inc()
}

func (m *Metrics) recordPongRTT(rtt time.Duration) {
	if m == nil {
		return
	}
	m.pingRTT.Observe(rtt.Seconds())
}

func (m *Metrics) recordError(category string) {
	if m == nil {
		return
	}
	if category == "" {
		category = "internal"
	}
	m.errorsTotal.WithLabelValues(category).Inc()
}
