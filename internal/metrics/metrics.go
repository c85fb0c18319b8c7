package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is the metric name prefix.
const DefaultNamespace = "protohackers"

// Metrics holds the collectors shared by all services.
type Metrics struct {
	registry *prometheus.Registry

	connectionsAccepted *prometheus.CounterVec
	connectionsActive   *prometheus.GaugeVec
	connectionsRejected *prometheus.CounterVec
	poolTasks           *prometheus.GaugeVec
	poolRetries         *prometheus.CounterVec
	records             *prometheus.CounterVec
	protocolViolations  *prometheus.CounterVec
	transportErrors     *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		connectionsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total connections accepted",
		}, []string{"service"}),

		connectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being handled",
		}, []string{"service"}),

		connectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections closed because the worker pool was saturated",
		}, []string{"service"}),

		poolTasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_tasks",
			Help:      "Outstanding worker pool tasks",
		}, []string{"service"}),

		poolRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_admission_retries_total",
			Help:      "Admission retries made while the worker pool was full",
		}, []string{"service"}),

		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Protocol records processed by command",
		}, []string{"service", "command"}),

		protocolViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_violations_total",
			Help:      "Connections closed for sending invalid requests",
		}, []string{"service"}),

		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Socket read or write failures",
		}, []string{"service"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connectionsAccepted,
		m.connectionsActive,
		m.connectionsRejected,
		m.poolTasks,
		m.poolRetries,
		m.records,
		m.protocolViolations,
		m.transportErrors,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Service returns the recorder for one service. A nil Metrics yields a nil
// recorder.
func (m *Metrics) Service(name string) *Service {
	if m == nil {
		return nil
	}
	return &Service{
		accepted:   m.connectionsAccepted.WithLabelValues(name),
		active:     m.connectionsActive.WithLabelValues(name),
		rejected:   m.connectionsRejected.WithLabelValues(name),
		poolTasks:  m.poolTasks.WithLabelValues(name),
		retries:    m.poolRetries.WithLabelValues(name),
		records:    m.records.MustCurryWith(prometheus.Labels{"service": name}),
		violations: m.protocolViolations.WithLabelValues(name),
		transport:  m.transportErrors.WithLabelValues(name),
	}
}

// Service records metrics for a single service.
type Service struct {
	accepted   prometheus.Counter
	active     prometheus.Gauge
	rejected   prometheus.Counter
	poolTasks  prometheus.Gauge
	retries    prometheus.Counter
	records    *prometheus.CounterVec
	violations prometheus.Counter
	transport  prometheus.Counter
}

// ConnectionAccepted records a connection returned by the listener, whether
// or not the pool admits it.
func (s *Service) ConnectionAccepted() {
	if s == nil {
		return
	}
	s.accepted.Inc()
}

// ConnectionOpened records the start of a handled connection.
func (s *Service) ConnectionOpened() {
	if s == nil {
		return
	}
	s.active.Inc()
}

// ConnectionClosed records the end of a handled connection.
func (s *Service) ConnectionClosed() {
	if s == nil {
		return
	}
	s.active.Dec()
}

// ConnectionRejected records a connection dropped by admission control.
func (s *Service) ConnectionRejected() {
	if s == nil {
		return
	}
	s.rejected.Inc()
}

// PoolTasks sets the number of outstanding pool tasks.
func (s *Service) PoolTasks(n int) {
	if s == nil {
		return
	}
	s.poolTasks.Set(float64(n))
}

// PoolRetry records one admission retry.
func (s *Service) PoolRetry() {
	if s == nil {
		return
	}
	s.retries.Inc()
}

// Record records one processed record.
func (s *Service) Record(command string) {
	if s == nil {
		return
	}
	s.records.WithLabelValues(command).Inc()
}

// ProtocolViolation records a connection closed for an invalid request.
func (s *Service) ProtocolViolation() {
	if s == nil {
		return
	}
	s.violations.Inc()
}

// TransportError records a socket failure.
func (s *Service) TransportError() {
	if s == nil {
		return
	}
	s.transport.Inc()
}
