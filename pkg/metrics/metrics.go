package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. All Record* methods are
// safe to call on a nil *Metrics.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec
	OutboxBacklog        prometheus.Gauge

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Temporal metrics
	WorkflowsStarted    *prometheus.CounterVec
	ActivitiesCompleted *prometheus.CounterVec
	ActivityDuration    *prometheus.HistogramVec

	// Submission workflow metrics
	PhaseExecutions    *prometheus.CounterVec
	PhaseDuration      *prometheus.HistogramVec
	OperationPolls     *prometheus.CounterVec
	PollWaitDuration   *prometheus.HistogramVec
	RemoteCalls        *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec
	SplitsProcessed    *prometheus.CounterVec
	LabelsRequested    *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"service", "method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "method", "path"},
	)
	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "kafka_events_published_total", Help: "Total number of Kafka events published"},
		[]string{"service", "topic", "event_type", "status"},
	)
	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)
	m.OutboxBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "outbox_unpublished_events",
		Help:        "Unpublished events seen by the last outbox poll",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "mongodb_operations_total", Help: "Total number of MongoDB operations"},
		[]string{"service", "collection", "operation", "status"},
	)
	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "collection", "operation"},
	)

	m.WorkflowsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "temporal_workflows_started_total", Help: "Total number of workflows started"},
		[]string{"service", "workflow_type"},
	)
	m.ActivitiesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "temporal_activities_completed_total", Help: "Total number of activities completed"},
		[]string{"service", "activity_type", "status"},
	)
	m.ActivityDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "temporal_activity_duration_seconds",
			Help:      "Activity duration in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"service", "activity_type"},
	)

	m.PhaseExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "inbound_phase_executions_total", Help: "Submission phase executions by outcome"},
		[]string{"service", "phase", "outcome"},
	)
	m.PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "inbound_phase_duration_seconds",
			Help:      "Submission phase duration in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "phase"},
	)
	m.OperationPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "inbound_operation_polls_total", Help: "Remote operation polls by terminal result"},
		[]string{"service", "result"},
	)
	m.PollWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "inbound_operation_wait_seconds",
			Help:      "Time spent waiting for remote operations to settle",
			Buckets:   []float64{.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "result"},
	)
	m.RemoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "inbound_remote_calls_total", Help: "Fulfillment network calls by operation and status"},
		[]string{"service", "operation", "status"},
	)
	m.RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "inbound_remote_call_duration_seconds",
			Help:      "Fulfillment network call duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "operation"},
	)
	m.SplitsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "inbound_splits_processed_total", Help: "Shipment splits processed in the transport phase"},
		[]string{"service", "result"},
	)
	m.LabelsRequested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "inbound_labels_requested_total", Help: "Label requests per split"},
		[]string{"service", "status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: ns, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)"},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.OutboxBacklog,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.WorkflowsStarted,
		m.ActivitiesCompleted,
		m.ActivityDuration,
		m.PhaseExecutions,
		m.PhaseDuration,
		m.OperationPolls,
		m.PollWaitDuration,
		m.RemoteCalls,
		m.RemoteCallDuration,
		m.SplitsProcessed,
		m.LabelsRequested,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m != nil {
		m.HTTPRequestsInFlight.Inc()
	}
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m != nil {
		m.HTTPRequestsInFlight.Dec()
	}
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, status(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// SetOutboxBacklog records how many unpublished events the last poll found
func (m *Metrics) SetOutboxBacklog(n int) {
	if m != nil {
		m.OutboxBacklog.Set(float64(n))
	}
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, status(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordWorkflowStarted records a workflow start
func (m *Metrics) RecordWorkflowStarted(workflowType string) {
	if m != nil {
		m.WorkflowsStarted.WithLabelValues(m.serviceName, workflowType).Inc()
	}
}

// RecordActivityCompleted records an activity completion
func (m *Metrics) RecordActivityCompleted(activityType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.ActivitiesCompleted.WithLabelValues(m.serviceName, activityType, status(success)).Inc()
	m.ActivityDuration.WithLabelValues(m.serviceName, activityType).Observe(duration.Seconds())
}

// RecordPhase records one phase execution. outcome is one of completed,
// skipped, awaiting_choice or failed.
func (m *Metrics) RecordPhase(phase, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PhaseExecutions.WithLabelValues(m.serviceName, phase, outcome).Inc()
	m.PhaseDuration.WithLabelValues(m.serviceName, phase).Observe(duration.Seconds())
}

// RecordOperationPoll records a finished wait on a remote operation
func (m *Metrics) RecordOperationPoll(result string, waited time.Duration) {
	if m == nil {
		return
	}
	m.OperationPolls.WithLabelValues(m.serviceName, result).Inc()
	m.PollWaitDuration.WithLabelValues(m.serviceName, result).Observe(waited.Seconds())
}

// RecordRemoteCall records a fulfillment network call
func (m *Metrics) RecordRemoteCall(operation string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RemoteCalls.WithLabelValues(m.serviceName, operation, strconv.Itoa(code)).Inc()
	m.RemoteCallDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// RecordSplit records the transport-phase result for one split
func (m *Metrics) RecordSplit(result string) {
	if m != nil {
		m.SplitsProcessed.WithLabelValues(m.serviceName, result).Inc()
	}
}

// RecordLabelRequest records one split's label request
func (m *Metrics) RecordLabelRequest(success bool) {
	if m != nil {
		m.LabelsRequested.WithLabelValues(m.serviceName, status(success)).Inc()
	}
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
	}
}
