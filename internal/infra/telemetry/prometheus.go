package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"toolgate/internal/domain"
)

// PrometheusMetrics implements domain.Metrics on a prometheus registry.
type PrometheusMetrics struct {
	callDuration    *prometheus.HistogramVec
	connects        *prometheus.CounterVec
	reconnects      *prometheus.CounterVec
	activeClients   prometheus.Gauge
	modelSelections *prometheus.CounterVec
	modelFailures   *prometheus.CounterVec
	chainExhausted  prometheus.Counter
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_call_duration_seconds",
				Help:    "Duration of pooled tool calls in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"server_type", "status"},
		),
		connects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_connects_total",
				Help: "Total number of client connect attempts",
			},
			[]string{"server_type", "status"},
		),
		reconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_reconnects_total",
				Help: "Total number of reconnect attempts after connection failures",
			},
			[]string{"server_type"},
		),
		activeClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolgate_active_clients",
				Help: "Current number of cached tool clients",
			},
		),
		modelSelections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_model_selections_total",
				Help: "Total number of model selections by the fallback manager",
			},
			[]string{"provider", "model"},
		),
		modelFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_model_failures_total",
				Help: "Total number of models marked failed after transient provider errors",
			},
			[]string{"provider", "model"},
		),
		chainExhausted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "toolgate_chain_exhaustions_total",
				Help: "Total number of automatic fallback chain resets after full exhaustion",
			},
		),
	}
}

func (m *PrometheusMetrics) ObserveCall(metric domain.CallMetric) {
	m.callDuration.WithLabelValues(string(metric.ServerType), string(metric.Status)).
		Observe(metric.Duration.Seconds())
}

func (m *PrometheusMetrics) ObserveConnect(serverType domain.ServerType, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.connects.WithLabelValues(string(serverType), status).Inc()
}

func (m *PrometheusMetrics) ObserveReconnect(serverType domain.ServerType) {
	m.reconnects.WithLabelValues(string(serverType)).Inc()
}

func (m *PrometheusMetrics) SetActiveClients(count int) {
	m.activeClients.Set(float64(count))
}

func (m *PrometheusMetrics) ObserveModelSelection(provider, model string) {
	m.modelSelections.WithLabelValues(provider, model).Inc()
}

func (m *PrometheusMetrics) ObserveModelFailure(provider, model string) {
	m.modelFailures.WithLabelValues(provider, model).Inc()
}

func (m *PrometheusMetrics) ObserveChainExhaustion() {
	m.chainExhausted.Inc()
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
