// Package metrics exposes forecaster instrumentation for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/stock-forecaster/internal/resilience"
)

const namespace = "stock_forecaster"

// Metrics owns its registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	trainDuration   *prometheus.HistogramVec
	predictDuration *prometheus.HistogramVec
	trainingPoints  *prometheus.GaugeVec
	daysUntilEmpty  prometheus.Gauge
	avgDailyUsage   prometheus.Gauge
	fetchErrors     *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	reports         *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		trainDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "train_duration_seconds",
			Help:      "Time spent fitting a model",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"model"}),

		predictDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_duration_seconds",
			Help:      "Time spent producing a forecast",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),

		trainingPoints: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_points",
			Help:      "Daily points used by the last training run",
		}, []string{"model"}),

		daysUntilEmpty: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "days_until_empty",
			Help:      "Days until unreserved stock runs out at the trailing average usage",
		}),

		avgDailyUsage: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "avg_daily_usage",
			Help:      "Trailing average daily usage",
		}),

		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_errors_total",
			Help:      "Upstream fetches that failed after retries",
		}, []string{"op"}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),

		reports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Reports produced by kind and outcome",
		}, []string{"kind", "outcome"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveTrain(model string, d time.Duration, points int) {
	if m == nil {
		return
	}
	m.trainDuration.WithLabelValues(model).Observe(d.Seconds())
	m.trainingPoints.WithLabelValues(model).Set(float64(points))
}

func (m *Metrics) ObservePredict(model string, d time.Duration) {
	if m == nil {
		return
	}
	m.predictDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (m *Metrics) SetUsage(avgDaily, daysUntilEmpty float64) {
	if m == nil {
		return
	}
	m.avgDailyUsage.Set(avgDaily)
	m.daysUntilEmpty.Set(daysUntilEmpty)
}

func (m *Metrics) IncFetchError(op string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state resilience.State) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// IncReport counts a report of kind ("training", "prediction", "patterns")
// with outcome "success", "no_data" or "error".
func (m *Metrics) IncReport(kind, outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
