/*
Package metrics defines the Prometheus collectors for the service.

PURPOSE:
  Makes failures visible that the domain deliberately hides. Reports
  degrade to empty results on store errors; ReportFailures counts those
  so a dashboard can tell "no data" from "query failed".

COLLECTORS:
  bidon_ledger_operations_total{op,result}     ledger mutations
  bidon_report_failures_total{report}          reports that degraded
  bidon_http_requests_total{method,route,status}
  bidon_http_request_duration_seconds{method,route}
  bidon_container_drift_liters{container}      last invariant audit
  bidon_active_containers, bidon_fuel_on_hand_liters  (GaugeFunc)

REGISTRY:
  Each Metrics owns a private registry so tests can build as many as
  they like. Handler exposes it for /metrics.
*/
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "bidon_"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	LedgerOperations *prometheus.CounterVec
	ReportFailures   *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ContainerDrift   *prometheus.GaugeVec
}

// New creates and registers all collectors, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LedgerOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_operations_total",
				Help: "Ledger mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		ReportFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_failures_total",
				Help: "Reports that returned an empty result because the store failed",
			},
			[]string{"report"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ContainerDrift: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "container_drift_liters",
				Help: "Current level minus ledger-implied level, from the last audit",
			},
			[]string{"container"},
		),
	}
	m.registry.MustRegister(
		m.LedgerOperations,
		m.ReportFailures,
		m.HTTPRequests,
		m.HTTPDuration,
		m.ContainerDrift,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveLedger records one ledger operation outcome.
func (m *Metrics) ObserveLedger(op string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.LedgerOperations.WithLabelValues(op, result).Inc()
}

// ObserveReportFailure counts a degraded report.
func (m *Metrics) ObserveReportFailure(report string) {
	m.ReportFailures.WithLabelValues(report).Inc()
}

// ObserveHTTP records a finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

// SetDrift records the audit result for one container.
func (m *Metrics) SetDrift(containerID int64, liters float64) {
	m.ContainerDrift.WithLabelValues(strconv.FormatInt(containerID, 10)).Set(liters)
}

// RegisterStockGauges exposes stock figures computed on scrape.
func (m *Metrics) RegisterStockGauges(activeContainers, fuelOnHand func() float64) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "active_containers",
			Help: "Number of active fuel containers",
		}, activeContainers),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "fuel_on_hand_liters",
			Help: "Sum of current levels over active containers",
		}, fuelOnHand),
	)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
