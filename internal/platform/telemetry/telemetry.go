// Package telemetry exposes Prometheus metrics for the risk service: HTTP
// request durations plus calculation and advisory counters.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cvdrisk"

var defaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// riskBuckets are 10-year risk percentages; 5, 7.5 and 20 are the usual
// borderline, intermediate and high cut points.
var riskBuckets = []float64{1, 2.5, 5, 7.5, 10, 15, 20, 30, 50}

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the global one.
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.HistogramVec
	calculations *prometheus.CounterVec
	advisories   *prometheus.CounterVec
	riskScores   prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route", "status"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Risk evaluations by outcome.",
		}, []string{"outcome"}),
		advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisories_total",
			Help:      "Advisory cards emitted by card id.",
		}, []string{"card"}),
		riskScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "patient_risk_percent",
			Help:      "Distribution of calculated 10-year patient risk.",
			Buckets:   riskBuckets,
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.calculations,
		m.advisories,
		m.riskScores,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) CalculationOutcome(outcome string) {
	m.calculations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AdvisoryEmitted(card string) {
	m.advisories.WithLabelValues(card).Inc()
}

func (m *Metrics) RiskScore(percent float64) {
	m.riskScores.Observe(percent)
}

// Middleware records request durations labeled by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			m.requests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
