// Package metrics collects and exposes Prometheus metrics for the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeNetwork  = "network_error"
	OutcomeInvalid  = "invalid_form"
	OutcomeLimited  = "rate_limited"
)

// Collector records dashboard metrics on its own registry
type Collector struct {
	authAttempts    *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeVisitors  prometheus.Gauge
	visitorsSwept   prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleettrack_auth_attempts_total",
			Help: "Sign-in, sign-up and sign-out attempts by outcome",
		}, []string{"action", "outcome"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleettrack_guard_decisions_total",
			Help: "Route guard decisions",
		}, []string{"kind", "resolution", "redirected"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleettrack_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		activeVisitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleettrack_active_visitors",
			Help: "Visitors with a live session store",
		}),
		visitorsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleettrack_visitors_swept_total",
			Help: "Idle visitors removed by the sweeper",
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.guardDecisions,
		c.requestDuration,
		c.activeVisitors,
		c.visitorsSwept,
	)

	return c
}

// RecordAuth records one authentication attempt
func (c *Collector) RecordAuth(action, outcome string) {
	c.authAttempts.WithLabelValues(action, outcome).Inc()
}

// ObserveGuard records one route guard decision
func (c *Collector) ObserveGuard(kind, resolution string, redirected bool) {
	c.guardDecisions.WithLabelValues(kind, resolution, strconv.FormatBool(redirected)).Inc()
}

// ObserveRequest records the latency of one HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// SetActiveVisitors sets the live visitor gauge
func (c *Collector) SetActiveVisitors(n int) {
	c.activeVisitors.Set(float64(n))
}

// RecordSwept counts visitors removed by the idle sweeper
func (c *Collector) RecordSwept(n int) {
	c.visitorsSwept.Add(float64(n))
}

// Handler returns the Prometheus scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
