// Package metrics holds the Prometheus metrics of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/askpay/forexsignals/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the forex signals service
type Registry struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Ledger metrics
	Balance             prometheus.Gauge
	Transactions        prometheus.Gauge
	Settlements         *prometheus.CounterVec
	DuplicatesDropped   prometheus.Counter
	PersistenceFailures *prometheus.CounterVec

	// Backup metrics
	BackupsTotal *prometheus.CounterVec

	ErrorEvents *prometheus.CounterVec
}

// NewRegistry creates a registry with all service metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexsignals_http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forexsignals_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"method", "route"},
		),

		Balance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forexsignals_ledger_balance",
				Help: "Current ledger balance",
			},
		),

		Transactions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forexsignals_ledger_transactions",
				Help: "Number of transactions held by the ledger",
			},
		),

		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexsignals_ledger_settlements_total",
				Help: "Settlements recorded by outcome and whether they replaced an earlier one",
			},
			[]string{"outcome", "replaced"},
		),

		DuplicatesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forexsignals_ledger_duplicate_settlements_total",
				Help: "Concurrent duplicate settlements dropped by the in-flight guard",
			},
		),

		PersistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexsignals_ledger_persistence_failures_total",
				Help: "Failed ledger state writes by stage (encode, write)",
			},
			[]string{"stage"},
		),

		BackupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexsignals_backups_total",
				Help: "Snapshot backups by status",
			},
			[]string{"status"},
		),

		ErrorEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexsignals_error_events_total",
				Help: "Error events published on the event bus by module",
			},
			[]string{"module"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.HTTPRequests,
		r.HTTPDuration,
		r.Balance,
		r.Transactions,
		r.Settlements,
		r.DuplicatesDropped,
		r.PersistenceFailures,
		r.BackupsTotal,
		r.ErrorEvents,
	)

	return r
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request
func (r *Registry) ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSettlement counts a settlement by outcome
func (r *Registry) RecordSettlement(outcome string, replaced bool) {
	r.Settlements.WithLabelValues(outcome, strconv.FormatBool(replaced)).Inc()
}

// SetLedgerState updates the ledger gauges
func (r *Registry) SetLedgerState(balance float64, transactions int) {
	r.Balance.Set(balance)
	r.Transactions.Set(float64(transactions))
}

// CountErrorEvents counts ErrorOccurred events from bus until the returned
// function is called
func (r *Registry) CountErrorEvents(bus *events.Bus) func() {
	return bus.Subscribe(events.ErrorOccurred, func(e events.Event) {
		r.ErrorEvents.WithLabelValues(e.Module).Inc()
	})
}
