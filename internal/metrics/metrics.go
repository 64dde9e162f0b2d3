// Package metrics defines the Prometheus metrics of the passport server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Results recorded by the counters.
const (
	ResultOK              = "ok"
	ResultInvalidInput    = "invalid_input"
	ResultConflict        = "conflict"
	ResultInvalidLogin    = "invalid_credentials"
	ResultResetRequired   = "reset_required"
	ResultNotFound        = "not_found"
	ResultInvalidTicket   = "invalid_ticket"
	ResultForbidden       = "forbidden"
	ResultUnexpectedError = "error"
)

// Metrics contains the passport metrics.
type Metrics struct {
	SignupsTotal        *prometheus.CounterVec
	LoginsTotal         *prometheus.CounterVec
	PasswordResetsTotal *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates the passport metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_signups_total",
				Help: "Total number of sign-up attempts by result",
			},
			[]string{"result"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		PasswordResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_password_resets_total",
				Help: "Total number of password reset steps by step and result",
			},
			[]string{"step", "result"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "passport_http_request_duration_seconds",
				Help:    "HTTP request latency by route, method and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	reg.MustRegister(
		m.SignupsTotal,
		m.LoginsTotal,
		m.PasswordResetsTotal,
		m.RequestDuration,
	)

	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}
