// Package metrics exposes the relay's Prometheus counters:
//   - relay_signals_received_total{source} – signals entering the pipeline
//   - relay_signals_rejected_total{source} – validation failures
//   - relay_signals_duplicate_total        – dedup-gate hits
//   - relay_deliveries_total{outcome}      – terminal delivery outcomes (sent|failed|dropped)
//   - relay_delivery_attempts_total        – individual send attempts
//
// Registered in init() and served at /metrics on a dedicated listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_signals_received_total", Help: "Signals entering the pipeline"},
		[]string{"source"},
	)
	SignalsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_signals_rejected_total", Help: "Signals rejected during validation"},
		[]string{"source"},
	)
	SignalsDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "relay_signals_duplicate_total", Help: "Signals suppressed by the idempotency gate"},
	)
	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_deliveries_total", Help: "Terminal delivery outcomes"},
		[]string{"outcome"},
	)
	DeliveryAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "relay_delivery_attempts_total", Help: "Individual notification send attempts"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsReceivedTotal,
		SignalsRejectedTotal,
		SignalsDuplicateTotal,
		DeliveriesTotal,
		DeliveryAttemptsTotal,
	)
}

// Serve starts the metrics listener in the background and returns the
// server so callers can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
