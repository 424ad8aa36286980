// Package metrics exposes Prometheus instrumentation for the purchase path.
// Metrics are registered eagerly at init; if no /metrics endpoint is mounted
// the registration is harmless.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	purchaseResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flashsale_purchase_results_total",
		Help: "Purchase attempts by terminal result (SUCCESS, SOLD_OUT, ALREADY_PURCHASED, ...)",
	}, []string{"result"})

	purchaseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flashsale_purchase_duration_seconds",
		Help:    "End-to-end latency of the purchase admission pipeline",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	compensationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flashsale_stock_compensations_total",
		Help: "Compensating stock increments issued after a rejected or failed purchase",
	})
)

func init() {
	prometheus.MustRegister(purchaseResultsTotal, purchaseDuration, compensationsTotal)
}

// ObservePurchase records one finished purchase attempt with its terminal
// result and latency.
func ObservePurchase(result string, elapsed time.Duration) {
	purchaseResultsTotal.WithLabelValues(result).Inc()
	purchaseDuration.Observe(elapsed.Seconds())
}

// ObserveCompensation counts a compensating increment on the stock counter.
func ObserveCompensation() {
	compensationsTotal.Inc()
}
