// Package metrics registers the Prometheus metrics for the order service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	CheckoutsTotal      *prometheus.CounterVec
	CheckoutDuration    prometheus.Histogram
	CompensationsTotal  prometheus.Counter
	ReapedOrdersTotal   prometheus.Counter
	ConsumedEventsTotal *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	checkoutsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by terminal outcome.",
	}, []string{"outcome"})

	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "End-to-end checkout saga latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	compensationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_compensations_total",
		Help: "Stock release compensation runs.",
	})

	reapedOrdersTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reaped_orders_total",
		Help: "Abandoned orders cancelled by the reaper.",
	})

	consumedEventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumed_events_total",
		Help: "Payment events consumed by routing key and result.",
	}, []string{"routing_key", "result"})

	registry.MustRegister(
		checkoutsTotal,
		checkoutDuration,
		compensationsTotal,
		reapedOrdersTotal,
		consumedEventsTotal,
	)

	return &Metrics{
		registry:            registry,
		CheckoutsTotal:      checkoutsTotal,
		CheckoutDuration:    checkoutDuration,
		CompensationsTotal:  compensationsTotal,
		ReapedOrdersTotal:   reapedOrdersTotal,
		ConsumedEventsTotal: consumedEventsTotal,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
