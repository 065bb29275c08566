// Package metrics содержит Prometheus-реализацию usecase.Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Prometheus хранит метрики в собственном реестре, чтобы тесты не конфликтовали с глобальным.
type Prometheus struct {
	registry *prometheus.Registry

	checkoutTotal    *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
	notifications    *prometheus.CounterVec
	shortfalls       prometheus.Counter
	reconcile        *prometheus.CounterVec
}

func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		checkoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "requests_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		checkoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Checkout latency including the payment link request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "notifications_total",
			Help:      "Processed payment notifications by outcome.",
		}, []string{"outcome"}),
		shortfalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "shortfalls_total",
			Help:      "Order items that could not be fulfilled from stock after payment.",
		}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "orders_total",
			Help:      "Stale orders handled by reconciliation, by outcome.",
		}, []string{"outcome"}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.checkoutTotal,
		p.checkoutDuration,
		p.notifications,
		p.shortfalls,
		p.reconcile,
	)

	return p
}

func (p *Prometheus) CheckoutResult(outcome string, d time.Duration) {
	p.checkoutTotal.WithLabelValues(outcome).Inc()
	p.checkoutDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *Prometheus) NotificationResult(outcome string) {
	p.notifications.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) StockShortfall() {
	p.shortfalls.Inc()
}

func (p *Prometheus) ReconcileResult(outcome string) {
	p.reconcile.WithLabelValues(outcome).Inc()
}

// Handler отдаёт метрики для /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
