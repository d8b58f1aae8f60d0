package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts placed orders by order type.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderTotalAmount records grand totals of placed orders.
	OrderTotalAmount *prometheus.HistogramVec
	// MenuCacheTotal counts menu projection cache hits and misses.
	MenuCacheTotal *prometheus.CounterVec
	// NotifyDeliveriesTotal tracks kitchen/Telegram notification outcomes.
	NotifyDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of orders placed, by order type.",
		}, []string{"type"})
		OrderTotalAmount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_amount",
			Help:      "Distribution of order grand totals.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"type"})
		MenuCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_cache_total",
			Help:      "Count of menu cache lookups by outcome.",
		}, []string{"outcome"})
		NotifyDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_deliveries_total",
			Help:      "Count of notification delivery outcomes.",
		}, []string{"channel", "result"})

		for _, c := range []struct {
			collector prometheus.Collector
			replace   func(prometheus.Collector)
		}{
			{OrdersCreatedTotal, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					OrdersCreatedTotal = v
				}
			}},
			{OrderTotalAmount, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.HistogramVec); ok {
					OrderTotalAmount = v
				}
			}},
			{MenuCacheTotal, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					MenuCacheTotal = v
				}
			}},
			{NotifyDeliveriesTotal, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					NotifyDeliveriesTotal = v
				}
			}},
		} {
			mustRegisterCollector(reg, c.collector, c.replace)
		}
	})
}

// ObserveOrderCreated records a placed order in both domain collectors.
func ObserveOrderCreated(orderType string, total float64) {
	if OrdersCreatedTotal != nil {
		OrdersCreatedTotal.WithLabelValues(orderType).Inc()
	}
	if OrderTotalAmount != nil {
		OrderTotalAmount.WithLabelValues(orderType).Observe(total)
	}
}

// ObserveMenuCache records a menu projection cache lookup outcome.
func ObserveMenuCache(outcome string) {
	if MenuCacheTotal != nil {
		MenuCacheTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveNotifyDelivery records a notification attempt outcome per channel.
func ObserveNotifyDelivery(channel, result string) {
	if NotifyDeliveriesTotal != nil {
		NotifyDeliveriesTotal.WithLabelValues(channel, result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(err)
	}
}
