package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics records checkout, payment and stock ledger activity. A nil
// *ShopMetrics is valid and records nothing.
type ShopMetrics struct {
	checkouts       *prometheus.CounterVec
	checkoutLatency *prometheus.HistogramVec
	payments        *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	stockMovements  *prometheus.CounterVec
}

// NewShopMetrics registers the shop metrics on the provided registerer.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	checkoutLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of order materialization in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_total",
		Help: "Payment lifecycle events by provider and event.",
	}, []string{"provider", "event"})
	gatewayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_request_seconds",
		Help:    "Latency of outbound payment gateway calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"provider", "operation"})
	stockMovements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_units_moved_total",
		Help: "Units moved by the stock ledger by direction.",
	}, []string{"direction"})
	reg.MustRegister(checkouts, checkoutLatency, payments, gatewayLatency, stockMovements)
	return &ShopMetrics{
		checkouts:       checkouts,
		checkoutLatency: checkoutLatency,
		payments:        payments,
		gatewayLatency:  gatewayLatency,
		stockMovements:  stockMovements,
	}
}

// ObserveCheckout counts a checkout attempt and records how long it took.
func (m *ShopMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.checkouts.WithLabelValues(label).Inc()
	m.checkoutLatency.WithLabelValues(label).Observe(duration.Seconds())
}

// IncPaymentEvent counts a payment log event for provider.
func (m *ShopMetrics) IncPaymentEvent(provider, event string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(provider), normalizeLabel(event)).Inc()
}

// ObserveGatewayCall records the latency of one outbound gateway request.
func (m *ShopMetrics) ObserveGatewayCall(provider, operation string, duration time.Duration) {
	if m == nil || m.gatewayLatency == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(duration.Seconds())
}

// AddStockMovement counts units committed ("out") or restored ("in").
func (m *ShopMetrics) AddStockMovement(direction string, units int) {
	if m == nil || m.stockMovements == nil || units <= 0 {
		return
	}
	m.stockMovements.WithLabelValues(normalizeLabel(direction)).Add(float64(units))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
