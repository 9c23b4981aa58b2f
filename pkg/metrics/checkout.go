package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records promo validation and order assembly outcomes.
type CheckoutMetrics struct {
	promoAttempts        *prometheus.CounterVec
	ordersCreated        prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	promoAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_validation_attempts",
		Help: "Promo code validation attempts by outcome.",
	}, []string{"outcome"})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created",
		Help: "Orders successfully assembled and persisted.",
	})
	notificationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_notification_failures",
		Help: "Order notifications that could not be delivered.",
	})
	reg.MustRegister(promoAttempts, ordersCreated, notificationFailures)
	return &CheckoutMetrics{
		promoAttempts:        promoAttempts,
		ordersCreated:        ordersCreated,
		notificationFailures: notificationFailures,
	}
}

// IncPromoAttempt increments the attempt counter for the given outcome.
func (c *CheckoutMetrics) IncPromoAttempt(outcome string) {
	if c == nil || c.promoAttempts == nil {
		return
	}
	c.promoAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOrderCreated increments the created-orders counter.
func (c *CheckoutMetrics) IncOrderCreated() {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.Inc()
}

// IncNotificationFailure increments the failed-notifications counter.
func (c *CheckoutMetrics) IncNotificationFailure() {
	if c == nil || c.notificationFailures == nil {
		return
	}
	c.notificationFailures.Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
