package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics records the platform's business-level counters.
type CommerceMetrics struct {
	ordersPlaced     *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	priceResolutions *prometheus.CounterVec
	webhookReplays   prometheus.Counter
	tenantFailures   prometheus.Counter
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created by the placement transaction.",
	}, []string{"payment_method"})
	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Failed order placements by error code.",
	}, []string{"code"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of the order placement transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	priceResolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_resolutions_total",
		Help: "Price resolutions by winning precedence layer.",
	}, []string{"source"})
	webhookReplays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_replays_total",
		Help: "Payment confirmations absorbed as idempotent replays.",
	})
	tenantFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenant_resolve_failures_total",
		Help: "Storefront host lookups that failed and degraded to base pricing.",
	})
	reg.MustRegister(ordersPlaced, checkoutFailures, checkoutDuration, priceResolutions, webhookReplays, tenantFailures)
	return &CommerceMetrics{
		ordersPlaced:     ordersPlaced,
		checkoutFailures: checkoutFailures,
		checkoutDuration: checkoutDuration,
		priceResolutions: priceResolutions,
		webhookReplays:   webhookReplays,
		tenantFailures:   tenantFailures,
	}
}

// IncOrderPlaced counts a successful placement for the payment method.
func (m *CommerceMetrics) IncOrderPlaced(paymentMethod string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCheckoutFailure counts a failed placement by error code.
func (m *CommerceMetrics) IncCheckoutFailure(code string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

// ObserveCheckoutDuration records how long a placement took.
func (m *CommerceMetrics) ObserveCheckoutDuration(duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.Observe(duration.Seconds())
}

// IncPriceResolution counts a resolution by its winning layer.
func (m *CommerceMetrics) IncPriceResolution(source string) {
	if m == nil || m.priceResolutions == nil {
		return
	}
	m.priceResolutions.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncWebhookReplay counts an idempotent payment confirmation replay.
func (m *CommerceMetrics) IncWebhookReplay() {
	if m == nil || m.webhookReplays == nil {
		return
	}
	m.webhookReplays.Inc()
}

// IncTenantResolveFailure counts a storefront host lookup that errored and
// let the request fall back to base pricing.
func (m *CommerceMetrics) IncTenantResolveFailure() {
	if m == nil || m.tenantFailures == nil {
		return
	}
	m.tenantFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
