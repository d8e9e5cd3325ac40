package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCommerceMetricsRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewCommerceMetrics(reg)

	m.IncOrderPlaced("invoice")
	m.IncOrderPlaced("invoice")
	m.IncCheckoutFailure("INSUFFICIENT_STOCK")
	m.IncPriceResolution("tier")
	m.IncWebhookReplay()
	m.IncTenantResolveFailure()
	m.ObserveCheckoutDuration(120 * time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.ordersPlaced.WithLabelValues("invoice")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.checkoutFailures.WithLabelValues("INSUFFICIENT_STOCK")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.priceResolutions.WithLabelValues("tier")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.webhookReplays))
	require.Equal(t, float64(1), testutil.ToFloat64(m.tenantFailures))
}

func TestCommerceMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *CommerceMetrics
	m.IncOrderPlaced("invoice")
	m.IncCheckoutFailure("x")
	m.IncPriceResolution("tier")
	m.IncWebhookReplay()
	m.IncTenantResolveFailure()
	m.ObserveCheckoutDuration(time.Second)

	empty := NewCommerceMetrics(nil)
	empty.IncOrderPlaced("")
	empty.IncWebhookReplay()
}
