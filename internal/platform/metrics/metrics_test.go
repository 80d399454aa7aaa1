package metrics_test

import (
	"strings"
	"testing"
	"time"

	"storefront/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Checkout(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Checkout(metrics.OutcomeCommitted, 120*time.Millisecond)
	m.Checkout(metrics.OutcomeFailed, 2*time.Second)
	m.Checkout(metrics.OutcomeInProgress, 0)
	m.CartOp("add")
	m.CartOp("add")

	expected := `
# HELP storefront_checkout_attempts_total Checkout attempts by outcome.
# TYPE storefront_checkout_attempts_total counter
storefront_checkout_attempts_total{outcome="committed"} 1
storefront_checkout_attempts_total{outcome="failed"} 1
storefront_checkout_attempts_total{outcome="in_progress"} 1
# HELP storefront_cart_operations_total Cart mutations by operation.
# TYPE storefront_cart_operations_total counter
storefront_cart_operations_total{op="add"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"storefront_checkout_attempts_total", "storefront_cart_operations_total")
	require.NoError(t, err)

	// 二重送信・空カートは所要時間に含めない
	families, err := reg.Gather()
	require.NoError(t, err)
	var count uint64
	for _, mf := range families {
		if mf.GetName() == "storefront_checkout_duration_seconds" {
			count = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), count)
}
