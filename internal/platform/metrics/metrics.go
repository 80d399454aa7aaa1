package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// チェックアウトの結果
const (
	OutcomeCommitted  = "committed"
	OutcomeFailed     = "failed"
	OutcomeEmptyCart  = "empty_cart"
	OutcomeInProgress = "in_progress"
)

type Metrics struct {
	checkouts *prometheus.CounterVec
	duration  prometheus.Histogram
	cartOps   *prometheus.CounterVec
}

// レジストリに登録して返す
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_attempts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "checkout_duration_seconds",
			Help:      "Time from checkout trigger to commit or failure.",
			Buckets:   prometheus.DefBuckets,
		}),
		cartOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_operations_total",
			Help:      "Cart mutations by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.checkouts, m.duration, m.cartOps)
	return m
}

func (m *Metrics) Checkout(outcome string, elapsed time.Duration) {
	m.checkouts.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCommitted || outcome == OutcomeFailed {
		m.duration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) CartOp(op string) {
	m.cartOps.WithLabelValues(op).Inc()
}
