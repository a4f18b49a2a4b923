package checkout

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for checkout activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	outcomes        *prometheus.CounterVec
	stageFailures   *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	paymentDuration prometheus.Histogram
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns metrics registered with the global registry, created once per process.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers checkout collectors with reg and panics on conflicting registration.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "submissions_total",
			Help:      "Checkout submissions by outcome.",
		}, []string{"outcome"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "payment_stage_failures_total",
			Help:      "Payment pipeline failures by stage.",
		}, []string{"stage"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "reconciliations_total",
			Help:      "Subscription reconciliation decisions.",
		}, []string{"decision"}),
		paymentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "payment_duration_seconds",
			Help:      "Time spent driving a payment intent to a terminal state.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{m.outcomes, m.stageFailures, m.reconciliations, m.paymentDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
			switch c {
			case m.outcomes:
				m.outcomes = already.ExistingCollector.(*prometheus.CounterVec)
			case m.stageFailures:
				m.stageFailures = already.ExistingCollector.(*prometheus.CounterVec)
			case m.reconciliations:
				m.reconciliations = already.ExistingCollector.(*prometheus.CounterVec)
			case m.paymentDuration:
				m.paymentDuration = already.ExistingCollector.(prometheus.Histogram)
			}
		}
	}
	return m
}

func (m *Metrics) outcome(err error) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcomeLabel(err)).Inc()
}

func (m *Metrics) stageFailed(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) reconciled(decision string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(decision).Inc()
}

func (m *Metrics) observePayment(d time.Duration) {
	if m == nil {
		return
	}
	m.paymentDuration.Observe(d.Seconds())
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, ErrActionRequired):
		return "action_required"
	case errors.Is(err, ErrCardDeclined):
		return "card_declined"
	case errors.Is(err, ErrGatewayConfirmation):
		return "confirmation_failed"
	case errors.Is(err, ErrSubscriptionCreation):
		return "subscription_failed"
	case errors.Is(err, ErrNoPlanSelected), errors.Is(err, ErrPlanNotFound):
		return "invalid_plan"
	case errors.Is(err, ErrNoPendingPayment):
		return "no_pending_payment"
	default:
		return "unexpected"
	}
}
