package checkout

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.outcome(nil)
	m.outcome(newError(ErrCardDeclined, MsgCardDeclined, nil))
	m.outcome(errors.New("boom"))
	m.stageFailed(StageConfirm)
	m.reconciled("reused")
	m.observePayment(150 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("card_declined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("unexpected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageFailures.WithLabelValues(StageConfirm)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciliations.WithLabelValues("reused")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.paymentDuration))

	again := MustNewMetrics(reg)
	again.reconciled("reused")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reconciliations.WithLabelValues("reused")))
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.outcome(nil)
		m.stageFailed(StageFinalize)
		m.reconciled("created")
		m.observePayment(time.Second)
	})
}

func TestOutcomeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "confirmation_failed", outcomeLabel(newError(ErrGatewayConfirmation, "", nil)))
	assert.Equal(t, "subscription_failed", outcomeLabel(newError(ErrSubscriptionCreation, "", nil)))
	assert.Equal(t, "invalid_plan", outcomeLabel(newError(ErrNoPlanSelected, "", nil)))
	assert.Equal(t, "invalid_plan", outcomeLabel(ErrPlanNotFound))
	assert.Equal(t, "action_required", outcomeLabel(&Error{Kind: ErrActionRequired, ClientSecret: "s"}))
	assert.Equal(t, "no_pending_payment", outcomeLabel(newError(ErrNoPendingPayment, "", nil)))
}
