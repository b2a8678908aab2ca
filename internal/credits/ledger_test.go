package credits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/domain"
)

type fakeFetcher struct {
	bal domain.CreditBalance
	err error
}

func (f *fakeFetcher) Credits(ctx context.Context) (domain.CreditBalance, error) {
	return f.bal, f.err
}

func TestPrecheckRefusesUnknownBalance(t *testing.T) {
	l := NewLedger(&fakeFetcher{})
	ok, _ := l.Precheck(1)
	assert.False(t, ok, "an unfetched balance must refuse paid actions")
}

func TestPrecheckIsPure(t *testing.T) {
	l := NewLedger(nil)
	l.Reconcile(domain.CreditBalance{Credits: 3, Plan: domain.PlanFree})

	ok, bal := l.Precheck(1)
	assert.True(t, ok)
	assert.Equal(t, 3, bal.Credits)

	// ten prechecks later the balance is untouched
	for i := 0; i < 10; i++ {
		l.Precheck(1)
	}
	got, valid := l.Balance()
	require.True(t, valid)
	assert.Equal(t, 3, got.Credits)
}

func TestPrecheckInsufficient(t *testing.T) {
	l := NewLedger(nil)
	l.Reconcile(domain.CreditBalance{Credits: 0, Plan: domain.PlanFree})
	ok, _ := l.Precheck(1)
	assert.False(t, ok)
}

func TestApplyAndRollbackRestoresSnapshot(t *testing.T) {
	l := NewLedger(nil)
	l.Reconcile(domain.CreditBalance{Credits: 5, MaxCredits: 5, Plan: domain.PlanFree})

	prev := l.ApplyOptimistic(1)
	got, _ := l.Balance()
	assert.Equal(t, 4, got.Credits)

	l.Rollback(prev)
	got, _ = l.Balance()
	assert.Equal(t, 5, got.Credits)
	assert.Equal(t, domain.PlanFree, got.Plan)
}

func TestRollbackIsSnapshotNotIncrement(t *testing.T) {
	l := NewLedger(nil)
	l.Reconcile(domain.CreditBalance{Credits: 5, Plan: domain.PlanFree})

	prev := l.ApplyOptimistic(1) // 4 displayed, snapshot 5

	// an unrelated refresh lands in between
	l.Reconcile(domain.CreditBalance{Credits: 2, Plan: domain.PlanFree})

	// the failed action restores its own snapshot, not snapshot-1
	l.Rollback(prev)
	got, _ := l.Balance()
	assert.Equal(t, 5, got.Credits)
}

func TestApplyOptimisticClampsAtZero(t *testing.T) {
	l := NewLedger(nil)
	l.Reconcile(domain.CreditBalance{Credits: 0, Plan: domain.PlanFree})
	l.ApplyOptimistic(1)
	got, _ := l.Balance()
	assert.Equal(t, 0, got.Credits, "the displayed balance never goes negative")
}

func TestReconcileCreditsKeepsPlanMetadata(t *testing.T) {
	l := NewLedger(nil)
	l.Reconcile(domain.CreditBalance{Credits: 100, MaxCredits: 100, Plan: domain.PlanStarter})

	l.ReconcileCredits(99)
	got, ok := l.Balance()
	require.True(t, ok)
	assert.Equal(t, 99, got.Credits)
	assert.Equal(t, domain.PlanStarter, got.Plan)
	assert.Equal(t, 100, got.MaxCredits)

	// negative counts are garbage and ignored
	l.ReconcileCredits(-1)
	got, _ = l.Balance()
	assert.Equal(t, 99, got.Credits)
}

func TestFetchAuthFailureInvalidates(t *testing.T) {
	f := &fakeFetcher{bal: domain.CreditBalance{Credits: 5, Plan: domain.PlanFree}}
	l := NewLedger(f)

	_, err := l.Fetch(context.Background())
	require.NoError(t, err)
	_, ok := l.Balance()
	require.True(t, ok)

	f.err = &api.Error{Kind: api.KindAuth, Status: 401, Message: "expired"}
	_, err = l.Fetch(context.Background())
	require.Error(t, err)
	_, ok = l.Balance()
	assert.False(t, ok)
}

func TestFetchTransientFailureKeepsCache(t *testing.T) {
	f := &fakeFetcher{bal: domain.CreditBalance{Credits: 5, Plan: domain.PlanFree}}
	l := NewLedger(f)

	_, err := l.Fetch(context.Background())
	require.NoError(t, err)

	f.err = &api.Error{Kind: api.KindTransient, Message: "timeout"}
	_, err = l.Fetch(context.Background())
	require.Error(t, err)

	got, ok := l.Balance()
	assert.True(t, ok, "a transient failure leaves the last known balance usable")
	assert.Equal(t, 5, got.Credits)
}

func TestOnChangeObservesAcceptedBalances(t *testing.T) {
	l := NewLedger(nil)
	var seen []int
	l.OnChange = func(b domain.CreditBalance) { seen = append(seen, b.Credits) }

	l.Reconcile(domain.CreditBalance{Credits: 5, Plan: domain.PlanFree})
	prev := l.ApplyOptimistic(1)
	l.Rollback(prev)

	assert.Equal(t, []int{5, 4, 5}, seen)
}
