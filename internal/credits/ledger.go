// Package credits owns the process-wide credit balance cache. Every paid
// action goes through Precheck and, when it charges synchronously, the
// ApplyOptimistic/Rollback pair; callers never write the balance directly.
package credits

import (
	"context"
	"errors"
	"sync"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/domain"
)

// Costs of the credit-gated actions, mirroring the backend.
const (
	SearchCost = 1
	UnlockCost = 1
)

// ErrInsufficient gates an action before any network call. The UI reacts by
// pointing at the upgrade path, not by retrying.
var ErrInsufficient = errors.New("insufficient credits")

// BalanceFetcher is the slice of the remote API the ledger needs.
type BalanceFetcher interface {
	Credits(ctx context.Context) (domain.CreditBalance, error)
}

type Ledger struct {
	mu      sync.Mutex
	remote  BalanceFetcher
	balance domain.CreditBalance
	valid   bool

	// OnChange, when set, observes every balance the ledger accepts.
	// Called without the lock held.
	OnChange func(domain.CreditBalance)
}

func NewLedger(remote BalanceFetcher) *Ledger {
	return &Ledger{remote: remote}
}

// Fetch refreshes the cached balance from the server. Auth failures
// invalidate the cache (the session is gone); transient failures leave the
// last known balance untouched and surface as retryable errors.
func (l *Ledger) Fetch(ctx context.Context) (domain.CreditBalance, error) {
	b, err := l.remote.Credits(ctx)
	if err != nil {
		if api.IsAuth(err) {
			l.Invalidate()
		}
		return domain.CreditBalance{}, err
	}
	l.set(b)
	return b, nil
}

// Balance returns the cached balance and whether it is usable.
func (l *Ledger) Balance() (domain.CreditBalance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, l.valid
}

// Precheck reports whether an action costing cost credits may proceed.
// Pure read; never mutates and never touches the network. An invalid cache
// refuses the action (the caller should refresh first).
func (l *Ledger) Precheck(cost int) (bool, domain.CreditBalance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid {
		return false, l.balance
	}
	return l.balance.Credits >= cost, l.balance
}

// ApplyOptimistic decrements the displayed balance before the charging
// request settles and returns the snapshot the caller MUST pass to Rollback
// if that request fails. delta is the cost (positive).
func (l *Ledger) ApplyOptimistic(delta int) domain.CreditBalance {
	l.mu.Lock()
	prev := l.balance
	l.balance.Credits -= delta
	if l.balance.Credits < 0 {
		l.balance.Credits = 0
	}
	cur := l.balance
	l.mu.Unlock()

	l.notify(cur)
	return prev
}

// Rollback restores exactly the snapshot taken before the matching
// ApplyOptimistic. Deliberately not last-writer-wins: an unrelated refresh
// between apply and rollback must not be clobbered by guesswork, so each
// failed action restores its own snapshot.
func (l *Ledger) Rollback(prev domain.CreditBalance) {
	l.set(prev)
}

// Reconcile accepts a full server-reported balance as truth.
func (l *Ledger) Reconcile(b domain.CreditBalance) {
	l.set(b)
}

// ReconcileCredits accepts a server-reported credit count when the response
// carries only the count (e.g. credits_remaining on search start), keeping
// the cached plan metadata.
func (l *Ledger) ReconcileCredits(credits int) {
	if credits < 0 {
		return
	}
	l.mu.Lock()
	l.balance.Credits = credits
	l.valid = true
	cur := l.balance
	l.mu.Unlock()

	l.notify(cur)
}

// Invalidate drops the cache after an auth failure; every precheck refuses
// until a fresh Fetch succeeds.
func (l *Ledger) Invalidate() {
	l.mu.Lock()
	l.valid = false
	l.mu.Unlock()
}

func (l *Ledger) set(b domain.CreditBalance) {
	l.mu.Lock()
	l.balance = b
	l.valid = true
	l.mu.Unlock()

	l.notify(b)
}

func (l *Ledger) notify(b domain.CreditBalance) {
	if l.OnChange != nil {
		l.OnChange(b)
	}
}
