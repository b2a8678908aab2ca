package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/credits"
	"jobxpress-engine/internal/domain"
)

type pollStep struct {
	resp api.PollResponse
	err  error
}

type fakeRemote struct {
	mu sync.Mutex

	startResp  api.StartSearchResponse
	startErr   error
	startCalls int

	pollSteps []pollStep
	pollCalls int

	selectResp  api.SelectResponse
	selectErr   error
	selectCalls int
	selectedIDs []string
}

func (f *fakeRemote) StartSearch(ctx context.Context, crit domain.SearchCriteria) (api.StartSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startResp, f.startErr
}

func (f *fakeRemote) PollResults(ctx context.Context, applicationID string) (api.PollResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	step := f.pollSteps[len(f.pollSteps)-1]
	if f.pollCalls < len(f.pollSteps) {
		step = f.pollSteps[f.pollCalls]
	}
	f.pollCalls++
	return step.resp, step.err
}

func (f *fakeRemote) SelectJobs(ctx context.Context, applicationID string, ids []string) (api.SelectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectCalls++
	f.selectedIDs = ids
	return f.selectResp, f.selectErr
}

func (f *fakeRemote) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls
}

func validCriteria() domain.SearchCriteria {
	return domain.SearchCriteria{
		JobTitle:        "Backend Engineer",
		Location:        "Lyon",
		ContractType:    "CDI",
		ExperienceLevel: "senior",
		Filters:         domain.DefaultFilters(),
	}
}

func jobs(ids ...string) []domain.JobResult {
	out := make([]domain.JobResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.JobResult{ID: id, Title: "t-" + id, Company: "c-" + id})
	}
	return out
}

func seededLedger(creditCount int) *credits.Ledger {
	l := credits.NewLedger(nil)
	l.Reconcile(domain.CreditBalance{Credits: creditCount, MaxCredits: 5, Plan: domain.PlanFree})
	return l
}

// newTestMachine wires a machine with a short poll interval and a phase
// channel the test can block on.
func newTestMachine(remote *fakeRemote, ledger *credits.Ledger, maxAttempts int) (*Machine, chan Snapshot) {
	m := NewMachine(remote, ledger, Config{
		PollInterval:    2 * time.Millisecond,
		MaxPollAttempts: maxAttempts,
	})
	phases := make(chan Snapshot, 32)
	m.OnPhase = func(s Snapshot) { phases <- s }
	return m, phases
}

func waitPhase(t *testing.T, ch chan Snapshot, want domain.Phase) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.Phase == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %s", want)
		}
	}
}

func TestStartRefusedWithoutCredits(t *testing.T) {
	remote := &fakeRemote{}
	m, _ := newTestMachine(remote, seededLedger(0), 30)

	_, err := m.Start(context.Background(), validCriteria())
	require.ErrorIs(t, err, credits.ErrInsufficient)

	assert.Equal(t, 0, remote.startCalls, "refusal must not reach the network")
	assert.Equal(t, domain.PhaseCollecting, m.Snapshot().Phase)
}

func TestStartRefusedWithUnknownBalance(t *testing.T) {
	remote := &fakeRemote{}
	ledger := credits.NewLedger(nil) // never fetched
	m, _ := newTestMachine(remote, ledger, 30)

	_, err := m.Start(context.Background(), validCriteria())
	require.ErrorIs(t, err, credits.ErrInsufficient)
	assert.Equal(t, 0, remote.startCalls)
}

func TestStartValidatesCriteria(t *testing.T) {
	remote := &fakeRemote{}
	m, _ := newTestMachine(remote, seededLedger(5), 30)

	crit := validCriteria()
	crit.JobTitle = "  "
	_, err := m.Start(context.Background(), crit)
	require.ErrorIs(t, err, domain.ErrInvalidCriteria)
	assert.Equal(t, 0, remote.startCalls)
}

func TestSearchReachesSelectionAfterPolls(t *testing.T) {
	searching := api.PollResponse{Status: domain.PhaseSearching}
	remote := &fakeRemote{
		startResp: api.StartSearchResponse{
			ApplicationID:    "app-1",
			Status:           domain.PhaseSearching,
			CreditsRemaining: 4,
		},
		pollSteps: []pollStep{
			{resp: searching},
			{resp: searching},
			{resp: api.PollResponse{
				Status:     domain.PhaseWaitingSelection,
				TotalFound: 3,
				Jobs:       jobs("j1", "j2", "j3"),
			}},
		},
	}
	ledger := seededLedger(5)
	m, phases := newTestMachine(remote, ledger, 30)

	snap, err := m.Start(context.Background(), validCriteria())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSearching, snap.Phase)
	assert.Equal(t, "app-1", snap.ApplicationID)

	// start response balance is authoritative
	bal, ok := ledger.Balance()
	require.True(t, ok)
	assert.Equal(t, 4, bal.Credits)

	got := waitPhase(t, phases, domain.PhaseWaitingSelection)
	require.Len(t, got.Results, 3)
	assert.Equal(t, 3, remote.polls())
	assert.Empty(t, got.SelectedIDs, "a fresh result set starts unselected")
}

func TestPollCeilingFailsWithTimeout(t *testing.T) {
	remote := &fakeRemote{
		startResp: api.StartSearchResponse{ApplicationID: "app-1", Status: domain.PhaseSearching, CreditsRemaining: 4},
		pollSteps: []pollStep{{resp: api.PollResponse{Status: domain.PhaseSearching}}},
	}
	m, phases := newTestMachine(remote, seededLedger(5), 4)

	_, err := m.Start(context.Background(), validCriteria())
	require.NoError(t, err)

	got := waitPhase(t, phases, domain.PhaseFailed)
	assert.Contains(t, got.Error, "timeout")
	assert.LessOrEqual(t, remote.polls(), 4, "ceiling bounds the number of status queries")
}

func TestPollFailureFromServer(t *testing.T) {
	remote := &fakeRemote{
		startResp: api.StartSearchResponse{ApplicationID: "app-1", Status: domain.PhaseSearching, CreditsRemaining: 4},
		pollSteps: []pollStep{
			{resp: api.PollResponse{Status: domain.PhaseFailed, Message: "no results matched"}},
		},
	}
	m, phases := newTestMachine(remote, seededLedger(5), 30)

	_, err := m.Start(context.Background(), validCriteria())
	require.NoError(t, err)

	got := waitPhase(t, phases, domain.PhaseFailed)
	assert.Equal(t, "no results matched", got.Error)
}

func TestTransientPollErrorsAreMisses(t *testing.T) {
	transient := &api.Error{Kind: api.KindTransient, Message: "connection refused"}
	remote := &fakeRemote{
		startResp: api.StartSearchResponse{ApplicationID: "app-1", Status: domain.PhaseSearching, CreditsRemaining: 4},
		pollSteps: []pollStep{
			{err: transient},
			{err: transient},
			{resp: api.PollResponse{Status: domain.PhaseWaitingSelection, Jobs: jobs("j1")}},
		},
	}
	m, phases := newTestMachine(remote, seededLedger(5), 30)

	_, err := m.Start(context.Background(), validCriteria())
	require.NoError(t, err)

	got := waitPhase(t, phases, domain.PhaseWaitingSelection)
	require.Len(t, got.Results, 1)
}

func TestAuthFailureDuringPollEndsWorkflow(t *testing.T) {
	remote := &fakeRemote{
		startResp: api.StartSearchResponse{ApplicationID: "app-1", Status: domain.PhaseSearching, CreditsRemaining: 4},
		pollSteps: []pollStep{
			{err: &api.Error{Kind: api.KindAuth, Status: 401, Message: "token expired"}},
		},
	}
	ledger := seededLedger(5)
	m, phases := newTestMachine(remote, ledger, 30)

	_, err := m.Start(context.Background(), validCriteria())
	require.NoError(t, err)

	got := waitPhase(t, phases, domain.PhaseFailed)
	assert.Contains(t, got.Error, "sign in")

	_, ok := ledger.Balance()
	assert.False(t, ok, "auth failure invalidates the balance cache")
}

func startToSelection(t *testing.T, remote *fakeRemote, ledger *credits.Ledger) (*Machine, chan Snapshot) {
	t.Helper()
	m, phases := newTestMachine(remote, ledger, 30)
	_, err := m.Start(context.Background(), validCriteria())
	require.NoError(t, err)
	waitPhase(t, phases, domain.PhaseWaitingSelection)
	return m, phases
}

func selectionRemote() *fakeRemote {
	return &fakeRemote{
		startResp: api.StartSearchResponse{ApplicationID: "app-1", Status: domain.PhaseSearching, CreditsRemaining: 4},
		pollSteps: []pollStep{
			{resp: api.PollResponse{Status: domain.PhaseWaitingSelection, Jobs: jobs("j1", "j2", "j3")}},
		},
	}
}

func TestToggleRequiresSelectionPhase(t *testing.T) {
	m, _ := newTestMachine(&fakeRemote{}, seededLedger(5), 30)
	_, err := m.Toggle("j1")
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestToggleRejectsUnknownID(t *testing.T) {
	m, _ := startToSelection(t, selectionRemote(), seededLedger(5))
	_, err := m.Toggle("nope")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestConfirmNeedsAtLeastOneSelection(t *testing.T) {
	remote := selectionRemote()
	m, _ := startToSelection(t, remote, seededLedger(5))

	_, err := m.Confirm(context.Background())
	require.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, 0, remote.selectCalls)
}

func TestConfirmCompletesWorkflow(t *testing.T) {
	remote := selectionRemote()
	m, phases := startToSelection(t, remote, seededLedger(5))

	_, err := m.Toggle("j1")
	require.NoError(t, err)
	_, err = m.Toggle("j3")
	require.NoError(t, err)

	snap, err := m.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, snap.Phase)
	assert.Equal(t, []string{"j1", "j3"}, remote.selectedIDs)

	waitPhase(t, phases, domain.PhaseConfirming)
	waitPhase(t, phases, domain.PhaseCompleted)
}

func TestConfirmRejectionPreservesSelection(t *testing.T) {
	remote := selectionRemote()
	remote.selectErr = &api.Error{Kind: api.KindRejected, Status: 400, Message: "selection rejected"}
	m, _ := startToSelection(t, remote, seededLedger(5))

	_, err := m.Toggle("j2")
	require.NoError(t, err)

	snap, err := m.Confirm(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.PhaseWaitingSelection, snap.Phase)
	assert.Equal(t, []string{"j2"}, snap.SelectedIDs, "a rejected confirm keeps the selection")
	assert.NotEmpty(t, snap.Error)

	// the machine is still usable: fix the selection and retry
	remote.selectErr = nil
	snap, err = m.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, snap.Phase)
}

func TestRestartResetsEverything(t *testing.T) {
	remote := selectionRemote()
	m, _ := startToSelection(t, remote, seededLedger(5))
	_, err := m.Toggle("j1")
	require.NoError(t, err)

	snap := m.Restart()
	assert.Equal(t, domain.PhaseCollecting, snap.Phase)
	assert.Empty(t, snap.ApplicationID)
	assert.Empty(t, snap.SelectedIDs)
	assert.Empty(t, snap.Results)

	// a whole new run works against the same machine
	remote.mu.Lock()
	remote.pollCalls = 0
	remote.mu.Unlock()
	_, err = m.Start(context.Background(), validCriteria())
	require.NoError(t, err)
}

func TestStartFailedImmediately(t *testing.T) {
	remote := &fakeRemote{
		startResp: api.StartSearchResponse{
			ApplicationID:    "app-1",
			Status:           domain.PhaseFailed,
			Message:          "backend rejected the request",
			CreditsRemaining: 5,
		},
	}
	m, _ := newTestMachine(remote, seededLedger(5), 30)

	snap, err := m.Start(context.Background(), validCriteria())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseFailed, snap.Phase)
	assert.Equal(t, "backend rejected the request", snap.Error)
	assert.Equal(t, 0, remote.polls(), "a failed start never polls")
}
