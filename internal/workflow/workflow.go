// Package workflow owns the application state machine: one run of the
// search -> select -> confirm process tied to a single application id.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/credits"
	"jobxpress-engine/internal/domain"
)

var (
	// ErrInvalidPhase rejects an operation the current phase does not allow.
	ErrInvalidPhase = errors.New("operation not allowed in current phase")
	// ErrInvalidSelection rejects a confirm whose selection breaks the
	// 1..5 bound or references unknown result ids. Caught before any
	// network call.
	ErrInvalidSelection = errors.New("invalid selection")
)

// RemoteAPI is the slice of the backend client the machine drives.
type RemoteAPI interface {
	StartSearch(ctx context.Context, crit domain.SearchCriteria) (api.StartSearchResponse, error)
	PollResults(ctx context.Context, applicationID string) (api.PollResponse, error)
	SelectJobs(ctx context.Context, applicationID string, ids []string) (api.SelectResponse, error)
}

// Config bounds the polling loop. The defaults are a deliberate bounded-wait
// policy: the UI must never poll a hung backend job forever.
type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = 30
	}
	return c
}

// Snapshot is the externally visible state of the machine, handed to the UI
// and to phase observers.
type Snapshot struct {
	ApplicationID string             `json:"application_id,omitempty"`
	Phase         domain.Phase       `json:"phase"`
	Results       []domain.JobResult `json:"results,omitempty"`
	SelectedIDs   []string           `json:"selected_ids"`
	Error         string             `json:"error,omitempty"`
	JobTitle      string             `json:"job_title,omitempty"`
	Location      string             `json:"location,omitempty"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
}

// Machine is the workflow state machine. All transitions are strictly
// sequential: the poll loop never has two requests in flight, and responses
// from a torn-down instance are discarded via the generation token.
type Machine struct {
	remote RemoteAPI
	ledger *credits.Ledger
	cfg    Config

	// OnPhase observes every committed transition (SSE publishing, local
	// history persistence). Called without the lock held, in commit order.
	OnPhase func(Snapshot)

	mu            sync.Mutex
	gen           int // generation token; bumped on every restart
	cancel        context.CancelFunc
	busy          bool // a start or confirm call is in flight
	applicationID string
	phase         domain.Phase
	criteria      domain.SearchCriteria
	results       []domain.JobResult
	selection     *Selection
	errMsg        string
	startedAt     time.Time
}

func NewMachine(remote RemoteAPI, ledger *credits.Ledger, cfg Config) *Machine {
	return &Machine{
		remote:    remote,
		ledger:    ledger,
		cfg:       cfg.withDefaults(),
		phase:     domain.PhaseCollecting,
		selection: NewSelection(),
	}
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		ApplicationID: m.applicationID,
		Phase:         m.phase,
		SelectedIDs:   m.selection.IDs(),
		Error:         m.errMsg,
		JobTitle:      m.criteria.JobTitle,
		Location:      m.criteria.Location,
	}
	if m.phase == domain.PhaseWaitingSelection || m.phase == domain.PhaseConfirming {
		s.Results = append([]domain.JobResult(nil), m.results...)
	}
	if !m.startedAt.IsZero() {
		t := m.startedAt
		s.StartedAt = &t
	}
	return s
}

// toPhaseLocked commits a transition and returns the snapshot the caller
// must hand to emit once the lock is released.
func (m *Machine) toPhaseLocked(p domain.Phase, errMsg string) Snapshot {
	m.phase = p
	m.errMsg = errMsg
	return m.snapshotLocked()
}

func (m *Machine) emit(s Snapshot) {
	if m.OnPhase != nil {
		m.OnPhase(s)
	}
}

// Start validates the criteria, prechecks one credit and calls the remote
// start operation. On success the machine enters SEARCHING and the poll
// loop runs until a terminal poll outcome. A precheck refusal never reaches
// the network and leaves the phase at COLLECTING.
func (m *Machine) Start(ctx context.Context, crit domain.SearchCriteria) (Snapshot, error) {
	if err := crit.Validate(); err != nil {
		return m.Snapshot(), err
	}

	m.mu.Lock()
	if m.phase != domain.PhaseCollecting || m.busy {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, fmt.Errorf("%w: start requires COLLECTING, have %s", ErrInvalidPhase, snap.Phase)
	}
	if ok, bal := m.ledger.Precheck(credits.SearchCost); !ok {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, fmt.Errorf("%w: %d available, %d needed",
			credits.ErrInsufficient, bal.Credits, credits.SearchCost)
	}
	m.busy = true
	gen := m.gen
	m.mu.Unlock()

	resp, err := m.remote.StartSearch(ctx, crit)

	m.mu.Lock()
	m.busy = false
	if gen != m.gen {
		// restarted while the call was in flight; drop the stale response
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	if err != nil {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		if api.IsAuth(err) {
			m.ledger.Invalidate()
		}
		return snap, err
	}

	// The credit is charged server-side only on a confirmed non-empty
	// result; trust the returned balance instead of decrementing here.
	m.ledger.ReconcileCredits(resp.CreditsRemaining)

	m.applicationID = resp.ApplicationID
	m.criteria = crit
	m.startedAt = time.Now().UTC()

	if resp.Status == domain.PhaseFailed {
		snap := m.toPhaseLocked(domain.PhaseFailed, resp.Message)
		m.mu.Unlock()
		m.emit(snap)
		return snap, nil
	}

	snap := m.toPhaseLocked(domain.PhaseSearching, "")
	pollCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	m.emit(snap)
	go m.pollLoop(pollCtx, gen, resp.ApplicationID)
	return snap, nil
}

// pollLoop issues status queries on a fixed interval up to the attempt
// ceiling. Each attempt resolves fully before the next is armed. Transport
// errors are non-fatal misses; auth errors end the workflow immediately.
func (m *Machine) pollLoop(ctx context.Context, gen int, applicationID string) {
	cfg := m.cfg
	for attempt := 1; attempt <= cfg.MaxPollAttempts; attempt++ {
		resp, err := m.remote.PollResults(ctx, applicationID)
		if m.stale(gen) {
			return
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if api.IsAuth(err) {
				m.ledger.Invalidate()
				m.fail(gen, "session expired, please sign in again")
				return
			}
			log.Printf("[workflow] poll attempt %d/%d failed: %v", attempt, cfg.MaxPollAttempts, err)
		} else {
			switch resp.Status {
			case domain.PhaseWaitingSelection:
				m.resultsReady(gen, resp.Jobs)
				return
			case domain.PhaseFailed:
				msg := resp.Message
				if msg == "" {
					msg = "search failed"
				}
				m.fail(gen, msg)
				return
			case domain.PhaseSearching:
				// still running; fall through to the wait
			default:
				log.Printf("[workflow] poll returned unexpected status %s; treating as a miss", resp.Status)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.PollInterval):
		}
	}
	m.fail(gen, "timeout: the search did not finish in time, please try again")
}

func (m *Machine) stale(gen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen != m.gen
}

func (m *Machine) resultsReady(gen int, jobs []domain.JobResult) {
	m.mu.Lock()
	if gen != m.gen || m.phase != domain.PhaseSearching {
		m.mu.Unlock()
		return
	}
	m.results = jobs
	m.selection.Reset()
	snap := m.toPhaseLocked(domain.PhaseWaitingSelection, "")
	m.mu.Unlock()

	m.emit(snap)
}

func (m *Machine) fail(gen int, msg string) {
	m.mu.Lock()
	if gen != m.gen || m.phase.Terminal() {
		m.mu.Unlock()
		return
	}
	snap := m.toPhaseLocked(domain.PhaseFailed, msg)
	m.mu.Unlock()

	m.emit(snap)
}

// Toggle flips a result id in the selection. Only meaningful while results
// are on display.
func (m *Machine) Toggle(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != domain.PhaseWaitingSelection {
		return m.snapshotLocked(), fmt.Errorf("%w: toggle requires WAITING_SELECTION, have %s", ErrInvalidPhase, m.phase)
	}
	if !m.hasResultLocked(id) {
		return m.snapshotLocked(), fmt.Errorf("%w: unknown result id %q", ErrInvalidSelection, id)
	}
	m.selection.Toggle(id)
	return m.snapshotLocked(), nil
}

func (m *Machine) hasResultLocked(id string) bool {
	for _, r := range m.results {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Confirm sends the current selection to the server. Bounds and membership
// are enforced locally first; a rejection returns the machine to
// WAITING_SELECTION with the selection preserved so nothing is lost.
func (m *Machine) Confirm(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if m.phase != domain.PhaseWaitingSelection || m.busy {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, fmt.Errorf("%w: confirm requires WAITING_SELECTION, have %s", ErrInvalidPhase, snap.Phase)
	}
	ids := m.selection.IDs()
	if len(ids) < 1 || len(ids) > MaxSelected {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, fmt.Errorf("%w: need 1..%d selected ids, have %d", ErrInvalidSelection, MaxSelected, len(ids))
	}
	for _, id := range ids {
		if !m.hasResultLocked(id) {
			snap := m.snapshotLocked()
			m.mu.Unlock()
			return snap, fmt.Errorf("%w: id %q is not in the current results", ErrInvalidSelection, id)
		}
	}
	m.busy = true
	gen := m.gen
	applicationID := m.applicationID
	snap := m.toPhaseLocked(domain.PhaseConfirming, "")
	m.mu.Unlock()
	m.emit(snap)

	_, err := m.remote.SelectJobs(ctx, applicationID, ids)

	m.mu.Lock()
	m.busy = false
	if gen != m.gen {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	if err != nil {
		if api.IsAuth(err) {
			m.ledger.Invalidate()
			snap := m.toPhaseLocked(domain.PhaseFailed, "session expired, please sign in again")
			m.mu.Unlock()
			m.emit(snap)
			return snap, err
		}
		// rejected or transient: back to the previous stable state, the
		// selection untouched, the error surfaced
		snap := m.toPhaseLocked(domain.PhaseWaitingSelection, err.Error())
		m.mu.Unlock()
		m.emit(snap)
		return snap, err
	}

	done := m.toPhaseLocked(domain.PhaseCompleted, "")
	m.mu.Unlock()
	m.emit(done)
	return done, nil
}

// Restart abandons the current instance: the pending poll is cancelled, any
// in-flight response becomes stale, and the machine resets to COLLECTING.
func (m *Machine) Restart() Snapshot {
	m.mu.Lock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.applicationID = ""
	m.criteria = domain.SearchCriteria{}
	m.results = nil
	m.selection.Reset()
	m.startedAt = time.Time{}
	snap := m.toPhaseLocked(domain.PhaseCollecting, "")
	m.mu.Unlock()

	m.emit(snap)
	return snap
}
