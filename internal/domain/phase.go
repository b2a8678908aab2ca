package domain

// Phase is the workflow state of one application instance.
//
// Valid transitions:
//
//	COLLECTING -> SEARCHING -> WAITING_SELECTION -> CONFIRMING -> COMPLETED
//	SEARCHING / CONFIRMING  -> FAILED
//	any -> COLLECTING (restart, new instance)
type Phase string

const (
	PhaseCollecting       Phase = "COLLECTING"
	PhaseSearching        Phase = "SEARCHING"
	PhaseWaitingSelection Phase = "WAITING_SELECTION"
	PhaseConfirming       Phase = "CONFIRMING"
	PhaseCompleted        Phase = "COMPLETED"
	PhaseFailed           Phase = "FAILED"
)

// Terminal reports whether the phase ends the workflow instance.
// A new instance is required to retry.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Known reports whether p is one of the closed set of phases. Server payloads
// are narrowed through this before they may touch workflow state.
func (p Phase) Known() bool {
	switch p {
	case PhaseCollecting, PhaseSearching, PhaseWaitingSelection,
		PhaseConfirming, PhaseCompleted, PhaseFailed:
		return true
	}
	return false
}
