package domain

import "time"

type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanStarter Plan = "STARTER"
	PlanPro     Plan = "PRO"
)

// CreditBalance is the user's consumable credit state. It is only ever
// written from a server response or through the ledger's optimistic
// apply/rollback pair; nothing increments it locally.
type CreditBalance struct {
	Credits     int        `json:"credits"`
	MaxCredits  int        `json:"max_credits"`
	Plan        Plan       `json:"plan"`
	NextResetAt *time.Time `json:"next_reset_at,omitempty"`
}
