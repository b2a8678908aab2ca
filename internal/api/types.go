package api

import (
	"fmt"
	"time"

	"jobxpress-engine/internal/domain"
)

// Wire types for the remote JobXpress API. Payloads are loosely typed on
// the server side, so everything is narrowed into closed domain types here
// before the rest of the engine sees it.

type StartSearchResponse struct {
	ApplicationID    string       `json:"application_id"`
	Status           domain.Phase `json:"status"`
	Message          string       `json:"message"`
	CreditsRemaining int          `json:"credits_remaining"`
}

type PollResponse struct {
	ApplicationID string             `json:"application_id"`
	Status        domain.Phase       `json:"status"`
	TotalFound    int                `json:"total_found"`
	Jobs          []domain.JobResult `json:"jobs"`
	Message       string             `json:"message"`
}

type SelectResponse struct {
	Status        domain.Phase `json:"status"`
	Message       string       `json:"message"`
	SelectedCount int          `json:"selected_count"`
}

type NotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

type AcceptResponse struct {
	SessionID         string `json:"session_id"`
	Message           string `json:"message"`
	RemainingMessages int    `json:"remaining_messages"`
	WelcomeMessage    string `json:"welcome_message,omitempty"`
	AlreadyExists     bool   `json:"already_exists,omitempty"`
}

type SessionResponse struct {
	SessionID         string               `json:"session_id"`
	ApplicationID     string               `json:"application_id"`
	Messages          []domain.ChatMessage `json:"messages"`
	RemainingMessages int                  `json:"remaining_messages"`
	Status            string               `json:"status"`
}

type ChatSendResponse struct {
	Response          string `json:"response"`
	RemainingMessages int    `json:"remaining_messages"`
	SessionID         string `json:"session_id"`
}

type ApplicationSummary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	JobTitle  string `json:"job_title"`
	Location  string `json:"location"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type applicationsPayload struct {
	Count        int                  `json:"count"`
	Applications []ApplicationSummary `json:"applications"`
}

// creditsPayload mirrors the billing endpoint shape.
type creditsPayload struct {
	Credits     int    `json:"credits"`
	Plan        string `json:"plan"`
	MaxCredits  int    `json:"max_credits"`
	NextResetAt string `json:"next_reset_at"`
}

func (p creditsPayload) toDomain() (domain.CreditBalance, error) {
	b := domain.CreditBalance{
		Credits:    p.Credits,
		MaxCredits: p.MaxCredits,
		Plan:       domain.Plan(p.Plan),
	}
	switch b.Plan {
	case domain.PlanFree, domain.PlanStarter, domain.PlanPro:
	case "":
		b.Plan = domain.PlanFree
	default:
		return b, fmt.Errorf("unknown plan %q", p.Plan)
	}
	if b.Credits < 0 {
		return b, fmt.Errorf("negative credit count %d", b.Credits)
	}
	if b.MaxCredits <= 0 {
		// older backends omit max_credits; fall back to the plan ceiling
		b.MaxCredits = planCeiling(b.Plan)
	}
	if p.NextResetAt != "" {
		if t, err := time.Parse(time.RFC3339, p.NextResetAt); err == nil {
			b.NextResetAt = &t
		}
	}
	return b, nil
}

func planCeiling(p domain.Plan) int {
	switch p {
	case domain.PlanStarter:
		return 100
	case domain.PlanPro:
		return 300
	default:
		return 5
	}
}

func checkPhase(p domain.Phase) error {
	if !p.Known() {
		return transientErr(fmt.Errorf("unknown workflow status %q in response", string(p)))
	}
	return nil
}
