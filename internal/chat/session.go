// Package chat manages the coaching chat session unlocked for a completed
// application: a bounded, ordered message log with a server-owned quota.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/domain"
)

var (
	// ErrNoSession: no session is loaded (or it was torn down mid-send).
	ErrNoSession = errors.New("no chat session loaded")
	// ErrNotUnlocked: the application has no session yet; the coaching
	// offer must be accepted first.
	ErrNotUnlocked = errors.New("chat session not unlocked for this application")
	// ErrExhausted: the message quota is spent. Local refusal, no network.
	ErrExhausted = errors.New("chat message quota exhausted")
	// ErrEmptyMessage: the text trims to nothing. Local refusal.
	ErrEmptyMessage = errors.New("message is empty")
)

// ChatAPI is the slice of the backend client the manager needs.
type ChatAPI interface {
	ChatSession(ctx context.Context, applicationID string) (api.SessionResponse, error)
	SendChat(ctx context.Context, applicationID, text string) (api.ChatSendResponse, error)
}

// Snapshot is the UI-facing view of the session.
type Snapshot struct {
	SessionID         string               `json:"session_id,omitempty"`
	ApplicationID     string               `json:"application_id,omitempty"`
	Messages          []domain.ChatMessage `json:"messages"`
	RemainingMessages int                  `json:"remaining_messages"`
	Status            domain.ChatStatus    `json:"status"`
}

// Manager holds at most one active session. Sends append the user message
// optimistically and reconcile against the server's reply: the server owns
// the remaining-message counter, the log is append-only, and a rejected
// send removes exactly its own optimistic entry.
type Manager struct {
	remote ChatAPI

	// OnExhausted fires once when the quota reaches zero.
	OnExhausted func(applicationID string)

	mu            sync.Mutex
	gen           int // bumped on Reset; in-flight sends become stale
	loaded        bool
	sessionID     string
	applicationID string
	messages      []domain.ChatMessage
	remaining     int
	status        domain.ChatStatus
}

func NewManager(remote ChatAPI) *Manager {
	return &Manager{remote: remote, status: domain.ChatUnavailable}
}

// Load fetches the session bound to applicationID and makes it current.
// A 404 means the offer was never accepted; the previous session (if any)
// stays untouched in that case.
func (m *Manager) Load(ctx context.Context, applicationID string) (Snapshot, error) {
	resp, err := m.remote.ChatSession(ctx, applicationID)
	if err != nil {
		if api.IsNotFound(err) {
			return Snapshot{Status: domain.ChatUnavailable}, ErrNotUnlocked
		}
		return Snapshot{Status: domain.ChatUnavailable}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.loaded = true
	m.sessionID = resp.SessionID
	m.applicationID = resp.ApplicationID
	m.messages = append([]domain.ChatMessage(nil), resp.Messages...)
	m.remaining = resp.RemainingMessages
	m.status = statusFrom(resp.Status, resp.RemainingMessages)
	return m.snapshotLocked(), nil
}

func statusFrom(remote string, remaining int) domain.ChatStatus {
	if remaining <= 0 {
		return domain.ChatExhausted
	}
	switch strings.ToLower(remote) {
	case "active":
		return domain.ChatActive
	case "completed", "exhausted":
		return domain.ChatExhausted
	default:
		return domain.ChatUnavailable
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:         m.sessionID,
		ApplicationID:     m.applicationID,
		Messages:          append([]domain.ChatMessage(nil), m.messages...),
		RemainingMessages: m.remaining,
		Status:            m.status,
	}
}

// Send submits one user message. Refusals for empty text or an exhausted
// quota are resolved locally without a network call. The user entry is
// appended immediately; on failure it is removed and the counter is left
// alone, on success the assistant reply is appended and the counter takes
// whatever the server reports.
func (m *Manager) Send(ctx context.Context, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)

	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return m.Snapshot(), ErrNoSession
	}
	if text == "" {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrEmptyMessage
	}
	if m.status != domain.ChatActive || m.remaining <= 0 {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrExhausted
	}

	userMsg := domain.ChatMessage{
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
	m.messages = append(m.messages, userMsg)
	optimisticIdx := len(m.messages) - 1
	gen := m.gen
	applicationID := m.applicationID
	m.mu.Unlock()

	resp, err := m.remote.SendChat(ctx, applicationID, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		// session torn down while the send was in flight; its optimistic
		// message is already gone and must not leak into the new session
		return m.snapshotLocked(), ErrNoSession
	}
	if err != nil {
		m.removeAtLocked(optimisticIdx)
		return m.snapshotLocked(), fmt.Errorf("send message: %w", err)
	}

	m.messages = append(m.messages, domain.ChatMessage{
		Role:      domain.RoleAssistant,
		Content:   resp.Response,
		Timestamp: time.Now().UTC(),
	})
	m.remaining = resp.RemainingMessages
	if m.remaining <= 0 {
		m.remaining = 0
		m.status = domain.ChatExhausted
		if m.OnExhausted != nil {
			go m.OnExhausted(applicationID)
		}
	}
	return m.snapshotLocked(), nil
}

func (m *Manager) removeAtLocked(idx int) {
	if idx < 0 || idx >= len(m.messages) {
		return
	}
	m.messages = append(m.messages[:idx], m.messages[idx+1:]...)
}

// Reset tears the current session down. An in-flight send resolves as
// stale and is discarded.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.loaded = false
	m.sessionID = ""
	m.applicationID = ""
	m.messages = nil
	m.remaining = 0
	m.status = domain.ChatUnavailable
}
