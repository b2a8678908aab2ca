// Package notify caches the user's notifications and performs the
// credit-gated acceptance of a coaching offer, which unlocks the chat
// session bound to an application.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/credits"
	"jobxpress-engine/internal/domain"
)

var (
	// ErrNotOffer: only coaching-offer notifications can be accepted.
	ErrNotOffer = errors.New("notification is not a coaching offer")
	// ErrAlreadyRead: an already-read offer is no longer actionable.
	ErrAlreadyRead = errors.New("notification was already read")
	// ErrUnknownNotification: the id is not in the cached list.
	ErrUnknownNotification = errors.New("unknown notification")
)

// NotifyAPI is the slice of the backend client the center needs.
type NotifyAPI interface {
	Notifications(ctx context.Context, unreadOnly bool) (api.NotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, id string) error
	AcceptNotification(ctx context.Context, id string) (api.AcceptResponse, error)
}

type Center struct {
	remote NotifyAPI
	ledger *credits.Ledger

	// OnNew observes notifications seen for the first time in a refresh.
	OnNew func(domain.Notification)

	mu     sync.Mutex
	list   []domain.Notification
	unread int
	seen   map[string]bool
}

func NewCenter(remote NotifyAPI, ledger *credits.Ledger) *Center {
	return &Center{remote: remote, ledger: ledger, seen: make(map[string]bool)}
}

// Refresh replaces the cached list from the server and fires OnNew for
// unread notifications not seen before.
func (c *Center) Refresh(ctx context.Context) error {
	resp, err := c.remote.Notifications(ctx, false)
	if err != nil {
		return fmt.Errorf("refresh notifications: %w", err)
	}

	var fresh []domain.Notification
	c.mu.Lock()
	c.list = resp.Notifications
	c.unread = resp.UnreadCount
	for _, n := range resp.Notifications {
		if !c.seen[n.ID] {
			c.seen[n.ID] = true
			if !n.Read {
				fresh = append(fresh, n)
			}
		}
	}
	c.mu.Unlock()

	if c.OnNew != nil {
		for _, n := range fresh {
			c.OnNew(n)
		}
	}
	return nil
}

// List returns the cached notifications and the unread count.
func (c *Center) List() ([]domain.Notification, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification(nil), c.list...), c.unread
}

func (c *Center) find(id string) (domain.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.list {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Notification{}, false
}

// MarkRead marks a notification read. Idempotent and independent of
// acceptance: a notification can be read without ever being accepted.
func (c *Center) MarkRead(ctx context.Context, id string) error {
	if err := c.remote.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	c.setRead(id)
	return nil
}

func (c *Center) setRead(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.list {
		if c.list[i].ID == id && !c.list[i].Read {
			c.list[i].Read = true
			if c.unread > 0 {
				c.unread--
			}
		}
	}
}

// Accept takes an unread coaching offer, spends one credit optimistically
// and asks the server to unlock the chat session for the offer's
// application. On any failure the notification stays unread and actionable
// and the optimistic debit is rolled back with its own snapshot.
func (c *Center) Accept(ctx context.Context, id string) (api.AcceptResponse, error) {
	n, ok := c.find(id)
	if !ok {
		return api.AcceptResponse{}, ErrUnknownNotification
	}
	if n.Type != domain.NotificationOfferCoaching {
		return api.AcceptResponse{}, ErrNotOffer
	}
	if n.Read {
		return api.AcceptResponse{}, ErrAlreadyRead
	}

	if ok, bal := c.ledger.Precheck(credits.UnlockCost); !ok {
		return api.AcceptResponse{}, fmt.Errorf("%w: %d available, %d needed",
			credits.ErrInsufficient, bal.Credits, credits.UnlockCost)
	}

	prev := c.ledger.ApplyOptimistic(credits.UnlockCost)
	resp, err := c.remote.AcceptNotification(ctx, id)
	if err != nil {
		c.ledger.Rollback(prev)
		if api.IsAuth(err) {
			c.ledger.Invalidate()
		}
		return api.AcceptResponse{}, fmt.Errorf("accept offer: %w", err)
	}
	if resp.AlreadyExists {
		// server found an existing session and charged nothing
		c.ledger.Rollback(prev)
	}

	// acceptance implies read on the server side
	c.setRead(id)
	return resp, nil
}
