package api

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure. Handlers and the workflow only ever
// branch on the kind, never on raw HTTP status codes.
type Kind string

const (
	// KindAuth: missing or expired credential. Always fatal to the current
	// workflow or session; never retried.
	KindAuth Kind = "auth"
	// KindInsufficientCredits: the server refused a paid action (402).
	KindInsufficientCredits Kind = "insufficient_credits"
	// KindNotFound: the resource does not exist (e.g. chat session not yet
	// unlocked).
	KindNotFound Kind = "not_found"
	// KindRejected: a business-rule rejection; the caller should return to
	// its previous stable state, not abort.
	KindRejected Kind = "rejected"
	// KindTransient: transport failures and 5xx responses. Safe to retry.
	KindTransient Kind = "transient"
)

type Error struct {
	Kind    Kind
	Status  int // HTTP status, 0 for transport failures
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("remote %s: %s", e.Kind, e.Message)
}

func kindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsAuth(err error) bool                { return kindOf(err) == KindAuth }
func IsInsufficientCredits(err error) bool { return kindOf(err) == KindInsufficientCredits }
func IsNotFound(err error) bool            { return kindOf(err) == KindNotFound }
func IsRejected(err error) bool            { return kindOf(err) == KindRejected }
func IsTransient(err error) bool           { return kindOf(err) == KindTransient }

func errFromStatus(status int, detail string) *Error {
	var kind Kind
	switch {
	case status == 401 || status == 403:
		kind = KindAuth
	case status == 402:
		kind = KindInsufficientCredits
	case status == 404:
		kind = KindNotFound
	case status >= 500:
		kind = KindTransient
	default:
		kind = KindRejected
	}
	if detail == "" {
		detail = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{Kind: kind, Status: status, Message: detail}
}

func transientErr(err error) *Error {
	return &Error{Kind: KindTransient, Message: err.Error()}
}

func authErr(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}
