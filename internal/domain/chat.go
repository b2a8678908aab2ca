package domain

import "time"

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatStatus string

const (
	ChatActive      ChatStatus = "ACTIVE"
	ChatExhausted   ChatStatus = "EXHAUSTED"
	ChatUnavailable ChatStatus = "UNAVAILABLE"
)

type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
