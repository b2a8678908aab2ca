package domain

// NotificationOfferCoaching is the only notification type that can unlock
// a coaching chat session.
const NotificationOfferCoaching = "offer_jobyjoba"

type Notification struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	Message       string `json:"message,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
	ActionURL     string `json:"action_url,omitempty"`
	ActionLabel   string `json:"action_label,omitempty"`
	Read          bool   `json:"read"`
	CreatedAt     string `json:"created_at"`
}
