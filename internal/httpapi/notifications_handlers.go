package httpapi

import (
	"net/http"
	"strings"

	"jobxpress-engine/internal/domain"
	"jobxpress-engine/internal/notify"
)

type NotificationsHandler struct {
	Center *notify.Center
}

type notificationsEnvelope struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

func (h NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, unread := h.Center.List()
	if list == nil {
		list = []domain.Notification{}
	}
	writeJSON(w, notificationsEnvelope{Notifications: list, UnreadCount: unread})
}

func (h NotificationsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Center.Refresh(r.Context()); err != nil {
		FailFrom(w, r, err)
		return
	}
	h.List(w, r)
}

// ActByPath routes /notifications/{id}/read and /notifications/{id}/accept.
func (h NotificationsHandler) ActByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/notifications/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		WriteError(w, r, http.StatusNotFound, "not_found", "expected /notifications/{id}/read or /notifications/{id}/accept")
		return
	}

	switch action {
	case "read":
		if err := h.Center.MarkRead(r.Context(), id); err != nil {
			FailFrom(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "accept":
		resp, err := h.Center.Accept(r.Context(), id)
		if err != nil {
			FailFrom(w, r, err)
			return
		}
		writeJSON(w, resp)
	default:
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown notification action "+action)
	}
}
