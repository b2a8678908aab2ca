package httpapi

import (
	"encoding/json"
	"net/http"

	"jobxpress-engine/internal/chat"
)

type ChatHandler struct {
	Chat *chat.Manager
}

func (h ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Chat.Snapshot())
}

type chatLoadRequest struct {
	ApplicationID string `json:"application_id"`
}

func (h ChatHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req chatLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if req.ApplicationID == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "application_id is required")
		return
	}

	snap, err := h.Chat.Load(r.Context(), req.ApplicationID)
	if err != nil {
		FailFrom(w, r, err)
		return
	}
	writeJSON(w, snap)
}

type chatSendRequest struct {
	Text string `json:"text"`
}

func (h ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}

	snap, err := h.Chat.Send(r.Context(), req.Text)
	if err != nil {
		FailFrom(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (h ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.Chat.Reset()
	w.WriteHeader(http.StatusNoContent)
}
