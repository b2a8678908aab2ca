package httpapi

import (
	"encoding/json"
	"net/http"
)

type SecretsHandler struct {
	SetToken func(token string) error
}

type setTokenReq struct {
	Token string `json:"token"`
}

func (h SecretsHandler) SetAPIToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.SetToken(req.Token); err != nil {
		http.Error(w, "failed to store token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
