package httpapi

import (
	"encoding/json"
	"net/http"

	"jobxpress-engine/internal/events"
)

type HealthHandler struct {
	Hub *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":          true,
		"subscribers": h.Hub.Subscribers(),
	})
}
