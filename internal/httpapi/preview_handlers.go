package httpapi

import (
	"net/http"

	"jobxpress-engine/internal/preview"
)

type PreviewHandler struct {
	Fetcher *preview.Fetcher
}

// Get fetches a job posting page and returns its extracted summary, so the
// UI can show a preview card without opening a browser.
func (h PreviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("u")
	if raw == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "query parameter u is required")
		return
	}

	page, err := h.Fetcher.Fetch(r.Context(), raw)
	if err != nil {
		WriteError(w, r, http.StatusBadGateway, "preview_failed", err.Error())
		return
	}
	writeJSON(w, page)
}
