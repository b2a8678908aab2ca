package httpapi

import (
	"net/http"

	"jobxpress-engine/internal/credits"
)

type CreditsHandler struct {
	Ledger *credits.Ledger
}

// Get serves the cached balance. ?refresh=1 forces a round trip to the
// backend, which the UI uses after sign-in and on the billing screen.
func (h CreditsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		bal, err := h.Ledger.Fetch(r.Context())
		if err != nil {
			FailFrom(w, r, err)
			return
		}
		writeJSON(w, bal)
		return
	}

	bal, ok := h.Ledger.Balance()
	if !ok {
		bal, err := h.Ledger.Fetch(r.Context())
		if err != nil {
			FailFrom(w, r, err)
			return
		}
		writeJSON(w, bal)
		return
	}
	writeJSON(w, bal)
}
