package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"sync/atomic"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/config"
	"jobxpress-engine/internal/store"
)

type ApplicationsHandler struct {
	DB     *sql.DB
	CfgVal *atomic.Value // stores config.Config
	Remote *api.Client
}

// List serves the local history kept by the engine across restarts.
func (h ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := h.CfgVal.Load().(config.Config).History.Limit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := store.ListApplications(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if rows == nil {
		rows = []store.ApplicationRow{}
	}
	writeJSON(w, rows)
}

// ListRemote asks the backend for the account's applications, which can
// include ones created on another device.
func (h ApplicationsHandler) ListRemote(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	apps, err := h.Remote.ListApplications(r.Context(), limit)
	if err != nil {
		FailFrom(w, r, err)
		return
	}
	if apps == nil {
		apps = []api.ApplicationSummary{}
	}
	writeJSON(w, apps)
}
