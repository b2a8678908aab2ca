package httpapi

import (
	"encoding/json"
	"net/http"

	"jobxpress-engine/internal/domain"
	"jobxpress-engine/internal/workflow"
)

type WorkflowHandler struct {
	Machine *workflow.Machine
}

func (h WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Machine.Snapshot())
}

func (h WorkflowHandler) Start(w http.ResponseWriter, r *http.Request) {
	var crit domain.SearchCriteria
	if err := json.NewDecoder(r.Body).Decode(&crit); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}

	snap, err := h.Machine.Start(r.Context(), crit)
	if err != nil {
		FailFrom(w, r, err)
		return
	}
	writeJSON(w, snap)
}

type toggleRequest struct {
	JobID string `json:"job_id"`
}

func (h WorkflowHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if req.JobID == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_selection", "job_id is required")
		return
	}

	snap, err := h.Machine.Toggle(req.JobID)
	if err != nil {
		FailFrom(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (h WorkflowHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Machine.Confirm(r.Context())
	if err != nil {
		FailFrom(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (h WorkflowHandler) Restart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Machine.Restart())
}
