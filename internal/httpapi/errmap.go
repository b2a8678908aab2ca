package httpapi

import (
	"errors"
	"net/http"

	"jobxpress-engine/internal/api"
	"jobxpress-engine/internal/chat"
	"jobxpress-engine/internal/credits"
	"jobxpress-engine/internal/domain"
	"jobxpress-engine/internal/notify"
	"jobxpress-engine/internal/workflow"
)

// FailFrom translates a service error into the API error envelope. The UI
// keys its dialogs off the code field, so the mapping is deliberately flat.
func FailFrom(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, credits.ErrInsufficient):
		WriteError(w, r, http.StatusPaymentRequired, "insufficient_credits", err.Error())
	case errors.Is(err, domain.ErrInvalidCriteria):
		WriteError(w, r, http.StatusBadRequest, "invalid_criteria", err.Error())
	case errors.Is(err, workflow.ErrInvalidSelection):
		WriteError(w, r, http.StatusBadRequest, "invalid_selection", err.Error())
	case errors.Is(err, workflow.ErrInvalidPhase):
		WriteError(w, r, http.StatusConflict, "invalid_phase", err.Error())
	case errors.Is(err, chat.ErrEmptyMessage):
		WriteError(w, r, http.StatusBadRequest, "empty_message", err.Error())
	case errors.Is(err, chat.ErrExhausted):
		WriteError(w, r, http.StatusConflict, "chat_exhausted", err.Error())
	case errors.Is(err, chat.ErrNoSession), errors.Is(err, chat.ErrNotUnlocked):
		WriteError(w, r, http.StatusNotFound, "chat_unavailable", err.Error())
	case errors.Is(err, notify.ErrUnknownNotification):
		WriteError(w, r, http.StatusNotFound, "unknown_notification", err.Error())
	case errors.Is(err, notify.ErrNotOffer), errors.Is(err, notify.ErrAlreadyRead):
		WriteError(w, r, http.StatusConflict, "offer_not_actionable", err.Error())
	case api.IsAuth(err):
		WriteError(w, r, http.StatusUnauthorized, "auth_required", err.Error())
	case api.IsInsufficientCredits(err):
		WriteError(w, r, http.StatusPaymentRequired, "insufficient_credits", err.Error())
	case api.IsNotFound(err):
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
	case api.IsRejected(err):
		WriteError(w, r, http.StatusUnprocessableEntity, "rejected", err.Error())
	case api.IsTransient(err):
		WriteError(w, r, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
