package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slotswap/slotswap-go/internal/service"
)

// Stable machine-readable error codes. Clients branch on these, not on the
// human-readable message.
const (
	codeValidation        = "VALIDATION"
	codeNotFound          = "NOT_FOUND"
	codeNotAuthorized     = "NOT_AUTHORIZED"
	codeNotSwappable      = "NOT_SWAPPABLE"
	codeSelfSwap          = "SELF_SWAP"
	codeInvalidTransition = "INVALID_TRANSITION"
	codeConflict          = "CONFLICT"
	codeAlreadyResolved   = "ALREADY_RESOLVED"
	codeTransient         = "TRANSIENT"
	codeInternal          = "INTERNAL"
)

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(code, msg string) apiError {
	return apiError{Error: msg, Code: code}
}

// writeServiceError translates a service error into an HTTP status and a
// stable error code. Unknown errors surface as a generic internal failure.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTitleTooLong),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrNameRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse(codeValidation, err.Error()))
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrSwapNotFound),
		errors.Is(err, service.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(codeNotFound, err.Error()))
	case errors.Is(err, service.ErrNotAuthorized):
		writeJSON(w, http.StatusForbidden, errorResponse(codeNotAuthorized, err.Error()))
	case errors.Is(err, service.ErrNotSwappable):
		writeJSON(w, http.StatusBadRequest, errorResponse(codeNotSwappable, err.Error()))
	case errors.Is(err, service.ErrSelfSwap):
		writeJSON(w, http.StatusBadRequest, errorResponse(codeSelfSwap, err.Error()))
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrPastEvent):
		writeJSON(w, http.StatusBadRequest, errorResponse(codeInvalidTransition, err.Error()))
	case errors.Is(err, service.ErrEventOverlap),
		errors.Is(err, service.ErrDuplicateSwap),
		errors.Is(err, service.ErrEventLocked),
		errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorResponse(codeConflict, err.Error()))
	case errors.Is(err, service.ErrAlreadyResolved):
		writeJSON(w, http.StatusConflict, errorResponse(codeAlreadyResolved, err.Error()))
	case errors.Is(err, service.ErrTransient):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(codeTransient, err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse(codeInternal, "internal server error"))
	}
}

// decodeBody reads a size-capped JSON request body into v, writing the error
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err.Error() == "http: request body too large" {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(codeValidation, "request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse(codeValidation, "invalid request body"))
		return false
	}
	return true
}
