package httptransport

import (
	"encoding/json"
	"net/http"

	"casegen/internal/common/errors"
)

type apiError struct {
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{Message: msg})
}

// statusForError maps pipeline error codes onto HTTP statuses for requests
// that fail before any output is streamed.
func statusForError(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeEmptyInput, errors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeRunLocked:
		return http.StatusConflict
	case errors.ErrCodeAuthentication:
		return http.StatusBadGateway
	case errors.ErrCodePollTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
