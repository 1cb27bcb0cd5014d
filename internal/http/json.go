package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/peoplehub/portal-api/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps an application error to its HTTP status and writes
// the JSON error body. The message is the error's user message, so
// internal detail never reaches the client.
func WriteAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errCode := "internal_error"

	switch {
	case apperrors.IsValidation(err):
		status, errCode = http.StatusBadRequest, "validation_failed"
	case apperrors.IsNotFound(err):
		status, errCode = http.StatusNotFound, "not_found"
	case apperrors.IsConflict(err):
		status, errCode = http.StatusConflict, "conflict"
	case apperrors.IsUnauthorized(err):
		status, errCode = http.StatusUnauthorized, "unauthorized"
	case apperrors.IsExpired(err):
		status, errCode = http.StatusGone, "expired"
	case apperrors.IsConsumed(err):
		status, errCode = http.StatusGone, "already_used"
	case apperrors.IsRateLimited(err):
		status, errCode = http.StatusTooManyRequests, "rate_limited"
	}

	WriteJSON(w, status, map[string]string{
		"error":   errCode,
		"message": apperrors.UserMessage(err),
	})
}
