package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"sttd/internal/storage"
	"sttd/internal/transcribe"
	"sttd/internal/whisper"
	"sttd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps service errors to HTTP status codes. Anything unknown,
// including pool load failures, is a 500.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case transcribe.IsValidation(err), errors.Is(err, storage.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case transcribe.IsTooBusy(err):
		return http.StatusTooManyRequests
	case whisper.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}
