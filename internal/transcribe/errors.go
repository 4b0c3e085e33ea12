package transcribe

import (
	"errors"
	"fmt"
	"strings"
)

// TranscriptionError wraps any failure of Transcribe. Op names the failed
// step: "language", "audio", "admit", "acquire" or "infer".
type TranscriptionError struct {
	Op  string
	Err error
}

func (e *TranscriptionError) Error() string { return fmt.Sprintf("transcribe %s: %v", e.Op, e.Err) }

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ValidationError reports an input rejected before any model is acquired.
// Allowed, when set, lists the accepted values.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s: %q (one of: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// LanguageError is the ValidationError for an unaccepted language label.
func LanguageError(label string) *ValidationError {
	return &ValidationError{Field: "language", Value: label, Allowed: Labels()}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrTooBusy is returned when no transcription slot frees up within the
// configured wait.
var ErrTooBusy = errors.New("too busy")

// IsTooBusy reports whether err indicates backpressure.
func IsTooBusy(err error) bool { return errors.Is(err, ErrTooBusy) }
