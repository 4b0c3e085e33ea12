package whisper

import (
	"errors"
	"fmt"
)

// dependencyUnavailableError signals that the whisper-server binary cannot
// be found or started.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err, or any error it wraps,
// indicates a missing runtime.
func IsDependencyUnavailable(err error) bool {
	var d dependencyUnavailableError
	return errors.As(err, &d)
}

// ErrNoAccelerator is returned when a server started for an accelerator
// came up on the CPU backend. The pool then retries on the CPU.
var ErrNoAccelerator = errors.New("whisper-server has no usable accelerator")

// ServerError is a non-2xx reply from whisper-server.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("whisper-server http %d: %s", e.Status, e.Body)
}
