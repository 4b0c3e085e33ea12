package pool

import (
	"errors"
	"fmt"
	"strings"

	"sttd/internal/device"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("pool: closed")

// ConstructionError records one failed load attempt on one device.
type ConstructionError struct {
	Model  string
	Device device.ID
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("load %s on %s: %v", e.Model, e.Device, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// LoadError is returned by Acquire when no device could load the model.
// Attempts holds one entry per device tried, in order.
type LoadError struct {
	Model    string
	Attempts []*ConstructionError
}

func (e *LoadError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("model %s could not be loaded: %s", e.Model, strings.Join(parts, "; "))
}

func (e *LoadError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a)
	}
	return out
}

// IsLoadError reports whether err carries a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
