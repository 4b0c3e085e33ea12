package pool

import (
	"context"
	"time"

	"sttd/internal/device"
)

// Key identifies a pool entry. Device is the device the model was actually
// loaded on, which differs from the selected device after a fallback.
type Key struct {
	Model  string
	Device device.ID
}

func (k Key) String() string { return k.Model + "@" + string(k.Device) }

// Options are the inference parameters passed to a loaded model.
type Options struct {
	Language string
	Task     string
}

// Result is the inference output. Only Text is relied upon by callers.
type Result struct {
	Text     string
	Language string
	Duration time.Duration
}

// Model is a loaded, shareable model instance. Transcribe may be called
// concurrently; Close is called by the pool only, on eviction or shutdown.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error)
	Close() error
}

// Loader constructs a model for a device. It is the only slow step of Acquire.
type Loader interface {
	Load(ctx context.Context, modelID string, dev device.ID) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, modelID string, dev device.ID) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, modelID string, dev device.ID) (Model, error) {
	return f(ctx, modelID, dev)
}

// DeviceSelector resolves the preferred device for a new load.
type DeviceSelector interface {
	Select() device.ID
}

// EntryStatus is a read-only view of one entry.
type EntryStatus struct {
	Model    string
	Device   device.ID
	LastUsed time.Time
	LoadedAt time.Time
	Hits     uint64
}

type entry struct {
	model    Model
	lastUsed time.Time
	loadedAt time.Time
	hits     uint64
}
