package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sttd/internal/device"
)

const defaultMaxModels = 1

// Config holds the Pool collaborators. Loader and Selector are required.
type Config struct {
	MaxModels int
	Loader    Loader
	Selector  DeviceSelector
	Publisher EventPublisher
	Logger    *zerolog.Logger
	// Now overrides the clock; tests use it to force lastUsed ties.
	Now func() time.Time
}

// Pool is a capacity-bounded cache of loaded models with LRU eviction.
type Pool struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	maxModels int
	closed    bool

	loader    Loader
	selector  DeviceSelector
	publisher EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// New constructs a Pool. MaxModels <= 0 means one entry.
func New(cfg Config) *Pool {
	p := &Pool{
		entries:   make(map[Key]*entry),
		maxModels: cfg.MaxModels,
		loader:    cfg.Loader,
		selector:  cfg.Selector,
		publisher: cfg.Publisher,
		now:       cfg.Now,
	}
	if p.maxModels <= 0 {
		p.maxModels = defaultMaxModels
	}
	if p.selector == nil {
		p.selector = device.NewSelector(device.PolicyAuto, nil)
	}
	if p.publisher == nil {
		p.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("component", "pool").Logger()
	} else {
		p.log = zerolog.Nop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Acquire returns the model for modelID on the currently selected device,
// loading it on a miss. A failed accelerator load is retried once on the CPU.
// The lock is held for the whole sequence, so a given key is loaded at most
// once even under concurrent callers.
func (p *Pool) Acquire(ctx context.Context, modelID string) (Model, Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, Key{}, ErrClosed
	}

	key := Key{Model: modelID, Device: p.selector.Select()}
	if m, ok := p.hitLocked(key); ok {
		return m, key, nil
	}
	lookupsTotal.WithLabelValues("miss").Inc()

	m, err := p.construct(ctx, key)
	if err == nil {
		p.insertLocked(key, m)
		return m, key, nil
	}
	attempts := []*ConstructionError{{Model: modelID, Device: key.Device, Err: err}}

	fb, ok := device.Fallback(key.Device)
	if !ok || ctx.Err() != nil {
		return nil, Key{}, &LoadError{Model: modelID, Attempts: attempts}
	}
	fallbacksTotal.Inc()
	p.log.Warn().Str("model", modelID).Str("from", string(key.Device)).Str("to", string(fb)).Err(err).Msg("load failed, falling back")
	p.publisher.Publish(Event{Name: EventFallback, Model: modelID, Device: fb, Fields: map[string]any{"from": string(key.Device), "error": err.Error()}})

	key = Key{Model: modelID, Device: fb}
	if m, ok := p.hitLocked(key); ok {
		return m, key, nil
	}
	m, err = p.construct(ctx, key)
	if err != nil {
		attempts = append(attempts, &ConstructionError{Model: modelID, Device: key.Device, Err: err})
		return nil, Key{}, &LoadError{Model: modelID, Attempts: attempts}
	}
	p.insertLocked(key, m)
	return m, key, nil
}

func (p *Pool) hitLocked(key Key) (Model, bool) {
	e, ok := p.entries[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = p.now()
	e.hits++
	lookupsTotal.WithLabelValues("hit").Inc()
	p.publisher.Publish(Event{Name: EventHit, Model: key.Model, Device: key.Device})
	return e.model, true
}

// construct runs one load attempt. Called with p.mu held.
func (p *Pool) construct(ctx context.Context, key Key) (Model, error) {
	op := uuid.NewString()
	start := time.Now()
	dev := string(key.Device)
	p.log.Info().Str("op", op).Str("model", key.Model).Str("device", dev).Msg("loading model")
	p.publisher.Publish(Event{Name: EventLoadStart, Model: key.Model, Device: key.Device, OpID: op, Fields: map[string]any{}})

	m, err := p.loader.Load(ctx, key.Model, key.Device)
	if err == nil && m == nil {
		err = errors.New("loader returned no model")
	}
	dur := time.Since(start)
	loadDuration.WithLabelValues(dev).Observe(dur.Seconds())
	if err != nil {
		loadsTotal.WithLabelValues(dev, "error").Inc()
		p.log.Error().Str("op", op).Str("model", key.Model).Str("device", dev).Dur("dur", dur).Err(err).Msg("model load failed")
		p.publisher.Publish(Event{Name: EventLoadFailed, Model: key.Model, Device: key.Device, OpID: op, Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}
	loadsTotal.WithLabelValues(dev, "ok").Inc()
	p.log.Info().Str("op", op).Str("model", key.Model).Str("device", dev).Dur("dur", dur).Msg("model loaded")
	p.publisher.Publish(Event{Name: EventLoadReady, Model: key.Model, Device: key.Device, OpID: op, Fields: map[string]any{"dur_ms": dur.Milliseconds()}})
	return m, nil
}

// insertLocked evicts down to capacity-1 and stores m under key.
func (p *Pool) insertLocked(key Key, m Model) {
	for len(p.entries) >= p.maxModels {
		if !p.evictLRULocked() {
			break
		}
	}
	now := p.now()
	p.entries[key] = &entry{model: m, lastUsed: now, loadedAt: now}
	entriesGauge.Set(float64(len(p.entries)))
}

// lruKeyLocked picks the entry with the oldest lastUsed. Ties go to the
// lexicographically smallest key string.
func (p *Pool) lruKeyLocked() (Key, bool) {
	var (
		victim Key
		oldest time.Time
		found  bool
	)
	for k, e := range p.entries {
		switch {
		case !found, e.lastUsed.Before(oldest):
		case e.lastUsed.Equal(oldest) && k.String() < victim.String():
		default:
			continue
		}
		victim, oldest, found = k, e.lastUsed, true
	}
	return victim, found
}

func (p *Pool) evictLRULocked() bool {
	k, ok := p.lruKeyLocked()
	if !ok {
		return false
	}
	p.removeLocked(k, "lru")
	evictionsTotal.Inc()
	return true
}

func (p *Pool) removeLocked(k Key, reason string) error {
	e := p.entries[k]
	delete(p.entries, k)
	entriesGauge.Set(float64(len(p.entries)))
	p.log.Info().Str("model", k.Model).Str("device", string(k.Device)).Str("reason", reason).Msg("evicting model")
	p.publisher.Publish(Event{Name: EventEvict, Model: k.Model, Device: k.Device, Fields: map[string]any{"reason": reason}})
	if e == nil || e.model == nil {
		return nil
	}
	if err := e.model.Close(); err != nil {
		p.log.Warn().Str("model", k.Model).Str("device", string(k.Device)).Err(err).Msg("close evicted model")
		return fmt.Errorf("close %s: %w", k, err)
	}
	return nil
}

// Evict removes and closes the entry for k. It reports whether k was present.
func (p *Pool) Evict(k Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[k]; !ok {
		return false
	}
	_ = p.removeLocked(k, "explicit")
	return true
}

// Len returns the number of loaded entries.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Capacity returns the configured maximum entry count.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxModels
}

// SetCapacity changes the maximum entry count, evicting LRU entries when the
// pool holds more than n. n <= 0 is treated as one.
func (p *Pool) SetCapacity(n int) {
	if n <= 0 {
		n = defaultMaxModels
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if n == p.maxModels {
		return
	}
	p.log.Info().Int("from", p.maxModels).Int("to", n).Msg("pool capacity changed")
	p.maxModels = n
	for len(p.entries) > p.maxModels {
		if !p.evictLRULocked() {
			break
		}
	}
}

// Snapshot returns the current entries sorted by key.
func (p *Pool) Snapshot() []EntryStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EntryStatus, 0, len(p.entries))
	for k, e := range p.entries {
		out = append(out, EntryStatus{Model: k.Model, Device: k.Device, LastUsed: e.lastUsed, LoadedAt: e.loadedAt, Hits: e.hits})
	}
	sort.Slice(out, func(i, j int) bool {
		return Key{out[i].Model, out[i].Device}.String() < Key{out[j].Model, out[j].Device}.String()
	})
	return out
}

// Preload acquires each model id in order. Failures are logged and joined;
// a failing id does not stop the remaining ones.
func (p *Pool) Preload(ctx context.Context, modelIDs ...string) error {
	var errs []error
	for _, id := range modelIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, key, err := p.Acquire(ctx, id)
		if err != nil {
			p.log.Error().Str("model", id).Err(err).Msg("preload failed")
			errs = append(errs, err)
			continue
		}
		p.log.Info().Str("model", id).Str("device", string(key.Device)).Msg("preloaded model")
	}
	return errors.Join(errs...)
}

// Close closes every model and rejects further Acquire calls.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for k := range p.entries {
		if err := p.removeLocked(k, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
