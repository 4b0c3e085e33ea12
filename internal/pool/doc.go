// Package pool keeps a bounded set of loaded transcription models keyed by
// (model id, device). It is split by concern:
//
//   - pool.go: Pool type, Acquire (get-or-load-or-evict), capacity control.
//   - types.go: Key, Model, Loader and snapshot types.
//   - errors.go: ConstructionError, LoadError and predicates.
//   - events.go: lifecycle events and publishers.
//   - metrics.go: Prometheus collectors.
//   - state.go: warm-set persistence across restarts.
//
// A single mutex guards the whole get-or-create sequence, including the slow
// load, so at most one load is in flight per Pool. Loads that fail on the
// accelerator are retried once on the CPU and stored under the CPU key.
package pool
