// Package manager wires the framework together: every logged entry is
// signed, appended to the tamper-evident chain on the caller's goroutine,
// then fanned out to the configured sinks on the async dispatch pool.
//
// The chain append is synchronous so that entry order in the chain matches
// call order; only sink I/O rides the worker pool. When the archive is
// enabled, sealed blocks are persisted before older blocks rotate out of
// memory.
package manager
