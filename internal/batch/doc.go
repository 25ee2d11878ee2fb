// Package batch buffers points and writes them in fixed-size batches.
//
// # Lifecycle
//
//	ACCUMULATING → FLUSHING → ACCUMULATING
//	                        → FAILED (fail-fast only, terminal)
//
// A flush is triggered when the buffer holds exactly Size points after an
// Add, and once more from Finalize at end of input if points remain. There
// are no timers and no byte thresholds.
//
// # Failure policy
//
//   - FailFast (default): the first failed batch aborts the run. Batches
//     already written are not rolled back.
//   - BestEffort: the failed batch is recorded in the Summary, its points are
//     dropped (never retried) and accumulation continues.
//
// Either way the Summary lists every failed batch with its input line range
// so gaps can be reconciled.
package batch
