package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/csv2influx/internal/point"
)

// Writer sends one batch of points to the database.
//
// A nil error means every point in the batch was accepted. Any error means
// the batch as a whole failed; partial acceptance is not modelled.
type Writer interface {
	WritePoints(ctx context.Context, points []point.Point) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, points []point.Point) error

// WritePoints calls f.
func (f WriterFunc) WritePoints(ctx context.Context, points []point.Point) error {
	return f(ctx, points)
}

// Policy decides what a failed batch write does to the run.
type Policy string

const (
	// FailFast aborts the run on the first failed batch. Batches already
	// written stay written.
	FailFast Policy = "fail-fast"

	// BestEffort records the failed batch, drops its points and continues.
	BestEffort Policy = "best-effort"
)

// ParsePolicy converts a configuration string to a Policy.
// An empty string selects FailFast; "force" is accepted for BestEffort.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FailFast):
		return FailFast, nil
	case string(BestEffort), "force":
		return BestEffort, nil
	default:
		return "", fmt.Errorf("%w: unknown failure policy %q (want fail-fast or best-effort)", ErrInvalidOptions, s)
	}
}

// State is the accumulator's position in its lifecycle.
type State int

const (
	// StateAccumulating buffers points until the batch is full.
	StateAccumulating State = iota
	// StateFlushing is held while the writer call is in progress.
	StateFlushing
	// StateFailed is terminal after a fail-fast write failure.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FlushInfo describes a batch that is about to be written.
type FlushInfo struct {
	Seq       int
	Points    int
	FirstLine int
	LastLine  int
	// LastTime is the timestamp (ns) of the last point in the batch.
	LastTime int64
}

// FailedBatch identifies a batch that was not written.
type FailedBatch struct {
	Seq       int
	FirstLine int
	LastLine  int
	Points    int
	Err       error
}

// Summary is the outcome of a run.
type Summary struct {
	// LinesRead counts data rows read from the input (header excluded).
	LinesRead        int
	PointsWritten    int
	PointsDropped    int
	BatchesAttempted int
	BatchesFailed    int
	Failed           []FailedBatch
}
