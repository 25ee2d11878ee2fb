package batch

import (
	"errors"
	"fmt"

	"github.com/nerrad567/csv2influx/internal/point"
)

// Sentinel errors for batch accumulation.
var (
	// ErrWrite indicates the writer rejected a batch.
	ErrWrite = errors.New("batch: write failed")

	// ErrFailed is returned by every call after a fail-fast write failure.
	ErrFailed = errors.New("batch: accumulator has failed")

	// ErrFinalized is returned by calls after Finalize.
	ErrFinalized = errors.New("batch: accumulator already finalized")

	// ErrInvalidOptions indicates unusable accumulator options.
	ErrInvalidOptions = errors.New("batch: invalid options")
)

// WriteError carries a rejected batch and the writer's error.
// It matches ErrWrite with errors.Is and unwraps to the cause.
type WriteError struct {
	// Seq is the 1-based sequence number of the batch within the run.
	Seq       int
	FirstLine int
	LastLine  int
	Points    []point.Point
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("batch: write of batch %d (%d points, lines %d-%d) failed: %v",
		e.Seq, len(e.Points), e.FirstLine, e.LastLine, e.Err)
}

// Unwrap returns the writer's error.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrWrite) true.
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}
