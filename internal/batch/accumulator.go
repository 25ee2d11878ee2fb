package batch

import (
	"context"
	"fmt"

	"github.com/nerrad567/csv2influx/internal/point"
)

// DefaultSize is the batch size used when none is configured.
const DefaultSize = 5000

// Options configures an Accumulator.
type Options struct {
	// Size is the number of points per batch. Must be positive.
	Size int

	// Policy decides whether a failed write aborts the run. Default FailFast.
	Policy Policy

	// OnFlush, if set, is called right before each batch is written.
	OnFlush func(FlushInfo)
}

// Accumulator buffers points and writes them in fixed-size batches.
//
// A flush happens exactly when the buffer reaches Size after an Add, plus
// once from Finalize if points remain. The writer call blocks; there is never
// more than one batch in flight.
//
// Thread Safety: not safe for concurrent use. The pipeline drives it from a
// single goroutine.
type Accumulator struct {
	w    Writer
	opts Options

	buf       []point.Point
	firstLine int
	lastLine  int

	seq       int
	state     State
	finalized bool
	summary   Summary
}

// NewAccumulator creates an Accumulator writing to w.
//
// Returns:
//   - error: ErrInvalidOptions if w is nil, Size is not positive or the
//     policy is unknown
func NewAccumulator(w Writer, opts Options) (*Accumulator, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: writer is required", ErrInvalidOptions)
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidOptions, opts.Size)
	}
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	opts.Policy = policy

	return &Accumulator{
		w:    w,
		opts: opts,
		buf:  make([]point.Point, 0, opts.Size),
	}, nil
}

// Add appends p to the current batch and flushes when the batch is full.
//
// Parameters:
//   - ctx: Passed to the writer if a flush is triggered
//   - p: Point to buffer
//   - line: Input line the point came from, used to identify failed batches
//
// Returns:
//   - error: *WriteError under FailFast if the triggered flush failed,
//     ErrFailed or ErrFinalized if the accumulator can no longer accept points
func (a *Accumulator) Add(ctx context.Context, p point.Point, line int) error {
	if err := a.usable(); err != nil {
		return err
	}

	if len(a.buf) == 0 {
		a.firstLine = line
	}
	a.lastLine = line
	a.buf = append(a.buf, p)

	if len(a.buf) == a.opts.Size {
		return a.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered points, if any, applying the failure policy.
//
// On success or on a failure tolerated by BestEffort the buffer is cleared
// and the accumulator keeps accepting points. Under FailFast a failure moves
// it to StateFailed and returns the *WriteError.
func (a *Accumulator) Flush(ctx context.Context) error {
	if err := a.usable(); err != nil {
		return err
	}
	if len(a.buf) == 0 {
		return nil
	}

	a.seq++
	batch := a.buf
	info := FlushInfo{
		Seq:       a.seq,
		Points:    len(batch),
		FirstLine: a.firstLine,
		LastLine:  a.lastLine,
		LastTime:  batch[len(batch)-1].Time,
	}
	if a.opts.OnFlush != nil {
		a.opts.OnFlush(info)
	}

	a.state = StateFlushing
	err := a.w.WritePoints(ctx, batch)
	a.summary.BatchesAttempted++

	// The writer may keep a reference to batch, so start a fresh buffer.
	a.buf = make([]point.Point, 0, a.opts.Size)
	a.firstLine, a.lastLine = 0, 0

	if err == nil {
		a.summary.PointsWritten += len(batch)
		a.state = StateAccumulating
		return nil
	}

	a.summary.BatchesFailed++
	a.summary.PointsDropped += len(batch)
	a.summary.Failed = append(a.summary.Failed, FailedBatch{
		Seq:       info.Seq,
		FirstLine: info.FirstLine,
		LastLine:  info.LastLine,
		Points:    info.Points,
		Err:       err,
	})

	if a.opts.Policy == BestEffort {
		a.state = StateAccumulating
		return nil
	}

	a.state = StateFailed
	return &WriteError{
		Seq:       info.Seq,
		FirstLine: info.FirstLine,
		LastLine:  info.LastLine,
		Points:    batch,
		Err:       err,
	}
}

// Finalize flushes any remaining points and closes the accumulator.
// It must be called exactly once, at end of input.
//
// Returns:
//   - Summary: Final counters, also when the last flush failed
//   - error: As Flush, or ErrFinalized on a second call
func (a *Accumulator) Finalize(ctx context.Context) (Summary, error) {
	if a.finalized {
		return a.Summary(), ErrFinalized
	}

	err := a.Flush(ctx)
	a.finalized = true
	return a.Summary(), err
}

// State returns the current lifecycle state.
func (a *Accumulator) State() State {
	return a.state
}

// Pending returns the number of buffered, unwritten points.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}

// Policy returns the failure policy in effect.
func (a *Accumulator) Policy() Policy {
	return a.opts.Policy
}

// Summary returns a copy of the counters so far.
func (a *Accumulator) Summary() Summary {
	s := a.summary
	s.Failed = append([]FailedBatch(nil), a.summary.Failed...)
	return s
}

func (a *Accumulator) usable() error {
	if a.finalized {
		return ErrFinalized
	}
	if a.state == StateFailed {
		return ErrFailed
	}
	return nil
}
