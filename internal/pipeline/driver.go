package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/csv2influx/internal/batch"
	"github.com/nerrad567/csv2influx/internal/mapper"
	"github.com/nerrad567/csv2influx/internal/point"
)

// Driver runs one import: read rows, map them to points, write in batches.
//
// Everything happens on the calling goroutine. A flush blocks reading until
// the writer returns.
type Driver struct {
	src       Source
	mapper    *mapper.Mapper
	acc       *batch.Accumulator
	writer    batch.Writer
	reporters []Reporter

	linesRead int
	current   Progress
	ran       bool
}

// NewDriver wires a source, mapper and writer into a runnable import.
//
// The accumulator is built here from w and opts so that progress can be
// reported at every flush. opts.OnFlush, if set, is still called.
func NewDriver(src Source, m *mapper.Mapper, w batch.Writer, opts batch.Options, reporters ...Reporter) (*Driver, error) {
	if src == nil || m == nil || w == nil {
		return nil, fmt.Errorf("%w: source, mapper and writer are required", ErrInvalidDriver)
	}

	d := &Driver{
		src:       src,
		mapper:    m,
		writer:    w,
		reporters: reporters,
	}

	userHook := opts.OnFlush
	opts.OnFlush = func(fi batch.FlushInfo) {
		d.onFlush(fi)
		if userHook != nil {
			userHook(fi)
		}
	}

	acc, err := batch.NewAccumulator(batch.WriterFunc(d.write), opts)
	if err != nil {
		return nil, err
	}
	d.acc = acc

	return d, nil
}

// Run imports every row. It may be called once.
//
// A mapping error, a malformed record, context cancellation or a fail-fast
// write failure aborts the run. Batches written before the abort stay
// written; points still buffered are discarded. The source is closed on
// every return path and the returned summary is valid even with an error.
func (d *Driver) Run(ctx context.Context) (summary batch.Summary, err error) {
	if d.ran {
		return batch.Summary{}, ErrAlreadyRun
	}
	d.ran = true

	defer func() {
		if cerr := d.src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing input: %w", cerr)
		}
		summary = d.summary()
		for _, r := range d.reporters {
			r.Finished(summary, err)
		}
	}()

	for {
		if cerr := ctx.Err(); cerr != nil {
			return batch.Summary{}, fmt.Errorf("%w after %d lines: %w", ErrCancelled, d.linesRead, cerr)
		}

		row, line, rerr := d.src.Next()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return batch.Summary{}, rerr
		}
		d.linesRead++

		p, merr := d.mapper.Map(row, line)
		if merr != nil {
			return batch.Summary{}, merr
		}

		if aerr := d.acc.Add(ctx, p, line); aerr != nil {
			return batch.Summary{}, aerr
		}
	}

	if _, ferr := d.acc.Finalize(ctx); ferr != nil {
		return batch.Summary{}, ferr
	}
	return batch.Summary{}, nil
}

// LinesRead returns the number of data rows read so far.
func (d *Driver) LinesRead() int {
	return d.linesRead
}

func (d *Driver) summary() batch.Summary {
	s := d.acc.Summary()
	s.LinesRead = d.linesRead
	return s
}

func (d *Driver) onFlush(fi batch.FlushInfo) {
	d.current = Progress{
		Seq:       fi.Seq,
		LinesRead: d.linesRead,
		Points:    fi.Points,
		FirstLine: fi.FirstLine,
		LastLine:  fi.LastLine,
		LastTime:  time.Unix(0, fi.LastTime).UTC(),
	}
	for _, r := range d.reporters {
		r.Flushing(d.current)
	}
}

func (d *Driver) write(ctx context.Context, points []point.Point) error {
	err := d.writer.WritePoints(ctx, points)
	if err != nil {
		fb := batch.FailedBatch{
			Seq:       d.current.Seq,
			FirstLine: d.current.FirstLine,
			LastLine:  d.current.LastLine,
			Points:    len(points),
			Err:       err,
		}
		for _, r := range d.reporters {
			r.BatchFailed(fb)
		}
		return err
	}
	for _, r := range d.reporters {
		r.Flushed(d.current)
	}
	return nil
}
