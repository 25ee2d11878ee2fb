package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/csv2influx/internal/point"
)

// recordingWriter captures each batch and fails the calls listed in failOn (1-based).
type recordingWriter struct {
	batches [][]point.Point
	failOn  map[int]error
}

func (w *recordingWriter) WritePoints(_ context.Context, points []point.Point) error {
	w.batches = append(w.batches, points)
	if err, ok := w.failOn[len(w.batches)]; ok {
		return err
	}
	return nil
}

func testPoint(i int) point.Point {
	return point.Point{
		Measurement: "m",
		Time:        int64(i) * 1_000_000_000,
		Fields:      []point.Field{{Key: "v", Value: point.Float(float64(i))}},
	}
}

func newTestAccumulator(t *testing.T, w Writer, size int, policy Policy) *Accumulator {
	t.Helper()
	a, err := NewAccumulator(w, Options{Size: size, Policy: policy})
	require.NoError(t, err)
	return a
}

func TestAccumulator_FlushCounts(t *testing.T) {
	const size = 4

	tests := []struct {
		name        string
		points      int
		wantBatches []int
	}{
		{name: "empty input", points: 0, wantBatches: nil},
		{name: "single point", points: 1, wantBatches: []int{1}},
		{name: "one short of a batch", points: size - 1, wantBatches: []int{3}},
		{name: "exactly one batch", points: size, wantBatches: []int{4}},
		{name: "one over a batch", points: size + 1, wantBatches: []int{4, 1}},
		{name: "several batches", points: 3*size + 2, wantBatches: []int{4, 4, 4, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWriter{}
			a := newTestAccumulator(t, w, size, FailFast)
			ctx := context.Background()

			for i := 0; i < tt.points; i++ {
				require.NoError(t, a.Add(ctx, testPoint(i), i+2))
			}
			summary, err := a.Finalize(ctx)
			require.NoError(t, err)

			var got []int
			for _, b := range w.batches {
				got = append(got, len(b))
			}
			assert.Equal(t, tt.wantBatches, got)
			assert.Equal(t, tt.points, summary.PointsWritten)
			assert.Equal(t, len(tt.wantBatches), summary.BatchesAttempted)
			assert.Zero(t, summary.BatchesFailed)
		})
	}
}

func TestAccumulator_PreservesOrder(t *testing.T) {
	w := &recordingWriter{}
	a := newTestAccumulator(t, w, 3, FailFast)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, a.Add(ctx, testPoint(i), i+2))
	}
	_, err := a.Finalize(ctx)
	require.NoError(t, err)

	var times []int64
	for _, b := range w.batches {
		for _, p := range b {
			times = append(times, p.Time/1_000_000_000)
		}
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6}, times)
}

func TestAccumulator_FlushOnlyWhenFull(t *testing.T) {
	w := &recordingWriter{}
	a := newTestAccumulator(t, w, 2, FailFast)
	ctx := context.Background()

	require.NoError(t, a.Add(ctx, testPoint(0), 2))
	assert.Empty(t, w.batches)
	assert.Equal(t, 1, a.Pending())

	require.NoError(t, a.Add(ctx, testPoint(1), 3))
	assert.Len(t, w.batches, 1)
	assert.Zero(t, a.Pending())
	assert.Equal(t, StateAccumulating, a.State())
}

func TestAccumulator_FailFast(t *testing.T) {
	cause := errors.New("connection refused")
	w := &recordingWriter{failOn: map[int]error{2: cause}}
	a := newTestAccumulator(t, w, 2, FailFast)
	ctx := context.Background()

	require.NoError(t, a.Add(ctx, testPoint(0), 2))
	require.NoError(t, a.Add(ctx, testPoint(1), 3))
	require.NoError(t, a.Add(ctx, testPoint(2), 4))

	err := a.Add(ctx, testPoint(3), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, cause)

	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, 2, we.Seq)
	assert.Equal(t, 4, we.FirstLine)
	assert.Equal(t, 5, we.LastLine)
	assert.Len(t, we.Points, 2)

	assert.Equal(t, StateFailed, a.State())
	assert.ErrorIs(t, a.Add(ctx, testPoint(4), 6), ErrFailed)
	assert.ErrorIs(t, a.Flush(ctx), ErrFailed)

	summary, err := a.Finalize(ctx)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, 2, summary.PointsWritten)
	assert.Equal(t, 2, summary.PointsDropped)
	assert.Equal(t, 2, summary.BatchesAttempted)
	assert.Equal(t, 1, summary.BatchesFailed)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, 2, summary.Failed[0].Seq)

	// No write was attempted after the failure.
	assert.Len(t, w.batches, 2)
}

func TestAccumulator_BestEffort(t *testing.T) {
	cause := errors.New("partial write: field type conflict")
	w := &recordingWriter{failOn: map[int]error{1: cause}}
	a := newTestAccumulator(t, w, 2, BestEffort)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Add(ctx, testPoint(i), i+2))
	}
	summary, err := a.Finalize(ctx)
	require.NoError(t, err)

	assert.Len(t, w.batches, 3)
	assert.Equal(t, 3, summary.PointsWritten)
	assert.Equal(t, 2, summary.PointsDropped)
	assert.Equal(t, 3, summary.BatchesAttempted)
	assert.Equal(t, 1, summary.BatchesFailed)

	require.Len(t, summary.Failed, 1)
	fb := summary.Failed[0]
	assert.Equal(t, 1, fb.Seq)
	assert.Equal(t, 2, fb.FirstLine)
	assert.Equal(t, 3, fb.LastLine)
	assert.Equal(t, 2, fb.Points)
	assert.ErrorIs(t, fb.Err, cause)
}

func TestAccumulator_ThreeRowsBatchOfTwo(t *testing.T) {
	w := &recordingWriter{}
	a := newTestAccumulator(t, w, 2, FailFast)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Add(ctx, testPoint(i), i+2))
	}
	require.Len(t, w.batches, 1)

	summary, err := a.Finalize(ctx)
	require.NoError(t, err)
	require.Len(t, w.batches, 2)
	assert.Len(t, w.batches[0], 2)
	assert.Len(t, w.batches[1], 1)
	assert.Equal(t, 3, summary.PointsWritten)
}

func TestAccumulator_FinalizeTwice(t *testing.T) {
	a := newTestAccumulator(t, &recordingWriter{}, 2, FailFast)
	ctx := context.Background()

	_, err := a.Finalize(ctx)
	require.NoError(t, err)

	_, err = a.Finalize(ctx)
	assert.ErrorIs(t, err, ErrFinalized)
	assert.ErrorIs(t, a.Add(ctx, testPoint(0), 2), ErrFinalized)
}

func TestAccumulator_OnFlush(t *testing.T) {
	var infos []FlushInfo
	w := &recordingWriter{}
	a, err := NewAccumulator(w, Options{
		Size:    2,
		OnFlush: func(fi FlushInfo) { infos = append(infos, fi) },
	})
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Add(ctx, testPoint(i), i+2))
	}
	_, err = a.Finalize(ctx)
	require.NoError(t, err)

	assert.Equal(t, []FlushInfo{
		{Seq: 1, Points: 2, FirstLine: 2, LastLine: 3, LastTime: 1_000_000_000},
		{Seq: 2, Points: 1, FirstLine: 4, LastLine: 4, LastTime: 2_000_000_000},
	}, infos)
}

func TestAccumulator_SummaryIsACopy(t *testing.T) {
	w := &recordingWriter{failOn: map[int]error{1: errors.New("boom")}}
	a := newTestAccumulator(t, w, 1, BestEffort)

	require.NoError(t, a.Add(context.Background(), testPoint(0), 2))

	s := a.Summary()
	require.Len(t, s.Failed, 1)
	s.Failed[0].Seq = 99

	assert.Equal(t, 1, a.Summary().Failed[0].Seq)
}

func TestNewAccumulator_InvalidOptions(t *testing.T) {
	w := &recordingWriter{}

	_, err := NewAccumulator(nil, Options{Size: 1})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = NewAccumulator(w, Options{Size: 0})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = NewAccumulator(w, Options{Size: -3})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = NewAccumulator(w, Options{Size: 1, Policy: "sometimes"})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	a, err := NewAccumulator(w, Options{Size: 1})
	require.NoError(t, err)
	assert.Equal(t, FailFast, a.Policy())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"", FailFast},
		{"fail-fast", FailFast},
		{"Best-Effort", BestEffort},
		{"force", BestEffort},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParsePolicy("retry")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestWriterFunc(t *testing.T) {
	var got int
	w := WriterFunc(func(_ context.Context, points []point.Point) error {
		got = len(points)
		return nil
	})
	require.NoError(t, w.WritePoints(context.Background(), []point.Point{testPoint(1)}))
	assert.Equal(t, 1, got)
}
