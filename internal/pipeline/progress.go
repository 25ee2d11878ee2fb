package pipeline

import (
	"time"

	"github.com/nerrad567/csv2influx/internal/batch"
)

// Progress describes the run at a flush boundary.
type Progress struct {
	Seq       int
	LinesRead int
	Points    int
	FirstLine int
	LastLine  int

	// LastTime is the timestamp of the last point in the batch.
	LastTime time.Time
}

// Reporter observes a run. Methods are called from the run goroutine and
// should return quickly; a slow reporter slows the import.
type Reporter interface {
	// Flushing is called before a batch is handed to the writer.
	Flushing(p Progress)

	// Flushed is called after the writer accepted a batch.
	Flushed(p Progress)

	// BatchFailed is called for every batch the writer rejected, under
	// either failure policy.
	BatchFailed(fb batch.FailedBatch)

	// Finished is called once when Run returns. err is nil on success.
	Finished(s batch.Summary, err error)
}

// Logger is the logging surface used by reporters.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LogReporter writes run progress to a structured logger.
type LogReporter struct {
	log Logger
}

// NewLogReporter returns a Reporter logging to log.
func NewLogReporter(log Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Flushing implements Reporter.
func (r *LogReporter) Flushing(p Progress) {
	r.log.Info("read lines", "lines", p.LinesRead)
	r.log.Info("inserting points", "batch", p.Seq, "points", p.Points,
		"first_line", p.FirstLine, "last_line", p.LastLine)
}

// Flushed implements Reporter.
func (r *LogReporter) Flushed(p Progress) {
	r.log.Info("wrote points", "batch", p.Seq, "points", p.Points,
		"up_to", p.LastTime.Format(time.RFC3339Nano))
}

// BatchFailed implements Reporter. Failures are logged at warn level.
func (r *LogReporter) BatchFailed(fb batch.FailedBatch) {
	r.log.Warn("batch write failed", "batch", fb.Seq, "points", fb.Points,
		"first_line", fb.FirstLine, "last_line", fb.LastLine, "error", fb.Err)
}

// Finished implements Reporter by logging the run summary.
func (r *LogReporter) Finished(s batch.Summary, err error) {
	args := []any{
		"lines_read", s.LinesRead,
		"points_written", s.PointsWritten,
		"points_dropped", s.PointsDropped,
		"batches_attempted", s.BatchesAttempted,
		"batches_failed", s.BatchesFailed,
	}
	if err != nil {
		r.log.Error("import aborted", append(args, "error", err)...)
		return
	}
	if s.BatchesFailed > 0 {
		r.log.Warn("import finished with dropped batches", args...)
		return
	}
	r.log.Info("import finished", args...)
}
