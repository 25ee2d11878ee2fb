package runlog

import (
	"context"
	"time"

	"github.com/nerrad567/csv2influx/internal/batch"
	"github.com/nerrad567/csv2influx/internal/pipeline"
)

// StatusRunning marks a run that has started but not finished. A run
// left in this state was killed before it could record its outcome.
const StatusRunning = "running"

// writeTimeout bounds each ledger write made from a reporter callback.
const writeTimeout = 5 * time.Second

// Recorder is a pipeline.Reporter that keeps the run ledger.
//
// Ledger failures are logged and never abort the import.
type Recorder struct {
	store *Store
	log   pipeline.Logger
	runID string
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store *Store, log pipeline.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Start records the beginning of run and returns its ID.
func (r *Recorder) Start(ctx context.Context, run Run) (string, error) {
	if err := r.store.Create(ctx, &run); err != nil {
		return "", err
	}
	r.runID = run.ID
	return run.ID, nil
}

// RunID returns the ID assigned by Start.
func (r *Recorder) RunID() string {
	return r.runID
}

// Flushing implements pipeline.Reporter. Progress is not recorded.
func (r *Recorder) Flushing(pipeline.Progress) {}

// Flushed implements pipeline.Reporter. Progress is not recorded.
func (r *Recorder) Flushed(pipeline.Progress) {}

// BatchFailed implements pipeline.Reporter by storing the batch identity.
func (r *Recorder) BatchFailed(fb batch.FailedBatch) {
	if r.runID == "" {
		r.log.Warn("run ledger not started, dropping failed batch record", "batch", fb.Seq)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.store.AddFailedBatch(ctx, r.runID, fb); err != nil {
		r.log.Warn("run ledger write failed", "run_id", r.runID, "error", err)
	}
}

// Finished stores the outcome. It uses its own context so a cancelled
// import is still recorded.
func (r *Recorder) Finished(s batch.Summary, err error) {
	if r.runID == "" {
		r.log.Warn("run ledger not started, dropping summary", "error", ErrNotStarted)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if ferr := r.store.Finish(ctx, r.runID, pipeline.RunStatus(s, err), s, err); ferr != nil {
		r.log.Warn("run ledger write failed", "run_id", r.runID, "error", ferr)
	}
}
