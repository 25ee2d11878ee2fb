package pipeline

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/nerrad567/csv2influx/internal/batch"
)

// Publisher sends a message to a topic. Implemented by mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Event topic suffixes, appended to the configured prefix.
const (
	TopicProgress    = "/run/progress"
	TopicBatchFailed = "/run/batch_failed"
	TopicSummary     = "/run/summary"
)

// ProgressEvent is published after every successful flush.
type ProgressEvent struct {
	RunID     string    `json:"run_id"`
	Batch     int       `json:"batch"`
	LinesRead int       `json:"lines_read"`
	Points    int       `json:"points"`
	UpTo      time.Time `json:"up_to"`
}

// BatchFailedEvent is published for every rejected batch.
type BatchFailedEvent struct {
	RunID     string `json:"run_id"`
	Batch     int    `json:"batch"`
	FirstLine int    `json:"first_line"`
	LastLine  int    `json:"last_line"`
	Points    int    `json:"points"`
	Error     string `json:"error"`
}

// SummaryEvent is published once when the run ends. It is retained so late
// subscribers see the outcome of the last run.
type SummaryEvent struct {
	RunID            string `json:"run_id"`
	Status           string `json:"status"`
	LinesRead        int    `json:"lines_read"`
	PointsWritten    int    `json:"points_written"`
	PointsDropped    int    `json:"points_dropped"`
	BatchesAttempted int    `json:"batches_attempted"`
	BatchesFailed    int    `json:"batches_failed"`
	Error            string `json:"error,omitempty"`
}

// EventReporter publishes run events as JSON. Publish failures are logged
// and never affect the run.
type EventReporter struct {
	pub    Publisher
	prefix string
	qos    byte
	runID  string
	log    Logger
}

// NewEventReporter returns a Reporter publishing under prefix.
func NewEventReporter(pub Publisher, prefix string, qos byte, runID string, log Logger) *EventReporter {
	return &EventReporter{pub: pub, prefix: prefix, qos: qos, runID: runID, log: log}
}

// Flushing implements Reporter. Events are sent once a batch is written.
func (r *EventReporter) Flushing(Progress) {}

// Flushed implements Reporter by publishing a progress event.
func (r *EventReporter) Flushed(p Progress) {
	r.publish(TopicProgress, ProgressEvent{
		RunID:     r.runID,
		Batch:     p.Seq,
		LinesRead: p.LinesRead,
		Points:    p.Points,
		UpTo:      p.LastTime,
	}, false)
}

// BatchFailed implements Reporter by publishing the rejected line range.
func (r *EventReporter) BatchFailed(fb batch.FailedBatch) {
	ev := BatchFailedEvent{
		RunID:     r.runID,
		Batch:     fb.Seq,
		FirstLine: fb.FirstLine,
		LastLine:  fb.LastLine,
		Points:    fb.Points,
	}
	if fb.Err != nil {
		ev.Error = fb.Err.Error()
	}
	r.publish(TopicBatchFailed, ev, false)
}

// Finished implements Reporter by publishing a retained summary event.
func (r *EventReporter) Finished(s batch.Summary, err error) {
	ev := SummaryEvent{
		RunID:            r.runID,
		Status:           RunStatus(s, err),
		LinesRead:        s.LinesRead,
		PointsWritten:    s.PointsWritten,
		PointsDropped:    s.PointsDropped,
		BatchesAttempted: s.BatchesAttempted,
		BatchesFailed:    s.BatchesFailed,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.publish(TopicSummary, ev, true)
}

func (r *EventReporter) publish(suffix string, v any, retained bool) {
	topic := r.prefix + suffix
	payload, err := json.Marshal(v)
	if err != nil {
		r.logWarn("encoding event failed", "topic", topic, "error", err)
		return
	}
	if err := r.pub.Publish(topic, payload, r.qos, retained); err != nil {
		r.logWarn("publishing event failed", "topic", topic, "error", err)
	}
}

func (r *EventReporter) logWarn(msg string, args ...any) {
	if r.log != nil {
		r.log.Warn(msg, args...)
	}
}

// Run status values.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// RunStatus classifies a finished run.
func RunStatus(s batch.Summary, err error) string {
	switch {
	case err != nil:
		return StatusFailed
	case s.BatchesFailed > 0:
		return StatusPartial
	default:
		return StatusCompleted
	}
}
