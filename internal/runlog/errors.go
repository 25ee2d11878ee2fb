package runlog

import "errors"

var (
	// ErrNotFound is returned when a run does not exist in the ledger.
	ErrNotFound = errors.New("runlog: run not found")

	// ErrNotStarted is returned when a Recorder is used before Start.
	ErrNotStarted = errors.New("runlog: run not started")
)
