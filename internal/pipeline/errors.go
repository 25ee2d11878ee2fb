package pipeline

import "errors"

// Sentinel errors for the pipeline.
var (
	// ErrInvalidSource indicates an input that cannot be opened as configured
	// (missing path, bad delimiter, unknown encoding).
	ErrInvalidSource = errors.New("pipeline: invalid input source")

	// ErrInput indicates a malformed input record.
	ErrInput = errors.New("pipeline: malformed input")

	// ErrInvalidDriver indicates a driver built without a required collaborator.
	ErrInvalidDriver = errors.New("pipeline: invalid driver")

	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("pipeline: driver already run")

	// ErrCancelled indicates the run stopped because its context ended.
	ErrCancelled = errors.New("pipeline: run cancelled")

	// ErrPrepare indicates a failed administrative step before the run.
	ErrPrepare = errors.New("pipeline: prepare failed")
)
