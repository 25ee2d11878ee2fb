package timestamp

import "errors"

// Sentinel errors for timestamp resolution.
//
// Check with errors.Is():
//
//	if errors.Is(err, timestamp.ErrInvalidTimestamp) {
//	    // bad input data, abort the run
//	}
var (
	// ErrInvalidTimestamp indicates a time value that cannot be resolved:
	// a non-integer epoch value, an unrecognised precision unit, a value
	// that does not match the configured pattern, or an out-of-range instant.
	ErrInvalidTimestamp = errors.New("timestamp: invalid timestamp")

	// ErrInvalidConfig indicates a resolver configuration that cannot be used.
	ErrInvalidConfig = errors.New("timestamp: invalid configuration")
)
