package tsdb

import "errors"

// Sentinel errors for time-series database operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, tsdb.ErrConnectionFailed) {
//	    // server unreachable
//	}
var (
	// ErrInvalidConfig indicates a client configuration that cannot be used.
	ErrInvalidConfig = errors.New("tsdb: invalid configuration")

	// ErrConnectionFailed indicates the server could not be reached.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrEncoding indicates a point that cannot be expressed in line protocol.
	ErrEncoding = errors.New("tsdb: encoding failed")

	// ErrWriteFailed indicates the server rejected a write, fully or partially.
	ErrWriteFailed = errors.New("tsdb: write failed")

	// ErrQueryFailed indicates an administrative query was rejected.
	ErrQueryFailed = errors.New("tsdb: query failed")
)
