package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrWriteFailed) {
//	    // batch rejected
//	}
var (
	// ErrInvalidConfig indicates a client configuration that cannot be used.
	ErrInvalidConfig = errors.New("influxdb: invalid configuration")

	// ErrConnectionFailed indicates the server could not be reached or is unhealthy.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates the server rejected a write.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrAdminFailed indicates a bucket or organization operation failed.
	ErrAdminFailed = errors.New("influxdb: admin operation failed")

	// ErrAuthFailed indicates sign-in with username and password failed.
	ErrAuthFailed = errors.New("influxdb: authentication failed")
)
