// Package point defines the measurement point written to the time-series
// database and the typing rules for raw CSV cells.
//
// A Point carries a measurement name, a nanosecond timestamp, string tags and
// typed fields. Field values are a closed sum type (Float, Bool, String)
// produced by Infer and consumed by the wire encoders in
// internal/infrastructure/tsdb and internal/infrastructure/influxdb.
package point
