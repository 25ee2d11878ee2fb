// Package timestamp resolves the time column of a CSV row into nanoseconds
// since the Unix epoch.
//
// Two modes are supported:
//   - epoch: an integer count of seconds, milliseconds, microseconds or
//     nanoseconds, scaled to nanoseconds
//   - formatted: a calendar string parsed with a strftime pattern (or a Go
//     layout) and localised to a source timezone when it has no offset
//
// Formatted values are truncated to whole milliseconds so re-imports of the
// same file produce identical timestamps.
package timestamp
