// Package mapper turns one parsed CSV row into a point.
//
// Column roles (measurement, time column, tag columns, field columns) are set
// once per run. Configured columns missing from a row are defaulted ("0" for
// tags, 0.0 for fields) so every point has the same keys; a missing time
// column is an error and aborts the run.
package mapper
