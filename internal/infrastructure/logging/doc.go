// Package logging provides structured logging for csv2influx.
//
// This package wraps Go's standard log/slog package so that every component
// logs with the same handler, level and default fields.
//
// # Features
//
//   - Text output by default, JSON for log shippers
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Writes to stderr unless stdout is asked for
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("import finished", "points_written", n)
//
// Never log passwords or tokens.
package logging
