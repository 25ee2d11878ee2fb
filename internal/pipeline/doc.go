// Package pipeline drives an import from a delimited file to a time-series
// database.
//
// A run is strictly sequential:
//
//	CSVSource.Next → mapper.Map → batch.Accumulator.Add → (flush) → Writer
//
// Reporters observe each flush boundary and the end of the run. LogReporter
// logs progress, EventReporter publishes JSON events over MQTT, and the
// runlog package records runs in SQLite.
//
// Prepare performs the optional administrative steps (health check, drop and
// create of the target database, user switch) before a run starts.
package pipeline
