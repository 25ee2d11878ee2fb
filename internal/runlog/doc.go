// Package runlog keeps a SQLite ledger of import runs.
//
// Each run gets a row with its target, failure policy and final counters.
// Each batch the target rejected gets a row with the input line range it
// covered, so dropped data can be found and replayed after a best-effort
// import.
//
// Recorder plugs the ledger into a pipeline run as a Reporter; Store reads
// the history back.
package runlog
