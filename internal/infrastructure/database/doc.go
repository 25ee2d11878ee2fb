// Package database provides the SQLite connection behind the run ledger.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations embedded from migrations/*.sql
//   - Connection lifecycle
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Ledger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive-only. Each file pair is named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql and applied in version
// order, one transaction per migration.
package database
