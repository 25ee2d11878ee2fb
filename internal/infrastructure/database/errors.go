package database

import "errors"

// Migration errors.
var (
	// ErrUnknownMigration indicates schema_migrations names a version with
	// no files in MigrationsFS, typically a ledger written by a newer build.
	ErrUnknownMigration = errors.New("migration not found")

	// ErrIrreversible indicates the migration has no down SQL.
	ErrIrreversible = errors.New("migration cannot be rolled back")
)
