// Package storage wraps the embedded SQLite engine behind the narrow
// surface the data-access layer needs: prepared statements, pragmas set
// once at open, file backup, and a close. Nothing above this package
// imports database/sql directly.
package storage

import "github.com/leapstack-labs/strata/pkg/core"

// Result reports the outcome of a statement that returns no rows.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Statement is a prepared statement bound to the engine's connection.
type Statement interface {
	// Run executes the statement with the given bound parameters.
	Run(args ...any) (Result, error)

	// All executes the statement and returns every result row.
	All(args ...any) ([]core.Row, error)

	// Close releases the prepared statement.
	Close() error
}

// Engine is the storage-engine collaborator. Errors from the engine
// propagate to callers unmodified; the layers above never rewrite them.
type Engine interface {
	// Prepare compiles sqlText into a reusable statement.
	Prepare(sqlText string) (Statement, error)

	// Exec is the prepare-run-close convenience for one-shot statements.
	Exec(sqlText string, args ...any) (Result, error)

	// Query is the prepare-all-close convenience for one-shot reads.
	Query(sqlText string, args ...any) ([]core.Row, error)

	// Backup writes a consistent snapshot of the database to path.
	Backup(path string) error

	// Close closes the underlying connection. Safe to call once.
	Close() error
}
