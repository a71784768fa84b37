package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leapstack-labs/strata/pkg/core"
)

const (
	dirPermissions = 0o750
	msPerSecond    = 1000
)

// Config holds the connection options applied once at open. There is no
// later reconfiguration; long-running statements cannot be interrupted
// beyond the busy-timeout wait.
type Config struct {
	// Path is the database file, or ":memory:" for an in-memory database.
	Path string

	// BusyTimeout is the lock wait in seconds before SQLITE_BUSY surfaces.
	BusyTimeout int

	// WALMode enables write-ahead logging for reader/writer concurrency.
	WALMode bool

	// ForeignKeys enables foreign-key enforcement.
	ForeignKeys bool
}

// SQLite implements Engine on mattn/go-sqlite3.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open opens the database and applies pragmas through the DSN.
//
// The pool is pinned to a single connection: SQLite supports one writer,
// and literal BEGIN/COMMIT statements issued by the transaction manager
// must land on the same connection as the statements they scope.
func Open(cfg Config) (*SQLite, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeout*msPerSecond)
	if cfg.ForeignKeys {
		dsn += "&_foreign_keys=on"
	}
	if cfg.WALMode && cfg.Path != ":memory:" {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	return &SQLite{db: db, path: cfg.Path}, nil
}

// NewWithDB wraps an already-open connection. Used by tests that substitute
// a mock driver for the real engine.
func NewWithDB(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Prepare compiles sqlText into a reusable statement.
func (s *SQLite) Prepare(sqlText string) (Statement, error) {
	stmt, err := s.db.Prepare(sqlText)
	if err != nil {
		return nil, err
	}
	return &sqliteStmt{stmt: stmt}, nil
}

// Exec runs a one-shot statement.
func (s *SQLite) Exec(sqlText string, args ...any) (Result, error) {
	res, err := s.db.Exec(sqlText, args...)
	if err != nil {
		return Result{}, err
	}
	return resultOf(res), nil
}

// Query runs a one-shot read and returns every row.
func (s *SQLite) Query(sqlText string, args ...any) ([]core.Row, error) {
	rows, err := s.db.Query(sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// Backup writes a consistent snapshot to path using VACUUM INTO, which
// works regardless of journal mode and never blocks readers.
func (s *SQLite) Backup(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	if _, err := s.db.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqliteStmt struct {
	stmt *sql.Stmt
}

func (st *sqliteStmt) Run(args ...any) (Result, error) {
	res, err := st.stmt.Exec(args...)
	if err != nil {
		return Result{}, err
	}
	return resultOf(res), nil
}

func (st *sqliteStmt) All(args ...any) ([]core.Row, error) {
	rows, err := st.stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

func (st *sqliteStmt) Close() error { return st.stmt.Close() }

func resultOf(res sql.Result) Result {
	// The sqlite driver never fails these calls.
	affected, _ := res.RowsAffected()
	inserted, _ := res.LastInsertId()
	return Result{RowsAffected: affected, LastInsertID: inserted}
}

// collectRows scans every row into a core.Row keyed by column name.
// []byte values become strings so TEXT columns read back as plain text.
func collectRows(rows *sql.Rows) ([]core.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(core.Row, len(cols))
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

var _ Engine = (*SQLite)(nil)
