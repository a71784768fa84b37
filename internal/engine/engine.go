// Package engine provides the data-access facade: schema definition,
// validated and codec-aware reads and writes, transactions, migrations,
// backup, and lifecycle events, all over one embedded SQLite connection.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/strata/internal/codec"
	"github.com/leapstack-labs/strata/internal/events"
	"github.com/leapstack-labs/strata/internal/migrate"
	"github.com/leapstack-labs/strata/internal/schema"
	"github.com/leapstack-labs/strata/internal/storage"
	"github.com/leapstack-labs/strata/internal/validate"
	"github.com/leapstack-labs/strata/pkg/core"
)

// Config holds engine configuration.
type Config struct {
	// Path is the SQLite database file (empty or ":memory:" for in-memory).
	Path string

	// EncryptionKey enables column encryption when non-empty. Without a
	// key, columns flagged Encrypted store plaintext; that silent no-op is
	// part of the codec contract.
	EncryptionKey string

	// BusyTimeout is the lock wait in seconds (default 5).
	BusyTimeout int

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine is one data-access instance. It exclusively owns its connection,
// its schema registry, and its validator map; none of them are meant to be
// shared across instances or goroutines.
type Engine struct {
	store    storage.Engine
	registry *schema.Registry
	codec    *codec.Codec
	bus      *events.Bus
	gate     *validate.Gate
	runner   *migrate.Runner
	logger   *slog.Logger
	closed   bool
}

// New opens the database and wires the component stack. Foreign-key
// enforcement and WAL mode are always on; both are connection-level
// pragmas set once at open.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5
	}

	store, err := storage.Open(storage.Config{
		Path:        cfg.Path,
		BusyTimeout: cfg.BusyTimeout,
		WALMode:     true,
		ForeignKeys: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	cdc, err := codec.New(cfg.EncryptionKey)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing codec: %w", err)
	}

	e := &Engine{
		store:    store,
		registry: schema.New(store, logger),
		codec:    cdc,
		bus:      events.New(),
		gate:     validate.NewGate(),
		logger:   logger,
	}
	e.runner = migrate.NewRunner(e, logger)

	logger.Debug("engine initialized", "path", cfg.Path, "encrypted", cfg.EncryptionKey != "")
	return e, nil
}

// NewWithStore wires the stack over an existing storage engine. Used by
// tests that substitute a mock for real SQLite.
func NewWithStore(store storage.Engine, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cdc, err := codec.New("")
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:    store,
		registry: schema.New(store, logger),
		codec:    cdc,
		bus:      events.New(),
		gate:     validate.NewGate(),
		logger:   logger,
	}
	e.runner = migrate.NewRunner(e, logger)
	return e, nil
}

// Define registers a table schema and issues its idempotent DDL.
func (e *Engine) Define(name string, sch core.TableSchema) error {
	return e.registry.Define(name, sch)
}

// Alter adds columns to a registered table.
func (e *Engine) Alter(name string, newColumns core.TableSchema) error {
	return e.registry.Alter(name, newColumns)
}

// DropColumn removes a column via table rebuild. Not atomic on its own;
// wrap in a transaction when that matters.
func (e *Engine) DropColumn(name, column string) error {
	return e.registry.DropColumn(name, column)
}

// Schema returns the registered schema for a table.
func (e *Engine) Schema(name string) (core.TableSchema, error) {
	return e.registry.Get(name)
}

// Tables returns the registered table names.
func (e *Engine) Tables() []string {
	return e.registry.Tables()
}

// SetValidator registers (or, with nil, removes) a table's validator.
func (e *Engine) SetValidator(table string, v validate.Validator) {
	e.gate.Set(table, v)
}

// Subscribe registers an event handler; handler errors propagate to the
// operation that publishes on the topic.
func (e *Engine) Subscribe(topic core.Topic, handler events.Handler) events.Subscription {
	return e.bus.Subscribe(topic, handler)
}

// Unsubscribe removes an event handler.
func (e *Engine) Unsubscribe(sub events.Subscription) {
	e.bus.Unsubscribe(sub)
}

// Migrate runs the supplied migration units in the given direction,
// tracked exactly-once per direction in the persistent ledger.
func (e *Engine) Migrate(direction core.Direction, migrations []core.Migration) error {
	return e.runner.Run(direction, migrations)
}

// MigrationStatus returns the ledger contents.
func (e *Engine) MigrationStatus() ([]core.MigrationRecord, error) {
	return e.runner.Applied()
}

// Exec runs a raw statement. Migration procedures and the CLI boundary
// come through here; application code should prefer the typed operations.
func (e *Engine) Exec(sqlText string, args ...any) error {
	_, err := e.store.Exec(sqlText, args...)
	return err
}

// Query runs a raw read and returns all rows.
func (e *Engine) Query(sqlText string, args ...any) ([]core.Row, error) {
	return e.store.Query(sqlText, args...)
}

// Backup writes a consistent snapshot of the database to path.
func (e *Engine) Backup(path string) error {
	return e.store.Backup(path)
}

// Close closes the underlying connection exactly once.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.store.Close()
}

// now returns the timestamp format stamped into soft-delete columns.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

var _ core.Executor = (*Engine)(nil)
