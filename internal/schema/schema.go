// Package schema holds each table's column definitions and generates DDL
// from them. The registry is the source of truth for how values are coded
// and which columns queries may reference.
package schema

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/strata/internal/storage"
	"github.com/leapstack-labs/strata/pkg/core"
)

// Registry owns the table-name to schema mapping for the lifetime of one
// data-access instance. It is not safe for concurrent use; the layer runs
// a single-threaded, synchronous model.
type Registry struct {
	store  storage.Engine
	tables map[string]core.TableSchema
	logger *slog.Logger
}

// New creates an empty registry bound to the storage engine.
func New(store storage.Engine, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		tables: make(map[string]core.TableSchema),
		logger: logger,
	}
}

// Define registers a table schema and issues idempotent DDL: CREATE TABLE
// IF NOT EXISTS plus any declared indices. Re-defining an existing name
// replaces the in-memory schema, but the DDL is a no-op if the table
// already exists — drift between memory and storage is possible and not
// detected here.
func (r *Registry) Define(name string, schema core.TableSchema) error {
	if err := validate(name, schema); err != nil {
		return err
	}

	ddl := buildCreateTable(name, schema)
	if _, err := r.store.Exec(ddl); err != nil {
		return err
	}

	for _, stmt := range buildIndexes(name, schema) {
		if _, err := r.store.Exec(stmt); err != nil {
			return err
		}
	}

	r.tables[name] = schema
	r.logger.Debug("table defined", "table", name, "columns", len(schema))
	return nil
}

// Alter adds columns to an existing table and merges them into the
// in-memory schema. SQLite rejects some additions (NOT NULL without a
// default on a non-empty table); such errors surface unmodified.
func (r *Registry) Alter(name string, newColumns core.TableSchema) error {
	schema, err := r.Get(name)
	if err != nil {
		return err
	}

	for _, col := range sortedColumns(newColumns) {
		def := newColumns[col]
		if !def.Type.Valid() {
			return &core.SchemaError{Table: name, Reason: fmt.Sprintf("column %q has unknown type %q", col, def.Type)}
		}
		if _, exists := schema[col]; exists {
			return &core.SchemaError{Table: name, Reason: fmt.Sprintf("column %q already defined", col)}
		}

		stmt := fmt.Sprintf("ALTER TABLE %q ADD COLUMN %s", name, columnSQL(col, def))
		if _, err := r.store.Exec(stmt); err != nil {
			return err
		}
		schema[col] = def
	}

	for _, stmt := range buildIndexes(name, newColumns) {
		if _, err := r.store.Exec(stmt); err != nil {
			return err
		}
	}

	r.tables[name] = schema
	return nil
}

// DropColumn removes a column by rebuilding the table: create a temporary
// table with the reduced schema, copy the surviving columns, drop the
// original, rename the temporary into place.
//
// The sequence is not atomic on its own; a crash between steps leaves the
// table unusable. Callers needing atomicity must wrap the call in an
// explicit transaction. That is a contract, not an internal guarantee.
func (r *Registry) DropColumn(name, column string) error {
	schema, err := r.Get(name)
	if err != nil {
		return err
	}
	if _, ok := schema[column]; !ok {
		return &core.SchemaError{Table: name, Reason: fmt.Sprintf("column %q not defined", column)}
	}

	reduced := make(core.TableSchema, len(schema)-1)
	for col, def := range schema {
		if col != column {
			reduced[col] = def
		}
	}

	tmp := name + "_rebuild"
	cols := sortedColumns(reduced)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	colList := strings.Join(quoted, ", ")

	steps := []string{
		buildCreateTableAs(tmp, reduced),
		fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q", tmp, colList, colList, name),
		fmt.Sprintf("DROP TABLE %q", name),
		fmt.Sprintf("ALTER TABLE %q RENAME TO %q", tmp, name),
	}
	for _, stmt := range steps {
		if _, err := r.store.Exec(stmt); err != nil {
			return err
		}
	}

	for _, stmt := range buildIndexes(name, reduced) {
		if _, err := r.store.Exec(stmt); err != nil {
			return err
		}
	}

	r.tables[name] = reduced
	r.logger.Debug("column dropped", "table", name, "column", column)
	return nil
}

// Get returns the registered schema for name.
func (r *Registry) Get(name string) (core.TableSchema, error) {
	schema, ok := r.tables[name]
	if !ok {
		return nil, &core.SchemaError{Table: name, Reason: "not defined"}
	}
	return schema, nil
}

// Tables returns the registered table names in sorted order.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate rejects malformed definitions at registration time rather than
// trusting them ad hoc. More than one soft-delete column is rejected
// outright: delete rewriting needs a single unambiguous target.
func validate(name string, schema core.TableSchema) error {
	if name == "" {
		return &core.SchemaError{Table: name, Reason: "empty table name"}
	}
	if len(schema) == 0 {
		return &core.SchemaError{Table: name, Reason: "no columns defined"}
	}

	softDelete := ""
	for col, def := range schema {
		if col == "" {
			return &core.SchemaError{Table: name, Reason: "empty column name"}
		}
		if !def.Type.Valid() {
			return &core.SchemaError{Table: name, Reason: fmt.Sprintf("column %q has unknown type %q", col, def.Type)}
		}
		if def.SoftDelete {
			if softDelete != "" {
				return &core.SchemaError{Table: name, Reason: fmt.Sprintf("multiple soft-delete columns: %q and %q", softDelete, col)}
			}
			softDelete = col
		}
		if fk := def.ForeignKey; fk != nil && (fk.Table == "" || fk.Column == "") {
			return &core.SchemaError{Table: name, Reason: fmt.Sprintf("column %q has incomplete foreign key", col)}
		}
	}
	return nil
}
