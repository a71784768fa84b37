package schema

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/strata/internal/storage"
	"github.com/leapstack-labs/strata/internal/testutil"
	"github.com/leapstack-labs/strata/pkg/core"
)

func setupRegistry(t *testing.T) (*Registry, *storage.SQLite) {
	t.Helper()
	store, err := storage.Open(storage.Config{Path: ":memory:", BusyTimeout: 1, ForeignKeys: true})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, testutil.NewLogger(t)), store
}

func usersSchema() core.TableSchema {
	return core.TableSchema{
		"id":         {Type: core.TypeInteger, Primary: true},
		"email":      {Type: core.TypeText, Unique: true, NotNull: true},
		"name":       {Type: core.TypeText, Indexed: true},
		"deleted_at": {Type: core.TypeDatetime, SoftDelete: true},
	}
}

func TestRegistry_Define(t *testing.T) {
	r, store := setupRegistry(t)

	if err := r.Define("users", usersSchema()); err != nil {
		t.Fatalf("define failed: %v", err)
	}

	// Table and index exist in storage.
	rows, err := store.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'`)
	if err != nil || len(rows) != 1 {
		t.Fatalf("table not created: rows=%v err=%v", rows, err)
	}
	rows, err = store.Query(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_users_name'`)
	if err != nil || len(rows) != 1 {
		t.Fatalf("index not created: rows=%v err=%v", rows, err)
	}

	// Registered schema is retrievable.
	sch, err := r.Get("users")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if sch.SoftDeleteColumn() != "deleted_at" {
		t.Errorf("soft delete column: got %q", sch.SoftDeleteColumn())
	}
}

func TestRegistry_DefineIdempotent(t *testing.T) {
	r, store := setupRegistry(t)

	if err := r.Define("users", usersSchema()); err != nil {
		t.Fatalf("first define failed: %v", err)
	}
	if _, err := store.Exec(`INSERT INTO users (email) VALUES ('a@b.com')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Re-defining overwrites the in-memory schema but the DDL is a no-op:
	// existing rows survive.
	if err := r.Define("users", usersSchema()); err != nil {
		t.Fatalf("second define failed: %v", err)
	}
	rows, err := store.Query(`SELECT COUNT(*) AS n FROM users`)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n := rows[0]["n"].(int64); n != 1 {
		t.Errorf("expected 1 surviving row, got %d", n)
	}
}

func TestRegistry_DefineRejections(t *testing.T) {
	r, _ := setupRegistry(t)

	tests := []struct {
		name   string
		table  string
		schema core.TableSchema
	}{
		{
			name:   "unknown column type",
			table:  "bad",
			schema: core.TableSchema{"x": {Type: "varchar"}},
		},
		{
			name:  "multiple soft delete columns",
			table: "bad",
			schema: core.TableSchema{
				"a": {Type: core.TypeDatetime, SoftDelete: true},
				"b": {Type: core.TypeDatetime, SoftDelete: true},
			},
		},
		{
			name:   "empty schema",
			table:  "bad",
			schema: core.TableSchema{},
		},
		{
			name:   "incomplete foreign key",
			table:  "bad",
			schema: core.TableSchema{"x": {Type: core.TypeInteger, ForeignKey: &core.ForeignKey{Table: "users"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Define(tt.table, tt.schema)
			var schemaErr *core.SchemaError
			if !errors.As(err, &schemaErr) {
				t.Errorf("expected SchemaError, got %v", err)
			}
		})
	}
}

func TestRegistry_GetUnknownTable(t *testing.T) {
	r, _ := setupRegistry(t)

	_, err := r.Get("nope")
	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestRegistry_Alter(t *testing.T) {
	r, store := setupRegistry(t)

	if err := r.Define("users", usersSchema()); err != nil {
		t.Fatalf("define failed: %v", err)
	}
	if err := r.Alter("users", core.TableSchema{
		"age": {Type: core.TypeInteger, Indexed: true},
	}); err != nil {
		t.Fatalf("alter failed: %v", err)
	}

	if _, err := store.Exec(`INSERT INTO users (email, age) VALUES ('a@b.com', 30)`); err != nil {
		t.Fatalf("insert with new column failed: %v", err)
	}

	sch, _ := r.Get("users")
	if _, ok := sch["age"]; !ok {
		t.Error("new column not merged into registered schema")
	}
}

func TestRegistry_AlterDuplicateColumn(t *testing.T) {
	r, _ := setupRegistry(t)

	if err := r.Define("users", usersSchema()); err != nil {
		t.Fatalf("define failed: %v", err)
	}
	err := r.Alter("users", core.TableSchema{"email": {Type: core.TypeText}})
	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("expected SchemaError for duplicate column, got %v", err)
	}
}

func TestRegistry_DropColumn(t *testing.T) {
	r, store := setupRegistry(t)

	if err := r.Define("users", usersSchema()); err != nil {
		t.Fatalf("define failed: %v", err)
	}
	if _, err := store.Exec(`INSERT INTO users (email, name) VALUES ('a@b.com', 'Ada')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := r.DropColumn("users", "name"); err != nil {
		t.Fatalf("drop column failed: %v", err)
	}

	// Surviving columns keep their data; the dropped column is gone.
	rows, err := store.Query(`SELECT * FROM users`)
	if err != nil {
		t.Fatalf("query after rebuild failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after rebuild, got %d", len(rows))
	}
	if rows[0]["email"] != "a@b.com" {
		t.Errorf("email not copied: %v", rows[0]["email"])
	}
	if _, ok := rows[0]["name"]; ok {
		t.Error("dropped column still present")
	}

	sch, _ := r.Get("users")
	if _, ok := sch["name"]; ok {
		t.Error("dropped column still registered")
	}
}

func TestRegistry_DropUnknownColumn(t *testing.T) {
	r, _ := setupRegistry(t)

	if err := r.Define("users", usersSchema()); err != nil {
		t.Fatalf("define failed: %v", err)
	}
	err := r.DropColumn("users", "nope")
	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("expected SchemaError, got %v", err)
	}
}

func TestBuildCreateTable_ForeignKey(t *testing.T) {
	sch := core.TableSchema{
		"id": {Type: core.TypeInteger, Primary: true},
		"user_id": {Type: core.TypeInteger, ForeignKey: &core.ForeignKey{
			Table: "users", Column: "id", OnDelete: "CASCADE",
		}},
	}

	ddl := buildCreateTable("posts", sch)
	want := `CREATE TABLE IF NOT EXISTS "posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "user_id" INTEGER, FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE)`
	if ddl != want {
		t.Errorf("ddl mismatch:\n got  %s\n want %s", ddl, want)
	}
}
