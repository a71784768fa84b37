package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/strata/internal/storage"
	"github.com/leapstack-labs/strata/internal/testutil"
	"github.com/leapstack-labs/strata/pkg/core"
)

// storeExec adapts the storage engine to the executor surface the runner
// wants, the same shape the data-access layer presents in production.
type storeExec struct {
	store storage.Engine
}

func (s storeExec) Exec(query string, args ...any) error {
	_, err := s.store.Exec(query, args...)
	return err
}

func (s storeExec) Query(query string, args ...any) ([]core.Row, error) {
	return s.store.Query(query, args...)
}

func setupRunner(t *testing.T) (*Runner, core.Executor) {
	t.Helper()

	store, err := storage.Open(storage.Config{
		Path:        filepath.Join(t.TempDir(), "migrate.db"),
		BusyTimeout: 5,
		ForeignKeys: true,
	})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	db := storeExec{store: store}
	return NewRunner(db, testutil.NewLogger(t)), db
}

// tableMigration returns a unit whose up creates a table and whose down
// drops it, recording every invocation in order.
func tableMigration(name, table string, calls *[]string) core.Migration {
	return core.Migration{
		Name: name,
		Up: func(db core.Executor) error {
			*calls = append(*calls, name+":up")
			return db.Exec(fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY)", table))
		},
		Down: func(db core.Executor) error {
			*calls = append(*calls, name+":down")
			return db.Exec(fmt.Sprintf("DROP TABLE %s", table))
		},
	}
}

func TestRunner_UpIsIdempotent(t *testing.T) {
	runner, _ := setupRunner(t)

	var calls []string
	migrations := []core.Migration{
		tableMigration("20240101_create_users", "users", &calls),
		tableMigration("20240102_create_posts", "posts", &calls),
	}

	for i := 0; i < 3; i++ {
		if err := runner.Run(core.DirectionUp, migrations); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(calls) != 2 {
		t.Errorf("expected each up to run exactly once, got calls %v", calls)
	}

	records, err := runner.Applied()
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(records))
	}
	if records[0].Name != "20240101_create_users" || records[1].Name != "20240102_create_posts" {
		t.Errorf("ledger out of order: %v", records)
	}
	for _, rec := range records {
		if _, err := time.Parse(time.RFC3339, rec.ExecutedAt); err != nil {
			t.Errorf("executed_at on %q not an RFC3339 timestamp: %q", rec.Name, rec.ExecutedAt)
		}
	}
}

func TestRunner_DownRunsNewestFirst(t *testing.T) {
	runner, _ := setupRunner(t)

	var calls []string
	migrations := []core.Migration{
		tableMigration("20240101_a", "a", &calls),
		tableMigration("20240102_b", "b", &calls),
		tableMigration("20240103_c", "c", &calls),
	}

	if err := runner.Run(core.DirectionUp, migrations); err != nil {
		t.Fatalf("up: %v", err)
	}
	calls = nil

	if err := runner.Run(core.DirectionDown, migrations); err != nil {
		t.Fatalf("down: %v", err)
	}

	want := []string{"20240103_c:down", "20240102_b:down", "20240101_a:down"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}

	records, err := runner.Applied()
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty ledger after full down, got %v", records)
	}
}

func TestRunner_DownSkipsUnapplied(t *testing.T) {
	runner, _ := setupRunner(t)

	var calls []string
	first := tableMigration("20240101_a", "a", &calls)
	second := tableMigration("20240102_b", "b", &calls)

	if err := runner.Run(core.DirectionUp, []core.Migration{first}); err != nil {
		t.Fatalf("up: %v", err)
	}
	calls = nil

	if err := runner.Run(core.DirectionDown, []core.Migration{first, second}); err != nil {
		t.Fatalf("down: %v", err)
	}

	if len(calls) != 1 || calls[0] != "20240101_a:down" {
		t.Errorf("expected only the applied unit to revert, got %v", calls)
	}
}

func TestRunner_MissingDownProcedure(t *testing.T) {
	runner, _ := setupRunner(t)

	m := core.Migration{
		Name: "20240101_one_way",
		Up: func(db core.Executor) error {
			return db.Exec("CREATE TABLE one_way (id INTEGER PRIMARY KEY)")
		},
	}

	if err := runner.Run(core.DirectionUp, []core.Migration{m}); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := runner.Run(core.DirectionDown, []core.Migration{m}); err == nil {
		t.Error("expected error running down without a down procedure")
	}
}

func TestRunner_UnknownDirection(t *testing.T) {
	runner, _ := setupRunner(t)

	if err := runner.Run(core.Direction("sideways"), nil); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("20240102_add_posts.up.sql", "CREATE TABLE posts (id INTEGER PRIMARY KEY)")
	write("20240102_add_posts.down.sql", "DROP TABLE posts")
	write("20240101_add_users.up.sql", "CREATE TABLE users (id INTEGER PRIMARY KEY)")
	write("notes.txt", "ignored")

	migrations, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 units, got %d", len(migrations))
	}
	if migrations[0].Name != "20240101_add_users" || migrations[1].Name != "20240102_add_posts" {
		t.Errorf("units out of order: %v, %v", migrations[0].Name, migrations[1].Name)
	}
	if migrations[0].Down != nil {
		t.Error("expected nil down for unit without a down file")
	}
	if migrations[1].Down == nil {
		t.Error("expected down procedure for unit with a down file")
	}

	runner, db := setupRunner(t)
	if err := runner.Run(core.DirectionUp, migrations); err != nil {
		t.Fatalf("running loaded units: %v", err)
	}
	if _, err := db.Query("SELECT * FROM users"); err != nil {
		t.Errorf("users table missing after migration: %v", err)
	}
	if _, err := db.Query("SELECT * FROM posts"); err != nil {
		t.Errorf("posts table missing after migration: %v", err)
	}
}

func TestLoadDir_DownWithoutUp(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20240101_orphan.down.sql"), []byte("DROP TABLE x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadDir(dir); err == nil {
		t.Error("expected error for down file without matching up file")
	}
}

func TestLoadDir_EmptyFileIsNoOp(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20240101_blank.up.sql"), []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	migrations, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	runner, _ := setupRunner(t)
	if err := runner.Run(core.DirectionUp, migrations); err != nil {
		t.Errorf("empty unit should apply cleanly: %v", err)
	}
}
