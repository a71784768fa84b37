package core

// Direction selects which procedure of a migration unit runs.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Executor is the surface a migration procedure gets to work with. The
// engine facade satisfies it; procedures should not assume anything beyond
// raw statement execution.
type Executor interface {
	// Exec runs a statement that returns no rows.
	Exec(query string, args ...any) error

	// Query runs a statement and returns all result rows.
	Query(query string, args ...any) ([]Row, error)
}

// MigrationFunc is one direction of a migration unit.
type MigrationFunc func(db Executor) error

// Migration is a versioned schema-change unit. Name doubles as the ledger
// key and must be unique; timestamp-prefixed names keep lexicographic order
// chronological. Units are supplied by a loader (see internal/migrate);
// the runner never touches the filesystem itself.
type Migration struct {
	Name string
	Up   MigrationFunc
	Down MigrationFunc
}

// MigrationRecord is one row of the persisted ledger.
type MigrationRecord struct {
	ID         int64
	Name       string
	ExecutedAt string
}
