// Package migrate applies and reverts versioned schema-change units,
// tracked in a persistent ledger table keyed by migration name. The runner
// works from an in-memory list of descriptors; discovering and loading
// them from disk is a separate collaborator (see loader.go).
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/leapstack-labs/strata/pkg/core"
)

// LedgerTable is the persisted ledger's table name, created on first use.
const LedgerTable = "migrations"

const createLedger = `CREATE TABLE IF NOT EXISTS migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	executed_at DATETIME NOT NULL
)`

// Runner applies migration units against the data-access layer.
//
// A unit's procedure and its ledger write are separate statements, not one
// atomic sequence: a crash mid-migration can leave the ledger inconsistent
// with actual schema state. Callers wanting atomicity per unit wrap Run in
// an explicit transaction.
type Runner struct {
	db     core.Executor
	logger *slog.Logger
}

// NewRunner creates a runner bound to the data-access layer.
func NewRunner(db core.Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, logger: logger}
}

// Run executes every unit's procedure for the given direction, exactly
// once per direction per unit.
//
// Up walks the units in lexicographic name order (timestamp-prefixed names
// make that chronological), skipping names already in the ledger, and
// records each success. Down walks applied units in reverse lexicographic
// order — newest first — invoking the down procedure and deleting the
// ledger row. The runner guarantees invocation and ledger bookkeeping
// only; whether a down procedure actually reverts its up is the unit's
// own business.
func (r *Runner) Run(direction core.Direction, migrations []core.Migration) error {
	if err := r.db.Exec(createLedger); err != nil {
		return fmt.Errorf("creating migration ledger: %w", err)
	}

	applied, err := r.appliedSet()
	if err != nil {
		return err
	}

	ordered := make([]core.Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	switch direction {
	case core.DirectionUp:
		for _, m := range ordered {
			if applied[m.Name] {
				continue
			}
			if err := r.apply(m); err != nil {
				return err
			}
		}
	case core.DirectionDown:
		for i := len(ordered) - 1; i >= 0; i-- {
			m := ordered[i]
			if !applied[m.Name] {
				continue
			}
			if err := r.revert(m); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	return nil
}

func (r *Runner) apply(m core.Migration) error {
	if m.Up == nil {
		return fmt.Errorf("migration %q has no up procedure", m.Name)
	}
	if err := m.Up(r.db); err != nil {
		return fmt.Errorf("migration %q up: %w", m.Name, err)
	}
	if err := r.db.Exec(
		"INSERT INTO migrations (name, executed_at) VALUES (?, ?)",
		m.Name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration %q: %w", m.Name, err)
	}
	r.logger.Info("migration applied", "name", m.Name)
	return nil
}

func (r *Runner) revert(m core.Migration) error {
	if m.Down == nil {
		return fmt.Errorf("migration %q has no down procedure", m.Name)
	}
	if err := m.Down(r.db); err != nil {
		return fmt.Errorf("migration %q down: %w", m.Name, err)
	}
	if err := r.db.Exec("DELETE FROM migrations WHERE name = ?", m.Name); err != nil {
		return fmt.Errorf("unrecording migration %q: %w", m.Name, err)
	}
	r.logger.Info("migration reverted", "name", m.Name)
	return nil
}

// Applied returns the ledger contents in application order.
func (r *Runner) Applied() ([]core.MigrationRecord, error) {
	if err := r.db.Exec(createLedger); err != nil {
		return nil, fmt.Errorf("creating migration ledger: %w", err)
	}

	rows, err := r.db.Query("SELECT id, name, executed_at FROM migrations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("reading migration ledger: %w", err)
	}

	records := make([]core.MigrationRecord, 0, len(rows))
	for _, row := range rows {
		rec := core.MigrationRecord{}
		if id, ok := row["id"].(int64); ok {
			rec.ID = id
		}
		if name, ok := row["name"].(string); ok {
			rec.Name = name
		}
		// The column is declared DATETIME, so the driver scans it as
		// time.Time; older ledgers written through other drivers may
		// hand back the stored text instead.
		switch at := row["executed_at"].(type) {
		case time.Time:
			rec.ExecutedAt = at.UTC().Format(time.RFC3339)
		case string:
			rec.ExecutedAt = at
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *Runner) appliedSet() (map[string]bool, error) {
	records, err := r.Applied()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.Name] = true
	}
	return set, nil
}
