package engine

import (
	"fmt"

	"github.com/leapstack-labs/strata/pkg/core"
)

// Tx is a caller-driven transaction handle. The connection pool is pinned
// to one connection, so a transaction is a coarse critical section over the
// whole engine: every operation issued between Begin and Commit/Rollback
// participates, and operations outside any transaction auto-commit.
//
// There is no automatic rollback when something fails between Begin and
// Commit. The caller owns every failure path and must invoke Rollback
// there; that is the contract, not an implementation gap.
type Tx struct {
	engine *Engine
	done   bool
}

// Begin starts a transaction with a literal BEGIN statement. Transactions
// do not nest; beginning while one is active is a storage-level error.
func (e *Engine) Begin() (*Tx, error) {
	if _, err := e.store.Exec("BEGIN"); err != nil {
		return nil, err
	}
	e.logger.Debug("transaction started")
	return &Tx{engine: e}, nil
}

// Commit makes the transaction's writes durable and publishes the commit
// lifecycle event. Calling it on a finished handle is an error.
func (t *Tx) Commit() error {
	if err := t.finish("COMMIT"); err != nil {
		return err
	}
	return t.engine.bus.Publish(core.Event{Topic: core.TopicCommit})
}

// Rollback discards the transaction's writes and publishes the rollback
// lifecycle event. Calling it on a finished handle is an error.
func (t *Tx) Rollback() error {
	if err := t.finish("ROLLBACK"); err != nil {
		return err
	}
	return t.engine.bus.Publish(core.Event{Topic: core.TopicRollback})
}

func (t *Tx) finish(stmt string) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if _, err := t.engine.store.Exec(stmt); err != nil {
		return err
	}
	t.done = true
	t.engine.logger.Debug("transaction finished", "stmt", stmt)
	return nil
}
