package engine

import (
	"github.com/leapstack-labs/strata/internal/query"
	"github.com/leapstack-labs/strata/pkg/core"
)

// Insert validates and encodes payload, writes the row, and publishes the
// table's insert event. Schema-declared columns missing from the payload
// are omitted so the engine applies declared defaults. Returns the rowid
// of the inserted row.
func (e *Engine) Insert(table string, payload core.Row) (int64, error) {
	sch, err := e.registry.Get(table)
	if err != nil {
		return 0, err
	}

	payload, err = e.gate.Check(table, payload, false)
	if err != nil {
		return 0, err
	}

	encoded, err := e.codec.EncodeRow(payload, sch)
	if err != nil {
		return 0, err
	}

	q, err := query.Insert(table, encoded)
	if err != nil {
		return 0, err
	}

	res, err := e.store.Exec(q.SQL, q.Args...)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("row inserted", "table", table, "id", res.LastInsertID)
	if err := e.publish(table, core.OpInsert, payload); err != nil {
		return res.LastInsertID, err
	}
	return res.LastInsertID, nil
}

// Find returns every row matching the conjunctive equality predicate,
// decoded per column. Soft-deleted rows are excluded unless the options
// ask for them.
func (e *Engine) Find(table string, where core.Row, opts core.FindOptions) ([]core.Row, error) {
	sch, err := e.registry.Get(table)
	if err != nil {
		return nil, err
	}

	q, err := query.Select(table, sch, e.encodeWhere(where, sch), opts)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.Query(q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}

	decoded := make([]core.Row, len(rows))
	for i, row := range rows {
		decoded[i] = e.codec.DecodeRow(row, sch)
	}
	return decoded, nil
}

// FindOne returns the first matching row, or nil when nothing matches.
func (e *Engine) FindOne(table string, where core.Row, opts core.FindOptions) (core.Row, error) {
	opts.Limit = 1
	rows, err := e.Find(table, where, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Count returns the number of matching rows, honoring soft-delete
// visibility the same way Find does.
func (e *Engine) Count(table string, where core.Row, opts core.FindOptions) (int64, error) {
	sch, err := e.registry.Get(table)
	if err != nil {
		return 0, err
	}

	q := query.Count(table, sch, e.encodeWhere(where, sch), opts)
	rows, err := e.store.Query(q.SQL, q.Args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := rows[0]["n"].(int64)
	return n, nil
}

// Update sets the payload-provided columns on every matching row and
// publishes the table's update event. Returns the affected row count.
func (e *Engine) Update(table string, changes core.Row, where core.Row) (int64, error) {
	sch, err := e.registry.Get(table)
	if err != nil {
		return 0, err
	}

	changes, err = e.gate.Check(table, changes, true)
	if err != nil {
		return 0, err
	}

	encoded, err := e.codec.EncodeRow(changes, sch)
	if err != nil {
		return 0, err
	}

	q, err := query.Update(table, encoded, e.encodeWhere(where, sch))
	if err != nil {
		return 0, err
	}

	res, err := e.store.Exec(q.SQL, q.Args...)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("rows updated", "table", table, "count", res.RowsAffected)
	if err := e.publish(table, core.OpUpdate, changes); err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}

// Delete removes matching rows and publishes the table's delete event.
// On a schema with a soft-delete column the delete becomes an update
// stamping the current timestamp into that column; the rows stay physical
// and default reads stop seeing them.
func (e *Engine) Delete(table string, where core.Row) (int64, error) {
	sch, err := e.registry.Get(table)
	if err != nil {
		return 0, err
	}

	q, err := query.Delete(table, sch, e.encodeWhere(where, sch), now())
	if err != nil {
		return 0, err
	}

	res, err := e.store.Exec(q.SQL, q.Args...)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("rows deleted", "table", table, "count", res.RowsAffected)
	if err := e.publish(table, core.OpDelete, where); err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}

func (e *Engine) publish(table string, op core.Operation, payload core.Row) error {
	return e.bus.Publish(core.Event{
		Topic:   core.Topic{Table: table, Op: op},
		Payload: payload,
	})
}

// encodeWhere serializes JSON predicate values so equality terms compare
// against the stored text form. Encrypted columns are left alone: the
// cipher is nonce-randomized, so two encryptions of the same text never
// match and encoding a predicate could only ever miss.
func (e *Engine) encodeWhere(where core.Row, sch core.TableSchema) core.Row {
	if len(where) == 0 {
		return where
	}
	out := make(core.Row, len(where))
	for col, val := range where {
		def, ok := sch[col]
		if ok && def.JSON && !def.Encrypted {
			if encoded, err := e.codec.Encode(col, val, core.ColumnDefinition{Type: def.Type, JSON: true}); err == nil {
				out[col] = encoded
				continue
			}
		}
		out[col] = val
	}
	return out
}
