// Package query builds parameterized SQL from a table schema, a payload or
// predicate map, and find options. Builders are stateless; every call gets
// the schema it should consult.
//
// The predicate language is deliberately small: conjunctions of
// column-equals-value terms. No disjunction, no ranges, no nesting.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/strata/pkg/core"
)

// Query is a SQL statement paired with its bound values.
type Query struct {
	SQL  string
	Args []any
}

// Select builds a read query. When the schema declares a soft-delete column
// and opts does not include deleted rows, an implicit "col IS NULL"
// predicate is appended.
func Select(table string, schema core.TableSchema, where core.Row, opts core.FindOptions) (Query, error) {
	whereSQL, args := buildWhere(where, softDeleteFilter(schema, opts))

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %q", table)
	b.WriteString(whereSQL)

	if opts.OrderBy != "" {
		// ORDER BY terms are literal SQL text, not bound parameters, so the
		// column must come from the schema and the direction from our own
		// two keywords. Anything else is rejected.
		if _, ok := schema[opts.OrderBy]; !ok {
			return Query{}, &core.SchemaError{Table: table, Reason: fmt.Sprintf("order by unknown column %q", opts.OrderBy)}
		}
		dir := "ASC"
		if opts.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %q %s", opts.OrderBy, dir)
	}

	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	} else if opts.Offset > 0 {
		b.WriteString(" LIMIT -1")
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", opts.Offset)
	}

	return Query{SQL: b.String(), Args: args}, nil
}

// Count builds a COUNT(*) aggregate over the same predicate language.
func Count(table string, schema core.TableSchema, where core.Row, opts core.FindOptions) Query {
	whereSQL, args := buildWhere(where, softDeleteFilter(schema, opts))
	return Query{
		SQL:  fmt.Sprintf("SELECT COUNT(*) AS n FROM %q", table) + whereSQL,
		Args: args,
	}
}

// Insert builds an insert from the payload's keys only. Schema-declared
// columns absent from the payload are omitted; default application is the
// engine's job.
func Insert(table string, payload core.Row) (Query, error) {
	if len(payload) == 0 {
		return Query{}, fmt.Errorf("insert into %q: empty payload", table)
	}

	cols := sortedKeys(payload)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = fmt.Sprintf("%q", col)
		marks[i] = "?"
		args[i] = payload[col]
	}

	sqlText := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return Query{SQL: sqlText, Args: args}, nil
}

// Update sets only the payload-provided columns; the where clause comes
// from a separate equality-only predicate map.
func Update(table string, changes core.Row, where core.Row) (Query, error) {
	if len(changes) == 0 {
		return Query{}, fmt.Errorf("update %q: no changes", table)
	}

	cols := sortedKeys(changes)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(where))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%q = ?", col)
		args = append(args, changes[col])
	}

	whereSQL, whereArgs := buildWhere(where, "")
	args = append(args, whereArgs...)

	sqlText := fmt.Sprintf("UPDATE %q SET %s", table, strings.Join(sets, ", ")) + whereSQL
	return Query{SQL: sqlText, Args: args}, nil
}

// Delete builds a row deletion. When the schema declares a soft-delete
// column the delete is rewritten into an update that stamps the current
// timestamp into that column; only schemas without one issue a literal
// DELETE.
func Delete(table string, schema core.TableSchema, where core.Row, now string) (Query, error) {
	if col := schema.SoftDeleteColumn(); col != "" {
		return Update(table, core.Row{col: now}, where)
	}

	whereSQL, args := buildWhere(where, "")
	return Query{SQL: fmt.Sprintf("DELETE FROM %q", table) + whereSQL, Args: args}, nil
}

// softDeleteFilter returns the column to null-filter on, or "" when the
// schema has none or the caller asked for deleted rows.
func softDeleteFilter(schema core.TableSchema, opts core.FindOptions) string {
	if opts.IncludeDeleted {
		return ""
	}
	return schema.SoftDeleteColumn()
}

// buildWhere renders the conjunctive equality predicate. nullFilter, when
// non-empty, appends "nullFilter IS NULL". An empty predicate yields an
// empty string (matching every row).
func buildWhere(where core.Row, nullFilter string) (string, []any) {
	terms := make([]string, 0, len(where)+1)
	args := make([]any, 0, len(where))
	for _, col := range sortedKeys(where) {
		if where[col] == nil {
			terms = append(terms, fmt.Sprintf("%q IS NULL", col))
			continue
		}
		terms = append(terms, fmt.Sprintf("%q = ?", col))
		args = append(args, where[col])
	}
	if nullFilter != "" {
		terms = append(terms, fmt.Sprintf("%q IS NULL", nullFilter))
	}

	if len(terms) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(terms, " AND "), args
}

func sortedKeys(m core.Row) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
