// Package validate gates writes behind optional per-table validators. A
// rejection surfaces as a core.ValidationError before any SQL is built and
// before any codec runs; tables without a registered validator pass
// through untouched.
package validate

import (
	"github.com/leapstack-labs/strata/pkg/core"
)

// Validator is the validation collaborator. Parse checks a full payload
// (inserts); ParsePartial checks a subset (updates). Both return the
// possibly coerced payload or a structured error.
type Validator interface {
	Parse(payload core.Row) (core.Row, error)
	ParsePartial(payload core.Row) (core.Row, error)
}

// Gate holds the per-table validator registry for one data-access
// instance.
type Gate struct {
	validators map[string]Validator
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{validators: make(map[string]Validator)}
}

// Set registers (or replaces) the validator for a table. A nil validator
// removes the registration.
func (g *Gate) Set(table string, v Validator) {
	if v == nil {
		delete(g.validators, table)
		return
	}
	g.validators[table] = v
}

// Check runs the table's validator over the payload, full or partial.
// Without a registered validator the payload passes through unchanged.
func (g *Gate) Check(table string, payload core.Row, partial bool) (core.Row, error) {
	v, ok := g.validators[table]
	if !ok {
		return payload, nil
	}

	if partial {
		return v.ParsePartial(payload)
	}
	return v.Parse(payload)
}
