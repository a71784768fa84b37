package validate

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/strata/pkg/core"
)

// SchemaValidator is the built-in Validator derived from a table schema:
// required-column checks on full parses plus weak type coercion of every
// provided value toward its declared column type. Applications with richer
// rules register their own Validator instead.
type SchemaValidator struct {
	table  string
	schema core.TableSchema
}

// ForSchema builds a SchemaValidator for one table.
func ForSchema(table string, schema core.TableSchema) *SchemaValidator {
	return &SchemaValidator{table: table, schema: schema}
}

// Parse validates a full payload: every NOT NULL column without a default
// (primary keys excluded, the engine assigns those) must be present and
// non-nil, and every provided value must coerce to its declared type.
func (v *SchemaValidator) Parse(payload core.Row) (core.Row, error) {
	var issues []core.Issue
	for col, def := range v.schema {
		if !def.NotNull || def.Default != nil || def.Primary {
			continue
		}
		if val, ok := payload[col]; !ok || val == nil {
			issues = append(issues, core.Issue{Field: col, Message: "required"})
		}
	}
	return v.coerceAll(payload, issues)
}

// ParsePartial validates an update payload: only the provided columns are
// checked, and none are required.
func (v *SchemaValidator) ParsePartial(payload core.Row) (core.Row, error) {
	return v.coerceAll(payload, nil)
}

func (v *SchemaValidator) coerceAll(payload core.Row, issues []core.Issue) (core.Row, error) {
	out := make(core.Row, len(payload))
	for col, val := range payload {
		def, known := v.schema[col]
		if !known {
			issues = append(issues, core.Issue{Field: col, Message: "not a declared column"})
			continue
		}
		coerced, err := coerce(val, def)
		if err != nil {
			issues = append(issues, core.Issue{Field: col, Message: err.Error()})
			continue
		}
		out[col] = coerced
	}

	if len(issues) > 0 {
		return nil, &core.ValidationError{Table: v.table, Issues: issues}
	}
	return out, nil
}

// coerce converts a value toward the declared column type using weak
// decoding, so "42" satisfies an integer column and 1 satisfies text. JSON
// columns accept any serializable value and are left to the codec.
func coerce(val any, def core.ColumnDefinition) (any, error) {
	if val == nil || def.JSON {
		return val, nil
	}

	switch def.Type {
	case core.TypeInteger:
		var n int64
		if err := weakDecode(val, &n); err != nil {
			return nil, fmt.Errorf("not an integer: %v", val)
		}
		return n, nil
	case core.TypeReal:
		var f float64
		if err := weakDecode(val, &f); err != nil {
			return nil, fmt.Errorf("not a number: %v", val)
		}
		return f, nil
	case core.TypeText:
		var s string
		if err := weakDecode(val, &s); err != nil {
			return nil, fmt.Errorf("not text: %v", val)
		}
		return s, nil
	case core.TypeBlob:
		switch b := val.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
		return nil, fmt.Errorf("not a blob: %v", val)
	case core.TypeDatetime:
		switch t := val.(type) {
		case time.Time:
			return t, nil
		case string:
			return t, nil
		}
		return nil, fmt.Errorf("not a datetime: %v", val)
	default:
		return val, nil
	}
}

func weakDecode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

var _ Validator = (*SchemaValidator)(nil)
