package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/strata/pkg/core"
)

// sqlType maps declared column types to SQLite storage classes. DATETIME
// is an affinity alias SQLite resolves to NUMERIC; it is kept verbatim so
// generated DDL reads the way the definition was written.
var sqlType = map[core.ColumnType]string{
	core.TypeText:     "TEXT",
	core.TypeInteger:  "INTEGER",
	core.TypeReal:     "REAL",
	core.TypeBlob:     "BLOB",
	core.TypeNull:     "NULL",
	core.TypeDatetime: "DATETIME",
}

// sortedColumns returns column names with primary-key columns first, then
// the rest alphabetically. Go maps are unordered; DDL must be
// deterministic for tests and for readable schema dumps.
func sortedColumns(schema core.TableSchema) []string {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := schema[names[i]].Primary, schema[names[j]].Primary
		if pi != pj {
			return pi
		}
		return names[i] < names[j]
	})
	return names
}

func buildCreateTable(name string, schema core.TableSchema) string {
	return buildCreateTableAs(name, schema)
}

func buildCreateTableAs(name string, schema core.TableSchema) string {
	cols := sortedColumns(schema)
	defs := make([]string, 0, len(cols)+len(schema))
	for _, col := range cols {
		defs = append(defs, columnSQL(col, schema[col]))
	}
	for _, col := range cols {
		if fk := schema[col].ForeignKey; fk != nil {
			defs = append(defs, foreignKeySQL(col, fk))
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", name, strings.Join(defs, ", "))
}

// columnSQL renders one column definition clause.
func columnSQL(col string, def core.ColumnDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q %s", col, sqlType[def.Type])

	if def.Primary {
		b.WriteString(" PRIMARY KEY")
		if def.Type == core.TypeInteger {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if def.Unique && !def.Primary {
		b.WriteString(" UNIQUE")
	}
	if def.NotNull {
		b.WriteString(" NOT NULL")
	}
	if def.Default != nil {
		fmt.Fprintf(&b, " DEFAULT %s", defaultLiteral(def.Default))
	}
	return b.String()
}

func foreignKeySQL(col string, fk *core.ForeignKey) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FOREIGN KEY (%q) REFERENCES %q (%q)", col, fk.Table, fk.Column)
	if fk.OnDelete != "" {
		fmt.Fprintf(&b, " ON DELETE %s", fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		fmt.Fprintf(&b, " ON UPDATE %s", fk.OnUpdate)
	}
	return b.String()
}

// defaultLiteral renders a default value as a SQL literal. Strings are
// single-quoted with embedded quotes doubled; everything else renders via
// fmt. CURRENT_TIMESTAMP passes through as a keyword.
func defaultLiteral(v any) string {
	switch val := v.(type) {
	case string:
		if strings.EqualFold(val, "CURRENT_TIMESTAMP") {
			return "CURRENT_TIMESTAMP"
		}
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// buildIndexes renders CREATE INDEX statements for every indexed column.
func buildIndexes(table string, schema core.TableSchema) []string {
	var stmts []string
	for _, col := range sortedColumns(schema) {
		def := schema[col]
		if !def.Indexed {
			continue
		}
		unique := ""
		if def.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE %sINDEX IF NOT EXISTS %q ON %q (%q)",
			unique, fmt.Sprintf("idx_%s_%s", table, col), table, col,
		))
	}
	return stmts
}
