package core

// Row is a runtime record: a mapping from column name to value. Its shape
// is not statically checked beyond what a registered validator enforces.
type Row map[string]any

// ColumnType is the declared storage type of a column.
type ColumnType string

const (
	TypeText     ColumnType = "text"
	TypeInteger  ColumnType = "integer"
	TypeReal     ColumnType = "real"
	TypeBlob     ColumnType = "blob"
	TypeNull     ColumnType = "null"
	TypeDatetime ColumnType = "datetime"
)

// Valid reports whether t is one of the recognized column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeText, TypeInteger, TypeReal, TypeBlob, TypeNull, TypeDatetime:
		return true
	}
	return false
}

// ForeignKey declares a reference to another table's column, with optional
// referential actions ("CASCADE", "SET NULL", "RESTRICT", "NO ACTION").
type ForeignKey struct {
	Table    string
	Column   string
	OnDelete string
	OnUpdate string
}

// ColumnDefinition captures the full recognized flag set for one column.
// JSON and Encrypted may both be set; the codec serializes to JSON first and
// encrypts the serialized text, so ciphertext is what reaches storage.
type ColumnDefinition struct {
	Type       ColumnType
	Primary    bool
	Unique     bool
	NotNull    bool
	Default    any
	Encrypted  bool
	Indexed    bool
	JSON       bool
	SoftDelete bool
	ForeignKey *ForeignKey
}

// TableSchema maps column names to their definitions. Column names are
// unique by construction; at most one column may carry SoftDelete, which is
// enforced at registration time.
type TableSchema map[string]ColumnDefinition

// SoftDeleteColumn returns the name of the soft-delete column, or "" if the
// schema declares none.
func (s TableSchema) SoftDeleteColumn() string {
	for name, def := range s {
		if def.SoftDelete {
			return name
		}
	}
	return ""
}

// FindOptions tune read queries. The zero value means: exclude soft-deleted
// rows, no ordering, no limit, no offset.
type FindOptions struct {
	// OrderBy names a single column to sort by. It must be declared in the
	// table schema; the builder rejects unknown columns because ORDER BY
	// terms are interpolated as literal SQL text, not bound parameters.
	OrderBy string

	// Descending sorts in descending order when OrderBy is set.
	Descending bool

	// Limit caps the number of returned rows when > 0.
	Limit int

	// Offset skips rows when > 0. SQLite requires a LIMIT clause for
	// OFFSET; the builder emits LIMIT -1 when only Offset is set.
	Offset int

	// IncludeDeleted disables the implicit soft-delete filter.
	IncludeDeleted bool
}
