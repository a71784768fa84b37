package core

import "fmt"

// SchemaError reports an operation against a table the registry does not
// know, or an invalid table definition at registration time.
type SchemaError struct {
	Table  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: table %q: %s", e.Table, e.Reason)
}

// Issue is a single validation finding for one field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError reports a payload rejected by a table's validator.
// It is raised before any SQL is built and before any codec runs.
type ValidationError struct {
	Table  string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("validation failed for table %q", e.Table)
	}
	first := e.Issues[0]
	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation failed for table %q: %s: %s", e.Table, first.Field, first.Message)
	}
	return fmt.Sprintf("validation failed for table %q: %s: %s (and %d more)",
		e.Table, first.Field, first.Message, len(e.Issues)-1)
}

// CodecError reports a failed encode. Decode failures are never surfaced as
// errors: the codec is fail-open on the read path and returns the raw value.
type CodecError struct {
	Column string
	Err    error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: column %q: %v", e.Column, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
