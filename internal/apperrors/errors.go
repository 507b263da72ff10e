// Package apperrors defines the error taxonomy shared by the inference
// engine packages.
//
// Every error here is fatal to the single operation that raised it and never
// to the process: callers map these to tool-level error results or CLI exit
// codes. Typed errors (rather than bare sentinels) are used where the caller
// needs the payload — a cycle error is useless without the stalled tables,
// a not-found error without the table name.
package apperrors

import (
	"fmt"
	"strings"
)

// FormatDetectionError reports that the format/encoding of a file source
// could not be determined: the sample was empty, or no candidate encoding
// decoded it.
type FormatDetectionError struct {
	Reason string
}

func (e *FormatDetectionError) Error() string {
	return "format detection failed: " + e.Reason
}

// SchemaInferenceError reports that no schema could be built for a source:
// zero columns, or zero usable rows.
type SchemaInferenceError struct {
	Reason string
}

func (e *SchemaInferenceError) Error() string {
	return "schema inference failed: " + e.Reason
}

// ConnectionError reports that a database backend could not be reached or
// refused the connection. The wrapped error carries the driver detail;
// callers must sanitize before logging (DSNs may appear in driver messages).
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotFoundError reports that a named introspection target (table, view, or
// query subject) does not exist.
type NotFoundError struct {
	Kind   string // "table", "schema", ...
	Name   string
	Schema string // optional qualifier
}

func (e *NotFoundError) Error() string {
	if e.Schema != "" {
		return fmt.Sprintf("%s %q not found in schema %q", e.Kind, e.Name, e.Schema)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// CycleDetectedError reports a foreign-key cycle among the requested tables.
// Tables holds every node still present when the topological ranker stalled,
// sorted ascending; a wrong load order can corrupt downstream ingestion, so
// this must fail loudly rather than guess.
type CycleDetectedError struct {
	Tables []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("dependency cycle detected among tables: %s", strings.Join(e.Tables, ", "))
}
