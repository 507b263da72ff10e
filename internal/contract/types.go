// Package contract defines the data model shared by the inference engine and
// the tool surface: inferred schemas, quality metrics, table descriptors, and
// the contract documents assembled from them.
//
// The types here need to live in a place the probe, introspect, and relation
// packages can all import without circular deps. Everything is request-scoped
// and treated as immutable once built.
package contract

// FieldType is the shared type vocabulary. File-based inference and database
// type normalization both emit exactly these values so schemas from either
// source are comparable.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeInteger   FieldType = "integer"
	TypeDecimal   FieldType = "decimal"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
)

// Numeric grouping conventions reported on decimal fields.
const (
	ConventionUS       = "us"       // 1,234.56
	ConventionEuropean = "european" // 1.234,56
)

// FieldSchema describes one column of a source.
//
// InferredType is the narrowest type consistent with every non-null sample.
// When no single type is consistent, InferredType is TypeString and Ambiguous
// is true — inference always produces a best-effort schema rather than fail.
type FieldSchema struct {
	Name         string    `json:"name"`
	InferredType FieldType `json:"inferred_type"`
	Nullable     bool      `json:"nullable"`
	Ambiguous    bool      `json:"ambiguous"`
	SampleValues []string  `json:"sample_values,omitempty"`

	// Format carries the resolved numeric grouping convention ("us" or
	// "european") for decimal columns; empty otherwise.
	Format string `json:"format,omitempty"`

	// Layout is the reference layout every sampled value of a date or
	// timestamp column parsed under; empty for other types.
	Layout string `json:"layout,omitempty"`

	// NativeType is the backend catalog type name for database columns
	// (e.g. "character varying", "BIGINT"); empty for file sources.
	NativeType string `json:"native_type,omitempty"`
}

// SourceSchema is the ordered column list of one source. Column order is
// preserved exactly as observed.
type SourceSchema []FieldSchema

// FieldNames returns the column names in schema order.
func (s SourceSchema) FieldNames() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// TypeNames returns the inferred type of each column, in schema order.
func (s SourceSchema) TypeNames() []string {
	types := make([]string, len(s))
	for i, f := range s {
		types[i] = string(f.InferredType)
	}
	return types
}

// Quality issue codes, in the order the profiler detects them.
const (
	IssueEncodingFallback    = "encoding_fallback"
	IssueBOMStripped         = "bom_stripped"
	IssueInconsistentColumns = "inconsistent_columns"
	IssueUnparsableRow       = "unparsable_row"
	IssueAmbiguousColumn     = "ambiguous_column"
	IssueEmptyTable          = "empty_table"
	IssueNullableColumns     = "nullable_columns"
)

// QualityIssue is one deterministic finding about a source.
type QualityIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// QualityMetrics summarizes how much of the source was seen and what was
// wrong with it.
type QualityMetrics struct {
	RowCount        int64          `json:"row_count"`
	SampledRowCount int            `json:"sampled_row_count"`
	Issues          []QualityIssue `json:"issues"`
	SampleData      [][]string     `json:"sample_data,omitempty"`
}

// ForeignKey is one outgoing reference from a table.
type ForeignKey struct {
	ConstraintName  string   `json:"constraint_name,omitempty"`
	Columns         []string `json:"columns"`
	ReferredTable   string   `json:"referred_table"`
	ReferredColumns []string `json:"referred_columns"`
	ReferredSchema  string   `json:"referred_schema,omitempty"`
}

// TableDescriptor is the introspected shape of one database table, mapped
// into the shared vocabulary. Immutable once built.
type TableDescriptor struct {
	Name        string       `json:"name"`
	SchemaName  string       `json:"schema_name,omitempty"`
	Columns     SourceSchema `json:"columns"`
	PrimaryKey  []string     `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// TableSummary is the list_tables view of a table. RowCount and ColumnCount
// are nil when the counting query failed; they otherwise match what
// DescribeTable reports for the same table.
type TableSummary struct {
	Name              string   `json:"name"`
	Schema            string   `json:"schema,omitempty"`
	Type              string   `json:"type"` // "table" | "view"
	HasPrimaryKey     bool     `json:"has_primary_key"`
	PrimaryKeyColumns []string `json:"primary_key_columns"`
	RowCount          *int64   `json:"row_count"`
	ColumnCount       *int     `json:"column_count"`
}
