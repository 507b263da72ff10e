package contract

import "sort"

// Version is stamped into every generated contract.
const Version = "1.0"

// Contract type discriminators.
const (
	TypeSource         = "source"
	TypeDestination    = "destination"
	TypeTransformation = "transformation"
)

// SchemaSection is the schema block of a source contract: parallel field and
// type lists, in column order.
type SchemaSection struct {
	Fields    []string `json:"fields"`
	DataTypes []string `json:"data_types"`
}

// SourceContract describes one analyzed data source: a file or a database
// table, view, or query. The file and database field groups are mutually
// exclusive; the unused group is omitted from the JSON.
type SourceContract struct {
	ContractVersion string `json:"contract_version"`
	ContractType    string `json:"contract_type"`
	SourceID        string `json:"source_id"`

	// File sources.
	SourcePath string `json:"source_path,omitempty"`
	FileFormat string `json:"file_format,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Delimiter  string `json:"delimiter,omitempty"`
	HasHeader  bool   `json:"has_header"`

	// Database sources. SourceName is empty for query sources; the query
	// text rides in metadata under "query".
	DatabaseType   string `json:"database_type,omitempty"`
	SourceType     string `json:"source_type,omitempty"` // "table" | "view" | "query"
	SourceName     string `json:"source_name,omitempty"`
	DatabaseSchema string `json:"database_schema,omitempty"`

	Schema         SchemaSection  `json:"schema"`
	QualityMetrics QualityMetrics `json:"quality_metrics"`
	Metadata       map[string]any `json:"metadata"`
}

// NewSourceContract assembles a source contract from engine output. The
// detailed per-field schema rides in metadata under "fields" so the flat
// fields/data_types block stays consumable by ingestors that only need names
// and types.
func NewSourceContract(sourceID, sourcePath, fileFormat, encoding, delimiter string, hasHeader bool, schema SourceSchema, quality QualityMetrics, metadata map[string]any) *SourceContract {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["fields"] = schema
	return &SourceContract{
		ContractVersion: Version,
		ContractType:    TypeSource,
		SourceID:        sourceID,
		SourcePath:      sourcePath,
		FileFormat:      fileFormat,
		Encoding:        encoding,
		Delimiter:       delimiter,
		HasHeader:       hasHeader,
		Schema: SchemaSection{
			Fields:    schema.FieldNames(),
			DataTypes: schema.TypeNames(),
		},
		QualityMetrics: quality,
		Metadata:       metadata,
	}
}

// NewDatabaseSourceContract assembles a source contract from database
// introspection output. sourceType is "table", "view", or "query";
// sourceName carries the table or view name and stays empty for queries.
// As with file sources, the per-field schema rides in metadata under
// "fields".
func NewDatabaseSourceContract(sourceID, databaseType, sourceType, sourceName, databaseSchema string, schema SourceSchema, quality QualityMetrics, metadata map[string]any) *SourceContract {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["fields"] = schema
	return &SourceContract{
		ContractVersion: Version,
		ContractType:    TypeSource,
		SourceID:        sourceID,
		DatabaseType:    databaseType,
		SourceType:      sourceType,
		SourceName:      sourceName,
		DatabaseSchema:  databaseSchema,
		Schema: SchemaSection{
			Fields:    schema.FieldNames(),
			DataTypes: schema.TypeNames(),
		},
		QualityMetrics: quality,
		Metadata:       metadata,
	}
}

// DestinationSchema is the schema block of a destination contract.
// Constraints maps field name to constraint strings ("REQUIRED", "ENUM: ...").
type DestinationSchema struct {
	Fields      []string            `json:"fields"`
	Types       []string            `json:"types"`
	Constraints map[string][]string `json:"constraints"`
}

// ValidationRules are the checks an ingestor applies before writing to the
// destination. They are carried, not enforced, by this system.
type ValidationRules struct {
	RequiredFields    []string          `json:"required_fields"`
	UniqueConstraints []string          `json:"unique_constraints"`
	DataRangeChecks   map[string]string `json:"data_range_checks"`
	FormatValidation  map[string]string `json:"format_validation"`
}

// DestinationContract describes where data lands.
type DestinationContract struct {
	ContractVersion string            `json:"contract_version"`
	ContractType    string            `json:"contract_type"`
	DestinationID   string            `json:"destination_id"`
	Schema          DestinationSchema `json:"schema"`
	ValidationRules ValidationRules   `json:"validation_rules"`
	Metadata        map[string]any    `json:"metadata"`
}

// NewDestinationContract assembles a destination contract. Required-field
// validation rules are derived from the schema constraints.
func NewDestinationContract(destinationID string, schema DestinationSchema, metadata map[string]any) *DestinationContract {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if schema.Constraints == nil {
		schema.Constraints = map[string][]string{}
	}
	rules := ValidationRules{
		RequiredFields:    []string{},
		UniqueConstraints: []string{},
		DataRangeChecks:   map[string]string{},
		FormatValidation:  map[string]string{},
	}
	// Rules derive from the constraint map, not the field list, so a
	// constraint on a field missing from the schema still propagates and
	// Validate can flag it.
	constrained := make([]string, 0, len(schema.Constraints))
	for f := range schema.Constraints {
		constrained = append(constrained, f)
	}
	sort.Strings(constrained)
	for _, f := range constrained {
		for _, c := range schema.Constraints[f] {
			if c == "REQUIRED" {
				rules.RequiredFields = append(rules.RequiredFields, f)
			}
			if c == "UNIQUE" {
				rules.UniqueConstraints = append(rules.UniqueConstraints, f)
			}
		}
	}
	return &DestinationContract{
		ContractVersion: Version,
		ContractType:    TypeDestination,
		DestinationID:   destinationID,
		Schema:          schema,
		ValidationRules: rules,
		Metadata:        metadata,
	}
}

// ExecutionPlan tunes how an ingestor runs a transformation.
type ExecutionPlan struct {
	BatchSize         int     `json:"batch_size"`
	ErrorThreshold    float64 `json:"error_threshold"`
	ValidationEnabled bool    `json:"validation_enabled"`
	RollbackOnError   bool    `json:"rollback_on_error"`
}

// DefaultExecutionPlan returns the plan used when the caller supplies none.
func DefaultExecutionPlan() ExecutionPlan {
	return ExecutionPlan{
		BatchSize:         100,
		ErrorThreshold:    0.1,
		ValidationEnabled: true,
		RollbackOnError:   true,
	}
}

// TransformationContract maps a source contract to a destination contract.
type TransformationContract struct {
	ContractVersion  string            `json:"contract_version"`
	ContractType     string            `json:"contract_type"`
	TransformationID string            `json:"transformation_id"`
	SourceRef        string            `json:"source_ref"`
	DestinationRef   string            `json:"destination_ref"`
	FieldMappings    map[string]string `json:"field_mappings"`
	Transformations  []string          `json:"transformations"`
	Enrichment       []string          `json:"enrichment"`
	BusinessRules    []string          `json:"business_rules"`
	ExecutionPlan    ExecutionPlan     `json:"execution_plan"`
	Metadata         map[string]any    `json:"metadata"`
}

// NewTransformationContract assembles a transformation contract with the
// default execution plan; callers adjust the plan afterwards if needed.
func NewTransformationContract(transformationID, sourceRef, destinationRef string, metadata map[string]any) *TransformationContract {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &TransformationContract{
		ContractVersion:  Version,
		ContractType:     TypeTransformation,
		TransformationID: transformationID,
		SourceRef:        sourceRef,
		DestinationRef:   destinationRef,
		FieldMappings:    map[string]string{},
		Transformations:  []string{},
		Enrichment:       []string{},
		BusinessRules:    []string{},
		ExecutionPlan:    DefaultExecutionPlan(),
		Metadata:         metadata,
	}
}
