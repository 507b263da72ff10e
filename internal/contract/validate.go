package contract

import (
	"fmt"
	"sort"
)

// Validate runs structural checks on a loaded contract and returns a list
// of human-readable issues. An empty list means the contract is valid.
//
// The checks are intentionally shallow: they confirm the document carries
// the fields its contract_type requires and that parallel arrays line up.
// Semantic validation (does the source file still exist, does the
// destination table match) is out of scope here.
func Validate(l *Loaded) []string {
	var issues []string
	if l.Version() == "" {
		issues = append(issues, "contract_version is missing")
	}

	switch l.Type {
	case TypeSource:
		issues = append(issues, validateSource(l.Source)...)
	case TypeDestination:
		issues = append(issues, validateDestination(l.Destination)...)
	case TypeTransformation:
		issues = append(issues, validateTransformation(l.Transformation)...)
	default:
		issues = append(issues, fmt.Sprintf("unknown contract_type %q", l.Type))
	}
	return issues
}

func validateSource(c *SourceContract) []string {
	var issues []string
	if c.SourceID == "" {
		issues = append(issues, "source_id is missing")
	}
	if c.DatabaseType != "" {
		switch c.SourceType {
		case "table", "view":
			if c.SourceName == "" {
				issues = append(issues, fmt.Sprintf("source_name is missing for a %s source", c.SourceType))
			}
		case "query":
			// query text rides in metadata; nothing structural to check
		case "":
			issues = append(issues, "source_type is missing for a database source")
		default:
			issues = append(issues, fmt.Sprintf("unknown source_type %q", c.SourceType))
		}
	} else {
		if c.SourcePath == "" {
			issues = append(issues, "source_path is missing")
		}
		if c.FileFormat == "" {
			issues = append(issues, "file_format is missing")
		}
	}
	if len(c.Schema.Fields) == 0 {
		issues = append(issues, "schema has no fields")
	}
	if len(c.Schema.Fields) != len(c.Schema.DataTypes) {
		issues = append(issues, fmt.Sprintf(
			"schema lists %d fields but %d data types",
			len(c.Schema.Fields), len(c.Schema.DataTypes)))
	}
	if c.QualityMetrics.RowCount < 0 {
		issues = append(issues, "quality_metrics.total_rows is negative")
	}
	return issues
}

func validateDestination(c *DestinationContract) []string {
	var issues []string
	if c.DestinationID == "" {
		issues = append(issues, "destination_id is missing")
	}
	if len(c.Schema.Fields) != len(c.Schema.Types) {
		issues = append(issues, fmt.Sprintf(
			"destination_schema lists %d fields but %d types",
			len(c.Schema.Fields), len(c.Schema.Types)))
	}

	known := make(map[string]bool, len(c.Schema.Fields))
	for _, f := range c.Schema.Fields {
		known[f] = true
	}
	constrained := make([]string, 0, len(c.Schema.Constraints))
	for field := range c.Schema.Constraints {
		constrained = append(constrained, field)
	}
	sort.Strings(constrained)
	for _, field := range constrained {
		if !known[field] {
			issues = append(issues, fmt.Sprintf("constraints reference unknown field %q", field))
		}
	}
	for _, field := range c.ValidationRules.RequiredFields {
		if !known[field] {
			issues = append(issues, fmt.Sprintf("validation_rules.required_fields references unknown field %q", field))
		}
	}
	return issues
}

func validateTransformation(c *TransformationContract) []string {
	var issues []string
	if c.TransformationID == "" {
		issues = append(issues, "transformation_id is missing")
	}
	if c.SourceRef == "" {
		issues = append(issues, "source_ref is missing")
	}
	if c.DestinationRef == "" {
		issues = append(issues, "destination_ref is missing")
	}
	if c.ExecutionPlan.BatchSize < 1 {
		issues = append(issues, "execution_plan.batch_size must be at least 1")
	}
	if c.ExecutionPlan.ErrorThreshold < 0 || c.ExecutionPlan.ErrorThreshold > 1 {
		issues = append(issues, "execution_plan.error_threshold must be between 0 and 1")
	}
	return issues
}
