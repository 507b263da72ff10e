package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSource(t *testing.T) {
	schema := SourceSchema{{Name: "id", InferredType: TypeInteger}}
	ok := NewSourceContract("s1", "/data/s1.csv", "csv", "utf-8", ",", true, schema, QualityMetrics{}, nil)
	assert.Empty(t, Validate(&Loaded{Type: TypeSource, Source: ok}))

	broken := *ok
	broken.SourceID = ""
	broken.Schema.DataTypes = []string{"integer", "string"}
	issues := Validate(&Loaded{Type: TypeSource, Source: &broken})
	assert.Contains(t, issues, "source_id is missing")
	assert.Contains(t, issues, "schema lists 1 fields but 2 data types")
}

func TestValidateDestination(t *testing.T) {
	c := NewDestinationContract("d1", DestinationSchema{
		Fields:      []string{"id"},
		Types:       []string{"integer"},
		Constraints: map[string][]string{"ghost": {"REQUIRED"}},
	}, nil)

	issues := Validate(&Loaded{Type: TypeDestination, Destination: c})
	assert.Contains(t, issues, `constraints reference unknown field "ghost"`)
	assert.Contains(t, issues, `validation_rules.required_fields references unknown field "ghost"`)
}

func TestValidateTransformation(t *testing.T) {
	c := NewTransformationContract("t1", "s1", "d1", nil)
	c.SourceRef = ""
	c.ExecutionPlan.BatchSize = 0
	c.ExecutionPlan.ErrorThreshold = 1.5

	issues := Validate(&Loaded{Type: TypeTransformation, Transformation: c})
	assert.Contains(t, issues, "source_ref is missing")
	assert.Contains(t, issues, "execution_plan.batch_size must be at least 1")
	assert.Contains(t, issues, "execution_plan.error_threshold must be between 0 and 1")
}

func TestValidateUnknownType(t *testing.T) {
	issues := Validate(&Loaded{Type: "mystery"})
	assert.Contains(t, issues, "contract_version is missing")
	assert.Contains(t, issues, `unknown contract_type "mystery"`)
}
