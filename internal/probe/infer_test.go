package probe

import (
	"reflect"
	"testing"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

//
// InferColumn
//

// TestInferColumnTypes verifies the ranked-predicate inference over whole
// columns. A type may only win when every non-empty sample parses under it,
// so these cases exercise both clean columns and mixed ones that must fall
// through to the next predicate.
func TestInferColumnTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		samples  []string
		want     contract.FieldType
		nullable bool
	}{
		{"integers", []string{"1", "-2", "30"}, contract.TypeInteger, false},
		{"integers with nulls", []string{"", "", "5"}, contract.TypeInteger, true},
		{"plain decimals", []string{"1.5", "2.25"}, contract.TypeDecimal, false},
		{"integers mixed with decimals widen", []string{"5", "2.25"}, contract.TypeDecimal, false},
		{"iso dates", []string{"2020-01-02", "2021-12-31"}, contract.TypeDate, false},
		{"dotted dates", []string{"31.12.2020", "01.01.2021"}, contract.TypeDate, false},
		{"timestamps", []string{"2020-01-02 03:04:05"}, contract.TypeTimestamp, false},
		{"rfc3339 timestamps", []string{"2020-01-02T03:04:05Z"}, contract.TypeTimestamp, false},
		{"booleans", []string{"true", "FALSE", "yes", "n"}, contract.TypeBoolean, false},
		{"numeric booleans stay integer", []string{"1", "0", "1"}, contract.TypeInteger, false},
		{"free text", []string{"alice", "bob"}, contract.TypeString, false},
		{"empty strings only", []string{"", ""}, contract.TypeString, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferColumn("c", tt.samples)
			if got.InferredType != tt.want {
				t.Fatalf("InferColumn(%v) type = %q, want %q", tt.samples, got.InferredType, tt.want)
			}
			if got.Nullable != tt.nullable {
				t.Fatalf("InferColumn(%v) nullable = %v, want %v", tt.samples, got.Nullable, tt.nullable)
			}
		})
	}
}

// TestInferColumnNumericConvention verifies that the decimal grouping
// convention is resolved once per column from the majority of unambiguous
// values, with ties going to US.
func TestInferColumnNumericConvention(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []string
		want    string
	}{
		{"european majority", []string{"1.234,56", "2.000,00", "10,50"}, contract.ConventionEuropean},
		{"us grouping", []string{"1,234.56", "2,000.00"}, contract.ConventionUS},
		{"plain decimals default us", []string{"1.5", "2.25"}, contract.ConventionUS},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferColumn("amount", tt.samples)
			if got.InferredType != contract.TypeDecimal {
				t.Fatalf("InferColumn(%v) type = %q, want decimal", tt.samples, got.InferredType)
			}
			if got.Format != tt.want {
				t.Fatalf("InferColumn(%v) format = %q, want %q", tt.samples, got.Format, tt.want)
			}
		})
	}
}

// TestInferColumnAmbiguity verifies the degradation policy: columns with
// conflicting evidence fall back to string and carry the ambiguous flag,
// while plain free-text columns stay clean.
func TestInferColumnAmbiguity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		samples   []string
		ambiguous bool
	}{
		{"mixed typed values", []string{"5", "abc", "2020-01-01"}, true},
		{"no non-empty samples", []string{"", ""}, true},
		{"zero samples", nil, true},
		{"comma decimal rejected by tie rule", []string{"10,50"}, true},
		{"pure text is not ambiguous", []string{"alice", "bob"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferColumn("c", tt.samples)
			if got.InferredType != contract.TypeString {
				t.Fatalf("InferColumn(%v) type = %q, want string", tt.samples, got.InferredType)
			}
			if got.Ambiguous != tt.ambiguous {
				t.Fatalf("InferColumn(%v) ambiguous = %v, want %v", tt.samples, got.Ambiguous, tt.ambiguous)
			}
		})
	}
}

// TestInferColumnLayouts verifies that date and timestamp columns record
// the single layout every sample parsed under, honoring priority order for
// values that fit several layouts.
func TestInferColumnLayouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []string
		layout  string
	}{
		{"iso date", []string{"2020-06-01"}, "2006-01-02"},
		{"slash date prefers day first", []string{"05/06/2020"}, "02/01/2006"},
		{"day first forced by out of range month", []string{"25/10/2020"}, "02/01/2006"},
		{"space separated timestamp", []string{"2020-01-02 03:04:05"}, "2006-01-02 15:04:05"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferColumn("d", tt.samples)
			if got.Layout != tt.layout {
				t.Fatalf("InferColumn(%v) layout = %q, want %q", tt.samples, got.Layout, tt.layout)
			}
		})
	}
}

// TestInferColumnDeterminism verifies that identical samples always yield
// identical FieldSchema output. Inference has no hidden randomness, so two
// runs must agree exactly.
func TestInferColumnDeterminism(t *testing.T) {
	t.Parallel()

	samples := []string{"1.234,56", "", "2.000,00", "10,50", "abc"}
	first := InferColumn("amount", samples)
	second := InferColumn("amount", samples)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("InferColumn not deterministic: %+v vs %+v", first, second)
	}
}

// TestInferColumnSampleValues verifies the bounded distinct sample echo.
func TestInferColumnSampleValues(t *testing.T) {
	t.Parallel()

	got := InferColumn("c", []string{"a", "b", "a", "c", "d", "e", "f", "g"})
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got.SampleValues, want) {
		t.Fatalf("SampleValues = %v, want %v", got.SampleValues, want)
	}
}

//
// numeric predicates
//

// TestGroupedDecimalPredicates verifies the per-value grouping rules both
// conventions are built on.
func TestGroupedDecimalPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		us       bool
		european bool
	}{
		{"us grouped", "1,234.56", true, false},
		{"european grouped", "1.234,56", false, true},
		{"plain integer fits both", "1234", true, true},
		{"plain us decimal", "10.50", true, false},
		{"plain european decimal", "10,50", false, true},
		{"negative grouped", "-1,234.56", true, false},
		{"bad group width", "12,34.56", false, false},
		{"trailing separator", "1234.", false, false},
		{"leading separator", ".56", false, false},
		{"text", "abc", false, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isDecimalUS(tt.in); got != tt.us {
				t.Fatalf("isDecimalUS(%q) = %v, want %v", tt.in, got, tt.us)
			}
			if got := isDecimalEuropean(tt.in); got != tt.european {
				t.Fatalf("isDecimalEuropean(%q) = %v, want %v", tt.in, got, tt.european)
			}
		})
	}
}

//
// InferSchema
//

// TestInferSchemaOrderAndError verifies column order preservation and the
// no-columns failure mode.
func TestInferSchemaOrderAndError(t *testing.T) {
	t.Parallel()

	schema, err := InferSchema(
		[]string{"id", "amount", "note"},
		[][]string{{"1", "10.5", "x"}, {"2", "11.25", ""}},
	)
	if err != nil {
		t.Fatalf("InferSchema returned error: %v", err)
	}
	wantNames := []string{"id", "amount", "note"}
	if !reflect.DeepEqual(schema.FieldNames(), wantNames) {
		t.Fatalf("field order = %v, want %v", schema.FieldNames(), wantNames)
	}
	wantTypes := []string{"integer", "decimal", "string"}
	if !reflect.DeepEqual(schema.TypeNames(), wantTypes) {
		t.Fatalf("types = %v, want %v", schema.TypeNames(), wantTypes)
	}
	if !schema[2].Nullable {
		t.Fatalf("note column should be nullable")
	}

	if _, err := InferSchema(nil, nil); err == nil {
		t.Fatalf("InferSchema with zero columns should fail")
	}
}

// TestInferSchemaShortRows verifies that rows narrower than the column list
// contribute empty samples instead of shifting columns.
func TestInferSchemaShortRows(t *testing.T) {
	t.Parallel()

	schema, err := InferSchema(
		[]string{"a", "b"},
		[][]string{{"1", "2"}, {"3"}},
	)
	if err != nil {
		t.Fatalf("InferSchema returned error: %v", err)
	}
	if schema[1].InferredType != contract.TypeInteger {
		t.Fatalf("column b type = %q, want integer", schema[1].InferredType)
	}
	if !schema[1].Nullable {
		t.Fatalf("column b should be nullable: short row contributes an empty sample")
	}
}
