package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/probe"
)

const (
	// sampleDataRows is how many sampled rows are echoed into quality
	// metrics, matching the file analyzer's bound.
	sampleDataRows = 5
	// sampleValuesPerField caps the distinct example values kept per
	// column.
	sampleValuesPerField = 5
	// nullableIssueColumns caps how many names the nullable-columns issue
	// message lists.
	nullableIssueColumns = 5
)

// TableAnalysis bundles everything one analysis learned about a table: the
// catalog descriptor (shape) and the quality metrics (content).
type TableAnalysis struct {
	Descriptor *contract.TableDescriptor
	Quality    contract.QualityMetrics
}

// QueryAnalysis is the inferred shape and quality of an ad-hoc query
// result. Unlike tables, column types come from value inference over the
// sample; there is no catalog to ask.
type QueryAnalysis struct {
	Columns contract.SourceSchema
	Quality contract.QualityMetrics
}

// AnalyzeTable composes one full table analysis: descriptor, exact row
// count, a bounded sample attached as per-column example values, and the
// deterministic issue list (empty table, then nullable columns).
func AnalyzeTable(ctx context.Context, in Introspector, table, schema string, sampleLimit int) (*TableAnalysis, error) {
	desc, err := in.DescribeTable(ctx, table, schema)
	if err != nil {
		return nil, err
	}
	total, err := in.CountRows(ctx, table, schema)
	if err != nil {
		return nil, fmt.Errorf("count rows of %s: %w", table, err)
	}
	cols, rows, err := in.SampleRows(ctx, table, schema, sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("sample rows of %s: %w", table, err)
	}
	attachSampleValues(desc.Columns, cols, rows)

	quality := contract.QualityMetrics{
		RowCount:        total,
		SampledRowCount: len(rows),
		Issues:          []contract.QualityIssue{},
	}
	if len(rows) > 0 {
		n := sampleDataRows
		if n > len(rows) {
			n = len(rows)
		}
		quality.SampleData = rows[:n]
	}
	if total == 0 {
		quality.Issues = append(quality.Issues, contract.QualityIssue{
			Code:    contract.IssueEmptyTable,
			Message: "table is empty",
		})
	}
	if nullable := nullableColumns(desc.Columns); len(nullable) > 0 {
		shown := nullable
		if len(shown) > nullableIssueColumns {
			shown = shown[:nullableIssueColumns]
		}
		quality.Issues = append(quality.Issues, contract.QualityIssue{
			Code:    contract.IssueNullableColumns,
			Message: "nullable columns: " + strings.Join(shown, ", "),
		})
	}
	return &TableAnalysis{Descriptor: desc, Quality: quality}, nil
}

// AnalyzeQuery runs a bounded sample of the query and infers column types
// from the stringified values. A query yielding zero rows cannot be typed
// and fails with *apperrors.SchemaInferenceError. The exact count comes
// from wrapping the query in COUNT(*); backends that cannot wrap a given
// query (for example one with a trailing ORDER BY on SQL Server) fall back
// to the sample size.
func AnalyzeQuery(ctx context.Context, in Introspector, query, schema string, sampleLimit int) (*QueryAnalysis, error) {
	cols, rows, err := in.SampleRows(ctx, query, schema, sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("run query sample: %w", err)
	}
	if len(rows) == 0 {
		return nil, &apperrors.SchemaInferenceError{Reason: "query returned no rows"}
	}
	inferred, err := probe.InferSchema(cols, rows)
	if err != nil {
		return nil, err
	}

	total, err := in.CountRows(ctx, query, schema)
	if err != nil {
		total = int64(len(rows))
	}
	quality := probe.ProfileQuality(rows, inferred, probe.ScanStats{RowCount: total})
	return &QueryAnalysis{Columns: inferred, Quality: quality}, nil
}

// attachSampleValues fills each column's SampleValues from the sampled
// rows, matching columns by name so a projection that reorders columns
// still lands values on the right field.
func attachSampleValues(schema contract.SourceSchema, cols []string, rows [][]string) {
	position := make(map[string]int, len(cols))
	for i, c := range cols {
		position[c] = i
	}
	for i := range schema {
		pos, ok := position[schema[i].Name]
		if !ok {
			continue
		}
		var values []string
		for _, row := range rows {
			if pos < len(row) && row[pos] != "" {
				values = append(values, row[pos])
			}
		}
		schema[i].SampleValues = distinctHead(values, sampleValuesPerField)
	}
}

// distinctHead keeps the first n distinct values in first-seen order.
func distinctHead(values []string, n int) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

func nullableColumns(schema contract.SourceSchema) []string {
	var names []string
	for _, f := range schema {
		if f.Nullable {
			names = append(names, f.Name)
		}
	}
	return names
}
