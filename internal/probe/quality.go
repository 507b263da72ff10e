package probe

import (
	"fmt"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// ScanStats carries the detection- and scan-stage facts the quality
// profiler reports on but does not compute itself.
type ScanStats struct {
	// RowCount is the exact number of data rows found by the full scan.
	RowCount int64
	// Encoding is the detected encoding name.
	Encoding string
	// EncodingFallback is true when a non-UTF-8 encoding had to be used.
	EncodingFallback bool
	// BOMStripped is true when a byte-order marker was removed.
	BOMStripped bool
	// MisalignedRows counts sampled rows skipped for having a field count
	// different from the header.
	MisalignedRows int
	// ParseIssues are row-level parse findings from the scan (e.g. invalid
	// JSON lines), reported after structural issues and before per-column
	// ambiguity.
	ParseIssues []contract.QualityIssue
}

// ProfileQuality assembles quality metrics for one source: exact and
// sampled row counts, a bounded sample echo, and the deterministic issue
// list. Issues appear in detection order — encoding fallback, BOM,
// inconsistent column counts, then one entry per ambiguous column in
// schema order.
func ProfileQuality(rows [][]string, schema contract.SourceSchema, stats ScanStats) contract.QualityMetrics {
	metrics := contract.QualityMetrics{
		RowCount:        stats.RowCount,
		SampledRowCount: len(rows),
		Issues:          []contract.QualityIssue{},
	}
	if len(rows) > 0 {
		n := sampleDataRows
		if n > len(rows) {
			n = len(rows)
		}
		metrics.SampleData = rows[:n]
	}

	if stats.EncodingFallback {
		metrics.Issues = append(metrics.Issues, contract.QualityIssue{
			Code:    contract.IssueEncodingFallback,
			Message: fmt.Sprintf("content is not valid UTF-8; decoded with fallback encoding %s", stats.Encoding),
		})
	}
	if stats.BOMStripped {
		metrics.Issues = append(metrics.Issues, contract.QualityIssue{
			Code:    contract.IssueBOMStripped,
			Message: "byte order mark detected and stripped before parsing; downstream readers must handle the original file encoding",
		})
	}
	if stats.MisalignedRows > 0 {
		metrics.Issues = append(metrics.Issues, contract.QualityIssue{
			Code:    contract.IssueInconsistentColumns,
			Message: fmt.Sprintf("%d sampled row(s) skipped: field count differs from the header row", stats.MisalignedRows),
		})
	}
	metrics.Issues = append(metrics.Issues, stats.ParseIssues...)
	for _, field := range schema {
		if !field.Ambiguous {
			continue
		}
		metrics.Issues = append(metrics.Issues, contract.QualityIssue{
			Code:    contract.IssueAmbiguousColumn,
			Message: fmt.Sprintf("column %q has no single type consistent with all sampled values; typed as string", field.Name),
			Field:   field.Name,
		})
	}
	return metrics
}
