// Package probe implements file source analysis: encoding and delimiter
// detection, bounded sampling, per-column type inference, and quality
// profiling.
//
// The probe package is responsible for:
//   - Detecting encoding, byte-order markers, and CSV delimiters from a
//     bounded prefix of the file
//   - Inferring column names and types from a bounded row sample
//   - Producing exact row counts via a streaming full scan
//   - Collecting deterministic quality issues alongside the schema
//
// Design constraints:
//   - Sampling must be bounded in memory: detection reads a capped prefix,
//     inference a capped row count, and the full scan streams line by line.
//   - Inference is best-effort and never fails on unparsable data; columns
//     degrade to string with an ambiguous flag instead.
//   - Identical input bytes always produce identical output (no randomness).
package probe

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// Default sampling bounds. Callers can override both via Options.
const (
	// DefaultMaxBytes is the size of the prefix read for format detection
	// and row sampling.
	DefaultMaxBytes = 20000
	// DefaultSampleRows caps the number of rows used for type inference.
	DefaultSampleRows = 200
	// sampleDataRows is how many sampled rows are echoed into quality
	// metrics for human inspection.
	sampleDataRows = 5
	// sampleValuesPerField caps the distinct example values kept per column.
	sampleValuesPerField = 5
)

// Options control sampling bounds for file analysis.
type Options struct {
	// MaxBytes to read from the start of the file for detection and
	// sampling. Defaults to DefaultMaxBytes.
	MaxBytes int
	// SampleRows caps how many data rows feed type inference.
	// Defaults to DefaultSampleRows.
	SampleRows int
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.SampleRows <= 0 {
		o.SampleRows = DefaultSampleRows
	}
	return o
}

// Analysis is the complete result of probing one file source.
type Analysis struct {
	// FileFormat is "csv", "json", "ndjson", or "html".
	FileFormat string
	// Encoding is the detected text encoding name.
	Encoding string
	// HasBOM records whether a byte-order marker was present (and stripped).
	HasBOM bool
	// Delimiter is the detected field delimiter for CSV sources; empty for
	// other formats.
	Delimiter string
	// HasHeader records whether the first row was treated as a header.
	HasHeader bool
	// Schema is the inferred column list, in source order.
	Schema contract.SourceSchema
	// Quality holds row counts and the deterministic issue list.
	Quality contract.QualityMetrics
}

// AnalyzeFile probes a local file: detects its format from a bounded prefix,
// samples rows, infers the schema, and profiles quality with an exact
// row count from a streaming full scan.
//
// Errors:
//   - *apperrors.FormatDetectionError when the file is empty or undecodable.
//   - *apperrors.SchemaInferenceError when no columns or no parsable rows
//     can be determined.
//   - Plain errors for I/O failures.
func AnalyzeFile(path string, opt Options) (*Analysis, error) {
	opt = opt.withDefaults()

	prefix, err := readPrefix(path, opt.MaxBytes)
	if err != nil {
		return nil, err
	}

	format, decoded, err := DetectFormat(prefix)
	if err != nil {
		return nil, err
	}

	switch format.Kind {
	case KindCSV:
		// Cut the sample at the last newline when the prefix filled up, to
		// drop the trailing half-line record.
		if len(prefix) == opt.MaxBytes {
			if i := bytes.LastIndexByte(decoded, '\n'); i > 0 {
				decoded = decoded[:i+1]
			}
		}
		return analyzeCSV(path, decoded, format, opt)
	case KindJSON, KindNDJSON:
		return analyzeJSON(path, format, opt)
	case KindHTML:
		return analyzeHTML(decoded, format, opt)
	default:
		return nil, &apperrors.FormatDetectionError{Reason: "unrecognized file format"}
	}
}

// readPrefix reads at most n bytes from the start of the file.
func readPrefix(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	lr := &io.LimitedReader{R: f, N: int64(n)}
	prefix, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("read source prefix: %w", err)
	}
	return prefix, nil
}

// NormalizeName converts an arbitrary input string into a safe, lowercase
// identifier suitable for source IDs and file names.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '.' || r == '/' || r == '\\' || r == ':' || r == ';' {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		// Drop anything else (punctuation, non-ASCII).
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "source"
	}
	return truncateName(out)
}

// truncateName cuts identifiers to 63 bytes on a UTF-8 boundary, matching
// common database identifier limits.
func truncateName(s string) string {
	const maxLen = 63
	if len(s) <= maxLen {
		return s
	}
	b := []byte(s)
	cut := maxLen
	for cut > 0 && !utf8.Valid(b[:cut]) {
		cut--
	}
	if cut <= 0 {
		return s[:maxLen]
	}
	return string(b[:cut])
}
