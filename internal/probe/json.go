package probe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// analyzeJSON streams a JSON array or NDJSON file: it counts every row,
// samples the first opt.SampleRows objects, and infers a schema over the
// union of the sampled objects' keys (sorted, since JSON objects carry no
// column order).
func analyzeJSON(path string, format Format, opt Options) (*Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	r, err := decodedReader(f, format)
	if err != nil {
		return nil, err
	}

	var objects []map[string]any
	var rowCount int64
	var parseIssues []contract.QualityIssue

	if format.Kind == KindJSON {
		objects, rowCount, parseIssues, err = scanJSONArray(r, opt.SampleRows)
	} else {
		objects, rowCount, parseIssues, err = scanNDJSON(r, opt.SampleRows)
	}
	if err != nil {
		return nil, err
	}

	fields := unionKeys(objects)
	if len(fields) == 0 {
		return nil, &apperrors.SchemaInferenceError{Reason: "no objects with fields in sample"}
	}

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(fields))
		for i, name := range fields {
			row[i] = stringifyJSONValue(obj[name])
		}
		rows = append(rows, row)
	}

	schema, err := InferSchema(fields, rows)
	if err != nil {
		return nil, err
	}

	quality := ProfileQuality(rows, schema, ScanStats{
		RowCount:         rowCount,
		Encoding:         format.Encoding,
		EncodingFallback: format.Fallback,
		BOMStripped:      format.HasBOM,
		ParseIssues:      parseIssues,
	})

	return &Analysis{
		FileFormat: string(format.Kind),
		Encoding:   format.Encoding,
		HasBOM:     format.HasBOM,
		HasHeader:  false,
		Schema:     schema,
		Quality:    quality,
	}, nil
}

// decodedReader wraps the file in a UTF-16 decoder when needed and skips a
// UTF-8 BOM so the JSON decoder never sees the marker.
func decodedReader(f *os.File, format Format) (io.Reader, error) {
	switch format.Encoding {
	case EncodingUTF16LE:
		return transform.NewReader(f, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()), nil
	case EncodingUTF16BE:
		return transform.NewReader(f, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()), nil
	case EncodingUTF8BOM:
		br := bufio.NewReader(f)
		head, err := br.Peek(len(bomUTF8))
		if err == nil && bytes.Equal(head, bomUTF8) {
			if _, err := br.Discard(len(bomUTF8)); err != nil {
				return nil, fmt.Errorf("skip byte order mark: %w", err)
			}
		}
		return br, nil
	default:
		return f, nil
	}
}

// scanJSONArray streams a top-level JSON array, counting every element and
// keeping the first sampleRows objects. Elements after a syntax error are
// unreachable; the error is reported as a quality issue rather than
// failing the analysis.
func scanJSONArray(r io.Reader, sampleRows int) ([]map[string]any, int64, []contract.QualityIssue, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, 0, []contract.QualityIssue{invalidJSONIssue(err)}, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, 0, []contract.QualityIssue{{
			Code:    contract.IssueUnparsableRow,
			Message: "json root is not an array",
		}}, nil
	}

	var objects []map[string]any
	var count int64
	for dec.More() {
		if len(objects) < sampleRows {
			var obj any
			if err := dec.Decode(&obj); err != nil {
				return objects, count, []contract.QualityIssue{invalidJSONIssue(err)}, nil
			}
			if m, ok := obj.(map[string]any); ok {
				objects = append(objects, m)
			}
		} else {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return objects, count, []contract.QualityIssue{invalidJSONIssue(err)}, nil
			}
		}
		count++
	}
	return objects, count, nil, nil
}

// scanNDJSON streams newline-delimited JSON: blank lines are ignored, every
// other line counts as a row, and lines within the sampling window are
// decoded. Undecodable sampled lines are reported per line number.
func scanNDJSON(r io.Reader, sampleRows int) ([]map[string]any, int64, []contract.QualityIssue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var objects []map[string]any
	var count int64
	var issues []contract.QualityIssue

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if lineNo <= sampleRows {
			var obj any
			if err := json.Unmarshal([]byte(line), &obj); err != nil {
				issues = append(issues, contract.QualityIssue{
					Code:    contract.IssueUnparsableRow,
					Message: fmt.Sprintf("invalid json on line %d", lineNo),
				})
			} else if m, ok := obj.(map[string]any); ok {
				objects = append(objects, useNumbers(m, line))
			}
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, 0, nil, fmt.Errorf("scan ndjson: %w", err)
	}
	return objects, count, issues, nil
}

// useNumbers re-decodes the line with json.Number so numeric values keep
// their original text instead of float64 formatting.
func useNumbers(fallback map[string]any, line string) map[string]any {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fallback
	}
	return m
}

func invalidJSONIssue(err error) contract.QualityIssue {
	return contract.QualityIssue{
		Code:    contract.IssueUnparsableRow,
		Message: fmt.Sprintf("invalid json: %v", err),
	}
}

// unionKeys collects the sorted union of keys across sampled objects.
func unionKeys(objects []map[string]any) []string {
	set := map[string]bool{}
	for _, obj := range objects {
		for k := range obj {
			set[k] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringifyJSONValue renders a decoded JSON value the way it would appear
// in a CSV cell. Missing values and nulls become empty strings so the
// inferencer treats them as nullable, not as the text "null".
func stringifyJSONValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		// Only reachable when the json.Number re-decode failed.
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}
