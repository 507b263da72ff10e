package probe

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
)

// analyzeCSV samples a decoded CSV prefix, infers the schema, and profiles
// quality with an exact row count from a second, streaming pass over the
// whole file.
func analyzeCSV(path string, decoded []byte, format Format, opt Options) (*Analysis, error) {
	sample, err := readCSVSample(decoded, format.Delimiter, opt.SampleRows)
	if err != nil {
		return nil, fmt.Errorf("read csv sample: %w", err)
	}
	if len(sample.headers) == 0 {
		return nil, &apperrors.SchemaInferenceError{Reason: "no parsable rows in sample"}
	}

	schema, err := InferSchema(sample.headers, sample.rows)
	if err != nil {
		return nil, err
	}

	lines, err := countFileLines(path, format.Encoding)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	rowCount := lines
	if sample.hasHeader && rowCount > 0 {
		rowCount--
	}

	quality := ProfileQuality(sample.rows, schema, ScanStats{
		RowCount:         rowCount,
		Encoding:         format.Encoding,
		EncodingFallback: format.Fallback,
		BOMStripped:      format.HasBOM,
		MisalignedRows:   sample.misaligned,
	})

	return &Analysis{
		FileFormat: string(KindCSV),
		Encoding:   format.Encoding,
		HasBOM:     format.HasBOM,
		Delimiter:  string(format.Delimiter),
		HasHeader:  sample.hasHeader,
		Schema:     schema,
		Quality:    quality,
	}, nil
}

// csvSample is the bounded row sample drawn from the decoded prefix.
type csvSample struct {
	headers    []string
	hasHeader  bool
	rows       [][]string
	misaligned int
}

// readCSVSample parses decoded CSV bytes into column names and up to
// maxRows data rows.
//
// The implementation is intentionally best-effort and designed for probing:
//   - records with the wrong field count are skipped but counted
//   - when the first row looks fully numeric, it is treated as data and
//     column names are synthesized as column_1..column_N
//   - the sample is expected to already be cut to a newline boundary
func readCSVSample(data []byte, delimiter rune, maxRows int) (csvSample, error) {
	var sample csvSample

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return sample, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1 // validated manually
	r.LazyQuotes = true

	first, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return sample, nil
		}
		return sample, err
	}
	for i := range first {
		first[i] = strings.TrimSpace(first[i])
	}

	sample.hasHeader = looksLikeHeader(first)
	if sample.hasHeader {
		sample.headers = first
	} else {
		sample.headers = make([]string, len(first))
		for i := range first {
			sample.headers[i] = fmt.Sprintf("column_%d", i+1)
		}
		sample.rows = append(sample.rows, first)
	}

	for len(sample.rows) < maxRows {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return sample, err
		}
		if len(rec) != len(sample.headers) {
			sample.misaligned++
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		sample.rows = append(sample.rows, rec)
	}

	return sample, nil
}

// looksLikeHeader reports whether the first row reads as column names: any
// cell that is not purely numeric (ignoring '.' and '-') counts as header
// evidence. A row of nothing but numbers is data.
func looksLikeHeader(row []string) bool {
	for _, cell := range row {
		stripped := strings.NewReplacer(".", "", "-", "").Replace(cell)
		if !allDigits(stripped) {
			return true
		}
	}
	return false
}

// countFileLines streams the whole file and counts physical lines. Quoted
// embedded newlines count as line breaks, matching a plain text scan. The
// reader is wrapped in a UTF-16 decoder when the detected encoding needs
// it; single-byte encodings count raw 0x0A bytes safely.
func countFileLines(path, encodingName string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var r io.Reader = f
	switch encodingName {
	case EncodingUTF16LE:
		r = transform.NewReader(f, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case EncodingUTF16BE:
		r = transform.NewReader(f, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	}

	var lines int64
	var sawAny, endsWithNewline bool
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sawAny = true
			lines += int64(bytes.Count(buf[:n], []byte{'\n'}))
			endsWithNewline = buf[n-1] == '\n'
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if sawAny && !endsWithNewline {
		lines++
	}
	return lines, nil
}
