package probe

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
)

// Kind is the sniffed file format.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindJSON   Kind = "json"
	KindNDJSON Kind = "ndjson"
	KindHTML   Kind = "html"
)

// Encoding names reported by DetectFormat. BOM variants echo the Python
// codec vocabulary downstream tooling already understands.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingUTF16LE = "utf-16-le"
	EncodingUTF16BE = "utf-16-be"
	EncodingWin1252 = "windows-1252"
	EncodingLatin1  = "latin-1"
)

// Format is the result of byte-level detection on a sampled prefix.
type Format struct {
	// Encoding is the first encoding in the priority list that decoded the
	// prefix without error (or the BOM's variant when a marker is present).
	Encoding string
	// HasBOM is true when a byte-order marker was found and stripped.
	HasBOM bool
	// Fallback is true when a non-UTF-8 legacy encoding had to be used.
	Fallback bool
	// Delimiter is the sniffed CSV delimiter, 0 for non-delimited formats.
	Delimiter rune
	// Kind is the sniffed file format.
	Kind Kind
}

// Byte-order markers, most specific first.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectFormat inspects a bounded prefix of raw file bytes and determines
// encoding, BOM presence, format kind, and (for CSV) the field delimiter.
// It returns the prefix decoded to UTF-8 with any marker stripped, so
// downstream sampling never sees the BOM again.
//
// Encoding is resolved by priority: a BOM wins outright; otherwise strict
// UTF-8, then Windows-1252 (rejecting its five undefined bytes), then
// Latin-1, which accepts any byte sequence.
//
// Errors:
//   - *apperrors.FormatDetectionError when the sample is empty or no
//     encoding decodes it.
func DetectFormat(sample []byte) (Format, []byte, error) {
	if len(bytes.TrimSpace(sample)) == 0 {
		return Format{}, nil, &apperrors.FormatDetectionError{Reason: "source is empty"}
	}

	format, decoded, err := decodePrefix(sample)
	if err != nil {
		return Format{}, nil, err
	}

	format.Kind = sniffKind(decoded)
	if format.Kind == KindCSV {
		format.Delimiter = sniffDelimiter(decoded)
	}
	return format, decoded, nil
}

// decodePrefix resolves the encoding and returns the UTF-8 text.
func decodePrefix(sample []byte) (Format, []byte, error) {
	switch {
	case bytes.HasPrefix(sample, bomUTF8):
		return Format{Encoding: EncodingUTF8BOM, HasBOM: true}, sample[len(bomUTF8):], nil

	case bytes.HasPrefix(sample, bomUTF16LE):
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(sample)
		if err != nil {
			return Format{}, nil, &apperrors.FormatDetectionError{Reason: "utf-16 marker present but content does not decode"}
		}
		return Format{Encoding: EncodingUTF16LE, HasBOM: true}, decoded, nil

	case bytes.HasPrefix(sample, bomUTF16BE):
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(sample)
		if err != nil {
			return Format{}, nil, &apperrors.FormatDetectionError{Reason: "utf-16 marker present but content does not decode"}
		}
		return Format{Encoding: EncodingUTF16BE, HasBOM: true}, decoded, nil
	}

	// A prefix cut mid-rune must not disqualify an otherwise valid UTF-8
	// file, so a trailing partial sequence is dropped before validation.
	sample = trimIncompleteRune(sample)
	if utf8.Valid(sample) {
		return Format{Encoding: EncodingUTF8}, sample, nil
	}

	if !hasUndefined1252Byte(sample) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(sample)
		if err == nil {
			return Format{Encoding: EncodingWin1252, Fallback: true}, decoded, nil
		}
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(sample)
	if err != nil {
		return Format{}, nil, &apperrors.FormatDetectionError{Reason: "no supported encoding decodes the sample"}
	}
	return Format{Encoding: EncodingLatin1, Fallback: true}, decoded, nil
}

// trimIncompleteRune drops a trailing partial UTF-8 sequence introduced by
// cutting the prefix at an arbitrary byte boundary. Complete input is
// returned unchanged.
func trimIncompleteRune(sample []byte) []byte {
	end := len(sample)
	for back := 1; back <= utf8.UTFMax && back <= end; back++ {
		b := sample[end-back]
		if b&0xC0 == 0x80 {
			continue // continuation byte, keep walking back
		}
		if expectedRuneLen(b) > back {
			return sample[:end-back]
		}
		break
	}
	return sample
}

func expectedRuneLen(b byte) int {
	switch {
	case b&0x80 == 0x00:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	}
	return 1 // invalid lead byte, nothing to trim
}

// hasUndefined1252Byte reports whether the sample contains any of the five
// code points Windows-1252 leaves undefined. The charmap decoder would map
// them to U+FFFD silently, so strictness is enforced here.
func hasUndefined1252Byte(sample []byte) bool {
	for _, b := range sample {
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return true
		}
	}
	return false
}

// sniffKind infers the file format from decoded text. Detection is
// heuristic and intentionally conservative: anything not recognizably
// HTML/JSON is treated as CSV.
func sniffKind(text []byte) Kind {
	trim := bytes.TrimSpace(text)
	if len(trim) == 0 {
		return KindCSV
	}
	switch trim[0] {
	case '<':
		return KindHTML
	case '[':
		return KindJSON
	case '{':
		return KindNDJSON
	}
	return KindCSV
}

// delimiterCandidates is the fixed priority order used to break variance
// ties during sniffing.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate whose per-line occurrence count is most
// consistent across the sampled lines: lowest variance wins, provided the
// candidate appears at all. Ties keep the earlier candidate. When nothing
// qualifies the default is ','.
func sniffDelimiter(text []byte) rune {
	lines := sampleLines(text)
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestVariance := -1.0
	for _, cand := range delimiterCandidates {
		total := 0
		counts := make([]int, len(lines))
		for i, line := range lines {
			counts[i] = bytes.Count(line, []byte(string(cand)))
			total += counts[i]
		}
		if total == 0 {
			continue
		}

		mean := float64(total) / float64(len(counts))
		variance := 0.0
		for _, c := range counts {
			d := float64(c) - mean
			variance += d * d
		}
		variance /= float64(len(counts))

		if bestVariance < 0 || variance < bestVariance {
			best = cand
			bestVariance = variance
		}
	}
	return best
}

// sampleLines splits the prefix into complete non-empty lines, dropping a
// trailing partial line so a mid-record cut cannot skew the counts.
func sampleLines(text []byte) [][]byte {
	raw := bytes.Split(text, []byte{'\n'})
	// The final element is either empty (text ended with a newline) or a
	// potentially truncated line; drop it unless it is the only line.
	if len(raw) > 1 {
		raw = raw[:len(raw)-1]
	}

	lines := make([][]byte, 0, len(raw))
	for _, l := range raw {
		l = bytes.TrimRight(l, "\r")
		if len(bytes.TrimSpace(l)) == 0 {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
