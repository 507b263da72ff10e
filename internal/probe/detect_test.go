package probe

import (
	"bytes"
	"errors"
	"testing"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
)

//
// DetectFormat
//

// TestDetectFormatBOM verifies byte-order marker handling: the marker
// determines the recorded encoding and must be gone from the returned text.
func TestDetectFormatBOM(t *testing.T) {
	t.Parallel()

	utf16le := func(s string) []byte {
		b := []byte{0xFF, 0xFE}
		for _, r := range s {
			b = append(b, byte(r), 0x00)
		}
		return b
	}

	tests := []struct {
		name     string
		in       []byte
		encoding string
	}{
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,a\n")...), EncodingUTF8BOM},
		{"utf-16 le bom", utf16le("id,name\n1,a\n"), EncodingUTF16LE},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			format, decoded, err := DetectFormat(tt.in)
			if err != nil {
				t.Fatalf("DetectFormat returned error: %v", err)
			}
			if !format.HasBOM {
				t.Fatalf("HasBOM = false, want true")
			}
			if format.Encoding != tt.encoding {
				t.Fatalf("Encoding = %q, want %q", format.Encoding, tt.encoding)
			}
			if bytes.Contains(decoded, []byte{0xEF, 0xBB, 0xBF}) || bytes.Contains(decoded, []byte{0xFF, 0xFE}) {
				t.Fatalf("decoded output still contains a byte order mark: %q", decoded)
			}
			if !bytes.HasPrefix(decoded, []byte("id,name")) {
				t.Fatalf("decoded = %q, want to start with header", decoded)
			}
			if format.Delimiter != ',' {
				t.Fatalf("Delimiter = %q, want ','", format.Delimiter)
			}
		})
	}
}

// TestDetectFormatEncodingPriority verifies the no-BOM fallback chain:
// strict UTF-8 first, then Windows-1252 (whose five undefined bytes
// disqualify it), then Latin-1.
func TestDetectFormatEncodingPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []byte
		encoding string
		fallback bool
	}{
		{"plain ascii", []byte("id,name\n1,a\n"), EncodingUTF8, false},
		{"valid utf-8", []byte("id,caf\xc3\xa9\n1,a\n"), EncodingUTF8, false},
		{"windows-1252 e acute", []byte("id,caf\xe9\n1,a\n"), EncodingWin1252, true},
		{"undefined 1252 byte forces latin-1", []byte("id,x\x81y\n1,a\n"), EncodingLatin1, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			format, _, err := DetectFormat(tt.in)
			if err != nil {
				t.Fatalf("DetectFormat returned error: %v", err)
			}
			if format.Encoding != tt.encoding {
				t.Fatalf("Encoding = %q, want %q", format.Encoding, tt.encoding)
			}
			if format.Fallback != tt.fallback {
				t.Fatalf("Fallback = %v, want %v", format.Fallback, tt.fallback)
			}
		})
	}
}

// TestDetectFormatEmpty verifies the failure mode: an empty or blank sample
// is a FormatDetectionError, not a zero-value success.
func TestDetectFormatEmpty(t *testing.T) {
	t.Parallel()

	for _, in := range [][]byte{nil, {}, []byte("   \n  ")} {
		_, _, err := DetectFormat(in)
		var fdErr *apperrors.FormatDetectionError
		if !errors.As(err, &fdErr) {
			t.Fatalf("DetectFormat(%q) error = %v, want FormatDetectionError", in, err)
		}
	}
}

// TestDetectFormatTruncatedRune verifies that a UTF-8 file cut mid-rune at
// the prefix boundary still detects as UTF-8.
func TestDetectFormatTruncatedRune(t *testing.T) {
	t.Parallel()

	sample := append([]byte("id,name\n1,caf"), 0xC3) // first byte of é
	format, decoded, err := DetectFormat(sample)
	if err != nil {
		t.Fatalf("DetectFormat returned error: %v", err)
	}
	if format.Encoding != EncodingUTF8 {
		t.Fatalf("Encoding = %q, want utf-8", format.Encoding)
	}
	if bytes.Contains(decoded, []byte{0xC3}) {
		t.Fatalf("partial rune should have been trimmed from the sample")
	}
}

//
// sniffDelimiter
//

// TestSniffDelimiter verifies variance-based delimiter selection.
//
// Edge cases validated:
//   - a consistent semicolon count beats a fluctuating comma count
//   - equal variance falls back to candidate priority order
//   - no delimiter at all defaults to comma
func TestSniffDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want rune
	}{
		{
			name: "consistent semicolons beat noisy commas",
			in:   "a;b;c;d\nw,x;y,z;q,,qq;e\n1;2;3,4;5\n",
			want: ';',
		},
		{
			name: "plain csv",
			in:   "a,b,c\n1,2,3\n",
			want: ',',
		},
		{
			name: "tab separated",
			in:   "a\tb\tc\n1\t2\t3\n",
			want: '\t',
		},
		{
			name: "pipe separated",
			in:   "a|b|c\n1|2|3\n",
			want: '|',
		},
		{
			name: "tie goes to priority order",
			in:   "a,b;c\n1,2;3\n",
			want: ',',
		},
		{
			name: "no delimiter defaults to comma",
			in:   "justonecolumn\nvalues\n",
			want: ',',
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sniffDelimiter([]byte(tt.in)); got != tt.want {
				t.Fatalf("sniffDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

//
// sniffKind
//

// TestSniffKind verifies format sniffing from the first significant byte.
func TestSniffKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Kind
	}{
		{"html", "  <html><body></body></html>", KindHTML},
		{"json array", "[{\"a\":1}]", KindJSON},
		{"ndjson object", "{\"a\":1}\n{\"a\":2}\n", KindNDJSON},
		{"csv fallback", "a,b\n1,2\n", KindCSV},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sniffKind([]byte(tt.in)); got != tt.want {
				t.Fatalf("sniffKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
