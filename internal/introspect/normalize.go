package introspect

import (
	"strings"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// NormalizeType maps a backend catalog type name into the shared contract
// vocabulary. Matching is case-insensitive and substring-based so qualified
// spellings ("varchar(255)", "timestamp with time zone", "INT UNSIGNED")
// resolve without per-backend lookup tables; callers keep the raw spelling
// in NativeType.
//
// Case order matters: "datetime" must hit timestamp before "date", array
// spellings must win over their element type, and the integer family must
// be checked before the text family so "tinyint" never reads as text.
func NormalizeType(native string) contract.FieldType {
	t := strings.ToLower(strings.TrimSpace(native))
	switch {
	case t == "":
		// sqlite permits typeless columns
		return contract.TypeString
	case strings.Contains(t, "array"), strings.Contains(t, "[]"):
		return contract.TypeString
	case strings.Contains(t, "int"):
		return contract.TypeInteger
	case strings.Contains(t, "char"), strings.Contains(t, "text"),
		strings.Contains(t, "clob"), strings.Contains(t, "string"):
		return contract.TypeString
	case strings.Contains(t, "float"), strings.Contains(t, "real"),
		strings.Contains(t, "double"):
		return contract.TypeDecimal
	case strings.Contains(t, "decimal"), strings.Contains(t, "numeric"),
		strings.Contains(t, "money"):
		return contract.TypeDecimal
	case strings.Contains(t, "bool"), strings.Contains(t, "bit"):
		return contract.TypeBoolean
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"):
		return contract.TypeTimestamp
	case strings.Contains(t, "date"):
		return contract.TypeDate
	default:
		// time-of-day, json, binary, uuid, enum, and anything unknown
		// carry as string; the native name records what it really was.
		return contract.TypeString
	}
}
