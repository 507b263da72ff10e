package introspect

import (
	"testing"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

func TestNormalizeType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		native string
		want   contract.FieldType
	}{
		// integer family
		{"integer", contract.TypeInteger},
		{"INT", contract.TypeInteger},
		{"bigint", contract.TypeInteger},
		{"smallint", contract.TypeInteger},
		{"tinyint(1)", contract.TypeInteger},
		{"int unsigned", contract.TypeInteger},
		{"mediumint(9)", contract.TypeInteger},

		// text family
		{"character varying", contract.TypeString},
		{"varchar(255)", contract.TypeString},
		{"nvarchar(100)", contract.TypeString},
		{"TEXT", contract.TypeString},
		{"clob", contract.TypeString},
		{"ntext", contract.TypeString},

		// decimal family
		{"double precision", contract.TypeDecimal},
		{"real", contract.TypeDecimal},
		{"float", contract.TypeDecimal},
		{"decimal(10,2)", contract.TypeDecimal},
		{"numeric", contract.TypeDecimal},
		{"money", contract.TypeDecimal},
		{"smallmoney", contract.TypeDecimal},

		// boolean family
		{"boolean", contract.TypeBoolean},
		{"BOOL", contract.TypeBoolean},
		{"bit", contract.TypeBoolean},

		// temporal: datetime flavors must not fall through to date
		{"timestamp with time zone", contract.TypeTimestamp},
		{"timestamp", contract.TypeTimestamp},
		{"datetime", contract.TypeTimestamp},
		{"datetime2", contract.TypeTimestamp},
		{"smalldatetime", contract.TypeTimestamp},
		{"date", contract.TypeDate},

		// arrays win over their element type
		{"ARRAY", contract.TypeString},
		{"integer[]", contract.TypeString},

		// everything without a slot carries as string
		{"time without time zone", contract.TypeString},
		{"json", contract.TypeString},
		{"jsonb", contract.TypeString},
		{"uuid", contract.TypeString},
		{"bytea", contract.TypeString},
		{"blob", contract.TypeString},
		{"varbinary(max)", contract.TypeString},
		{"enum('a','b')", contract.TypeString},
		{"", contract.TypeString},
		{"  Timestamp  ", contract.TypeTimestamp},
	}
	for _, tc := range cases {
		if got := NormalizeType(tc.native); got != tc.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", tc.native, got, tc.want)
		}
	}
}
