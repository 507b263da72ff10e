// Package introspect reads catalog metadata and sample rows from live
// databases: table inventories, column descriptors with keys and foreign
// keys, exact row counts, and bounded row samples.
//
// Each supported backend implements Introspector; Open picks the
// implementation from the backend name and verifies connectivity before
// returning. Sampled values cross the boundary as strings (SQL NULL becomes
// ""), so type inference and quality profiling run on the same code paths
// as file sources.
package introspect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// defaultSampleLimit bounds table and query samples when the caller passes
// no limit of its own.
const defaultSampleLimit = 1000

// Config identifies one database to introspect.
type Config struct {
	// Backend selects the driver: "postgres", "mysql", "mssql", or
	// "sqlite". The aliases "postgresql", "sqlserver", and "sqlite3" are
	// accepted.
	Backend string
	// DSN is the driver-specific connection string. For sqlite it is the
	// database file path.
	DSN string
	// Schema is the default schema for unqualified table names. Empty
	// means the backend's own default: public, the connected database,
	// dbo, or main.
	Schema string
}

// ListOptions narrows and enriches a ListTables call.
type ListOptions struct {
	// Schema restricts the listing to one schema; empty means the
	// connection's default.
	Schema string
	// IncludeViews adds views to the listing alongside base tables.
	IncludeViews bool
	// IncludeRowCounts runs a COUNT(*) per base table. Counts are
	// best-effort: a failed count leaves RowCount nil rather than failing
	// the listing.
	IncludeRowCounts bool
}

// Introspector reads catalog metadata and sample rows from one connected
// database. Implementations are safe for concurrent use. Close releases the
// underlying pool; the value must not be used afterwards.
type Introspector interface {
	// ListTables returns the tables, and optionally views, visible in the
	// effective schema, sorted by name.
	ListTables(ctx context.Context, opt ListOptions) ([]contract.TableSummary, error)

	// DescribeTable returns the descriptor of one table: columns in
	// ordinal order with normalized types, the primary key, and outgoing
	// foreign keys. A missing table yields *apperrors.NotFoundError.
	DescribeTable(ctx context.Context, table, schema string) (*contract.TableDescriptor, error)

	// SampleRows reads up to limit rows from a table name or, when the
	// target reads as a SELECT/WITH statement, from that query wrapped in
	// a bounded subselect. Every value is stringified; SQL NULL becomes
	// "". The result column names are returned alongside the rows.
	SampleRows(ctx context.Context, target, schema string, limit int) (columns []string, rows [][]string, err error)

	// CountRows returns the exact row count of a table or query target.
	CountRows(ctx context.Context, target, schema string) (int64, error)

	// Close releases the connection pool.
	Close()
}

// Open connects to the database described by cfg and verifies the
// connection with a ping. Open and ping failures are reported as
// *apperrors.ConnectionError so callers never match on driver errors.
func Open(ctx context.Context, cfg Config) (Introspector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "postgres", "postgresql":
		return newPostgres(ctx, cfg)
	case "mysql":
		return newMySQL(ctx, cfg)
	case "mssql", "sqlserver":
		return newMSSQL(ctx, cfg)
	case "sqlite", "sqlite3":
		return newSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database backend %q", cfg.Backend)
	}
}

// openSQL opens and pings a database/sql connection, mapping failures to
// ConnectionError. Introspection traffic is light; the pool stays small.
func openSQL(ctx context.Context, backend, driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &apperrors.ConnectionError{Backend: backend, Err: err}
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &apperrors.ConnectionError{Backend: backend, Err: err}
	}
	return db, nil
}

// looksLikeQuery reports whether target reads as a SELECT or WITH statement
// rather than a bare table name. A single word is never a query, so tables
// that happen to be named "select" still resolve as tables.
func looksLikeQuery(target string) bool {
	fields := strings.Fields(target)
	if len(fields) < 2 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return true
	}
	return false
}

// tableKind maps information_schema table_type values onto the summary
// vocabulary.
func tableKind(tableType string) string {
	if strings.EqualFold(tableType, "VIEW") {
		return "view"
	}
	return "table"
}

// queryStringRows runs query through database/sql and converts the whole
// result set to strings.
func queryStringRows(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, [][]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range raw {
			rec[i] = stringifyValue(v)
		}
		out = append(out, rec)
	}
	return cols, out, rows.Err()
}

// stringifyValue renders one scanned database value the way the sample and
// contract layers expect: NULL as "", timestamps as RFC 3339, numbers
// without exponent notation. Driver-specific value types that implement
// driver.Valuer (pgx numerics, UUIDs) unwrap to their SQL representation.
func stringifyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	if valuer, ok := v.(driver.Valuer); ok {
		if inner, err := valuer.Value(); err == nil {
			return stringifyValue(inner)
		}
	}
	return fmt.Sprint(v)
}

// tableDecorator is the slice of a backend the summary decorator needs.
type tableDecorator interface {
	primaryKey(ctx context.Context, table, schema string) ([]string, error)
	columnCount(ctx context.Context, table, schema string) (int, error)
	CountRows(ctx context.Context, target, schema string) (int64, error)
}

// decorateSummaries fills per-table detail on a listing. Each lookup is
// best-effort: a permission failure on one table must not sink the whole
// listing, so a failed lookup leaves the affected fields at their zero
// values. Row counts are skipped for views, which can be arbitrarily
// expensive to count.
func decorateSummaries(ctx context.Context, d tableDecorator, schema string, summaries []contract.TableSummary, withCounts bool) {
	for i := range summaries {
		s := &summaries[i]
		if pk, err := d.primaryKey(ctx, s.Name, schema); err == nil {
			s.PrimaryKeyColumns = pk
			s.HasPrimaryKey = len(pk) > 0
		}
		if n, err := d.columnCount(ctx, s.Name, schema); err == nil {
			s.ColumnCount = &n
		}
		if withCounts && s.Type == "table" {
			if n, err := d.CountRows(ctx, s.Name, schema); err == nil {
				s.RowCount = &n
			}
		}
	}
}

// dedupeStrings removes repeats while preserving first-seen order.
func dedupeStrings(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
