package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// sqliteIntrospector serves the main database of one sqlite file. Attached
// databases are out of scope, so every schema argument resolves to "main".
type sqliteIntrospector struct {
	db *sql.DB
}

var _ Introspector = (*sqliteIntrospector)(nil)

func newSQLite(ctx context.Context, cfg Config) (*sqliteIntrospector, error) {
	db, err := openSQL(ctx, "sqlite", "sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &sqliteIntrospector{db: db}, nil
}

func (s *sqliteIntrospector) Close() { _ = s.db.Close() }

func sqliteQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqliteColumn is one PRAGMA table_info row. pkIndex is the column's
// 1-based position within the primary key, 0 when not part of it.
type sqliteColumn struct {
	name    string
	typ     string
	notNull bool
	pkIndex int
}

// tableInfo runs PRAGMA table_info. PRAGMA arguments cannot be bound, so
// the table name is embedded quoted. A missing table yields zero rows, not
// an error.
func (s *sqliteIntrospector) tableInfo(ctx context.Context, table string) ([]sqliteColumn, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", sqliteQuote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []sqliteColumn
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, sqliteColumn{name: name, typ: typ, notNull: notNull != 0, pkIndex: pk})
	}
	return cols, rows.Err()
}

// primaryKeyColumns extracts the primary key names from table_info output,
// ordered by their position within the key.
func primaryKeyColumns(info []sqliteColumn) []string {
	var keyed []sqliteColumn
	for _, c := range info {
		if c.pkIndex > 0 {
			keyed = append(keyed, c)
		}
	}
	sort.Slice(keyed, func(i, j int) bool { return keyed[i].pkIndex < keyed[j].pkIndex })
	names := make([]string, 0, len(keyed))
	for _, c := range keyed {
		names = append(names, c.name)
	}
	return names
}

func (s *sqliteIntrospector) ListTables(ctx context.Context, opt ListOptions) ([]contract.TableSummary, error) {
	q := `
SELECT name, type FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`
	if opt.IncludeViews {
		q = `
SELECT name, type FROM sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
ORDER BY name`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	summaries := []contract.TableSummary{}
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("scan table listing: %w", err)
		}
		summaries = append(summaries, contract.TableSummary{
			Name:   name,
			Schema: "main",
			Type:   kind,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	for i := range summaries {
		sum := &summaries[i]
		info, err := s.tableInfo(ctx, sum.Name)
		if err != nil {
			continue
		}
		n := len(info)
		sum.ColumnCount = &n
		pk := primaryKeyColumns(info)
		sum.PrimaryKeyColumns = pk
		sum.HasPrimaryKey = len(pk) > 0
		if opt.IncludeRowCounts && sum.Type == "table" {
			if count, err := s.CountRows(ctx, sum.Name, ""); err == nil {
				sum.RowCount = &count
			}
		}
	}
	return summaries, nil
}

func (s *sqliteIntrospector) DescribeTable(ctx context.Context, table, schema string) (*contract.TableDescriptor, error) {
	info, err := s.tableInfo(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	if len(info) == 0 {
		return nil, &apperrors.NotFoundError{Kind: "table", Name: table, Schema: "main"}
	}

	columns := make(contract.SourceSchema, 0, len(info))
	for _, c := range info {
		// table_info leaves notnull unset on INTEGER PRIMARY KEY columns
		// even though they can never hold NULL.
		columns = append(columns, contract.FieldSchema{
			Name:         c.name,
			InferredType: NormalizeType(c.typ),
			Nullable:     !c.notNull && c.pkIndex == 0,
			NativeType:   c.typ,
		})
	}
	fks, err := s.foreignKeys(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read foreign keys of %s: %w", table, err)
	}
	return &contract.TableDescriptor{
		Name:        table,
		SchemaName:  "main",
		Columns:     columns,
		PrimaryKey:  primaryKeyColumns(info),
		ForeignKeys: fks,
	}, nil
}

func (s *sqliteIntrospector) foreignKeys(ctx context.Context, table string) ([]contract.ForeignKey, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", sqliteQuote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := []contract.ForeignKey{}
	index := map[int]int{}
	for rows.Next() {
		var (
			id, seq                 int
			refTable, from          string
			to                      sql.NullString
			onUpdate, onDelete, mat string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &mat); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			i = len(fks)
			index[id] = i
			// sqlite does not name constraints
			fks = append(fks, contract.ForeignKey{ReferredTable: refTable})
		}
		fks[i].Columns = append(fks[i].Columns, from)
		fks[i].ReferredColumns = append(fks[i].ReferredColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// foreign_key_list reports NULL target columns when the reference is to
	// the parent's primary key; resolve them so descriptors are explicit.
	for i := range fks {
		if !allEmpty(fks[i].ReferredColumns) {
			continue
		}
		info, err := s.tableInfo(ctx, fks[i].ReferredTable)
		if err != nil {
			continue
		}
		if pk := primaryKeyColumns(info); len(pk) == len(fks[i].ReferredColumns) {
			fks[i].ReferredColumns = pk
		}
	}
	return fks, nil
}

func allEmpty(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return len(values) > 0
}

func (s *sqliteIntrospector) SampleRows(ctx context.Context, target, schema string, limit int) ([]string, [][]string, error) {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT * FROM (%s) AS subquery LIMIT %d", target, limit)
	} else {
		q = fmt.Sprintf("SELECT * FROM %s LIMIT %d", sqliteQuote(target), limit)
	}
	cols, out, err := queryStringRows(ctx, s.db, q)
	if err != nil {
		return nil, nil, fmt.Errorf("sample rows: %w", err)
	}
	return cols, out, nil
}

func (s *sqliteIntrospector) CountRows(ctx context.Context, target, schema string) (int64, error) {
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS subquery", target)
	} else {
		q = fmt.Sprintf("SELECT COUNT(*) FROM %s", sqliteQuote(target))
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
