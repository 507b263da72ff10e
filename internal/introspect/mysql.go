package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

const (
	// column_type keeps the full spelling ("varchar(255)", "int unsigned")
	// where data_type would strip it.
	mysqlColumnsSQL = `
SELECT column_name, column_type, is_nullable
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`

	mysqlColumnCountSQL = `
SELECT COUNT(*)
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?`

	mysqlPrimaryKeySQL = `
SELECT column_name
FROM information_schema.key_column_usage
WHERE table_schema = ? AND table_name = ? AND constraint_name = 'PRIMARY'
ORDER BY ordinal_position`

	mysqlForeignKeysSQL = `
SELECT constraint_name, column_name, referenced_table_schema, referenced_table_name, referenced_column_name
FROM information_schema.key_column_usage
WHERE table_schema = ? AND table_name = ? AND referenced_table_name IS NOT NULL
ORDER BY constraint_name, ordinal_position`
)

type mysqlIntrospector struct {
	db            *sql.DB
	defaultSchema string
}

var _ Introspector = (*mysqlIntrospector)(nil)

func newMySQL(ctx context.Context, cfg Config) (*mysqlIntrospector, error) {
	db, err := openSQL(ctx, "mysql", "mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	schema := cfg.Schema
	if schema == "" {
		var current sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&current); err != nil {
			_ = db.Close()
			return nil, &apperrors.ConnectionError{Backend: "mysql", Err: fmt.Errorf("resolve current database: %w", err)}
		}
		schema = current.String
	}
	if schema == "" {
		_ = db.Close()
		return nil, &apperrors.ConnectionError{Backend: "mysql", Err: errors.New("no database selected; name one in the DSN or the schema option")}
	}
	return &mysqlIntrospector{db: db, defaultSchema: schema}, nil
}

func (m *mysqlIntrospector) Close() { _ = m.db.Close() }

func (m *mysqlIntrospector) schemaOr(schema string) string {
	if schema != "" {
		return schema
	}
	return m.defaultSchema
}

func (m *mysqlIntrospector) ident(table, schema string) string {
	return mysqlQuote(schema) + "." + mysqlQuote(table)
}

func mysqlQuote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *mysqlIntrospector) ListTables(ctx context.Context, opt ListOptions) ([]contract.TableSummary, error) {
	schema := m.schemaOr(opt.Schema)
	q := `
SELECT table_name, table_type
FROM information_schema.tables
WHERE table_schema = ? AND table_type = 'BASE TABLE'
ORDER BY table_name`
	if opt.IncludeViews {
		q = `
SELECT table_name, table_type
FROM information_schema.tables
WHERE table_schema = ? AND table_type IN ('BASE TABLE', 'VIEW')
ORDER BY table_name`
	}
	rows, err := m.db.QueryContext(ctx, q, schema)
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
			Schema: schema,
			Type:   tableKind(kind),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	decorateSummaries(ctx, m, schema, summaries, opt.IncludeRowCounts)
	return summaries, nil
}

func (m *mysqlIntrospector) DescribeTable(ctx context.Context, table, schema string) (*contract.TableDescriptor, error) {
	schema = m.schemaOr(schema)
	rows, err := m.db.QueryContext(ctx, mysqlColumnsSQL, schema, table)
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	defer rows.Close()

	var columns contract.SourceSchema
	for rows.Next() {
		var name, native, nullable string
		if err := rows.Scan(&name, &native, &nullable); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns = append(columns, contract.FieldSchema{
			Name:         name,
			InferredType: NormalizeType(native),
			Nullable:     strings.EqualFold(nullable, "YES"),
			NativeType:   native,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, &apperrors.NotFoundError{Kind: "table", Name: table, Schema: schema}
	}

	pk, err := m.primaryKey(ctx, table, schema)
	if err != nil {
		return nil, fmt.Errorf("read primary key of %s: %w", table, err)
	}
	fks, err := m.foreignKeys(ctx, table, schema)
	if err != nil {
		return nil, fmt.Errorf("read foreign keys of %s: %w", table, err)
	}
	return &contract.TableDescriptor{
		Name:        table,
		SchemaName:  schema,
		Columns:     columns,
		PrimaryKey:  pk,
		ForeignKeys: fks,
	}, nil
}

func (m *mysqlIntrospector) primaryKey(ctx context.Context, table, schema string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, mysqlPrimaryKeySQL, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pk := []string{}
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		pk = append(pk, col)
	}
	return pk, rows.Err()
}

func (m *mysqlIntrospector) columnCount(ctx context.Context, table, schema string) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, mysqlColumnCountSQL, schema, table).Scan(&n)
	return n, err
}

func (m *mysqlIntrospector) foreignKeys(ctx context.Context, table, schema string) ([]contract.ForeignKey, error) {
	rows, err := m.db.QueryContext(ctx, mysqlForeignKeysSQL, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := []contract.ForeignKey{}
	index := map[string]int{}
	for rows.Next() {
		var constraint, column, refSchema, refTable, refColumn string
		if err := rows.Scan(&constraint, &column, &refSchema, &refTable, &refColumn); err != nil {
			return nil, err
		}
		i, ok := index[constraint]
		if !ok {
			i = len(fks)
			index[constraint] = i
			fks = append(fks, contract.ForeignKey{
				ConstraintName: constraint,
				ReferredTable:  refTable,
				ReferredSchema: refSchema,
			})
		}
		fks[i].Columns = append(fks[i].Columns, column)
		fks[i].ReferredColumns = append(fks[i].ReferredColumns, refColumn)
	}
	return fks, rows.Err()
}

func (m *mysqlIntrospector) SampleRows(ctx context.Context, target, schema string, limit int) ([]string, [][]string, error) {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT * FROM (%s) AS subquery LIMIT %d", target, limit)
	} else {
		q = fmt.Sprintf("SELECT * FROM %s LIMIT %d", m.ident(target, m.schemaOr(schema)), limit)
	}
	cols, out, err := queryStringRows(ctx, m.db, q)
	if err != nil {
		return nil, nil, fmt.Errorf("sample rows: %w", err)
	}
	return cols, out, nil
}

func (m *mysqlIntrospector) CountRows(ctx context.Context, target, schema string) (int64, error) {
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS subquery", target)
	} else {
		q = fmt.Sprintf("SELECT COUNT(*) FROM %s", m.ident(target, m.schemaOr(schema)))
	}
	var n int64
	if err := m.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
