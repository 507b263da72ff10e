package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

const (
	mssqlColumnsSQL = `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = @p1 AND table_name = @p2
ORDER BY ordinal_position`

	mssqlColumnCountSQL = `
SELECT COUNT(*)
FROM information_schema.columns
WHERE table_schema = @p1 AND table_name = @p2`

	mssqlPrimaryKeySQL = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
 AND kcu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = @p1
  AND tc.table_name = @p2
ORDER BY kcu.ordinal_position`

	// information_schema on SQL Server does not expose the referenced
	// column, so foreign keys come from the sys catalog.
	mssqlForeignKeysSQL = `
SELECT fk.name  AS constraint_name,
       pc.name  AS column_name,
       rs.name  AS referred_schema,
       rt.name  AS referred_table,
       rc.name  AS referred_column
FROM sys.foreign_keys fk
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.tables pt ON pt.object_id = fk.parent_object_id
JOIN sys.schemas ps ON ps.schema_id = pt.schema_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
WHERE ps.name = @p1 AND pt.name = @p2
ORDER BY fk.name, fkc.constraint_column_id`
)

type mssqlIntrospector struct {
	db            *sql.DB
	defaultSchema string
}

var _ Introspector = (*mssqlIntrospector)(nil)

func newMSSQL(ctx context.Context, cfg Config) (*mssqlIntrospector, error) {
	db, err := openSQL(ctx, "mssql", "sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "dbo"
	}
	return &mssqlIntrospector{db: db, defaultSchema: schema}, nil
}

func (m *mssqlIntrospector) Close() { _ = m.db.Close() }

func (m *mssqlIntrospector) schemaOr(schema string) string {
	if schema != "" {
		return schema
	}
	return m.defaultSchema
}

func (m *mssqlIntrospector) ident(table, schema string) string {
	return mssqlQuote(schema) + "." + mssqlQuote(table)
}

func mssqlQuote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (m *mssqlIntrospector) ListTables(ctx context.Context, opt ListOptions) ([]contract.TableSummary, error) {
	schema := m.schemaOr(opt.Schema)
	q := `
SELECT table_name, table_type
FROM information_schema.tables
WHERE table_schema = @p1 AND table_type = 'BASE TABLE'
ORDER BY table_name`
	if opt.IncludeViews {
		q = `
SELECT table_name, table_type
FROM information_schema.tables
WHERE table_schema = @p1 AND table_type IN ('BASE TABLE', 'VIEW')
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

func (m *mssqlIntrospector) DescribeTable(ctx context.Context, table, schema string) (*contract.TableDescriptor, error) {
	schema = m.schemaOr(schema)
	rows, err := m.db.QueryContext(ctx, mssqlColumnsSQL, schema, table)
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

func (m *mssqlIntrospector) primaryKey(ctx context.Context, table, schema string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, mssqlPrimaryKeySQL, schema, table)
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

func (m *mssqlIntrospector) columnCount(ctx context.Context, table, schema string) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, mssqlColumnCountSQL, schema, table).Scan(&n)
	return n, err
}

func (m *mssqlIntrospector) foreignKeys(ctx context.Context, table, schema string) ([]contract.ForeignKey, error) {
	rows, err := m.db.QueryContext(ctx, mssqlForeignKeysSQL, schema, table)
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

func (m *mssqlIntrospector) SampleRows(ctx context.Context, target, schema string, limit int) ([]string, [][]string, error) {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS subquery", limit, target)
	} else {
		q = fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, m.ident(target, m.schemaOr(schema)))
	}
	cols, out, err := queryStringRows(ctx, m.db, q)
	if err != nil {
		return nil, nil, fmt.Errorf("sample rows: %w", err)
	}
	return cols, out, nil
}

func (m *mssqlIntrospector) CountRows(ctx context.Context, target, schema string) (int64, error) {
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT COUNT_BIG(*) FROM (%s) AS subquery", target)
	} else {
		q = fmt.Sprintf("SELECT COUNT_BIG(*) FROM %s", m.ident(target, m.schemaOr(schema)))
	}
	var n int64
	if err := m.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
