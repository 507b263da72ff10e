package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

const (
	pgListTablesSQL = `
SELECT table_name, table_type
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = ANY($2::text[])
ORDER BY table_name`

	pgColumnsSQL = `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

	pgColumnCountSQL = `
SELECT COUNT(*)
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2`

	pgPrimaryKeySQL = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
 AND kcu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = $1
  AND tc.table_name = $2
ORDER BY kcu.ordinal_position`

	// Composite keys fan out into a cross product through this join;
	// grouping dedupes the column lists afterwards.
	pgForeignKeysSQL = `
SELECT tc.constraint_name,
       kcu.column_name,
       ccu.table_schema AS referred_schema,
       ccu.table_name   AS referred_table,
       ccu.column_name  AS referred_column
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
 AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name
 AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = $1
  AND tc.table_name = $2
ORDER BY tc.constraint_name, kcu.ordinal_position`
)

type postgresIntrospector struct {
	pool          *pgxpool.Pool
	defaultSchema string
}

var _ Introspector = (*postgresIntrospector)(nil)

func newPostgres(ctx context.Context, cfg Config) (*postgresIntrospector, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, &apperrors.ConnectionError{Backend: "postgres", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &apperrors.ConnectionError{Backend: "postgres", Err: err}
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &postgresIntrospector{pool: pool, defaultSchema: schema}, nil
}

func (p *postgresIntrospector) Close() { p.pool.Close() }

func (p *postgresIntrospector) schemaOr(schema string) string {
	if schema != "" {
		return schema
	}
	return p.defaultSchema
}

func (p *postgresIntrospector) ident(table, schema string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

func (p *postgresIntrospector) ListTables(ctx context.Context, opt ListOptions) ([]contract.TableSummary, error) {
	schema := p.schemaOr(opt.Schema)
	kinds := []string{"BASE TABLE"}
	if opt.IncludeViews {
		kinds = append(kinds, "VIEW")
	}
	rows, err := p.pool.Query(ctx, pgListTablesSQL, schema, kinds)
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

	decorateSummaries(ctx, p, schema, summaries, opt.IncludeRowCounts)
	return summaries, nil
}

func (p *postgresIntrospector) DescribeTable(ctx context.Context, table, schema string) (*contract.TableDescriptor, error) {
	schema = p.schemaOr(schema)
	rows, err := p.pool.Query(ctx, pgColumnsSQL, schema, table)
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
			Nullable:     nullable == "YES",
			NativeType:   native,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, &apperrors.NotFoundError{Kind: "table", Name: table, Schema: schema}
	}

	pk, err := p.primaryKey(ctx, table, schema)
	if err != nil {
		return nil, fmt.Errorf("read primary key of %s: %w", table, err)
	}
	fks, err := p.foreignKeys(ctx, table, schema)
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

func (p *postgresIntrospector) primaryKey(ctx context.Context, table, schema string) ([]string, error) {
	rows, err := p.pool.Query(ctx, pgPrimaryKeySQL, schema, table)
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

func (p *postgresIntrospector) columnCount(ctx context.Context, table, schema string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, pgColumnCountSQL, schema, table).Scan(&n)
	return n, err
}

func (p *postgresIntrospector) foreignKeys(ctx context.Context, table, schema string) ([]contract.ForeignKey, error) {
	rows, err := p.pool.Query(ctx, pgForeignKeysSQL, schema, table)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range fks {
		fks[i].Columns = dedupeStrings(fks[i].Columns)
		fks[i].ReferredColumns = dedupeStrings(fks[i].ReferredColumns)
	}
	return fks, nil
}

func (p *postgresIntrospector) SampleRows(ctx context.Context, target, schema string, limit int) ([]string, [][]string, error) {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT * FROM (%s) AS subquery LIMIT %d", target, limit)
	} else {
		q = fmt.Sprintf("SELECT * FROM %s LIMIT %d", p.ident(target, p.schemaOr(schema)), limit)
	}
	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("sample rows: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	var out [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("read sample row: %w", err)
		}
		rec := make([]string, len(values))
		for i, v := range values {
			rec[i] = stringifyValue(v)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("sample rows: %w", err)
	}
	return cols, out, nil
}

func (p *postgresIntrospector) CountRows(ctx context.Context, target, schema string) (int64, error) {
	var q string
	if looksLikeQuery(target) {
		q = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS subquery", target)
	} else {
		q = fmt.Sprintf("SELECT COUNT(*) FROM %s", p.ident(target, p.schemaOr(schema)))
	}
	var n int64
	if err := p.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
