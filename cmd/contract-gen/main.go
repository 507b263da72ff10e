// Command contract-gen runs the contract engine one-shot, without an MCP
// client: analyze a source, list database tables, or validate a contract,
// and print the result as JSON on stdout.
//
// Subcommands
//
//	source      analyze a file source and emit a source contract
//	db-source   analyze a database table, view, or query and emit a source contract
//	tables      list tables in a database
//	multi       emit contracts for many tables with load-order metadata
//	destination emit a destination contract from a table or an OpenAPI endpoint
//	validate    structurally validate a contract file
//
// Every subcommand takes -h for its flags. Paths must be absolute; results
// written with -out never land relative to the working directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/introspect"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/probe"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/relation"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("contract-gen: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "source":
		err = runSource(os.Args[2:])
	case "db-source":
		err = runDBSource(ctx, os.Args[2:])
	case "tables":
		err = runTables(ctx, os.Args[2:])
	case "multi":
		err = runMulti(ctx, os.Args[2:])
	case "destination":
		err = runDestination(ctx, os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: contract-gen <source|db-source|tables|multi|destination|validate> [flags]`)
}

// emit prints v as indented JSON on stdout and, when out is non-empty,
// also saves it there.
func emit(v any, out string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))
	if out != "" {
		return contract.Save(out, v)
	}
	return nil
}

func runSource(args []string) error {
	fs := flag.NewFlagSet("source", flag.ExitOnError)
	var (
		path   = fs.String("path", "", "absolute path to the source file (csv, json, ndjson, html)")
		id     = fs.String("id", "", "source identifier for the contract")
		bytes_ = fs.Int("bytes", probe.DefaultMaxBytes, "prefix bytes sampled for detection")
		rows   = fs.Int("rows", probe.DefaultSampleRows, "row cap for type inference")
		out    = fs.String("out", "", "optional absolute path to save the contract")
	)
	fs.Parse(args)
	if *path == "" || *id == "" {
		return fmt.Errorf("source: -path and -id are required")
	}
	abs, err := filepath.Abs(*path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	analysis, err := probe.AnalyzeFile(abs, probe.Options{MaxBytes: *bytes_, SampleRows: *rows})
	if err != nil {
		return err
	}
	c := contract.NewSourceContract(
		*id, abs,
		analysis.FileFormat, analysis.Encoding, analysis.Delimiter, analysis.HasHeader,
		analysis.Schema, analysis.Quality, nil,
	)
	return emit(c, *out)
}

func runDBSource(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("db-source", flag.ExitOnError)
	var (
		dsn     = fs.String("dsn", "", "database connection string")
		backend = fs.String("type", "", "database type: postgres, mysql, mssql, or sqlite")
		table   = fs.String("table", "", "table or view name")
		query   = fs.String("query", "", "SQL query instead of a table")
		schema  = fs.String("schema", "", "schema name (optional)")
		id      = fs.String("id", "", "source identifier for the contract")
		sample  = fs.Int("sample", 1000, "rows sampled for quality metrics")
		out     = fs.String("out", "", "optional absolute path to save the contract")
	)
	fs.Parse(args)
	if *dsn == "" || *backend == "" || *id == "" {
		return fmt.Errorf("db-source: -dsn, -type, and -id are required")
	}
	if (*table == "") == (*query == "") {
		return fmt.Errorf("db-source: exactly one of -table or -query is required")
	}

	in, err := introspect.Open(ctx, introspect.Config{Backend: *backend, DSN: *dsn, Schema: *schema})
	if err != nil {
		return err
	}
	defer in.Close()

	var c *contract.SourceContract
	if *query != "" {
		analysis, err := introspect.AnalyzeQuery(ctx, in, *query, *schema, *sample)
		if err != nil {
			return err
		}
		metadata := map[string]any{
			"query":        *query,
			"column_count": len(analysis.Columns),
			"sample_size":  analysis.Quality.SampledRowCount,
		}
		c = contract.NewDatabaseSourceContract(*id, *backend, "query", "", *schema, analysis.Columns, analysis.Quality, metadata)
	} else {
		analysis, err := introspect.AnalyzeTable(ctx, in, *table, *schema, *sample)
		if err != nil {
			return err
		}
		desc := analysis.Descriptor
		metadata := map[string]any{
			"primary_key":  desc.PrimaryKey,
			"foreign_keys": desc.ForeignKeys,
			"column_count": len(desc.Columns),
			"sample_size":  analysis.Quality.SampledRowCount,
		}
		c = contract.NewDatabaseSourceContract(*id, *backend, "table", *table, desc.SchemaName, desc.Columns, analysis.Quality, metadata)
	}
	return emit(c, *out)
}

func runTables(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tables", flag.ExitOnError)
	var (
		dsn     = fs.String("dsn", "", "database connection string")
		backend = fs.String("type", "", "database type: postgres, mysql, mssql, or sqlite")
		schema  = fs.String("schema", "", "schema name (optional)")
		views   = fs.Bool("views", false, "include views")
		counts  = fs.Bool("counts", true, "include row counts (may be slow)")
	)
	fs.Parse(args)
	if *dsn == "" || *backend == "" {
		return fmt.Errorf("tables: -dsn and -type are required")
	}

	in, err := introspect.Open(ctx, introspect.Config{Backend: *backend, DSN: *dsn, Schema: *schema})
	if err != nil {
		return err
	}
	defer in.Close()

	tables, err := in.ListTables(ctx, introspect.ListOptions{
		Schema:           *schema,
		IncludeViews:     *views,
		IncludeRowCounts: *counts,
	})
	if err != nil {
		return err
	}
	return emit(map[string]any{"tables": tables, "count": len(tables)}, "")
}

func runMulti(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("multi", flag.ExitOnError)
	var (
		dsn     = fs.String("dsn", "", "database connection string")
		backend = fs.String("type", "", "database type: postgres, mysql, mssql, or sqlite")
		schema  = fs.String("schema", "", "schema name (optional)")
		tables  = fs.String("tables", "", "comma-separated table names (default: all tables)")
		onCycle = fs.String("on-cycle", "partial", "cycle handling: partial or abort")
		sample  = fs.Int("sample", 1000, "rows sampled per table")
	)
	fs.Parse(args)
	if *dsn == "" || *backend == "" {
		return fmt.Errorf("multi: -dsn and -type are required")
	}
	policy := relation.Partial
	switch *onCycle {
	case "partial":
	case "abort":
		policy = relation.Abort
	default:
		return fmt.Errorf("multi: -on-cycle must be partial or abort, got %q", *onCycle)
	}

	in, err := introspect.Open(ctx, introspect.Config{Backend: *backend, DSN: *dsn, Schema: *schema})
	if err != nil {
		return err
	}
	defer in.Close()

	var requested []string
	for _, t := range strings.Split(*tables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			requested = append(requested, t)
		}
	}
	if len(requested) == 0 {
		summaries, err := in.ListTables(ctx, introspect.ListOptions{Schema: *schema})
		if err != nil {
			return err
		}
		for _, s := range summaries {
			requested = append(requested, s.Name)
		}
	}

	var descriptors []contract.TableDescriptor
	for _, name := range requested {
		desc, err := in.DescribeTable(ctx, name, *schema)
		if err != nil {
			return fmt.Errorf("describe table %s: %w", name, err)
		}
		descriptors = append(descriptors, *desc)
	}
	annotations, err := relation.BuildDependencyOrder(descriptors, policy)
	if err != nil {
		return err
	}

	var contracts []*contract.SourceContract
	for _, desc := range descriptors {
		analysis, err := introspect.AnalyzeTable(ctx, in, desc.Name, *schema, *sample)
		if err != nil {
			return fmt.Errorf("analyze table %s: %w", desc.Name, err)
		}
		metadata := map[string]any{
			"primary_key":  analysis.Descriptor.PrimaryKey,
			"foreign_keys": analysis.Descriptor.ForeignKeys,
			"column_count": len(analysis.Descriptor.Columns),
			"sample_size":  analysis.Quality.SampledRowCount,
		}
		if ann, ok := annotations[desc.Name]; ok {
			metadata["load_order"] = ann.LoadOrder
			metadata["depends_on"] = ann.DependsOn
			metadata["relationships"] = map[string]any{
				"foreign_keys":  analysis.Descriptor.ForeignKeys,
				"referenced_by": ann.ReferencedBy,
			}
			if len(ann.UnresolvedReferences) > 0 {
				metadata["unresolved_references"] = ann.UnresolvedReferences
			}
		}
		contracts = append(contracts, contract.NewDatabaseSourceContract(
			desc.Name, *backend, "table", desc.Name, desc.SchemaName,
			analysis.Descriptor.Columns, analysis.Quality, metadata,
		))
	}
	return emit(map[string]any{"contracts": contracts, "count": len(contracts)}, "")
}

func runDestination(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("destination", flag.ExitOnError)
	var (
		id       = fs.String("id", "", "destination identifier for the contract")
		dsn      = fs.String("dsn", "", "database connection string for table introspection")
		backend  = fs.String("type", "", "database type (required with -dsn)")
		table    = fs.String("table", "", "table to introspect as the destination schema")
		schema   = fs.String("schema", "", "schema name (optional)")
		openapi  = fs.String("openapi", "", "absolute path to an OpenAPI/Swagger document")
		endpoint = fs.String("endpoint", "", "endpoint path in the OpenAPI document")
		method   = fs.String("method", "POST", "HTTP method of the endpoint")
		out      = fs.String("out", "", "optional absolute path to save the contract")
	)
	fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("destination: -id is required")
	}

	var ds contract.DestinationSchema
	switch {
	case *dsn != "" && *table != "":
		if *backend == "" {
			return fmt.Errorf("destination: -type is required with -dsn")
		}
		in, err := introspect.Open(ctx, introspect.Config{Backend: *backend, DSN: *dsn, Schema: *schema})
		if err != nil {
			return err
		}
		defer in.Close()
		desc, err := in.DescribeTable(ctx, *table, *schema)
		if err != nil {
			return fmt.Errorf("describe table %s: %w", *table, err)
		}
		ds = destinationSchemaFromDescriptor(desc)
	case *openapi != "" && *endpoint != "":
		raw, err := os.ReadFile(*openapi)
		if err != nil {
			return fmt.Errorf("read openapi document: %w", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse openapi document: %w", err)
		}
		extracted, err := contract.ExtractEndpointSchema(doc, *endpoint, *method)
		if err != nil {
			return err
		}
		ds = contract.DestinationSchema{
			Fields:      extracted.Fields,
			Types:       extracted.Types,
			Constraints: extracted.Constraints,
		}
	default:
		return fmt.Errorf("destination: either -dsn with -table, or -openapi with -endpoint, is required")
	}

	return emit(contract.NewDestinationContract(*id, ds, nil), *out)
}

// destinationSchemaFromDescriptor converts a table descriptor into the
// destination shape: native types plus NOT NULL / PRIMARY KEY constraints.
func destinationSchemaFromDescriptor(desc *contract.TableDescriptor) contract.DestinationSchema {
	pk := make(map[string]bool, len(desc.PrimaryKey))
	for _, c := range desc.PrimaryKey {
		pk[c] = true
	}
	out := contract.DestinationSchema{
		Fields:      []string{},
		Types:       []string{},
		Constraints: map[string][]string{},
	}
	for _, col := range desc.Columns {
		out.Fields = append(out.Fields, col.Name)
		typ := col.NativeType
		if typ == "" {
			typ = string(col.InferredType)
		}
		out.Types = append(out.Types, typ)

		var rules []string
		if !col.Nullable {
			rules = append(rules, "NOT NULL")
		}
		if pk[col.Name] {
			rules = append(rules, "PRIMARY KEY")
		}
		if len(rules) > 0 {
			out.Constraints[col.Name] = rules
		}
	}
	return out
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", "", "absolute path to the contract JSON file")
	fs.Parse(args)
	if *path == "" {
		return fmt.Errorf("validate: -path is required")
	}

	loaded, err := contract.Load(*path)
	if err != nil {
		return err
	}
	issues := contract.Validate(loaded)
	if issues == nil {
		issues = []string{}
	}
	if err := emit(map[string]any{
		"valid":         len(issues) == 0,
		"contract_type": loaded.Type,
		"contract_id":   loaded.ID(),
		"issues":        issues,
	}, ""); err != nil {
		return err
	}
	if len(issues) > 0 {
		os.Exit(1)
	}
	return nil
}
