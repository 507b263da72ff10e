package tools

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/introspect"
)

func registerGenerateDestinationContract(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"generate_destination_contract",
		mcp.WithDescription(
			"Generate a destination contract that describes where data should be written. "+
				"The target schema can be given inline, introspected from a database table, or "+
				"extracted from an OpenAPI/Swagger document endpoint. Returns the contract as JSON.",
		),
		mcp.WithString(
			"destination_id",
			mcp.Required(),
			mcp.Description("Unique identifier for destination (e.g. 'dwh_transactions_table')"),
		),
		mcp.WithObject(
			"schema",
			mcp.Description("Inline schema definition with fields, types, and constraints; overrides derived values"),
		),
		mcp.WithString(
			"connection_string",
			mcp.Description("Database connection string for table introspection"),
		),
		mcp.WithString(
			"table_name",
			mcp.Description("Database table to introspect as the destination schema"),
		),
		mcp.WithString(
			"database_type",
			mcp.Description("Database type: 'postgres', 'mysql', 'mssql', or 'sqlite' (required with connection_string)"),
		),
		mcp.WithString(
			"database_schema",
			mcp.Description("Database schema name (optional, for databases that support schemas)"),
		),
		mcp.WithString(
			"openapi_path",
			mcp.Description("Absolute path to an OpenAPI/Swagger document (JSON or YAML)"),
		),
		mcp.WithString(
			"endpoint",
			mcp.Description("Endpoint path in the OpenAPI document (e.g. '/transactions')"),
		),
		mcp.WithString(
			"method",
			mcp.Description("HTTP method of the endpoint (default: POST)"),
		),
		mcp.WithObject(
			"config",
			mcp.Description("Optional configuration/metadata merged into the contract metadata"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, instrumented(deps, "generate_destination_contract", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		destinationID, err := req.RequireString("destination_id")
		if err != nil {
			return nil, err
		}

		var (
			schema  contract.DestinationSchema
			derived bool
		)

		dsn := getOptionalString(req, "connection_string")
		tableName := getOptionalString(req, "table_name")
		openapiPath := getOptionalString(req, "openapi_path")

		switch {
		case dsn != "" && tableName != "":
			databaseType := getOptionalString(req, "database_type")
			if databaseType == "" {
				return NewErrorResult("invalid_parameters", "database_type is required when connection_string is provided"), nil
			}
			derivedSchema, res, err := destinationSchemaFromTable(ctx, deps, introspect.Config{
				Backend: databaseType,
				DSN:     dsn,
				Schema:  getOptionalString(req, "database_schema"),
			}, tableName)
			if err != nil {
				return nil, err
			}
			if res != nil {
				return res, nil
			}
			schema, derived = derivedSchema, true

		case openapiPath != "":
			endpoint := getOptionalString(req, "endpoint")
			if endpoint == "" {
				return NewErrorResult("invalid_parameters", "endpoint is required when openapi_path is provided"), nil
			}
			method := getOptionalString(req, "method")
			if method == "" {
				method = "POST"
			}
			if res := checkSourceFile("openapi_path", openapiPath); res != nil {
				return res, nil
			}
			extracted, res, err := destinationSchemaFromOpenAPI(openapiPath, endpoint, method)
			if err != nil {
				return nil, err
			}
			if res != nil {
				return res, nil
			}
			schema, derived = extracted, true
		}

		// An inline schema overrides the derived one block by block, same
		// as a caller correcting what introspection found.
		if inline := getOptionalObject(req, "schema"); inline != nil {
			applyInlineSchema(&schema, inline)
			derived = true
		}
		if !derived {
			schema = contract.DestinationSchema{
				Fields:      []string{},
				Types:       []string{},
				Constraints: map[string][]string{},
			}
		}

		c := contract.NewDestinationContract(destinationID, schema, getOptionalObject(req, "config"))
		deps.Metrics.IncCounter("contract_contracts_total", 1, nil)

		deps.Logger.Info("destination contract generated",
			zap.String("tool", "generate_destination_contract"),
			zap.String("destination_id", destinationID),
			zap.Int("fields", len(c.Schema.Fields)),
		)
		return jsonResult(c)
	}))
}

// destinationSchemaFromTable introspects one table and converts the
// descriptor into a destination schema: native types with NOT NULL and
// PRIMARY KEY constraint strings.
func destinationSchemaFromTable(ctx context.Context, deps *Deps, cfg introspect.Config, tableName string) (contract.DestinationSchema, *mcp.CallToolResult, error) {
	var zero contract.DestinationSchema

	in, err := deps.openIntrospector(ctx, cfg)
	if err != nil {
		if res := resultForEngineError(err); res != nil {
			return zero, res, nil
		}
		return zero, nil, fmt.Errorf("open database: %w", err)
	}
	defer in.Close()

	start := time.Now()
	desc, err := in.DescribeTable(ctx, tableName, cfg.Schema)
	deps.recordDBQuery(cfg.Backend, start, err)
	if err != nil {
		if res := resultForEngineError(err); res != nil {
			return zero, res, nil
		}
		return zero, nil, fmt.Errorf("describe table %s: %w", tableName, err)
	}

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
	return out, nil, nil
}

// destinationSchemaFromOpenAPI extracts the request-body schema of one
// endpoint. YAML decoding also accepts JSON documents.
func destinationSchemaFromOpenAPI(path, endpoint, method string) (contract.DestinationSchema, *mcp.CallToolResult, error) {
	var zero contract.DestinationSchema

	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, nil, fmt.Errorf("read openapi document: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return zero, NewErrorResult("invalid_parameters", fmt.Sprintf("openapi document is not valid JSON or YAML: %v", err)), nil
	}

	extracted, err := contract.ExtractEndpointSchema(doc, endpoint, method)
	if err != nil {
		return zero, NewErrorResult("endpoint_not_found", err.Error()), nil
	}
	return contract.DestinationSchema{
		Fields:      extracted.Fields,
		Types:       extracted.Types,
		Constraints: extracted.Constraints,
	}, nil, nil
}

// applyInlineSchema overlays a request-supplied schema object. Each block
// (fields, types, constraints) replaces the derived block when present.
func applyInlineSchema(schema *contract.DestinationSchema, inline map[string]any) {
	if raw, ok := inline["fields"].([]any); ok {
		schema.Fields = anySliceToStrings(raw)
	}
	if raw, ok := inline["types"].([]any); ok {
		schema.Types = anySliceToStrings(raw)
	}
	if raw, ok := inline["constraints"].(map[string]any); ok {
		constraints := make(map[string][]string, len(raw))
		for field, v := range raw {
			if rules, ok := v.([]any); ok {
				constraints[field] = anySliceToStrings(rules)
			}
		}
		schema.Constraints = constraints
	}
	if schema.Fields == nil {
		schema.Fields = []string{}
	}
	if schema.Types == nil {
		schema.Types = []string{}
	}
	if schema.Constraints == nil {
		schema.Constraints = map[string][]string{}
	}
}

func anySliceToStrings(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
