// Package tools implements the MCP tool surface: contract generation,
// source analysis, database introspection, and contract validation.
package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/introspect"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/logging"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/metrics"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/probe"
)

// defaultDBSampleRows bounds database sampling when the caller configures
// nothing and the request names no sample_size.
const defaultDBSampleRows = 1000

// Deps carries what every tool handler needs. One value is shared by all
// registrations; handlers hold no other state.
type Deps struct {
	Logger  *zap.Logger
	Metrics metrics.Backend

	// FileSampling bounds file analysis (prefix bytes, sample rows).
	// Zero values fall back to the probe defaults.
	FileSampling probe.Options

	// DBSampleRows is the default row sample per database table or query.
	// Requests can override it per call via sample_size.
	DBSampleRows int
}

// RegisterAll registers every tool on the server. Nil Logger and Metrics
// are replaced with no-ops so tests can pass a zero Deps.
func RegisterAll(s *server.MCPServer, deps *Deps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.DBSampleRows <= 0 {
		deps.DBSampleRows = defaultDBSampleRows
	}

	registerGenerateSourceContract(s, deps)
	registerAnalyzeSource(s, deps)
	registerGenerateDestinationContract(s, deps)
	registerGenerateTransformationContract(s, deps)
	registerGenerateDatabaseSourceContract(s, deps)
	registerListDatabaseTables(s, deps)
	registerGenerateDatabaseMultiSourceContracts(s, deps)
	registerValidateContract(s, deps)
}

// observe records completion of one tool call on both the counter and the
// duration histogram.
func (d *Deps) observe(tool, status string, start time.Time) {
	labels := metrics.Labels{"tool": tool, "status": status}
	d.Metrics.IncCounter("contract_tool_total", 1, labels)
	d.Metrics.ObserveHistogram("contract_tool_duration_seconds", time.Since(start).Seconds(), labels)
}

// openIntrospector opens a backend connection, logging the attempt with a
// sanitized DSN.
func (d *Deps) openIntrospector(ctx context.Context, cfg introspect.Config) (introspect.Introspector, error) {
	d.Logger.Debug("opening database",
		zap.String("backend", cfg.Backend),
		zap.String("dsn", logging.SanitizeDSN(cfg.DSN)),
	)
	return introspect.Open(ctx, cfg)
}

// recordDBQuery records one introspection call against a backend: the call
// count, its duration, and the failure if any.
func (d *Deps) recordDBQuery(backend string, start time.Time, err error) {
	labels := metrics.Labels{"backend": backend}
	d.Metrics.IncCounter("contract_db_queries_total", 1, labels)
	d.Metrics.ObserveHistogram("contract_db_query_duration_seconds", time.Since(start).Seconds(), labels)
	if err != nil {
		d.Metrics.IncCounter("contract_db_errors_total", 1, labels)
	}
}

// instrumented wraps a handler so every call lands in the tool metrics,
// error results and Go errors both counting as status=error.
func instrumented(deps *Deps, tool string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := h(ctx, req)
		status := "ok"
		if err != nil || (res != nil && res.IsError) {
			status = "error"
		}
		deps.observe(tool, status, start)
		return res, err
	}
}
