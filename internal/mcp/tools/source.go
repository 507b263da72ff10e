package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/metrics"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/probe"
)

// sourceAnalysis is the analyze_source response: the raw probe output
// without contract wrapping.
type sourceAnalysis struct {
	FileFormat string                  `json:"file_format"`
	Encoding   string                  `json:"encoding"`
	HasBOM     bool                    `json:"has_bom"`
	Delimiter  string                  `json:"delimiter,omitempty"`
	HasHeader  bool                    `json:"has_header"`
	Fields     contract.SourceSchema   `json:"fields"`
	Quality    contract.QualityMetrics `json:"quality_metrics"`
}

func registerGenerateSourceContract(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"generate_source_contract",
		mcp.WithDescription(
			"Generate a source contract that describes a data source. "+
				"Automatically analyzes the source file and extracts schema, data types, "+
				"encoding, format, and quality metrics. Returns the contract as JSON.",
		),
		mcp.WithString(
			"source_path",
			mcp.Required(),
			mcp.Description("Absolute path to the source data file"),
		),
		mcp.WithString(
			"source_id",
			mcp.Required(),
			mcp.Description("Unique identifier for this source (e.g. 'swedish_bank_csv')"),
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

	s.AddTool(tool, instrumented(deps, "generate_source_contract", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourcePath, err := req.RequireString("source_path")
		if err != nil {
			return nil, err
		}
		sourceID, err := req.RequireString("source_id")
		if err != nil {
			return nil, err
		}
		if res := checkSourceFile("source_path", sourcePath); res != nil {
			return res, nil
		}

		requestID := uuid.NewString()
		log := deps.Logger.With(
			zap.String("tool", "generate_source_contract"),
			zap.String("request_id", requestID),
			zap.String("source_path", sourcePath),
			zap.String("source_id", sourceID),
		)

		analysis, err := probe.AnalyzeFile(sourcePath, deps.FileSampling)
		if err != nil {
			log.Warn("source analysis failed", zap.Error(err))
			if res := resultForEngineError(err); res != nil {
				return res, nil
			}
			return nil, fmt.Errorf("analyze source: %w", err)
		}
		deps.recordSourceAnalyzed(analysis)

		c := contract.NewSourceContract(
			sourceID,
			sourcePath,
			analysis.FileFormat,
			analysis.Encoding,
			analysis.Delimiter,
			analysis.HasHeader,
			analysis.Schema,
			analysis.Quality,
			getOptionalObject(req, "config"),
		)
		deps.Metrics.IncCounter("contract_contracts_total", 1, nil)

		log.Info("source contract generated",
			zap.String("file_format", analysis.FileFormat),
			zap.Int("columns", len(analysis.Schema)),
			zap.Int64("rows", analysis.Quality.RowCount),
		)
		return jsonResult(c)
	}))
}

func registerAnalyzeSource(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"analyze_source",
		mcp.WithDescription(
			"Analyze a source file and return detailed metadata including file format, encoding, "+
				"delimiter, data types, and quality assessment. Returns raw analysis as JSON.",
		),
		mcp.WithString(
			"source_path",
			mcp.Required(),
			mcp.Description("Absolute path to the source data file"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, instrumented(deps, "analyze_source", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourcePath, err := req.RequireString("source_path")
		if err != nil {
			return nil, err
		}
		if res := checkSourceFile("source_path", sourcePath); res != nil {
			return res, nil
		}

		analysis, err := probe.AnalyzeFile(sourcePath, deps.FileSampling)
		if err != nil {
			deps.Logger.Warn("source analysis failed",
				zap.String("tool", "analyze_source"),
				zap.String("source_path", sourcePath),
				zap.Error(err),
			)
			if res := resultForEngineError(err); res != nil {
				return res, nil
			}
			return nil, fmt.Errorf("analyze source: %w", err)
		}
		deps.recordSourceAnalyzed(analysis)

		return jsonResult(sourceAnalysis{
			FileFormat: analysis.FileFormat,
			Encoding:   analysis.Encoding,
			HasBOM:     analysis.HasBOM,
			Delimiter:  analysis.Delimiter,
			HasHeader:  analysis.HasHeader,
			Fields:     analysis.Schema,
			Quality:    analysis.Quality,
		})
	}))
}

// recordSourceAnalyzed emits the per-source metrics shared by the two file
// tools.
func (d *Deps) recordSourceAnalyzed(a *probe.Analysis) {
	d.Metrics.IncCounter("contract_sources_total", 1, metrics.Labels{"kind": a.FileFormat})
	d.Metrics.ObserveHistogram("contract_infer_columns", float64(len(a.Schema)), metrics.Labels{"kind": "file"})
}
