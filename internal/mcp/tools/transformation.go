package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

func registerGenerateTransformationContract(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"generate_transformation_contract",
		mcp.WithDescription(
			"Generate a transformation contract that maps source to destination. "+
				"Defines field mappings, transformations, enrichment rules, and execution plan. "+
				"References existing source and destination contracts. Returns the contract as JSON.",
		),
		mcp.WithString(
			"transformation_id",
			mcp.Required(),
			mcp.Description("Unique identifier for this transformation"),
		),
		mcp.WithString(
			"source_ref",
			mcp.Required(),
			mcp.Description("Reference to source contract ID"),
		),
		mcp.WithString(
			"destination_ref",
			mcp.Required(),
			mcp.Description("Reference to destination contract ID"),
		),
		mcp.WithObject(
			"config",
			mcp.Description("Optional configuration (batch_size, error_threshold, extra metadata)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, instrumented(deps, "generate_transformation_contract", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		transformationID, err := req.RequireString("transformation_id")
		if err != nil {
			return nil, err
		}
		sourceRef, err := req.RequireString("source_ref")
		if err != nil {
			return nil, err
		}
		destinationRef, err := req.RequireString("destination_ref")
		if err != nil {
			return nil, err
		}

		config := getOptionalObject(req, "config")
		c := contract.NewTransformationContract(transformationID, sourceRef, destinationRef, config)

		// config keys tune the execution plan; everything rides along in
		// metadata either way.
		if v, ok := config["batch_size"].(float64); ok && v > 0 {
			c.ExecutionPlan.BatchSize = int(v)
		}
		if v, ok := config["error_threshold"].(float64); ok && v >= 0 {
			c.ExecutionPlan.ErrorThreshold = v
		}

		deps.Metrics.IncCounter("contract_contracts_total", 1, nil)
		deps.Logger.Info("transformation contract generated",
			zap.String("tool", "generate_transformation_contract"),
			zap.String("transformation_id", transformationID),
			zap.String("source_ref", sourceRef),
			zap.String("destination_ref", destinationRef),
		)
		return jsonResult(c)
	}))
}
