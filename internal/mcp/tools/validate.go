package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// validationReport is the validate_contract response.
type validationReport struct {
	Valid        bool     `json:"valid"`
	ContractType string   `json:"contract_type"`
	ContractID   string   `json:"contract_id,omitempty"`
	Issues       []string `json:"issues"`
}

func registerValidateContract(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"validate_contract",
		mcp.WithDescription(
			"Validate a contract file structurally: required fields per contract type, "+
				"parallel schema arrays, referenced field names. Returns the issue list as JSON.",
		),
		mcp.WithString(
			"contract_path",
			mcp.Required(),
			mcp.Description("Absolute path to the contract JSON file"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, instrumented(deps, "validate_contract", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contractPath, err := req.RequireString("contract_path")
		if err != nil {
			return nil, err
		}
		if res := checkSourceFile("contract_path", contractPath); res != nil {
			return res, nil
		}

		loaded, err := contract.Load(contractPath)
		if err != nil {
			deps.Logger.Warn("contract load failed",
				zap.String("tool", "validate_contract"),
				zap.String("contract_path", contractPath),
				zap.Error(err),
			)
			return NewErrorResultWithDetails(
				"invalid_contract",
				fmt.Sprintf("contract could not be parsed: %v", err),
				map[string]any{"path": contractPath},
			), nil
		}

		issues := contract.Validate(loaded)
		if issues == nil {
			issues = []string{}
		}
		return jsonResult(validationReport{
			Valid:        len(issues) == 0,
			ContractType: loaded.Type,
			ContractID:   loaded.ID(),
			Issues:       issues,
		})
	}))
}
