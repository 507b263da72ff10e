package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/logging"
)

// ErrorResponse is the structured error carried inside a tool result. The
// caller sees it as a successful tool call whose payload says what went
// wrong, which keeps the detail visible instead of being swallowed as a
// protocol failure.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult builds an error tool result for recoverable, actionable
// failures (bad parameters, missing files, unreachable databases). System
// failures should stay Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails is NewErrorResult with extra context the caller
// can act on, like the list of tables in a dependency cycle.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	raw, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	})
	result := mcp.NewToolResultText(string(raw))
	result.IsError = true
	return result
}

// resultForEngineError maps the engine error taxonomy to error results.
// It returns nil for errors outside the taxonomy; those propagate as Go
// errors. Messages that can echo connection details are sanitized.
func resultForEngineError(err error) *mcp.CallToolResult {
	var (
		detection *apperrors.FormatDetectionError
		inference *apperrors.SchemaInferenceError
		conn      *apperrors.ConnectionError
		notFound  *apperrors.NotFoundError
		cycle     *apperrors.CycleDetectedError
	)
	switch {
	case errors.As(err, &detection):
		return NewErrorResult("format_detection_failed", detection.Error())
	case errors.As(err, &inference):
		return NewErrorResult("schema_inference_failed", inference.Error())
	case errors.As(err, &conn):
		return NewErrorResult("connection_failed", logging.SanitizeError(conn))
	case errors.As(err, &notFound):
		return NewErrorResult("not_found", notFound.Error())
	case errors.As(err, &cycle):
		return NewErrorResultWithDetails("cycle_detected", cycle.Error(), map[string]any{"tables": cycle.Tables})
	}
	return nil
}
