package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
)

// getOptionalString extracts an optional string argument, "" when absent.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return val
}

// getOptionalBool extracts an optional boolean argument, falling back to
// def when absent or of the wrong type.
func getOptionalBool(req mcp.CallToolRequest, key string, def bool) bool {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(bool); ok {
			return val
		}
	}
	return def
}

// getOptionalInt extracts an optional integer argument. JSON numbers arrive
// as float64.
func getOptionalInt(req mcp.CallToolRequest, key string, def int) int {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(float64); ok {
			return int(val)
		}
	}
	return def
}

// getOptionalObject extracts an optional object argument, nil when absent.
func getOptionalObject(req mcp.CallToolRequest, key string) map[string]any {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(map[string]any); ok {
			return val
		}
	}
	return nil
}

// getStringSlice extracts an optional array-of-strings argument. Non-string
// elements are an error the caller should surface, so the second return
// distinguishes "absent" from "present but malformed".
func getStringSlice(req mcp.CallToolRequest, key string) ([]string, error) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil, nil
	}
	raw, ok := args[key].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// jsonResult marshals v as indented JSON into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// checkSourceFile validates a request-supplied path: it must be absolute
// (the server's working directory means nothing to the caller) and must
// exist. A non-nil result is the error result to return directly.
func checkSourceFile(param, path string) *mcp.CallToolResult {
	if !filepath.IsAbs(path) {
		return NewErrorResultWithDetails(
			"invalid_parameters",
			param+" must be an absolute path",
			map[string]any{"provided_path": path},
		)
	}
	if _, err := os.Stat(path); err != nil {
		return NewErrorResultWithDetails(
			"file_not_found",
			"file not found",
			map[string]any{"path": path},
		)
	}
	return nil
}
