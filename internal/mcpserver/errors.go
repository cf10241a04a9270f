package mcpserver

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reusability-token/internal/report"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func mapLookupError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.Is(err, report.ErrNoRun):
		return toolError("run_not_started", err.Error())
	case errors.Is(err, report.ErrDayNotFound):
		return toolError("day_not_found", err.Error())
	default:
		return toolError("internal_error", err.Error())
	}
}
