package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// errorRecord is the uniform failure payload returned by every tool.
// Clients can rely on a single "error" key regardless of which layer
// the failure came from.
type errorRecord struct {
	Error string `json:"error"`
}

// JSONResult marshals v and returns it as a text tool result.
// A marshal failure is reported through the uniform error record so
// the caller still receives a well-formed payload.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorResult returns a tool result carrying the uniform
// {"error": "<message>"} record with the error flag set.
func ErrorResult(message string) *mcp.CallToolResult {
	data, err := json.Marshal(errorRecord{Error: message})
	if err != nil {
		// Marshalling a flat string cannot fail; fall back anyway.
		return mcp.NewToolResultError(message)
	}

	result := mcp.NewToolResultText(string(data))
	result.IsError = true
	return result
}

// ErrorResultf is ErrorResult with fmt.Sprintf formatting.
func ErrorResultf(format string, args ...any) *mcp.CallToolResult {
	return ErrorResult(fmt.Sprintf(format, args...))
}
