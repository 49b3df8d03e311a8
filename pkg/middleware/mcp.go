// Package middleware provides MCP protocol-level middleware for the server.
package middleware

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodToolsCall = "tools/call"

var (
	errMissingParams   = errors.New("missing params")
	errMissingToolName = errors.New("missing tool name")
)

// extractCallParams returns the raw params of a tools/call request.
func extractCallParams(req mcp.Request) (*mcp.CallToolParamsRaw, error) {
	if req == nil {
		return nil, errMissingParams
	}
	params := req.GetParams()
	if params == nil {
		return nil, errMissingParams
	}

	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return nil, fmt.Errorf("unexpected params type: %T", params)
	}
	// Type assertion can succeed with a nil pointer.
	if callParams == nil {
		return nil, errMissingParams
	}
	if callParams.Name == "" {
		return nil, errMissingToolName
	}
	return callParams, nil
}

// extractArgumentsMap decodes tool arguments; malformed input yields nil.
func extractArgumentsMap(params *mcp.CallToolParamsRaw) map[string]any {
	if params == nil || len(params.Arguments) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return nil
	}
	return args
}

// stringArg returns args[key] when it is a string.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// extractErrorMessage returns the text of a failed tool result.
func extractErrorMessage(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(*mcp.TextContent); ok {
		return text.Text
	}
	return ""
}
