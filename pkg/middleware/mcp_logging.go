package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgres/pkg/query"
)

// defaultConnection is reported when a tool call names no connection.
const defaultConnection = "default"

// MCPToolLoggingMiddleware logs every tools/call with its tool name,
// connection, statement kind, duration and outcome. SQL text and argument
// values are not logged.
func MCPToolLoggingMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			params, err := extractCallParams(req)
			if err != nil {
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			logToolCall(params, result, err, time.Since(start))
			return result, err
		}
	}
}

func logToolCall(params *mcp.CallToolParamsRaw, result mcp.Result, handlerErr error, elapsed time.Duration) {
	args := extractArgumentsMap(params)
	connection := stringArg(args, "connection")
	if connection == "" {
		connection = defaultConnection
	}

	attrs := []any{
		"request_id", uuid.NewString(),
		"tool", params.Name,
		"connection", connection,
		"duration_ms", elapsed.Milliseconds(),
	}
	if sql := stringArg(args, "sql"); sql != "" {
		attrs = append(attrs, "statement", query.StatementKind(sql))
	}

	if handlerErr != nil {
		slog.Warn("tool call failed", append(attrs, "error", handlerErr)...)
		return
	}
	if callResult, ok := result.(*mcp.CallToolResult); ok && callResult.IsError {
		slog.Warn("tool call returned error", append(attrs, "error", extractErrorMessage(callResult))...)
		return
	}
	slog.Info("tool call", attrs...)
}
