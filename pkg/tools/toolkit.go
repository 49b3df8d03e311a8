// Package tools provides the MCP tools served by mcp-postgres.
package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgres/pkg/connections"
	"github.com/txn2/mcp-postgres/pkg/query"
)

// Tool names.
const (
	ToolListConnections  = "list_connections"
	ToolExecuteSQL       = "execute_sql"
	ToolListSchemas      = "list_schemas"
	ToolListObjects      = "list_objects"
	ToolGetObjectDetails = "get_object_details"
)

// ConnectionSource resolves logical connection names. *connections.Registry
// implements it.
type ConnectionSource interface {
	GetConnection(name string) (string, error)
	GetConnectionInfo() []connections.ConnectionInfo
}

// Querier runs statements and catalog lookups against a connection URL.
// *query.Executor implements it.
type Querier interface {
	Execute(ctx context.Context, url, statement string) (*query.Result, error)
	ListSchemas(ctx context.Context, url string) ([]string, error)
	ListObjects(ctx context.Context, url, schema string, objectType query.ObjectType) ([]string, error)
	ObjectDetails(ctx context.Context, url, schema, object string) (*query.ObjectDetails, error)
	ReadOnly() bool
}

var (
	_ ConnectionSource = (*connections.Registry)(nil)
	_ Querier          = (*query.Executor)(nil)
)

// Toolkit provides MCP tools backed by the connection registry.
type Toolkit struct {
	conns   ConnectionSource
	querier Querier
}

// NewToolkit creates a new Toolkit.
func NewToolkit(conns ConnectionSource, querier Querier) *Toolkit {
	return &Toolkit{conns: conns, querier: querier}
}

// Tools returns the names of the tools RegisterTools adds.
func (*Toolkit) Tools() []string {
	return []string{
		ToolListConnections,
		ToolExecuteSQL,
		ToolListSchemas,
		ToolListObjects,
		ToolGetObjectDetails,
	}
}

// RegisterTools registers all tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	readOnly := t.querier.ReadOnly()

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolListConnections,
		Description: "List the configured PostgreSQL connections with their descriptions. Use the name as the 'connection' argument of the other tools.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.handleListConnections)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolExecuteSQL,
		Description: "Execute a SQL statement on a PostgreSQL connection and return the result rows.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: readOnly},
	}, t.handleExecuteSQL)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolListSchemas,
		Description: "List the user schemas of a PostgreSQL connection.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.handleListSchemas)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolListObjects,
		Description: "List tables, views or sequences in a schema.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.handleListObjects)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolGetObjectDetails,
		Description: "Show the columns of a table or view.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.handleGetObjectDetails)
}

// Close releases resources. The toolkit holds no connections.
func (*Toolkit) Close() error {
	return nil
}

// resolve maps an optional connection argument to a validated URL.
func (t *Toolkit) resolve(name string) (string, error) {
	if name == "" {
		name = connections.DefaultName
	}
	return t.conns.GetConnection(name) //nolint:wrapcheck // registry messages are shown to the client as-is
}

// jsonResult serializes v as indented JSON text content.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports err to the client. MCP protocol: tool errors are
// returned in CallToolResult.IsError, not as Go errors.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}
