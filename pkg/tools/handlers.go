package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgres/pkg/connections"
	"github.com/txn2/mcp-postgres/pkg/query"
)

// ListConnectionsInput is empty since the tool has no parameters.
type ListConnectionsInput struct{}

// ListConnectionsOutput is the JSON response of list_connections.
type ListConnectionsOutput struct {
	Connections []connections.ConnectionInfo `json:"connections"`
	Count       int                          `json:"count"`
}

// ExecuteSQLInput is the input of execute_sql.
type ExecuteSQLInput struct {
	Connection string `json:"connection,omitempty" jsonschema:"connection name from list_connections, defaults to 'default'"`
	SQL        string `json:"sql" jsonschema:"the SQL statement to execute"`
}

// ListSchemasInput is the input of list_schemas.
type ListSchemasInput struct {
	Connection string `json:"connection,omitempty" jsonschema:"connection name from list_connections, defaults to 'default'"`
}

// ListSchemasOutput is the JSON response of list_schemas.
type ListSchemasOutput struct {
	Connection string   `json:"connection"`
	Schemas    []string `json:"schemas"`
}

// ListObjectsInput is the input of list_objects.
type ListObjectsInput struct {
	Connection string `json:"connection,omitempty" jsonschema:"connection name from list_connections, defaults to 'default'"`
	Schema     string `json:"schema" jsonschema:"schema name"`
	ObjectType string `json:"object_type,omitempty" jsonschema:"table (default), view or sequence"`
}

// ListObjectsOutput is the JSON response of list_objects.
type ListObjectsOutput struct {
	Connection string   `json:"connection"`
	Schema     string   `json:"schema"`
	ObjectType string   `json:"object_type"`
	Objects    []string `json:"objects"`
}

// GetObjectDetailsInput is the input of get_object_details.
type GetObjectDetailsInput struct {
	Connection string `json:"connection,omitempty" jsonschema:"connection name from list_connections, defaults to 'default'"`
	Schema     string `json:"schema" jsonschema:"schema name"`
	Object     string `json:"object" jsonschema:"table or view name"`
}

func (t *Toolkit) handleListConnections(_ context.Context, _ *mcp.CallToolRequest, _ ListConnectionsInput) (*mcp.CallToolResult, any, error) {
	info := t.conns.GetConnectionInfo()
	return jsonResult(ListConnectionsOutput{Connections: info, Count: len(info)})
}

func (t *Toolkit) handleExecuteSQL(ctx context.Context, _ *mcp.CallToolRequest, in ExecuteSQLInput) (*mcp.CallToolResult, any, error) {
	url, err := t.resolve(in.Connection)
	if err != nil {
		return errorResult(err), nil, nil
	}
	result, err := t.querier.Execute(ctx, url, in.SQL)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(result)
}

func (t *Toolkit) handleListSchemas(ctx context.Context, _ *mcp.CallToolRequest, in ListSchemasInput) (*mcp.CallToolResult, any, error) {
	url, err := t.resolve(in.Connection)
	if err != nil {
		return errorResult(err), nil, nil
	}
	schemas, err := t.querier.ListSchemas(ctx, url)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(ListSchemasOutput{Connection: connectionOrDefault(in.Connection), Schemas: schemas})
}

func (t *Toolkit) handleListObjects(ctx context.Context, _ *mcp.CallToolRequest, in ListObjectsInput) (*mcp.CallToolResult, any, error) {
	url, err := t.resolve(in.Connection)
	if err != nil {
		return errorResult(err), nil, nil
	}
	objectType := query.ObjectType(in.ObjectType)
	if objectType == "" {
		objectType = query.ObjectTable
	}
	objects, err := t.querier.ListObjects(ctx, url, in.Schema, objectType)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(ListObjectsOutput{
		Connection: connectionOrDefault(in.Connection),
		Schema:     in.Schema,
		ObjectType: string(objectType),
		Objects:    objects,
	})
}

func (t *Toolkit) handleGetObjectDetails(ctx context.Context, _ *mcp.CallToolRequest, in GetObjectDetailsInput) (*mcp.CallToolResult, any, error) {
	url, err := t.resolve(in.Connection)
	if err != nil {
		return errorResult(err), nil, nil
	}
	details, err := t.querier.ObjectDetails(ctx, url, in.Schema, in.Object)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(details)
}

func connectionOrDefault(name string) string {
	if name == "" {
		return connections.DefaultName
	}
	return name
}
