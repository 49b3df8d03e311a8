package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-postgres/pkg/connections"
	"github.com/txn2/mcp-postgres/pkg/query"
)

const (
	toolsTestDefaultURL   = "postgres://localhost/main"
	toolsTestAnalyticsURL = "postgres://localhost/analytics"
)

// fakeSource is an in-memory ConnectionSource.
type fakeSource struct {
	urls        map[string]string
	unavailable map[string]string
	info        []connections.ConnectionInfo
}

func (f *fakeSource) GetConnection(name string) (string, error) {
	if reason, ok := f.unavailable[name]; ok {
		return "", &connections.UnavailableError{Name: name, Reason: reason}
	}
	url, ok := f.urls[name]
	if !ok {
		return "", &connections.NotFoundError{Name: name}
	}
	return url, nil
}

func (f *fakeSource) GetConnectionInfo() []connections.ConnectionInfo {
	return f.info
}

// fakeQuerier records the URL it was called with.
type fakeQuerier struct {
	readOnly bool
	err      error
	lastURL  string
	lastType query.ObjectType
	result   *query.Result
}

func (f *fakeQuerier) Execute(_ context.Context, url, _ string) (*query.Result, error) {
	f.lastURL = url
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeQuerier) ListSchemas(_ context.Context, url string) ([]string, error) {
	f.lastURL = url
	if f.err != nil {
		return nil, f.err
	}
	return []string{"public"}, nil
}

func (f *fakeQuerier) ListObjects(_ context.Context, url, _ string, objectType query.ObjectType) ([]string, error) {
	f.lastURL = url
	f.lastType = objectType
	if f.err != nil {
		return nil, f.err
	}
	return []string{"orders"}, nil
}

func (f *fakeQuerier) ObjectDetails(_ context.Context, url, schema, object string) (*query.ObjectDetails, error) {
	f.lastURL = url
	if f.err != nil {
		return nil, f.err
	}
	return &query.ObjectDetails{
		Schema:  schema,
		Name:    object,
		Columns: []query.Column{{Name: "id", Type: "integer"}},
	}, nil
}

func (f *fakeQuerier) ReadOnly() bool { return f.readOnly }

func newTestToolkit() (*Toolkit, *fakeSource, *fakeQuerier) {
	src := &fakeSource{
		urls: map[string]string{
			connections.DefaultName: toolsTestDefaultURL,
			"analytics":             toolsTestAnalyticsURL,
		},
		unavailable: map[string]string{"legacy": "Connection refused"},
		info: []connections.ConnectionInfo{
			{Name: "analytics", Description: "Reporting replica"},
			{Name: connections.DefaultName},
		},
	}
	q := &fakeQuerier{
		readOnly: true,
		result:   &query.Result{QueryID: "q1", Columns: []string{"n"}, Rows: [][]any{{int64(1)}}, Count: 1},
	}
	return NewToolkit(src, q), src, q
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return text.Text
}

func TestToolkit_Tools(t *testing.T) {
	tk, _, _ := newTestToolkit()
	assert.Equal(t, []string{
		ToolListConnections, ToolExecuteSQL, ToolListSchemas, ToolListObjects, ToolGetObjectDetails,
	}, tk.Tools())
	assert.NoError(t, tk.Close())
}

func TestHandleListConnections(t *testing.T) {
	tk, _, _ := newTestToolkit()

	result, _, err := tk.handleListConnections(context.Background(), nil, ListConnectionsInput{})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out ListConnectionsOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "analytics", out.Connections[0].Name)
	assert.Equal(t, "Reporting replica", out.Connections[0].Description)
	assert.NotContains(t, resultText(t, result), `"description": ""`)
}

func TestHandleListConnections_Empty(t *testing.T) {
	tk := NewToolkit(&fakeSource{info: []connections.ConnectionInfo{}}, &fakeQuerier{})

	result, _, err := tk.handleListConnections(context.Background(), nil, ListConnectionsInput{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"connections": [], "count": 0}`, resultText(t, result))
}

func TestHandleExecuteSQL(t *testing.T) {
	tests := []struct {
		name       string
		connection string
		wantURL    string
	}{
		{name: "defaults to default connection", connection: "", wantURL: toolsTestDefaultURL},
		{name: "named connection", connection: "analytics", wantURL: toolsTestAnalyticsURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk, _, q := newTestToolkit()
			result, _, err := tk.handleExecuteSQL(context.Background(), nil, ExecuteSQLInput{
				Connection: tt.connection,
				SQL:        "SELECT 1 AS n",
			})
			require.NoError(t, err)
			assert.False(t, result.IsError)
			assert.Equal(t, tt.wantURL, q.lastURL)

			var out query.Result
			require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
			assert.Equal(t, "q1", out.QueryID)
			assert.Equal(t, 1, out.Count)
		})
	}
}

func TestHandleExecuteSQL_ConnectionErrors(t *testing.T) {
	tests := []struct {
		name       string
		connection string
		wantText   string
	}{
		{name: "unknown", connection: "nonexistent", wantText: "Error: connection 'nonexistent' not found"},
		{name: "unavailable", connection: "legacy", wantText: "Error: connection 'legacy' is not available: Connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk, _, q := newTestToolkit()
			result, _, err := tk.handleExecuteSQL(context.Background(), nil, ExecuteSQLInput{
				Connection: tt.connection,
				SQL:        "SELECT 1",
			})
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Equal(t, tt.wantText, resultText(t, result))
			assert.Empty(t, q.lastURL, "querier must not run for unresolved connections")
		})
	}
}

func TestHandleExecuteSQL_QueryError(t *testing.T) {
	tk, _, q := newTestToolkit()
	q.err = errors.New(`syntax error at or near "SELEC"`)

	result, _, err := tk.handleExecuteSQL(context.Background(), nil, ExecuteSQLInput{SQL: "SELEC 1"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "syntax error")
}

func TestHandleListSchemas(t *testing.T) {
	tk, _, q := newTestToolkit()

	result, _, err := tk.handleListSchemas(context.Background(), nil, ListSchemasInput{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, toolsTestDefaultURL, q.lastURL)
	assert.JSONEq(t, `{"connection": "default", "schemas": ["public"]}`, resultText(t, result))
}

func TestHandleListObjects(t *testing.T) {
	tk, _, q := newTestToolkit()

	result, _, err := tk.handleListObjects(context.Background(), nil, ListObjectsInput{
		Connection: "analytics",
		Schema:     "public",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, query.ObjectTable, q.lastType)
	assert.JSONEq(t,
		`{"connection": "analytics", "schema": "public", "object_type": "table", "objects": ["orders"]}`,
		resultText(t, result))

	_, _, err = tk.handleListObjects(context.Background(), nil, ListObjectsInput{Schema: "public", ObjectType: "view"})
	require.NoError(t, err)
	assert.Equal(t, query.ObjectView, q.lastType)
}

func TestHandleListObjects_QueryError(t *testing.T) {
	tk, _, q := newTestToolkit()
	q.err = query.ErrUnknownObjectType

	result, _, err := tk.handleListObjects(context.Background(), nil, ListObjectsInput{Schema: "public", ObjectType: "index"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetObjectDetails(t *testing.T) {
	tk, _, _ := newTestToolkit()

	result, _, err := tk.handleGetObjectDetails(context.Background(), nil, GetObjectDetailsInput{
		Schema: "public",
		Object: "orders",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out query.ObjectDetails
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, "orders", out.Name)
	require.Len(t, out.Columns, 1)
	assert.Equal(t, "id", out.Columns[0].Name)
}

func TestHandleGetObjectDetails_Unavailable(t *testing.T) {
	tk, _, _ := newTestToolkit()

	result, _, err := tk.handleGetObjectDetails(context.Background(), nil, GetObjectDetailsInput{
		Connection: "legacy",
		Schema:     "public",
		Object:     "orders",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "is not available")
}

func TestToolkit_RegisterTools_OverMCP(t *testing.T) {
	ctx := context.Background()
	tk, _, _ := newTestToolkit()

	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	tk.RegisterTools(server)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	listed, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
		require.NotNil(t, tool.Annotations)
		assert.True(t, tool.Annotations.ReadOnlyHint, "tool %s", tool.Name)
	}
	assert.ElementsMatch(t, tk.Tools(), names)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolExecuteSQL,
		Arguments: map[string]any{"connection": "nonexistent", "sql": "SELECT 1"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error: connection 'nonexistent' not found", resultText(t, result))
}

func TestToolkit_ExecuteSQLWritableAnnotation(t *testing.T) {
	tk := NewToolkit(&fakeSource{}, &fakeQuerier{readOnly: false})
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	tk.RegisterTools(server)

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	session, err := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "1.0.0"}, nil).
		Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	listed, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	for _, tool := range listed.Tools {
		if tool.Name == ToolExecuteSQL {
			require.NotNil(t, tool.Annotations)
			assert.False(t, tool.Annotations.ReadOnlyHint)
		}
	}
}
