package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/txn2/mcp-postgres/pkg/connections"
)

// connectionTemplateURI addresses one registered connection.
const connectionTemplateURI = "connection://{name}"

// registerResourceTemplates registers all MCP resource templates.
func (p *Platform) registerResourceTemplates() {
	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: connectionTemplateURI,
		Name:        "Database Connection",
		Description: "Availability and description of a configured PostgreSQL connection",
		MIMEType:    "application/json",
	}, p.handleConnectionResource)
}

// parseTemplateVars extracts named variables from a URI using a URI template.
// Returns a map of variable names to their values, or an error if the URI
// doesn't match the template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// connectionResource is the JSON body of a connection:// resource.
// The URL is never included since it carries credentials.
type connectionResource struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// handleConnectionResource handles connection://{name} requests.
func (p *Platform) handleConnectionResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(connectionTemplateURI, uri)
	if err != nil || vars["name"] == "" {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	name := vars["name"]

	result := connectionResource{Name: name, Available: true}
	if _, err := p.registry.GetConnection(name); err != nil {
		var notFound *connections.NotFoundError
		if errors.As(err, &notFound) {
			return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
		}
		result.Available = false
		result.Error = err.Error()
	}

	for _, info := range p.registry.GetConnectionInfo() {
		if info.Name == name {
			result.Description = info.Description
			break
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling connection resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
