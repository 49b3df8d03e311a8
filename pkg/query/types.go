// Package query executes SQL against registered PostgreSQL connections and
// reads catalog metadata from information_schema.
//
//nolint:revive // package contains related DTO types
package query

// ObjectType selects which kind of schema object ListObjects returns.
type ObjectType string

// Supported object types.
const (
	ObjectTable    ObjectType = "table"
	ObjectView     ObjectType = "view"
	ObjectSequence ObjectType = "sequence"
)

// Column describes one column of a table or view.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// ObjectDetails describes a table or view.
type ObjectDetails struct {
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Result is the outcome of executing a statement.
type Result struct {
	QueryID   string   `json:"query_id"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
}
