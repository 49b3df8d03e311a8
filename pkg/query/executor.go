package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/mcp-postgres/pkg/database"
)

const (
	// DefaultTimeout bounds a single Execute call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRows is the number of rows returned before truncating.
	DefaultMaxRows = 1000
)

// Connector opens a live connection to a URL.
type Connector interface {
	Open(ctx context.Context, url string) (*database.Conn, error)
}

// Config configures an Executor.
type Config struct {
	Timeout  time.Duration
	MaxRows  int
	ReadOnly bool
}

// Executor runs statements on a fresh connection per call. Connections are
// never pooled; each call connects, runs inside a transaction and closes.
type Executor struct {
	connector Connector
	cfg       Config
}

// NewExecutor creates an Executor, filling zero config values with defaults.
func NewExecutor(connector Connector, cfg Config) *Executor {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	return &Executor{connector: connector, cfg: cfg}
}

// ReadOnly reports whether statements run in read-only transactions.
func (e *Executor) ReadOnly() bool {
	return e.cfg.ReadOnly
}

// Execute runs statement against url. In read-only mode the transaction is
// READ ONLY and always rolled back, and the text must hold a single
// statement; otherwise it is committed after the rows are read.
func (e *Executor) Execute(ctx context.Context, url, statement string) (*Result, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, ErrEmptyStatement
	}
	if e.cfg.ReadOnly && CountStatements(statement) > 1 {
		return nil, ErrMultipleStatements
	}
	return e.run(ctx, url, e.cfg.MaxRows, statement)
}

// run executes one statement and returns at most limit rows; limit <= 0
// returns all rows.
func (e *Executor) run(ctx context.Context, url string, limit int, statement string, args ...any) (*Result, error) {
	queryID := uuid.NewString()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	conn, err := e.connector.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			slog.Debug("closing query connection", "query_id", queryID, "error", cerr)
		}
	}()

	if err := conn.Begin(ctx, e.cfg.ReadOnly); err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, statement, args...)
	if err != nil {
		slog.Warn("query failed", "query_id", queryID, "error", err)
		return nil, err
	}
	result, err := scanRows(rows, limit)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	if !e.cfg.ReadOnly {
		if err := conn.Commit(); err != nil {
			return nil, err
		}
	}

	result.QueryID = queryID
	slog.Info("query executed",
		"query_id", queryID,
		"rows", result.Count,
		"truncated", result.Truncated,
		"duration", time.Since(start))
	return result, nil
}

// scanRows reads up to limit rows. Byte slices are returned as strings so
// results serialize as text.
func scanRows(rows *sql.Rows, limit int) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if limit > 0 && result.Count >= limit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
		result.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
