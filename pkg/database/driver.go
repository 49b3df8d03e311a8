// Package database implements the connections.Driver capability on top of
// database/sql. Both lib/pq ("postgres") and pgx ("pgx") are registered.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/txn2/mcp-postgres/pkg/connections"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

// ErrUnknownDriver is returned for a driver name database/sql does not know.
var ErrUnknownDriver = errors.New("unknown database driver")

var errCursorClosed = errors.New("cursor is closed")

// Driver opens single, unpooled connections through a database/sql driver.
type Driver struct {
	name string
}

var _ connections.Driver = (*Driver)(nil)

// NewDriver returns a Driver for a registered database/sql driver name.
func NewDriver(name string) (*Driver, error) {
	if !slices.Contains(sql.Drivers(), name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return &Driver{name: name}, nil
}

// Name returns the database/sql driver name.
func (d *Driver) Name() string {
	return d.name
}

// Connect opens a connection to url. With autocommit disabled a transaction
// is started, and it is rolled back when the connection is closed.
func (d *Driver) Connect(ctx context.Context, url string, autocommit bool) (connections.Conn, error) {
	conn, err := d.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if !autocommit {
		if err := conn.Begin(ctx, false); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// Open establishes one live connection to url.
func (d *Driver) Open(ctx context.Context, url string) (*Conn, error) {
	db, err := sql.Open(d.name, url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Conn{db: db, conn: conn}, nil
}

// queryer is satisfied by both *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn is one pinned database/sql connection with an optional transaction.
type Conn struct {
	db   *sql.DB
	conn *sql.Conn
	tx   *sql.Tx
}

var _ connections.Conn = (*Conn)(nil)

// Begin starts a transaction that Close rolls back.
func (c *Conn) Begin(ctx context.Context, readOnly bool) error {
	if c.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return errors.New("no transaction open")
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query runs a statement inside the open transaction, if any.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.queryer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Cursor returns a statement handle bound to this connection.
func (c *Conn) Cursor(_ context.Context) (connections.Cursor, error) {
	return &Cursor{q: c.queryer()}, nil
}

func (c *Conn) queryer() queryer {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

// Close rolls back any open transaction and releases the connection.
func (c *Conn) Close() error {
	var errs []error
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("rolling back: %w", err))
		}
		c.tx = nil
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, fmt.Errorf("releasing connection: %w", err))
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Cursor executes statements on its connection until closed.
type Cursor struct {
	q      queryer
	closed bool
}

var _ connections.Cursor = (*Cursor)(nil)

// Exec runs query and discards its result rows.
func (c *Cursor) Exec(ctx context.Context, query string) error {
	if c.closed {
		return errCursorClosed
	}
	rows, err := c.q.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("executing %q: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading %q: %w", query, err)
	}
	return nil
}

// Close marks the cursor unusable. The connection stays open.
func (c *Cursor) Close() error {
	c.closed = true
	return nil
}
