package connections

import "context"

// Driver opens live database connections. Implementations must return an
// error whose message is readable by an operator when the connection cannot
// be established.
type Driver interface {
	Connect(ctx context.Context, url string, autocommit bool) (Conn, error)
}

// Conn is a single live connection. Close must be safe to call after a
// failed Cursor.
type Conn interface {
	Cursor(ctx context.Context) (Cursor, error)
	Close() error
}

// Cursor executes statements on a Conn.
type Cursor interface {
	Exec(ctx context.Context, query string) error
	Close() error
}
