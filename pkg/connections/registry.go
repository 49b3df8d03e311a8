// Package connections discovers PostgreSQL connection strings from the
// environment, validates each one once with a live connection, and serves
// lookups only for connections that validated.
//
// Variables follow a naming convention:
//
//	DATABASE_URI            connection named "default"
//	DATABASE_URI_<SUFFIX>   connection named lower(SUFFIX)
//	DATABASE_DESC           description for "default"
//	DATABASE_DESC_<SUFFIX>  description for lower(SUFFIX)
//
// A Registry holds no internal lock. Populate it with DiscoverAndConnect
// before sharing it; the read accessors may then be called concurrently.
package connections

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"
)

// probeQuery is executed on every validation connection.
const probeQuery = "SELECT 1"

// Status is the health state of a registered connection.
type Status int

// Connection health states.
const (
	StatusUnvalidated Status = iota
	StatusValid
	StatusInvalid
)

// String returns the status as a lowercase word.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unvalidated"
	}
}

// record is the registry's state for one connection name. reason is only
// set when status is StatusInvalid.
type record struct {
	url    string
	status Status
	reason string
}

// ConnectionInfo describes a registered connection without exposing its URL.
type ConnectionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Registry tracks discovered connections and their validation outcome.
type Registry struct {
	driver       Driver
	environ      func() []string
	probeTimeout time.Duration

	records      map[string]*record
	descriptions map[string]string
}

// Option configures a Registry.
type Option func(*Registry)

// WithEnvironment replaces os.Environ as the source of KEY=VALUE variables.
func WithEnvironment(environ func() []string) Option {
	return func(r *Registry) {
		r.environ = environ
	}
}

// WithProbeTimeout bounds each validation connect. Zero leaves the bound to
// the driver and the caller's context.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.probeTimeout = d
	}
}

// NewRegistry creates an empty registry that validates through driver.
func NewRegistry(driver Driver, opts ...Option) *Registry {
	r := &Registry{
		driver:       driver,
		environ:      os.Environ,
		records:      make(map[string]*record),
		descriptions: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DiscoverAndConnect discovers connections and descriptions, replaces the
// registry contents with them, and validates each connection once.
//
// It fails only when no connection variables exist, in which case the
// registry is left untouched. A connection that fails validation is recorded
// as invalid and does not stop the others from being validated.
func (r *Registry) DiscoverAndConnect(ctx context.Context) error {
	urls := r.DiscoverConnections()
	if len(urls) == 0 {
		return fmt.Errorf("discovering connections: %w", ErrNoConnections)
	}
	descriptions := r.DiscoverDescriptions()

	r.records = make(map[string]*record, len(urls))
	for name, url := range urls {
		r.records[name] = &record{url: url}
	}
	r.descriptions = descriptions

	for _, name := range r.GetConnectionNames() {
		rec := r.records[name]
		if err := r.probe(ctx, rec.url); err != nil {
			rec.status = StatusInvalid
			rec.reason = err.Error()
			slog.Warn("connection validation failed", "connection", name, "error", err)
			continue
		}
		rec.status = StatusValid
		slog.Info("connection validated", "connection", name)
	}

	return nil
}

// probe opens a connection with autocommit disabled, executes probeQuery on
// a cursor and releases both before returning.
func (r *Registry) probe(ctx context.Context, url string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("driver panic: %v", p)
		}
	}()

	if r.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.probeTimeout)
		defer cancel()
	}

	conn, err := r.driver.Connect(ctx, url, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			slog.Debug("closing validation connection", "error", cerr)
		}
	}()

	cur, err := conn.Cursor(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cur.Close(); cerr != nil {
			slog.Debug("closing validation cursor", "error", cerr)
		}
	}()

	return cur.Exec(ctx, probeQuery)
}

// GetConnection returns the URL of a connection that passed validation.
func (r *Registry) GetConnection(name string) (string, error) {
	rec, ok := r.records[name]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	if rec.status != StatusValid {
		return "", &UnavailableError{Name: name, Reason: rec.reason}
	}
	return rec.url, nil
}

// GetConnectionNames returns every registered name, valid or not, sorted.
func (r *Registry) GetConnectionNames() []string {
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetConnectionInfo returns one entry per registered name, sorted by name.
// Description is empty for names without a DATABASE_DESC variable.
func (r *Registry) GetConnectionInfo() []ConnectionInfo {
	names := r.GetConnectionNames()
	info := make([]ConnectionInfo, 0, len(names))
	for _, name := range names {
		info = append(info, ConnectionInfo{
			Name:        name,
			Description: r.descriptions[name],
		})
	}
	return info
}

// CloseAll forgets every connection and description. It holds no driver
// connections, so there is nothing to release. Safe to call repeatedly.
func (r *Registry) CloseAll() {
	r.records = make(map[string]*record)
	r.descriptions = make(map[string]string)
}
