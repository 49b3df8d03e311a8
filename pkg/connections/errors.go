package connections

import (
	"errors"
	"fmt"
)

// ErrNoConnections is returned by DiscoverAndConnect when the environment
// holds no DATABASE_URI variables.
var ErrNoConnections = errors.New("no database connections found")

// NotFoundError reports a lookup of a connection name that was never
// registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("connection '%s' not found", e.Name)
}

// UnavailableError reports a lookup of a registered connection that failed
// validation.
type UnavailableError struct {
	Name   string
	Reason string
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection '%s' is not available", e.Name)
	}
	return fmt.Sprintf("connection '%s' is not available: %s", e.Name, e.Reason)
}
