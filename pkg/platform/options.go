package platform

import (
	"github.com/txn2/mcp-postgres/pkg/connections"
	"github.com/txn2/mcp-postgres/pkg/database"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// Driver opens connections for validation and queries
	// (optional, created from database.driver if not provided).
	Driver *database.Driver

	// Registry (optional, created over Driver if not provided).
	Registry *connections.Registry

	// Environ supplies the environment scanned for DATABASE_URI*
	// (optional, defaults to os.Environ). Ignored when Registry is set.
	Environ func() []string
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDriver sets the SQL driver.
func WithDriver(driver *database.Driver) Option {
	return func(o *Options) {
		o.Driver = driver
	}
}

// WithRegistry sets the connection registry.
func WithRegistry(reg *connections.Registry) Option {
	return func(o *Options) {
		o.Registry = reg
	}
}

// WithEnvironment sets the environment provider for connection discovery.
func WithEnvironment(environ func() []string) Option {
	return func(o *Options) {
		o.Environ = environ
	}
}
