package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgres/pkg/connections"
	"github.com/txn2/mcp-postgres/pkg/database"
	"github.com/txn2/mcp-postgres/pkg/health"
	"github.com/txn2/mcp-postgres/pkg/middleware"
	"github.com/txn2/mcp-postgres/pkg/query"
	"github.com/txn2/mcp-postgres/pkg/tools"
)

// ErrConfigRequired is returned by New without WithConfig.
var ErrConfigRequired = errors.New("config is required")

// Platform is the main server facade.
type Platform struct {
	config *Config

	// Core components
	mcpServer *mcp.Server
	lifecycle *Lifecycle
	health    *health.Checker

	// Database
	driver   *database.Driver
	registry *connections.Registry
	executor *query.Executor
	toolkit  *tools.Toolkit
}

// New creates a new platform instance. Connections are not discovered
// until Start.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, ErrConfigRequired
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{
		config:    options.Config,
		lifecycle: NewLifecycle(),
		health:    health.NewChecker(),
	}

	if err := p.initDatabase(options); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	p.initServer()
	p.initLifecycle()

	return p, nil
}

// initDatabase sets up the driver, registry and executor.
func (p *Platform) initDatabase(opts *Options) error {
	cfg := p.config.Database

	if opts.Driver != nil {
		p.driver = opts.Driver
	} else {
		driver, err := database.NewDriver(cfg.Driver)
		if err != nil {
			return fmt.Errorf("creating driver: %w", err)
		}
		p.driver = driver
	}

	if opts.Registry != nil {
		p.registry = opts.Registry
	} else {
		regOpts := []connections.Option{connections.WithProbeTimeout(cfg.ProbeTimeout)}
		if opts.Environ != nil {
			regOpts = append(regOpts, connections.WithEnvironment(opts.Environ))
		}
		p.registry = connections.NewRegistry(p.driver, regOpts...)
	}

	p.executor = query.NewExecutor(p.driver, query.Config{
		Timeout:  cfg.QueryTimeout,
		MaxRows:  cfg.MaxRows,
		ReadOnly: cfg.IsReadOnly(),
	})
	return nil
}

// initServer creates the MCP server and registers tools and resources.
func (p *Platform) initServer() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, &mcp.ServerOptions{
		Instructions: p.config.Server.Instructions,
	})

	p.toolkit = tools.NewToolkit(p.registry, p.executor)
	p.toolkit.RegisterTools(p.mcpServer)
	slog.Debug("tools registered", "tools", p.toolkit.Tools(), "read_only", p.executor.ReadOnly())
	p.registerResourceTemplates()
	p.mcpServer.AddReceivingMiddleware(middleware.MCPToolLoggingMiddleware())
}

// initLifecycle orders startup: validate connections, then report ready.
func (p *Platform) initLifecycle() {
	p.lifecycle.Append("connections",
		func(ctx context.Context) error {
			if err := p.registry.DiscoverAndConnect(ctx); err != nil {
				return fmt.Errorf("validating connections: %w", err)
			}
			valid := 0
			names := p.registry.GetConnectionNames()
			for _, name := range names {
				if _, err := p.registry.GetConnection(name); err == nil {
					valid++
				}
			}
			slog.Info("connections discovered", "total", len(names), "available", valid)
			return nil
		},
		func(context.Context) error {
			p.registry.CloseAll()
			return nil
		},
	)
	p.lifecycle.Append("health",
		func(context.Context) error {
			p.health.SetReady()
			return nil
		},
		func(context.Context) error {
			p.health.SetDraining()
			return nil
		},
	)
}

// Start discovers and validates connections and marks the server ready.
// It fails when no DATABASE_URI variables are set.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop marks the server draining and clears the registry.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Registry returns the connection registry.
func (p *Platform) Registry() *connections.Registry {
	return p.registry
}

// Executor returns the query executor.
func (p *Platform) Executor() *query.Executor {
	return p.executor
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// Toolkit returns the MCP toolkit.
func (p *Platform) Toolkit() *tools.Toolkit {
	return p.toolkit
}

// Close releases platform resources.
func (p *Platform) Close() error {
	if err := p.toolkit.Close(); err != nil {
		return fmt.Errorf("closing toolkit: %w", err)
	}
	return nil
}
