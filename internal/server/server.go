// Package server provides a factory for creating the MCP server.
package server

import (
	"fmt"

	"github.com/txn2/mcp-postgres/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

// New creates a platform from cfg. The server reports Version unless the
// config names its own.
func New(cfg *platform.Config, opts ...platform.Option) (*platform.Platform, error) {
	if cfg.Server.Version == "" || cfg.Server.Version == "dev" {
		cfg.Server.Version = Version
	}

	p, err := platform.New(append([]platform.Option{platform.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating platform: %w", err)
	}
	return p, nil
}

// NewWithConfig loads the config file at path and creates a platform.
func NewWithConfig(path string, opts ...platform.Option) (*platform.Platform, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return New(cfg, opts...)
}

// NewWithDefaults creates a platform with the default configuration.
func NewWithDefaults(opts ...platform.Option) (*platform.Platform, error) {
	return New(platform.DefaultConfig(), opts...)
}
