// Package platform wires the connection registry, query executor, MCP tools
// and health checks into one server.
package platform

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/mcp-postgres/pkg/database"
	"github.com/txn2/mcp-postgres/pkg/query"
)

// Transport names.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Defaults applied to zero-valued config fields.
const (
	DefaultServerName      = "mcp-postgres"
	DefaultAddress         = ":8080"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultProbeTimeout    = 10 * time.Second
)

// Config holds the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Instructions    string        `yaml:"instructions"`
	Transport       string        `yaml:"transport"` // "stdio", "http"
	Address         string        `yaml:"address"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORSOrigins lists browser origins allowed to call the http
	// transport. "*" allows any origin. Empty allows none.
	CORSOrigins []string `yaml:"cors_origins"`
}

// AllowsOrigin reports whether origin is listed in CORSOrigins.
func (s ServerConfig) AllowsOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// DatabaseConfig configures how connections are validated and queried.
// Connection URLs are not part of the file; they come from DATABASE_URI*.
type DatabaseConfig struct {
	Driver       string        `yaml:"driver"` // "postgres", "pgx"
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxRows      int           `yaml:"max_rows"`
	ReadOnly     *bool         `yaml:"read_only"` // default: true
}

// IsReadOnly reports whether statements run in read-only transactions.
func (d DatabaseConfig) IsReadOnly() bool {
	return d.ReadOnly == nil || *d.ReadOnly
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = DefaultServerName
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "dev"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultAddress
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = database.DriverPostgres
	}
	if cfg.Database.ProbeTimeout == 0 {
		cfg.Database.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = query.DefaultTimeout
	}
	if cfg.Database.MaxRows == 0 {
		cfg.Database.MaxRows = query.DefaultMaxRows
	}
	if cfg.Database.ReadOnly == nil {
		readOnly := true
		cfg.Database.ReadOnly = &readOnly
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport))
	}

	if _, err := ParseLogLevel(c.Server.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	for i, origin := range c.Server.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = append(errs, fmt.Sprintf("server.cors_origins[%d] must not be empty", i))
		}
	}

	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverPGX:
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be %q or %q, got %q", database.DriverPostgres, database.DriverPGX, c.Database.Driver))
	}

	if c.Database.ProbeTimeout < 0 {
		errs = append(errs, "database.probe_timeout must not be negative")
	}
	if c.Database.QueryTimeout < 0 {
		errs = append(errs, "database.query_timeout must not be negative")
	}
	if c.Database.MaxRows < 0 {
		errs = append(errs, "database.max_rows must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ParseLogLevel maps server.log_level to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("server.log_level: %w", err)
	}
	return l, nil
}
