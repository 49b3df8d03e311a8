package platform

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cfgTestFilePerms    = 0o600
	cfgTestServerName   = "warehouse-mcp"
	cfgTestAddress      = ":9090"
	cfgTestMaxRows      = 250
	cfgTestQueryTimeout = 45 * time.Second
)

// writeTestConfig writes a YAML config to a temp dir and returns the path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), cfgTestFilePerms))
	return configPath
}

func TestLoadConfig(t *testing.T) {
	path := writeTestConfig(t, `
server:
  name: warehouse-mcp
  transport: http
  address: ":9090"
  log_level: debug
  shutdown_timeout: 5s
  cors_origins:
    - https://app.example
database:
  driver: pgx
  probe_timeout: 3s
  query_timeout: 45s
  max_rows: 250
  read_only: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, cfgTestServerName, cfg.Server.Name)
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, cfgTestAddress, cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Database.ProbeTimeout)
	assert.Equal(t, cfgTestQueryTimeout, cfg.Database.QueryTimeout)
	assert.Equal(t, cfgTestMaxRows, cfg.Database.MaxRows)
	assert.False(t, cfg.Database.IsReadOnly())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, "server: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, DefaultServerName, cfg.Server.Name)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, DefaultProbeTimeout, cfg.Database.ProbeTimeout)
	assert.True(t, cfg.Database.IsReadOnly())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("MCP_PG_TEST_NAME", cfgTestServerName)

	cfg, err := LoadConfig(writeTestConfig(t, "server:\n  name: ${MCP_PG_TEST_NAME}\n"))
	require.NoError(t, err)
	assert.Equal(t, cfgTestServerName, cfg.Server.Name)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")

	_, err = LoadConfig(writeTestConfig(t, "server: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown transport", mutate: func(c *Config) { c.Server.Transport = "sse" }, wantErr: "server.transport"},
		{name: "bad log level", mutate: func(c *Config) { c.Server.LogLevel = "loud" }, wantErr: "server.log_level"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver"},
		{name: "negative max rows", mutate: func(c *Config) { c.Database.MaxRows = -1 }, wantErr: "database.max_rows"},
		{name: "negative probe timeout", mutate: func(c *Config) { c.Database.ProbeTimeout = -time.Second }, wantErr: "database.probe_timeout"},
		{name: "negative query timeout", mutate: func(c *Config) { c.Database.QueryTimeout = -time.Second }, wantErr: "database.query_timeout"},
		{name: "negative shutdown timeout", mutate: func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, wantErr: "server.shutdown_timeout"},
		{name: "blank cors origin", mutate: func(c *Config) { c.Server.CORSOrigins = []string{"https://a.example", " "} }, wantErr: "server.cors_origins[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerConfig_AllowsOrigin(t *testing.T) {
	assert.False(t, DefaultConfig().Server.AllowsOrigin("https://app.example"), "no origins by default")

	s := ServerConfig{CORSOrigins: []string{"https://app.example"}}
	assert.True(t, s.AllowsOrigin("https://app.example"))
	assert.True(t, s.AllowsOrigin("HTTPS://APP.EXAMPLE"))
	assert.False(t, s.AllowsOrigin("https://other.example"))
	assert.False(t, s.AllowsOrigin(""))

	s.CORSOrigins = []string{"*"}
	assert.True(t, s.AllowsOrigin("https://other.example"))
	assert.False(t, s.AllowsOrigin(""))
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}
