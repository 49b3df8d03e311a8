// Package main provides the entry point for the mcp-postgres server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/txn2/mcp-postgres/internal/server"
	"github.com/txn2/mcp-postgres/pkg/health"
	"github.com/txn2/mcp-postgres/pkg/platform"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func parseFlags(args []string) (serverOptions, error) {
	opts := serverOptions{set: make(map[string]bool)}
	fs := flag.NewFlagSet("mcp-postgres", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.transport, "transport", platform.TransportStdio, "Transport type: stdio, http")
	fs.StringVar(&opts.address, "address", platform.DefaultAddress, "Listen address for the http transport")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing flags: %w", err)
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Printf("mcp-postgres version %s\n", mcpserver.Version)
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := setupLogger(os.Stderr, cfg.Server.LogLevel); err != nil {
		return err
	}

	p, err := mcpserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() { _ = p.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	defer shutdownPlatform(p)

	return startServer(ctx, p)
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(opts serverOptions) (*platform.Config, error) {
	cfg := platform.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = platform.LoadConfig(opts.configPath); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	applyFlagOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyFlagOverrides lets explicitly set flags win over the config file.
func applyFlagOverrides(cfg *platform.Config, opts serverOptions) {
	if opts.set["transport"] {
		cfg.Server.Transport = opts.transport
	}
	if opts.set["address"] {
		cfg.Server.Address = opts.address
	}
}

func setupLogger(w io.Writer, level string) error {
	lvl, err := platform.ParseLogLevel(level)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func shutdownPlatform(p *platform.Platform) {
	ctx, cancel := context.WithTimeout(context.Background(), p.Config().Server.ShutdownTimeout)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		slog.Warn("platform shutdown failed", "error", err)
	}
}

func startServer(ctx context.Context, p *platform.Platform) error {
	switch p.Config().Server.Transport {
	case platform.TransportStdio:
		slog.Info("serving MCP over stdio")
		if err := p.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	case platform.TransportHTTP:
		return serveHTTP(ctx, p)
	default:
		return fmt.Errorf("unknown transport: %s", p.Config().Server.Transport)
	}
}

// newHTTPHandler routes the streamable MCP endpoint and health checks.
func newHTTPHandler(p *platform.Platform) http.Handler {
	mux := http.NewServeMux()
	server := p.MCPServer()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil))
	mux.Handle("/healthz", p.Health().LivenessHandler())
	mux.Handle("/readyz", p.Health().ReadinessHandler())
	mux.Handle("/connectionz", health.ConnectionsHandler(p.Registry()))
	return corsMiddleware(p.Config().Server, mux)
}

func serveHTTP(ctx context.Context, p *platform.Platform) error {
	srv := &http.Server{
		Addr:              p.Config().Server.Address,
		Handler:           newHTTPHandler(p),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving MCP over http", "address", srv.Addr, "endpoint", "/mcp")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	p.Health().SetDraining()
	slog.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), p.Config().Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// corsMiddleware lets browser-based MCP clients from server.cors_origins
// reach /mcp. Other origins get no CORS headers, so browsers block them.
func corsMiddleware(cfg platform.ServerConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); cfg.AllowsOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
			w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
