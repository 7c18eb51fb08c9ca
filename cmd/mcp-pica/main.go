// Package main provides the entry point for the mcp-pica server.
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

	mcpserver "github.com/txn2/mcp-pica/internal/server"
	"github.com/txn2/mcp-pica/pkg/health"
	httpauth "github.com/txn2/mcp-pica/pkg/http"
	"github.com/txn2/mcp-pica/pkg/platform"
)

// Environment variables read when no config file is given.
const (
	envSecret  = "PICA_SECRET"
	envBaseURL = "PICA_BASE_URL"
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
}

func parseFlags(args []string) (serverOptions, error) {
	opts := serverOptions{}
	fs := flag.NewFlagSet("mcp-pica", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.transport, "transport", "", "Transport type: stdio, http (overrides config)")
	fs.StringVar(&opts.address, "address", "", "Listen address for the http transport (overrides config)")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing flags: %w", err)
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Printf("mcp-pica version %s\n", mcpserver.Version)
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	setupLogger(os.Stderr, cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcpServer, p, err := mcpserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("error closing platform", "error", err)
		}
	}()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}

	return startServer(ctx, mcpServer, p, cfg)
}

// loadConfig reads the config file, or builds a single-secret config from
// the environment when no file is given. Flags override the file.
func loadConfig(opts serverOptions) (*platform.Config, error) {
	var cfg *platform.Config
	if opts.configPath != "" {
		loaded, err := platform.LoadConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = envConfig()
	}

	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.address != "" {
		cfg.Server.Address = opts.address
	}
	return cfg, nil
}

// envConfig builds a config with one Pica instance admitting every
// connection of the secret in PICA_SECRET.
func envConfig() *platform.Config {
	instance := map[string]any{
		"secret":     os.Getenv(envSecret),
		"connectors": []any{"*"},
	}
	if baseURL := os.Getenv(envBaseURL); baseURL != "" {
		instance["base_url"] = baseURL
	}
	return &platform.Config{
		Toolkits: map[string]any{
			"pica": map[string]any{
				"enabled":   true,
				"instances": map[string]any{"default": instance},
			},
		},
	}
}

// setupLogger installs the process logger on w. Stdout is reserved for the
// stdio transport.
func setupLogger(w io.Writer, cfg platform.LoggingConfig) {
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func startServer(ctx context.Context, mcpServer *mcp.Server, p *platform.Platform, cfg *platform.Config) error {
	switch cfg.Server.Transport {
	case platform.TransportStdio, "":
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	case platform.TransportHTTP:
		return serveHTTP(ctx, newHTTPHandler(mcpServer, p.Health(), cfg), cfg)
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Server.Transport)
	}
}

// newHTTPHandler mounts the health endpoints and the API-key gated
// streamable MCP handler.
func newHTTPHandler(mcpServer *mcp.Server, checker *health.Checker, cfg *platform.Config) http.Handler {
	mux := http.NewServeMux()
	checker.Register(mux)

	streamHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)
	mux.Handle("/", httpauth.APIKeyGate(cfg.APIKeys())(streamHandler))
	return mux
}

// serveHTTP serves until ctx is canceled, then shuts down gracefully.
func serveHTTP(ctx context.Context, handler http.Handler, cfg *platform.Config) error {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "address", cfg.Server.Address, "tls", cfg.Server.TLS.Enabled)
		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
