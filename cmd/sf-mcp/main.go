// ABOUTME: Entry point for the sf-mcp server exposing Starfish over MCP
// ABOUTME: Wires config, Starfish client, rate governor, tool packs, HTTP server

package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dpreuss/sf-mcp/internal/config"
	"github.com/dpreuss/sf-mcp/internal/mcp"
	"github.com/dpreuss/sf-mcp/internal/ratelimit"
	"github.com/dpreuss/sf-mcp/internal/starfish"
	"github.com/dpreuss/sf-mcp/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
      __
  ___/ _|      _ __ ___   ___ _ __
 / __| |_ ____| '_ ' _ \ / __| '_ \
 \__ \  _|____| | | | | | (__| |_) |
 |___/_|      |_| |_| |_|\___| .__/
                             |_|
`

// getConfigPath returns the path to the server config file.
// Priority: SF_MCP_CONFIG env var > XDG_CONFIG_HOME/sf-mcp/config.yaml > ~/.config/sf-mcp/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SF_MCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sf-mcp", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sf-mcp <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the MCP server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Starfish:  %s\n", cfg.Starfish.Endpoint)

	if cfg.RateLimitEnabled() {
		green.Print("    ▶ ")
		fmt.Printf("Limiter:   %d queries / %s\n", cfg.RateLimit.MaxQueries, cfg.RateLimit.Window)
	} else {
		yellow.Print("    ▶ ")
		fmt.Println("Limiter:   disabled")
	}

	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}

	fmt.Println()

	logger.Info("starting sf-mcp",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"starfish_endpoint", cfg.Starfish.Endpoint,
	)

	client, err := starfish.New(starfish.Config{
		Endpoint:              cfg.Starfish.Endpoint,
		Username:              cfg.Starfish.Username,
		Password:              cfg.Starfish.Password,
		TokenTimeout:          cfg.Starfish.TokenTimeout,
		HTTPTimeout:           cfg.Starfish.HTTPTimeout,
		PollInterval:          cfg.Query.PollInterval,
		TLSInsecureSkipVerify: cfg.Starfish.TLSInsecureSkipVerify,
		TLSMinVersion:         tlsMinVersion(cfg.Starfish.TLSMinVersion),
		Logger:                logger,
	})
	if err != nil {
		return fmt.Errorf("creating starfish client: %w", err)
	}

	governor := ratelimit.New(
		cfg.RateLimit.MaxQueries,
		cfg.RateLimit.Window,
		cfg.RateLimitEnabled(),
		logger,
	)

	executor := tools.NewQueryExecutor(client, governor, cfg.Query.DefaultLimit, cfg.Query.AsyncTimeout, logger)

	registry := tools.NewRegistry(logger)
	if err := registry.RegisterPack(tools.StarfishPack(client, executor)); err != nil {
		return fmt.Errorf("registering starfish pack: %w", err)
	}
	if err := registry.RegisterPack(tools.RateLimitPack(governor)); err != nil {
		return fmt.Errorf("registering ratelimit pack: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Registry:   registry,
		Logger:     logger,
		TokenStore: mcp.NewTokenStore(cfg.Server.AuthTokens),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// tlsMinVersion maps the config string onto the crypto/tls constant.
// Validation already rejected anything but "", "1.2", "1.3".
func tlsMinVersion(s string) uint16 {
	if s == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("sf-mcp configuration setup")
	fmt.Println("==========================")
	fmt.Println()

	defaultConfigPath := getConfigPath()

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "0.0.0.0:8080")

	// Starfish connection
	fmt.Println("\n--- Starfish Configuration ---")
	sfEndpoint := prompt(reader, "Starfish API endpoint", "https://starfish.example.com/api")
	sfUsername := prompt(reader, "Starfish username", "")
	skipVerifyStr := prompt(reader, "Skip TLS certificate verification?", "no")
	skipVerify := strings.ToLower(skipVerifyStr) == "yes" || strings.ToLower(skipVerifyStr) == "y"

	// Rate limiting
	fmt.Println("\n--- Rate Limit Configuration ---")
	maxQueries := prompt(reader, "Max queries per window", "10")
	window := prompt(reader, "Window duration", "60s")

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config. The password comes from the environment so the
	// file stays safe to commit.
	var cfg strings.Builder
	cfg.WriteString("# sf-mcp configuration\n")
	cfg.WriteString("# Generated by sf-mcp init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("starfish:\n")
	cfg.WriteString(fmt.Sprintf("  endpoint: \"%s\"\n", sfEndpoint))
	cfg.WriteString(fmt.Sprintf("  username: \"%s\"\n", sfUsername))
	cfg.WriteString("  password: \"${SF_PASSWORD}\"\n")
	if skipVerify {
		cfg.WriteString("  tls_insecure_skip_verify: true\n")
	}
	cfg.WriteString("\n")

	cfg.WriteString("ratelimit:\n")
	cfg.WriteString("  enabled: true\n")
	cfg.WriteString(fmt.Sprintf("  max_queries: %s\n", maxQueries))
	cfg.WriteString(fmt.Sprintf("  window: \"%s\"\n", window))
	cfg.WriteString("\n")

	cfg.WriteString("query:\n")
	cfg.WriteString("  default_limit: 100\n")
	cfg.WriteString("  poll_interval: \"2s\"\n")
	cfg.WriteString("  async_timeout: \"5m\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString("  path: \"/metrics\"\n")

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nSet the Starfish password in your environment:")
	fmt.Println("  export SF_PASSWORD=...")
	fmt.Println("\nTo start the server:")
	fmt.Println("  sf-mcp serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
