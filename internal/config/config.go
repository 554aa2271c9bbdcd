// ABOUTME: Configuration loading and parsing for sf-mcp
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete sf-mcp configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Starfish  StarfishConfig  `yaml:"starfish"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Query     QueryConfig     `yaml:"query"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the MCP HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// AuthTokens are bearer tokens accepted on the MCP endpoint.
	// Empty means the endpoint is open (local deployments).
	AuthTokens []string `yaml:"auth_tokens"`
}

// StarfishConfig holds the Starfish API connection configuration
type StarfishConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	TLSInsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify"`
	TLSMinVersion         string `yaml:"tls_min_version"`

	TokenTimeout time.Duration `yaml:"-"`
	HTTPTimeout  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TokenTimeoutRaw string `yaml:"token_timeout"`
	HTTPTimeoutRaw  string `yaml:"http_timeout"`
}

// RateLimitConfig holds the query rate governor configuration
type RateLimitConfig struct {
	Enabled    *bool `yaml:"enabled"`
	MaxQueries int   `yaml:"max_queries"`

	Window time.Duration `yaml:"-"`

	WindowRaw string `yaml:"window"`
}

// QueryConfig holds query execution defaults
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`

	PollInterval time.Duration `yaml:"-"`
	AsyncTimeout time.Duration `yaml:"-"`

	PollIntervalRaw string `yaml:"poll_interval"`
	AsyncTimeoutRaw string `yaml:"async_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RateLimitEnabled reports whether the governor is on; it defaults to true
// when the config file does not say otherwise.
func (c *Config) RateLimitEnabled() bool {
	if c.RateLimit.Enabled == nil {
		return true
	}
	return *c.RateLimit.Enabled
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in the values a minimal config file leaves out.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:8080"
	}
	if c.RateLimit.MaxQueries == 0 {
		c.RateLimit.MaxQueries = 10
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 60 * time.Second
	}
	if c.Query.DefaultLimit == 0 {
		c.Query.DefaultLimit = 100
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Starfish.Endpoint == "" {
		return fmt.Errorf("starfish.endpoint is required")
	}
	if c.Starfish.Username == "" {
		return fmt.Errorf("starfish.username is required")
	}
	if c.Starfish.Password == "" {
		return fmt.Errorf("starfish.password is required")
	}

	if c.RateLimit.MaxQueries < 0 {
		return fmt.Errorf("ratelimit.max_queries must not be negative")
	}
	if c.RateLimit.Window < 0 {
		return fmt.Errorf("ratelimit.window must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	switch c.Starfish.TLSMinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("starfish.tls_min_version must be \"1.2\" or \"1.3\", got %q", c.Starfish.TLSMinVersion)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Starfish.TokenTimeoutRaw, &cfg.Starfish.TokenTimeout, "starfish.token_timeout"},
		{cfg.Starfish.HTTPTimeoutRaw, &cfg.Starfish.HTTPTimeout, "starfish.http_timeout"},
		{cfg.RateLimit.WindowRaw, &cfg.RateLimit.Window, "ratelimit.window"},
		{cfg.Query.PollIntervalRaw, &cfg.Query.PollInterval, "query.poll_interval"},
		{cfg.Query.AsyncTimeoutRaw, &cfg.Query.AsyncTimeout, "query.async_timeout"},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
