// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and defaults

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:9090"
  auth_tokens:
    - "secret-token-1"
    - "secret-token-2"

starfish:
  endpoint: "https://sf.example.com/api"
  username: "admin"
  password: "hunter2"
  token_timeout: "8h"
  http_timeout: "45s"

ratelimit:
  enabled: true
  max_queries: 20
  window: "30s"

query:
  default_limit: 250
  poll_interval: "1s"
  async_timeout: "10m"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:9090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:9090")
	}
	if len(cfg.Server.AuthTokens) != 2 {
		t.Errorf("Server.AuthTokens len = %d, want 2", len(cfg.Server.AuthTokens))
	}

	if cfg.Starfish.Endpoint != "https://sf.example.com/api" {
		t.Errorf("Starfish.Endpoint = %q", cfg.Starfish.Endpoint)
	}
	if cfg.Starfish.TokenTimeout != 8*time.Hour {
		t.Errorf("Starfish.TokenTimeout = %v, want 8h", cfg.Starfish.TokenTimeout)
	}
	if cfg.Starfish.HTTPTimeout != 45*time.Second {
		t.Errorf("Starfish.HTTPTimeout = %v, want 45s", cfg.Starfish.HTTPTimeout)
	}

	if !cfg.RateLimitEnabled() {
		t.Error("RateLimitEnabled() = false, want true")
	}
	if cfg.RateLimit.MaxQueries != 20 {
		t.Errorf("RateLimit.MaxQueries = %d, want 20", cfg.RateLimit.MaxQueries)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("RateLimit.Window = %v, want 30s", cfg.RateLimit.Window)
	}

	if cfg.Query.DefaultLimit != 250 {
		t.Errorf("Query.DefaultLimit = %d, want 250", cfg.Query.DefaultLimit)
	}
	if cfg.Query.AsyncTimeout != 10*time.Minute {
		t.Errorf("Query.AsyncTimeout = %v, want 10m", cfg.Query.AsyncTimeout)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
starfish:
  endpoint: "https://sf.example.com/api"
  username: "admin"
  password: "hunter2"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("default HTTPAddr = %q, want 0.0.0.0:8080", cfg.Server.HTTPAddr)
	}
	if cfg.RateLimit.MaxQueries != 10 {
		t.Errorf("default MaxQueries = %d, want 10", cfg.RateLimit.MaxQueries)
	}
	if cfg.RateLimit.Window != 60*time.Second {
		t.Errorf("default Window = %v, want 60s", cfg.RateLimit.Window)
	}
	if !cfg.RateLimitEnabled() {
		t.Error("rate limiting should default to enabled")
	}
	if cfg.Query.DefaultLimit != 100 {
		t.Errorf("default Query.DefaultLimit = %d, want 100", cfg.Query.DefaultLimit)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("default Logging = %+v, want info/text", cfg.Logging)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
}

func TestLoad_RateLimitDisabled(t *testing.T) {
	path := writeConfig(t, `
starfish:
  endpoint: "https://sf.example.com/api"
  username: "admin"
  password: "hunter2"

ratelimit:
  enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RateLimitEnabled() {
		t.Error("RateLimitEnabled() = true, want false")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("SF_TEST_PASSWORD", "expanded-secret")

	path := writeConfig(t, `
starfish:
  endpoint: "https://sf.example.com/api"
  username: "admin"
  password: "${SF_TEST_PASSWORD}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Starfish.Password != "expanded-secret" {
		t.Errorf("Starfish.Password = %q, want expanded-secret", cfg.Starfish.Password)
	}
}

func TestLoad_MissingEnvVarExpandsEmpty(t *testing.T) {
	path := writeConfig(t, `
starfish:
  endpoint: "https://sf.example.com/api"
  username: "admin"
  password: "${SF_DEFINITELY_NOT_SET_VAR}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail validation when password expands to empty")
	}
	if !strings.Contains(err.Error(), "starfish.password") {
		t.Errorf("error = %v, want mention of starfish.password", err)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing endpoint",
			content: "starfish:\n  username: a\n  password: b\n",
			wantErr: "starfish.endpoint",
		},
		{
			name:    "missing username",
			content: "starfish:\n  endpoint: https://x/api\n  password: b\n",
			wantErr: "starfish.username",
		},
		{
			name:    "missing password",
			content: "starfish:\n  endpoint: https://x/api\n  username: a\n",
			wantErr: "starfish.password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() should have failed")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
starfish:
  endpoint: "https://sf.example.com/api"
  username: "admin"
  password: "hunter2"

ratelimit:
  window: "sixty seconds"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail on an unparseable duration")
	}
	if !strings.Contains(err.Error(), "ratelimit.window") {
		t.Errorf("error = %v, want mention of ratelimit.window", err)
	}
}

func TestLoad_InvalidLoggingFormat(t *testing.T) {
	path := writeConfig(t, `
starfish:
  endpoint: "https://sf.example.com/api"
  username: "admin"
  password: "hunter2"

logging:
  format: "xml"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should reject an unknown logging format")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}
