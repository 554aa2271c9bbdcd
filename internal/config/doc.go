// Package config handles configuration loading for sf-mcp.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	starfish:
//	  password: "${SF_PASSWORD}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	ratelimit:
//	  window: "60s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Starfish API connection:
//
//	starfish:
//	  endpoint: "https://starfish.example.com/api"
//	  username: "${SF_USERNAME}"
//	  password: "${SF_PASSWORD}"
//	  token_timeout: "16h"
//	  http_timeout: "30s"
//
// MCP server:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  auth_tokens:          # optional; empty means no auth
//	    - "${SF_MCP_TOKEN}"
//
// Rate limiting:
//
//	ratelimit:
//	  enabled: true
//	  max_queries: 10
//	  window: "60s"
//
// Query defaults:
//
//	query:
//	  default_limit: 100
//	  poll_interval: "2s"
//	  async_timeout: "5m"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Metrics:
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/sf-mcp/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
