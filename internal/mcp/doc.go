// Package mcp implements the Model Context Protocol server for sf-mcp.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This package
// provides an MCP-compatible HTTP server that exposes the Starfish tool packs to
// external AI clients (like Claude Desktop, other LLMs, or custom applications).
//
// # Protocol
//
// The server implements the Streamable HTTP transport (spec 2025-11-25) using
// JSON-RPC 2.0 over a single endpoint:
//
//   - POST /mcp - JSON-RPC requests (initialize, tools/list, tools/call) and notifications
//   - DELETE /mcp - session termination
//
// Server-initiated SSE streams are not supported; GET returns 405.
//
// # Sessions
//
// initialize creates a session and returns its ID in the Mcp-Session-Id
// response header. Subsequent requests must echo the header; unknown sessions
// get 404 and the client re-initializes. Sessions are bound to the token that
// created them, so only the creator can DELETE one.
//
// # Authentication
//
// Tokens are static, configured in server.auth_tokens, and accepted three ways:
//
//   - URL path: /mcp/<token>
//   - Query parameter: /mcp?token=<token>
//   - Header: Authorization: Bearer <token>
//
// An empty token list leaves the endpoint open for local deployments.
//
// # Tool Execution
//
// tools/call dispatches into the in-process tool registry. Starfish API
// failures come back as tool results with isError set so the model can read
// them; infrastructure failures (unknown tool, timeout) become JSON-RPC
// errors.
//
// # Integration with Claude Desktop
//
// Add to Claude Desktop's MCP configuration:
//
//	{
//	  "mcpServers": {
//	    "starfish": {
//	      "url": "http://localhost:8080/mcp",
//	      "authorization": "Bearer <token>"
//	    }
//	  }
//	}
package mcp
