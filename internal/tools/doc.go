// Package tools provides the MCP tool packs served by sf-mcp.
//
// # Overview
//
// Tools execute in-process against the Starfish API client. The registry
// dispatches calls by name and rejects duplicate registrations; the query
// executor handles the full starfish_query pipeline: filter compilation,
// rate limiting, sync or async execution, and result normalization.
//
// # Tool Packs
//
// Starfish Pack (starfish):
//
//   - starfish_query: File and directory search with all available filters
//   - starfish_list_volumes: List volumes with capacity details
//   - starfish_get_volume: Single volume by ID
//   - starfish_list_zones: List zones with managers and tagsets
//   - starfish_get_zone: Single zone by ID
//   - starfish_get_tagset: Tagset details (use ':' for the default tagset)
//   - starfish_list_tagsets: All tagsets
//   - starfish_list_collections: Collection names derived from tags
//
// Rate Limit Pack (ratelimit):
//
//   - starfish_rate_limit_status: Window usage and time to reset
//   - starfish_rate_limit_reset: Clear the window
//
// # Execution Model
//
// starfish_query consults the rate governor before touching the backend;
// a rejected call returns an error naming the retry delay and is never
// recorded against the window. Async execution is used only when the
// caller asks for it and provides a volume scope.
package tools
