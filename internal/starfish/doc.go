// Package starfish is the HTTP client for the Starfish storage platform's
// query and metadata API.
//
// # Overview
//
// Starfish indexes very large filesystems and exposes the index over a REST
// API. This package covers the parts the MCP tools need:
//
//   - Synchronous queries (GET /query/) for small result sets
//   - Asynchronous queries (POST /async/query/ plus polling) for queries the
//     backend cannot answer inline
//   - Volume, zone, tagset, and collection metadata
//
// # Authentication
//
// All requests carry a bearer token obtained from POST /auth/ with the
// configured username and password. The TokenManager tracks expiry and
// refreshes five minutes early; callers never see token plumbing.
//
// # Errors
//
// Every failure is a *Error with a stable Code, the HTTP status when one
// was received, and a Transient flag assigned at this boundary. The async
// polling loop retries transient failures internally and surfaces
// everything else untouched.
//
// # Async protocol
//
// The async endpoint either answers inline with a JSON array or returns a
// query_id to poll. Polling sleeps a fixed interval before each status
// check, so a timeout of T with interval I allows floor(T/I) checks. When
// the status says done, the result is fetched from the advertised location,
// with /async/query_result/{id} as fallback; the backend occasionally
// reports done before the result is readable, which is handled by retrying
// on the next tick.
package starfish
