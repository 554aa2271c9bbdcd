// ABOUTME: Two-phase async query protocol: submit, then poll to completion.
// ABOUTME: Converts the backend's eventual consistency into one blocking call with a deadline.

package starfish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// AsyncQueryRequest describes one asynchronous query submission.
type AsyncQueryRequest struct {
	// VolumesAndPaths scopes the query to volume:path pairs.
	VolumesAndPaths []string

	// Queries holds compiled query strings; empty means every entry in scope.
	Queries []string

	FormatFields string
	Limit        int
	SortBy       string

	// AsyncAfterSec is how long the backend works inline before going
	// asynchronous; zero means the recommended 5 seconds.
	AsyncAfterSec float64

	// Timeout bounds the whole submit-and-poll operation; zero means
	// DefaultAsyncTimeout.
	Timeout time.Duration
}

// asyncSubmitBody is the POST /async/query/ wire format.
type asyncSubmitBody struct {
	VolumesAndPaths    []string `json:"volumes_and_paths"`
	Queries            []string `json:"queries"`
	Format             string   `json:"format"`
	AsyncAfterSec      float64  `json:"async_after_sec"`
	OutputFormat       string   `json:"output_format"`
	PrettyJSON         bool     `json:"pretty_json"`
	ForceTagInherit    bool     `json:"force_tag_inherit"`
	WithoutPrivateTags bool     `json:"without_private_tags"`
	SortBy             string   `json:"sort_by,omitempty"`
	Limit              int      `json:"limit,omitempty"`
}

// submitResult is the decoded submission response: either the backend
// finished inline and returned the entries, or it accepted the query and
// returned an ID to poll. Decoded once at the boundary; the state machine
// below branches on it and never re-inspects raw JSON.
type submitResult struct {
	entries []Entry // non-nil when the query completed immediately
	queryID string  // set when the backend went asynchronous
}

func decodeSubmitResponse(raw json.RawMessage) (submitResult, error) {
	if isJSONArray(raw) {
		entries, err := decodeEntries(raw, "/async/query/")
		if err != nil {
			return submitResult{}, err
		}
		if entries == nil {
			entries = []Entry{}
		}
		return submitResult{entries: entries}, nil
	}

	var accepted struct {
		QueryID string `json:"query_id"`
	}
	if err := json.Unmarshal(raw, &accepted); err != nil || accepted.QueryID == "" {
		return submitResult{}, &Error{
			Code:     CodeAsyncQueryFailed,
			Message:  "async query did not return query_id",
			Endpoint: "/async/query/",
			Body:     truncate(string(raw), 512),
		}
	}
	return submitResult{queryID: accepted.QueryID}, nil
}

// asyncStatus is the GET /async/query/{id} response.
type asyncStatus struct {
	IsDone   bool   `json:"is_done"`
	Location string `json:"location"`
}

// AsyncQuery submits a query to the async endpoint and blocks until the
// results are available, the request fails, or the timeout elapses. If the
// backend answers inline the entries are returned with no polling at all.
func (c *Client) AsyncQuery(ctx context.Context, req AsyncQueryRequest) ([]Entry, error) {
	format := req.FormatFields
	if format == "" {
		format = asyncFormatFields
	}
	asyncAfter := req.AsyncAfterSec
	if asyncAfter <= 0 {
		asyncAfter = 5.0
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}

	body := asyncSubmitBody{
		VolumesAndPaths:    req.VolumesAndPaths,
		Queries:            req.Queries,
		Format:             format,
		AsyncAfterSec:      asyncAfter,
		OutputFormat:       "json",
		PrettyJSON:         true,
		WithoutPrivateTags: true,
		SortBy:             req.SortBy,
		Limit:              req.Limit,
	}
	if body.VolumesAndPaths == nil {
		body.VolumesAndPaths = []string{}
	}
	if body.Queries == nil {
		body.Queries = []string{}
	}

	c.logger.Info("submitting async query",
		"scope", req.VolumesAndPaths,
		"queries", req.Queries,
		"timeout", timeout,
	)

	raw, err := c.do(ctx, "POST", "/async/query/", nil, body, 0)
	if err != nil {
		return nil, err
	}

	submitted, err := decodeSubmitResponse(raw)
	if err != nil {
		return nil, err
	}
	if submitted.entries != nil {
		c.logger.Info("async query completed immediately", "total_entries", len(submitted.entries))
		return submitted.entries, nil
	}

	return c.pollAsyncResult(ctx, submitted.queryID, timeout)
}

// pollAsyncResult drives the polling loop for a submitted query. Each tick
// sleeps first, then checks status; when the backend reports done, the
// result location is fetched, falling back to the canonical result endpoint
// and tolerating the done-but-not-readable race by retrying on the next
// tick. Transient poll errors (404 while the query registers, 400 while the
// result materializes) never fail the operation; anything else does.
func (c *Client) pollAsyncResult(ctx context.Context, queryID string, timeout time.Duration) ([]Entry, error) {
	interval := c.pollInterval
	maxAttempts := int(timeout / interval)
	statusPath := "/async/query/" + url.PathEscape(queryID)
	fallbackPath := "/async/query_result/" + url.PathEscape(queryID)

	c.logger.Info("async query submitted", "query_id", queryID, "max_attempts", maxAttempts)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		timer.Reset(interval)

		raw, err := c.do(ctx, "GET", statusPath, nil, nil, 0)
		if err != nil {
			if IsTransient(err) {
				c.logger.Debug("query still processing",
					"query_id", queryID,
					"attempt", attempt,
				)
				continue
			}
			return nil, err
		}

		var status asyncStatus
		if err := json.Unmarshal(raw, &status); err != nil {
			return nil, &Error{
				Code:     CodeAsyncQueryFailed,
				Message:  "decoding async status: " + err.Error(),
				Endpoint: statusPath,
				QueryID:  queryID,
				wrapped:  err,
			}
		}
		if !status.IsDone {
			c.logger.Debug("async status check",
				"query_id", queryID,
				"is_done", false,
				"attempt", attempt,
			)
			continue
		}

		location := status.Location
		if location == "" {
			location = fallbackPath
		}

		entries, retry, err := c.fetchAsyncResult(ctx, queryID, location, fallbackPath)
		if retry {
			// Done per the status endpoint, but the result is not readable
			// yet. Known backend race; the next tick resolves it.
			c.logger.Debug("results not ready despite is_done=true",
				"query_id", queryID,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info("async query completed",
			"query_id", queryID,
			"total_entries", len(entries),
			"attempts", attempt,
		)
		return entries, nil
	}

	return nil, &Error{
		Code:     CodeAsyncQueryTimeout,
		Message:  fmt.Sprintf("async query timed out after %s", timeout),
		Endpoint: statusPath,
		QueryID:  queryID,
		Attempts: maxAttempts,
	}
}

// fetchAsyncResult retrieves a finished query's entries. A transient
// failure on the primary location means "retry next tick"; any other
// failure gets one shot at the canonical result endpoint before giving up
// the tick or the operation.
func (c *Client) fetchAsyncResult(ctx context.Context, queryID, location, fallbackPath string) ([]Entry, bool, error) {
	raw, err := c.do(ctx, "GET", location, nil, nil, 0)
	if err != nil {
		if IsTransient(err) {
			return nil, true, nil
		}
		raw, err = c.do(ctx, "GET", fallbackPath, nil, nil, 0)
		if err != nil {
			if IsTransient(err) {
				return nil, true, nil
			}
			return nil, false, err
		}
	}

	entries, err := decodeEntries(raw, location)
	if err != nil {
		return nil, false, &Error{
			Code:     CodeAsyncQueryFailed,
			Message:  "query completed but result format unexpected",
			Endpoint: location,
			QueryID:  queryID,
			Body:     truncate(string(raw), 512),
		}
	}
	return entries, false, nil
}
