// ABOUTME: Synchronous query and metadata operations: volumes, zones, tagsets, collections.
// ABOUTME: Thin wrappers over the request path with response-shape validation.

package starfish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// QueryOptions narrow a synchronous query.
type QueryOptions struct {
	FormatFields    string
	Limit           int
	SortBy          string
	VolumesAndPaths string // single volume:path scope
	Timeout         int    // seconds for the single HTTP call; 0 = default
}

// Query runs a compiled query string against GET /query/ and returns the
// matching entries. The backend answers synchronously or not at all.
func (c *Client) Query(ctx context.Context, query string, opts QueryOptions) ([]Entry, error) {
	params := url.Values{}
	params.Set("query", query)

	if opts.FormatFields != "" {
		params.Set("format", opts.FormatFields)
	} else {
		params.Set("format", DefaultFormatFields)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.SortBy != "" {
		params.Set("sort_by", opts.SortBy)
	}
	if opts.VolumesAndPaths != "" {
		params.Set("volumes_and_paths", opts.VolumesAndPaths)
	}

	c.logger.Info("executing query",
		"query", query,
		"limit", opts.Limit,
		"scope", opts.VolumesAndPaths,
	)

	timeout := DefaultQueryTimeout
	if opts.Timeout > 0 {
		timeout = secondsToDuration(opts.Timeout)
	}

	raw, err := c.do(ctx, "GET", "/query/", params, nil, timeout)
	if err != nil {
		return nil, err
	}

	entries, err := decodeEntries(raw, "/query/")
	if err != nil {
		return nil, err
	}

	c.logger.Info("query completed", "total_entries", len(entries))
	return entries, nil
}

// ListVolumes returns all volumes visible to the authenticated user.
func (c *Client) ListVolumes(ctx context.Context) ([]Volume, error) {
	raw, err := c.do(ctx, "GET", "/volume/", nil, nil, 0)
	if err != nil {
		return nil, err
	}

	if !isJSONArray(raw) {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "expected array of volumes from /volume/",
			Endpoint: "/volume/",
		}
	}
	var volumes []Volume
	if err := json.Unmarshal(raw, &volumes); err != nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "decoding volumes: " + err.Error(),
			Endpoint: "/volume/",
			wrapped:  err,
		}
	}
	return volumes, nil
}

// GetVolume returns one volume by numeric ID.
func (c *Client) GetVolume(ctx context.Context, id int64) (*Volume, error) {
	path := fmt.Sprintf("/volume/%d/", id)
	raw, err := c.do(ctx, "GET", path, nil, nil, 0)
	if err != nil {
		return nil, err
	}

	var volume Volume
	if err := json.Unmarshal(raw, &volume); err != nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "decoding volume: " + err.Error(),
			Endpoint: path,
			wrapped:  err,
		}
	}
	return &volume, nil
}

// ListZones returns all zones with their full detail records.
func (c *Client) ListZones(ctx context.Context) ([]ZoneDetails, error) {
	raw, err := c.do(ctx, "GET", "/zone/", nil, nil, 0)
	if err != nil {
		return nil, err
	}

	if !isJSONArray(raw) {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "expected array of zones from /zone/",
			Endpoint: "/zone/",
		}
	}
	var zones []ZoneDetails
	if err := json.Unmarshal(raw, &zones); err != nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "decoding zones: " + err.Error(),
			Endpoint: "/zone/",
			wrapped:  err,
		}
	}
	return zones, nil
}

// GetZone returns one zone by ID.
func (c *Client) GetZone(ctx context.Context, id int64) (*ZoneDetails, error) {
	path := fmt.Sprintf("/zone/%d/", id)
	raw, err := c.do(ctx, "GET", path, nil, nil, 0)
	if err != nil {
		return nil, err
	}

	var zone ZoneDetails
	if err := json.Unmarshal(raw, &zone); err != nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "decoding zone: " + err.Error(),
			Endpoint: path,
			wrapped:  err,
		}
	}
	return &zone, nil
}

// ListTagsets returns all tagset records.
func (c *Client) ListTagsets(ctx context.Context) ([]Tagset, error) {
	raw, err := c.do(ctx, "GET", "/tagset/", nil, nil, 0)
	if err != nil {
		return nil, err
	}

	if !isJSONArray(raw) {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "expected array of tagsets from /tagset/",
			Endpoint: "/tagset/",
		}
	}
	var tagsets []Tagset
	if err := json.Unmarshal(raw, &tagsets); err != nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "decoding tagsets: " + err.Error(),
			Endpoint: "/tagset/",
			wrapped:  err,
		}
	}
	return tagsets, nil
}

// GetTagset returns one tagset by name. The default tagset is addressed as
// ":" on the wire; callers may pass "" or "default" for it.
func (c *Client) GetTagset(ctx context.Context, name string) (*Tagset, error) {
	path := "/tagset/" + url.PathEscape(name) + "/"
	if name == "" || name == "default" {
		path = "/tagset/:/"
	}

	params := url.Values{}
	params.Set("limit", "1000")
	params.Set("with_private", "true")

	raw, err := c.do(ctx, "GET", path, params, nil, 0)
	if err != nil {
		return nil, err
	}

	var tagset Tagset
	if err := json.Unmarshal(raw, &tagset); err != nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "decoding tagset: " + err.Error(),
			Endpoint: path,
			wrapped:  err,
		}
	}
	return &tagset, nil
}

// ListCollections returns the distinct collection names derived from
// tags of the form "collection:tag" on GET /tag/.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	raw, err := c.do(ctx, "GET", "/tag/", nil, nil, 0)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Tags == nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "expected tags object from /tag/",
			Endpoint: "/tag/",
		}
	}

	seen := make(map[string]struct{})
	for _, tag := range resp.Tags {
		if i := strings.Index(tag, ":"); i > 0 {
			seen[tag[:i]] = struct{}{}
		}
	}

	collections := make([]string, 0, len(seen))
	for name := range seen {
		collections = append(collections, name)
	}
	sort.Strings(collections)
	return collections, nil
}

func secondsToDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}
