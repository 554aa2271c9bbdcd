// ABOUTME: Query executor: compiles filter params, consults the rate governor,
// ABOUTME: picks sync or async execution, and normalizes entries for tool output.

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dpreuss/sf-mcp/internal/metrics"
	"github.com/dpreuss/sf-mcp/internal/query"
	"github.com/dpreuss/sf-mcp/internal/ratelimit"
	"github.com/dpreuss/sf-mcp/internal/starfish"
)

// QueryInput is the starfish_query tool input. The filter fields come from
// the embedded params; the rest control scope, output, and execution mode.
type QueryInput struct {
	query.Params

	VolumesAndPaths []string `json:"volumes_and_paths,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	SortBy          string   `json:"sort_by,omitempty"`
	FormatFields    string   `json:"format_fields,omitempty"`
	UseAsync        bool     `json:"use_async,omitempty"`
}

// ResultEntry is one normalized entry in the starfish_query tool output.
type ResultEntry struct {
	ID         int64           `json:"id"`
	Filename   string          `json:"filename"`
	ParentPath string          `json:"parent_path"`
	FullPath   string          `json:"full_path"`
	Volume     string          `json:"volume"`
	Size       int64           `json:"size"`
	Type       string          `json:"type"`
	UID        *int            `json:"uid"`
	GID        *int            `json:"gid"`
	Mode       string          `json:"mode"`
	CreateTime string          `json:"create_time,omitempty"`
	ModifyTime string          `json:"modify_time,omitempty"`
	AccessTime string          `json:"access_time,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Zones      []starfish.Zone `json:"zones,omitempty"`
}

// QueryResult is the starfish_query tool output envelope.
type QueryResult struct {
	Query          string        `json:"query"`
	FiltersApplied query.Params  `json:"filters_applied"`
	SearchScope    []string      `json:"search_scope"`
	UseAsync       bool          `json:"use_async"`
	TotalFound     int           `json:"total_found"`
	Limit          int           `json:"limit"`
	Results        []ResultEntry `json:"results"`
}

// QueryExecutor runs starfish_query calls end to end.
type QueryExecutor struct {
	client       *starfish.Client
	governor     *ratelimit.Governor
	defaultLimit int
	asyncTimeout time.Duration
	logger       *slog.Logger
}

// NewQueryExecutor wires a client and governor into an executor.
// defaultLimit and asyncTimeout of zero fall back to 100 and the client's
// async default.
func NewQueryExecutor(client *starfish.Client, governor *ratelimit.Governor, defaultLimit int, asyncTimeout time.Duration, logger *slog.Logger) *QueryExecutor {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryExecutor{
		client:       client,
		governor:     governor,
		defaultLimit: defaultLimit,
		asyncTimeout: asyncTimeout,
		logger:       logger,
	}
}

// Execute compiles the filters and runs the query. Async execution is used
// only when requested and a search scope is given; without a scope the
// async API has nothing to fan out over.
func (e *QueryExecutor) Execute(ctx context.Context, in QueryInput) (*QueryResult, error) {
	compiled := in.Params.Compile()

	decision := e.governor.Admit()
	if !decision.Admitted {
		metrics.RecordRateLimitRejection()
		return nil, fmt.Errorf("rate limit exceeded: %d of %d queries in the last %s, retry in %s",
			decision.Current, decision.Max, decision.Window, decision.RetryAfter.Round(time.Second))
	}

	limit := in.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}

	useAsync := in.UseAsync && len(in.VolumesAndPaths) > 0

	e.logger.Info("executing query",
		"query", compiled,
		"scope", in.VolumesAndPaths,
		"use_async", useAsync,
		"limit", limit,
	)

	start := time.Now()
	var entries []starfish.Entry
	var err error
	if useAsync {
		var queries []string
		if compiled != "" {
			queries = []string{compiled}
		}
		entries, err = e.client.AsyncQuery(ctx, starfish.AsyncQueryRequest{
			VolumesAndPaths: in.VolumesAndPaths,
			Queries:         queries,
			FormatFields:    in.FormatFields,
			Limit:           limit,
			SortBy:          in.SortBy,
			Timeout:         e.asyncTimeout,
		})
		metrics.RecordQuery("async", err, time.Since(start))
	} else {
		var scope string
		if len(in.VolumesAndPaths) > 0 {
			scope = in.VolumesAndPaths[0]
		}
		entries, err = e.client.Query(ctx, compiled, starfish.QueryOptions{
			FormatFields:    in.FormatFields,
			Limit:           limit,
			SortBy:          in.SortBy,
			VolumesAndPaths: scope,
		})
		metrics.RecordQuery("sync", err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	results := make([]ResultEntry, len(entries))
	for i, entry := range entries {
		results[i] = normalizeEntry(entry)
	}

	scope := in.VolumesAndPaths
	if scope == nil {
		scope = []string{}
	}

	return &QueryResult{
		Query:          compiled,
		FiltersApplied: in.Params,
		SearchScope:    scope,
		UseAsync:       useAsync,
		TotalFound:     len(results),
		Limit:          limit,
		Results:        results,
	}, nil
}

func normalizeEntry(entry starfish.Entry) ResultEntry {
	kind := "directory"
	if entry.IsFile() {
		kind = "file"
	}
	return ResultEntry{
		ID:         entry.ID,
		Filename:   entry.Filename,
		ParentPath: entry.ParentPath,
		FullPath:   entry.FullPath,
		Volume:     entry.Volume,
		Size:       entry.Size,
		Type:       kind,
		UID:        entry.UID,
		GID:        entry.GID,
		Mode:       entry.Mode,
		CreateTime: entry.CreateTimeRFC3339(),
		ModifyTime: entry.ModifyTimeRFC3339(),
		AccessTime: entry.AccessTimeRFC3339(),
		Tags:       entry.AllTags(),
		Zones:      entry.Zones,
	}
}
