// ABOUTME: Rate-limit pack exposes governor status and reset as tools.
// ABOUTME: Lets operators inspect and clear the query window without restarting.

package tools

import (
	"context"
	"encoding/json"

	"github.com/dpreuss/sf-mcp/internal/ratelimit"
)

// RateLimitPack creates the pack with the governor inspection tools.
func RateLimitPack(governor *ratelimit.Governor) *Pack {
	h := &rateLimitHandlers{governor: governor}
	return &Pack{
		ID: "ratelimit",
		Tools: []*Tool{
			{
				Definition: &Definition{
					Name:        "starfish_rate_limit_status",
					Description: "Show the current query rate limit window: usage, capacity, and time to reset.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
				},
				Handler: h.Status,
			},
			{
				Definition: &Definition{
					Name:        "starfish_rate_limit_reset",
					Description: "Clear the rate limit window, allowing queries immediately.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
				},
				Handler: h.Reset,
			},
		},
	}
}

type rateLimitHandlers struct {
	governor *ratelimit.Governor
}

func (h *rateLimitHandlers) Status(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(h.governor.Status())
}

func (h *rateLimitHandlers) Reset(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	h.governor.Reset()
	return json.Marshal(map[string]string{"status": "reset"})
}
