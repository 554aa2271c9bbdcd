// ABOUTME: Starfish pack exposes query and metadata tools over the API client.
// ABOUTME: starfish_query is the main search tool; the rest browse volumes, zones, and tagsets.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpreuss/sf-mcp/internal/starfish"
)

// StarfishPack creates the pack with the query and metadata tools.
func StarfishPack(client *starfish.Client, exec *QueryExecutor) *Pack {
	h := &starfishHandlers{client: client, exec: exec}
	return &Pack{
		ID: "starfish",
		Tools: []*Tool{
			{
				Definition: &Definition{
					Name:        "starfish_query",
					Description: "Comprehensive file and directory search in Starfish with all available filters. This is the main search tool.",
					InputSchema: json.RawMessage(queryInputSchema),
				},
				Handler: h.Query,
			},
			{
				Definition: &Definition{
					Name:        "starfish_list_volumes",
					Description: "List all available Starfish volumes with details.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
				},
				Handler: h.ListVolumes,
			},
			{
				Definition: &Definition{
					Name:        "starfish_get_volume",
					Description: "Get details for a single Starfish volume by ID.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{"volume_id":{"type":"integer","description":"Numeric volume ID"}},"required":["volume_id"]}`),
				},
				Handler: h.GetVolume,
			},
			{
				Definition: &Definition{
					Name:        "starfish_list_zones",
					Description: "List all available Starfish zones with detailed information.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
				},
				Handler: h.ListZones,
			},
			{
				Definition: &Definition{
					Name:        "starfish_get_zone",
					Description: "Get details for a single Starfish zone by ID.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{"zone_id":{"type":"integer","description":"Numeric zone ID"}},"required":["zone_id"]}`),
				},
				Handler: h.GetZone,
			},
			{
				Definition: &Definition{
					Name:        "starfish_get_tagset",
					Description: "Get detailed information about a specific tagset.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{"tagset_name":{"type":"string","description":"Name of the tagset to retrieve (use ':' for default tagset)"}},"required":["tagset_name"]}`),
				},
				Handler: h.GetTagset,
			},
			{
				Definition: &Definition{
					Name:        "starfish_list_tagsets",
					Description: "List all tagsets with their tags and zone bindings.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
				},
				Handler: h.ListTagsets,
			},
			{
				Definition: &Definition{
					Name:        "starfish_list_collections",
					Description: "List collection names derived from collection:tag style tags.",
					InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
				},
				Handler: h.ListCollections,
			},
		},
	}
}

type starfishHandlers struct {
	client *starfish.Client
	exec   *QueryExecutor
}

func (h *starfishHandlers) Query(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in QueryInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	result, err := h.exec.Execute(ctx, in)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// volumeOutput is the tool-facing volume shape; the wire aliases (vol,
// volume_size_info) are renamed for readability.
type volumeOutput struct {
	ID                  int64                    `json:"id"`
	Name                string                   `json:"name"`
	DisplayName         string                   `json:"display_name,omitempty"`
	Root                string                   `json:"root,omitempty"`
	Type                string                   `json:"type"`
	DefaultAgentAddress string                   `json:"default_agent_address"`
	TotalCapacity       *float64                 `json:"total_capacity,omitempty"`
	FreeSpace           *float64                 `json:"free_space,omitempty"`
	Mounts              map[string]string        `json:"mounts,omitempty"`
	MountOpts           map[string]*string       `json:"mount_opts,omitempty"`
	SizeInfo            *starfish.VolumeSizeInfo `json:"size_info,omitempty"`
}

func volumeToOutput(v starfish.Volume) volumeOutput {
	return volumeOutput{
		ID:                  v.ID,
		Name:                v.Name,
		DisplayName:         v.DisplayName,
		Root:                v.Root,
		Type:                v.Type,
		DefaultAgentAddress: v.DefaultAgentAddress,
		TotalCapacity:       v.TotalCapacity,
		FreeSpace:           v.FreeSpace,
		Mounts:              v.Mounts,
		MountOpts:           v.MountOpts,
		SizeInfo:            v.SizeInfo,
	}
}

func (h *starfishHandlers) ListVolumes(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	volumes, err := h.client.ListVolumes(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]volumeOutput, len(volumes))
	for i, v := range volumes {
		out[i] = volumeToOutput(v)
	}

	return json.Marshal(map[string]any{
		"total_volumes": len(out),
		"volumes":       out,
	})
}

type getVolumeInput struct {
	VolumeID int64 `json:"volume_id"`
}

func (h *starfishHandlers) GetVolume(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getVolumeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	volume, err := h.client.GetVolume(ctx, in.VolumeID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(volumeToOutput(*volume))
}

func (h *starfishHandlers) ListZones(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	zones, err := h.client.ListZones(ctx)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"total_zones": len(zones),
		"zones":       zones,
	})
}

type getZoneInput struct {
	ZoneID int64 `json:"zone_id"`
}

func (h *starfishHandlers) GetZone(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getZoneInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	zone, err := h.client.GetZone(ctx, in.ZoneID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(zone)
}

type getTagsetInput struct {
	TagsetName string `json:"tagset_name"`
}

func (h *starfishHandlers) GetTagset(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getTagsetInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	tagset, err := h.client.GetTagset(ctx, in.TagsetName)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tagset)
}

func (h *starfishHandlers) ListTagsets(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	tagsets, err := h.client.ListTagsets(ctx)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"total_tagsets": len(tagsets),
		"tagsets":       tagsets,
	})
}

func (h *starfishHandlers) ListCollections(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	collections, err := h.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"total_collections": len(collections),
		"collections":       collections,
	})
}
