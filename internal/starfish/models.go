// ABOUTME: Data models for Starfish API responses.
// ABOUTME: Field names mirror the wire aliases (_id, fn, ct, mt, at) the backend emits.

package starfish

import (
	"encoding/json"
	"strings"
	"time"
)

// fileTypeBits is the stat type value the backend reports for regular files.
const fileTypeBits = 32768

// Entry is a single file or directory returned by the query APIs.
type Entry struct {
	ID            int64  `json:"_id"`
	Filename      string `json:"fn"`
	ParentPath    string `json:"parent_path,omitempty"`
	FullPath      string `json:"full_path,omitempty"`
	Type          int    `json:"type"`
	Size          int64  `json:"size"`
	Mode          string `json:"mode,omitempty"`
	UID           *int   `json:"uid,omitempty"`
	GID           *int   `json:"gid,omitempty"`
	CreateTime    int64  `json:"ct,omitempty"`
	ModifyTime    int64  `json:"mt,omitempty"`
	AccessTime    int64  `json:"at,omitempty"`
	Volume        string `json:"volume"`
	Inode         int64  `json:"ino,omitempty"`
	TagsExplicit  string `json:"tags_explicit,omitempty"`
	TagsInherited string `json:"tags_inherited,omitempty"`
	Zones         []Zone `json:"zones,omitempty"`
}

// IsFile reports whether the entry is a regular file.
func (e Entry) IsFile() bool {
	return e.Type == fileTypeBits
}

// AllTags returns explicit and inherited tags as one list. The backend
// serializes both as comma-separated strings.
func (e Entry) AllTags() []string {
	tags := splitTags(e.TagsExplicit)
	return append(tags, splitTags(e.TagsInherited)...)
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// timeOrZero converts a Unix timestamp to RFC 3339, with "" for unset.
func timeOrZero(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// CreateTimeRFC3339 returns the creation time formatted for tool output.
func (e Entry) CreateTimeRFC3339() string { return timeOrZero(e.CreateTime) }

// ModifyTimeRFC3339 returns the modification time formatted for tool output.
func (e Entry) ModifyTimeRFC3339() string { return timeOrZero(e.ModifyTime) }

// AccessTimeRFC3339 returns the access time formatted for tool output.
func (e Entry) AccessTimeRFC3339() string { return timeOrZero(e.AccessTime) }

// Zone is the per-entry zone reference attached to query results.
type Zone struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	RelativePath string `json:"relative_path"`
}

// ZoneManager identifies a user who manages a zone. The backend sends
// system_id as either an integer or a string depending on version.
type ZoneManager struct {
	SystemID json.Number `json:"system_id"`
	Username string      `json:"username"`
}

// ZoneGroup identifies a group that manages a zone.
type ZoneGroup struct {
	SystemID  json.Number `json:"system_id"`
	Groupname string      `json:"groupname"`
}

// ZoneTagset names a tagset bound to a zone with its tag names.
type ZoneTagset struct {
	Name     string   `json:"name"`
	TagNames []string `json:"tag_names"`
}

// ZoneAggregates are the rollup statistics attached to a zone.
type ZoneAggregates struct {
	Size  *int64   `json:"size,omitempty"`
	Dirs  *int64   `json:"dirs,omitempty"`
	Files *int64   `json:"files,omitempty"`
	Cost  *float64 `json:"cost,omitempty"`
}

// ZoneDetails is the full zone record from GET /zone/.
type ZoneDetails struct {
	ID                    int64           `json:"id"`
	Name                  string          `json:"name"`
	Managers              []ZoneManager   `json:"managers,omitempty"`
	ManagingGroups        []ZoneGroup     `json:"managing_groups,omitempty"`
	RestoreManagers       []string        `json:"restore_managers,omitempty"`
	RestoreManagingGroups []string        `json:"restore_managing_groups,omitempty"`
	Paths                 []string        `json:"paths,omitempty"`
	Tagsets               []ZoneTagset    `json:"tagsets,omitempty"`
	UserParams            map[string]any  `json:"user_params,omitempty"`
	Aggregates            *ZoneAggregates `json:"aggregates,omitempty"`
}

// VolumeSizeInfo is the optional disk-usage block on a volume record.
type VolumeSizeInfo struct {
	NumberOfFiles      *int64 `json:"number_of_files,omitempty"`
	NumberOfDirs       *int64 `json:"number_of_dirs,omitempty"`
	SumOfLogicalSizes  *int64 `json:"sum_of_logical_sizes,omitempty"`
	SumOfPhysicalSizes *int64 `json:"sum_of_physical_sizes,omitempty"`
	SumOfBlocks        *int64 `json:"sum_of_blocks,omitempty"`
}

// Volume is a managed volume from GET /volume/.
type Volume struct {
	ID                  int64              `json:"id"`
	Name                string             `json:"vol"`
	DisplayName         string             `json:"display_name,omitempty"`
	Root                string             `json:"root,omitempty"`
	Type                string             `json:"type"`
	DefaultAgentAddress string             `json:"default_agent_address"`
	Mounts              map[string]string  `json:"mounts,omitempty"`
	MountOpts           map[string]*string `json:"mount_opts,omitempty"`
	TotalCapacity       *float64           `json:"total_capacity,omitempty"`
	FreeSpace           *float64           `json:"free_space,omitempty"`
	SizeInfo            *VolumeSizeInfo    `json:"volume_size_info,omitempty"`
}

// Tag is a single tag inside a tagset.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tagset is the record from GET /tagset/{name}/.
type Tagset struct {
	Name        string        `json:"name"`
	ZoneIDs     []int64       `json:"zone_ids,omitempty"`
	Zones       []ZoneDetails `json:"zones,omitempty"`
	Inheritable bool          `json:"inheritable"`
	Pinnable    bool          `json:"pinnable"`
	Action      string        `json:"action,omitempty"`
	Tags        []Tag         `json:"tags,omitempty"`
}

// decodeEntries decodes a JSON array of entries, rejecting any other shape.
func decodeEntries(raw json.RawMessage, endpoint string) ([]Entry, error) {
	if !isJSONArray(raw) {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "expected array of entries from " + endpoint,
			Endpoint: endpoint,
			Body:     truncate(string(raw), 512),
		}
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &Error{
			Code:     CodeUnexpectedFormat,
			Message:  "decoding entries: " + err.Error(),
			Endpoint: endpoint,
			wrapped:  err,
		}
	}
	return entries, nil
}

// isJSONArray reports whether raw's first non-space byte opens an array.
func isJSONArray(raw []byte) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
