// ABOUTME: Thread-safe registry for in-process tool packs.
// ABOUTME: Manages pack registration, tool lookup, and dispatch with collision detection.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dpreuss/sf-mcp/internal/metrics"
)

// ErrToolCollision indicates a tool name already exists from another pack.
var ErrToolCollision = errors.New("tool name collision")

// ErrToolNotFound indicates the named tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Handler executes a tool. It receives the tool input as JSON and returns
// the result as JSON or an error.
type Handler func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Definition describes a tool to MCP clients.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Tool pairs a definition with its handler.
type Tool struct {
	Definition *Definition
	Handler    Handler
}

// Pack is a collection of tools registered under one ID.
type Pack struct {
	ID    string
	Tools []*Tool
}

// entry stores a tool with its pack ID for registry lookup.
type entry struct {
	tool   *Tool
	packID string
}

// Registry maintains the set of registered packs and their tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*entry
	packs  map[string]*Pack
	logger *slog.Logger
}

// NewRegistry creates a new Registry instance.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*entry),
		packs:  make(map[string]*Pack),
		logger: logger,
	}
}

// RegisterPack validates and stores a pack and its tools.
// Returns ErrToolCollision if any tool name already exists.
func (r *Registry) RegisterPack(pack *Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.packs[pack.ID]; exists {
		return fmt.Errorf("pack %q already registered", pack.ID)
	}

	// Check for collisions before registering anything
	for _, tool := range pack.Tools {
		if existing, exists := r.tools[tool.Definition.Name]; exists {
			return fmt.Errorf("%w: tool '%s' already registered by pack '%s'",
				ErrToolCollision, tool.Definition.Name, existing.packID)
		}
	}

	for _, tool := range pack.Tools {
		r.tools[tool.Definition.Name] = &entry{tool: tool, packID: pack.ID}
	}
	r.packs[pack.ID] = pack

	r.logger.Info("tool pack registered",
		"pack_id", pack.ID,
		"tool_count", len(pack.Tools),
		"total_tools", len(r.tools),
	)

	return nil
}

// Get returns a tool by name, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.tools[name]; ok {
		return e.tool
	}
	return nil
}

// Definitions returns all tool definitions sorted by name.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.tools))
	for _, e := range r.tools {
		defs = append(defs, e.tool.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches a tool call by name.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	result, err := tool.Handler(ctx, input)
	metrics.RecordToolCall(name, err)
	if err != nil {
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return nil, err
	}
	return result, nil
}
