// ABOUTME: Tests for the tool registry: registration, collision detection, dispatch.
// ABOUTME: Uses plain handlers with no backend.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func testPack(id string, names ...string) *Pack {
	pack := &Pack{ID: id}
	for _, name := range names {
		pack.Tools = append(pack.Tools, &Tool{
			Definition: &Definition{
				Name:        name,
				Description: "test tool",
				InputSchema: json.RawMessage(`{"type":"object"}`),
			},
			Handler: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
				return json.RawMessage(`{"ok":true}`), nil
			},
		})
	}
	return pack
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(slog.Default())

	if err := r.RegisterPack(testPack("p1", "tool_a", "tool_b")); err != nil {
		t.Fatalf("RegisterPack() error = %v", err)
	}

	if tool := r.Get("tool_a"); tool == nil {
		t.Error("Get(tool_a) = nil, want tool")
	}
	if tool := r.Get("missing"); tool != nil {
		t.Error("Get(missing) should return nil")
	}
}

func TestRegistry_ToolCollision(t *testing.T) {
	r := NewRegistry(slog.Default())

	if err := r.RegisterPack(testPack("p1", "tool_a")); err != nil {
		t.Fatalf("RegisterPack() error = %v", err)
	}

	err := r.RegisterPack(testPack("p2", "tool_a"))
	if !errors.Is(err, ErrToolCollision) {
		t.Errorf("RegisterPack() error = %v, want ErrToolCollision", err)
	}

	// The colliding pack must not be partially registered
	if _, ok := r.packs["p2"]; ok {
		t.Error("colliding pack should not be registered")
	}
}

func TestRegistry_DuplicatePackID(t *testing.T) {
	r := NewRegistry(slog.Default())

	if err := r.RegisterPack(testPack("p1", "tool_a")); err != nil {
		t.Fatalf("RegisterPack() error = %v", err)
	}
	if err := r.RegisterPack(testPack("p1", "tool_b")); err == nil {
		t.Error("RegisterPack() with duplicate pack ID should fail")
	}
}

func TestRegistry_DefinitionsSorted(t *testing.T) {
	r := NewRegistry(slog.Default())

	if err := r.RegisterPack(testPack("p1", "zebra", "alpha", "middle")); err != nil {
		t.Fatalf("RegisterPack() error = %v", err)
	}

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("Definitions() len = %d, want 3", len(defs))
	}
	want := []string{"alpha", "middle", "zebra"}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("Definitions()[%d] = %q, want %q", i, def.Name, want[i])
		}
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry(slog.Default())

	var gotInput json.RawMessage
	pack := &Pack{
		ID: "p1",
		Tools: []*Tool{{
			Definition: &Definition{Name: "echo", InputSchema: json.RawMessage(`{}`)},
			Handler: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
				gotInput = input
				return input, nil
			},
		}},
	}
	if err := r.RegisterPack(pack); err != nil {
		t.Fatalf("RegisterPack() error = %v", err)
	}

	result, err := r.Execute(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if string(result) != `{"x":1}` {
		t.Errorf("Execute() = %s, want {\"x\":1}", result)
	}
	if string(gotInput) != `{"x":1}` {
		t.Errorf("handler input = %s", gotInput)
	}
}

func TestRegistry_ExecuteEmptyInputDefaultsToObject(t *testing.T) {
	r := NewRegistry(slog.Default())

	pack := &Pack{
		ID: "p1",
		Tools: []*Tool{{
			Definition: &Definition{Name: "probe", InputSchema: json.RawMessage(`{}`)},
			Handler: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
				return input, nil
			},
		}},
	}
	if err := r.RegisterPack(pack); err != nil {
		t.Fatalf("RegisterPack() error = %v", err)
	}

	result, err := r.Execute(context.Background(), "probe", nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if string(result) != `{}` {
		t.Errorf("Execute() with nil input = %s, want {}", result)
	}
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(slog.Default())

	_, err := r.Execute(context.Background(), "ghost", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("Execute() error = %v, want ErrToolNotFound", err)
	}
}
