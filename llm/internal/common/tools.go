package common

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fastnlabs/fastn-agent/chat"
)

// Tools is the tool registry shared by the provider chat implementations.
// Registration order is preserved so tool catalogs are stable across requests.
type Tools struct {
	mu    sync.RWMutex
	tools map[string]chat.Tool
	order []string
}

func NewTools() *Tools {
	return &Tools{
		tools: make(map[string]chat.Tool),
	}
}

// Register adds a tool. Re-registering a name replaces the tool but keeps
// its original position.
func (t *Tools) Register(tool chat.Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool definition missing name")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.tools[name]; !exists {
		t.order = append(t.order, name)
	}
	t.tools[name] = tool
	return nil
}

// Deregister removes a tool by name.
func (t *Tools) Deregister(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.tools, name)
	if i := slices.Index(t.order, name); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
}

// All returns the registered tools in registration order.
func (t *Tools) All() []chat.Tool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]chat.Tool, 0, len(t.order))
	for _, name := range t.order {
		if tool, exists := t.tools[name]; exists {
			result = append(result, tool)
		}
	}
	return result
}

// List returns tool names in registration order.
func (t *Tools) List() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.order)
}

// Execute runs a tool by name with the given context and input.
func (t *Tools) Execute(ctx context.Context, name string, input string) (string, error) {
	t.mu.RLock()
	tool, exists := t.tools[name]
	t.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("tool %q not found", name)
	}
	return tool.Call(ctx, input), nil
}
