package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolDefinition links an MCP tool schema to the group it is enabled by and
// the handler that executes it.
type ToolDefinition struct {
	Group   string                 // The config group that enables the tool (e.g., "miro")
	Tool    mcp.Tool               // The schema presented to the client
	Handler server.ToolHandlerFunc // The function that executes the tool's logic
}

// Name is the tool name presented to the client.
func (def ToolDefinition) Name() string {
	return def.Tool.Name
}

/*
Registry holds the tool definitions of one server instance, keyed by tool name.
*/
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
}

func New() *Registry {
	return &Registry{tools: make(map[string]ToolDefinition)}
}

// Register adds or replaces tool definitions. A definition without a name or
// handler is rejected.
func (registry *Registry) Register(defs ...ToolDefinition) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	for _, def := range defs {
		if def.Name() == "" || def.Handler == nil {
			return fmt.Errorf("tool definition in group %q needs a name and a handler", def.Group)
		}

		registry.tools[def.Name()] = def
	}

	return nil
}

// Get retrieves a tool definition by its name.
func (registry *Registry) Get(name string) (ToolDefinition, bool) {
	registry.mu.RLock()
	def, found := registry.tools[name]
	registry.mu.RUnlock()
	return def, found
}

// List returns every definition ordered by group, then name.
func (registry *Registry) List() []ToolDefinition {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(registry.tools))

	for _, def := range registry.tools {
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Group != defs[j].Group {
			return defs[i].Group < defs[j].Group
		}

		return defs[i].Name() < defs[j].Name()
	})

	return defs
}

// Groups lists the distinct groups in sorted order.
func (registry *Registry) Groups() []string {
	var (
		groups []string
		seen   = map[string]bool{}
	)

	for _, def := range registry.List() {
		if !seen[def.Group] {
			seen[def.Group] = true
			groups = append(groups, def.Group)
		}
	}

	return groups
}

/*
Enabled filters the definitions to the given groups. An empty selection, or one
containing "all", enables everything.
*/
func (registry *Registry) Enabled(groups []string) []ToolDefinition {
	wanted := map[string]bool{}

	for _, group := range groups {
		if group = strings.ToLower(strings.TrimSpace(group)); group != "" {
			wanted[group] = true
		}
	}

	if len(wanted) == 0 || wanted["all"] {
		return registry.List()
	}

	var defs []ToolDefinition

	for _, def := range registry.List() {
		if wanted[def.Group] {
			defs = append(defs, def)
		}
	}

	return defs
}
