package session

import (
	"strings"
	"sync"
)

/*
Defaults holds the targets a server instance falls back to when a tool call
does not name one. It is owned by the server, never by package state, so two
servers in one process do not share a board.
*/
type Defaults struct {
	mu     sync.RWMutex
	values map[string]string
}

// Known default keys.
const (
	MiroBoard   = "miro.board"
	AzureProj   = "azure.project"
	AzureTeam   = "azure.team"
	GraphFolder = "graph.folder"
)

func NewDefaults(seed map[string]string) *Defaults {
	defaults := &Defaults{values: make(map[string]string)}

	for key, value := range seed {
		defaults.Set(key, value)
	}

	return defaults
}

// Get returns the stored default for key.
func (defaults *Defaults) Get(key string) (string, bool) {
	defaults.mu.RLock()
	defer defaults.mu.RUnlock()

	value, ok := defaults.values[key]

	return value, ok
}

/*
Set overwrites the default for key. An empty value clears it.
*/
func (defaults *Defaults) Set(key, value string) {
	value = strings.TrimSpace(value)

	defaults.mu.Lock()
	defer defaults.mu.Unlock()

	if value == "" {
		delete(defaults.values, key)
		return
	}

	defaults.values[key] = value
}

/*
Resolve picks the explicit argument when given, otherwise the stored default.
The boolean is false when neither is available.
*/
func (defaults *Defaults) Resolve(key, explicit string) (string, bool) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, true
	}

	value, ok := defaults.Get(key)

	return value, ok && value != ""
}

// Snapshot copies the current defaults.
func (defaults *Defaults) Snapshot() map[string]string {
	defaults.mu.RLock()
	defer defaults.mu.RUnlock()

	out := make(map[string]string, len(defaults.values))

	for key, value := range defaults.values {
		out[key] = value
	}

	return out
}
