// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry manages command registration and lookup.
// It is thread-safe for concurrent access.
type Registry struct {
	commands map[string]CommandEntry
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]CommandEntry),
	}
}

// Register adds a command to the registry. Names are case-insensitive.
// If a command with the same name exists, it is overwritten and a warning
// is logged.
func (r *Registry) Register(entry CommandEntry) error {
	if err := ValidateCommandName(entry.Name); err != nil {
		return err
	}
	if entry.Handler == nil {
		return ErrNilHandler(entry.Name)
	}
	name := strings.ToLower(strings.TrimSpace(entry.Name))
	entry.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[name]; ok {
		slog.Warn("command conflict: overwriting existing command", "command", name)
	}

	r.commands[name] = entry
	return nil
}

// Get retrieves a command by name, ignoring case.
func (r *Registry) Get(name string) (CommandEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[strings.ToLower(name)]
	return entry, ok
}

// All returns all registered commands sorted by name.
// The returned slice is a copy and safe to modify.
func (r *Registry) All() []CommandEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CommandEntry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
