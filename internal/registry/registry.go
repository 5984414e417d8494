// Package registry holds the aggregated catalogue of tools discovered from
// tool servers, keyed by globally unique tool name.
package registry

import (
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Descriptor describes one callable tool and the server that owns it.
type Descriptor struct {
	Name        string
	Server      string
	Description string
	InputSchema *jsonschema.Schema
}

// Conflict records a rejected duplicate registration: a second server
// offered a tool name the registry already holds.
type Conflict struct {
	Name           string
	Server         string
	ExistingServer string
}

// Registry is a purely data-holding tool table. List order is insertion
// order and is stable across concurrent reads and writes.
type Registry struct {
	log *slog.Logger

	mu        sync.RWMutex
	order     []string
	byName    map[string]Descriptor
	conflicts []Conflict
}

// New creates an empty registry.
func New(log *slog.Logger) *Registry {
	return &Registry{
		log:    log.With("component", "registry"),
		byName: make(map[string]Descriptor, 16),
	}
}

// Register adds a descriptor under its tool name. The first registration
// of a name wins: a duplicate from another server is rejected, recorded as
// a Conflict, and never silently overwritten. Returns false on conflict.
func (r *Registry) Register(d Descriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[d.Name]; ok {
		r.conflicts = append(r.conflicts, Conflict{
			Name:           d.Name,
			Server:         d.Server,
			ExistingServer: existing.Server,
		})

		r.log.Warn("Tool name conflict, first registration wins",
			"tool", d.Name,
			"server", d.Server,
			"existing_server", existing.Server,
		)

		return false
	}

	r.byName[d.Name] = d
	r.order = append(r.order, d.Name)

	r.log.Debug("Registered tool", "tool", d.Name, "server", d.Server)

	return true
}

// Lookup returns the descriptor for a tool name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[name]

	return d, ok
}

// List returns all descriptors in insertion order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}

	return out
}

// Evict removes every descriptor owned by the given server. Used when a
// server crashes or is shut down.
func (r *Registry) Evict(server string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	kept := r.order[:0]

	for _, name := range r.order {
		if r.byName[name].Server == server {
			delete(r.byName, name)
			removed++

			continue
		}

		kept = append(kept, name)
	}

	r.order = kept

	if removed > 0 {
		r.log.Info("Evicted tools", "server", server, "count", removed)
	}

	return removed
}

// Conflicts returns the recorded duplicate-registration diagnostics.
func (r *Registry) Conflicts() []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)

	return out
}

// Clear empties the registry. Conflict diagnostics are retained.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.byName = make(map[string]Descriptor, 16)
}
