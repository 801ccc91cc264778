package plugins

import (
	"fmt"
	"sync"

	"github.com/platinummonkey/hub/pkg/dependencies"
)

// Registry holds the descriptors of one project's plugins keyed by name.
// It is populated once and read afterwards; the mutex only guards against
// misuse from concurrent callers.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Descriptor
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]*Descriptor),
	}
}

// Set inserts or overwrites a descriptor. An overwritten name keeps its
// original discovery position.
func (r *Registry) Set(name string, desc *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; !exists {
		r.order = append(r.order, name)
	}
	r.items[name] = desc
}

// Add inserts a descriptor under its own name and rejects duplicates
func (r *Registry) Add(desc *Descriptor) error {
	if desc == nil {
		return fmt.Errorf("cannot register nil descriptor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.items[desc.Name]; exists {
		return fmt.Errorf("%w: %s (%s and %s)", ErrDuplicatePlugin, desc.Name, existing.Path, desc.Path)
	}
	r.items[desc.Name] = desc
	r.order = append(r.order, desc.Name)
	return nil
}

// Get retrieves a descriptor by name
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, exists := r.items[name]
	return desc, exists
}

// Has checks if a plugin is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.items[name]
	return exists
}

// Count returns the number of registered plugins
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Names returns plugin names in discovery order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Items returns all descriptors in discovery order
func (r *Registry) Items() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.items[name])
	}
	return result
}

// Graph builds the dependency graph of the registered plugins
func (r *Registry) Graph() *dependencies.DependencyGraph {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := dependencies.NewDependencyGraph()
	for _, name := range r.order {
		graph.AddNode(name, r.items[name].Dependencies)
	}
	return graph
}

// Levels groups descriptors so that every plugin's dependencies sit in
// strictly earlier levels. It fails with *dependencies.CycleError on a cycle.
func (r *Registry) Levels() ([][]*Descriptor, error) {
	names, err := r.Graph().Levels()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	levels := make([][]*Descriptor, 0, len(names))
	for _, level := range names {
		items := make([]*Descriptor, 0, len(level))
		for _, name := range level {
			items = append(items, r.items[name])
		}
		levels = append(levels, items)
	}
	return levels, nil
}

// ItemsByLevels returns all descriptors in load order: dependencies first
func (r *Registry) ItemsByLevels() ([]*Descriptor, error) {
	levels, err := r.Levels()
	if err != nil {
		return nil, err
	}

	result := make([]*Descriptor, 0, r.Count())
	for _, level := range levels {
		result = append(result, level...)
	}
	return result, nil
}

// UnknownDependencies lists declared dependencies that are not registered plugins
func (r *Registry) UnknownDependencies() map[string][]string {
	return r.Graph().UnknownDependencies()
}

// CopyInto sets every descriptor of r into dst, preserving order
func (r *Registry) CopyInto(dst *Registry) {
	for _, desc := range r.Items() {
		dst.Set(desc.Name, desc.Clone())
	}
}
