package dependencies

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCyclicDependency is returned when the graph cannot be levelized.
var ErrCyclicDependency = errors.New("cyclic dependency")

// Dependency represents a plugin dependency
type Dependency struct {
	Name string `json:"name"`
	Type string `json:"type"` // "direct" or "transitive"
}

// DependencyGraph represents the plugin dependency graph.
// Nodes keep the order in which they were added; that order breaks ties
// inside a level.
type DependencyGraph struct {
	nodes map[string]*Node
	order []string
}

// Node represents a node in the dependency graph
type Node struct {
	Name         string
	Dependencies []string
	Index        int
}

// CycleError reports a dependency cycle found while levelizing the graph.
type CycleError struct {
	// Cycle is one cycle path, first and last element are the same node.
	Cycle []string
	// Unresolved lists every node that could not be placed in a level.
	Unresolved []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return fmt.Sprintf("%s among: %s", ErrCyclicDependency, strings.Join(e.Unresolved, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Node),
	}
}

// AddNode adds a node to the graph. Adding an existing name replaces its
// dependencies but keeps its original position.
func (g *DependencyGraph) AddNode(name string, deps []string) {
	if node, ok := g.nodes[name]; ok {
		node.Dependencies = append([]string(nil), deps...)
		return
	}
	g.nodes[name] = &Node{
		Name:         name,
		Dependencies: append([]string(nil), deps...),
		Index:        len(g.order),
	}
	g.order = append(g.order, name)
}

// GetNode retrieves a node from the graph
func (g *DependencyGraph) GetNode(name string) *Node {
	return g.nodes[name]
}

// Names returns node names in insertion order
func (g *DependencyGraph) Names() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of nodes
func (g *DependencyGraph) Len() int {
	return len(g.order)
}

// GetDependencies returns the direct dependencies of a node that are part of the graph
func (g *DependencyGraph) GetDependencies(name string) []string {
	node := g.nodes[name]
	if node == nil {
		return nil
	}
	known := make([]string, 0, len(node.Dependencies))
	for _, dep := range node.Dependencies {
		if _, ok := g.nodes[dep]; ok {
			known = append(known, dep)
		}
	}
	return known
}

// UnknownDependencies returns, per node, the declared dependencies that are not
// nodes of this graph. They take no part in ordering.
func (g *DependencyGraph) UnknownDependencies() map[string][]string {
	result := make(map[string][]string)
	for _, name := range g.order {
		for _, dep := range g.nodes[name].Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				result[name] = append(result[name], dep)
			}
		}
	}
	return result
}

// GetTransitiveDependencies returns all transitive dependencies
func (g *DependencyGraph) GetTransitiveDependencies(name string) []Dependency {
	visited := map[string]bool{name: true}
	result := make([]Dependency, 0)

	var traverse func(string)
	traverse = func(current string) {
		for _, dep := range g.GetDependencies(current) {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			result = append(result, Dependency{Name: dep, Type: "transitive"})
			traverse(dep)
		}
	}

	traverse(name)
	return result
}

// GetDependents returns all nodes that depend directly on name
func (g *DependencyGraph) GetDependents(name string) []Dependency {
	dependents := make([]Dependency, 0)

	for _, nodeName := range g.order {
		for _, dep := range g.nodes[nodeName].Dependencies {
			if dep == name {
				dependents = append(dependents, Dependency{Name: nodeName, Type: "direct"})
				break
			}
		}
	}

	return dependents
}

// DetectCycle returns one cycle path or nil when the graph is acyclic.
func (g *DependencyGraph) DetectCycle() []string {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var path []string

	var hasCycle func(string) bool
	hasCycle = func(name string) bool {
		visited[name] = true
		recStack[name] = true
		path = append(path, name)

		for _, dep := range g.GetDependencies(name) {
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				path = append(path, dep)
				return true
			}
		}

		recStack[name] = false
		path = path[:len(path)-1]
		return false
	}

	for _, name := range g.order {
		if visited[name] {
			continue
		}
		path = path[:0]
		if hasCycle(name) {
			// trim the lead-in so the path starts at the repeated node
			last := path[len(path)-1]
			for i, v := range path[:len(path)-1] {
				if v == last {
					return append([]string(nil), path[i:]...)
				}
			}
			return append([]string(nil), path...)
		}
	}

	return nil
}

// Levels partitions the graph into dependency levels. Every node's
// dependencies live in strictly earlier levels; nodes inside a level keep
// insertion order.
func (g *DependencyGraph) Levels() ([][]string, error) {
	placed := make(map[string]bool, len(g.order))
	remaining := g.Names()
	levels := make([][]string, 0)

	for len(remaining) > 0 {
		var level, next []string
		for _, name := range remaining {
			ready := true
			for _, dep := range g.GetDependencies(name) {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, name)
			} else {
				next = append(next, name)
			}
		}

		if len(level) == 0 {
			return nil, &CycleError{
				Cycle:      g.DetectCycle(),
				Unresolved: remaining,
			}
		}

		for _, name := range level {
			placed[name] = true
		}
		levels = append(levels, level)
		remaining = next
	}

	return levels, nil
}

// TopologicalSort returns the levels flattened into a single order
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(g.order))
	for _, level := range levels {
		result = append(result, level...)
	}
	return result, nil
}
