// Package dependencies provides plugin dependency ordering and graph analysis.
//
// # Overview
//
// This package builds a dependency graph from plugin names and their declared
// dependencies, partitions it into load levels, and reports cycles.
//
// # Key Features
//
// Levelization: Kahn-style layering, each level depends only on earlier levels
// Stable Order: Ties inside a level follow insertion (discovery) order
// Cycle Detection: Levelization fails with *CycleError carrying the cycle path
// Graph Queries: Direct dependents and transitive dependencies
// Visualization: Cytoscape.js export for the inspection API
//
// # Usage Example
//
// Compute load order:
//
//	graph := dependencies.NewDependencyGraph()
//	graph.AddNode("Base", nil)
//	graph.AddNode("Mid", []string{"Base"})
//	graph.AddNode("Top", []string{"Mid"})
//
//	levels, err := graph.Levels()
//	// levels == [[Base] [Mid] [Top]]
//
// Handle cycles:
//
//	if _, err := graph.TopologicalSort(); errors.Is(err, dependencies.ErrCyclicDependency) {
//		var cycleErr *dependencies.CycleError
//		errors.As(err, &cycleErr)
//		fmt.Println(strings.Join(cycleErr.Cycle, " -> "))
//	}
//
// Dependencies naming nodes that are not part of the graph are ignored for
// ordering and can be listed with UnknownDependencies.
//
// # Related Packages
//
//   - pkg/plugins: Registry ordering is built on this graph
//   - pkg/api: Serves the Cytoscape export
package dependencies
