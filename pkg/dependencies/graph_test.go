package dependencies

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDependencyGraph_AddNode(t *testing.T) {
	graph := NewDependencyGraph()

	graph.AddNode("user", []string{"common"})

	node := graph.GetNode("user")
	if node == nil {
		t.Fatal("Expected node to be added")
	}

	if node.Name != "user" {
		t.Errorf("Expected name 'user', got %s", node.Name)
	}

	if len(node.Dependencies) != 1 {
		t.Errorf("Expected 1 dependency, got %d", len(node.Dependencies))
	}
}

func TestDependencyGraph_AddNode_ReplaceKeepsPosition(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("a", nil)
	graph.AddNode("b", nil)
	graph.AddNode("a", []string{"b"})

	assert.Equal(t, []string{"a", "b"}, graph.Names())
	assert.Equal(t, 2, graph.Len())
	assert.Equal(t, []string{"b"}, graph.GetNode("a").Dependencies)
}

func TestDependencyGraph_GetTransitiveDependencies(t *testing.T) {
	graph := NewDependencyGraph()

	// Build graph: user -> common -> base
	graph.AddNode("base", nil)
	graph.AddNode("common", []string{"base"})
	graph.AddNode("user", []string{"common"})

	deps := graph.GetTransitiveDependencies("user")

	require.Len(t, deps, 2)
	assert.Equal(t, "common", deps[0].Name)
	assert.Equal(t, "base", deps[1].Name)
	for _, dep := range deps {
		assert.Equal(t, "transitive", dep.Type)
	}
}

func TestDependencyGraph_GetDependents(t *testing.T) {
	graph := NewDependencyGraph()

	graph.AddNode("common", nil)
	graph.AddNode("user", []string{"common"})
	graph.AddNode("order", []string{"common"})

	dependents := graph.GetDependents("common")

	require.Len(t, dependents, 2)
	assert.Equal(t, "user", dependents[0].Name)
	assert.Equal(t, "order", dependents[1].Name)
}

func TestDependencyGraph_UnknownDependencies(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("a", []string{"lodash", "b"})
	graph.AddNode("b", nil)

	assert.Equal(t, map[string][]string{"a": {"lodash"}}, graph.UnknownDependencies())
	assert.Equal(t, []string{"b"}, graph.GetDependencies("a"))
	assert.Nil(t, graph.GetDependencies("missing"))
}

func TestDependencyGraph_DetectCycle(t *testing.T) {
	tests := []struct {
		name       string
		buildGraph func(*DependencyGraph)
		expected   []string
	}{
		{
			name: "no circular dependency",
			buildGraph: func(g *DependencyGraph) {
				g.AddNode("base", nil)
				g.AddNode("common", []string{"base"})
				g.AddNode("user", []string{"common"})
			},
			expected: nil,
		},
		{
			name: "direct circular dependency",
			buildGraph: func(g *DependencyGraph) {
				g.AddNode("a", []string{"b"})
				g.AddNode("b", []string{"a"})
			},
			expected: []string{"a", "b", "a"},
		},
		{
			name: "indirect circular dependency behind a lead-in",
			buildGraph: func(g *DependencyGraph) {
				g.AddNode("root", []string{"a"})
				g.AddNode("a", []string{"b"})
				g.AddNode("b", []string{"c"})
				g.AddNode("c", []string{"a"})
			},
			expected: []string{"a", "b", "c", "a"},
		},
		{
			name: "self reference",
			buildGraph: func(g *DependencyGraph) {
				g.AddNode("self", []string{"self"})
			},
			expected: []string{"self", "self"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := NewDependencyGraph()
			tt.buildGraph(graph)

			assert.Equal(t, tt.expected, graph.DetectCycle())
		})
	}
}

func TestDependencyGraph_Levels(t *testing.T) {
	graph := NewDependencyGraph()

	// discovery order deliberately differs from load order
	graph.AddNode("top", []string{"mid"})
	graph.AddNode("other", nil)
	graph.AddNode("mid", []string{"base"})
	graph.AddNode("base", nil)
	graph.AddNode("wide", []string{"base", "other"})

	levels, err := graph.Levels()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"other", "base"},
		{"mid", "wide"},
		{"top"},
	}, levels)
}

func TestDependencyGraph_Levels_Empty(t *testing.T) {
	levels, err := NewDependencyGraph().Levels()
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	graph := NewDependencyGraph()

	// Build graph: user -> common -> base
	graph.AddNode("user", []string{"common"})
	graph.AddNode("common", []string{"base"})
	graph.AddNode("base", nil)

	sorted, err := graph.TopologicalSort()
	require.NoError(t, err)

	assert.Equal(t, []string{"base", "common", "user"}, sorted)
}

func TestDependencyGraph_TopologicalSort_CircularDependency(t *testing.T) {
	graph := NewDependencyGraph()

	graph.AddNode("ok", nil)
	graph.AddNode("a", []string{"b", "ok"})
	graph.AddNode("b", []string{"a"})
	graph.AddNode("after", []string{"a"})

	sorted, err := graph.TopologicalSort()
	require.Error(t, err)
	assert.Nil(t, sorted)
	assert.True(t, errors.Is(err, ErrCyclicDependency))

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a", "b", "a"}, cycleErr.Cycle)
	assert.Equal(t, []string{"a", "b", "after"}, cycleErr.Unresolved)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestCycleError_WithoutPath(t *testing.T) {
	err := &CycleError{Unresolved: []string{"x", "y"}}
	assert.Equal(t, "cyclic dependency among: x, y", err.Error())
}

func TestDependencyGraph_ToCytoscape(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("base", []string{"lodash"})
	graph.AddNode("mid", []string{"base"})

	withExternal := graph.ToCytoscape(true)
	require.Len(t, withExternal.Nodes, 3)
	assert.Equal(t, 0, withExternal.Nodes[0].Data.Level)
	assert.Equal(t, 1, withExternal.Nodes[1].Data.Level)
	assert.Equal(t, "external", withExternal.Nodes[2].Data.Type)
	require.Len(t, withExternal.Edges, 2)
	assert.Equal(t, "mid->base", withExternal.Edges[1].Data.ID)

	pluginsOnly := graph.ToCytoscape(false)
	assert.Len(t, pluginsOnly.Nodes, 2)
	assert.Len(t, pluginsOnly.Edges, 1)
}

func TestDependencyGraph_ToCytoscape_Cycle(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("a", []string{"b"})
	graph.AddNode("b", []string{"a"})

	for _, node := range graph.ToCytoscape(false).Nodes {
		assert.Equal(t, -1, node.Data.Level)
	}
}

// Property-based tests (using pgregory.net/rapid)

// acyclicGraph draws a random DAG: node i may only depend on nodes j < i in
// construction order, then insertion order is shuffled.
func acyclicGraph(rt *rapid.T) (*DependencyGraph, map[string][]string) {
	n := rapid.IntRange(0, 25).Draw(rt, "nodes")
	deps := make(map[string][]string, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("p%d", i)
		for j := 0; j < i; j++ {
			if rapid.Bool().Draw(rt, fmt.Sprintf("edge_%d_%d", i, j)) {
				deps[names[i]] = append(deps[names[i]], names[j])
			}
		}
	}
	perm := rapid.Permutation(names).Draw(rt, "insertion")

	graph := NewDependencyGraph()
	for _, name := range perm {
		graph.AddNode(name, deps[name])
	}
	return graph, deps
}

func TestProperty_TopologicalSortRespectsDependencies(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		graph, deps := acyclicGraph(rt)

		sorted, err := graph.TopologicalSort()
		require.NoError(rt, err)
		require.Len(rt, sorted, graph.Len())

		position := make(map[string]int, len(sorted))
		for i, name := range sorted {
			position[name] = i
		}
		for name, ds := range deps {
			for _, dep := range ds {
				require.Less(rt, position[dep], position[name], "%s must load before %s", dep, name)
			}
		}
	})
}

func TestProperty_LevelsKeepInsertionOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		graph, _ := acyclicGraph(rt)

		levels, err := graph.Levels()
		require.NoError(rt, err)

		for _, level := range levels {
			for i := 1; i < len(level); i++ {
				require.Less(rt, graph.GetNode(level[i-1]).Index, graph.GetNode(level[i]).Index)
			}
		}
	})
}

func TestProperty_CycleAlwaysReported(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		graph, _ := acyclicGraph(rt)

		// close a ring of at least one node on top of the DAG
		size := rapid.IntRange(1, 5).Draw(rt, "ring")
		for i := 0; i < size; i++ {
			graph.AddNode(fmt.Sprintf("ring%d", i), []string{fmt.Sprintf("ring%d", (i+1)%size)})
		}

		sorted, err := graph.TopologicalSort()
		require.ErrorIs(rt, err, ErrCyclicDependency)
		require.Nil(rt, sorted)

		var cycleErr *CycleError
		require.ErrorAs(rt, err, &cycleErr)
		require.NotEmpty(rt, cycleErr.Cycle)
		require.Equal(rt, cycleErr.Cycle[0], cycleErr.Cycle[len(cycleErr.Cycle)-1])
	})
}
