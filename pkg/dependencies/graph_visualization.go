package dependencies

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"` // -1 when the graph has a cycle
	Type  string `json:"type"`  // "plugin", "external"
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js
type CytoscapeEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"` // "direct", "external"
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// ToCytoscape exports the graph for Cytoscape.js. Edges point from a plugin to
// the plugin it depends on. Dependencies outside the graph become "external"
// nodes when includeExternal is set.
func (g *DependencyGraph) ToCytoscape(includeExternal bool) CytoscapeGraph {
	levelOf := make(map[string]int, len(g.order))
	if levels, err := g.Levels(); err == nil {
		for i, level := range levels {
			for _, name := range level {
				levelOf[name] = i
			}
		}
	} else {
		for _, name := range g.order {
			levelOf[name] = -1
		}
	}

	graph := CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0, len(g.order)),
		Edges: make([]CytoscapeEdge, 0),
	}
	external := make(map[string]bool)

	for _, name := range g.order {
		graph.Nodes = append(graph.Nodes, CytoscapeNode{
			Data: CytoscapeNodeData{ID: name, Name: name, Level: levelOf[name], Type: "plugin"},
		})
	}

	for _, name := range g.order {
		for _, dep := range g.nodes[name].Dependencies {
			edgeType := "direct"
			if _, ok := g.nodes[dep]; !ok {
				if !includeExternal {
					continue
				}
				edgeType = "external"
				if !external[dep] {
					external[dep] = true
					graph.Nodes = append(graph.Nodes, CytoscapeNode{
						Data: CytoscapeNodeData{ID: dep, Name: dep, Level: -1, Type: "external"},
					})
				}
			}
			graph.Edges = append(graph.Edges, CytoscapeEdge{
				Data: CytoscapeEdgeData{
					ID:     name + "->" + dep,
					Source: name,
					Target: dep,
					Type:   edgeType,
				},
			})
		}
	}

	return graph
}
