// Package graph builds the compiled ExecutionGraph from a Workflow,
// validating Connection targets and rejecting cycles, grounded on the
// teacher's internal/engine/graph.go (Graph, AddNode, AddEdge, ValidateDAG).
package graph

import (
	"sort"

	"github.com/flowmesh/engine/pkg/wf"
)

// Edge is one adjacency edge, carrying enough of the Connection to let the
// planner and router do their jobs without re-walking the Workflow.
type Edge struct {
	From        string
	To          string
	SourcePort  wf.PortKind // the producing node's output port (Connections map key)
	TargetPort  wf.PortKind // the consuming node's input port
	TargetIndex int
	Condition   string
}

// Graph is the workflow's adjacency list, precomputed once per execution
// (spec §4.2). Parent/child indices give O(1) lookups during planning and
// collection.
type Graph struct {
	Nodes    map[string]*wf.WorkflowNode
	children map[string][]Edge
	parents  map[string][]Edge
	order    []string // node names in declaration order, for deterministic iteration
}

// Build compiles a Graph from w, validating that every Connection target
// names a real node (spec's ExecutionGraph invariant (a)). It does not
// check invariant (b) (target port declared by the node kind) since doing
// so requires resolving the node's registered NodeDefinition — callers that
// have a *node.Registry available should additionally validate ports before
// calling Build if they want that check performed pre-flight.
func Build(w *wf.Workflow) (*Graph, error) {
	g := &Graph{
		Nodes:    make(map[string]*wf.WorkflowNode, len(w.Nodes)),
		children: make(map[string][]Edge),
		parents:  make(map[string][]Edge),
	}
	for i := range w.Nodes {
		n := &w.Nodes[i]
		g.Nodes[n.Name] = n
		g.order = append(g.order, n.Name)
	}
	for source, byPort := range w.Connections {
		if _, ok := g.Nodes[source]; !ok {
			return nil, wf.NewWorkflowExecutionError(w.ID, wf.ErrNodeNotFound, "connection source "+source)
		}
		for port, conns := range byPort {
			for _, c := range conns {
				if _, ok := g.Nodes[c.TargetNode]; !ok {
					return nil, wf.NewWorkflowExecutionError(w.ID, wf.ErrNodeNotFound, "connection target "+c.TargetNode)
				}
				e := Edge{From: source, To: c.TargetNode, SourcePort: port, TargetPort: c.TargetPort, TargetIndex: c.TargetIndex, Condition: c.Condition}
				g.children[source] = append(g.children[source], e)
				g.parents[c.TargetNode] = append(g.parents[c.TargetNode], e)
			}
		}
	}
	if cyc := g.findCycle(); cyc != nil {
		return nil, wf.NewWorkflowExecutionError(w.ID, wf.ErrCircularDependency, "cycle through "+cyc[0])
	}
	return g, nil
}

// Children returns the outgoing edges from node.
func (g *Graph) Children(node string) []Edge { return g.children[node] }

// Parents returns the incoming edges to node.
func (g *Graph) Parents(node string) []Edge { return g.parents[node] }

// ParentNames returns the distinct set of parent node names of node.
func (g *Graph) ParentNames(node string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range g.parents[node] {
		if !seen[e.From] {
			seen[e.From] = true
			out = append(out, e.From)
		}
	}
	sort.Strings(out)
	return out
}

// NodeNames returns all node names in declaration order.
func (g *Graph) NodeNames() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// findCycle runs a DFS-based cycle detection, returning the path of one
// discovered cycle or nil if the graph is acyclic (spec §4.2).
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.order))
	var path []string
	var cycle []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		path = append(path, n)
		for _, e := range g.children[n] {
			switch color[e.To] {
			case gray:
				cycle = append(append([]string{}, path...), e.To)
				return true
			case white:
				if visit(e.To) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return false
	}

	for _, n := range g.order {
		if color[n] == white {
			if visit(n) {
				return cycle
			}
		}
	}
	return nil
}

// Ancestors returns every node reachable by following parent edges
// transitively from node, excluding node itself.
func (g *Graph) Ancestors(node string) []string {
	seen := map[string]bool{}
	var stack []string
	stack = append(stack, g.ParentNames(node)...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.ParentNames(n)...)
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Descendants returns every node reachable by following child edges
// transitively from node, excluding node itself.
func (g *Graph) Descendants(node string) []string {
	seen := map[string]bool{}
	var stack []string
	for _, e := range g.children[node] {
		stack = append(stack, e.To)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, e := range g.children[n] {
			stack = append(stack, e.To)
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
