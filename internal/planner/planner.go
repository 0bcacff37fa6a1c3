// Package planner produces layered parallel groups from an execution graph
// via Kahn's algorithm, grounded on the teacher's backend dag_executor.go
// topologicalSort (wave construction) with deterministic lexicographic
// tie-breaking (spec §4.2).
package planner

import (
	"sort"

	"github.com/flowmesh/engine/internal/graph"
)

// Plan is an ordered list of parallel groups; nodes in group i depend only
// on nodes in groups < i. Empty groups are never produced.
type Plan struct {
	Groups [][]string
}

// Build runs Kahn's algorithm over g, starting in-degree counts from the
// distinct-parent count per node (spec: "in-degree = number of distinct
// parents"). Ties within a group are broken lexicographically by node name
// so repeated calls over the same graph are reproducible (testable
// property 3).
func Build(g *graph.Graph) *Plan {
	names := g.NodeNames()
	indegree := make(map[string]int, len(names))
	for _, n := range names {
		indegree[n] = len(g.ParentNames(n))
	}

	remaining := make(map[string]bool, len(names))
	for _, n := range names {
		remaining[n] = true
	}

	plan := &Plan{}
	for len(remaining) > 0 {
		var ready []string
		for n := range remaining {
			if indegree[n] == 0 {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			// Should not happen for an acyclic graph built via graph.Build,
			// which already rejects cycles; defensive stop to avoid looping.
			break
		}
		sort.Strings(ready)
		plan.Groups = append(plan.Groups, ready)

		for _, n := range ready {
			delete(remaining, n)
		}
		// Recompute in-degree counting only remaining distinct parents, since
		// a node with two connections from the same parent should only drop
		// its in-degree once that parent completes, not once per connection.
		for n := range remaining {
			indegree[n] = countDistinctRemainingParents(g, n, remaining)
		}
	}
	return plan
}

func countDistinctRemainingParents(g *graph.Graph, n string, remaining map[string]bool) int {
	seen := map[string]bool{}
	count := 0
	for _, e := range g.Parents(n) {
		if !remaining[e.From] || seen[e.From] {
			continue
		}
		seen[e.From] = true
		count++
	}
	return count
}

// Optimize is the spec's `optimize_execution_plan`. This module implements
// it as the identity function: it returns p unchanged. The spec leaves
// "equivalent" undefined for fusing single-child chains, so per §9's open
// question guidance this preserves observable topological order and claims
// nothing more (see DESIGN.md).
func Optimize(p *Plan) *Plan {
	return p
}

// Ready computes, from the full Plan's groups, the subset of nodes in group
// whose every parent already has a result — the "ready" set the engine
// launches concurrently (spec §4.1 step 4). Nodes with zero parents are
// always ready once their group is reached.
func Ready(g *graph.Graph, group []string, completed map[string]bool) []string {
	var out []string
	for _, n := range group {
		ready := true
		for _, p := range g.ParentNames(n) {
			if !completed[p] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, n)
		}
	}
	return out
}
