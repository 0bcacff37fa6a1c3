package engine

import (
	"github.com/flowmesh/engine/internal/graph"
	"github.com/flowmesh/engine/internal/router"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

// collectInputs assembles a node's ExecutionDataMap from its parents'
// recorded outputs, per spec §4.1-collect: only successful parents
// propagate data, routed by each Connection's target port and index;
// connections that share a (port, index) merge into one batch.
func collectInputs(g *graph.Graph, state *executionState, nodeName string) wf.ExecutionDataMap {
	type key struct {
		port wf.PortKind
		idx  int
	}
	buckets := make(map[key][]wf.ExecutionData)
	maxIdx := make(map[wf.PortKind]int)

	for _, e := range g.Parents(nodeName) {
		st, ok := state.Status(e.From)
		if !ok || st != wf.NodeSuccess {
			continue
		}
		srcOut := state.Output(e.From)
		batches, ok := srcOut[e.SourcePort]
		if !ok {
			continue
		}
		k := key{port: e.TargetPort, idx: e.TargetIndex}
		if _, seen := maxIdx[e.TargetPort]; !seen || e.TargetIndex > maxIdx[e.TargetPort] {
			maxIdx[e.TargetPort] = e.TargetIndex
		}
		for _, batch := range batches {
			buckets[k] = append(buckets[k], batch.Items...)
		}
	}

	out := make(wf.ExecutionDataMap, len(maxIdx))
	for port, hi := range maxIdx {
		vec := make([]wf.ExecutionDataItems, hi+1)
		for i := 0; i <= hi; i++ {
			vec[i] = wf.ExecutionDataItems{Items: buckets[key{port, i}]}
		}
		out[port] = vec
	}
	return out
}

// shouldExecuteNode implements the teacher's OR-semantics over incoming
// edges (dag_executor.go's shouldExecuteNode): a node runs if at least one
// incoming edge has a successful, non-skipped source whose edge condition
// (empty or true) passes. Root nodes (no parents) always run.
func shouldExecuteNode(g *graph.Graph, conditions *router.ConditionCache, state *executionState, nodeName string) bool {
	parents := g.Parents(nodeName)
	if len(parents) == 0 {
		return true
	}
	for _, e := range parents {
		st, ok := state.Status(e.From)
		if !ok || st != wf.NodeSuccess {
			continue
		}
		outVal := firstItemValue(state.Output(e.From), e.SourcePort)
		passed, err := router.EvaluateEdgeCondition(conditions, e.Condition, outVal, e.From)
		if err != nil {
			continue
		}
		if passed {
			return true
		}
	}
	return false
}

func firstItemValue(m wf.ExecutionDataMap, port wf.PortKind) value.Value {
	batches, ok := m[port]
	if !ok || len(batches) == 0 || len(batches[0].Items) == 0 {
		return value.Null()
	}
	items := batches[0].Items
	if len(items) == 1 {
		return items[0].JSON
	}
	vals := make([]value.Value, len(items))
	for i, it := range items {
		vals[i] = it.JSON
	}
	return value.ArrayFrom(vals)
}

// isEndNode reports whether a successfully-executed node has no child that
// itself reached Success — the dynamic "end_nodes" spec §4.1 asks for
// ("nodes with no outgoing Main connections observed to fire"), which is
// not simply graph leaves: a leaf further upstream of a skipped branch is
// not an end node if a sibling connection did fire.
func isEndNode(g *graph.Graph, state *executionState, nodeName string) bool {
	children := g.Children(nodeName)
	if len(children) == 0 {
		return true
	}
	for _, e := range children {
		if st, ok := state.Status(e.To); ok && st == wf.NodeSuccess {
			return false
		}
	}
	return true
}
