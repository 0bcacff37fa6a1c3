package router

import "github.com/flowmesh/engine/pkg/value"

// EvaluateEdgeCondition runs a Connection's optional boolean gating
// expression against the producing node's output, mirroring the teacher's
// evaluateEdgeCondition (env = {output, node}). An empty condition always
// passes.
func EvaluateEdgeCondition(cache *ConditionCache, condition string, output value.Value, nodeName string) (bool, error) {
	if condition == "" {
		return true, nil
	}
	env := map[string]any{
		"output": output.ToAny(),
		"node":   nodeName,
	}
	return cache.Eval(condition, env)
}
