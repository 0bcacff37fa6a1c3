package router

import (
	"context"
	"fmt"

	"github.com/flowmesh/engine/pkg/node"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

const defaultMaxDepth = 4

// EngineRouter dispatches EngineRequest port outputs to registered tool
// nodes after a node returns (spec §4.6), sequentially per originating
// node, bounded by MaxDepth to avoid unbounded tool-call recursion
// (spec §9).
type EngineRouter struct {
	Registry *node.Registry
	MaxDepth int
}

func New(reg *node.Registry) *EngineRouter {
	return &EngineRouter{Registry: reg, MaxDepth: defaultMaxDepth}
}

// Route inspects result's output map for an EngineRequest port; if present,
// each request is dispatched to the named tool node and the EngineRequest
// item is replaced with the tool's response (the tool's own Main output)
// on the AiTool port. depth tracks recursion across nested tool
// calls originating from the same top-level node invocation.
func (r *EngineRouter) Route(ctx context.Context, execID string, wfHandle *wf.Workflow, result wf.ExecutionDataMap, depth int) (wf.ExecutionDataMap, error) {
	requests, ok := result[wf.PortEngineRequest]
	if !ok {
		return result, nil
	}
	if depth >= r.MaxDepth {
		return nil, fmt.Errorf("router: max tool-call recursion depth (%d) exceeded", r.MaxDepth)
	}

	out := make(wf.ExecutionDataMap, len(result))
	for k, v := range result {
		if k != wf.PortEngineRequest {
			out[k] = v
		}
	}

	var toolOutputs []wf.ExecutionData
	for _, batch := range requests {
		for _, item := range batch.Items {
			resp, err := r.dispatchOne(ctx, execID, wfHandle, item.JSON, depth)
			if err != nil {
				return nil, err
			}
			toolOutputs = append(toolOutputs, wf.ExecutionData{JSON: resp})
		}
	}
	if len(toolOutputs) > 0 {
		out[wf.PortAiTool] = append(out[wf.PortAiTool], wf.ExecutionDataItems{Items: toolOutputs})
	}
	return out, nil
}

func (r *EngineRouter) dispatchOne(ctx context.Context, execID string, wfHandle *wf.Workflow, request value.Value, depth int) (value.Value, error) {
	toolNameV, ok := request.Get("tool_name")
	if !ok || toolNameV.Kind() != value.KindString {
		return value.Null(), fmt.Errorf("router: engine request missing tool_name")
	}
	toolName := toolNameV.AsString()
	argsV, _ := request.Get("arguments")

	exec, err := r.Registry.Resolve(wf.NodeKind(toolName), nil)
	if err != nil {
		return value.Null(), err
	}

	synthetic := &wf.Workflow{ID: wfHandle.ID, Nodes: []wf.WorkflowNode{{
		Name: toolName, Kind: wf.NodeKind(toolName), Parameters: value.NewObject(),
	}}}

	nctx := &node.NodeExecutionContext{
		ExecutionID: execID,
		Workflow:    synthetic,
		NodeName:    toolName,
		Input:       wf.SingleMain(argsV),
		Registry:    r.Registry,
	}

	resultMap, err := exec.Execute(ctx, nctx)
	if err != nil {
		return value.Null(), err
	}

	routed, err := r.Route(ctx, execID, wfHandle, resultMap, depth+1)
	if err != nil {
		return value.Null(), err
	}
	main := routed.Main()
	if len(main) == 1 {
		return main[0], nil
	}
	return value.Array(main...), nil
}
