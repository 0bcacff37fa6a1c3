package engine

import (
	"time"

	"github.com/flowmesh/engine/pkg/fmexpr"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

// buildEvaluate returns the NodeExecutionContext.Evaluate closure for one
// node invocation: a fresh fmexpr.Env is constructed per call from the
// input the caller passes in, so it carries no mutable state across
// concurrent node invocations (spec §4.1-ctx).
func (e *Engine) buildEvaluate(r *run, w *wf.Workflow) func(string, wf.ExecutionDataMap) (value.Value, error) {
	workflowVal := value.NewObject().Set("id", value.String(w.ID)).Set("name", value.String(w.Name))
	executionVal := value.NewObject().Set("id", value.String(r.id))

	return func(expr string, input wf.ExecutionDataMap) (value.Value, error) {
		mainVals := input.Main()
		jsonVal := value.Null()
		if len(mainVals) > 0 {
			jsonVal = mainVals[0]
		}
		env := &fmexpr.Env{
			JSON: jsonVal,
			Now:  e.Now,
			Today: func() time.Time {
				t := e.Now()
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
			},
			Workflow:  workflowVal,
			Execution: executionVal,
			EnvVars:   e.Env,
			Vars:      w.Variables,
			Input:     fmexpr.SliceInput(mainVals),
			NodeOutput: func(name string) ([]value.Value, error) {
				if _, ok := r.state.Status(name); !ok {
					return nil, wf.NewWorkflowExecutionError(w.ID, wf.ErrNodeNotFound, name)
				}
				return r.state.Output(name).Main(), nil
			},
		}
		return fmexpr.Evaluate(expr, env)
	}
}
