package engine

import (
	"context"

	"github.com/flowmesh/engine/internal/metrics"
	"github.com/flowmesh/engine/internal/store"
	"github.com/flowmesh/engine/pkg/wf"
)

// ExecutionSummary is the read-only projection get_execution_status
// returns: enough to report progress without exposing the engine's
// internal run bookkeeping.
type ExecutionSummary struct {
	ExecutionID string
	WorkflowID  string
	Status      wf.ExecutionStatus
	NodeResults map[string]wf.NodeExecutionResult
}

func (e *Engine) lookup(executionID string) (*run, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.runs[executionID]
	return r, ok
}

// PauseExecution sets the cooperative pause flag; it takes effect at the
// next group boundary, letting in-flight nodes finish (spec §4.1).
func (e *Engine) PauseExecution(executionID string) error {
	r, ok := e.lookup(executionID)
	if !ok {
		return &store.NotFoundError{Kind: "execution", ID: executionID}
	}
	r.flags.Pause()
	r.SetStatus(wf.ExecutionPaused)
	return nil
}

// ResumeExecution clears the pause flag.
func (e *Engine) ResumeExecution(executionID string) error {
	r, ok := e.lookup(executionID)
	if !ok {
		return &store.NotFoundError{Kind: "execution", ID: executionID}
	}
	r.flags.Resume()
	r.SetStatus(wf.ExecutionRunning)
	return nil
}

// CancelExecution sets the cooperative cancel flag; the engine stops
// scheduling further groups once the current one completes.
func (e *Engine) CancelExecution(executionID string) error {
	r, ok := e.lookup(executionID)
	if !ok {
		return &store.NotFoundError{Kind: "execution", ID: executionID}
	}
	r.flags.Cancel()
	return nil
}

// GetExecutionStatus is the read-only status query (spec §4.1).
func (e *Engine) GetExecutionStatus(executionID string) (*ExecutionSummary, error) {
	r, ok := e.lookup(executionID)
	if !ok {
		return nil, &store.NotFoundError{Kind: "execution", ID: executionID}
	}
	return &ExecutionSummary{
		ExecutionID: r.id,
		WorkflowID:  r.workflow.ID,
		Status:      r.Status(),
		NodeResults: r.state.Results(),
	}, nil
}

// GetExecutionMetrics returns the collector's counters for executionID, or
// a zero value if metrics are not wired.
func (e *Engine) GetExecutionMetrics(executionID string) metrics.Counters {
	if e.Metrics == nil {
		return metrics.Counters{}
	}
	return e.Metrics.Counters(executionID)
}

// ExecutionTraceEntry is one node's recorded outcome, in the order the
// engine completed it.
type ExecutionTraceEntry struct {
	NodeName string
	Result   wf.NodeExecutionResult
}

// GetExecutionTrace returns node results in completion order, for replay
// and debugging UIs (spec §4.1's get_execution_trace).
func (e *Engine) GetExecutionTrace(executionID string) ([]ExecutionTraceEntry, error) {
	r, ok := e.lookup(executionID)
	if !ok {
		return nil, &store.NotFoundError{Kind: "execution", ID: executionID}
	}
	order := r.state.Order()
	results := r.state.Results()
	out := make([]ExecutionTraceEntry, 0, len(order))
	for _, n := range order {
		out = append(out, ExecutionTraceEntry{NodeName: n, Result: results[n]})
	}
	return out, nil
}

// ListActiveExecutions reports every execution this Engine instance has
// in flight (SPEC_FULL §4.1, supplemented per original_source's supervisor
// dashboard use). It is scoped to process memory, distinct from
// ExecutionStore.ListActiveExecutions which can see persisted history
// across process restarts.
func (e *Engine) ListActiveExecutions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []string
	for id, r := range e.runs {
		if !r.Status().Terminal() {
			out = append(out, id)
		}
	}
	return out
}

// GetExecutionHistory delegates to the execution store for persisted runs
// of workflowID, when one is configured (SPEC_FULL §4.1).
func (e *Engine) GetExecutionHistory(ctx context.Context, workflowID string) ([]*store.ExecutionRecord, error) {
	if e.Store == nil {
		return nil, nil
	}
	return e.Store.ListExecutionsByWorkflow(ctx, workflowID)
}
