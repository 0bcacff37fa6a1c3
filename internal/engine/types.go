// Package engine implements the central workflow engine (C9): building the
// execution graph, planning waves, executing each wave concurrently,
// collecting parent outputs into child inputs, the memory-injection
// pre-call hook, pause/resume/cancel, and checkpointing at group
// boundaries.
//
// Grounded on the teacher's internal/application/engine package:
// dag_executor.go (Execute, executeWave, executeNode, shouldExecuteNode,
// semaphore-bounded goroutine fan-out) and execution_manager.go
// (ExecutionManager.Execute lifecycle, buildNodeExecutions, findLeafNodes).
// The teacher does not implement pause/resume/cancel at this layer
// (ops_executions.go's CancelExecution returns NotImplementedError); that
// part of this package has no literal teacher precedent and is built from
// spec.md's prose description of a cooperative flag checked at group
// boundaries (see DESIGN.md, Open Question resolutions).
package engine

import (
	"sync"
	"time"

	"github.com/flowmesh/engine/pkg/wf"
)

// ExecutionOptions configures one execute_workflow call, mirroring the
// teacher's ExecutionOptions struct.
type ExecutionOptions struct {
	// MaxParallelism caps concurrent node launches within a wave; 0 means
	// unlimited (bounded only by the wave's size).
	MaxParallelism int

	// FailFast stops scheduling further groups as soon as any node in the
	// current group fails, instead of continuing independent branches.
	FailFast bool

	// HistoryDefault is the history_count used by the memory-injection hook
	// when the triggering item omits it (spec §4.1: "default 10").
	HistoryDefault int
}

// DefaultExecutionOptions mirrors the teacher's DefaultExecutionOptions.
func DefaultExecutionOptions() ExecutionOptions {
	return ExecutionOptions{
		MaxParallelism: 0,
		FailFast:       false,
		HistoryDefault: 10,
	}
}

// executionState is the per-run, RWMutex-guarded bookkeeping the engine
// keeps while a workflow is in flight, grounded on the teacher's
// ExecutionState (backend/.../engine/types.go): parallel maps keyed by
// node name, each with a thread-safe getter/setter pair.
type executionState struct {
	mu         sync.RWMutex
	status     map[string]wf.NodeStatus
	outputs    map[string]wf.ExecutionDataMap
	errs       map[string]error
	startTimes map[string]time.Time
	endTimes   map[string]time.Time
	order      []string // node names in completion order, for get_execution_trace
}

func newExecutionState() *executionState {
	return &executionState{
		status:     make(map[string]wf.NodeStatus),
		outputs:    make(map[string]wf.ExecutionDataMap),
		errs:       make(map[string]error),
		startTimes: make(map[string]time.Time),
		endTimes:   make(map[string]time.Time),
	}
}

func (s *executionState) SetStart(node string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTimes[node] = t
}

func (s *executionState) Complete(node string, status wf.NodeStatus, out wf.ExecutionDataMap, err error, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[node] = status
	s.outputs[node] = out
	s.errs[node] = err
	s.endTimes[node] = t
	s.order = append(s.order, node)
}

func (s *executionState) Status(node string) (wf.NodeStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.status[node]
	return st, ok
}

func (s *executionState) Output(node string) wf.ExecutionDataMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputs[node]
}

// Completed reports whether node has been processed (Success, Failed,
// Skipped, Cancelled, or TimedOut), which is all the planner's Ready needs
// to know to unblock a child — it does not imply the child will actually
// run (that's shouldExecuteNode's job).
func (s *executionState) Completed(node string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.status[node]
	return ok
}

func (s *executionState) CompletedSet() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.status))
	for n := range s.status {
		out[n] = true
	}
	return out
}

// Results builds the NodeExecutionResult map returned in ExecutionResult.
func (s *executionState) Results() map[string]wf.NodeExecutionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]wf.NodeExecutionResult, len(s.status))
	for node, status := range s.status {
		var durMs int64
		if start, ok := s.startTimes[node]; ok {
			if end, ok := s.endTimes[node]; ok {
				durMs = end.Sub(start).Milliseconds()
			}
		}
		out[node] = wf.NodeExecutionResult{
			NodeName:   node,
			Status:     status,
			DurationMs: durMs,
			OutputData: s.outputs[node],
			Error:      s.errs[node],
		}
	}
	return out
}

// Order returns node names in the order they completed, for
// get_execution_trace.
func (s *executionState) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *executionState) AnyFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.status {
		if st == wf.NodeFailed {
			return true
		}
	}
	return false
}

// runFlags carries the cooperative pause/cancel flags for one in-flight
// execution, polled at group boundaries (spec §4.1's cancellation
// semantics: "effective at next node-completion boundary").
type runFlags struct {
	mu        sync.Mutex
	paused    bool
	cancelled bool
}

func (f *runFlags) Pause()      { f.mu.Lock(); f.paused = true; f.mu.Unlock() }
func (f *runFlags) Resume()     { f.mu.Lock(); f.paused = false; f.mu.Unlock() }
func (f *runFlags) Cancel()     { f.mu.Lock(); f.cancelled = true; f.mu.Unlock() }
func (f *runFlags) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}
func (f *runFlags) IsCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// run is the engine's handle on one in-flight or finished execution,
// returned to callers only through the narrow getter methods on Engine.
type run struct {
	id         string
	workflow   *wf.Workflow
	state      *executionState
	flags      *runFlags
	startedAt  time.Time
	finishedAt time.Time
	status     wf.ExecutionStatus
	statusMu   sync.RWMutex
}

func (r *run) SetStatus(s wf.ExecutionStatus) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	r.status = s
}

func (r *run) Status() wf.ExecutionStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}
