package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flowmesh/engine/internal/graph"
	"github.com/flowmesh/engine/internal/memory"
	"github.com/flowmesh/engine/internal/metrics"
	"github.com/flowmesh/engine/internal/planner"
	"github.com/flowmesh/engine/internal/router"
	"github.com/flowmesh/engine/internal/store"
	"github.com/flowmesh/engine/pkg/node"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

// Engine is the central workflow scheduler (C9): it owns a node registry
// and wires together the graph builder, planner, router, and the optional
// memory/metrics/store collaborators, grounded on the teacher's
// DAGExecutor + ExecutionManager pair, collapsed into one type since this
// module has no separate "observer manager" layer to delegate to.
type Engine struct {
	Registry   *node.Registry
	Conditions *router.ConditionCache
	Router     *router.EngineRouter
	Memory     *memory.Supplier
	Metrics    *metrics.Collector
	Store      store.ExecutionStore
	Env        map[string]string
	Binary     node.BinaryManager
	Process    node.ProcessSupervisor
	Now        func() time.Time
	Tenant     string
	Options    ExecutionOptions
	Log        zerolog.Logger

	mu   sync.RWMutex
	runs map[string]*run
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithMemory(s *memory.Supplier) Option        { return func(e *Engine) { e.Memory = s } }
func WithMetrics(c *metrics.Collector) Option     { return func(e *Engine) { e.Metrics = c } }
func WithStore(s store.ExecutionStore) Option     { return func(e *Engine) { e.Store = s } }
func WithBinary(b node.BinaryManager) Option      { return func(e *Engine) { e.Binary = b } }
func WithProcess(p node.ProcessSupervisor) Option { return func(e *Engine) { e.Process = p } }
func WithEnv(env map[string]string) Option        { return func(e *Engine) { e.Env = env } }
func WithTenant(t string) Option                  { return func(e *Engine) { e.Tenant = t } }
func WithOptions(o ExecutionOptions) Option        { return func(e *Engine) { e.Options = o } }
func WithLogger(l zerolog.Logger) Option          { return func(e *Engine) { e.Log = l } }

// New builds an Engine bound to reg. The condition cache and engine router
// are always constructed; every other collaborator is optional and left
// nil unless supplied via an Option.
func New(reg *node.Registry, opts ...Option) *Engine {
	e := &Engine{
		Registry:   reg,
		Conditions: router.NewConditionCache(0),
		Options:    DefaultExecutionOptions(),
		Now:        time.Now,
		Log:        zerolog.Nop(),
		runs:       make(map[string]*run),
	}
	e.Router = router.New(reg)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs trigger against w to completion (or until cancelled),
// implementing spec §4.1's six-step algorithm.
func (e *Engine) Execute(ctx context.Context, w *wf.Workflow, trigger wf.WorkflowTriggerData) (*wf.ExecutionResult, error) {
	if err := w.Validate(); err != nil {
		return nil, wf.NewWorkflowExecutionError(w.ID, wf.ErrConfiguration, err.Error())
	}
	for _, n := range w.Nodes {
		if !e.Registry.Has(n.Kind) {
			return nil, wf.NewWorkflowExecutionError(w.ID, wf.ErrUnknownNodeKind, string(n.Kind))
		}
	}

	g, err := graph.Build(w)
	if err != nil {
		return nil, err
	}
	plan := planner.Optimize(planner.Build(g))

	triggerNode := trigger.NodeName
	if triggerNode == "" || g.Nodes[triggerNode] == nil {
		return nil, wf.NewWorkflowExecutionError(w.ID, wf.ErrNodeNotFound, "trigger node "+triggerNode)
	}

	r := &run{
		id:        uuid.Must(uuid.NewV7()).String(),
		workflow:  w,
		state:     newExecutionState(),
		flags:     &runFlags{},
		startedAt: e.Now(),
	}
	r.SetStatus(wf.ExecutionRunning)

	e.mu.Lock()
	e.runs[r.id] = r
	e.mu.Unlock()

	seed := e.seedTriggerData(trigger)
	r.state.Complete(triggerNode, wf.NodeSuccess, seed, nil, r.startedAt)

	if e.Store != nil {
		_ = e.Store.CreateExecution(ctx, &store.ExecutionRecord{
			ID: r.id, WorkflowID: w.ID, Status: wf.ExecutionRunning,
			StartedAt: &r.startedAt, Mode: "normal", TriggerType: trigger.Kind,
		})
	}
	e.emit(metrics.Event{Type: metrics.EventExecutionStarted, ExecutionID: r.id, WorkflowID: w.ID, Timestamp: r.startedAt})

	evaluate := e.buildEvaluate(r, w)

	for waveIdx, group := range plan.Groups {
		if e.waitForResumeOrCancel(ctx, r) {
			r.SetStatus(wf.ExecutionCancelled)
			break
		}

		toRun := readyToRun(group, r.state)
		if len(toRun) > 0 {
			e.runWave(ctx, r, g, w, evaluate, waveIdx, toRun)
		}
		e.checkpoint(ctx, r, plan, waveIdx)

		if e.Options.FailFast && r.state.AnyFailed() {
			break
		}
	}

	finishedAt := e.Now()
	r.finishedAt = finishedAt
	final := wf.ExecutionSuccess
	switch {
	case r.Status() == wf.ExecutionCancelled:
		final = wf.ExecutionCancelled
	case r.state.AnyFailed():
		final = wf.ExecutionFailed
	}
	r.SetStatus(final)

	if e.Store != nil {
		_ = e.Store.UpdateExecution(ctx, &store.ExecutionRecord{
			ID: r.id, WorkflowID: w.ID, Status: final,
			StartedAt: &r.startedAt, FinishedAt: &finishedAt,
			Mode: "normal", TriggerType: trigger.Kind,
		})
	}
	completionEvt := metrics.EventExecutionCompleted
	if final == wf.ExecutionFailed {
		completionEvt = metrics.EventExecutionFailed
	}
	e.emit(metrics.Event{Type: completionEvt, ExecutionID: r.id, WorkflowID: w.ID, Timestamp: finishedAt,
		DurationMs: finishedAt.Sub(r.startedAt).Milliseconds()})

	return &wf.ExecutionResult{
		ExecutionID: r.id,
		Status:      final,
		NodeResults: r.state.Results(),
		EndNodes:    collectEndNodes(g, r.state),
		DurationMs:  finishedAt.Sub(r.startedAt).Milliseconds(),
	}, nil
}

func (e *Engine) seedTriggerData(trigger wf.WorkflowTriggerData) wf.ExecutionDataMap {
	if trigger.Kind == wf.TriggerError {
		return wf.SingleMain(trigger.ErrorData)
	}
	return wf.SingleMain(trigger.ExecutionData)
}

// readyToRun filters group down to nodes not already completed (the
// trigger node was seeded directly, before the loop started).
func readyToRun(group []string, state *executionState) []string {
	var out []string
	for _, n := range group {
		if !state.Completed(n) {
			out = append(out, n)
		}
	}
	return out
}

func collectEndNodes(g *graph.Graph, state *executionState) []string {
	var out []string
	for _, n := range g.NodeNames() {
		if st, ok := state.Status(n); ok && st == wf.NodeSuccess && isEndNode(g, state, n) {
			out = append(out, n)
		}
	}
	return out
}

// waitForResumeOrCancel blocks at a group boundary while the run is
// paused, per spec's cooperative pause/cancel semantics ("effective at
// next node-completion boundary"). It returns true if the run should stop
// (cancelled, or the caller's ctx was cancelled while paused).
func (e *Engine) waitForResumeOrCancel(ctx context.Context, r *run) bool {
	for {
		if r.flags.IsCancelled() {
			return true
		}
		if !r.flags.IsPaused() {
			return false
		}
		select {
		case <-ctx.Done():
			return true
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// evaluateFunc is the shape bridged into every node's NodeExecutionContext.
type evaluateFunc = func(expr string, input wf.ExecutionDataMap) (value.Value, error)

// runWave launches every node in nodes concurrently, bounded by
// Options.MaxParallelism, mirroring the teacher's executeWave semaphore
// pattern, and waits for all of them to finish before returning.
func (e *Engine) runWave(ctx context.Context, r *run, g *graph.Graph, w *wf.Workflow, evaluate evaluateFunc, waveIdx int, nodes []string) {
	waveStart := e.Now()
	e.emit(metrics.Event{Type: metrics.EventWaveStarted, ExecutionID: r.id, WorkflowID: w.ID, Timestamp: waveStart, WaveIndex: waveIdx, NodeCount: len(nodes)})
	finishWave := func(error) {}
	if e.Metrics != nil {
		_, finishWave = e.Metrics.SpanWave(ctx, r.id, waveIdx, len(nodes))
	}
	defer finishWave(nil)

	limit := e.Options.MaxParallelism
	if limit <= 0 {
		limit = len(nodes)
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for _, n := range nodes {
		n := n
		if !shouldExecuteNode(g, e.Conditions, r.state, n) {
			now := e.Now()
			r.state.SetStart(n, now)
			r.state.Complete(n, wf.NodeSkipped, wf.ExecutionDataMap{}, nil, now)
			e.emit(metrics.Event{Type: metrics.EventNodeSkipped, ExecutionID: r.id, WorkflowID: w.ID, NodeName: n, Timestamp: now})
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.executeNode(ctx, r, g, w, evaluate, n)
		}()
	}
	wg.Wait()

	waveEnd := e.Now()
	e.emit(metrics.Event{Type: metrics.EventWaveCompleted, ExecutionID: r.id, WorkflowID: w.ID, Timestamp: waveEnd,
		WaveIndex: waveIdx, NodeCount: len(nodes), DurationMs: waveEnd.Sub(waveStart).Milliseconds()})
}

// executeNode runs one node to completion: collect inputs, apply the
// memory-injection hook when applicable, resolve and invoke the
// NodeExecutable, route any EngineRequest outputs, and record the result
// (spec §4.1 step 5).
func (e *Engine) executeNode(ctx context.Context, r *run, g *graph.Graph, w *wf.Workflow, evaluate evaluateFunc, nodeName string) {
	start := e.Now()
	r.state.SetStart(nodeName, start)
	e.emit(metrics.Event{Type: metrics.EventNodeStarted, ExecutionID: r.id, WorkflowID: w.ID, NodeName: nodeName, Timestamp: start})

	wn := g.Nodes[nodeName]
	input := collectInputs(g, r.state, nodeName)
	if e.Registry.IsLLMSupplier(wn.Kind) {
		input = e.applyMemoryInjection(w.ID, input, e.Options.HistoryDefault)
	}

	var spanCtx context.Context
	var finishSpan func(error)
	if e.Metrics != nil {
		spanCtx, finishSpan = e.Metrics.SpanNode(ctx, r.id, nodeName)
	} else {
		spanCtx, finishSpan = ctx, func(error) {}
	}

	exec, err := e.Registry.Resolve(wn.Kind, wn.Version)
	var out wf.ExecutionDataMap
	if err == nil {
		nctx := &node.NodeExecutionContext{
			ExecutionID: r.id,
			Workflow:    w,
			NodeName:    nodeName,
			Input:       input,
			Env:         e.Env,
			Binary:      e.Binary,
			Process:     e.Process,
			Registry:    e.Registry,
			Evaluate:    evaluate,
		}
		out, err = exec.Execute(spanCtx, nctx)
		if err == nil {
			out, err = e.Router.Route(spanCtx, r.id, w, out, 0)
		}
	}
	finishSpan(err)
	end := e.Now()

	if err != nil {
		nodeErr := wf.NewNodeExecutionError(w.ID, nodeName, wf.ErrNodeExecutionFailed, err.Error())
		r.state.Complete(nodeName, wf.NodeFailed, wf.ExecutionDataMap{}, nodeErr, end)
		e.emit(metrics.Event{Type: metrics.EventNodeFailed, ExecutionID: r.id, WorkflowID: w.ID, NodeName: nodeName,
			Timestamp: end, DurationMs: end.Sub(start).Milliseconds(), Err: nodeErr, ErrMessage: nodeErr.Error()})
		return
	}
	r.state.Complete(nodeName, wf.NodeSuccess, out, nil, end)
	e.emit(metrics.Event{Type: metrics.EventNodeCompleted, ExecutionID: r.id, WorkflowID: w.ID, NodeName: nodeName,
		Timestamp: end, DurationMs: end.Sub(start).Milliseconds()})
}

func (e *Engine) emit(evt metrics.Event) {
	if e.Metrics != nil {
		e.Metrics.Record(evt)
	}
}

// checkpoint persists a group-boundary snapshot (spec §6: "the engine
// saves one whenever it emits a group boundary").
func (e *Engine) checkpoint(ctx context.Context, r *run, plan *planner.Plan, waveIdx int) {
	if e.Store == nil {
		return
	}
	completed := r.state.CompletedSet()
	var completedNames, currentNames []string
	for n := range completed {
		completedNames = append(completedNames, n)
	}
	if waveIdx+1 < len(plan.Groups) {
		currentNames = plan.Groups[waveIdx+1]
	}
	_ = e.Store.SaveCheckpoint(ctx, &store.Checkpoint{
		ExecutionID:    r.id,
		Timestamp:      e.Now(),
		ExecutionState: string(r.Status()),
		CompletedNodes: completedNames,
		CurrentNodes:   currentNames,
	})
}
