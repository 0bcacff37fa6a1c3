package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/engine/internal/memory"
	"github.com/flowmesh/engine/internal/wfyaml"
	"github.com/flowmesh/engine/pkg/node"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

func passthroughNode(kind wf.NodeKind) node.Factory {
	return func() node.NodeExecutable {
		return node.NodeExecutableFunc{
			Def: wf.NodeDefinition{Kind: kind},
			ExecuteFn: func(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
				return nctx.Input, nil
			},
		}
	}
}

func setBranchNode() node.Factory {
	return func() node.NodeExecutable {
		return node.NodeExecutableFunc{
			Def: wf.NodeDefinition{Kind: "set"},
			ExecuteFn: func(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
				branch := nctx.GetStringDefault("branch", "")
				return wf.SingleMain(value.NewObject().Set("branch", value.String(branch))), nil
			},
		}
	}
}

func countingNode(kind wf.NodeKind) node.Factory {
	return func() node.NodeExecutable {
		return node.NodeExecutableFunc{
			Def: wf.NodeDefinition{Kind: kind},
			ExecuteFn: func(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
				count := len(nctx.Input.Main())
				return wf.SingleMain(value.NewObject().Set("received", value.Number(float64(count)))), nil
			},
		}
	}
}

// diamondWorkflow mirrors the graph package's test fixture: an
// unconditioned if-node fanning out to two always-run branch nodes that
// converge on file_ops, used by scenarios S1 and S2.
func diamondWorkflow() *wf.Workflow {
	return &wf.Workflow{
		ID: "w1",
		Nodes: []wf.WorkflowNode{
			{Name: "trigger", Kind: "trigger"},
			{Name: "if", Kind: "conditional"},
			{Name: "set_true", Kind: "set", Parameters: value.NewObject().Set("branch", value.String("true_branch"))},
			{Name: "set_false", Kind: "set", Parameters: value.NewObject().Set("branch", value.String("false_branch"))},
			{Name: "file_ops", Kind: "file"},
		},
		Connections: map[string]map[wf.PortKind][]wf.Connection{
			"trigger": {wf.PortMain: {{TargetNode: "if", TargetPort: wf.PortMain}}},
			"if": {wf.PortMain: {
				{TargetNode: "set_true", TargetPort: wf.PortMain},
				{TargetNode: "set_false", TargetPort: wf.PortMain},
			}},
			"set_true":  {wf.PortMain: {{TargetNode: "file_ops", TargetPort: wf.PortMain}}},
			"set_false": {wf.PortMain: {{TargetNode: "file_ops", TargetPort: wf.PortMain}}},
		},
	}
}

func newDiamondEngine() *Engine {
	reg := node.NewRegistry()
	reg.Register("trigger", passthroughNode("trigger"))
	reg.Register("conditional", passthroughNode("conditional"))
	reg.Register("set", setBranchNode())
	reg.Register("file", countingNode("file"))
	return New(reg)
}

func runDiamond(t *testing.T, mode string) *wf.ExecutionResult {
	t.Helper()
	e := newDiamondEngine()
	w := diamondWorkflow()
	trigger := wf.WorkflowTriggerData{
		Kind:          wf.TriggerNormal,
		NodeName:      "trigger",
		ExecutionData: value.NewObject().Set("execution_mode", value.String(mode)),
	}
	result, err := e.Execute(context.Background(), w, trigger)
	require.NoError(t, err)
	return result
}

// TestScenarioS1TestMode covers spec scenario S1: execution_mode "test"
// still runs every node, since neither if->set_true nor if->set_false
// carries a Condition in this fixture.
func TestScenarioS1TestMode(t *testing.T) {
	result := runDiamond(t, "test")
	require.Equal(t, wf.ExecutionSuccess, result.Status)
	require.Len(t, result.NodeResults, 5)
	for _, name := range []string{"trigger", "if", "set_true", "set_false", "file_ops"} {
		assert.Equal(t, wf.NodeSuccess, result.NodeResults[name].Status, name)
	}
	fileOut := result.NodeResults["file_ops"].OutputData.Main()
	require.Len(t, fileOut, 1)
	received, _ := fileOut[0].Get("received")
	assert.Equal(t, float64(2), received.AsNumber())
}

// TestScenarioS2ProductionMode covers spec scenario S2: a different trigger
// payload, same all-five-nodes-execute outcome.
func TestScenarioS2ProductionMode(t *testing.T) {
	result := runDiamond(t, "production")
	require.Equal(t, wf.ExecutionSuccess, result.Status)
	for _, name := range []string{"trigger", "if", "set_true", "set_false", "file_ops"} {
		assert.Equal(t, wf.NodeSuccess, result.NodeResults[name].Status, name)
	}
}

// TestScenarioS3ConcurrentWave covers S3: two independent branches launched
// in the same wave run concurrently, not sequentially.
func TestScenarioS3ConcurrentWave(t *testing.T) {
	reg := node.NewRegistry()
	reg.Register("trigger", passthroughNode("trigger"))
	sleepNode := func(d time.Duration) node.Factory {
		return func() node.NodeExecutable {
			return node.NodeExecutableFunc{
				Def: wf.NodeDefinition{Kind: "sleep"},
				ExecuteFn: func(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
					time.Sleep(d)
					return wf.SingleMain(value.String(nctx.NodeName)), nil
				},
			}
		}
	}
	reg.RegisterVersion("sleepA", wf.Version{Major: 1}, sleepNode(100*time.Millisecond))
	reg.RegisterVersion("sleepB", wf.Version{Major: 1}, sleepNode(50*time.Millisecond))
	reg.Register("count", countingNode("count"))

	w := &wf.Workflow{
		ID: "w3",
		Nodes: []wf.WorkflowNode{
			{Name: "trigger", Kind: "trigger"},
			{Name: "A", Kind: "sleepA"},
			{Name: "B", Kind: "sleepB"},
			{Name: "C", Kind: "count"},
		},
		Connections: map[string]map[wf.PortKind][]wf.Connection{
			"trigger": {wf.PortMain: {
				{TargetNode: "A", TargetPort: wf.PortMain},
				{TargetNode: "B", TargetPort: wf.PortMain},
			}},
			"A": {wf.PortMain: {{TargetNode: "C", TargetPort: wf.PortMain}}},
			"B": {wf.PortMain: {{TargetNode: "C", TargetPort: wf.PortMain}}},
		},
	}
	e := New(reg)
	start := time.Now()
	result, err := e.Execute(context.Background(), w, wf.WorkflowTriggerData{
		Kind: wf.TriggerNormal, NodeName: "trigger", ExecutionData: value.Null(),
	})
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, wf.ExecutionSuccess, result.Status)
	assert.Less(t, elapsed, 140*time.Millisecond)

	cOut := result.NodeResults["C"].OutputData.Main()
	require.Len(t, cOut, 1)
	received, _ := cOut[0].Get("received")
	assert.Equal(t, float64(2), received.AsNumber())
}

// TestScenarioS6MemoryInjection covers S6: a registered LLM-supplier node
// receiving a session_id + history_count + prompt item gets its messages
// assembled from the memory supplier before execution.
func TestScenarioS6MemoryInjection(t *testing.T) {
	reg := node.NewRegistry()
	reg.Register("trigger", passthroughNode("trigger"))
	reg.Register("llm", func() node.NodeExecutable {
		return node.NodeExecutableFunc{
			Def: wf.NodeDefinition{Kind: "llm"},
			ExecuteFn: func(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
				return nctx.Input, nil
			},
		}
	})
	reg.MarkLLMSupplier("llm")

	supplier := memory.New(5)
	supplier.Append("", "w6", "s1", memory.Message{Role: "user", Content: "hello"})
	supplier.Append("", "w6", "s1", memory.Message{Role: "assistant", Content: "hi"})

	w := &wf.Workflow{
		ID: "w6",
		Nodes: []wf.WorkflowNode{
			{Name: "trigger", Kind: "trigger"},
			{Name: "llm", Kind: "llm"},
		},
		Connections: map[string]map[wf.PortKind][]wf.Connection{
			"trigger": {wf.PortMain: {{TargetNode: "llm", TargetPort: wf.PortMain}}},
		},
	}
	e := New(reg, WithMemory(supplier))
	item := value.NewObject().
		Set("session_id", value.String("s1")).
		Set("history_count", value.Number(2)).
		Set("prompt", value.String("how are you?"))

	result, err := e.Execute(context.Background(), w, wf.WorkflowTriggerData{
		Kind: wf.TriggerNormal, NodeName: "trigger", ExecutionData: item,
	})
	require.NoError(t, err)
	require.Equal(t, wf.ExecutionSuccess, result.Status)

	out := result.NodeResults["llm"].OutputData.Main()
	require.Len(t, out, 1)

	historyLen, ok := out[0].Get("history_length")
	require.True(t, ok)
	assert.Equal(t, float64(2), historyLen.AsNumber())

	messages, ok := out[0].Get("messages")
	require.True(t, ok)
	require.Equal(t, 3, messages.Len())

	systemPrompt, ok := out[0].Get("system_prompt")
	require.True(t, ok)
	assert.Contains(t, systemPrompt.AsString(), "[History]")
	assert.Contains(t, systemPrompt.AsString(), "hello")
}

func TestExecuteRejectsUnknownNodeKind(t *testing.T) {
	reg := node.NewRegistry()
	reg.Register("trigger", passthroughNode("trigger"))
	w := &wf.Workflow{
		ID:    "w4",
		Nodes: []wf.WorkflowNode{{Name: "trigger", Kind: "trigger"}, {Name: "ghost", Kind: "missing"}},
		Connections: map[string]map[wf.PortKind][]wf.Connection{
			"trigger": {wf.PortMain: {{TargetNode: "ghost", TargetPort: wf.PortMain}}},
		},
	}
	e := New(reg)
	_, err := e.Execute(context.Background(), w, wf.WorkflowTriggerData{Kind: wf.TriggerNormal, NodeName: "trigger"})
	require.Error(t, err)
	assert.ErrorIs(t, err, wf.ErrUnknownNodeKind)
}

func TestExecuteRejectsCycle(t *testing.T) {
	w := diamondWorkflow()
	w.Connections["file_ops"] = map[wf.PortKind][]wf.Connection{
		wf.PortMain: {{TargetNode: "trigger", TargetPort: wf.PortMain}},
	}
	e := newDiamondEngine()
	_, err := e.Execute(context.Background(), w, wf.WorkflowTriggerData{
		Kind: wf.TriggerNormal, NodeName: "trigger", ExecutionData: value.Null(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wf.ErrCircularDependency)
}

func TestExecuteIsolatesNodeFailure(t *testing.T) {
	reg := node.NewRegistry()
	reg.Register("trigger", passthroughNode("trigger"))
	reg.Register("ok", countingNode("ok"))
	reg.Register("boom", func() node.NodeExecutable {
		return node.NodeExecutableFunc{
			Def: wf.NodeDefinition{Kind: "boom"},
			ExecuteFn: func(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
				return nil, assert.AnError
			},
		}
	})
	w := &wf.Workflow{
		ID: "w5",
		Nodes: []wf.WorkflowNode{
			{Name: "trigger", Kind: "trigger"},
			{Name: "ok", Kind: "ok"},
			{Name: "boom", Kind: "boom"},
		},
		Connections: map[string]map[wf.PortKind][]wf.Connection{
			"trigger": {wf.PortMain: {
				{TargetNode: "ok", TargetPort: wf.PortMain},
				{TargetNode: "boom", TargetPort: wf.PortMain},
			}},
		},
	}
	e := New(reg)
	result, err := e.Execute(context.Background(), w, wf.WorkflowTriggerData{
		Kind: wf.TriggerNormal, NodeName: "trigger", ExecutionData: value.Null(),
	})
	require.NoError(t, err)
	assert.Equal(t, wf.ExecutionFailed, result.Status)
	assert.Equal(t, wf.NodeSuccess, result.NodeResults["ok"].Status)
	assert.Equal(t, wf.NodeFailed, result.NodeResults["boom"].Status)
}

func TestPauseResumeAndCancel(t *testing.T) {
	e := newDiamondEngine()
	require.Error(t, e.PauseExecution("missing"))
	require.Error(t, e.ResumeExecution("missing"))
	require.Error(t, e.CancelExecution("missing"))
}

func TestGetExecutionStatusAndTrace(t *testing.T) {
	e := newDiamondEngine()
	w := diamondWorkflow()
	result, err := e.Execute(context.Background(), w, wf.WorkflowTriggerData{
		Kind: wf.TriggerNormal, NodeName: "trigger",
		ExecutionData: value.NewObject().Set("execution_mode", value.String("test")),
	})
	require.NoError(t, err)

	status, err := e.GetExecutionStatus(result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, wf.ExecutionSuccess, status.Status)

	trace, err := e.GetExecutionTrace(result.ExecutionID)
	require.NoError(t, err)
	assert.Len(t, trace, 5)

	_, err = e.GetExecutionStatus("nope")
	assert.Error(t, err)
}

func TestEndNodesAreDynamicLeaves(t *testing.T) {
	result := runDiamond(t, "test")
	assert.Equal(t, []string{"file_ops"}, result.EndNodes)
}

// TestDiamondFixtureFromYAML loads testdata/diamond.yaml through wfyaml and
// runs it through the same engine the inline-built fixture uses, confirming
// the YAML round-trip produces an equivalent Workflow.
func TestDiamondFixtureFromYAML(t *testing.T) {
	data, err := os.ReadFile("testdata/diamond.yaml")
	require.NoError(t, err)

	w, err := wfyaml.Unmarshal(data)
	require.NoError(t, err)

	reg := node.NewRegistry()
	reg.Register("trigger", passthroughNode("trigger"))
	reg.Register("conditional", passthroughNode("conditional"))
	reg.Register("set", setBranchNode())
	reg.Register("file", countingNode("file"))
	e := New(reg)

	result, err := e.Execute(context.Background(), w, wf.WorkflowTriggerData{
		Kind:          wf.TriggerNormal,
		NodeName:      "trigger",
		ExecutionData: value.NewObject().Set("execution_mode", value.String("test")),
	})
	require.NoError(t, err)
	require.Equal(t, wf.ExecutionSuccess, result.Status)
	require.Len(t, result.NodeResults, 5)
	assert.Equal(t, []string{"file_ops"}, result.EndNodes)
}
