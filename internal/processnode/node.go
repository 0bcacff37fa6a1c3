// Package processnode implements the "run_process" node kind: a
// workflow node that spawns an external OS process through the process
// supervisor (C11) and blocks until it finishes or the node's own
// timeout parameter elapses, surfacing the exit code on its Main
// output.
//
// Grounded on the teacher's builtin node style (pkg/executor/builtin):
// a NodeDefinition with typed Properties, parameters read through
// NodeExecutionContext's typed getters, a single Main output batch.
package processnode

import (
	"context"
	"fmt"
	"time"

	"github.com/flowmesh/engine/pkg/node"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

// Kind is this node's registered NodeKind.
const Kind wf.NodeKind = "run_process"

// Node implements node.NodeExecutable for run_process.
type Node struct{}

// New is the node.Factory for Kind.
func New() node.NodeExecutable { return Node{} }

func (Node) Definition() wf.NodeDefinition {
	return wf.NodeDefinition{
		Kind:        Kind,
		Version:     wf.Version{Major: 1},
		Groups:      []string{"process"},
		DisplayName: "Run Process",
		Description: "Spawns an external OS process and waits for it to finish.",
		Inputs:      []wf.PortConfig{{Kind: wf.PortMain}},
		Outputs:     []wf.PortConfig{{Kind: wf.PortMain}},
		Properties: []wf.PropertySpec{
			{Name: "command", DisplayName: "Command", Kind: wf.PropertyString, Required: true},
			{Name: "args", DisplayName: "Arguments", Kind: wf.PropertyCollection},
			{Name: "working_dir", DisplayName: "Working Directory", Kind: wf.PropertyString},
			{Name: "timeout_ms", DisplayName: "Timeout (ms)", Kind: wf.PropertyNumber, Default: value.Number(30000)},
		},
	}
}

func (Node) Execute(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
	if nctx.Process == nil {
		return nil, fmt.Errorf("run_process: no process supervisor configured for this engine")
	}
	cmd, err := nctx.RequireString("command")
	if err != nil {
		return nil, err
	}
	args := stringArgs(nctx)
	workingDir := nctx.GetStringDefault("working_dir", "")
	timeoutMs := nctx.GetNumberDefault("timeout_ms", 30000)

	instanceID := fmt.Sprintf("%s/%s", nctx.ExecutionID, nctx.NodeName)
	if _, err := nctx.Process.SpawnProcess(ctx, instanceID, cmd, args, workingDir, nil); err != nil {
		return nil, fmt.Errorf("run_process: spawn: %w", err)
	}

	status, exitCode, err := pollUntilDone(ctx, nctx.Process, instanceID, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("run_process: %w", err)
	}

	out := value.NewObject().Set("status", value.String(status))
	if exitCode != nil {
		out = out.Set("exit_code", value.Number(float64(*exitCode)))
	}
	return wf.SingleMain(out), nil
}

// pollUntilDone polls GetProcessInfo until instanceID leaves Running,
// killing it if timeout elapses first. There is no blocking wait
// primitive on the narrow ProcessSupervisor interface, so the node
// polls the way the supervisor's own cleanup loop does (spec §4.3),
// just at a tighter interval suited to one caller waiting synchronously.
func pollUntilDone(ctx context.Context, sup node.ProcessSupervisor, instanceID string, timeout time.Duration) (string, *int, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		status, exitCode, found := sup.GetProcessInfo(instanceID)
		if !found {
			return "", nil, fmt.Errorf("process disappeared before reaching a terminal state")
		}
		if status != "Running" {
			return status, exitCode, nil
		}
		if time.Now().After(deadline) {
			_, _ = sup.KillProcess(ctx, instanceID)
			return "Killed", nil, fmt.Errorf("timed out after %s", timeout)
		}
		select {
		case <-ctx.Done():
			_, _ = sup.KillProcess(ctx, instanceID)
			return "", nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func stringArgs(nctx *node.NodeExecutionContext) []string {
	v, ok := nctx.GetParameter("args")
	if !ok || v.Kind() != value.KindArray {
		return nil
	}
	items := v.AsArray()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Kind() == value.KindString {
			out = append(out, item.AsString())
		}
	}
	return out
}

var _ node.NodeExecutable = Node{}
