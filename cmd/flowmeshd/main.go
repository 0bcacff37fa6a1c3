// Command flowmeshd is a standalone embedding example: it wires the
// engine's collaborators together with no REST/CLI/UI surface (those are
// external collaborators, not part of this module) and runs one workflow
// to completion, mirroring the teacher's examples/basic_usage standalone
// client style.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/flowmesh/engine/internal/applog"
	"github.com/flowmesh/engine/internal/binary"
	"github.com/flowmesh/engine/internal/engine"
	"github.com/flowmesh/engine/internal/llmnode"
	"github.com/flowmesh/engine/internal/memory"
	"github.com/flowmesh/engine/internal/metrics"
	"github.com/flowmesh/engine/internal/process"
	"github.com/flowmesh/engine/internal/processnode"
	"github.com/flowmesh/engine/internal/store"
	"github.com/flowmesh/engine/pkg/node"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

func main() {
	log := applog.New(applog.Options{Level: applog.LevelInfo, Service: "flowmeshd"})

	reg := node.NewRegistry()
	reg.Register("manual_trigger", func() node.NodeExecutable {
		return node.NodeExecutableFunc{
			Def: wf.NodeDefinition{Kind: "manual_trigger", DisplayName: "Manual Trigger"},
			ExecuteFn: func(_ context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
				return nctx.Input, nil
			},
		}
	})
	reg.Register(processnode.Kind, processnode.New)
	reg.Register(llmnode.Kind, llmnode.New)
	reg.MarkLLMSupplier(llmnode.Kind)

	sup := process.New(process.WithLogger(log))
	defer sup.Stop()

	e := engine.New(reg,
		engine.WithLogger(log),
		engine.WithMemory(memory.New(5)),
		engine.WithMetrics(metrics.NewCollector(metrics.Threshold{FailureRate: 0.5, MinSamples: 5})),
		engine.WithStore(store.NewMemoryStore()),
		engine.WithBinary(binary.NewMemoryStore()),
		engine.WithProcess(process.NodeAdapter{Supervisor: sup}),
	)

	w := &wf.Workflow{
		ID:     "demo",
		Name:   "flowmeshd demo",
		Status: wf.WorkflowActive,
		Nodes: []wf.WorkflowNode{
			{Name: "start", Kind: "manual_trigger"},
			{
				Name: "greet",
				Kind: processnode.Kind,
				Parameters: value.NewObject().
					Set("command", value.String("/bin/sh")).
					Set("args", value.ArrayFrom([]value.Value{value.String("-c"), value.String("echo hello from flowmeshd")})).
					Set("timeout_ms", value.Number(5000)),
			},
		},
		Connections: map[string]map[wf.PortKind][]wf.Connection{
			"start": {wf.PortMain: {{TargetNode: "greet", TargetPort: wf.PortMain}}},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := e.Execute(ctx, w, wf.WorkflowTriggerData{
		Kind:          wf.TriggerNormal,
		NodeName:      "start",
		ExecutionData: value.NewObject(),
	})
	if err != nil {
		log.Error().Err(err).Msg("execution failed")
		os.Exit(1)
	}

	fmt.Printf("execution %s finished with status %s in %dms\n", result.ExecutionID, result.Status, result.DurationMs)
	for name, nr := range result.NodeResults {
		fmt.Printf("  %-10s %s\n", name, nr.Status)
	}
}
