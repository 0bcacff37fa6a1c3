// Package node defines the NodeExecutable contract concrete node kinds
// implement, the typed-parameter getters spec.md §9 mandates, and a
// version-aware registry, grounded on the teacher's pkg/executor package.
package node

import (
	"context"

	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

// NodeExecutionContext is passed to every NodeExecutable.Execute call. A
// fresh instance is built per invocation; it must not carry mutable global
// state between concurrent node invocations (spec §4.1-ctx).
type NodeExecutionContext struct {
	ExecutionID  string
	Workflow     *wf.Workflow
	NodeName     string
	Input        wf.ExecutionDataMap
	Env          map[string]string
	Binary       BinaryManager
	Registry     *Registry
	Process      ProcessSupervisor
	Evaluate     func(expr string, input wf.ExecutionDataMap) (value.Value, error)
}

// BinaryManager is the narrow interface NodeExecutionContext needs from the
// binary data manager (C12), kept here to avoid an import cycle with
// internal/binary.
type BinaryManager interface {
	Store(data []byte) (value.BinaryRef, error)
	GetData(fileKey string) ([]byte, error)
}

// ProcessSupervisor is the narrow interface NodeExecutionContext needs from
// the process supervisor (C11), kept here to avoid an import cycle with
// internal/process. Nil when the embedding engine was built without one;
// node kinds that spawn external processes must check for that.
type ProcessSupervisor interface {
	SpawnProcess(ctx context.Context, instanceID, cmd string, args []string, workingDir string, env map[string]string) (string, error)
	KillProcess(ctx context.Context, instanceID string) (string, error)
	GetProcessInfo(instanceID string) (status string, exitCode *int, found bool)
}

// CurrentNode returns the WorkflowNode this context was built for.
func (c *NodeExecutionContext) CurrentNode() *wf.WorkflowNode {
	return c.Workflow.GetNode(c.NodeName)
}

// ParamResult is the three-state outcome of reading a typed parameter:
// missing, present with the requested type, or present with the wrong type.
type ParamResult[T any] struct {
	Present bool
	Value   T
	TypeErr bool
}

// GetParameter fetches the raw Value of a named parameter, or Missing.
func (c *NodeExecutionContext) GetParameter(name string) (value.Value, bool) {
	n := c.CurrentNode()
	if n == nil || n.Parameters.Kind() != value.KindObject {
		return value.Null(), false
	}
	return n.Parameters.Get(name)
}

// GetString reads a parameter as a string with the three-state contract.
func (c *NodeExecutionContext) GetString(name string) ParamResult[string] {
	v, ok := c.GetParameter(name)
	if !ok {
		return ParamResult[string]{}
	}
	if v.Kind() != value.KindString {
		return ParamResult[string]{Present: true, TypeErr: true}
	}
	return ParamResult[string]{Present: true, Value: v.AsString()}
}

// GetStringDefault reads a string parameter, falling back to def if absent.
func (c *NodeExecutionContext) GetStringDefault(name, def string) string {
	r := c.GetString(name)
	if !r.Present || r.TypeErr {
		return def
	}
	return r.Value
}

func (c *NodeExecutionContext) GetNumber(name string) ParamResult[float64] {
	v, ok := c.GetParameter(name)
	if !ok {
		return ParamResult[float64]{}
	}
	if v.Kind() != value.KindNumber {
		return ParamResult[float64]{Present: true, TypeErr: true}
	}
	return ParamResult[float64]{Present: true, Value: v.AsNumber()}
}

func (c *NodeExecutionContext) GetNumberDefault(name string, def float64) float64 {
	r := c.GetNumber(name)
	if !r.Present || r.TypeErr {
		return def
	}
	return r.Value
}

func (c *NodeExecutionContext) GetBool(name string) ParamResult[bool] {
	v, ok := c.GetParameter(name)
	if !ok {
		return ParamResult[bool]{}
	}
	if v.Kind() != value.KindBool {
		return ParamResult[bool]{Present: true, TypeErr: true}
	}
	return ParamResult[bool]{Present: true, Value: v.AsBool()}
}

func (c *NodeExecutionContext) GetBoolDefault(name string, def bool) bool {
	r := c.GetBool(name)
	if !r.Present || r.TypeErr {
		return def
	}
	return r.Value
}

// GetObject reads an object-typed parameter.
func (c *NodeExecutionContext) GetObject(name string) ParamResult[value.Value] {
	v, ok := c.GetParameter(name)
	if !ok {
		return ParamResult[value.Value]{}
	}
	if v.Kind() != value.KindObject {
		return ParamResult[value.Value]{Present: true, TypeErr: true}
	}
	return ParamResult[value.Value]{Present: true, Value: v}
}

// RequireString reads a required string parameter, returning a
// ValidationError when missing or mistyped — the pattern nodes use to
// satisfy spec §7's ParameterValidation{field}.
func (c *NodeExecutionContext) RequireString(name string) (string, error) {
	r := c.GetString(name)
	if r.TypeErr {
		return "", &wf.ValidationError{Field: name, Message: "expected a string"}
	}
	if !r.Present {
		return "", &wf.ValidationError{Field: name, Message: "is required"}
	}
	return r.Value, nil
}

// NodeExecutable is the one interface concrete nodes implement (spec §6).
type NodeExecutable interface {
	Definition() wf.NodeDefinition
	Execute(ctx context.Context, nctx *NodeExecutionContext) (wf.ExecutionDataMap, error)
}

// NodeExecutableFunc adapts a plain function to NodeExecutable, mirroring
// the teacher's executor.ExecutorFunc, for tests and examples that don't
// need a full struct.
type NodeExecutableFunc struct {
	Def       wf.NodeDefinition
	ExecuteFn func(ctx context.Context, nctx *NodeExecutionContext) (wf.ExecutionDataMap, error)
}

func (f NodeExecutableFunc) Definition() wf.NodeDefinition { return f.Def }

func (f NodeExecutableFunc) Execute(ctx context.Context, nctx *NodeExecutionContext) (wf.ExecutionDataMap, error) {
	return f.ExecuteFn(ctx, nctx)
}

var _ NodeExecutable = NodeExecutableFunc{}
