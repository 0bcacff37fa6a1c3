package wf

import (
	"fmt"
	"time"

	"github.com/flowmesh/engine/pkg/value"
)

// PortKind is a closed enumeration of the typed channels the engine
// recognizes opaquely, plus the handful it treats specially.
type PortKind string

const (
	PortMain            PortKind = "Main"
	PortAiLM            PortKind = "AiLM"
	PortAiMemory        PortKind = "AiMemory"
	PortAiTool          PortKind = "AiTool"
	PortAiLanguageModel PortKind = "AiLanguageModel"
	PortEngineRequest   PortKind = "EngineRequest"
)

// NodeKind identifies a node's registered behavior (e.g. "http", "llm",
// "conditional"); it is resolved through pkg/node.Registry.
type NodeKind string

// Version is a minimal semver-shaped version, used for node-kind
// resolution (SPEC_FULL §3.1). See DESIGN.md for why this isn't
// Masterminds/semver.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, 1 comparing v to other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	default:
		return sign(v.Patch - other.Patch)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// PropertyKind enumerates the configuration-UI-facing property types.
type PropertyKind string

const (
	PropertyString     PropertyKind = "String"
	PropertyNumber     PropertyKind = "Number"
	PropertyBoolean    PropertyKind = "Boolean"
	PropertyOptions    PropertyKind = "Options"
	PropertyCollection PropertyKind = "Collection"
)

// PropertySpec declares one configurable parameter of a node kind.
type PropertySpec struct {
	Name        string
	DisplayName string
	Kind        PropertyKind
	Required    bool
	Default     value.Value
	Options     []string
}

// PortConfig declares one input or output port a node kind exposes.
type PortConfig struct {
	Kind        PortKind
	DisplayName string
	Required    bool
}

// NodeDefinition is the static description of a node kind, returned by
// NodeExecutable.Definition().
type NodeDefinition struct {
	Kind        NodeKind
	Version     Version
	Groups      []string
	DisplayName string
	Description string
	Inputs      []PortConfig
	Outputs     []PortConfig
	Properties  []PropertySpec
}

// WorkflowNode is one node instance within a Workflow.
type WorkflowNode struct {
	Name        string
	Kind        NodeKind
	Version     *Version
	DisplayName string
	Parameters  value.Value // must be KindObject
	Disabled    bool
}

// Connection names one edge from a source node's output port to a target
// node's input port and index.
type Connection struct {
	TargetNode  string
	TargetPort  PortKind
	TargetIndex int
	Condition   string // optional boolean expression gating this connection
}

// Workflow is the in-memory definition the engine accepts; serialization to
// a persisted document is the caller's responsibility (spec §6).
type Workflow struct {
	ID          string
	Name        string
	Status      WorkflowStatus
	Nodes       []WorkflowNode
	// Connections maps source node name -> output port kind -> ordered connections.
	Connections map[string]map[PortKind][]Connection
	Variables   map[string]value.Value
}

type WorkflowStatus string

const (
	WorkflowActive   WorkflowStatus = "Active"
	WorkflowInactive WorkflowStatus = "Inactive"
)

// GetNode returns the node with the given name, or nil.
func (w *Workflow) GetNode(name string) *WorkflowNode {
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			return &w.Nodes[i]
		}
	}
	return nil
}

// Validate checks structural invariants independent of graph cycles
// (cycle detection lives in internal/graph, which consumes this Workflow).
func (w *Workflow) Validate() error {
	if w.ID == "" {
		return &ValidationError{Field: "id", Message: "workflow id is required"}
	}
	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.Name == "" {
			return &ValidationError{Field: "name", Message: "node name is required"}
		}
		if seen[n.Name] {
			return &ValidationError{Field: "name", Message: fmt.Sprintf("duplicate node name %q", n.Name)}
		}
		seen[n.Name] = true
		if n.Kind == "" {
			return &ValidationError{Field: "kind", Message: fmt.Sprintf("node %q missing kind", n.Name)}
		}
	}
	for source, byPort := range w.Connections {
		if !seen[source] {
			return &ValidationError{Field: "connections", Message: fmt.Sprintf("connection source %q is not a node", source)}
		}
		for _, conns := range byPort {
			for _, c := range conns {
				if !seen[c.TargetNode] {
					return &ValidationError{Field: "connections", Message: fmt.Sprintf("connection target %q is not a node", c.TargetNode)}
				}
			}
		}
	}
	return nil
}

// DataSource records the lineage of one ExecutionData item.
type DataSource struct {
	NodeName    string
	PortKind    PortKind
	OutputIndex int
}

// ExecutionData is one item flowing through a port.
type ExecutionData struct {
	JSON   value.Value
	Binary *value.BinaryRef
	Source *DataSource
}

// ExecutionDataItems is a finite, ordered, non-lazy sequence of ExecutionData.
type ExecutionDataItems struct {
	Items []ExecutionData
}

// ExecutionDataMap maps a port kind to an ordered list of item batches,
// indexed by connection output-index.
type ExecutionDataMap map[PortKind][]ExecutionDataItems

// Main returns the JSON values of the first Main-port batch, a convenience
// used heavily by simple nodes.
func (m ExecutionDataMap) Main() []value.Value {
	batches, ok := m[PortMain]
	if !ok || len(batches) == 0 {
		return nil
	}
	out := make([]value.Value, len(batches[0].Items))
	for i, it := range batches[0].Items {
		out[i] = it.JSON
	}
	return out
}

// SingleMain builds an ExecutionDataMap with one Main batch containing one item.
func SingleMain(v value.Value) ExecutionDataMap {
	return ExecutionDataMap{
		PortMain: {{Items: []ExecutionData{{JSON: v}}}},
	}
}

// NodeStatus enumerates the terminal (and in-flight) states of a node result.
type NodeStatus string

const (
	NodeSuccess   NodeStatus = "Success"
	NodeFailed    NodeStatus = "Failed"
	NodeSkipped   NodeStatus = "Skipped"
	NodeCancelled NodeStatus = "Cancelled"
	NodeTimedOut  NodeStatus = "TimedOut"
)

// NodeExecutionResult is immutable once created.
type NodeExecutionResult struct {
	NodeName   string
	Status     NodeStatus
	DurationMs int64
	OutputData ExecutionDataMap
	Error      error
}

// ExecutionStatus enumerates Execution lifecycle states.
type ExecutionStatus string

const (
	ExecutionPending ExecutionStatus = "Pending"
	ExecutionRunning ExecutionStatus = "Running"
	ExecutionSuccess ExecutionStatus = "Success"
	ExecutionFailed  ExecutionStatus = "Failed"
	ExecutionCancelled ExecutionStatus = "Cancelled"
	ExecutionPaused  ExecutionStatus = "Paused"
)

func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionSuccess, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// Execution is the persisted record of one workflow run.
type Execution struct {
	ID         string
	WorkflowID string
	Status     ExecutionStatus
	StartedAt  *time.Time
	FinishedAt *time.Time
	Mode       string
	TriggerType string
}

// ExecutionResult is returned by a successful (possibly partially-failed)
// execute_workflow call.
type ExecutionResult struct {
	ExecutionID string
	Status      ExecutionStatus
	NodeResults map[string]NodeExecutionResult
	EndNodes    []string
	DurationMs  int64
}

// TriggerKind distinguishes Normal vs Error trigger envelopes.
type TriggerKind string

const (
	TriggerNormal TriggerKind = "Normal"
	TriggerError  TriggerKind = "Error"
)

// WorkflowTriggerData is the envelope that starts an execution.
type WorkflowTriggerData struct {
	Kind TriggerKind

	// Normal fields.
	NodeName      string
	ExecutionData value.Value

	// Error fields.
	ErrorData      value.Value
	ErrorWorkflowID string
}

// ErrorPayload is the conventional shape injected by error triggers and
// produced for EngineRequest failures.
type ErrorPayload struct {
	Message      string
	Kind         string
	Node         string
	Stack        string
	OriginalInput *value.Value
}

func (p ErrorPayload) ToValue() value.Value {
	errObj := value.NewObject().
		Set("message", value.String(p.Message)).
		Set("kind", value.String(p.Kind))
	if p.Node != "" {
		errObj = errObj.Set("node", value.String(p.Node))
	}
	if p.Stack != "" {
		errObj = errObj.Set("stack", value.String(p.Stack))
	}
	root := value.NewObject().Set("error", errObj)
	if p.OriginalInput != nil {
		root = root.Set("original_input", *p.OriginalInput)
	}
	return root
}
