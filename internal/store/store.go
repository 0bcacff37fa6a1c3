// Package store implements the execution store (C7): persistence for
// execution records and group-boundary checkpoints (spec §6 "Persisted
// state layout").
//
// Grounded on the teacher's execution_checkpoint.go (CheckpointManager
// shape: latest-checkpoint-per-execution map) and its bun-backed
// ExecutionRepository for the Postgres implementation.
package store

import (
	"context"
	"time"

	"github.com/flowmesh/engine/pkg/wf"
)

// ExecutionRecord is the persisted row described by spec §6: "Execution
// record: {id, workflow_id, status, started_at?, finished_at?, mode,
// trigger_type}".
type ExecutionRecord struct {
	ID          string
	WorkflowID  string
	Status      wf.ExecutionStatus
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Mode        string
	TriggerType wf.TriggerKind
}

// Checkpoint is the group-boundary snapshot described by spec §6: "the
// engine saves one whenever it emits a group boundary."
type Checkpoint struct {
	ExecutionID      string
	Timestamp        time.Time
	ExecutionState   string
	CompletedNodes   []string
	CurrentNodes     []string
	PendingTasks     []string
	IntermediateData map[string]wf.ExecutionDataMap
}

// NotFoundError reports a missing execution or checkpoint record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

// ExecutionStore persists execution records and their checkpoints. The
// engine calls SaveCheckpoint at every group boundary; LatestCheckpoint is
// a read-side query for callers, and the engine does not call it (resuming
// a paused execution only clears the pause flag).
type ExecutionStore interface {
	CreateExecution(ctx context.Context, rec *ExecutionRecord) error
	UpdateExecution(ctx context.Context, rec *ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (*ExecutionRecord, error)
	ListExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*ExecutionRecord, error)
	ListActiveExecutions(ctx context.Context) ([]*ExecutionRecord, error)

	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
	LatestCheckpoint(ctx context.Context, executionID string) (*Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, executionID string) error
}
