package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/flowmesh/engine/pkg/wf"
)

// PostgresStore persists executions and checkpoints with uptrace/bun,
// grounded on the teacher's ExecutionRepository (internal/infrastructure/
// storage/execution_repository.go) query shapes.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateSchema issues the DDL for both tables. Callers that manage schema
// via an external migration tool (as the teacher does) can skip calling
// this and apply equivalent migrations instead.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*executionRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("store: create executions table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*checkpointRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("store: create checkpoints table: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateExecution(ctx context.Context, rec *ExecutionRecord) error {
	row := toExecutionRow(rec)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("store: create execution: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateExecution(ctx context.Context, rec *ExecutionRecord) error {
	row := toExecutionRow(rec)
	res, err := s.db.NewUpdate().
		Model(row).
		Column("status", "started_at", "finished_at", "mode", "trigger_type").
		Where("id = ?", row.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: update execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "execution", ID: rec.ID}
	}
	return nil
}

func (s *PostgresStore) GetExecution(ctx context.Context, id string) (*ExecutionRecord, error) {
	row := &executionRow{}
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "execution", ID: id}
		}
		return nil, fmt.Errorf("store: get execution: %w", err)
	}
	return fromExecutionRow(row), nil
}

func (s *PostgresStore) ListExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*ExecutionRecord, error) {
	var rows []*executionRow
	err := s.db.NewSelect().Model(&rows).Where("workflow_id = ?", workflowID).Order("started_at DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list executions by workflow: %w", err)
	}
	out := make([]*ExecutionRecord, len(rows))
	for i, r := range rows {
		out[i] = fromExecutionRow(r)
	}
	return out, nil
}

func (s *PostgresStore) ListActiveExecutions(ctx context.Context) ([]*ExecutionRecord, error) {
	var rows []*executionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("status NOT IN (?)", bun.In([]string{
			string(wf.ExecutionSuccess), string(wf.ExecutionFailed), string(wf.ExecutionCancelled),
		})).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list active executions: %w", err)
	}
	out := make([]*ExecutionRecord, len(rows))
	for i, r := range rows {
		out[i] = fromExecutionRow(r)
	}
	return out, nil
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp *Checkpoint) error {
	row, err := toCheckpointRow(cp)
	if err != nil {
		return fmt.Errorf("store: encode checkpoint: %w", err)
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (execution_id) DO UPDATE").
		Set("timestamp = EXCLUDED.timestamp").
		Set("execution_state = EXCLUDED.execution_state").
		Set("completed_nodes = EXCLUDED.completed_nodes").
		Set("current_nodes = EXCLUDED.current_nodes").
		Set("pending_tasks = EXCLUDED.pending_tasks").
		Set("intermediate_data = EXCLUDED.intermediate_data").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestCheckpoint(ctx context.Context, executionID string) (*Checkpoint, error) {
	row := &checkpointRow{}
	err := s.db.NewSelect().Model(row).Where("execution_id = ?", executionID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "checkpoint", ID: executionID}
		}
		return nil, fmt.Errorf("store: get checkpoint: %w", err)
	}
	return fromCheckpointRow(row)
}

func (s *PostgresStore) DeleteCheckpoint(ctx context.Context, executionID string) error {
	_, err := s.db.NewDelete().Model((*checkpointRow)(nil)).Where("execution_id = ?", executionID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: delete checkpoint: %w", err)
	}
	return nil
}

func toExecutionRow(rec *ExecutionRecord) *executionRow {
	return &executionRow{
		ID:          rec.ID,
		WorkflowID:  rec.WorkflowID,
		Status:      string(rec.Status),
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
		Mode:        rec.Mode,
		TriggerType: string(rec.TriggerType),
	}
}

func fromExecutionRow(row *executionRow) *ExecutionRecord {
	return &ExecutionRecord{
		ID:          row.ID,
		WorkflowID:  row.WorkflowID,
		Status:      wf.ExecutionStatus(row.Status),
		StartedAt:   row.StartedAt,
		FinishedAt:  row.FinishedAt,
		Mode:        row.Mode,
		TriggerType: wf.TriggerKind(row.TriggerType),
	}
}

func toCheckpointRow(cp *Checkpoint) (*checkpointRow, error) {
	raw, err := json.Marshal(cp.IntermediateData)
	if err != nil {
		return nil, err
	}
	return &checkpointRow{
		ExecutionID:      cp.ExecutionID,
		Timestamp:        cp.Timestamp,
		ExecutionState:   cp.ExecutionState,
		CompletedNodes:   stringArray(cp.CompletedNodes),
		CurrentNodes:     stringArray(cp.CurrentNodes),
		PendingTasks:     stringArray(cp.PendingTasks),
		IntermediateData: string(raw),
	}, nil
}

func fromCheckpointRow(row *checkpointRow) (*Checkpoint, error) {
	var data map[string]wf.ExecutionDataMap
	if row.IntermediateData != "" {
		if err := json.Unmarshal([]byte(row.IntermediateData), &data); err != nil {
			return nil, err
		}
	}
	return &Checkpoint{
		ExecutionID:      row.ExecutionID,
		Timestamp:        row.Timestamp,
		ExecutionState:   row.ExecutionState,
		CompletedNodes:   []string(row.CompletedNodes),
		CurrentNodes:     []string(row.CurrentNodes),
		PendingTasks:     []string(row.PendingTasks),
		IntermediateData: data,
	}, nil
}

var _ ExecutionStore = (*PostgresStore)(nil)
