package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// stringArray persists []string as a PostgreSQL TEXT[] literal, mirroring
// the teacher's StringArray column type.
type stringArray []string

func (a stringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return "{" + s[1:len(s)-1] + "}", nil
}

func (a *stringArray) Scan(v interface{}) error {
	if v == nil {
		*a = nil
		return nil
	}
	var raw string
	switch t := v.(type) {
	case []byte:
		raw = string(t)
	case string:
		raw = t
	default:
		return errors.New("store: stringArray.Scan: unsupported type")
	}
	if len(raw) < 2 || raw == "{}" {
		*a = stringArray{}
		return nil
	}
	return json.Unmarshal([]byte("["+raw[1:len(raw)-1]+"]"), a)
}

type executionRow struct {
	bun.BaseModel `bun:"table:flowmesh_executions,alias:fe"`

	ID          string     `bun:"id,pk"`
	WorkflowID  string     `bun:"workflow_id,notnull"`
	Status      string     `bun:"status,notnull"`
	StartedAt   *time.Time `bun:"started_at"`
	FinishedAt  *time.Time `bun:"finished_at"`
	Mode        string     `bun:"mode"`
	TriggerType string     `bun:"trigger_type"`
}

type checkpointRow struct {
	bun.BaseModel `bun:"table:flowmesh_checkpoints,alias:fc"`

	ExecutionID      string      `bun:"execution_id,pk"`
	Timestamp        time.Time   `bun:"timestamp,notnull"`
	ExecutionState   string      `bun:"execution_state"`
	CompletedNodes   stringArray `bun:"completed_nodes,type:text[]"`
	CurrentNodes     stringArray `bun:"current_nodes,type:text[]"`
	PendingTasks     stringArray `bun:"pending_tasks,type:text[]"`
	IntermediateData string      `bun:"intermediate_data,type:jsonb"`
}
