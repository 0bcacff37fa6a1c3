// Package metrics implements the metrics collector and monitor (C8):
// per-execution counters, threshold alerts, OpenTelemetry spans, and a
// websocket fan-out for live observers.
//
// Grounded on the teacher's internal/application/observer package (Event,
// EventType, EventFilter family) generalized from "arbitrary observer
// dispatch" into "aggregate counters + alerting + tracing + ws fan-out".
package metrics

import "time"

// EventType mirrors the teacher's dot-notation event taxonomy.
type EventType string

const (
	EventExecutionStarted   EventType = "execution.started"
	EventExecutionCompleted EventType = "execution.completed"
	EventExecutionFailed    EventType = "execution.failed"
	EventWaveStarted        EventType = "wave.started"
	EventWaveCompleted      EventType = "wave.completed"
	EventNodeStarted        EventType = "node.started"
	EventNodeCompleted      EventType = "node.completed"
	EventNodeFailed         EventType = "node.failed"
	EventNodeSkipped        EventType = "node.skipped"
)

// Event carries the fields the collector and broadcaster need out of an
// execution; unused fields are left zero depending on Type.
type Event struct {
	Type        EventType `json:"type"`
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	Timestamp   time.Time `json:"timestamp"`

	NodeName  string `json:"node_name,omitempty"`
	WaveIndex int    `json:"wave_index,omitempty"`
	NodeCount int    `json:"node_count,omitempty"`

	DurationMs int64  `json:"duration_ms,omitempty"`
	Err        error  `json:"-"`
	ErrMessage string `json:"error,omitempty"`
}
