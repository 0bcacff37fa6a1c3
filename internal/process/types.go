// Package process implements the process supervisor (C11): spawning
// external OS processes as workflow tasks, enforcing resource limits,
// detecting and reaping zombies, and propagating lifecycle events.
//
// Grounded on goa-ai's integration_tests/framework/runner.go
// (startServer/stopServer: exec.Cmd with redirected stdout/stderr, a
// buffered exit channel fed by a goroutine calling cmd.Wait(), and a
// graceful-signal-then-Kill escalation with timeouts between steps) and
// features/mcp/runtime/stdiocaller.go (stdin/stdout pipe wiring,
// sync.Once-guarded close). The resource monitor is grounded on
// linkflow-ai's monitoring_service.go (ticker-driven sampling loop,
// RWMutex-guarded metric map) but samples gopsutil's per-process view
// instead of host-wide cpu/mem, since this supervisor reports per-child
// resource usage, not whole-machine metrics.
package process

import (
	"time"
)

// Status is a process's lifecycle state.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusKilled    Status = "Killed"
	StatusZombie    Status = "Zombie"
)

// Info is the supervisor's public view of one spawned child (spec §4's
// ProcessInfo).
type Info struct {
	PID         int
	InstanceID  string
	Status      Status
	StartedAt   time.Time
	CompletedAt *time.Time
	ExitCode    *int
}

// Limits configures the per-process resource monitor. Zero fields mean
// "unlimited" for that dimension.
type Limits struct {
	MaxMemoryMB float64
	MaxCPUPct   float64
}

// SpawnOptions parameterizes spawn_process.
type SpawnOptions struct {
	InstanceID string
	Cmd        string
	Args       []string
	WorkingDir string
	Env        map[string]string
	Limits     Limits

	// ProcessTimeout is the wall-clock budget enforced by the cleanup
	// loop; zero means no timeout.
	ProcessTimeout time.Duration
}

// EventKind enumerates the ProcessEvent kinds the supervisor emits.
type EventKind string

const (
	EventStarted      EventKind = "Started"
	EventExited       EventKind = "Exited"
	EventSigterm      EventKind = "Sigterm"
	EventSigkill      EventKind = "Sigkill"
	EventBecameZombie EventKind = "BecameZombie"
)

// Event is broadcast on the bounded subscribe_events channel.
type Event struct {
	InstanceID string
	Kind       EventKind
	Timestamp  time.Time
	Data       map[string]any
}

// Violation is produced by the resource monitor when a configured limit
// is exceeded; the supervisor does not auto-kill on this, it only
// reports (spec §4.3: "leaves policy to the engine").
type Violation struct {
	InstanceID string
	Limit      string
	Value      float64
	Threshold  float64
	Timestamp  time.Time
}

// eventBufferCapacity is the bounded broadcast channel size (spec §4.3:
// "capacity 1000; slow subscribers may drop events").
const eventBufferCapacity = 1000
