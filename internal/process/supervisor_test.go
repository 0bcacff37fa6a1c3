package process

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixtures assume a Unix shell")
	}
}

func newTestSupervisor() *Supervisor {
	return New(
		WithMaxConcurrent(4),
		WithCleanupInterval(50*time.Millisecond),
		WithZombieCheckInterval(200*time.Millisecond),
		WithResourceCheckInterval(0),
	)
}

func TestSpawnAndObserveExit(t *testing.T) {
	skipOnWindows(t)
	s := newTestSupervisor()
	defer s.Stop()

	events := s.SubscribeEvents()
	id, err := s.SpawnProcess(context.Background(), SpawnOptions{
		InstanceID: "echo-1",
		Cmd:        "/bin/sh",
		Args:       []string{"-c", "exit 0"},
	})
	require.NoError(t, err)
	require.Equal(t, "echo-1", id)

	started := waitForEvent(t, events, EventStarted)
	assert.Equal(t, "echo-1", started.InstanceID)

	exited := waitForEvent(t, events, EventExited)
	assert.Equal(t, "echo-1", exited.InstanceID)

	info, err := s.GetProcessInfo("echo-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, info.Status)
	require.NotNil(t, info.ExitCode)
	assert.Equal(t, 0, *info.ExitCode)
	assert.Equal(t, 4, s.AvailableCapacity())
}

func TestSpawnRejectsAtCapacity(t *testing.T) {
	skipOnWindows(t)
	s := New(WithMaxConcurrent(1), WithCleanupInterval(20*time.Millisecond), WithResourceCheckInterval(0))
	defer s.Stop()

	_, err := s.SpawnProcess(context.Background(), SpawnOptions{
		InstanceID: "sleeper",
		Cmd:        "sleep",
		Args:       []string{"2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.AvailableCapacity())

	_, err = s.SpawnProcess(context.Background(), SpawnOptions{InstanceID: "other", Cmd: "sleep", Args: []string{"2"}})
	var capErr *CapacityError
	assert.ErrorAs(t, err, &capErr)

	_, _ = s.KillProcess(context.Background(), "sleeper")
}

func TestKillProcessGracefulThenForced(t *testing.T) {
	skipOnWindows(t)
	s := newTestSupervisor()
	defer s.Stop()

	_, err := s.SpawnProcess(context.Background(), SpawnOptions{
		InstanceID: "long-sleep",
		Cmd:        "sleep",
		Args:       []string{"30"},
	})
	require.NoError(t, err)

	id, err := s.KillProcess(context.Background(), "long-sleep")
	require.NoError(t, err)
	assert.Equal(t, "long-sleep", id)

	_, err = s.GetProcessInfo("long-sleep")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, 4, s.AvailableCapacity())
}

func TestSpawnReusesInstanceIDAfterNaturalCompletion(t *testing.T) {
	skipOnWindows(t)
	s := newTestSupervisor()
	defer s.Stop()

	events := s.SubscribeEvents()
	_, err := s.SpawnProcess(context.Background(), SpawnOptions{
		InstanceID: "reuse-me",
		Cmd:        "/bin/sh",
		Args:       []string{"-c", "exit 0"},
	})
	require.NoError(t, err)
	waitForEvent(t, events, EventExited)

	_, err = s.SpawnProcess(context.Background(), SpawnOptions{
		InstanceID: "reuse-me",
		Cmd:        "/bin/sh",
		Args:       []string{"-c", "exit 3"},
	})
	require.NoError(t, err)
	waitForEvent(t, events, EventExited)

	info, err := s.GetProcessInfo("reuse-me")
	require.NoError(t, err)
	require.NotNil(t, info.ExitCode)
	assert.Equal(t, 3, *info.ExitCode)
}

func TestKillAllWaitsForEveryChild(t *testing.T) {
	skipOnWindows(t)
	s := newTestSupervisor()
	defer s.Stop()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.SpawnProcess(context.Background(), SpawnOptions{InstanceID: id, Cmd: "sleep", Args: []string{"30"}})
		require.NoError(t, err)
	}
	s.KillAll(context.Background())
	assert.Equal(t, 4, s.AvailableCapacity())
}

func TestKillUnknownInstanceReturnsNotFound(t *testing.T) {
	s := newTestSupervisor()
	defer s.Stop()

	_, err := s.KillProcess(context.Background(), "ghost")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestSpawnRejectsDuplicateInstanceID(t *testing.T) {
	skipOnWindows(t)
	s := newTestSupervisor()
	defer s.Stop()

	_, err := s.SpawnProcess(context.Background(), SpawnOptions{InstanceID: "dup", Cmd: "sleep", Args: []string{"5"}})
	require.NoError(t, err)
	_, err = s.SpawnProcess(context.Background(), SpawnOptions{InstanceID: "dup", Cmd: "sleep", Args: []string{"5"}})
	assert.Error(t, err)
	_, _ = s.KillProcess(context.Background(), "dup")
}

func TestProcessTimeoutTriggersKillPath(t *testing.T) {
	skipOnWindows(t)
	s := New(WithMaxConcurrent(4), WithCleanupInterval(50*time.Millisecond), WithResourceCheckInterval(0))
	defer s.Stop()

	events := s.SubscribeEvents()
	_, err := s.SpawnProcess(context.Background(), SpawnOptions{
		InstanceID:     "timeout-me",
		Cmd:            "sleep",
		Args:           []string{"2"},
		ProcessTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	deadline := time.After(1 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventSigterm || ev.Kind == EventSigkill {
				_, err := s.GetProcessInfo("timeout-me")
				var nf *NotFoundError
				assert.ErrorAs(t, err, &nf)
				return
			}
		case <-deadline:
			t.Fatal("expected a kill event within the timeout window")
		}
	}
}

func waitForEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %s", kind)
		}
	}
}

