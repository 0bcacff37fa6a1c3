package process

import "context"

// NodeAdapter exposes a Supervisor as pkg/node.ProcessSupervisor: the
// narrow surface a process-spawning node kind needs, without forcing
// pkg/node to depend on this package's richer SpawnOptions/Info types.
type NodeAdapter struct{ *Supervisor }

func (a NodeAdapter) SpawnProcess(ctx context.Context, instanceID, cmd string, args []string, workingDir string, env map[string]string) (string, error) {
	return a.Supervisor.SpawnProcess(ctx, SpawnOptions{
		InstanceID: instanceID,
		Cmd:        cmd,
		Args:       args,
		WorkingDir: workingDir,
		Env:        env,
	})
}

func (a NodeAdapter) GetProcessInfo(instanceID string) (status string, exitCode *int, found bool) {
	info, err := a.Supervisor.GetProcessInfo(instanceID)
	if err != nil {
		return "", nil, false
	}
	return string(info.Status), info.ExitCode, true
}
