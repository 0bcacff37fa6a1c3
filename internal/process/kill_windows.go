//go:build windows

package process

import (
	"os"
	"os/exec"
)

// setProcAttr is a no-op on Windows; there is no process-group signal
// delivery equivalent used here.
func setProcAttr(cmd *exec.Cmd) {}

// sendTerm has no graceful-signal equivalent on Windows; terminate
// skips straight to sendKill when supportsGraceful is false.
func sendTerm(pid int) error { return nil }

func sendKill(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func supportsGraceful() bool { return false }
