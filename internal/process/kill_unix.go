//go:build unix

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttr places the child in its own process group so a signal can
// be delivered to the whole group, not just the direct child (spec
// §4.3's spawn discipline). os/exec's SysProcAttr field is typed
// syscall.SysProcAttr regardless of which package sends the signal
// later.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// sendTerm delivers SIGTERM to pid's process group.
func sendTerm(pid int) error {
	return unix.Kill(-pid, unix.SIGTERM)
}

// sendKill delivers SIGKILL to pid's process group.
func sendKill(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}

func supportsGraceful() bool { return true }
