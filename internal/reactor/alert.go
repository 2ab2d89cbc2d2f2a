package reactor

import (
	"log/slog"
	"os/exec"
	"syscall"
)

// fireAlert runs command via sh -c in its own process group, detached from
// the daemon's stdio, and does not wait for it to finish on the caller's
// goroutine. A blank command is a no-op, matching the optional `command`
// config field.
func fireAlert(command string, log *slog.Logger) {
	if command == "" {
		return
	}

	cmd := exec.Command("sh", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		log.Warn("failed to start alert command", "command", command, "error", err)
		return
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("alert command exited non-zero", "command", command, "error", err)
		}
	}()
}
