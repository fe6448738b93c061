//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the tool into its own process group so that
// cancellation also reaches the children it spawns (latexmk -> pdflatex).
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
