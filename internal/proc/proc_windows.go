//go:build windows

package proc

import "os/exec"

// Windows has no process groups in the POSIX sense; exec's default Cancel
// kills the direct child only.
func configureProcessGroup(cmd *exec.Cmd) {}
