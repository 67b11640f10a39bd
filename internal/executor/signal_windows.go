//go:build windows

package executor

import (
	"os"
	"os/exec"
)

// terminate kills the child outright; Windows has no graceful signal.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// signalName always reports empty on Windows.
func signalName(_ *os.ProcessState) string { return "" }
