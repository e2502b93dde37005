//go:build windows

package executor

import (
	"os"
	"os/exec"
)

func defaultShell() (string, string) {
	return "cmd.exe", "/C"
}

func configureProcess(cmd *exec.Cmd, stdin *os.File) func() { return func() {} }

func terminateProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
