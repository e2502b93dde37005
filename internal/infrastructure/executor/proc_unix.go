//go:build !windows

package executor

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

func defaultShell() (string, string) {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, "-c"
	}
	return "/bin/sh", "-c"
}

// configureProcess puts the command in its own process group so a timeout
// can kill everything it spawned. When stdin is the terminal this process
// group owns, the new group is made the foreground group so the command can
// prompt; the returned func hands the terminal back once it has exited.
func configureProcess(cmd *exec.Cmd, stdin *os.File) func() {
	fd, ok := foregroundTerminal(stdin)
	if !ok {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return func() {}
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Foreground: true, Ctty: fd}
	return func() { reclaimTerminal(fd) }
}

// foregroundTerminal returns the descriptor of stdin when it is a terminal
// whose foreground process group is ours.
func foregroundTerminal(stdin *os.File) (int, bool) {
	if stdin == nil || !isatty.IsTerminal(stdin.Fd()) {
		return 0, false
	}
	fd := int(stdin.Fd())
	pgrp, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil || pgrp != unix.Getpgrp() {
		return 0, false
	}
	return fd, true
}

// reclaimTerminal makes our process group the foreground group again. We are
// in the background at that point, so SIGTTOU is ignored for the call.
func reclaimTerminal(fd int) {
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)
	_ = unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, unix.Getpgrp())
}

// terminateProcess kills the shell and everything it spawned.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return nil
	}
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return cmd.Process.Kill()
}
