package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// waitDelay bounds how long Wait keeps reading pipes held open by orphaned
// grandchildren after the process group was killed.
const waitDelay = 2 * time.Second

// LocalExecutor runs commands on the host shell.
type LocalExecutor struct {
	shell   string
	flag    string
	timeout time.Duration
	stdin   *os.File
}

// NewLocalExecutor builds a new executor. An empty or "auto" shell resolves
// to $SHELL, then /bin/sh. A non-positive timeout selects the default.
func NewLocalExecutor(shell string, timeout time.Duration) *LocalExecutor {
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}
	if shell == "" || shell == domain.ShellAuto {
		sh, flag := defaultShell()
		return &LocalExecutor{shell: sh, flag: flag, timeout: timeout, stdin: os.Stdin}
	}
	return &LocalExecutor{shell: shell, flag: shellFlag(shell), timeout: timeout, stdin: os.Stdin}
}

// Shell returns the resolved shell binary.
func (e *LocalExecutor) Shell() string {
	return e.shell
}

// Timeout returns the per-command limit.
func (e *LocalExecutor) Timeout() time.Duration {
	return e.timeout
}

// Run implements ports.CommandExecutor. Output is captured as-is; on failure
// whatever was written before the failure is kept.
func (e *LocalExecutor) Run(ctx context.Context, command string) domain.ExecutionOutcome {
	outcome := domain.ExecutionOutcome{Command: command}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.shell, e.flag, command)
	restoreTerminal := configureProcess(cmd, e.stdin)
	cmd.Cancel = func() error { return terminateProcess(cmd) }
	cmd.WaitDelay = waitDelay
	cmd.Stdin = e.stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	restoreTerminal()
	outcome.Duration = time.Since(start)
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		outcome.ExitCode = -1
		outcome.TimedOut = true
	case ctx.Err() != nil:
		outcome.ExitCode = -1
		outcome.SpawnError = "interrupted: " + ctx.Err().Error()
	case err == nil:
		outcome.ExitCode = 0
		outcome.Succeeded = true
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
		} else {
			outcome.ExitCode = -1
			outcome.SpawnError = err.Error()
		}
	}
	return outcome
}

func shellFlag(shell string) string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(shell), ".exe"))
	switch base {
	case "cmd":
		return "/C"
	case "powershell", "pwsh":
		return "-Command"
	default:
		return "-c"
	}
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
