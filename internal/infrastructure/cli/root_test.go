//go:build !windows

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offlineConfig = `
preferences:
  default_model: offline
models:
  - name: offline
execution:
  shell: /bin/sh
  timeout: 10
security:
  enabled: true
  rules_file: %s
use_cases:
  - product: demo
    operation: Install
    offline_steps:
      - echo step-one
      - echo step-two
  - product: demo
    operation: Uninstall
    offline_steps:
      - rm -rf /
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Replace(offlineConfig, "%s", filepath.Join(dir, "guardrail.yaml"), 1)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(Options{})
	var out bytes.Buffer
	root.SetIn(strings.NewReader(input))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunOfflineSession(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "y\ny\n\n",
		"run", "--config", path, "--product", "demo", "--operation", "install", "--plain")
	require.NoError(t, err)

	assert.Contains(t, out, "[EXECUTE Mode] Calling backend...")
	assert.Contains(t, out, "Step 1 of 2")
	assert.Contains(t, out, "Step 2 of 2")
	assert.Equal(t, 2, strings.Count(out, "✓ Command succeeded"))
	assert.Contains(t, out, "step-two")
	assert.Contains(t, out, "All 2 steps")
	assert.Contains(t, out, "Commands: 2 run, 0 failed")
}

func TestRunBlockedCommandFallsBackToChat(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "\n",
		"run", "--config", path, "--product", "demo", "--operation", "Uninstall", "--plain")
	require.NoError(t, err)

	assert.Contains(t, out, "command blocked by guardrail")
	assert.NotContains(t, out, "Command succeeded")
	assert.NotContains(t, out, "Execute this command?")
}

func TestRunMenuExit(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "0\n", "run", "--config", path, "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Install demo")
	assert.Contains(t, out, "0. Exit")
	assert.Contains(t, out, "Goodbye.")
}

func TestRunRejectsHalfUseCase(t *testing.T) {
	path := writeConfig(t)
	_, err := execute(t, "", "run", "--config", path, "--product", "demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--product and --operation")
}

func TestInspectionCommands(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "", "usecases", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Install demo (2 offline steps)")

	out, err = execute(t, "", "config", "get", "--key", "use_cases.0.product", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "demo\n", out)

	out, err = execute(t, "", "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = execute(t, "", "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")

	out, err = execute(t, "", "models", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "* offline [offline]")

	out, err = execute(t, "", "guardrail", "check", "--config", path, "rm -rf /")
	require.NoError(t, err)
	assert.Contains(t, out, "CRITICAL (block)")
}

func TestVersionNeedsNoConfig(t *testing.T) {
	t.Setenv("OPSLOOP_CONFIG", filepath.Join(t.TempDir(), "never-written.yaml"))
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "opsloop version")
	_, statErr := os.Stat(os.Getenv("OPSLOOP_CONFIG"))
	assert.True(t, os.IsNotExist(statErr))
}
