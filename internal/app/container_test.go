package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/opsloop/internal/infrastructure/console"
)

func buildTestContainer(t *testing.T, content string) *Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)
	return c
}

func TestBuildContainerWritesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.NotEmpty(t, c.Config.UseCases)
	require.NotNil(t, c.Guardrail)
	assert.NotZero(t, c.Guardrail.RuleCount())
	assert.NotNil(t, c.DoctorService)
}

func TestNewSession(t *testing.T) {
	c := buildTestContainer(t, `
models:
  - name: offline
execution:
  timeout: 7
session:
  max_fix_attempts: 4
security:
  enabled: false
`)
	assert.Nil(t, c.Guardrail)

	con := console.New(console.Options{Plain: true})
	session, err := c.NewSession(SessionOptions{Console: con})
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, "offline:offline", session.BackendName)
	assert.Equal(t, 4, session.Orchestrator.Machine.MaxFixAttempts)
	assert.Nil(t, session.Orchestrator.Security)
	assert.NotNil(t, session.Orchestrator.Transcript)

	uncapped := -1
	session2, err := c.NewSession(SessionOptions{Console: con, MaxFixAttempts: &uncapped, CommandTimeout: time.Second})
	require.NoError(t, err)
	defer session2.Close()
	assert.Zero(t, session2.Orchestrator.Machine.MaxFixAttempts)
}

func TestNewSessionErrors(t *testing.T) {
	c := buildTestContainer(t, "models:\n  - name: offline\n")

	_, err := c.NewSession(SessionOptions{})
	assert.Error(t, err)

	_, err = c.NewSession(SessionOptions{Console: console.New(console.Options{Plain: true}), Model: "missing"})
	assert.ErrorContains(t, err, "missing")
}

func TestNewSessionFallbacks(t *testing.T) {
	c := buildTestContainer(t, `
preferences:
  default_model: local
  fallback_models: [offline, local, unknown]
models:
  - name: local
    endpoint: http://127.0.0.1:1/v1/chat/completions
    model_id: m
  - name: offline
security:
  enabled: false
`)
	con := console.New(console.Options{Plain: true})

	session, err := c.NewSession(SessionOptions{Console: con})
	require.NoError(t, err)
	defer session.Close()
	require.Len(t, session.Orchestrator.Fallbacks, 1)
	assert.Equal(t, "offline:offline", session.Orchestrator.Fallbacks[0].Name())

	offline, err := c.NewSession(SessionOptions{Console: con, Model: "offline"})
	require.NoError(t, err)
	defer offline.Close()
	require.Len(t, offline.Orchestrator.Fallbacks, 1)
	assert.Equal(t, "local", strings.SplitN(offline.Orchestrator.Fallbacks[0].Name(), ":", 2)[1])
}
