// Package ports defines the interfaces between the interactive loop and the
// adapters that reach the outside world: the model backend, the terminal,
// the host shell, configuration and the session transcript.
//
// The loop in internal/application/loop depends only on these interfaces so
// it can be exercised without a live backend or a terminal.
package ports

import (
	"context"

	"github.com/doeshing/opsloop/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.opsloop/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// SystemProbe describes the host. The result is sent verbatim with the
// first request of a session.
type SystemProbe interface {
	Probe(context.Context) (domain.SystemInfo, error)
}

// Backend is the model transport: one request in, raw text out.
// Failures are reported as *domain.BackendError.
type Backend interface {
	Name() string
	Send(ctx context.Context, req domain.ModelRequest) (string, error)
}

// BackendFactory builds a backend for a configured model.
type BackendFactory interface {
	ForModel(model domain.ModelDefinition, cfg domain.Config) (Backend, error)
}

// CommandExecutor runs one confirmed command on the host. Every failure mode
// (non-zero exit, spawn error, timeout) is reported inside the outcome.
type CommandExecutor interface {
	Run(ctx context.Context, command string) domain.ExecutionOutcome
}

// SecurityService evaluates proposed commands before they are offered for
// confirmation.
type SecurityService interface {
	Evaluate(command string) (domain.RiskAssessment, error)
}

// Console is the interactive surface: menu, response display, confirmation
// and free-text input. io.EOF from any read means the user left.
type Console interface {
	SelectUseCase(ctx context.Context, useCases []domain.UseCase) (domain.UseCase, error)
	Banner(mode domain.Mode)
	ShowResponse(text string, blocks []domain.CodeBlock)
	ConfirmCommand(block domain.CodeBlock, risk domain.RiskAssessment) (bool, error)
	ShowOutcome(outcome domain.ExecutionOutcome)
	ReadChat(notice string) (string, error)
	OfferRetry(err error) (bool, error)
	Notify(level NoticeLevel, msg string)
	ShowSummary(summary domain.TranscriptSummary)
	// Wait shows a progress indicator until the returned func is called.
	Wait(label string) (stop func())
}

// NoticeLevel selects the styling of a console notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarn    NoticeLevel = "warn"
	NoticeError   NoticeLevel = "error"
)

// TranscriptStore records what happened in the current session only.
type TranscriptStore interface {
	RecordRequest(ctx context.Context, sessionID string, req domain.ModelRequest) error
	RecordOutcome(ctx context.Context, sessionID string, outcome domain.ExecutionOutcome) error
	Summary(ctx context.Context, sessionID string) (domain.TranscriptSummary, error)
	Close() error
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
