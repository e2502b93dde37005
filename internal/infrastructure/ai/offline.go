package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// runPrefix lets chat input name a command directly in offline mode.
const runPrefix = "run "

// offlineBackend stands in for a model when none is configured. It walks the
// use case's offline_steps: one step per successful execution.
type offlineBackend struct {
	model domain.ModelDefinition
	step  int
}

func newOfflineBackend(model domain.ModelDefinition) *offlineBackend {
	return &offlineBackend{model: model}
}

func (b *offlineBackend) Name() string {
	return "offline:" + b.model.Name
}

func (b *offlineBackend) Send(ctx context.Context, req domain.ModelRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.BackendError{Op: "send", Err: err}
	}
	steps := req.UseCase.OfflineSteps

	switch req.Mode {
	case domain.ModeExecute:
		if isInitialRequest(req.Payload) {
			b.step = 0
		} else {
			b.step++
		}
		if len(steps) == 0 {
			return fmt.Sprintf("No offline plan is configured for %s. Configure a model endpoint, or type `run <command>` to run a command yourself.", req.UseCase.Title()), nil
		}
		if b.step >= len(steps) {
			return fmt.Sprintf("All %d steps to %s are done. Anything else?", len(steps), strings.ToLower(req.UseCase.Title())), nil
		}
		return proposeStep(b.step, len(steps), steps[b.step]), nil

	case domain.ModeFix:
		return "The last command failed. Review the error output above; offline mode cannot diagnose it. " +
			"Type `run <command>` to try a corrected command, or press Enter to exit.", nil

	case domain.ModeChat:
		text := strings.TrimSpace(req.Payload)
		if strings.HasPrefix(strings.ToLower(text), runPrefix) {
			command := strings.TrimSpace(text[len(runPrefix):])
			return fmt.Sprintf("Running your command:\n```\n%s\n```", command), nil
		}
		return "Offline mode only replays the configured plan. Type `run <command>` to run a command.", nil
	}
	return "", &domain.BackendError{Op: "send", Err: fmt.Errorf("unknown mode %q", req.Mode)}
}

// isInitialRequest tells the first request of a session from the report
// sent after a successful command.
func isInitialRequest(payload string) bool {
	return !strings.HasPrefix(payload, "The following command executed successfully")
}

func proposeStep(i, total int, command string) string {
	return fmt.Sprintf("Step %d of %d:\n```bash\n%s\n```", i+1, total, command)
}

var _ ports.Backend = (*offlineBackend)(nil)
