package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// Orchestrator drives one session: it performs each action the Machine asks
// for against the ports and feeds the result back as the next event.
type Orchestrator struct {
	Backend  ports.Backend
	Executor ports.CommandExecutor
	Console  ports.Console
	Logger   ports.Logger
	Machine  Machine

	// Security and Transcript are optional.
	Security   ports.SecurityService
	Transcript ports.TranscriptStore

	// Fallbacks are tried in order when Backend fails with a BackendError.
	// The session stays on the backend that answered.
	Fallbacks []ports.Backend

	// NewID names the session; defaults to a random UUID.
	NewID func() string
}

// Run executes the loop for the chosen use case until the session terminates.
// The returned error is non-nil only when the session ended on an unrecovered
// failure or cancellation.
func (o *Orchestrator) Run(ctx context.Context, uc domain.UseCase, systemInfo string) (domain.Session, error) {
	if o.Backend == nil || o.Executor == nil || o.Console == nil || o.Logger == nil {
		return domain.Session{}, errors.New("loop.Orchestrator dependencies not satisfied")
	}
	if uc.Product == "" || uc.Operation == "" {
		return domain.Session{}, domain.ErrNoUseCase
	}

	newID := o.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	s := domain.Session{ID: newID(), UseCase: uc, SystemInfo: systemInfo}
	o.Logger.Info("session started", map[string]interface{}{
		"session_id": s.ID,
		"use_case":   uc.Title(),
		"backend":    o.Backend.Name(),
	})

	s, act := o.Machine.Start(s)
	for act.Kind != ActionExit {
		var ev Event
		if err := ctx.Err(); err != nil {
			ev = Event{Kind: EventExitRequested, Err: err}
		} else {
			ev = o.perform(ctx, s, act)
		}
		s, act = o.Machine.Step(s, ev)
	}

	o.finish(ctx, s)
	if act.Err != nil {
		o.Logger.Error("session ended with error", act.Err, map[string]interface{}{"session_id": s.ID})
	} else {
		o.Logger.Info("session ended", map[string]interface{}{"session_id": s.ID})
	}
	return s, act.Err
}

func (o *Orchestrator) perform(ctx context.Context, s domain.Session, act Action) Event {
	switch act.Kind {
	case ActionSendRequest:
		return o.send(ctx, s, *act.Request)
	case ActionConfirmCommand:
		return o.confirm(s, act)
	case ActionRunCommand:
		return o.run(ctx, s, *act.Block)
	case ActionPromptChat:
		return o.promptChat(act)
	case ActionOfferRetry:
		return o.offerRetry(act.Err)
	}
	return Event{Kind: EventExitRequested, Err: fmt.Errorf("unknown action %q", act.Kind)}
}

func (o *Orchestrator) send(ctx context.Context, s domain.Session, req domain.ModelRequest) Event {
	o.Console.Banner(req.Mode)
	if o.Transcript != nil {
		if err := o.Transcript.RecordRequest(ctx, s.ID, req); err != nil {
			o.Logger.Warn("transcript record failed", map[string]interface{}{"error": err.Error()})
		}
	}
	o.Logger.Debug("sending request", map[string]interface{}{
		"session_id": s.ID,
		"mode":       string(req.Mode),
		"bytes":      len(req.Payload),
	})

	for {
		stop := o.Console.Wait("Calling backend...")
		text, err := o.Backend.Send(ctx, req)
		stop()

		if err == nil && strings.TrimSpace(text) == "" {
			err = &domain.BackendError{Op: "send", Retryable: true, Err: domain.ErrEmptyResponse}
		}
		if err == nil {
			return Event{Kind: EventResponseReceived, Text: text}
		}
		o.Logger.Warn("backend request failed", map[string]interface{}{
			"session_id": s.ID,
			"mode":       string(req.Mode),
			"backend":    o.Backend.Name(),
			"error":      err.Error(),
		})
		if !o.switchBackend(ctx, s, err) {
			return Event{Kind: EventBackendFailed, Err: err}
		}
	}
}

// switchBackend moves the session to the next fallback after a backend
// failure. It reports false when there is none left to try.
func (o *Orchestrator) switchBackend(ctx context.Context, s domain.Session, cause error) bool {
	var be *domain.BackendError
	if ctx.Err() != nil || len(o.Fallbacks) == 0 || !errors.As(cause, &be) {
		return false
	}
	next := o.Fallbacks[0]
	o.Fallbacks = o.Fallbacks[1:]
	o.Console.Notify(ports.NoticeWarn, fmt.Sprintf("Backend %s failed, switching to %s.", o.Backend.Name(), next.Name()))
	o.Logger.Info("switching backend", map[string]interface{}{
		"session_id": s.ID,
		"from":       o.Backend.Name(),
		"to":         next.Name(),
	})
	o.Backend = next
	return true
}

func (o *Orchestrator) confirm(s domain.Session, act Action) Event {
	o.Console.ShowResponse(act.Response, act.Blocks)

	block := *act.Block
	risk := o.assess(block.Command)
	if risk.Blocked() {
		o.Logger.Warn("command blocked", map[string]interface{}{
			"session_id": s.ID,
			"rules":      risk.MatchedRules,
		})
		return Event{Kind: EventDeclined, Text: blockedNotice(risk)}
	}

	ok, err := o.Console.ConfirmCommand(block, risk)
	if err != nil {
		return exitOn(err)
	}
	if !ok {
		return Event{Kind: EventDeclined}
	}
	return Event{Kind: EventConfirmed}
}

func (o *Orchestrator) assess(command string) domain.RiskAssessment {
	if o.Security == nil {
		return domain.RiskAssessment{Level: domain.RiskSafe, Action: domain.ActionConfirm}
	}
	risk, err := o.Security.Evaluate(command)
	if err != nil {
		o.Logger.Warn("guardrail evaluation failed", map[string]interface{}{"error": err.Error()})
		return domain.RiskAssessment{
			Level:   domain.RiskMedium,
			Action:  domain.ActionExplicitConfirm,
			Reasons: []string{"guardrail unavailable: " + err.Error()},
		}
	}
	if risk.Action == "" {
		risk.Action = domain.ActionConfirm
	}
	return risk
}

func (o *Orchestrator) run(ctx context.Context, s domain.Session, block domain.CodeBlock) Event {
	// No spinner here: the command owns the terminal and may prompt.
	o.Console.Notify(ports.NoticeInfo, "Running command...")
	outcome := o.Executor.Run(ctx, block.Command)

	o.Console.ShowOutcome(outcome)
	o.Logger.Info("command finished", map[string]interface{}{
		"session_id": s.ID,
		"exit_code":  outcome.ExitCode,
		"timed_out":  outcome.TimedOut,
		"duration":   outcome.Duration.String(),
	})
	if o.Transcript != nil {
		if err := o.Transcript.RecordOutcome(ctx, s.ID, outcome); err != nil {
			o.Logger.Warn("transcript record failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return Event{Kind: EventCommandFinished, Outcome: &outcome}
}

func (o *Orchestrator) promptChat(act Action) Event {
	if act.Response != "" {
		o.Console.ShowResponse(act.Response, nil)
	}
	text, err := o.Console.ReadChat(act.Notice)
	if err != nil {
		return exitOn(err)
	}
	return Event{Kind: EventChatInput, Text: text}
}

func (o *Orchestrator) offerRetry(cause error) Event {
	retry, err := o.Console.OfferRetry(cause)
	if err != nil || !retry {
		return Event{Kind: EventExitRequested, Err: cause}
	}
	return Event{Kind: EventRetryRequested}
}

func (o *Orchestrator) finish(ctx context.Context, s domain.Session) {
	if o.Transcript == nil {
		return
	}
	summary, err := o.Transcript.Summary(context.WithoutCancel(ctx), s.ID)
	if err != nil {
		o.Logger.Warn("transcript summary failed", map[string]interface{}{"error": err.Error()})
		return
	}
	o.Console.ShowSummary(summary)
}

// exitOn maps a console read error to an exit. EOF is a normal leave.
func exitOn(err error) Event {
	if errors.Is(err, io.EOF) {
		return Event{Kind: EventExitRequested}
	}
	return Event{Kind: EventExitRequested, Err: err}
}

func blockedNotice(risk domain.RiskAssessment) string {
	msg := fmt.Sprintf("%s (%s risk)", domain.ErrCommandBlocked.Error(), risk.Level)
	if len(risk.Reasons) > 0 {
		msg += ": " + strings.Join(risk.Reasons, "; ")
	}
	return msg
}
