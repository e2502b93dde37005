package loop

import (
	"errors"
	"fmt"

	"github.com/doeshing/opsloop/internal/domain"
)

// EventKind identifies an input to the state machine.
type EventKind string

const (
	EventResponseReceived EventKind = "response_received"
	EventBackendFailed    EventKind = "backend_failed"
	EventConfirmed        EventKind = "confirmed"
	EventDeclined         EventKind = "declined"
	EventCommandFinished  EventKind = "command_finished"
	EventChatInput        EventKind = "chat_input"
	EventRetryRequested   EventKind = "retry_requested"
	EventExitRequested    EventKind = "exit_requested"
)

// Event is what happened since the last action: a backend reply, a user
// answer or a finished command.
type Event struct {
	Kind    EventKind
	Text    string
	Outcome *domain.ExecutionOutcome
	Err     error
}

// ActionKind identifies what the orchestrator must do next.
type ActionKind string

const (
	ActionSendRequest    ActionKind = "send_request"
	ActionConfirmCommand ActionKind = "confirm_command"
	ActionRunCommand     ActionKind = "run_command"
	ActionPromptChat     ActionKind = "prompt_chat"
	ActionOfferRetry     ActionKind = "offer_retry"
	ActionExit           ActionKind = "exit"
)

// Action is the single effect requested by a transition.
type Action struct {
	Kind    ActionKind
	Request *domain.ModelRequest
	Block   *domain.CodeBlock
	// Response and Blocks are set on the action that follows a backend reply
	// so the reply can be displayed before the next prompt.
	Response string
	Blocks   []domain.CodeBlock
	Notice   string
	Err      error
}

// Notices shown at the chat prompt.
const (
	NoticeHowCanIHelp = "How can I help further? (max 256 chars, press Enter to exit)"
	NoticeSkipped     = "Command execution skipped."
	NoticeTooLong     = "Input exceeds 256 characters, please shorten it."
	NoticeFixLimit    = "The command kept failing after %d fix attempts. How should we proceed?"
)

// Machine is the loop's transition function. Its fields are fixed limits; it
// holds no session state, so the same Machine can step any session.
type Machine struct {
	// MaxFixAttempts is the number of automatic fix requests after consecutive
	// failures before the user is asked. Zero means no cap.
	MaxFixAttempts int
	MaxOutputBytes int
}

// Start enters the Execute state with the initial request for the session's
// use case.
func (m Machine) Start(s domain.Session) (domain.Session, Action) {
	req, err := BuildRequest(domain.ModeExecute, RequestContext{
		UseCase:    s.UseCase,
		SystemInfo: s.SystemInfo,
	})
	if err != nil {
		return toChat(s, err.Error())
	}
	s.State = domain.StateExecute
	s.Mode = domain.ModeExecute
	s.Pending = &req
	return s, Action{Kind: ActionSendRequest, Request: &req}
}

// Step applies one event to a session and returns the next action.
func (m Machine) Step(s domain.Session, ev Event) (domain.Session, Action) {
	if s.Terminated() {
		return s, Action{Kind: ActionExit}
	}

	switch ev.Kind {
	case EventExitRequested:
		s.State = domain.StateTerminated
		s.Pending = nil
		s.Proposed = nil
		return s, Action{Kind: ActionExit, Err: ev.Err}

	case EventResponseReceived:
		return m.onResponse(s, ev.Text)

	case EventBackendFailed:
		return s, Action{Kind: ActionOfferRetry, Err: ev.Err}

	case EventRetryRequested:
		if s.Pending == nil {
			return toChat(s, NoticeHowCanIHelp)
		}
		return s, Action{Kind: ActionSendRequest, Request: s.Pending}

	case EventConfirmed:
		if s.Proposed == nil {
			return toChat(s, NoticeHowCanIHelp)
		}
		return s, Action{Kind: ActionRunCommand, Block: s.Proposed}

	case EventDeclined:
		notice := NoticeSkipped
		if ev.Text != "" {
			notice = ev.Text
		}
		return toChat(s, notice)

	case EventCommandFinished:
		if ev.Outcome == nil {
			return toChat(s, NoticeHowCanIHelp)
		}
		return m.onOutcome(s, *ev.Outcome)

	case EventChatInput:
		return m.onChatInput(s, ev.Text)
	}

	return s, Action{Kind: ActionExit, Err: fmt.Errorf("unhandled event %q in state %s", ev.Kind, s.State)}
}

func (m Machine) onResponse(s domain.Session, text string) (domain.Session, Action) {
	s.Pending = nil
	s.LastResponse = text
	blocks := ExtractCodeBlocks(text)
	if len(blocks) == 0 {
		next, act := toChat(s, NoticeHowCanIHelp)
		act.Response = text
		return next, act
	}
	first := blocks[0]
	s.Proposed = &first
	return s, Action{
		Kind:     ActionConfirmCommand,
		Block:    &first,
		Response: text,
		Blocks:   blocks,
	}
}

func (m Machine) onOutcome(s domain.Session, outcome domain.ExecutionOutcome) (domain.Session, Action) {
	s.Proposed = nil
	s.LastOutcome = &outcome

	mode, state := domain.ModeExecute, domain.StateExecute
	if outcome.Succeeded {
		s.FixAttempts = 0
	} else {
		s.FixAttempts++
		if m.MaxFixAttempts > 0 && s.FixAttempts > m.MaxFixAttempts {
			attempts := s.FixAttempts - 1
			s.FixAttempts = 0
			s.LastOutcome = nil
			return toChat(s, fmt.Sprintf(NoticeFixLimit, attempts))
		}
		mode, state = domain.ModeFix, domain.StateFix
	}

	req, err := BuildRequest(mode, RequestContext{
		UseCase:        s.UseCase,
		Outcome:        &outcome,
		MaxOutputBytes: m.MaxOutputBytes,
	})
	// The outcome is folded into the request and no longer held.
	s.LastOutcome = nil
	if err != nil {
		return toChat(s, err.Error())
	}
	s.State = state
	s.Mode = mode
	s.Pending = &req
	return s, Action{Kind: ActionSendRequest, Request: &req}
}

func (m Machine) onChatInput(s domain.Session, text string) (domain.Session, Action) {
	if s.State != domain.StateChat {
		return s, Action{Kind: ActionPromptChat, Notice: NoticeHowCanIHelp}
	}
	req, err := BuildRequest(domain.ModeChat, RequestContext{UseCase: s.UseCase, UserText: text})
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		s.State = domain.StateTerminated
		s.Pending = nil
		return s, Action{Kind: ActionExit}
	case errors.Is(err, domain.ErrInputTooLong):
		return s, Action{Kind: ActionPromptChat, Notice: NoticeTooLong, Err: err}
	case err != nil:
		return s, Action{Kind: ActionPromptChat, Notice: err.Error(), Err: err}
	}
	s.FixAttempts = 0
	s.State = domain.StateExecute
	s.Mode = domain.ModeChat
	s.Pending = &req
	return s, Action{Kind: ActionSendRequest, Request: &req}
}

func toChat(s domain.Session, notice string) (domain.Session, Action) {
	s.State = domain.StateChat
	s.Proposed = nil
	s.Pending = nil
	return s, Action{Kind: ActionPromptChat, Notice: notice}
}
