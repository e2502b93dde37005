package domain

import "time"

// Mode is the label attached to an outbound request.
type Mode string

const (
	ModeExecute Mode = "execute"
	ModeChat    Mode = "chat"
	ModeFix     Mode = "fix"
)

// State is the loop's position. Exactly one holds at a time.
type State string

const (
	StateExecute    State = "execute"
	StateChat       State = "chat"
	StateFix        State = "fix"
	StateTerminated State = "terminated"
)

// UseCase is a menu entry: what to do, to which product.
type UseCase struct {
	Product     string `yaml:"product"`
	Operation   string `yaml:"operation"`
	Description string `yaml:"description,omitempty"`
	// OfflineSteps is the command plan replayed by the offline backend.
	OfflineSteps []string `yaml:"offline_steps,omitempty"`
}

// Title renders the entry the way the menu shows it, e.g. "Install curl".
func (u UseCase) Title() string {
	return u.Operation + " " + u.Product
}

// ModelRequest is a single outbound message. Built once, sent once.
type ModelRequest struct {
	Mode    Mode
	Payload string
	UseCase UseCase
}

// CodeBlock is one fenced span extracted from a backend response.
type CodeBlock struct {
	Language string
	Command  string
	// Offset is the byte index of the opening fence in the response.
	Offset int
}

// ExecutionOutcome is the captured result of running one command.
type ExecutionOutcome struct {
	Command    string
	ExitCode   int
	Stdout     string
	Stderr     string
	Succeeded  bool
	TimedOut   bool
	SpawnError string
	Duration   time.Duration
}

// Session is the loop state owned by the orchestrator. It is passed by value
// through the transition function and never shared.
type Session struct {
	ID      string
	State   State
	Mode    Mode
	UseCase UseCase

	SystemInfo   string
	LastResponse string
	LastOutcome  *ExecutionOutcome
	Pending      *ModelRequest
	Proposed     *CodeBlock

	// FixAttempts counts consecutive failed executions; reset on success.
	FixAttempts int
}

// Terminated reports whether the session reached its final state.
func (s Session) Terminated() bool {
	return s.State == StateTerminated
}
