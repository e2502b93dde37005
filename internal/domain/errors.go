package domain

import (
	"errors"
	"fmt"
)

// MaxChatInputChars caps free-text input in chat mode.
const MaxChatInputChars = 256

var (
	// ErrInputTooLong rejects chat input over MaxChatInputChars.
	ErrInputTooLong = fmt.Errorf("input exceeds %d characters", MaxChatInputChars)
	// ErrEmptyInput rejects an empty chat message.
	ErrEmptyInput = errors.New("input is empty")
	// ErrNoUseCase is returned when the user leaves the menu without a choice.
	ErrNoUseCase = errors.New("no use case selected")
	// ErrEmptyResponse marks a backend reply with no text.
	ErrEmptyResponse = errors.New("backend returned an empty response")
	// ErrCommandBlocked marks a proposal refused by the guardrail.
	ErrCommandBlocked = errors.New("command blocked by guardrail")
)

// BackendError wraps a failure at the model backend boundary. It is never
// folded into the command error path.
type BackendError struct {
	Op        string
	Status    int
	Retryable bool
	Err       error
}

func (e *BackendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend %s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a backend failure worth retrying.
func IsRetryable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}
