package loop

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/opsloop/internal/domain"
)

// RequestContext is everything a request may be built from. Which fields are
// read depends on the mode.
type RequestContext struct {
	UseCase    domain.UseCase
	SystemInfo string
	Outcome    *domain.ExecutionOutcome
	UserText   string
	// MaxOutputBytes truncates captured output; zero keeps it whole.
	MaxOutputBytes int
}

var errMissingOutcome = errors.New("request needs an execution outcome")

// BuildRequest assembles the next outbound request. It is pure: the result
// depends only on its arguments.
func BuildRequest(mode domain.Mode, rc RequestContext) (domain.ModelRequest, error) {
	var payload string
	switch mode {
	case domain.ModeExecute:
		if rc.Outcome == nil {
			payload = initialPayload(rc.UseCase, rc.SystemInfo)
			break
		}
		if !rc.Outcome.Succeeded {
			return domain.ModelRequest{}, fmt.Errorf("build execute request: outcome of %q did not succeed", rc.Outcome.Command)
		}
		payload = successPayload(*rc.Outcome, rc.MaxOutputBytes)
	case domain.ModeChat:
		if err := ValidateChatInput(rc.UserText); err != nil {
			return domain.ModelRequest{}, err
		}
		payload = strings.TrimSpace(rc.UserText)
	case domain.ModeFix:
		if rc.Outcome == nil {
			return domain.ModelRequest{}, fmt.Errorf("build fix request: %w", errMissingOutcome)
		}
		payload = fixPayload(*rc.Outcome, rc.MaxOutputBytes)
	default:
		return domain.ModelRequest{}, fmt.Errorf("build request: unknown mode %q", mode)
	}
	return domain.ModelRequest{Mode: mode, Payload: payload, UseCase: rc.UseCase}, nil
}

// ValidateChatInput enforces the chat input limits: non-blank and at most
// domain.MaxChatInputChars characters.
func ValidateChatInput(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyInput
	}
	if utf8.RuneCountInString(text) > domain.MaxChatInputChars {
		return domain.ErrInputTooLong
	}
	return nil
}

func initialPayload(uc domain.UseCase, systemInfo string) string {
	var b strings.Builder
	if systemInfo != "" && systemInfo != "{}" {
		b.WriteString("System Information:\n```json\n")
		b.WriteString(systemInfo)
		b.WriteString("\n```\n---\n")
	}
	fmt.Fprintf(&b, "Product: %s\nOperation: %s\n", uc.Product, uc.Operation)
	if uc.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", uc.Description)
	}
	fmt.Fprintf(&b, "\nPlease provide the first shell command to %s on this system.", strings.ToLower(uc.Title()))
	return b.String()
}

func successPayload(o domain.ExecutionOutcome, limit int) string {
	var b strings.Builder
	b.WriteString("The following command executed successfully:\n")
	writeFenced(&b, o.Command)
	fmt.Fprintf(&b, "Output (stdout):\n%s\n", orPlaceholder(truncateOutput(o.Stdout, limit), "[No stdout]"))
	fmt.Fprintf(&b, "Output (stderr):\n%s\n\n", orPlaceholder(truncateOutput(o.Stderr, limit), "[No stderr]"))
	b.WriteString("Please provide the next command or instruction based on this result.")
	return b.String()
}

func fixPayload(o domain.ExecutionOutcome, limit int) string {
	var b strings.Builder
	b.WriteString("The following command failed:\n")
	writeFenced(&b, o.Command)
	fmt.Fprintf(&b, "Exit Code: %d\n", o.ExitCode)
	if o.TimedOut {
		fmt.Fprintf(&b, "The command timed out after %s and was terminated.\n", o.Duration.Round(time.Millisecond))
	}
	if o.SpawnError != "" {
		fmt.Fprintf(&b, "The command could not be started: %s\n", o.SpawnError)
	}
	fmt.Fprintf(&b, "Output (stdout):\n%s\n", orPlaceholder(truncateOutput(o.Stdout, limit), "[No stdout]"))
	fmt.Fprintf(&b, "Error Output (stderr):\n%s\n\n", orPlaceholder(truncateOutput(o.Stderr, limit), "[No stderr]"))
	b.WriteString("Please provide corrected commands or troubleshooting steps.")
	return b.String()
}

func writeFenced(b *strings.Builder, command string) {
	b.WriteString("```\n")
	b.WriteString(command)
	b.WriteString("\n```\n")
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return strings.TrimRight(s, "\n")
}

// truncateOutput keeps the tail of s, where errors usually are.
func truncateOutput(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := len(s) - limit
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return fmt.Sprintf("[... %s truncated ...]\n%s", humanize.Bytes(uint64(cut)), s[cut:])
}
