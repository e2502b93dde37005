package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/doeshing/opsloop/internal/domain"
)

// SelectUseCase shows the numbered menu until a valid entry is picked.
// "0" and end of input return domain.ErrNoUseCase.
func (c *Console) SelectUseCase(ctx context.Context, useCases []domain.UseCase) (domain.UseCase, error) {
	if len(useCases) == 0 {
		return domain.UseCase{}, errors.New("no use cases configured")
	}
	for {
		if err := ctx.Err(); err != nil {
			return domain.UseCase{}, err
		}
		fmt.Fprintln(c.out, c.styles.header.Render("Available use cases:"))
		for i, uc := range useCases {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, uc.Title())
		}
		fmt.Fprintln(c.out, "  0. Exit")
		fmt.Fprint(c.out, "Select an option: ")

		line, err := c.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return domain.UseCase{}, domain.ErrNoUseCase
			}
			return domain.UseCase{}, err
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		switch {
		case err != nil || choice < 0 || choice > len(useCases):
			fmt.Fprintln(c.out, c.styles.warn.Render(fmt.Sprintf("Invalid choice, enter a number between 0 and %d.", len(useCases))))
		case choice == 0:
			return domain.UseCase{}, domain.ErrNoUseCase
		default:
			return useCases[choice-1], nil
		}
	}
}

// ConfirmCommand asks before a proposal runs. Risky proposals print the
// guardrail's reasons; explicit_confirm requires typing "yes".
func (c *Console) ConfirmCommand(block domain.CodeBlock, risk domain.RiskAssessment) (bool, error) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Proposed command:")
	fmt.Fprintf(c.out, "  %s\n", c.styles.command.Render(block.Command))

	if risk.Level != "" && risk.Level != domain.RiskSafe {
		fmt.Fprintln(c.out, c.styles.warn.Render(fmt.Sprintf("⚠️  %s risk detected (%s)", strings.ToUpper(string(risk.Level)), risk.Action)))
		for _, reason := range risk.Reasons {
			fmt.Fprintf(c.out, " - %s\n", reason)
		}
	}

	if risk.Action == domain.ActionExplicitConfirm {
		fmt.Fprint(c.out, "Type 'yes' to run it (anything else skips): ")
		line, err := c.readLine()
		if err != nil {
			return false, err
		}
		return strings.TrimSpace(line) == "yes", nil
	}
	return c.ask("Execute this command? [y/N]: ")
}

// ReadChat prints notice and reads one line of free text. Validation is
// left to the caller.
func (c *Console) ReadChat(notice string) (string, error) {
	if notice != "" {
		fmt.Fprintln(c.out, c.styles.info.Render(notice))
	}
	fmt.Fprint(c.out, "> ")
	return c.readLine()
}

// OfferRetry reports a backend failure and asks whether to resend.
func (c *Console) OfferRetry(cause error) (bool, error) {
	fmt.Fprintln(c.out, c.styles.err.Render("Backend error: "+cause.Error()))
	return c.ask("Retry? [y/N]: ")
}

func (c *Console) ask(prompt string) (bool, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.readLine()
	if err != nil {
		return false, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

type readResult struct {
	line string
	err  error
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF. Cancelling the console's
// context abandons the pending read.
func (c *Console) readLine() (string, error) {
	if err := c.ctx.Err(); err != nil {
		return "", err
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		ch <- readResult{line: line, err: err}
	}()

	var r readResult
	select {
	case <-c.ctx.Done():
		fmt.Fprintln(c.out)
		return "", c.ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		if errors.Is(r.err, io.EOF) && r.line != "" {
			return strings.TrimRight(r.line, "\r\n"), nil
		}
		return "", r.err
	}
	return strings.TrimRight(r.line, "\r\n"), nil
}
