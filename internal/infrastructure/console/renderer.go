package console

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// Banner announces the mode of the request about to be sent.
func (c *Console) Banner(mode domain.Mode) {
	fmt.Fprintln(c.errOut, c.styles.info.Render(fmt.Sprintf("[%s Mode] Calling backend...", strings.ToUpper(string(mode)))))
}

// ShowResponse prints a backend reply followed by a numbered listing of its
// code blocks.
func (c *Console) ShowResponse(text string, blocks []domain.CodeBlock) {
	fmt.Fprintln(c.out)
	c.printMarkdown(text)
	for i, block := range blocks {
		fmt.Fprintln(c.out, c.styles.dim.Render(fmt.Sprintf("--- Code Block %d ---", i+1)))
		fmt.Fprintln(c.out, c.styles.command.Render(block.Command))
	}
	if len(blocks) > 0 {
		fmt.Fprintln(c.out, c.styles.dim.Render("--------------------"))
	}
}

func (c *Console) printMarkdown(text string) {
	if c.markdown != nil {
		if rendered, err := c.markdown.Render(text); err == nil {
			fmt.Fprint(c.out, rendered)
			return
		}
	}
	fmt.Fprintln(c.out, strings.TrimRight(text, "\n"))
}

// ShowOutcome prints the result line and the captured streams of a command.
func (c *Console) ShowOutcome(o domain.ExecutionOutcome) {
	duration := o.Duration.Round(10 * time.Millisecond)
	switch {
	case o.Succeeded:
		fmt.Fprintln(c.out, c.styles.success.Render(fmt.Sprintf("✓ Command succeeded (exit 0, %s)", duration)))
	case o.TimedOut:
		fmt.Fprintln(c.out, c.styles.err.Render(fmt.Sprintf("✗ Command timed out after %s", duration)))
	case o.SpawnError != "":
		fmt.Fprintln(c.out, c.styles.err.Render("✗ Command could not be started: "+o.SpawnError))
	default:
		fmt.Fprintln(c.out, c.styles.err.Render(fmt.Sprintf("✗ Command failed (exit %d, %s)", o.ExitCode, duration)))
	}
	c.printStream("stdout", o.Stdout)
	c.printStream("stderr", o.Stderr)
}

func (c *Console) printStream(name, content string) {
	if content == "" {
		fmt.Fprintln(c.out, c.styles.dim.Render(fmt.Sprintf("[No %s]", name)))
		return
	}
	header := fmt.Sprintf("--- %s (%s) ---", name, humanize.Bytes(uint64(len(content))))
	fmt.Fprintln(c.out, c.styles.dim.Render(header))
	fmt.Fprintln(c.out, strings.TrimRight(content, "\n"))
}

// Notify prints a one-line notice.
func (c *Console) Notify(level ports.NoticeLevel, msg string) {
	style := c.styles.info
	switch level {
	case ports.NoticeSuccess:
		style = c.styles.success
	case ports.NoticeWarn:
		style = c.styles.warn
	case ports.NoticeError:
		style = c.styles.err
	}
	fmt.Fprintln(c.out, style.Render(msg))
}

// ShowSummary prints what the session did. Sessions that never reached the
// backend print nothing.
func (c *Console) ShowSummary(sum domain.TranscriptSummary) {
	if sum.TotalRequests() == 0 && len(sum.Commands) == 0 {
		return
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.styles.header.Render("Session summary"))
	fmt.Fprintf(c.out, "Requests: %d (%s)\n", sum.TotalRequests(), modeCounts(sum.Requests))
	fmt.Fprintf(c.out, "Commands: %d run, %d failed\n", len(sum.Commands), sum.Failures())
	for _, cmd := range sum.Commands {
		mark := c.styles.success.Render("✓")
		if !cmd.Succeeded {
			mark = c.styles.err.Render("✗")
		}
		fmt.Fprintf(c.out, "  %s %s\n", mark, cmd.Command)
	}
	if !sum.Started.IsZero() {
		fmt.Fprintln(c.out, c.styles.dim.Render("Started "+humanize.Time(sum.Started)))
	}
}

func modeCounts(counts map[domain.Mode]int) string {
	modes := make([]string, 0, len(counts))
	for mode := range counts {
		modes = append(modes, string(mode))
	}
	sort.Strings(modes)
	parts := make([]string, 0, len(modes))
	for _, mode := range modes {
		parts = append(parts, fmt.Sprintf("%s %d", mode, counts[domain.Mode(mode)]))
	}
	return strings.Join(parts, ", ")
}
