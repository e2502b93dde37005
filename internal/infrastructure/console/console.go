// Package console is the line-oriented terminal surface of a session: the
// use case menu, rendered backend replies, confirmation prompts and chat
// input.
package console

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/doeshing/opsloop/internal/ports"
)

const (
	defaultWrap = 100
	minWrap     = 40
)

// Options configures a Console. Nil streams default to the process stdio.
type Options struct {
	// Context cancels pending reads; it defaults to context.Background().
	Context context.Context

	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Plain disables colour, markdown rendering and the spinner.
	Plain bool
}

// Console implements ports.Console on a pair of writers and a line reader.
// Prompts and replies go to Out; progress and the mode banner go to Err.
type Console struct {
	ctx      context.Context
	in       *bufio.Reader
	out      io.Writer
	errOut   io.Writer
	styles   styles
	markdown *glamour.TermRenderer
	animate  bool
}

type styles struct {
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	dim     lipgloss.Style
	command lipgloss.Style
	header  lipgloss.Style
}

// New builds a console. Colour and markdown are used only when Out is a
// terminal and Plain is unset.
func New(opts Options) *Console {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	c := &Console{
		ctx:    opts.Context,
		in:     bufio.NewReader(opts.In),
		out:    opts.Out,
		errOut: opts.Err,
		styles: plainStyles(),
	}
	if opts.Plain {
		return c
	}
	if isTerminal(opts.Out) {
		c.styles = colourStyles()
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(terminalWidth(opts.Out)),
		)
		if err == nil {
			c.markdown = renderer
		}
	}
	c.animate = isTerminal(opts.Err)
	return c
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{info: s, success: s, warn: s, err: s, dim: s, command: s, header: s}
}

func colourStyles() styles {
	return styles{
		info:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),
		success: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
		err:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		command: lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWrap
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWrap
	}
	if width < minWrap {
		return minWrap
	}
	return width - 2
}

var _ ports.Console = (*Console)(nil)
