package logger

import (
	"io"
	"log/slog"
	"os"
	"sort"
)

// SlogLogger adapts log/slog to ports.Logger.
type SlogLogger struct {
	l       *slog.Logger
	verbose bool
}

// New creates a logger writing text records to w. When verbose is false only
// errors are written.
func New(w io.Writer, verbose bool) *SlogLogger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogLogger{l: slog.New(h), verbose: verbose}
}

// NewStd creates a logger on stderr.
func NewStd(verbose bool) *SlogLogger {
	return New(os.Stderr, verbose)
}

// Discard drops everything. Used in tests.
func Discard() *SlogLogger {
	return New(io.Discard, false)
}

// Verbose reports whether debug records are written.
func (l *SlogLogger) Verbose() bool {
	return l.verbose
}

// With returns a logger that adds fields to every record.
func (l *SlogLogger) With(fields map[string]interface{}) *SlogLogger {
	return &SlogLogger{l: l.l.With(attrs(fields)...), verbose: l.verbose}
}

func (l *SlogLogger) Debug(msg string, fields map[string]interface{}) {
	l.l.Debug(msg, attrs(fields)...)
}

func (l *SlogLogger) Info(msg string, fields map[string]interface{}) {
	l.l.Info(msg, attrs(fields)...)
}

func (l *SlogLogger) Warn(msg string, fields map[string]interface{}) {
	l.l.Warn(msg, attrs(fields)...)
}

func (l *SlogLogger) Error(msg string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.l.Error(msg, args...)
}

// attrs sorts keys so records are stable.
func attrs(fields map[string]interface{}) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
