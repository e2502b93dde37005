package domain

import "time"

// TranscriptSummary is what the session transcript reports on exit.
type TranscriptSummary struct {
	SessionID string
	Started   time.Time
	Requests  map[Mode]int
	Commands  []CommandRecord
}

// CommandRecord is one executed command as kept by the transcript.
type CommandRecord struct {
	Command   string
	ExitCode  int
	Succeeded bool
	TimedOut  bool
	Duration  time.Duration
}

// Failures counts executed commands that did not succeed.
func (t TranscriptSummary) Failures() int {
	n := 0
	for _, c := range t.Commands {
		if !c.Succeeded {
			n++
		}
	}
	return n
}

// TotalRequests sums requests across modes.
func (t TranscriptSummary) TotalRequests() int {
	n := 0
	for _, c := range t.Requests {
		n += c
	}
	return n
}
