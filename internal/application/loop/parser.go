package loop

import (
	"regexp"
	"strings"

	"github.com/doeshing/opsloop/internal/domain"
)

// fenceMarkers are the recognised code fence delimiters. A block opened with
// one marker is only closed by the same marker, in a run at least as long
// as the opening run.
var fenceMarkers = []string{"```", "~~~"}

var languageTag = regexp.MustCompile(`^[A-Za-z0-9_+.#-]+$`)

// ExtractCodeBlocks returns the fenced blocks of text in document order.
//
// Scanning is left to right and the first opener/closer pair wins, so nested
// fences are not supported. An unterminated fence yields nothing for the rest
// of the text. Blank blocks are skipped.
func ExtractCodeBlocks(text string) []domain.CodeBlock {
	var blocks []domain.CodeBlock
	pos := 0
	for pos < len(text) {
		open, marker := nextFence(text, pos)
		if open < 0 {
			break
		}
		width := fenceRun(text, open)
		bodyStart := open + width
		end, closeWidth := findCloser(text, bodyStart, marker, width)
		if end < 0 {
			break
		}
		body := text[bodyStart:end]
		pos = end + closeWidth

		block, ok := parseBlockBody(body)
		if !ok {
			continue
		}
		block.Offset = open
		blocks = append(blocks, block)
	}
	return blocks
}

func nextFence(text string, from int) (int, string) {
	best, marker := -1, ""
	for _, m := range fenceMarkers {
		idx := strings.Index(text[from:], m)
		if idx < 0 {
			continue
		}
		idx += from
		if best < 0 || idx < best {
			best, marker = idx, m
		}
	}
	return best, marker
}

// fenceRun is the length of the run of fence characters starting at i.
func fenceRun(text string, i int) int {
	n := 0
	for i+n < len(text) && text[i+n] == text[i] {
		n++
	}
	return n
}

// findCloser returns the start and length of the first run of marker
// characters at least width long, or -1 when the fence is never closed.
// Shorter runs belong to the block body.
func findCloser(text string, from int, marker string, width int) (int, int) {
	for from < len(text) {
		idx := strings.Index(text[from:], marker)
		if idx < 0 {
			return -1, 0
		}
		idx += from
		run := fenceRun(text, idx)
		if run >= width {
			return idx, run
		}
		from = idx + run
	}
	return -1, 0
}

// parseBlockBody splits an optional language tag from the command text.
// "```echo hi```" has no tag; "```bash\nls\n```" has tag "bash".
func parseBlockBody(body string) (domain.CodeBlock, bool) {
	var block domain.CodeBlock
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		first := strings.TrimSpace(body[:nl])
		rest := body[nl+1:]
		switch {
		case first == "":
			body = rest
		case languageTag.MatchString(first) && strings.TrimSpace(rest) != "":
			block.Language = strings.ToLower(first)
			body = rest
		}
	}
	block.Command = strings.TrimSpace(body)
	if block.Command == "" {
		return domain.CodeBlock{}, false
	}
	return block, true
}
