package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// lineEditor is the key handling behind the interactive prompt. It is fed
// one byte at a time and redraws the prompt line on out.
type lineEditor struct {
	prompt  string
	out     io.Writer
	history []string

	line   []byte
	cursor int

	esc    int
	escBuf strings.Builder

	histPos   int
	browsing  bool
	histDraft string
}

// keyResult tells the caller what a key did to the line.
type keyResult int

const (
	keyContinue keyResult = iota
	keyAccept
	keyEOF
)

func newLineEditor(prompt string, out io.Writer) *lineEditor {
	return &lineEditor{prompt: prompt, out: out}
}

// reset prepares a fresh line, keeping history.
func (e *lineEditor) reset() {
	e.line = e.line[:0]
	e.cursor = 0
	e.esc = 0
	e.histPos = len(e.history)
	e.browsing = false
	e.histDraft = ""
	fmt.Fprint(e.out, e.prompt)
}

func (e *lineEditor) text() string { return string(e.line) }

func (e *lineEditor) redraw() {
	fmt.Fprintf(e.out, "\r%s%s\x1b[K", e.prompt, e.line)
	if e.cursor < len(e.line) {
		fmt.Fprintf(e.out, "\r%s%s", e.prompt, e.line[:e.cursor])
	}
}

func (e *lineEditor) feed(b byte) keyResult {
	switch e.esc {
	case 1:
		e.esc = 0
		switch b {
		case '[':
			e.esc = 2
			e.escBuf.Reset()
		case 'b', 'B':
			e.wordLeft()
		case 'f', 'F':
			e.wordRight()
		case 127:
			e.deleteWordBack()
		}
		return keyContinue
	case 2:
		e.escBuf.WriteByte(b)
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			e.esc = 0
			e.csi(e.escBuf.String())
		}
		return keyContinue
	}

	switch b {
	case 27:
		e.esc = 1
	case '\r', '\n':
		fmt.Fprint(e.out, "\r\n")
		if strings.TrimSpace(e.text()) != "" {
			e.history = append(e.history, e.text())
		}
		return keyAccept
	case 3: // Ctrl+C
		fmt.Fprint(e.out, "^C\r\n")
		return keyEOF
	case 4: // Ctrl+D
		if len(e.line) == 0 {
			fmt.Fprint(e.out, "\r\n")
			return keyEOF
		}
	case 127, 8:
		if e.cursor > 0 {
			e.line = append(e.line[:e.cursor-1], e.line[e.cursor:]...)
			e.cursor--
			e.redraw()
		}
	case 1: // Ctrl+A
		e.cursor = 0
		e.redraw()
	case 5: // Ctrl+E
		e.cursor = len(e.line)
		e.redraw()
	case 21: // Ctrl+U
		e.line = append(e.line[:0], e.line[e.cursor:]...)
		e.cursor = 0
		e.redraw()
	case 23: // Ctrl+W
		e.deleteWordBack()
	default:
		if b >= 32 {
			e.line = append(e.line, 0)
			copy(e.line[e.cursor+1:], e.line[e.cursor:])
			e.line[e.cursor] = b
			e.cursor++
			e.redraw()
		}
	}
	return keyContinue
}

func (e *lineEditor) csi(seq string) {
	switch seq {
	case "A":
		e.historyPrev()
	case "B":
		e.historyNext()
	case "D":
		if e.cursor > 0 {
			e.cursor--
			e.redraw()
		}
	case "C":
		if e.cursor < len(e.line) {
			e.cursor++
			e.redraw()
		}
	case "H":
		e.cursor = 0
		e.redraw()
	case "F":
		e.cursor = len(e.line)
		e.redraw()
	case "3~":
		if e.cursor < len(e.line) {
			e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
			e.redraw()
		}
	case "1;5D", "5D":
		e.wordLeft()
	case "1;5C", "5C":
		e.wordRight()
	}
}

func (e *lineEditor) historyPrev() {
	if len(e.history) == 0 {
		return
	}
	if !e.browsing {
		e.histDraft = e.text()
		e.browsing = true
		e.histPos = len(e.history)
	}
	if e.histPos > 0 {
		e.histPos--
		e.setLine(e.history[e.histPos])
	}
}

func (e *lineEditor) historyNext() {
	if !e.browsing {
		return
	}
	if e.histPos < len(e.history)-1 {
		e.histPos++
		e.setLine(e.history[e.histPos])
		return
	}
	e.histPos = len(e.history)
	e.browsing = false
	e.setLine(e.histDraft)
}

func (e *lineEditor) setLine(s string) {
	e.line = append(e.line[:0], s...)
	e.cursor = len(e.line)
	e.redraw()
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

func (e *lineEditor) wordStart(from int) int {
	for from > 0 && isBlank(e.line[from-1]) {
		from--
	}
	for from > 0 && !isBlank(e.line[from-1]) {
		from--
	}
	return from
}

func (e *lineEditor) wordLeft() {
	if e.cursor == 0 {
		return
	}
	e.cursor = e.wordStart(e.cursor)
	e.redraw()
}

func (e *lineEditor) wordRight() {
	for e.cursor < len(e.line) && isBlank(e.line[e.cursor]) {
		e.cursor++
	}
	for e.cursor < len(e.line) && !isBlank(e.line[e.cursor]) {
		e.cursor++
	}
	e.redraw()
}

func (e *lineEditor) deleteWordBack() {
	if e.cursor == 0 {
		return
	}
	start := e.wordStart(e.cursor)
	e.line = append(e.line[:start], e.line[e.cursor:]...)
	e.cursor = start
	e.redraw()
}

func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// readPlainLine reads one line when stdin is not a terminal. io.EOF is
// only returned once no text is left.
func readPlainLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return trimTrailingNewline(s), nil
}
