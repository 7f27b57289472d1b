//go:build linux

package main

import (
	"bufio"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// promptReader reads lines from a terminal in raw mode through a
// lineEditor, or plainly when in is not a terminal.
type promptReader struct {
	in    *os.File
	ed    *lineEditor
	plain *bufio.Reader
}

func newPromptReader(prompt string, in *os.File, out io.Writer) *promptReader {
	return &promptReader{
		in:    in,
		ed:    newLineEditor(prompt, out),
		plain: bufio.NewReader(in),
	}
}

func (r *promptReader) ReadLine() (string, error) {
	if !isTTY(r.in) {
		return readPlainLine(r.plain)
	}

	fd := int(r.in.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	raw := *oldState
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return "", err
	}
	defer func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, oldState)
	}()

	r.ed.reset()
	var buf [16]byte
	for {
		n, err := r.in.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			switch r.ed.feed(b) {
			case keyAccept:
				return r.ed.text(), nil
			case keyEOF:
				return "", io.EOF
			}
		}
	}
}
