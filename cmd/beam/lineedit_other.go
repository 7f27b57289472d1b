//go:build !linux

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// promptReader prints the prompt and reads plain lines; line editing needs
// termios and is linux only.
type promptReader struct {
	prompt string
	out    io.Writer
	plain  *bufio.Reader
}

func newPromptReader(prompt string, in *os.File, out io.Writer) *promptReader {
	return &promptReader{prompt: prompt, out: out, plain: bufio.NewReader(in)}
}

func (r *promptReader) ReadLine() (string, error) {
	fmt.Fprint(r.out, r.prompt)
	return readPlainLine(r.plain)
}
