// Package prompt asks the operator yes/no questions.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer answers a yes/no question.
type Confirmer interface {
	Confirm(question string) bool
}

// Always answers every question with answer. Always(true) is --silent.
type Always bool

func (a Always) Confirm(string) bool { return bool(a) }

// Terminal asks on an interactive terminal. It refuses when In is not a
// terminal so a piped invocation never confirms by accident.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// IsTerminal overrides the TTY check; nil checks In's file descriptor.
	IsTerminal func() bool
}

// NewTerminal returns a Terminal on stdin and stdout.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

func (t *Terminal) interactive() bool {
	if t.IsTerminal != nil {
		return t.IsTerminal()
	}
	f, ok := t.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Confirm prints question with a [y/N] suffix and accepts y or yes.
func (t *Terminal) Confirm(question string) bool {
	if !t.interactive() {
		fmt.Fprintf(t.Out, "%s [y/N] not a terminal, refusing\n", question)
		return false
	}
	fmt.Fprintf(t.Out, "%s [y/N] ", question)
	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
