package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Interactor is the operator interaction port. The merge engine and the
// disambiguation cache only ever talk to the operator through this
// interface, so a batch run is a substitution of the implementation rather
// than conditionals scattered through the merge logic.
type Interactor interface {
	// Confirm asks a yes/no question; the answer defaults to no.
	Confirm(question string) bool
	// Select asks the operator to pick one option by number; -1 keeps the
	// existing state (the default).
	Select(question string, options []string) int
	// Input asks a free-text question and returns the trimmed answer.
	Input(question string) string
	// Report prints an operator-facing message.
	Report(format string, args ...interface{})
}

// Terminal is the interactive Interactor over stdin/stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a terminal interactor.
func NewTerminal() *Terminal {
	return &Terminal{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// NewTerminalWith creates a terminal interactor over explicit streams,
// used in tests.
func NewTerminalWith(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question.
func (t *Terminal) Confirm(question string) bool {
	fmt.Fprintf(t.out, "%s [y/N] ", question)
	answer := strings.ToLower(t.readLine())
	return answer == "y" || answer == "yes"
}

// Select asks a numbered-choice question.
func (t *Terminal) Select(question string, options []string) int {
	fmt.Fprintln(t.out, question)
	for i, option := range options {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, option)
	}
	fmt.Fprint(t.out, "Choice (empty keeps current): ")

	answer := t.readLine()
	if answer == "" {
		return -1
	}
	choice := 0
	if _, err := fmt.Sscanf(answer, "%d", &choice); err != nil {
		return -1
	}
	if choice < 1 || choice > len(options) {
		return -1
	}
	return choice - 1
}

// Input asks a free-text question.
func (t *Terminal) Input(question string) string {
	fmt.Fprintf(t.out, "%s ", question)
	return t.readLine()
}

// Report prints a message to the operator.
func (t *Terminal) Report(format string, args ...interface{}) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *Terminal) readLine() string {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// Silent is the non-interactive Interactor: it answers every confirmation
// with a fixed verdict, never selects, and returns empty input, which the
// callers treat as "no decision". Reports go to stderr.
type Silent struct {
	Accept bool
}

// Confirm returns the fixed verdict.
func (s *Silent) Confirm(string) bool { return s.Accept }

// Select keeps the existing state.
func (s *Silent) Select(string, []string) int { return -1 }

// Input returns no answer.
func (s *Silent) Input(string) string { return "" }

// Report prints to stderr.
func (s *Silent) Report(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
