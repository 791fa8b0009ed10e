package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Answer is the oracle's three-valued verdict on "is symbol X at
// address Y". Ignore means "no, and stop asking about this symbol for
// now" during finder runs; conflict resolution treats it as a plain no.
type Answer uint8

const (
	AnswerNo Answer = iota
	AnswerYes
	AnswerIgnore
)

// Oracle is the confirmation authority consulted on conflicts and during
// finder refinement. Implementations block until they have a verdict.
type Oracle interface {
	Ask(name string, addr uint64) Answer
}

// TerminalOracle prompts on the controlling terminal. Symbols are
// demangled for display; the stored name stays mangled.
type TerminalOracle struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// NewTerminalOracle wires the oracle to stdin/stdout.
func NewTerminalOracle() *TerminalOracle {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		logrus.Warn("oracle: stdin is not a terminal, prompts will read line input")
	}
	return &TerminalOracle{In: os.Stdin, Out: os.Stdout}
}

// Ask prompts until it reads y, n or i. EOF maps to Ignore so a closed
// stdin never wedges a batch run.
func (o *TerminalOracle) Ask(name string, addr uint64) Answer {
	display := name
	if d, err := demangle.ToString(name); err == nil {
		display = d
	}
	if o.reader == nil {
		o.reader = bufio.NewReader(o.In)
	}
	for {
		fmt.Fprintf(o.Out, "Is %s located at %#x? [y/n/i] ", display, addr)
		line, err := o.reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(o.Out, "ignore")
			return AnswerIgnore
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return AnswerYes
		case "n", "no":
			return AnswerNo
		case "i", "ignore":
			return AnswerIgnore
		}
	}
}
