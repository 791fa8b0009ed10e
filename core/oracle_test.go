package core

import (
	"bytes"
	"strings"
	"testing"
)

// TestTerminalOracleAnswers parses y/n/i lines, skipping anything it
// does not understand.
func TestTerminalOracleAnswers(t *testing.T) {
	cases := []struct {
		input string
		want  Answer
	}{
		{"y\n", AnswerYes},
		{"yes\n", AnswerYes},
		{"N\n", AnswerNo},
		{"i\n", AnswerIgnore},
		{"what\nY\n", AnswerYes},
	}
	for _, c := range cases {
		var out bytes.Buffer
		o := &TerminalOracle{In: strings.NewReader(c.input), Out: &out}
		if got := o.Ask("_ZN3Cls4initEv", 0x1000); got != c.want {
			t.Fatalf("input %q: got %v want %v", c.input, got, c.want)
		}
		if !strings.Contains(out.String(), "0x1000") {
			t.Fatalf("prompt missing address: %q", out.String())
		}
	}
}

// TestTerminalOracleEOF maps a closed input to Ignore.
func TestTerminalOracleEOF(t *testing.T) {
	var out bytes.Buffer
	o := &TerminalOracle{In: strings.NewReader(""), Out: &out}
	if got := o.Ask("sym", 0x10); got != AnswerIgnore {
		t.Fatalf("got %v want ignore", got)
	}
}

// TestTerminalOracleDemangles shows the demangled form in the prompt.
func TestTerminalOracleDemangles(t *testing.T) {
	var out bytes.Buffer
	o := &TerminalOracle{In: strings.NewReader("y\n"), Out: &out}
	o.Ask("_ZN3Cls4initEv", 0x10)
	if !strings.Contains(out.String(), "Cls::init") {
		t.Fatalf("prompt not demangled: %q", out.String())
	}
}
