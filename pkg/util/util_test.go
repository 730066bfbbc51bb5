package util

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/decaf-lang/dscan/pkg/config"
	"github.com/decaf-lang/dscan/pkg/token"
)

func newTestReporter(src string, cfg *config.Config) (*Reporter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewReporter(&out, SourceFileRecord{Name: "t.decaf", Content: []rune(src)}, cfg, false), &out
}

func TestError(t *testing.T) {
	rep, out := newTestReporter("x = 1;\ny @ 2;\n", nil)
	rep.Error(token.Token{Line: 2, Column: 3, Len: 1}, "illegal character '%c'", '@')

	want := "t.decaf:2:3: error: illegal character '@'\n  y @ 2;\n    ^\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if rep.Errors != 1 {
		t.Errorf("Errors = %d, want 1", rep.Errors)
	}
}

func TestWarn(t *testing.T) {
	cfg := config.NewConfig()
	rep, out := newTestReporter("big = 99999999999999999999;", cfg)
	tok := token.Token{Line: 1, Column: 7, Len: 20}

	rep.Warn(config.WarnOverflow, tok, "too big")
	want := "t.decaf:1:7: warning: too big [-Woverflow]\n  big = 99999999999999999999;\n        ^~~~~~~~~~~~~~~~~~~~\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	out.Reset()
	cfg.SetWarning(config.WarnOverflow, false)
	rep.Warn(config.WarnOverflow, tok, "too big")
	if out.Len() != 0 || rep.Warnings != 1 {
		t.Errorf("disabled warning printed %q (count %d)", out.String(), rep.Warnings)
	}
}

func TestColor(t *testing.T) {
	var out bytes.Buffer
	rep := NewReporter(&out, SourceFileRecord{Name: "c.decaf", Content: []rune("#")}, nil, true)
	rep.Error(token.Token{Line: 1, Column: 1, Len: 1}, "bad")
	want := "c.decaf:1:1: \033[31merror:\033[0m bad\n  #\n  \033[32m^\033[0m\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLineOutOfRange(t *testing.T) {
	rep, out := newTestReporter("one line", nil)
	rep.Error(token.Token{Line: 5, Column: 1, Len: 1}, "nowhere")
	if diff := cmp.Diff("t.decaf:5:1: error: nowhere\n", out.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
