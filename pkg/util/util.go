package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/decaf-lang/dscan/pkg/config"
	"github.com/decaf-lang/dscan/pkg/token"
)

const (
	cRed    = "\033[31m"
	cYellow = "\033[33m"
	cGreen  = "\033[32m"
	cNone   = "\033[0m"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// Reporter writes source-anchored diagnostics for one file.
type Reporter struct {
	w        io.Writer
	file     SourceFileRecord
	cfg      *config.Config
	color    bool
	Errors   int
	Warnings int
}

func NewReporter(w io.Writer, file SourceFileRecord, cfg *config.Config, color bool) *Reporter {
	return &Reporter{w: w, file: file, cfg: cfg, color: color}
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + cNone
}

// lineText returns the text of the given 1-based line, without its newline.
func (r *Reporter) lineText(line int) (string, bool) {
	content := r.file.Content
	lineStart := 0
	for i, c := range content {
		if line <= 1 {
			break
		}
		if c == '\n' {
			line--
			lineStart = i + 1
		}
	}
	if line > 1 {
		return "", false
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	return string(content[lineStart:lineEnd]), true
}

// printErrorLine prints the source line and a caret under the token
func (r *Reporter) printErrorLine(tok token.Token) {
	if tok.Line == 0 {
		return
	}
	text, ok := r.lineText(tok.Line)
	if !ok {
		return
	}
	fmt.Fprintf(r.w, "  %s\n", text)

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(r.w, "  %s%s\n", strings.Repeat(" ", max(tok.Column-1, 0)), r.paint(cGreen, caret))
}

// Error prints a formatted error message anchored at tok.
func (r *Reporter) Error(tok token.Token, format string, args ...any) {
	r.Errors++
	fmt.Fprintf(r.w, "%s:%d:%d: %s ", r.file.Name, tok.Line, tok.Column, r.paint(cRed, "error:"))
	fmt.Fprintf(r.w, format, args...)
	fmt.Fprintln(r.w)
	r.printErrorLine(tok)
}

// Warn prints a formatted warning if wt is enabled.
func (r *Reporter) Warn(wt config.Warning, tok token.Token, format string, args ...any) {
	if r.cfg != nil && !r.cfg.IsWarningEnabled(wt) {
		return
	}
	r.Warnings++
	name := ""
	if r.cfg != nil {
		name = r.cfg.Warnings[wt].Name
	}
	fmt.Fprintf(r.w, "%s:%d:%d: %s ", r.file.Name, tok.Line, tok.Column, r.paint(cYellow, "warning:"))
	fmt.Fprintf(r.w, format, args...)
	if name != "" {
		fmt.Fprintf(r.w, " [-W%s]", name)
	}
	fmt.Fprintln(r.w)
	r.printErrorLine(tok)
}
