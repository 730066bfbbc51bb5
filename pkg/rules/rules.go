// Package rules declares every lexical unit of Decaf as an ordered table of
// matchers. A Table is immutable once built and may be shared by any number
// of lexers.
package rules

import (
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/decaf-lang/dscan/pkg/config"
	"github.com/decaf-lang/dscan/pkg/token"
)

// Action is the semantic step applied to a matched span.
type Action int

const (
	Emit    Action = iota // emit the text unchanged
	Discard               // consume without emitting
	Keyword               // identifier, possibly re-kinded to a keyword
	Integer               // decode digits to a number
	CharLit               // wrap the raw text as (char_lit=...)
)

// Matcher reports how many runes of src, starting at pos, it accepts.
// Zero means no match.
type Matcher func(src []rune, pos int) int

type Rule struct {
	Type     token.Type
	Literal  string
	Match    Matcher
	Action   Action
	Priority int
	lit      []rune
}

// Length returns the length of the rule's match at pos, or 0.
func (r Rule) Length(src []rune, pos int) int {
	if r.Match != nil {
		return r.Match(src, pos)
	}
	if pos+len(r.lit) > len(src) {
		return 0
	}
	for i, c := range r.lit {
		if src[pos+i] != c {
			return 0
		}
	}
	return len(r.lit)
}

// KeywordFunc reports whether word is reserved, and as which kind.
type KeywordFunc func(word string) (token.Type, bool)

type Table struct {
	rules           []Rule
	singleCharIdent bool
	keywords        KeywordFunc
}

// operators in declaration order; longest match picks "<<" over "<".
var operators = []struct {
	typ token.Type
	lit string
}{
	{token.And, "&&"},
	{token.Assign, "="},
	{token.Comma, ","},
	{token.Div, "/"},
	{token.Dot, "."},
	{token.Eq, "=="},
	{token.Geq, ">="},
	{token.Gt, ">"},
	{token.LCB, "{"},
	{token.LeftShift, "<<"},
	{token.LessEqual, "<="},
	{token.LParen, "("},
	{token.LSB, "["},
	{token.Lt, "<"},
	{token.Minus, "-"},
	{token.Mod, "%"},
	{token.Mult, "*"},
	{token.Neq, "!="},
	{token.Not, "!"},
	{token.Or, "||"},
	{token.Plus, "+"},
	{token.RCB, "}"},
	{token.RightShift, ">>"},
	{token.RParen, ")"},
	{token.RSB, "]"},
	{token.Semicolon, ";"},
}

func NewTable(cfg *config.Config) *Table {
	withFunc := cfg.IsFeatureEnabled(config.FeatFuncKeyword)
	t := &Table{
		singleCharIdent: cfg.IsFeatureEnabled(config.FeatSingleCharIdent),
		keywords:        func(word string) (token.Type, bool) { return token.LookupKeyword(word, withFunc) },
	}

	whitespace := matchBlanks
	if cfg.IsFeatureEnabled(config.FeatCRLF) {
		whitespace = matchBlanksCR
	}

	t.add(Rule{Type: token.CharConstant, Match: matchChar, Action: CharLit})
	t.add(Rule{Type: token.StringConstant, Match: matchString, Action: Emit})
	t.add(Rule{Type: token.IntConstant, Match: matchDigits, Action: Integer})
	t.add(Rule{Type: token.Ident, Match: matchIdent, Action: Keyword})
	t.add(Rule{Type: token.Whitespace, Match: whitespace, Action: Discard})
	t.add(Rule{Type: token.Newline, Match: matchNewlines, Action: Discard})
	if cfg.IsFeatureEnabled(config.FeatComments) {
		t.add(Rule{Type: token.Comment, Match: matchComment, Action: Discard})
	}
	for _, op := range operators {
		t.add(Rule{Type: op.typ, Literal: op.lit, Action: Emit})
	}
	return t
}

func (t *Table) add(r Rule) {
	r.Priority = len(t.rules)
	if r.Literal != "" {
		r.lit = []rune(r.Literal)
	}
	t.rules = append(t.rules, r)
}

var defaultTable = sync.OnceValue(func() *Table { return NewTable(config.NewConfig()) })

// Default returns the shared table for the default configuration.
func Default() *Table { return defaultTable() }

// WithKeywords returns a copy of t that reserves the words accepted by
// keywords instead of the Decaf set. t itself is unchanged.
func (t *Table) WithKeywords(keywords KeywordFunc) *Table {
	c := *t
	c.keywords = keywords
	return &c
}

// Rules returns a copy of the entries in priority order.
func (t *Table) Rules() []Rule { return slices.Clone(t.rules) }

// Longest selects the rule with the longest match at pos. Ties go to the
// rule declared first. ok is false when nothing matches, including at or
// past the end of src.
func (t *Table) Longest(src []rune, pos int) (rule Rule, n int, ok bool) {
	if pos < 0 || pos >= len(src) {
		return Rule{}, 0, false
	}
	for _, r := range t.rules {
		if l := r.Length(src, pos); l > n {
			rule, n, ok = r, l, true
		}
	}
	return rule, n, ok
}

// ResolveIdent returns the kind of an identifier-shaped word.
func (t *Table) ResolveIdent(word string) token.Type {
	if t.singleCharIdent && utf8.RuneCountInString(word) == 1 {
		return token.Ident
	}
	if t.keywords == nil {
		return token.Ident
	}
	if typ, ok := t.keywords(word); ok {
		return typ
	}
	return token.Ident
}

func isDigit(c rune) bool  { return c >= '0' && c <= '9' }
func isLetter(c rune) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' }

func matchChar(src []rune, pos int) int {
	if pos+2 >= len(src) || src[pos] != '\'' {
		return 0
	}
	switch c := src[pos+1]; c {
	case '\\':
		if pos+3 < len(src) && src[pos+2] != '\n' && src[pos+3] == '\'' {
			return 4
		}
	case '\'':
	default:
		if src[pos+2] == '\'' {
			return 3
		}
	}
	return 0
}

func matchString(src []rune, pos int) int {
	if pos >= len(src) || src[pos] != '"' {
		return 0
	}
	for i := pos + 1; i < len(src); i++ {
		switch src[i] {
		case '"':
			return i + 1 - pos
		case '\\':
			if i+1 >= len(src) || src[i+1] == '\n' {
				return 0
			}
			i++
		}
	}
	return 0
}

func matchDigits(src []rune, pos int) int {
	i := pos
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	return i - pos
}

func matchIdent(src []rune, pos int) int {
	if pos >= len(src) || !isLetter(src[pos]) {
		return 0
	}
	i := pos + 1
	for i < len(src) && (isLetter(src[i]) || isDigit(src[i])) {
		i++
	}
	return i - pos
}

func matchRun(src []rune, pos int, in func(rune) bool) int {
	i := pos
	for i < len(src) && in(src[i]) {
		i++
	}
	return i - pos
}

func matchBlanks(src []rune, pos int) int {
	return matchRun(src, pos, func(c rune) bool { return c == ' ' || c == '\t' })
}

func matchBlanksCR(src []rune, pos int) int {
	return matchRun(src, pos, func(c rune) bool { return c == ' ' || c == '\t' || c == '\r' })
}

func matchNewlines(src []rune, pos int) int {
	return matchRun(src, pos, func(c rune) bool { return c == '\n' })
}

func matchComment(src []rune, pos int) int {
	if pos+1 >= len(src) || src[pos] != '/' {
		return 0
	}
	switch src[pos+1] {
	case '/':
		return 2 + matchRun(src, pos+2, func(c rune) bool { return c != '\n' })
	case '*':
		for i := pos + 2; i+1 < len(src); i++ {
			if src[i] == '*' && src[i+1] == '/' {
				return i + 2 - pos
			}
		}
	}
	return 0
}
