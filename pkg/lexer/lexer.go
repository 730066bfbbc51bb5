package lexer

import (
	"fmt"
	"iter"
	"math"
	"math/big"
	"strconv"

	"github.com/decaf-lang/dscan/pkg/rules"
	"github.com/decaf-lang/dscan/pkg/token"
)

// IllegalCharError reports a character no rule matches. The lexer skips it
// and keeps going.
type IllegalCharError struct {
	Char   rune
	Offset int
	Line   int
	Column int
}

func (e *IllegalCharError) Error() string {
	return fmt.Sprintf("%d:%d: illegal character '%c'", e.Line, e.Column, e.Char)
}

type Lexer struct {
	source    []rune
	table     *rules.Table
	pos       int
	line      int
	lineStart int
}

func NewLexer(source []rune, table *rules.Table) *Lexer {
	if table == nil {
		table = rules.Default()
	}
	return &Lexer{source: source, table: table, line: 1}
}

// Next returns the next token. At the end of input it returns an EOF token;
// for an unmatched character it returns a zero token and an *IllegalCharError.
func (l *Lexer) Next() (token.Token, error) {
	for {
		if l.isAtEnd() {
			return token.Token{Type: token.EOF, Offset: l.pos, Line: l.line, Column: l.column(l.pos)}, nil
		}

		startPos, startLine, startCol := l.pos, l.line, l.column(l.pos)
		rule, n, ok := l.table.Longest(l.source, l.pos)
		if !ok {
			err := &IllegalCharError{Char: l.source[startPos], Offset: startPos, Line: startLine, Column: startCol}
			l.advance(1)
			return token.Token{}, err
		}

		l.advance(n)
		if rule.Action == rules.Discard {
			continue
		}
		return l.makeToken(rule, startPos, startLine, startCol), nil
	}
}

// All yields every token and illegal-character error until the end of input.
// Stopping early has no effect beyond leaving the lexer mid-source.
func (l *Lexer) All() iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		for {
			tok, err := l.Next()
			if err == nil && tok.Type == token.EOF {
				return
			}
			if !yield(tok, err) {
				return
			}
		}
	}
}

// Scan lexes source with table (rules.Default() if nil). Each call starts a
// fresh lexer, so ranging twice produces the same sequence.
func Scan(source string, table *rules.Table) iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		NewLexer([]rune(source), table).All()(yield)
	}
}

// Tokenize collects the whole of Scan.
func Tokenize(source string, table *rules.Table) ([]token.Token, []error) {
	var toks []token.Token
	var errs []error
	for tok, err := range Scan(source, table) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		toks = append(toks, tok)
	}
	return toks, errs
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) column(pos int) int { return pos - l.lineStart + 1 }

// advance moves past n runes, counting any newlines among them.
func (l *Lexer) advance(n int) {
	end := l.pos + n
	for i := l.pos; i < end; i++ {
		if l.source[i] == '\n' {
			l.line++
			l.lineStart = i + 1
		}
	}
	l.pos = end
}

func (l *Lexer) makeToken(rule rules.Rule, startPos, startLine, startCol int) token.Token {
	text := string(l.source[startPos:l.pos])
	tok := token.Token{
		Type: rule.Type, Text: text, Value: text,
		Offset: startPos, Line: startLine, Column: startCol, Len: l.pos - startPos,
	}

	switch rule.Action {
	case rules.Keyword:
		tok.Type = l.table.ResolveIdent(text)
	case rules.CharLit:
		tok.Value = "(char_lit=" + text + ")"
	case rules.Integer:
		tok.Int, tok.Value, tok.Overflow = parseInt(text)
		tok.EndColumn = startCol
		return tok
	}
	tok.EndColumn = startCol + tok.Len - 1
	return tok
}

// parseInt decodes a run of decimal digits. Values past int64 keep their
// exact decimal spelling and report overflow.
func parseInt(digits string) (int64, string, bool) {
	val, err := strconv.ParseInt(digits, 10, 64)
	if err == nil {
		return val, strconv.FormatInt(val, 10), false
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return 0, "0", false
	}
	return math.MaxInt64, n.String(), true
}
