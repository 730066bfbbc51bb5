// Package display renders scanner output in the classic listing format:
//
//	<value>     line <line> Cols <start> - <end>  is  <kind>
package display

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"unicode/utf8"

	"github.com/decaf-lang/dscan/pkg/lexer"
	"github.com/decaf-lang/dscan/pkg/token"
)

// Token renders one listing line, without the trailing newline.
func Token(tok token.Token) string {
	return fmt.Sprintf("%s     line %d Cols %d - %d  is  %s", tok.Value, tok.Line, tok.Column, tok.EndColumn, Kind(tok))
}

// Kind renders the right-hand side of a listing line. String and integer
// constants carry their value; one-character tokens show the character
// quoted, except identifiers, which show their quoted kind.
func Kind(tok token.Token) string {
	switch {
	case tok.Type == token.StringConstant || tok.Type == token.IntConstant:
		return fmt.Sprintf("%s (value= %s)", tok.Type, tok.Value)
	case utf8.RuneCountInString(tok.Value) == 1:
		if tok.Type == token.Ident {
			return "'" + tok.Type.String() + "'"
		}
		return "'" + tok.Value + "'"
	default:
		return tok.Type.String()
	}
}

func Illegal(err *lexer.IllegalCharError) string {
	return fmt.Sprintf("Illegal character '%c'", err.Char)
}

// Write prints every item of seq to w, one per line, and returns the
// illegal characters seen. Errors other than *lexer.IllegalCharError
// stop the listing.
func Write(w io.Writer, seq iter.Seq2[token.Token, error]) ([]*lexer.IllegalCharError, error) {
	var illegal []*lexer.IllegalCharError
	for tok, err := range seq {
		line := ""
		if err != nil {
			var ice *lexer.IllegalCharError
			if !errors.As(err, &ice) {
				return illegal, err
			}
			illegal = append(illegal, ice)
			line = Illegal(ice)
		} else {
			line = Token(tok)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return illegal, fmt.Errorf("writing listing: %w", err)
		}
	}
	return illegal, nil
}
