package token

type Type int

const (
	EOF Type = iota
	Illegal
	Newline
	Whitespace
	Comment
	Ident
	IntConstant
	StringConstant
	CharConstant
	// Keywords
	Int
	BoolType
	Void
	StringType
	If
	Else
	For
	Return
	True
	False
	Null
	While
	Break
	Continue
	Extern
	Package
	Var
	Func
	Print
	// Operators and delimiters
	And
	Assign
	Comma
	Div
	Dot
	Eq
	Geq
	Gt
	LCB
	LeftShift
	LessEqual
	LParen
	LSB
	Lt
	Minus
	Mod
	Mult
	Neq
	Not
	Or
	Plus
	RCB
	RightShift
	RParen
	RSB
	Semicolon
	typeCount
)

var typeNames = [typeCount]string{
	EOF:            "EOF",
	Illegal:        "ILLEGAL",
	Newline:        "T_NEWLINE",
	Whitespace:     "T_WHITESPACE",
	Comment:        "T_COMMENT",
	Ident:          "T_IDENTIFIER",
	IntConstant:    "T_IntConstant",
	StringConstant: "T_STRINGCONSTANT",
	CharConstant:   "T_CHARCONSTANT",
	Int:            "T_Int",
	BoolType:       "T_BOOLTYPE",
	Void:           "T_VOID",
	StringType:     "T_STRINGTYPE",
	If:             "T_IF",
	Else:           "T_ELSE",
	For:            "T_FOR",
	Return:         "T_RETURN",
	True:           "T_TRUE",
	False:          "T_FALSE",
	Null:           "T_NULL",
	While:          "T_WHILE",
	Break:          "T_BREAK",
	Continue:       "T_CONTINUE",
	Extern:         "T_EXTERN",
	Package:        "T_PACKAGE",
	Var:            "T_VAR",
	Func:           "T_FUNC",
	Print:          "T_Print",
	And:            "T_AND",
	Assign:         "T_ASSIGN",
	Comma:          "T_COMMA",
	Div:            "T_DIV",
	Dot:            "T_DOT",
	Eq:             "T_EQ",
	Geq:            "T_GEQ",
	Gt:             "T_GT",
	LCB:            "T_LCB",
	LeftShift:      "T_LEFTSHIFT",
	LessEqual:      "T_LessEqual",
	LParen:         "T_LPAREN",
	LSB:            "T_LSB",
	Lt:             "T_LT",
	Minus:          "T_MINUS",
	Mod:            "T_MOD",
	Mult:           "T_MULT",
	Neq:            "T_NEQ",
	Not:            "T_NOT",
	Or:             "T_OR",
	Plus:           "T_PLUS",
	RCB:            "T_RCB",
	RightShift:     "T_RIGHTSHIFT",
	RParen:         "T_RPAREN",
	RSB:            "T_RSB",
	Semicolon:      "T_SEMICOLON",
}

// String returns the kind name used in scanner listings, e.g. "T_GEQ".
func (t Type) String() string {
	if t < 0 || t >= typeCount {
		return "T_UNKNOWN"
	}
	return typeNames[t]
}

// IsKeyword reports whether t is one of the reserved-word kinds.
func (t Type) IsKeyword() bool { return t >= Int && t <= Print }

// keywords holds the reserved spellings. It is read-only after init; use
// LookupKeyword. "func" is not reserved by default, see FuncKeyword.
var keywords = map[string]Type{
	"int":      Int,
	"bool":     BoolType,
	"void":     Void,
	"string":   StringType,
	"if":       If,
	"else":     Else,
	"for":      For,
	"return":   Return,
	"true":     True,
	"false":    False,
	"null":     Null,
	"while":    While,
	"break":    Break,
	"continue": Continue,
	"extern":   Extern,
	"package":  Package,
	"var":      Var,
	"Print":    Print,
}

// FuncKeyword is the spelling reserved for Func when the func-keyword feature is on.
const FuncKeyword = "func"

var spellings = make(map[Type]string)

func init() {
	for str, typ := range keywords {
		spellings[typ] = str
	}
	spellings[Func] = FuncKeyword
}

// Spelling returns the source spelling of a keyword kind, or "" for any
// other kind.
func (t Type) Spelling() string { return spellings[t] }

// KeywordCount is the number of words reserved without the func keyword.
func KeywordCount() int { return len(keywords) }

// LookupKeyword returns the keyword kind for word, if it is reserved.
func LookupKeyword(word string, withFunc bool) (Type, bool) {
	if withFunc && word == FuncKeyword {
		return Func, true
	}
	typ, ok := keywords[word]
	return typ, ok
}

type Token struct {
	Type      Type
	Text      string // exact source text
	Value     string // display payload
	Int       int64
	Overflow  bool
	Offset    int
	Line      int
	Column    int
	EndColumn int
	Len       int
}
