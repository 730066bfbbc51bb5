package token

import "testing"

func TestTypeNames(t *testing.T) {
	for typ := Type(0); typ < typeCount; typ++ {
		if typeNames[typ] == "" {
			t.Errorf("type %d has no name", typ)
		}
	}
	cases := map[Type]string{
		IntConstant: "T_IntConstant",
		LessEqual:   "T_LessEqual",
		Print:       "T_Print",
		Int:         "T_Int",
		Ident:       "T_IDENTIFIER",
		Type(-1):    "T_UNKNOWN",
		typeCount:   "T_UNKNOWN",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("Type(%d).String() = %q, want %q", typ, got, want)
		}
	}
}

func TestKeywords(t *testing.T) {
	reserved := 0
	for typ := Int; typ <= Print; typ++ {
		word := typ.Spelling()
		if word == "" {
			t.Errorf("keyword %v has no spelling", typ)
			continue
		}
		got, ok := LookupKeyword(word, true)
		if !ok || got != typ {
			t.Errorf("LookupKeyword(%q) = %v, %v; want %v", word, got, ok, typ)
		}
		if _, ok := LookupKeyword(word, false); ok {
			reserved++
		}
	}
	if reserved != 18 || KeywordCount() != 18 {
		t.Errorf("expected 18 reserved words, got %d (KeywordCount %d)", reserved, KeywordCount())
	}
	if Ident.Spelling() != "" || Geq.Spelling() != "" {
		t.Error("non-keyword kinds have no spelling")
	}
	if _, ok := LookupKeyword("func", false); ok {
		t.Error("func reserved without the func keyword")
	}
	if typ, ok := LookupKeyword("func", true); !ok || typ != Func {
		t.Errorf("LookupKeyword(func, true) = %v, %v", typ, ok)
	}
	if _, ok := LookupKeyword("If", true); ok {
		t.Error("keywords are case sensitive")
	}
}
