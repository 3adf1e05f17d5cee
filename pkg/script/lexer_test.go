package script

import (
	"testing"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLex_RangeDoesNotEatDots(t *testing.T) {
	toks, err := Lex("0..10")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []TokenKind{TokenNumber, TokenDotDot, TokenNumber, TokenEOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", got, want)
		}
	}
	if toks[0].Text != "0" || toks[2].Text != "10" {
		t.Fatalf("bounds = %q, %q", toks[0].Text, toks[2].Text)
	}
}

func TestLex_FractionStillWorks(t *testing.T) {
	toks, err := Lex("0.5")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if toks[0].Kind != TokenNumber || toks[0].Text != "0.5" {
		t.Fatalf("got %v %q", toks[0].Kind, toks[0].Text)
	}
}

func TestLex_StringEscapes(t *testing.T) {
	toks, err := Lex(`"a\r\n\t\"\\"`)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if got := toks[0].Text; got != "a\r\n\t\"\\" {
		t.Fatalf("decoded = %q", got)
	}
}

func TestLex_RawString(t *testing.T) {
	toks, err := Lex("`no \\escapes\nhere`")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if got := toks[0].Text; got != "no \\escapes\nhere" {
		t.Fatalf("raw = %q", got)
	}
}

func TestLex_HexLiteral(t *testing.T) {
	toks, err := Lex("0xFF")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if toks[0].Kind != TokenNumber || toks[0].Text != "0xFF" {
		t.Fatalf("got %v %q", toks[0].Kind, toks[0].Text)
	}
}

func TestLex_Comments(t *testing.T) {
	toks, err := Lex("1 // line\n/* block\nstill block */ 2")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	got := kinds(toks)
	if len(got) != 3 || got[0] != TokenNumber || got[1] != TokenNumber || got[2] != TokenEOF {
		t.Fatalf("kinds = %v", got)
	}
}

func TestLex_UnterminatedString(t *testing.T) {
	if _, err := Lex(`"half`); err == nil {
		t.Fatal("expected error for unterminated string")
	}
	if _, err := Lex("`half"); err == nil {
		t.Fatal("expected error for unterminated raw string")
	}
}

func TestLex_PositionsAreOneBased(t *testing.T) {
	toks, err := Lex("let x = 1\nlet y = 2")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if toks[0].Pos != (Pos{Line: 1, Col: 1}) {
		t.Fatalf("first token at %s", toks[0].Pos)
	}
	// second "let"
	if toks[4].Pos != (Pos{Line: 2, Col: 1}) {
		t.Fatalf("second let at %s", toks[4].Pos)
	}
}
