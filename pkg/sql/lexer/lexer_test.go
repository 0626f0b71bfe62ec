package lexer

import "testing"

func tokens(input string) []Token {
	l := New(input)
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == EOF {
			return out
		}
	}
}

func TestKeywordsAndIdentifiersPreserveCase(t *testing.T) {
	toks := tokens("SeLeCt Name FROM Users")
	want := []TokenType{SELECT, IDENTIFIER, FROM, IDENTIFIER, EOF}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(want), len(toks), toks)
	}
	for i, ty := range want {
		if toks[i].Type != ty {
			t.Fatalf("token %d: expected %s, got %s", i, ty, toks[i].Type)
		}
	}
	if toks[1].Value != "Name" {
		t.Fatalf("expected identifier to preserve case, got %q", toks[1].Value)
	}
	if toks[0].Upper != "SELECT" {
		t.Fatalf("expected keyword shadow SELECT, got %q", toks[0].Upper)
	}
}

func TestSymbols(t *testing.T) {
	toks := tokens("<= >= != <> = < > , ; ( ) . *")
	want := []TokenType{LE, GE, NEQ, NEQ, EQ, LT, GT, COMMA, SEMICOLON, LPAREN, RPAREN, DOT, ASTERISK, EOF}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(want), len(toks), toks)
	}
	for i, ty := range want {
		if toks[i].Type != ty {
			t.Fatalf("token %d: expected %s, got %s", i, ty, toks[i].Type)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	toks := tokens("30 -5 3.14 -0.5")
	want := []string{"30", "-5", "3.14", "-0.5"}
	for i, w := range want {
		if toks[i].Type != NUMBER || toks[i].Value != w {
			t.Fatalf("token %d: expected NUMBER %q, got %s %q", i, w, toks[i].Type, toks[i].Value)
		}
	}
}

func TestStringLiteralWithEscapedQuote(t *testing.T) {
	toks := tokens("'o''brien'")
	if toks[0].Type != STRING || toks[0].Value != "o'brien" {
		t.Fatalf("expected STRING o'brien, got %+v", toks[0])
	}
}

func TestUnterminatedStringYieldsEmptyStream(t *testing.T) {
	toks := tokens("SELECT 'unterminated")
	if len(toks) != 1 || toks[0].Type != EOF {
		t.Fatalf("expected an immediate EOF once the unterminated string is hit, got %+v", toks)
	}
}

func TestDotQualifiedIdentifier(t *testing.T) {
	l := New("e.id")
	first := l.NextToken()
	if first.Type != IDENTIFIER || first.Value != "e" {
		t.Fatalf("expected identifier e, got %+v", first)
	}
	second := l.NextToken()
	if second.Type != DOT {
		t.Fatalf("expected DOT, got %+v", second)
	}
	third := l.NextToken()
	if third.Type != IDENTIFIER || third.Value != "id" {
		t.Fatalf("expected identifier id, got %+v", third)
	}
}
