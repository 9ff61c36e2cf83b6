package cel

import "testing"

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := Scan(src)
	var toks []Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan(%q): unexpected error: %v", src, err)
	}
	return toks
}

func TestScanPunctAndOperators(t *testing.T) {
	toks := scanAll(t, "== != <= >= && || + - * / % . , : ? ( ) [ ] { }")
	want := []rune{
		Eq, Ne, Le, Ge, And, Or, Add, Sub, Mul, Div, Mod,
		Dot, Comma, Colon, Question, Lparen, Rparen, Lsquare, Rsquare, Lcurly, Rcurly, EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v, want %v", i, toks[i], w)
		}
	}
}

func TestScanIdentifiersKeywordsReserved(t *testing.T) {
	toks := scanAll(t, "foo true false null in let")
	wantTypes := []rune{Ident, Boolean, Boolean, TokNull, In, Reserved}
	for i, w := range wantTypes {
		if toks[i].Type != w {
			t.Errorf("token %d (%q): got %v, want %v", i, toks[i].Literal, toks[i].Type, w)
		}
	}
}

func TestScanNumbers(t *testing.T) {
	cases := []struct {
		src  string
		kind rune
	}{
		{"42", TokInt},
		{"0x2A", TokInt},
		{"42u", TokUint},
		{"3.14", TokDouble},
		{"1e10", TokDouble},
		{"1.5e-3", TokDouble},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		if toks[0].Type != c.kind {
			t.Errorf("%q: got %v, want %v", c.src, toks[0].Type, c.kind)
		}
	}
}

func TestScanStrings(t *testing.T) {
	toks := scanAll(t, `"hello\nworld"`)
	if toks[0].Type != Text {
		t.Fatalf("got %v, want Text", toks[0].Type)
	}
	if toks[0].Literal != "hello\nworld" {
		t.Errorf("got %q, want %q", toks[0].Literal, "hello\nworld")
	}
}

func TestScanOctalEscape(t *testing.T) {
	toks := scanAll(t, `"\101"`)
	if toks[0].Literal != "A" {
		t.Errorf("got %q, want %q", toks[0].Literal, "A")
	}
}

func TestScanNegativeHexLiteral(t *testing.T) {
	toks := scanAll(t, "-0x10")
	if toks[0].Type != Sub || toks[1].Type != TokInt || toks[1].Literal != "0x10" {
		t.Fatalf("got %v %v", toks[0], toks[1])
	}
}

func TestScanRawString(t *testing.T) {
	toks := scanAll(t, `r"a\nb"`)
	if toks[0].Type != Text {
		t.Fatalf("got %v, want Text", toks[0].Type)
	}
	if toks[0].Literal != `a\nb` {
		t.Errorf("raw string decoded escapes: got %q", toks[0].Literal)
	}
}

func TestScanBytesString(t *testing.T) {
	toks := scanAll(t, `b"ab"`)
	if toks[0].Type != TokBytes {
		t.Fatalf("got %v, want Bytes", toks[0].Type)
	}
	if toks[0].Literal != "ab" {
		t.Errorf("got %q", toks[0].Literal)
	}
}

func TestScanTripleQuoted(t *testing.T) {
	toks := scanAll(t, `"""a
b"""`)
	if toks[0].Type != Text {
		t.Fatalf("got %v, want Text", toks[0].Type)
	}
	if toks[0].Literal != "a\nb" {
		t.Errorf("got %q", toks[0].Literal)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	s := Scan(`"abc`)
	tok := s.Next()
	if tok.Type != Invalid {
		t.Fatalf("got %v, want Invalid", tok.Type)
	}
	if s.Err() == nil {
		t.Fatal("expected an error")
	}
}

func TestScanUnknownEscape(t *testing.T) {
	s := Scan(`"\q"`)
	tok := s.Next()
	if tok.Type != Invalid {
		t.Fatalf("got %v, want Invalid", tok.Type)
	}
	if s.Err() == nil {
		t.Fatal("expected an error")
	}
}

func TestScanUnexpectedCharacter(t *testing.T) {
	s := Scan("@")
	tok := s.Next()
	if tok.Type != Invalid {
		t.Fatalf("got %v, want Invalid", tok.Type)
	}
	if s.Err() == nil {
		t.Fatal("expected an error")
	}
}

func TestScanNotOperatorLeadsToNe(t *testing.T) {
	toks := scanAll(t, "!a != b")
	if toks[0].Type != Not {
		t.Fatalf("got %v, want Not", toks[0].Type)
	}
	if toks[2].Type != Ne {
		t.Fatalf("got %v, want Ne", toks[2].Type)
	}
}
