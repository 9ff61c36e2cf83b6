package cel

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// cursor tracks the scanner's position in the input, mirroring the
// teacher's rune-at-a-time cursor (eval/scanner.go's cursor type).
type cursor struct {
	char rune
	curr int
	next int
	Position
}

// Scanner turns source text into a stream of Tokens. It is a byte-buffer,
// rune-cursor lexer in the same shape as the teacher's eval.Scanner, with
// CEL's fuller literal grammar layered on top (hex/uint integers, double
// exponents, raw/triple-quoted/byte strings, the full escape table).
type Scanner struct {
	input []byte
	cursor

	buf bytes.Buffer
	err error
}

// Scan creates a Scanner over src.
func Scan(src string) *Scanner {
	s := &Scanner{input: []byte(src)}
	s.cursor.Line = 1
	s.read()
	return s
}

// Next returns the next Token in the stream. It always terminates with an
// EOF token once the input is exhausted.
func (s *Scanner) Next() Token {
	s.skipBlank()

	var tok Token
	tok.Position = s.cursor.Position

	switch {
	case s.done():
		tok.Type = EOF
	case s.stringPrefixLen() >= 0:
		s.scanString(&tok)
	case isLetter(s.char):
		s.scanIdent(&tok)
	case isDigit(s.char):
		s.scanNumber(&tok)
	default:
		s.scanPunct(&tok)
	}
	return tok
}

// Err returns the first lexical error encountered, if any.
func (s *Scanner) Err() error {
	return s.err
}

func (s *Scanner) scanIdent(tok *Token) {
	s.buf.Reset()
	for !s.done() && isAlnum(s.char) {
		s.buf.WriteRune(s.char)
		s.read()
	}
	lit := s.buf.String()
	tok.Literal = lit
	switch {
	case keywords[lit] != 0:
		tok.Type = keywords[lit]
	case reservedWords[lit]:
		tok.Type = Reserved
	default:
		tok.Type = Ident
	}
}

func (s *Scanner) scanNumber(tok *Token) {
	s.buf.Reset()
	tok.Type = TokInt

	if s.char == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		s.buf.WriteRune(s.char)
		s.read()
		s.buf.WriteRune(s.char)
		s.read()
		for !s.done() && isHex(s.char) {
			s.buf.WriteRune(s.char)
			s.read()
		}
	} else {
		for !s.done() && isDigit(s.char) {
			s.buf.WriteRune(s.char)
			s.read()
		}
		if s.char == '.' && isDigit(s.peek()) {
			tok.Type = TokDouble
			s.buf.WriteRune(s.char)
			s.read()
			for !s.done() && isDigit(s.char) {
				s.buf.WriteRune(s.char)
				s.read()
			}
		}
		if s.char == 'e' || s.char == 'E' {
			tok.Type = TokDouble
			s.buf.WriteRune(s.char)
			s.read()
			if s.char == '+' || s.char == '-' {
				s.buf.WriteRune(s.char)
				s.read()
			}
			for !s.done() && isDigit(s.char) {
				s.buf.WriteRune(s.char)
				s.read()
			}
		}
	}

	if tok.Type == TokInt && (s.char == 'u' || s.char == 'U') {
		tok.Type = TokUint
		s.read()
	}
	tok.Literal = s.buf.String()
}

// scanString handles string and bytes literals, with optional r/R (raw)
// and b/B (bytes) prefixes in either order, and single/double/triple
// quoting, per spec.md 4.1.
func (s *Scanner) scanString(tok *Token) {
	var raw, isBytes bool
	for isPrefixLetter(s.char) {
		switch s.char {
		case 'r', 'R':
			raw = true
		case 'b', 'B':
			isBytes = true
		}
		s.read()
	}

	quote := s.char
	triple := s.peek() == quote && s.peekAt(2) == quote
	s.read()
	if triple {
		s.read()
		s.read()
	}

	s.buf.Reset()
	for {
		if s.done() {
			s.err = fmt.Errorf("%s: unterminated string literal", tok.Position)
			tok.Type = Invalid
			tok.Literal = s.err.Error()
			return
		}
		if s.char == quote {
			if !triple {
				s.read()
				break
			}
			if s.peek() == quote && s.peekAt(2) == quote {
				s.read()
				s.read()
				s.read()
				break
			}
		}
		if s.char == '\\' && !raw {
			if err := s.decodeEscape(isBytes); err != nil {
				s.err = err
				tok.Type = Invalid
				tok.Literal = err.Error()
				return
			}
			continue
		}
		s.buf.WriteRune(s.char)
		s.read()
	}

	tok.Raw = raw
	tok.Literal = s.buf.String()
	if isBytes {
		tok.Type = TokBytes
	} else {
		tok.Type = Text
	}
}

// decodeEscape consumes a backslash escape sequence and appends its decoded
// form to s.buf. Grounded on the escape table of spec.md 4.1.
func (s *Scanner) decodeEscape(isBytes bool) error {
	pos := s.cursor.Position
	s.read() // consume backslash
	if s.done() {
		return fmt.Errorf("%s: unterminated escape sequence", pos)
	}
	switch s.char {
	case '\\', '"', '\'', '`', '?':
		s.buf.WriteRune(s.char)
		s.read()
	case 'a':
		s.buf.WriteByte(0x07)
		s.read()
	case 'b':
		s.buf.WriteByte(0x08)
		s.read()
	case 'f':
		s.buf.WriteByte(0x0C)
		s.read()
	case 'n':
		s.buf.WriteByte(0x0A)
		s.read()
	case 'r':
		s.buf.WriteByte(0x0D)
		s.read()
	case 't':
		s.buf.WriteByte(0x09)
		s.read()
	case 'v':
		s.buf.WriteByte(0x0B)
		s.read()
	case 'x', 'X':
		s.read()
		v, err := s.readHex(2, pos)
		if err != nil {
			return err
		}
		s.writeCodepoint(rune(v), isBytes)
	case 'u':
		s.read()
		v, err := s.readHex(4, pos)
		if err != nil {
			return err
		}
		s.writeCodepoint(rune(v), isBytes)
	case 'U':
		s.read()
		v, err := s.readHex(8, pos)
		if err != nil {
			return err
		}
		s.writeCodepoint(rune(v), isBytes)
	case '0', '1', '2', '3':
		v, err := s.readOctal(pos)
		if err != nil {
			return err
		}
		s.writeCodepoint(rune(v), isBytes)
	default:
		return fmt.Errorf("%s: unknown escape sequence \\%c", pos, s.char)
	}
	return nil
}

func (s *Scanner) writeCodepoint(r rune, isBytes bool) {
	if isBytes {
		s.buf.WriteByte(byte(r))
		return
	}
	s.buf.WriteRune(r)
}

func (s *Scanner) readHex(n int, pos Position) (int64, error) {
	var v int64
	for i := 0; i < n; i++ {
		if s.done() || !isHex(s.char) {
			return 0, fmt.Errorf("%s: expected %d hex digits", pos, n)
		}
		v = v*16 + int64(hexVal(s.char))
		s.read()
	}
	return v, nil
}

func (s *Scanner) readOctal(pos Position) (int64, error) {
	var v int64
	for i := 0; i < 3; i++ {
		if s.done() || s.char < '0' || s.char > '7' {
			return 0, fmt.Errorf("%s: expected 3 octal digits", pos)
		}
		v = v*8 + int64(s.char-'0')
		s.read()
	}
	if v > 255 {
		return 0, fmt.Errorf("%s: octal escape out of range", pos)
	}
	return v, nil
}

func (s *Scanner) scanPunct(tok *Token) {
	c := s.char
	tok.Type = Invalid
	tok.Literal = string(c)
	switch c {
	case '.':
		tok.Type = Dot
	case ',':
		tok.Type = Comma
	case ':':
		tok.Type = Colon
	case '?':
		tok.Type = Question
	case '(':
		tok.Type = Lparen
	case ')':
		tok.Type = Rparen
	case '[':
		tok.Type = Lsquare
	case ']':
		tok.Type = Rsquare
	case '{':
		tok.Type = Lcurly
	case '}':
		tok.Type = Rcurly
	case '+':
		tok.Type = Add
	case '-':
		tok.Type = Sub
	case '*':
		tok.Type = Mul
	case '/':
		tok.Type = Div
	case '%':
		tok.Type = Mod
	case '!':
		tok.Type = Not
		if s.peek() == '=' {
			s.read()
			tok.Type = Ne
		}
	case '=':
		tok.Type = Invalid
		if s.peek() == '=' {
			s.read()
			tok.Type = Eq
		}
	case '<':
		tok.Type = Lt
		if s.peek() == '=' {
			s.read()
			tok.Type = Le
		}
	case '>':
		tok.Type = Gt
		if s.peek() == '=' {
			s.read()
			tok.Type = Ge
		}
	case '&':
		tok.Type = Invalid
		if s.peek() == '&' {
			s.read()
			tok.Type = And
		}
	case '|':
		tok.Type = Invalid
		if s.peek() == '|' {
			s.read()
			tok.Type = Or
		}
	}
	if tok.Type == Invalid {
		s.err = fmt.Errorf("%s: unexpected character %q", tok.Position, c)
		tok.Literal = s.err.Error()
	}
	s.read()
}

func (s *Scanner) done() bool {
	return s.char == utf8.RuneError && s.curr >= len(s.input)
}

func (s *Scanner) read() {
	if s.next >= len(s.input) {
		s.char = utf8.RuneError
		s.curr = len(s.input)
		return
	}
	r, n := utf8.DecodeRune(s.input[s.next:])
	if r == '\n' {
		s.cursor.Line++
		s.cursor.Column = 0
	}
	s.cursor.Column++
	s.char, s.curr, s.next = r, s.next, s.next+n
	s.cursor.Offset = s.curr
}

func (s *Scanner) peek() rune {
	return s.peekAt(1)
}

func (s *Scanner) peekAt(n int) rune {
	off := s.next
	var r rune
	for i := 0; i < n; i++ {
		if off >= len(s.input) {
			return utf8.RuneError
		}
		var sz int
		r, sz = utf8.DecodeRune(s.input[off:])
		off += sz
	}
	return r
}

func (s *Scanner) skipBlank() {
	for !s.done() && isBlank(s.char) {
		s.read()
	}
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlnum(r rune) bool {
	return isLetter(r) || isDigit(r)
}

func isHex(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	default:
		return int(r-'A') + 10
	}
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isQuote(r rune) bool {
	return r == '\'' || r == '"'
}

func isPrefixLetter(r rune) bool {
	return r == 'r' || r == 'R' || r == 'b' || r == 'B'
}

func isRawLetter(r rune) bool {
	return r == 'r' || r == 'R'
}

// stringPrefixLen reports how many raw/bytes prefix letters precede a
// string/bytes literal at the current position (0, 1 or 2), or -1 if the
// scanner is not looking at a string/bytes literal at all. It requires an
// actual quote after the prefix so identifiers like "raw" or "rb" are not
// misread as literal prefixes.
func (s *Scanner) stringPrefixLen() int {
	c0 := s.char
	if isQuote(c0) {
		return 0
	}
	if !isPrefixLetter(c0) {
		return -1
	}
	c1 := s.peek()
	if isQuote(c1) {
		return 1
	}
	if isPrefixLetter(c1) && isRawLetter(c0) != isRawLetter(c1) && isQuote(s.peekAt(2)) {
		return 2
	}
	return -1
}
