package cel

import "fmt"

// Token kinds recognised by the scanner. Modeled on the teacher's rune-keyed
// token constant blocks (eval/scanner.go, play/token.go).
const (
	EOF rune = -(iota + 1)
	Invalid

	Ident
	Reserved
	TokInt
	TokUint
	TokDouble
	Text
	TokBytes
	Boolean
	TokNull

	Dot
	Comma
	Colon
	Question
	Lparen
	Rparen
	Lsquare
	Rsquare
	Lcurly
	Rcurly

	Not
	Add
	Sub
	Mul
	Div
	Mod

	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	And
	Or
	In
)

var keywords = map[string]rune{
	"true":  Boolean,
	"false": Boolean,
	"null":  TokNull,
	"in":    In,
}

// reserved words that cannot be used as identifiers but are not otherwise
// meaningful tokens yet (spec.md 4.1).
var reservedWords = map[string]bool{
	"as": true, "break": true, "const": true, "continue": true,
	"else": true, "for": true, "function": true, "if": true,
	"import": true, "let": true, "loop": true, "package": true,
	"namespace": true, "return": true, "var": true, "void": true,
	"while": true,
}

// Position locates a token in the source text.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexical unit produced by the Scanner.
type Token struct {
	Type    rune
	Literal string
	Raw     bool // string/bytes literal used the r/R prefix
	Position
}

func (t Token) String() string {
	var prefix string
	switch t.Type {
	case EOF:
		return "<eof>"
	case Dot:
		return "<dot>"
	case Comma:
		return "<comma>"
	case Colon:
		return "<colon>"
	case Question:
		return "<question>"
	case Lparen:
		return "<lparen>"
	case Rparen:
		return "<rparen>"
	case Lsquare:
		return "<lsquare>"
	case Rsquare:
		return "<rsquare>"
	case Lcurly:
		return "<lcurly>"
	case Rcurly:
		return "<rcurly>"
	case Not:
		return "<not>"
	case Add:
		return "<add>"
	case Sub:
		return "<sub>"
	case Mul:
		return "<mul>"
	case Div:
		return "<div>"
	case Mod:
		return "<mod>"
	case Eq:
		return "<eq>"
	case Ne:
		return "<ne>"
	case Lt:
		return "<lt>"
	case Le:
		return "<le>"
	case Gt:
		return "<gt>"
	case Ge:
		return "<ge>"
	case And:
		return "<and>"
	case Or:
		return "<or>"
	case In:
		return "<in>"
	case Ident:
		prefix = "identifier"
	case Reserved:
		prefix = "reserved"
	case TokInt:
		prefix = "int"
	case TokUint:
		prefix = "uint"
	case TokDouble:
		prefix = "double"
	case Text:
		prefix = "string"
	case TokBytes:
		prefix = "bytes"
	case Boolean:
		prefix = "bool"
	case TokNull:
		return "<null>"
	case Invalid:
		prefix = "invalid"
	default:
		prefix = "unknown"
	}
	return fmt.Sprintf("%s(%s)", prefix, t.Literal)
}
