package cel

import (
	"fmt"
	"strconv"
)

// Binding power table, in the same shape as the teacher's play.bindings
// (play/parser.go), reordered to CEL's precedence ladder (spec.md 4.1):
// conditional is loosest, member/index postfix is tightest.
const (
	powLowest int = iota
	powTernary
	powOr
	powAnd
	powRel
	powAdd
	powMul
	powUnary
	powPostfix
)

var bindings = map[rune]int{
	Question: powTernary,
	Or:       powOr,
	And:      powAnd,
	Eq:       powRel,
	Ne:       powRel,
	Lt:       powRel,
	Le:       powRel,
	Gt:       powRel,
	Ge:       powRel,
	In:       powRel,
	Add:      powAdd,
	Sub:      powAdd,
	Mul:      powMul,
	Div:      powMul,
	Mod:      powMul,
	Dot:      powPostfix,
	Lsquare:  powPostfix,
}

// macroNames is the fixed set of comprehension macros spec.md 4.6 defines.
// A method call is only ever treated as a macro when its name is one of
// these AND it carries exactly two argument expressions; any other shape
// falls through to ordinary method dispatch, where the standard function
// table rejects these names outright (spec.md 4.3).
var macroNames = map[string]bool{
	"map": true, "filter": true, "all": true, "exists": true, "existsOne": true,
}

type (
	prefixFunc func() (Node, error)
	infixFunc  func(Node) (Node, error)
)

// Parser turns a token stream into an AST via Pratt (precedence-climbing)
// parsing, in the same shape as the teacher's play.Parser and eval.Parser
// (play/parser.go, eval/parser.go): a prefix table keyed by the token that
// starts an expression, an infix table keyed by the token that continues
// one, and a binding-power lookup driving parseExpression's loop.
type Parser struct {
	prefix map[rune]prefixFunc
	infix  map[rune]infixFunc

	scan *Scanner
	curr Token
	peek Token
}

// NewParser builds a Parser over src, primed with the two lookahead tokens
// the Pratt loop needs.
func NewParser(src string) *Parser {
	p := &Parser{
		scan:   Scan(src),
		prefix: make(map[rune]prefixFunc),
		infix:  make(map[rune]infixFunc),
	}

	p.registerPrefix(Not, p.parseNot)
	p.registerPrefix(Sub, p.parseNegate)
	p.registerPrefix(Ident, p.parseIdentOrCallOrStruct)
	p.registerPrefix(Reserved, p.parseIdentOrCallOrStruct)
	p.registerPrefix(Dot, p.parseQualifiedIdent)
	p.registerPrefix(TokInt, p.parseIntLiteral)
	p.registerPrefix(TokUint, p.parseUintLiteral)
	p.registerPrefix(TokDouble, p.parseDoubleLiteral)
	p.registerPrefix(Text, p.parseStringLiteral)
	p.registerPrefix(TokBytes, p.parseBytesLiteral)
	p.registerPrefix(Boolean, p.parseBoolLiteral)
	p.registerPrefix(TokNull, p.parseNullLiteral)
	p.registerPrefix(Lparen, p.parseGroup)
	p.registerPrefix(Lsquare, p.parseList)
	p.registerPrefix(Lcurly, p.parseMap)

	p.registerInfix(Dot, p.parseSelectOrMethodCall)
	p.registerInfix(Lsquare, p.parseIndex)
	p.registerInfix(Question, p.parseConditional)
	p.registerInfix(Add, p.parseBinary)
	p.registerInfix(Sub, p.parseBinary)
	p.registerInfix(Mul, p.parseBinary)
	p.registerInfix(Div, p.parseBinary)
	p.registerInfix(Mod, p.parseBinary)
	p.registerInfix(And, p.parseBinary)
	p.registerInfix(Or, p.parseBinary)
	p.registerInfix(Eq, p.parseBinary)
	p.registerInfix(Ne, p.parseBinary)
	p.registerInfix(Lt, p.parseBinary)
	p.registerInfix(Le, p.parseBinary)
	p.registerInfix(Gt, p.parseBinary)
	p.registerInfix(Ge, p.parseBinary)
	p.registerInfix(In, p.parseBinary)

	p.next()
	p.next()
	return p
}

// Parse consumes the whole token stream as a single expression, failing if
// anything trails the expression (spec.md 4.1: a program is one expression).
func Parse(src string) (Node, error) {
	p := NewParser(src)
	expr, err := p.parseExpression(powLowest)
	if err != nil {
		return nil, err
	}
	if err := p.scan.Err(); err != nil {
		return nil, &ParseError{Position: p.curr.Position, Err: ErrSyntax, Msg: err.Error()}
	}
	if !p.is(EOF) {
		return nil, p.unexpected()
	}
	return expr, nil
}

func (p *Parser) parseExpression(pow int) (Node, error) {
	fn, ok := p.prefix[p.curr.Type]
	if !ok {
		return nil, p.unexpected()
	}
	left, err := fn()
	if err != nil {
		return nil, err
	}
	for !p.is(EOF) && pow < p.power() {
		infix, ok := p.infix[p.curr.Type]
		if !ok {
			return nil, p.unexpected()
		}
		if left, err = infix(left); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseNot() (Node, error) {
	pos := p.curr.Position
	p.next()
	operand, err := p.parseExpression(powUnary)
	if err != nil {
		return nil, err
	}
	return Unary{Op: OpNot, Operand: operand, Position: pos}, nil
}

func (p *Parser) parseNegate() (Node, error) {
	pos := p.curr.Position
	p.next()
	operand, err := p.parseExpression(powUnary)
	if err != nil {
		return nil, err
	}
	return Unary{Op: OpNegate, Operand: operand, Position: pos}, nil
}

// parseIdentOrCallOrStruct implements the "identifier with optional call
// args, or Type{...} struct literal" primary production of spec.md 4.1: a
// bare identifier is looked ahead for `(` (global function call) or `{`
// (struct literal) before falling back to a plain Identifier.
func (p *Parser) parseIdentOrCallOrStruct() (Node, error) {
	if p.is(Reserved) {
		return nil, &ParseError{Position: p.curr.Position, Err: ErrReserved, Msg: fmt.Sprintf("%q is a reserved word", p.curr.Literal)}
	}
	name := p.curr.Literal
	pos := p.curr.Position
	p.next()

	switch {
	case p.is(Lparen):
		args, err := p.parseArgList(Rparen)
		if err != nil {
			return nil, err
		}
		return Call{Name: name, Args: args, Position: pos}, nil
	case p.is(Lcurly):
		return p.parseStructBody(name, pos)
	default:
		return Identifier{Name: name, Position: pos}, nil
	}
}

// parseQualifiedIdent handles the leading-dot-qualified identifier
// production (`.pkg.Name`). Since this implementation carries no notion of
// namespaces or proto packages (an explicit non-goal), a leading dot is
// transparent: `.foo.bar` resolves exactly like `foo.bar` would, rooted at
// the top-level Activation.
func (p *Parser) parseQualifiedIdent() (Node, error) {
	p.next()
	if !p.is(Ident) {
		return nil, p.unexpected()
	}
	return p.parseIdentOrCallOrStruct()
}

func (p *Parser) parseStructBody(typ string, pos Position) (Node, error) {
	p.next() // consume '{'
	s := Struct{Type: typ, Position: pos}
	for !p.is(Rcurly) {
		if !p.is(Ident) {
			return nil, p.unexpected()
		}
		field := p.curr.Literal
		p.next()
		if !p.is(Colon) {
			return nil, p.unexpected()
		}
		p.next()
		val, err := p.parseExpression(powLowest)
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, StructField{Name: field, Init: val})
		if p.is(Comma) {
			p.next()
			continue
		}
		break
	}
	if !p.is(Rcurly) {
		return nil, p.unexpected()
	}
	p.next()
	return s, nil
}

func (p *Parser) parseIntLiteral() (Node, error) {
	pos, lit := p.curr.Position, p.curr.Literal
	n, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		return nil, &ParseError{Position: pos, Err: ErrSyntax, Msg: fmt.Sprintf("invalid int literal %q: %v", lit, err)}
	}
	p.next()
	return Literal{Value: Int(n), Kind: LiteralInt, Position: pos}, nil
}

func (p *Parser) parseUintLiteral() (Node, error) {
	pos, lit := p.curr.Position, p.curr.Literal
	n, err := strconv.ParseUint(lit, 0, 64)
	if err != nil {
		return nil, &ParseError{Position: pos, Err: ErrSyntax, Msg: fmt.Sprintf("invalid uint literal %q: %v", lit, err)}
	}
	p.next()
	return Literal{Value: Uint(n), Kind: LiteralUint, Position: pos}, nil
}

func (p *Parser) parseDoubleLiteral() (Node, error) {
	pos, lit := p.curr.Position, p.curr.Literal
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, &ParseError{Position: pos, Err: ErrSyntax, Msg: fmt.Sprintf("invalid double literal %q: %v", lit, err)}
	}
	p.next()
	return Literal{Value: Double(f), Kind: LiteralDouble, Position: pos}, nil
}

func (p *Parser) parseStringLiteral() (Node, error) {
	pos := p.curr.Position
	lit := String(p.curr.Literal)
	p.next()
	return Literal{Value: lit, Kind: LiteralString, Position: pos}, nil
}

func (p *Parser) parseBytesLiteral() (Node, error) {
	pos := p.curr.Position
	lit := Bytes([]byte(p.curr.Literal))
	p.next()
	return Literal{Value: lit, Kind: LiteralBytes, Position: pos}, nil
}

func (p *Parser) parseBoolLiteral() (Node, error) {
	pos, lit := p.curr.Position, p.curr.Literal
	p.next()
	return Literal{Value: Bool(lit == "true"), Kind: LiteralBool, Position: pos}, nil
}

func (p *Parser) parseNullLiteral() (Node, error) {
	pos := p.curr.Position
	p.next()
	return Literal{Value: Null{}, Kind: LiteralNull, Position: pos}, nil
}

func (p *Parser) parseGroup() (Node, error) {
	p.next()
	expr, err := p.parseExpression(powLowest)
	if err != nil {
		return nil, err
	}
	if !p.is(Rparen) {
		return nil, p.unexpected()
	}
	p.next()
	return expr, nil
}

func (p *Parser) parseList() (Node, error) {
	pos := p.curr.Position
	p.next()
	list := ListExpr{Position: pos}
	for !p.is(Rsquare) {
		elem, err := p.parseExpression(powLowest)
		if err != nil {
			return nil, err
		}
		list.Elements = append(list.Elements, elem)
		if p.is(Comma) {
			p.next()
			continue
		}
		break
	}
	if !p.is(Rsquare) {
		return nil, p.unexpected()
	}
	p.next()
	return list, nil
}

func (p *Parser) parseMap() (Node, error) {
	pos := p.curr.Position
	p.next()
	m := MapExpr{Position: pos}
	for !p.is(Rcurly) {
		key, err := p.parseExpression(powLowest)
		if err != nil {
			return nil, err
		}
		if !p.is(Colon) {
			return nil, p.unexpected()
		}
		p.next()
		val, err := p.parseExpression(powLowest)
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, MapEntry{Key: key, Value: val})
		if p.is(Comma) {
			p.next()
			continue
		}
		break
	}
	if !p.is(Rcurly) {
		return nil, p.unexpected()
	}
	p.next()
	return m, nil
}

func (p *Parser) parseBinary(left Node) (Node, error) {
	op, pos := binaryOp(p.curr.Type), p.curr.Position
	pow := bindings[p.curr.Type]
	p.next()
	right, err := p.parseExpression(pow)
	if err != nil {
		return nil, err
	}
	return Binary{Op: op, Left: left, Right: right, Position: pos}, nil
}

func binaryOp(t rune) BinaryOp {
	switch t {
	case Add:
		return OpAdd
	case Sub:
		return OpSub
	case Mul:
		return OpMul
	case Div:
		return OpDiv
	case Mod:
		return OpMod
	case Eq:
		return OpEqual
	case Ne:
		return OpNotEqual
	case Lt:
		return OpLess
	case Le:
		return OpLessEqual
	case Gt:
		return OpGreater
	case Ge:
		return OpGreaterEqual
	case And:
		return OpLogicalAnd
	case Or:
		return OpLogicalOr
	case In:
		return OpIn
	default:
		return OpAdd
	}
}

// parseConditional implements the right-associative ternary: the else
// branch recurses at powTernary-1 so a nested `? :` on the right chains in
// rather than being left dangling for the caller's loop to reject.
func (p *Parser) parseConditional(cond Node) (Node, error) {
	pos := p.curr.Position
	p.next()
	then, err := p.parseExpression(powLowest)
	if err != nil {
		return nil, err
	}
	if !p.is(Colon) {
		return nil, p.unexpected()
	}
	p.next()
	els, err := p.parseExpression(powTernary - 1)
	if err != nil {
		return nil, err
	}
	return Conditional{Cond: cond, Then: then, Else: els, Position: pos}, nil
}

func (p *Parser) parseIndex(left Node) (Node, error) {
	pos := p.curr.Position
	p.next()
	idx, err := p.parseExpression(powLowest)
	if err != nil {
		return nil, err
	}
	if !p.is(Rsquare) {
		return nil, p.unexpected()
	}
	p.next()
	return Index{Operand: left, Index: idx, Position: pos}, nil
}

// parseSelectOrMethodCall implements the member-access postfix production:
// `.field` is a Select, `.field(args)` is a method Call, and it is marked
// IsMacro when name/arity match one of the five comprehension macros
// (spec.md 4.6).
func (p *Parser) parseSelectOrMethodCall(left Node) (Node, error) {
	pos := p.curr.Position
	p.next()
	if !p.is(Ident) && !p.is(Reserved) {
		return nil, p.unexpected()
	}
	name := p.curr.Literal
	p.next()

	if !p.is(Lparen) {
		return Select{Operand: left, Field: name, Position: pos}, nil
	}
	args, err := p.parseArgList(Rparen)
	if err != nil {
		return nil, err
	}
	return Call{
		Target:   left,
		Name:     name,
		Args:     args,
		IsMacro:  macroNames[name] && len(args) == 2,
		Position: pos,
	}, nil
}

func (p *Parser) parseArgList(end rune) ([]Node, error) {
	p.next() // consume '('
	var args []Node
	for !p.is(end) {
		arg, err := p.parseExpression(powLowest)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.is(Comma) {
			p.next()
			continue
		}
		break
	}
	if !p.is(end) {
		return nil, p.unexpected()
	}
	p.next()
	return args, nil
}

func (p *Parser) registerPrefix(kind rune, fn prefixFunc) {
	p.prefix[kind] = fn
}

func (p *Parser) registerInfix(kind rune, fn infixFunc) {
	p.infix[kind] = fn
}

func (p *Parser) power() int {
	pow, ok := bindings[p.curr.Type]
	if !ok {
		return powLowest
	}
	return pow
}

func (p *Parser) is(kind rune) bool {
	return p.curr.Type == kind
}

func (p *Parser) next() {
	p.curr = p.peek
	p.peek = p.scan.Next()
}

func (p *Parser) unexpected() error {
	return &ParseError{Position: p.curr.Position, Err: ErrSyntax, Msg: fmt.Sprintf("unexpected token %s", p.curr)}
}
