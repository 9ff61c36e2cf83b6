package cel

import (
	"fmt"
	"strings"
)

// Evaluator walks a Node tree against an Activation and a Functions table.
// Grounded on the teacher's eval(n Node, env) type-switch shape
// (play/eval.go), but centralizing operator semantics in the kind-switches
// below rather than in per-Value methods (spec.md 9's explicit deviation).
type Evaluator struct {
	fns Functions
}

// NewEvaluator builds an Evaluator over fns. A nil fns falls back to
// Standard.
func NewEvaluator(fns Functions) *Evaluator {
	if fns == nil {
		fns = NewStandard()
	}
	return &Evaluator{fns: fns}
}

// Eval walks n against act, returning the resulting Value or the first
// EvalError encountered.
func (e *Evaluator) Eval(n Node, act *Activation) (Value, error) {
	switch node := n.(type) {
	case Literal:
		return node.Value, nil
	case Identifier:
		return act.Resolve(node.Name)
	case Select:
		return e.evalSelect(node, act)
	case Index:
		return e.evalIndex(node, act)
	case Unary:
		return e.evalUnary(node, act)
	case Binary:
		return e.evalBinary(node, act)
	case Conditional:
		return e.evalConditional(node, act)
	case ListExpr:
		return e.evalList(node, act)
	case MapExpr:
		return e.evalMap(node, act)
	case Struct:
		return e.evalStruct(node, act)
	case Call:
		return e.evalCall(node, act)
	default:
		return nil, fmt.Errorf("cel: unhandled node type %T", n)
	}
}

func (e *Evaluator) evalSelect(n Select, act *Activation) (Value, error) {
	if n.Operand == nil {
		// Absent operand: the environment itself is the implicit map
		// (spec.md 4.5's "uses the environment as the implicit map when
		// operand is absent").
		v, err := act.Resolve(n.Field)
		if err != nil {
			if n.IsTest {
				return Bool(false), nil
			}
			return nil, err
		}
		return v, nil
	}
	operand, err := e.Eval(n.Operand, act)
	if err != nil {
		return nil, err
	}
	switch m := operand.(type) {
	case *Map:
		v, ok := m.Get(String(n.Field))
		if !ok {
			if n.IsTest {
				return Bool(false), nil
			}
			return nil, evalErrorf(ErrNoSuchKey, "no field %q", n.Field)
		}
		return v, nil
	case Null:
		if n.IsTest {
			return Bool(false), nil
		}
		return nil, evalErrorf(ErrType, "cannot select %q on null", n.Field)
	default:
		return nil, evalErrorf(ErrType, "cannot select %q on %s", n.Field, operand.Kind())
	}
}

func (e *Evaluator) evalIndex(n Index, act *Activation) (Value, error) {
	operand, err := e.Eval(n.Operand, act)
	if err != nil {
		return nil, err
	}
	idx, err := e.Eval(n.Index, act)
	if err != nil {
		return nil, err
	}
	switch o := operand.(type) {
	case List:
		i, ok := idx.(Int)
		if !ok {
			return nil, evalErrorf(ErrType, "list index must be int, got %s", idx.Kind())
		}
		if i < 0 || int(i) >= len(o) {
			return nil, evalErrorf(ErrIndex, "index %d out of bounds for list of length %d", i, len(o))
		}
		return o[i], nil
	case *Map:
		v, ok := o.Get(idx)
		if !ok {
			return nil, evalErrorf(ErrNoSuchKey, "no such key %s", debugString(idx))
		}
		return v, nil
	case String:
		i, ok := idx.(Int)
		if !ok {
			return nil, evalErrorf(ErrType, "string index must be int, got %s", idx.Kind())
		}
		runes := []rune(string(o))
		if i < 0 || int(i) >= len(runes) {
			return nil, evalErrorf(ErrIndex, "index %d out of bounds for string of length %d", i, len(runes))
		}
		return String(runes[i]), nil
	case Null:
		return nil, evalErrorf(ErrType, "cannot index null")
	default:
		return nil, evalErrorf(ErrType, "cannot index %s", operand.Kind())
	}
}

func (e *Evaluator) evalUnary(n Unary, act *Activation) (Value, error) {
	v, err := e.Eval(n.Operand, act)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case OpNot:
		b, err := asBool(v)
		if err != nil {
			return nil, err
		}
		return Bool(!b), nil
	case OpNegate:
		switch t := v.(type) {
		case Int:
			return -t, nil
		case Uint:
			return -Int(t), nil
		case Double:
			return -t, nil
		default:
			return nil, evalErrorf(ErrType, "'-' requires a number, got %s", v.Kind())
		}
	default:
		return nil, fmt.Errorf("cel: unknown unary operator %d", n.Op)
	}
}

func (e *Evaluator) evalBinary(n Binary, act *Activation) (Value, error) {
	switch n.Op {
	case OpLogicalAnd:
		l, err := e.Eval(n.Left, act)
		if err != nil {
			return nil, err
		}
		lb, err := asBool(l)
		if err != nil {
			return nil, err
		}
		if !lb {
			return Bool(false), nil
		}
		r, err := e.Eval(n.Right, act)
		if err != nil {
			return nil, err
		}
		rb, err := asBool(r)
		if err != nil {
			return nil, err
		}
		return Bool(rb), nil
	case OpLogicalOr:
		l, err := e.Eval(n.Left, act)
		if err != nil {
			return nil, err
		}
		lb, err := asBool(l)
		if err != nil {
			return nil, err
		}
		if lb {
			return Bool(true), nil
		}
		r, err := e.Eval(n.Right, act)
		if err != nil {
			return nil, err
		}
		rb, err := asBool(r)
		if err != nil {
			return nil, err
		}
		return Bool(rb), nil
	}

	left, err := e.Eval(n.Left, act)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Right, act)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case OpAdd:
		return evalAdd(left, right)
	case OpSub:
		return evalArith(left, right, '-')
	case OpMul:
		return evalMul(left, right)
	case OpDiv:
		return evalDiv(left, right)
	case OpMod:
		return evalMod(left, right)
	case OpEqual:
		return Bool(equalValues(left, right)), nil
	case OpNotEqual:
		return Bool(!equalValues(left, right)), nil
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		c, err := compareValues(left, right)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case OpLess:
			return Bool(c < 0), nil
		case OpLessEqual:
			return Bool(c <= 0), nil
		case OpGreater:
			return Bool(c > 0), nil
		default:
			return Bool(c >= 0), nil
		}
	case OpIn:
		return evalIn(left, right)
	default:
		return nil, fmt.Errorf("cel: unknown binary operator %d", n.Op)
	}
}

func evalAdd(left, right Value) (Value, error) {
	if isNumeric(left) && isNumeric(right) {
		return evalArith(left, right, '+')
	}
	if l, ok := left.(List); ok {
		if r, ok := right.(List); ok {
			out := make(List, 0, len(l)+len(r))
			out = append(out, l...)
			out = append(out, r...)
			return out, nil
		}
		return nil, evalErrorf(ErrType, "'+' requires two lists, got list and %s", right.Kind())
	}
	if _, ok := left.(String); ok {
		return String(stringify(left) + stringify(right)), nil
	}
	if _, ok := right.(String); ok {
		return String(stringify(left) + stringify(right)), nil
	}
	return nil, evalErrorf(ErrType, "'+' undefined for %s and %s", left.Kind(), right.Kind())
}

// evalArith implements the numeric int/uint/double promotion ladder shared
// by '+' and '-': int and uint combine to int, anything touching a double
// promotes to double.
func evalArith(left, right Value, op byte) (Value, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return nil, evalErrorf(ErrType, "arithmetic requires numbers, got %s and %s", left.Kind(), right.Kind())
	}
	if _, ok := left.(Double); ok {
		return arithDouble(left, right, op)
	}
	if _, ok := right.(Double); ok {
		return arithDouble(left, right, op)
	}
	lu, lIsU := left.(Uint)
	ru, rIsU := right.(Uint)
	if lIsU && rIsU {
		switch op {
		case '+':
			return lu + ru, nil
		default:
			return lu - ru, nil
		}
	}
	li := mustInt(left)
	ri := mustInt(right)
	switch op {
	case '+':
		return li + ri, nil
	default:
		return li - ri, nil
	}
}

func arithDouble(left, right Value, op byte) (Value, error) {
	lf, _ := asFloat(left)
	rf, _ := asFloat(right)
	switch op {
	case '+':
		return Double(lf + rf), nil
	default:
		return Double(lf - rf), nil
	}
}

func mustInt(v Value) Int {
	switch t := v.(type) {
	case Int:
		return t
	case Uint:
		return Int(t)
	default:
		return 0
	}
}

func evalMul(left, right Value) (Value, error) {
	if isNumeric(left) && isNumeric(right) {
		return arithMul(left, right)
	}
	if s, ok := left.(String); ok {
		n, ok := right.(Int)
		if !ok || n < 0 {
			return nil, evalErrorf(ErrType, "string '*' requires a non-negative int repeat count")
		}
		return String(repeatString(string(s), int(n))), nil
	}
	if l, ok := left.(List); ok {
		n, ok := right.(Int)
		if !ok || n < 0 {
			return nil, evalErrorf(ErrType, "list '*' requires a non-negative int repeat count")
		}
		out := make(List, 0, len(l)*int(n))
		for i := 0; i < int(n); i++ {
			out = append(out, l...)
		}
		return out, nil
	}
	return nil, evalErrorf(ErrType, "'*' undefined for %s and %s", left.Kind(), right.Kind())
}

func repeatString(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func arithMul(left, right Value) (Value, error) {
	if _, ok := left.(Double); ok {
		lf, _ := asFloat(left)
		rf, _ := asFloat(right)
		return Double(lf * rf), nil
	}
	if _, ok := right.(Double); ok {
		lf, _ := asFloat(left)
		rf, _ := asFloat(right)
		return Double(lf * rf), nil
	}
	lu, lIsU := left.(Uint)
	ru, rIsU := right.(Uint)
	if lIsU && rIsU {
		return lu * ru, nil
	}
	return mustInt(left) * mustInt(right), nil
}

// evalDiv implements spec.md 4.5's rule that int/int division always yields
// a double (the source never truncate-divides).
func evalDiv(left, right Value) (Value, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return nil, evalErrorf(ErrType, "'/' requires numbers, got %s and %s", left.Kind(), right.Kind())
	}
	rf, _ := asFloat(right)
	if rf == 0 {
		return nil, evalErrorf(ErrDivByZero, "division by zero")
	}
	lf, _ := asFloat(left)
	return Double(lf / rf), nil
}

func evalMod(left, right Value) (Value, error) {
	li, lok := asInt(left)
	ri, rok := asInt(right)
	if !lok || !rok {
		return nil, evalErrorf(ErrType, "'%%' requires integers, got %s and %s", left.Kind(), right.Kind())
	}
	if ri == 0 {
		return nil, evalErrorf(ErrDivByZero, "modulo by zero")
	}
	return Int(li % ri), nil
}

func asInt(v Value) (int64, bool) {
	switch t := v.(type) {
	case Int:
		return int64(t), true
	case Uint:
		return int64(t), true
	default:
		return 0, false
	}
}

func evalIn(left, right Value) (Value, error) {
	switch r := right.(type) {
	case List:
		for _, v := range r {
			if equalValues(left, v) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case *Map:
		return Bool(r.Has(left)), nil
	case String:
		s, ok := left.(String)
		if !ok {
			return nil, evalErrorf(ErrType, "'in' on a string requires a string left operand, got %s", left.Kind())
		}
		return Bool(strings.Contains(string(r), string(s))), nil
	default:
		return nil, evalErrorf(ErrType, "'in' requires list, map or string on the right, got %s", right.Kind())
	}
}

func (e *Evaluator) evalConditional(n Conditional, act *Activation) (Value, error) {
	c, err := e.Eval(n.Cond, act)
	if err != nil {
		return nil, err
	}
	b, err := asBool(c)
	if err != nil {
		return nil, err
	}
	if b {
		return e.Eval(n.Then, act)
	}
	return e.Eval(n.Else, act)
}

func (e *Evaluator) evalList(n ListExpr, act *Activation) (Value, error) {
	out := make(List, 0, len(n.Elements))
	for _, elem := range n.Elements {
		v, err := e.Eval(elem, act)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// evalMap implements spec.md 4.5's "duplicate keys: last write wins" via
// Map.Set (as opposed to the first-key-wins Map.Put used when an embedder
// builds a Map value directly).
func (e *Evaluator) evalMap(n MapExpr, act *Activation) (Value, error) {
	m := NewMap()
	for _, entry := range n.Entries {
		k, err := e.Eval(entry.Key, act)
		if err != nil {
			return nil, err
		}
		v, err := e.Eval(entry.Value, act)
		if err != nil {
			return nil, err
		}
		m.Set(k, v)
	}
	return m, nil
}

// evalStruct evaluates a `Type{field: expr, ...}` literal into a Map value
// tagged only by its field contents -- full protobuf message construction
// is an explicit non-goal, so struct literals are a plain-map projection.
func (e *Evaluator) evalStruct(n Struct, act *Activation) (Value, error) {
	m := NewMap()
	for _, f := range n.Fields {
		v, err := e.Eval(f.Init, act)
		if err != nil {
			return nil, err
		}
		m.Set(String(f.Name), v)
	}
	return m, nil
}

func (e *Evaluator) evalCall(n Call, act *Activation) (Value, error) {
	if n.IsMacro {
		return e.evalMacro(n, act)
	}

	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.Eval(a, act)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if n.Target == nil {
		return e.fns.Call(n.Name, args)
	}
	receiver, err := e.Eval(n.Target, act)
	if err != nil {
		return nil, err
	}
	return e.fns.CallMethod(receiver, n.Name, args)
}
