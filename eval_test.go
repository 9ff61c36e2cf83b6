package cel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func evalStr(t *testing.T, src string, bindings map[string]Value) Value {
	t.Helper()
	v, err := Eval(src, bindings)
	require.NoError(t, err, "eval(%q)", src)
	return v
}

func TestEvalArithmetic(t *testing.T) {
	require.Equal(t, Int(7), evalStr(t, "1 + 2 * 3", nil))
	require.Equal(t, Int(1), evalStr(t, "1 - 3 + 3", nil))
	require.Equal(t, Double(10.0/3.0), evalStr(t, "10 / 3", nil), "integer division always yields a double")
}

func TestEvalIntDivByZero(t *testing.T) {
	_, err := Eval("1 / 0", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDivByZero))
}

func TestEvalModRequiresIntegers(t *testing.T) {
	_, err := Eval("1.5 % 2", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrType))
}

func TestEvalStringConcat(t *testing.T) {
	require.Equal(t, String("ab"), evalStr(t, `"a" + "b"`, nil))
}

func TestEvalListConcat(t *testing.T) {
	got := evalStr(t, "[1, 2] + [3]", nil)
	require.Equal(t, List{Int(1), Int(2), Int(3)}, got)
}

func TestEvalStringRepeat(t *testing.T) {
	require.Equal(t, String("abcabc"), evalStr(t, `"abc" * 2`, nil))
}

func TestEvalComparisonAcrossNumericKinds(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, "1 == 1.0", nil))
	require.Equal(t, Bool(true), evalStr(t, "1u < 2", nil))
}

func TestEvalLogicalShortCircuitAnd(t *testing.T) {
	// the right side references an undefined name; if it were evaluated,
	// this would fail instead of returning false.
	require.Equal(t, Bool(false), evalStr(t, "false && undefinedName", nil))
}

func TestEvalLogicalShortCircuitOr(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, "true || undefinedName", nil))
}

func TestEvalConditional(t *testing.T) {
	require.Equal(t, Int(1), evalStr(t, "true ? 1 : 2", nil))
	require.Equal(t, Int(2), evalStr(t, "false ? 1 : 2", nil))
}

func TestEvalIdentifierBinding(t *testing.T) {
	bindings := map[string]Value{"x": Int(5)}
	require.Equal(t, Int(6), evalStr(t, "x + 1", bindings))
}

func TestEvalUndefinedIdentifier(t *testing.T) {
	_, err := Eval("nope", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUndefined))
}

func TestEvalSelectOnMap(t *testing.T) {
	bindings := map[string]Value{
		"m": func() Value {
			m := NewMap()
			m.Put(String("a"), Int(1))
			return m
		}(),
	}
	require.Equal(t, Int(1), evalStr(t, "m.a", bindings))
}

func TestEvalSelectMissingFieldErrors(t *testing.T) {
	bindings := map[string]Value{"m": NewMap()}
	_, err := Eval("m.a", bindings)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoSuchKey))
}

func TestEvalHasNeverErrors(t *testing.T) {
	require.Equal(t, Bool(false), evalStr(t, `has(1, "a")`, nil))
	m := NewMap()
	m.Put(String("a"), Int(1))
	require.Equal(t, Bool(true), evalStr(t, "has(m, \"a\")", map[string]Value{"m": m}))
	require.Equal(t, Bool(false), evalStr(t, "has(m, \"b\")", map[string]Value{"m": m}))
}

func TestEvalIndexList(t *testing.T) {
	require.Equal(t, Int(2), evalStr(t, "[1, 2, 3][1]", nil))
}

func TestEvalIndexOutOfBounds(t *testing.T) {
	_, err := Eval("[1, 2, 3][10]", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIndex))
}

func TestEvalInOperator(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, "2 in [1, 2, 3]", nil))
	require.Equal(t, Bool(false), evalStr(t, "5 in [1, 2, 3]", nil))
	require.Equal(t, Bool(true), evalStr(t, `"b" in "abc"`, nil))
}

func TestEvalMapLiteralLastWriteWins(t *testing.T) {
	got := evalStr(t, `{"a": 1, "a": 2}`, nil)
	m, ok := got.(*Map)
	require.True(t, ok)
	v, ok := m.Get(String("a"))
	require.True(t, ok)
	require.Equal(t, Int(2), v, "map literal duplicate keys: last write wins")
}

func TestEvalStructLiteralIsAMap(t *testing.T) {
	got := evalStr(t, "Point{x: 1, y: 2}", nil)
	m, ok := got.(*Map)
	require.True(t, ok)
	require.Equal(t, int64(2), mustSize(t, m))
}

func mustSize(t *testing.T, v Value) int64 {
	t.Helper()
	n, err := sizeOf(v)
	require.NoError(t, err)
	return n
}

func TestEvalSelectWithNilOperandUsesEnvironment(t *testing.T) {
	// The parser never produces a nil-Operand Select (a leading-dot
	// qualified identifier resolves to an Identifier innermost), but the
	// closed AST set allows one, and spec.md 4.5 defines its meaning as an
	// implicit lookup in the environment.
	ev := NewEvaluator(nil)
	act := NewActivation(map[string]Value{"x": Int(5)})
	v, err := ev.Eval(Select{Field: "x"}, act)
	require.NoError(t, err)
	require.Equal(t, Int(5), v)

	v, err = ev.Eval(Select{Field: "missing", IsTest: true}, act)
	require.NoError(t, err)
	require.Equal(t, Bool(false), v)

	_, err = ev.Eval(Select{Field: "missing"}, act)
	require.Error(t, err)
}

func TestEvalUnaryOperators(t *testing.T) {
	require.Equal(t, Bool(false), evalStr(t, "!true", nil))
	require.Equal(t, Int(-3), evalStr(t, "-3", nil))
}
