package cel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStandardConversions(t *testing.T) {
	require.Equal(t, Int(3), evalStr(t, `int("3")`, nil))
	require.Equal(t, Uint(3), evalStr(t, "uint(3)", nil))
	require.Equal(t, Double(3), evalStr(t, "double(3)", nil))
	require.Equal(t, String("3"), evalStr(t, "string(3)", nil))
	require.Equal(t, Bool(true), evalStr(t, `bool("x")`, nil))
}

func TestStandardUintRejectsNegative(t *testing.T) {
	_, err := Eval("uint(-1)", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrType))
}

func TestStandardType(t *testing.T) {
	require.Equal(t, String("int"), evalStr(t, "type(3)", nil))
	require.Equal(t, String("string"), evalStr(t, `type("s")`, nil))
}

func TestStandardMatches(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, `matches("hello123", "[a-z]+[0-9]+")`, nil))
	require.Equal(t, Bool(false), evalStr(t, `matches("hello", "^[0-9]+$")`, nil))
}

func TestStandardMaxMin(t *testing.T) {
	require.Equal(t, Int(3), evalStr(t, "max(1, 3, 2)", nil))
	require.Equal(t, Int(1), evalStr(t, "min(1, 3, 2)", nil))
}

func TestStandardStringMethods(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, `"hello".startsWith("he")`, nil))
	require.Equal(t, Bool(true), evalStr(t, `"hello".endsWith("lo")`, nil))
	require.Equal(t, String("HELLO"), evalStr(t, `"hello".toUpperCase()`, nil))
	require.Equal(t, String("hello"), evalStr(t, `"HELLO".toLowerCase()`, nil))
	require.Equal(t, String("hi"), evalStr(t, `"  hi  ".trim()`, nil))
	require.Equal(t, String("hxllo"), evalStr(t, `"hello".replace("e", "x")`, nil))
}

func TestStandardSplit(t *testing.T) {
	got := evalStr(t, `"a,b,c".split(",")`, nil)
	require.Equal(t, List{String("a"), String("b"), String("c")}, got)
}

func TestStandardContainsOnListAndString(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, `"hello".contains("ell")`, nil))
	require.Equal(t, Bool(true), evalStr(t, "[1, 2, 3].contains(2)", nil))
}

func TestStandardSizeMethodAndFunction(t *testing.T) {
	require.Equal(t, Int(3), evalStr(t, `size("abc")`, nil))
	require.Equal(t, Int(3), evalStr(t, `"abc".size()`, nil))
}

func TestStandardTimestampAndDateParts(t *testing.T) {
	got := evalStr(t, `getFullYear(timestamp("2024-03-15T10:20:30Z"))`, nil)
	require.Equal(t, Int(2024), got)
	got = evalStr(t, `getMonth(timestamp("2024-03-15T10:20:30Z"))`, nil)
	require.Equal(t, Int(2), got, "getMonth is zero-based")
}

func TestStandardDuration(t *testing.T) {
	got := evalStr(t, `duration("1h")`, nil)
	require.Equal(t, Double(3600), got)
}

func TestStandardUnknownFunctionErrors(t *testing.T) {
	_, err := Eval("bogus(1)", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownFunc))
}

func TestStandardMacroNameAsGlobalCallErrors(t *testing.T) {
	_, err := Eval("map(1, 2)", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownFunc))
}

func TestRegistryOverridesAndFallsBackToStandard(t *testing.T) {
	reg := NewRegistry(nil)
	reg.DefineFunc("double", func(_ Value, args []Value) (Value, error) {
		n, ok := args[0].(Int)
		if !ok {
			return nil, evalErrorf(ErrType, "double: want int")
		}
		return Int(n * 2), nil
	})

	got, err := Eval("double(21)", nil, WithFunctions(reg))
	require.NoError(t, err)
	require.Equal(t, Int(42), got)

	// names Registry does not know about fall through to Standard.
	got, err = Eval(`size("abc")`, nil, WithFunctions(reg))
	require.NoError(t, err)
	require.Equal(t, Int(3), got)
}

func TestRegistryEnclosedLayersOverrides(t *testing.T) {
	base := NewRegistry(nil)
	base.DefineFunc("greet", func(_ Value, _ []Value) (Value, error) {
		return String("hello"), nil
	})
	child := base.Enclosed()
	child.DefineFunc("greet", func(_ Value, _ []Value) (Value, error) {
		return String("hi"), nil
	})

	got, err := Eval("greet()", nil, WithFunctions(child))
	require.NoError(t, err)
	require.Equal(t, String("hi"), got)

	got, err = Eval("greet()", nil, WithFunctions(base))
	require.NoError(t, err)
	require.Equal(t, String("hello"), got)
}
