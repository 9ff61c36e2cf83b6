package cel

// The scenarios in this file are the concrete worked examples of spec.md
// 8.2, each checked as its own scenario-named test.

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarioOperatorPrecedence(t *testing.T) {
	require.Equal(t, Int(14), evalStr(t, "2 + 3 * 4", nil))
}

func TestScenarioGrouping(t *testing.T) {
	require.Equal(t, Int(20), evalStr(t, "(2 + 3) * 4", nil))
}

func TestScenarioIntDivisionYieldsDouble(t *testing.T) {
	require.Equal(t, Double(10.0/3.0), evalStr(t, "10 / 3", nil))
}

func TestScenarioStringConcatWithBinding(t *testing.T) {
	got := evalStr(t, `"Hello, " + name`, map[string]Value{"name": String("World")})
	require.Equal(t, String("Hello, World"), got)
}

func TestScenarioTernaryWithBindings(t *testing.T) {
	bindings := map[string]Value{"age": Int(25), "hasLicense": Bool(true)}
	got := evalStr(t, `age >= 18 && hasLicense ? "can drive" : "cannot drive"`, bindings)
	require.Equal(t, String("can drive"), got)
}

func TestScenarioFilterThenMap(t *testing.T) {
	got := evalStr(t, "[1, 2, 3, 4, 5].filter(x, x > 2).map(x, x * 10)", nil)
	require.Equal(t, List{Int(30), Int(40), Int(50)}, got)
}

func TestScenarioHasOnPresentAndMissingKey(t *testing.T) {
	present := NewMap()
	present.Put(String("name"), String("Alice"))
	present.Put(String("email"), String("a@b"))
	require.Equal(t, Bool(true), evalStr(t, `has(user, "email")`, map[string]Value{"user": present}))

	missing := NewMap()
	missing.Put(String("name"), String("Alice"))
	require.Equal(t, Bool(false), evalStr(t, `has(user, "email")`, map[string]Value{"user": missing}))
}

func TestScenarioMatches(t *testing.T) {
	got := evalStr(t, `matches("test@example.com", ".*@.*")`, nil)
	require.Equal(t, Bool(true), got)
}

func TestScenarioDivByZeroAndUndefinedBinding(t *testing.T) {
	_, err := Eval("1 / 0", nil)
	require.Error(t, err)

	_, err = Eval("x + y", map[string]Value{"x": Int(1)})
	require.Error(t, err)
}

func TestScenarioAllAndExists(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, "[2,4,6].all(x, x % 2 == 0)", nil))
	require.Equal(t, Bool(false), evalStr(t, "[1,3,5].exists(x, x % 2 == 0)", nil))
}

func TestScenarioRawInterpretedAndOctalStrings(t *testing.T) {
	require.Equal(t, String(`\n`), evalStr(t, `r"\n"`, nil))
	require.Equal(t, String("\n"), evalStr(t, `"\n"`, nil))
	require.Equal(t, String("A"), evalStr(t, `"\101"`, nil))
}

func TestScenarioHexLiterals(t *testing.T) {
	require.Equal(t, Bool(true), evalStr(t, "0x10 == 16", nil))
	require.Equal(t, Bool(true), evalStr(t, "-0x10 == -16", nil))
}
