package cel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileThenEvaluateRepeatedly(t *testing.T) {
	p, err := Compile("x + 1")
	require.NoError(t, err)

	v, err := p.Evaluate(map[string]Value{"x": Int(1)})
	require.NoError(t, err)
	require.Equal(t, Int(2), v)

	v, err = p.Evaluate(map[string]Value{"x": Int(41)})
	require.NoError(t, err)
	require.Equal(t, Int(42), v)
}

func TestCompileReturnsParseError(t *testing.T) {
	_, err := Compile("1 +")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestProgramEvaluateIsConcurrencySafe(t *testing.T) {
	p, err := Compile("x * x")
	require.NoError(t, err)

	const n = 50
	results := make(chan Value, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			v, err := p.Evaluate(map[string]Value{"x": Int(i)})
			if err != nil {
				errs <- err
				return
			}
			results <- v
		}()
	}
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case <-results:
		}
	}
}

func TestEvalConvenienceFunction(t *testing.T) {
	v, err := Eval("1 + 1", nil)
	require.NoError(t, err)
	require.Equal(t, Int(2), v)
}
