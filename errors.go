package cel

import (
	"errors"
	"fmt"
)

// Sentinel errors, carried in the Err field of ParseError/EvalError and
// exposed through their Unwrap methods, in the same style as the teacher's play.ErrEval/ErrOp/ErrConst/ErrType
// (play/play.go) and environ.ErrDefined (environ/environ.go). Callers
// branch on error kind with errors.Is.
var (
	// parse-time
	ErrSyntax   = errors.New("syntax error")
	ErrReserved = errors.New("reserved word used as identifier")
	// ErrEscape is not returned by Parse: an invalid escape sequence is
	// reported as a *ParseError wrapping ErrSyntax.
	ErrEscape = errors.New("invalid escape sequence")

	// evaluation-time
	ErrMacroArg      = errors.New("first macro argument must be a bare identifier")
	ErrUndefined     = errors.New("undefined variable")
	ErrUnknownFunc   = errors.New("unknown function or method")
	ErrArity         = errors.New("wrong number of arguments")
	ErrType          = errors.New("incompatible type")
	ErrDivByZero     = errors.New("division by zero")
	ErrIndex         = errors.New("index out of bounds")
	ErrNoSuchKey     = errors.New("no such key")
	ErrMacroReceiver = errors.New("macro receiver must be a list")
)

// ParseError reports a failure to lex or parse. It always carries the
// position at which the failure was detected (spec.md 4.1's "fails fast
// with a message that includes the failing position").
type ParseError struct {
	Position
	Err error
	Msg string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Position, e.Msg)
	}
	return fmt.Sprintf("parse error at %s: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EvalError reports a failure encountered while walking the AST. Every
// evaluation-time sentinel in this file is surfaced wrapped in one of
// these (spec.md 7).
type EvalError struct {
	Err error
	Msg string
}

func (e *EvalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Err.Error()
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

func evalErrorf(err error, format string, args ...any) *EvalError {
	return &EvalError{Err: err, Msg: fmt.Sprintf("%s: %s", err.Error(), fmt.Sprintf(format, args...))}
}
