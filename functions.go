package cel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/midbel/cel/environ"
)

// Func is the element type stored in the environ.Environment table backing
// Registry: a name resolves to either a global or a method handler. Kept
// generic over environ.Environment[Func] the same way the teacher
// parameterizes its generic Env (environ/environ.go) rather than
// hand-rolling a second lookup structure.
type Func func(receiver Value, args []Value) (Value, error)

// Functions is the extension point of spec.md 4.3: an embedder may supply
// any implementation, typically one that intercepts a handful of names and
// delegates everything else to Standard.
type Functions interface {
	Call(name string, args []Value) (Value, error)
	CallMethod(receiver Value, name string, args []Value) (Value, error)
}

// Standard is the default Functions implementation, covering the catalogue
// of spec.md 4.4. It holds no mutable state after construction and is safe
// for concurrent use by multiple evaluations, matching spec.md 5's
// thread-safety requirement on the function table.
type Standard struct{}

// NewStandard returns the catalogue implementation.
func NewStandard() *Standard {
	return &Standard{}
}

// Call dispatches a global (non-method) function by name, in the same
// switch-on-name shape as the teacher's global.Call (play/compound.go).
func (Standard) Call(name string, args []Value) (Value, error) {
	switch name {
	case "size":
		return callSize(args)
	case "int":
		return callInt(args)
	case "uint":
		return callUint(args)
	case "double":
		return callDouble(args)
	case "string":
		return callString(args)
	case "bool":
		return callBool(args)
	case "type":
		return callType(args)
	case "has":
		return callHas(args)
	case "matches":
		return callMatches(args)
	case "max":
		return callFold(args, 1)
	case "min":
		return callFold(args, -1)
	case "timestamp":
		return callTimestamp(args)
	case "duration":
		return callDuration(args)
	case "getDate":
		return callDatePart(args, timeDay)
	case "getMonth":
		return callDatePart(args, timeMonth)
	case "getFullYear":
		return callDatePart(args, timeYear)
	case "getHours":
		return callDatePart(args, timeHour)
	case "getMinutes":
		return callDatePart(args, timeMinute)
	case "getSeconds":
		return callDatePart(args, timeSecond)
	case "map", "filter", "all", "exists", "existsOne":
		return nil, evalErrorf(ErrUnknownFunc, "%s is a macro and must be called as a method with a bound identifier", name)
	default:
		return nil, evalErrorf(ErrUnknownFunc, "%s", name)
	}
}

// CallMethod dispatches a method call on receiver.
func (s Standard) CallMethod(receiver Value, name string, args []Value) (Value, error) {
	switch name {
	case "size":
		return callSize(append([]Value{receiver}, args...))
	case "contains":
		return callContains(receiver, args)
	case "startsWith":
		return callStartsWith(receiver, args)
	case "endsWith":
		return callEndsWith(receiver, args)
	case "toLowerCase":
		return callToLowerCase(receiver, args)
	case "toUpperCase":
		return callToUpperCase(receiver, args)
	case "trim":
		return callTrim(receiver, args)
	case "replace":
		return callReplace(receiver, args)
	case "split":
		return callSplit(receiver, args)
	case "map", "filter", "all", "exists", "existsOne":
		return nil, evalErrorf(ErrUnknownFunc, "%s: macro should have been intercepted by the evaluator", name)
	default:
		return nil, evalErrorf(ErrUnknownFunc, "%s", name)
	}
}

// Registry is a Functions implementation for embedders that need to add or
// override a handful of names (spec.md 4.3's extension point) without
// reimplementing the whole catalogue. Globals and methods are held in two
// environ.Environment[Func] tables so an embedder can layer its own
// Registry over another with Enclosed, the same parent-delegation shape the
// teacher uses for variable scopes (environ/environ.go); anything neither
// table resolves falls through to fallback, typically Standard.
type Registry struct {
	globals  environ.Environment[Func]
	methods  environ.Environment[Func]
	fallback Functions
}

// NewRegistry returns an empty Registry delegating unmatched names to
// fallback. A nil fallback delegates to Standard.
func NewRegistry(fallback Functions) *Registry {
	if fallback == nil {
		fallback = NewStandard()
	}
	return &Registry{
		globals:  environ.Empty[Func](),
		methods:  environ.Empty[Func](),
		fallback: fallback,
	}
}

// Enclosed returns a Registry whose globals/methods tables are children of
// r's, so lookups that miss the child fall back to r's own definitions
// before reaching r's fallback.
func (r *Registry) Enclosed() *Registry {
	return &Registry{
		globals:  environ.Enclosed[Func](r.globals),
		methods:  environ.Enclosed[Func](r.methods),
		fallback: r,
	}
}

// DefineFunc registers or overrides a global function name.
func (r *Registry) DefineFunc(name string, fn Func) {
	r.globals.Define(name, fn)
}

// DefineMethod registers or overrides a method name.
func (r *Registry) DefineMethod(name string, fn Func) {
	r.methods.Define(name, fn)
}

func (r *Registry) Call(name string, args []Value) (Value, error) {
	if fn, err := r.globals.Resolve(name); err == nil {
		return fn(nil, args)
	}
	return r.fallback.Call(name, args)
}

func (r *Registry) CallMethod(receiver Value, name string, args []Value) (Value, error) {
	if fn, err := r.methods.Resolve(name); err == nil {
		return fn(receiver, args)
	}
	return r.fallback.CallMethod(receiver, name, args)
}

func arity(args []Value, n int) error {
	if len(args) != n {
		return evalErrorf(ErrArity, "want %d argument(s), got %d", n, len(args))
	}
	return nil
}

func callSize(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	n, err := sizeOf(args[0])
	if err != nil {
		return nil, err
	}
	return Int(n), nil
}

func callInt(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Int:
		return v, nil
	case Uint:
		return Int(v), nil
	case Double:
		return Int(int64(v)), nil
	case String:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return nil, evalErrorf(ErrType, "cannot convert %q to int", string(v))
		}
		return Int(n), nil
	case Bool:
		if v {
			return Int(1), nil
		}
		return Int(0), nil
	default:
		return nil, evalErrorf(ErrType, "cannot convert %s to int", args[0].Kind())
	}
}

func callUint(args []Value) (Value, error) {
	v, err := callInt(args)
	if err != nil {
		return nil, err
	}
	n := v.(Int)
	if n < 0 {
		return nil, evalErrorf(ErrType, "cannot convert negative value to uint")
	}
	return Uint(n), nil
}

func callDouble(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Int:
		return Double(v), nil
	case Uint:
		return Double(v), nil
	case Double:
		return v, nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return nil, evalErrorf(ErrType, "cannot convert %q to double", string(v))
		}
		return Double(f), nil
	default:
		return nil, evalErrorf(ErrType, "cannot convert %s to double", args[0].Kind())
	}
}

func callString(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	return String(stringify(args[0])), nil
}

func callBool(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Bool:
		return v, nil
	case Int:
		return Bool(v != 0), nil
	case Uint:
		return Bool(v != 0), nil
	case Double:
		return Bool(v != 0), nil
	case String:
		return Bool(v != ""), nil
	case List:
		return Bool(len(v) != 0), nil
	case *Map:
		return Bool(v.Len() != 0), nil
	case Null:
		return Bool(false), nil
	default:
		return nil, evalErrorf(ErrType, "cannot convert %s to bool", args[0].Kind())
	}
}

func callType(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	return String(args[0].Kind().String()), nil
}

// callHas implements spec.md 4.4/7: never errors, false for non-maps.
func callHas(args []Value) (Value, error) {
	if err := arity(args, 2); err != nil {
		return nil, err
	}
	m, ok := args[0].(*Map)
	if !ok {
		return Bool(false), nil
	}
	return Bool(m.Has(args[1])), nil
}

func callMatches(args []Value) (Value, error) {
	if err := arity(args, 2); err != nil {
		return nil, err
	}
	s, ok := args[0].(String)
	if !ok {
		return nil, evalErrorf(ErrType, "matches: expected string receiver, got %s", args[0].Kind())
	}
	pat, ok := args[1].(String)
	if !ok {
		return nil, evalErrorf(ErrType, "matches: expected string pattern, got %s", args[1].Kind())
	}
	re, err := regexp.Compile(string(pat))
	if err != nil {
		return nil, evalErrorf(ErrType, "matches: invalid pattern %q: %v", string(pat), err)
	}
	return Bool(re.MatchString(string(s))), nil
}

// callFold implements max/min by folding compareValues across all
// arguments; dir is +1 for max, -1 for min.
func callFold(args []Value, dir int) (Value, error) {
	if len(args) == 0 {
		return nil, evalErrorf(ErrArity, "want at least 1 argument, got 0")
	}
	best := args[0]
	for _, v := range args[1:] {
		c, err := compareValues(v, best)
		if err != nil {
			return nil, err
		}
		if c*dir > 0 {
			best = v
		}
	}
	return best, nil
}

func callContains(receiver Value, args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch r := receiver.(type) {
	case String:
		sub, ok := args[0].(String)
		if !ok {
			return nil, evalErrorf(ErrType, "contains: expected string argument")
		}
		return Bool(strings.Contains(string(r), string(sub))), nil
	case List:
		for _, v := range r {
			if equalValues(v, args[0]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	default:
		return nil, evalErrorf(ErrType, "contains: undefined for %s", receiver.Kind())
	}
}

func callStartsWith(receiver Value, args []Value) (Value, error) {
	s, pfx, err := twoStrings("startsWith", receiver, args)
	if err != nil {
		return nil, err
	}
	return Bool(strings.HasPrefix(s, pfx)), nil
}

func callEndsWith(receiver Value, args []Value) (Value, error) {
	s, sfx, err := twoStrings("endsWith", receiver, args)
	if err != nil {
		return nil, err
	}
	return Bool(strings.HasSuffix(s, sfx)), nil
}

func callToLowerCase(receiver Value, args []Value) (Value, error) {
	s, err := oneString("toLowerCase", receiver, args)
	if err != nil {
		return nil, err
	}
	return String(strings.ToLower(s)), nil
}

func callToUpperCase(receiver Value, args []Value) (Value, error) {
	s, err := oneString("toUpperCase", receiver, args)
	if err != nil {
		return nil, err
	}
	return String(strings.ToUpper(s)), nil
}

func callTrim(receiver Value, args []Value) (Value, error) {
	s, err := oneString("trim", receiver, args)
	if err != nil {
		return nil, err
	}
	return String(strings.TrimSpace(s)), nil
}

func callReplace(receiver Value, args []Value) (Value, error) {
	if err := arity(args, 2); err != nil {
		return nil, err
	}
	s, ok := receiver.(String)
	if !ok {
		return nil, evalErrorf(ErrType, "replace: expected string receiver, got %s", receiver.Kind())
	}
	from, ok := args[0].(String)
	if !ok {
		return nil, evalErrorf(ErrType, "replace: expected string 'from' argument")
	}
	to, ok := args[1].(String)
	if !ok {
		return nil, evalErrorf(ErrType, "replace: expected string 'to' argument")
	}
	return String(strings.ReplaceAll(string(s), string(from), string(to))), nil
}

func callSplit(receiver Value, args []Value) (Value, error) {
	s, sep, err := twoStrings("split", receiver, args)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make(List, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return out, nil
}

func oneString(op string, receiver Value, args []Value) (string, error) {
	if err := arity(args, 0); err != nil {
		return "", err
	}
	s, ok := receiver.(String)
	if !ok {
		return "", evalErrorf(ErrType, "%s: expected string receiver, got %s", op, receiver.Kind())
	}
	return string(s), nil
}

func twoStrings(op string, receiver Value, args []Value) (string, string, error) {
	if err := arity(args, 1); err != nil {
		return "", "", err
	}
	s, ok := receiver.(String)
	if !ok {
		return "", "", evalErrorf(ErrType, "%s: expected string receiver, got %s", op, receiver.Kind())
	}
	other, ok := args[0].(String)
	if !ok {
		return "", "", evalErrorf(ErrType, "%s: expected string argument", op)
	}
	return string(s), string(other), nil
}

// The following implement the "skeletal date/time primitives" spec.md 9
// explicitly permits as placeholders: timestamp(x)/duration(x) parse into
// epoch seconds using the standard library's RFC3339/duration grammar
// (there is no calendar or protobuf-timestamp library anywhere in the
// example pack to ground this on instead), and the getX accessors read a
// field back out of that epoch-seconds Double in UTC.
func callTimestamp(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case String:
		t, err := time.Parse(time.RFC3339, string(v))
		if err != nil {
			return nil, evalErrorf(ErrType, "timestamp: invalid RFC3339 value %q: %v", string(v), err)
		}
		return Double(t.UTC().Unix()), nil
	case Int:
		return Double(v), nil
	case Double:
		return v, nil
	default:
		return nil, evalErrorf(ErrType, "timestamp: cannot convert %s", args[0].Kind())
	}
}

func callDuration(args []Value) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case String:
		d, err := time.ParseDuration(string(v))
		if err != nil {
			return nil, evalErrorf(ErrType, "duration: invalid value %q: %v", string(v), err)
		}
		return Double(d.Seconds()), nil
	case Int:
		return Double(v), nil
	case Double:
		return v, nil
	default:
		return nil, evalErrorf(ErrType, "duration: cannot convert %s", args[0].Kind())
	}
}

type timePart int

const (
	timeSecond timePart = iota
	timeMinute
	timeHour
	timeDay
	timeMonth
	timeYear
)

func callDatePart(args []Value, part timePart) (Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	epoch, ok := asFloat(args[0])
	if !ok {
		return nil, evalErrorf(ErrType, "expected a timestamp value, got %s", args[0].Kind())
	}
	t := time.Unix(int64(epoch), 0).UTC()
	switch part {
	case timeSecond:
		return Int(t.Second()), nil
	case timeMinute:
		return Int(t.Minute()), nil
	case timeHour:
		return Int(t.Hour()), nil
	case timeDay:
		return Int(t.Day()), nil
	case timeMonth:
		return Int(int(t.Month()) - 1), nil
	case timeYear:
		return Int(t.Year()), nil
	default:
		return nil, fmt.Errorf("unreachable time part %d", part)
	}
}
