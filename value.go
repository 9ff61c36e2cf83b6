package cel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind names the nine members of the dynamic value space (spec.md 3.1).
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindDouble
	KindString
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is any member of the CEL dynamic value space. Concrete
// implementations are the types below; the set is closed the same way the
// teacher's play.Value implementations are (play/primitives.go), except
// operator semantics are centralized in eval.go's kind-switches rather than
// dispatched through per-value methods (spec.md 9's explicit deviation from
// the teacher's per-op-interface style).
type Value interface {
	Kind() Kind
	String() string
}

// Null is CEL's single null sentinel.
type Null struct{}

func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "null" }

// Bool is a CEL boolean.
type Bool bool

func (Bool) Kind() Kind       { return KindBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Int is a 64-bit signed integer.
type Int int64

func (Int) Kind() Kind       { return KindInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Uint is a 64-bit unsigned integer.
type Uint uint64

func (Uint) Kind() Kind       { return KindUint }
func (u Uint) String() string { return strconv.FormatUint(uint64(u), 10) }

// Double is an IEEE-754 binary64 value.
type Double float64

func (Double) Kind() Kind { return KindDouble }
func (d Double) String() string {
	return formatDouble(float64(d))
}

// String is CEL's Unicode text kind.
type String string

func (String) Kind() Kind        { return KindString }
func (s String) String() string  { return string(s) }

// Bytes is an immutable byte sequence, distinct from String even when it
// carries the same octets (spec.md 3.1).
type Bytes []byte

func (Bytes) Kind() Kind { return KindBytes }
func (b Bytes) String() string {
	return "b" + strconv.Quote(string(b))
}

// List is an ordered, heterogeneous sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }
func (l List) String() string {
	var buf strings.Builder
	buf.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(debugString(v))
	}
	buf.WriteByte(']')
	return buf.String()
}

// mapEntry is one key/value pair of a Map, in insertion order.
type mapEntry struct {
	Key Value
	Val Value
}

// Map is CEL's ordered map: lookup is by structural equality and iteration
// is insertion order. Put and Set give callers a choice of duplicate-key
// policy; evalMap (eval.go) uses Set to give literal construction
// last-write-wins semantics, per spec.md 4.5.
type Map struct {
	entries []mapEntry
	index   map[string]int
}

// NewMap builds an empty, ready-to-use Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Put inserts or, on a duplicate key, leaves the existing entry alone and
// reports whether the key was new. Callers wanting last-write-wins should
// use Set instead.
func (m *Map) Put(key, val Value) bool {
	k := hashKey(key)
	if _, ok := m.index[k]; ok {
		return false
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, mapEntry{Key: key, Val: val})
	return true
}

// Set inserts or overwrites the value for key.
func (m *Map) Set(key, val Value) {
	k := hashKey(key)
	if i, ok := m.index[k]; ok {
		m.entries[i].Val = val
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, mapEntry{Key: key, Val: val})
}

// Get looks up key by structural equality.
func (m *Map) Get(key Value) (Value, bool) {
	i, ok := m.index[hashKey(key)]
	if !ok {
		return nil, false
	}
	return m.entries[i].Val, true
}

// Has reports whether key is present.
func (m *Map) Has(key Value) bool {
	_, ok := m.index[hashKey(key)]
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Entries returns the map's entries in insertion order. Callers must not
// mutate the returned slice's contents.
func (m *Map) Entries() []mapEntry {
	return m.entries
}

func (*Map) Kind() Kind { return KindMap }

func (m *Map) String() string {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(debugString(e.Key))
		buf.WriteString(": ")
		buf.WriteString(debugString(e.Val))
	}
	buf.WriteByte('}')
	return buf.String()
}

// formatDouble renders a double the way CEL's textual form does: shortest
// round-tripping decimal, always with a fractional part or exponent so it
// is visibly distinct from an int.
func formatDouble(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "+Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// stringify is the "canonical text" conversion of spec.md 4.4's string(x):
// null -> "null", bool -> true/false, numbers -> standard textual form,
// string -> itself, list/map -> debug form.
func stringify(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return v.String()
}

// debugString is stringify, except strings are quoted -- used when a value
// is being rendered as an element of a list/map (spec.md 4.4).
func debugString(v Value) string {
	if s, ok := v.(String); ok {
		return strconv.Quote(string(s))
	}
	return v.String()
}

// hashKey produces a canonical string for use as a Map's internal index,
// normalizing numeric kinds so int/uint/double keys that denote the same
// mathematical integer collide (spec.md 4.2's cross-kind numeric equality
// applies to map keys too).
func hashKey(v Value) string {
	switch t := v.(type) {
	case Null:
		return "z"
	case Bool:
		return "b:" + strconv.FormatBool(bool(t))
	case Int:
		return "n:" + strconv.FormatInt(int64(t), 10)
	case Uint:
		return "n:" + strconv.FormatUint(uint64(t), 10)
	case Double:
		f := float64(t)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return "n:" + strconv.FormatFloat(f, 'f', -1, 64)
		}
		return "d:" + strconv.FormatFloat(f, 'g', -1, 64)
	case String:
		return "s:" + string(t)
	case Bytes:
		return "y:" + string(t)
	case List:
		var buf strings.Builder
		buf.WriteByte('[')
		for _, e := range t {
			buf.WriteString(hashKey(e))
			buf.WriteByte(',')
		}
		buf.WriteByte(']')
		return buf.String()
	case *Map:
		var buf strings.Builder
		buf.WriteByte('{')
		for _, e := range t.entries {
			buf.WriteString(hashKey(e.Key))
			buf.WriteByte('=')
			buf.WriteString(hashKey(e.Val))
			buf.WriteByte(',')
		}
		buf.WriteByte('}')
		return buf.String()
	default:
		return fmt.Sprintf("?:%v", v)
	}
}

func isNumeric(v Value) bool {
	switch v.(type) {
	case Int, Uint, Double:
		return true
	default:
		return false
	}
}

// asFloat converts any numeric Value to float64 for arithmetic that mixes
// kinds (spec.md 3.1's int<->double promotion rule).
func asFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Uint:
		return float64(t), true
	case Double:
		return float64(t), true
	default:
		return 0, false
	}
}

// equalValues implements spec.md 4.2's structural equality relation.
func equalValues(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		return af == bf
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && string(av) == string(bv)
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, e := range av.entries {
			other, ok := bv.Get(e.Key)
			if !ok || !equalValues(e.Val, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// compareValues implements spec.md 4.2's ordering relation. It returns an
// error for kinds with no defined order (or comparing across unrelated
// kinds).
func compareValues(a, b Value) (int, error) {
	if isNumeric(a) && isNumeric(b) {
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		if !ok {
			break
		}
		return strings.Compare(string(av), string(bv)), nil
	case Bool:
		bv, ok := b.(Bool)
		if !ok {
			break
		}
		if av == bv {
			return 0, nil
		}
		if !bool(av) && bool(bv) {
			return -1, nil
		}
		return 1, nil
	case List:
		bv, ok := b.(List)
		if !ok {
			break
		}
		for i := 0; i < len(av) && i < len(bv); i++ {
			c, err := compareValues(av[i], bv[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		return len(av) - len(bv), nil
	}
	return 0, &EvalError{Err: ErrType, Msg: fmt.Sprintf("%s and %s are not orderable", a.Kind(), b.Kind())}
}

// sizeOf implements spec.md 4.2's size relation.
func sizeOf(v Value) (int64, error) {
	switch t := v.(type) {
	case String:
		return int64(utf8.RuneCountInString(string(t))), nil
	case Bytes:
		return int64(len(t)), nil
	case List:
		return int64(len(t)), nil
	case *Map:
		return int64(t.Len()), nil
	default:
		return 0, &EvalError{Err: ErrType, Msg: fmt.Sprintf("size undefined for %s", v.Kind())}
	}
}

// asBool requires v to already be a Bool, per spec.md 4.5's rule that
// logical/conditional operands must be booleans -- there is no truthiness
// coercion in CEL.
func asBool(v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, &EvalError{Err: ErrType, Msg: fmt.Sprintf("expected bool, got %s", v.Kind())}
	}
	return bool(b), nil
}
