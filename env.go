package cel

import "fmt"

// Activation is the binding environment of spec.md 3.3: a flat mapping
// from identifier name to Value, supplied per evaluation. It is modeled on
// the teacher's non-generic root Environment/Env (collection.go), extended
// with shadow/unshadow so the evaluator can transiently shadow a name
// during macro evaluation and restore it exactly, including on the error
// path (spec.md 4.6, 8.1).
type Activation struct {
	values map[string]Value
}

// NewActivation builds an Activation from an embedder-supplied binding map.
// The map is copied; later mutation of the caller's map does not affect
// the Activation.
func NewActivation(bindings map[string]Value) *Activation {
	values := make(map[string]Value, len(bindings))
	for k, v := range bindings {
		values[k] = v
	}
	return &Activation{values: values}
}

// Resolve looks up ident, failing with ErrUndefined if it is absent.
func (a *Activation) Resolve(ident string) (Value, error) {
	v, ok := a.values[ident]
	if !ok {
		return nil, &EvalError{Err: ErrUndefined, Msg: fmt.Sprintf("undeclared reference to %q", ident)}
	}
	return v, nil
}

// Define binds ident to value, overwriting any prior binding.
func (a *Activation) Define(ident string, value Value) {
	a.values[ident] = value
}

// binding snapshots the prior state of one name so it can be restored
// after a macro's transient shadow goes out of scope.
type binding struct {
	ident   string
	prior   Value
	existed bool
}

// shadow installs value for ident, returning a binding that restores
// whatever was there before (or removes ident entirely if it was not
// previously bound). Used by macros.go to implement spec.md 4.6's binding
// discipline: "save any prior value ... restore on all exits".
func (a *Activation) shadow(ident string, value Value) binding {
	prior, existed := a.values[ident]
	a.values[ident] = value
	return binding{ident: ident, prior: prior, existed: existed}
}

func (a *Activation) unshadow(b binding) {
	if b.existed {
		a.values[b.ident] = b.prior
		return
	}
	delete(a.values, b.ident)
}
