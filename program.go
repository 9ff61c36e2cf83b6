package cel

// Program is a parsed, immutable expression ready to be evaluated
// repeatedly against different bindings (spec.md 6). It is safe for
// concurrent Evaluate calls: evaluation state lives entirely in the
// per-call Activation, never on Program itself (spec.md 5).
type Program struct {
	ast Node
	fns Functions
}

// Option configures Compile.
type Option func(*compileOptions)

type compileOptions struct {
	fns Functions
}

// WithFunctions overrides the function table a Program evaluates against.
// Omitted, Compile uses Standard.
func WithFunctions(fns Functions) Option {
	return func(o *compileOptions) {
		o.fns = fns
	}
}

// Compile parses source into a Program, or returns a *ParseError.
func Compile(source string, opts ...Option) (*Program, error) {
	logger().Debugw("compiling expression", "source", source)
	ast, err := Parse(source)
	if err != nil {
		logger().Debugw("parse failed", "source", source, "error", err)
		return nil, err
	}
	o := compileOptions{fns: NewStandard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Program{ast: ast, fns: o.fns}, nil
}

// Evaluate runs the compiled Program against a fresh binding map, returning
// its Value or an *EvalError.
func (p *Program) Evaluate(bindings map[string]Value) (Value, error) {
	act := NewActivation(bindings)
	ev := NewEvaluator(p.fns)
	v, err := ev.Eval(p.ast, act)
	if err != nil {
		logger().Debugw("evaluation failed", "error", err)
		return nil, err
	}
	return v, nil
}

// Eval is the convenience form of spec.md 6: compile then evaluate in one
// call.
func Eval(source string, bindings map[string]Value, opts ...Option) (Value, error) {
	p, err := Compile(source, opts...)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(bindings)
}
