package cel

// evalMacro implements spec.md 4.6's five comprehension macros. The
// receiver is evaluated once; the iteration variable (n.Args[0], which must
// be a bare Identifier, else ErrMacroArg is returned here) is bound and
// unbound around each element via Activation.shadow/unshadow, mirroring
// the teacher's Array.filter/mapArray loop shape (play/compound.go) but
// operating on unevaluated sub-AST rather than a Callable.
func (e *Evaluator) evalMacro(n Call, act *Activation) (Value, error) {
	receiver, err := e.Eval(n.Target, act)
	if err != nil {
		return nil, err
	}
	elems, ok := receiver.(List)
	if !ok {
		return nil, evalErrorf(ErrMacroReceiver, "%s: receiver must be a list, got %s", n.Name, receiver.Kind())
	}

	iterVar, ok := n.Args[0].(Identifier)
	if !ok {
		return nil, &EvalError{Err: ErrMacroArg, Msg: n.Name + ": first argument must be a bare identifier"}
	}
	body := n.Args[1]

	switch n.Name {
	case "map":
		return e.macroMap(elems, iterVar.Name, body, act)
	case "filter":
		return e.macroFilter(elems, iterVar.Name, body, act)
	case "all":
		return e.macroAll(elems, iterVar.Name, body, act)
	case "exists":
		return e.macroExists(elems, iterVar.Name, body, act)
	case "existsOne":
		return e.macroExistsOne(elems, iterVar.Name, body, act)
	default:
		return nil, evalErrorf(ErrUnknownFunc, "%s is not a macro", n.Name)
	}
}

// withElement binds ident to v for the duration of fn, restoring the prior
// binding (or removing ident) on every exit path, including an error
// returned by fn (spec.md 4.6/8.1's binding-hygiene invariant).
func withElement(act *Activation, ident string, v Value, fn func() error) error {
	saved := act.shadow(ident, v)
	err := fn()
	act.unshadow(saved)
	return err
}

func (e *Evaluator) macroMap(elems List, ident string, body Node, act *Activation) (Value, error) {
	out := make(List, len(elems))
	for i, v := range elems {
		if err := withElement(act, ident, v, func() error {
			r, err := e.Eval(body, act)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Evaluator) macroFilter(elems List, ident string, body Node, act *Activation) (Value, error) {
	var out List
	for _, v := range elems {
		if err := withElement(act, ident, v, func() error {
			r, err := e.Eval(body, act)
			if err != nil {
				return err
			}
			keep, err := asBool(r)
			if err != nil {
				return err
			}
			if keep {
				out = append(out, v)
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Evaluator) macroAll(elems List, ident string, body Node, act *Activation) (Value, error) {
	result := true
	for _, v := range elems {
		if err := withElement(act, ident, v, func() error {
			r, err := e.Eval(body, act)
			if err != nil {
				return err
			}
			ok, err := asBool(r)
			if err != nil {
				return err
			}
			if !ok {
				result = false
			}
			return nil
		}); err != nil {
			return nil, err
		}
		if !result {
			break
		}
	}
	return Bool(result), nil
}

func (e *Evaluator) macroExists(elems List, ident string, body Node, act *Activation) (Value, error) {
	found := false
	for _, v := range elems {
		if err := withElement(act, ident, v, func() error {
			r, err := e.Eval(body, act)
			if err != nil {
				return err
			}
			ok, err := asBool(r)
			if err != nil {
				return err
			}
			if ok {
				found = true
			}
			return nil
		}); err != nil {
			return nil, err
		}
		if found {
			break
		}
	}
	return Bool(found), nil
}

func (e *Evaluator) macroExistsOne(elems List, ident string, body Node, act *Activation) (Value, error) {
	count := 0
	for _, v := range elems {
		if err := withElement(act, ident, v, func() error {
			r, err := e.Eval(body, act)
			if err != nil {
				return err
			}
			ok, err := asBool(r)
			if err != nil {
				return err
			}
			if ok {
				count++
			}
			return nil
		}); err != nil {
			return nil, err
		}
		if count > 1 {
			break
		}
	}
	return Bool(count == 1), nil
}
