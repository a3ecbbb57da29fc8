package objects

// splitArgs separates positional arguments from keyword arguments.
func splitArgs(args []Value, names []string) ([]Value, []Value) {
	n := len(args) - len(names)
	return args[:n], args[n:]
}

// bindArgs binds native arguments to params by position or by name. The
// first required params must be supplied; the rest are nil when absent.
func bindArgs(ctx *CallerContext, fname string, args []Value, names []string, params []string, required int) ([]Value, bool) {
	pos, kw := splitArgs(args, names)
	if len(pos) > len(params) {
		if len(params) == required {
			ctx.Raise(builtins.TypeError, "%s() takes exactly %d arguments (%d given)", fname, len(params), len(pos))
		} else {
			ctx.Raise(builtins.TypeError, "%s expected at most %d arguments, got %d", fname, len(params), len(pos))
		}
		return nil, false
	}
	out := make([]Value, len(params))
	copy(out, pos)
	for i, name := range names {
		idx := -1
		for j, p := range params {
			if p == name {
				idx = j
				break
			}
		}
		if idx < 0 {
			ctx.Raise(builtins.TypeError, "%s() got an unexpected keyword argument '%s'", fname, name)
			return nil, false
		}
		if out[idx] != nil {
			ctx.Raise(builtins.TypeError, "argument for %s() given by name ('%s') and position (%d)", fname, name, idx+1)
			return nil, false
		}
		out[idx] = kw[i]
	}
	for i := 0; i < required; i++ {
		if out[i] == nil {
			ctx.Raise(builtins.TypeError, "%s() missing required argument '%s' (pos %d)", fname, params[i], i+1)
			return nil, false
		}
	}
	return out, true
}

// positional accepts between min and max positional arguments and no
// keywords. A negative max means unbounded.
func positional(ctx *CallerContext, fname string, args []Value, names []string, min, max int) ([]Value, bool) {
	if len(names) > 0 {
		ctx.Raise(builtins.TypeError, "%s() takes no keyword arguments", fname)
		return nil, false
	}
	switch {
	case len(args) < min:
		ctx.Raise(builtins.TypeError, "%s expected at least %d arguments, got %d", fname, min, len(args))
		return nil, false
	case max >= 0 && len(args) > max:
		ctx.Raise(builtins.TypeError, "%s expected at most %d arguments, got %d", fname, max, len(args))
		return nil, false
	}
	return args, true
}

// keywordArg returns the value of keyword name, or nil.
func keywordArg(args []Value, names []string, name string) Value {
	_, kw := splitArgs(args, names)
	for i, n := range names {
		if n == name {
			return kw[i]
		}
	}
	return nil
}

func orNone(v Value) Value {
	if v == nil {
		return builtins.None
	}
	return v
}

func noneToNil(v Value) Value {
	if v == builtins.None {
		return nil
	}
	return v
}
