package objects

import "strings"

func (r *Registry) buildExceptions() {
	r.BaseException = r.newType("BaseException", flagLayout)
	r.Exception = r.newType("Exception", 0, r.BaseException)
	exc := func(name string, base *Type) *Type { return r.newType(name, 0, base) }

	r.ArithmeticError = exc("ArithmeticError", r.Exception)
	r.AssertionError = exc("AssertionError", r.Exception)
	r.AttributeError = exc("AttributeError", r.Exception)
	r.ImportError = exc("ImportError", r.Exception)
	r.ModuleNotFoundError = exc("ModuleNotFoundError", r.ImportError)
	r.LookupError = exc("LookupError", r.Exception)
	r.IndexError = exc("IndexError", r.LookupError)
	r.KeyError = exc("KeyError", r.LookupError)
	r.NameError = exc("NameError", r.Exception)
	r.UnboundLocalError = exc("UnboundLocalError", r.NameError)
	r.RuntimeError = exc("RuntimeError", r.Exception)
	r.NotImplementedError = exc("NotImplementedError", r.RuntimeError)
	r.RecursionError = exc("RecursionError", r.RuntimeError)
	r.OverflowError = exc("OverflowError", r.ArithmeticError)
	r.ZeroDivisionError = exc("ZeroDivisionError", r.ArithmeticError)
	r.StopIteration = exc("StopIteration", r.Exception)
	r.TypeError = exc("TypeError", r.Exception)
	r.ValueError = exc("ValueError", r.Exception)

	// Bound by name only.
	exc("SystemExit", r.BaseException)
	exc("KeyboardInterrupt", r.BaseException)
	exc("GeneratorExit", r.BaseException)
	exc("FloatingPointError", r.ArithmeticError)
	exc("UnicodeError", r.ValueError)
	exc("OSError", r.Exception)
	exc("EOFError", r.Exception)
	warning := exc("Warning", r.Exception)
	exc("UserWarning", warning)
	exc("DeprecationWarning", warning)
	exc("RuntimeWarning", warning)
}

// newException returns an instance of t whose args are (msg,).
func newException(t *Type, msg string) *Instance {
	inst := t.ConstructInstance()
	inst.dict.Set("args", NewTuple([]Value{NewStr(msg)}))
	return inst
}

// newKeyError returns a KeyError for key.
func newKeyError(key Value) *Instance {
	inst := builtins.KeyError.ConstructInstance()
	inst.dict.Set("args", NewTuple([]Value{key}))
	return inst
}

// RaiseKey raises KeyError(key).
func (c *CallerContext) RaiseKey(key Value) Value {
	c.RaiseValue(newKeyError(key))
	return NewUnknown("KeyError: %s", Describe(key))
}

// exceptionArgs returns the args tuple of an exception instance.
func exceptionArgs(exc Value) ([]Value, bool) {
	inst, ok := exc.(*Instance)
	if !ok || inst.dict == nil {
		return nil, false
	}
	args, ok := inst.dict.Get("args")
	if !ok {
		return nil, false
	}
	return tupleItems(args)
}

// ExceptionMessage renders an exception the way str(exc) would, without
// running user code. Classes and exceptions without args render empty.
func ExceptionMessage(exc Value) string {
	args, ok := exceptionArgs(exc)
	if !ok {
		return ""
	}
	switch len(args) {
	case 0:
		return ""
	case 1:
		if s, ok := AsStr(args[0]); ok && !exc.Type().IsSubtype(builtins.KeyError) {
			return s
		}
		return Describe(args[0])
	}
	return Describe(NewTuple(args))
}

func (r *Registry) setupExceptions() {
	t := r.BaseException
	setArgs := func(ctx *CallerContext, self Value, args []Value, names []string) bool {
		if len(names) > 0 {
			ctx.Raise(r.TypeError, "%s() takes no keyword arguments", self.Type().name)
			return false
		}
		inst, ok := self.(*Instance)
		if !ok || inst.dict == nil {
			return false
		}
		ctx.Module.Assign(inst.dict, "args", NewTuple(append([]Value(nil), args...)))
		return true
	}
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		cls, ok := args[0].(*Type)
		if !ok || !cls.IsSubtype(r.BaseException) {
			return ctx.Raise(r.TypeError, "BaseException.__new__(X): X is not a subtype of BaseException")
		}
		if cls.IsOpaque() {
			return NewUnknown("exception of unknown type")
		}
		inst := cls.ConstructInstance()
		pos, _ := splitArgs(args[1:], names)
		inst.dict.Set("args", NewTuple(append([]Value(nil), pos...)))
		return inst
	})
	r.def(t, "__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		setArgs(ctx, args[0], args[1:len(args)-len(names)], names)
		return r.None
	})
	r.unaryMethod(t, "__str__", func(ctx *CallerContext, self Value) Value {
		args, ok := exceptionArgs(self)
		if !ok {
			return NewUnknown("exception text")
		}
		switch len(args) {
		case 0:
			return NewStr("")
		case 1:
			if self.Type().IsSubtype(r.KeyError) {
				return Repr(ctx, args[0])
			}
			return Str(ctx, args[0])
		}
		return Repr(ctx, NewTuple(args))
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		args, ok := exceptionArgs(self)
		if !ok {
			return NewUnknown("exception repr")
		}
		parts := make([]string, len(args))
		for i, a := range args {
			s, ok := AsStr(Repr(ctx, a))
			if !ok {
				return NewUnknown("exception repr")
			}
			parts[i] = s
		}
		return NewStr(self.Type().name + "(" + strings.Join(parts, ", ") + ")")
	})
	r.def(t, "with_traceback", func(ctx *CallerContext, args []Value, names []string) Value {
		return args[0]
	})
	for _, name := range []string{"__cause__", "__context__", "__traceback__"} {
		t.dict.Set(name, r.None)
	}
	t.dict.Set("__suppress_context__", r.False)

	r.defGetSet(r.StopIteration, "value", func(ctx *CallerContext, obj Value) Value {
		if args, ok := exceptionArgs(obj); ok && len(args) > 0 {
			return args[0]
		}
		return r.None
	}, nil)
}
