package objects

import (
	"math/big"

	"github.com/roach88/strictmod/internal/ir"
)

// Callable is implemented by the payload of function objects. args holds
// positional arguments followed by keyword argument values; names holds the
// keyword names for the trailing len(names) entries of args.
type Callable interface {
	Name() string
	Call(ctx *CallerContext, args []Value, names []string) Value
}

// NativeFunc is the Go signature of a built-in function.
type NativeFunc func(ctx *CallerContext, args []Value, names []string) Value

// Builtin is a natively implemented function. Built-ins with external
// effects are reported as SideEffectError unless the policy allows them.
type Builtin struct {
	name       string
	fn         NativeFunc
	sideEffect bool
}

// NewBuiltin wraps fn as a callable payload.
func NewBuiltin(name string, fn NativeFunc) *Builtin {
	return &Builtin{name: name, fn: fn}
}

// NewSideEffectBuiltin wraps fn as a callable payload whose calls are
// SideEffectError unless the policy allows name.
func NewSideEffectBuiltin(name string, fn NativeFunc) *Builtin {
	return &Builtin{name: name, fn: fn, sideEffect: true}
}

func (b *Builtin) Name() string { return b.name }

// SideEffect reports whether calling b has effects outside the module.
func (b *Builtin) SideEffect() bool { return b.sideEffect }

func (b *Builtin) Call(ctx *CallerContext, args []Value, names []string) Value {
	if b.sideEffect && !ctx.Module.SideEffectAllowed(b.name) {
		ctx.Error(ir.KindSideEffectError, "call to %s() has side effects", b.name)
		return NewUnknown("result of %s()", b.name)
	}
	return b.fn(ctx, args, names)
}

// BoundMethod is the payload of method objects: a function bound to self.
type BoundMethod struct {
	Func Value
	Self Value
}

// Wrapped is the payload of staticmethod and classmethod objects.
type Wrapped struct {
	Func Value
}

// Property is the payload of property objects. Missing accessors are nil.
type Property struct {
	Get, Set, Del Value
	Doc           Value
}

// NewFunction wraps a callable as a function object. Function objects bind
// to instances when found on a class.
func NewFunction(fn Callable) *Instance {
	inst := NewInstance(builtins.FunctionType, fn)
	inst.dict.Set("__name__", NewStr(fn.Name()))
	return inst
}

// NewBuiltinFunction wraps a native function that does not bind, like the
// module-level built-ins.
func NewBuiltinFunction(b *Builtin) *Instance {
	return NewInstance(builtins.BuiltinFunctionType, b)
}

func newMethodDescriptor(b *Builtin) *Instance {
	return NewInstance(builtins.MethodDescriptorType, b)
}

// NewBoundMethod binds fn to self.
func NewBoundMethod(fn, self Value) *Instance {
	return NewInstance(builtins.MethodType, &BoundMethod{Func: fn, Self: self})
}

func newStaticMethod(fn Value) *Instance {
	return NewInstance(builtins.StaticMethodType, &Wrapped{Func: fn})
}

func newClassMethod(fn Value) *Instance {
	return NewInstance(builtins.ClassMethodType, &Wrapped{Func: fn})
}

func isFunction(v Value) bool {
	inst, ok := v.(*Instance)
	return ok && inst.typ == builtins.FunctionType
}

// Call invokes obj(args...).
func (t *Type) Call(ctx *CallerContext, obj Value, args []Value, names []string) Value {
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("call of an unknown value")
		return NewUnknown("result of unknown call")
	}
	inner, ok := ctx.Deeper()
	if !ok {
		return NewUnknown("call depth exceeded")
	}
	if inst, ok := obj.(*Instance); ok {
		switch p := inst.payload.(type) {
		case Callable:
			switch t {
			case builtins.FunctionType, builtins.BuiltinFunctionType, builtins.MethodDescriptorType:
				return p.Call(inner, args, names)
			}
		case *BoundMethod:
			if t == builtins.MethodType {
				return Call(inner, p.Func, prepend(p.Self, args), names)
			}
		}
	}
	fn, _, ok := t.Lookup("__call__")
	if !ok || fn == builtins.None {
		return ctx.Raise(builtins.TypeError, "'%s' object is not callable", t.name)
	}
	return callSpecial(inner, fn, obj, args, names)
}

// Call invokes fn(args...) through fn's type.
func Call(ctx *CallerContext, fn Value, args []Value, names []string) Value {
	return fn.Type().Call(ctx, fn, args, names)
}

// CallMethod loads obj.name and calls it.
func CallMethod(ctx *CallerContext, obj Value, name string, args ...Value) Value {
	m := LoadAttr(ctx, obj, name)
	if IsUnknown(m) {
		return m
	}
	return Call(ctx, m, args, nil)
}

// callSpecial invokes a special method found on self's type. Plain and
// native functions receive self as the first argument; anything else is
// bound through its __get__ first.
func callSpecial(ctx *CallerContext, fn, self Value, args []Value, names []string) Value {
	if inst, ok := fn.(*Instance); ok {
		switch inst.typ {
		case builtins.FunctionType, builtins.MethodDescriptorType:
			return Call(ctx, fn, prepend(self, args), names)
		}
	}
	bound := GetDescr(ctx, fn, self, self.Type())
	return Call(ctx, bound, args, names)
}

func prepend(v Value, args []Value) []Value {
	out := make([]Value, 0, len(args)+1)
	out = append(out, v)
	return append(out, args...)
}

// ConstructInstance returns a new instance of t with an empty namespace and
// the empty native payload of its built-in base. No constructor runs.
func (t *Type) ConstructInstance() *Instance {
	inst := &Instance{typ: t}
	if t.hasInstanceDict() {
		inst.dict = NewNamespace()
	}
	if t.empty != nil {
		inst.payload = t.empty()
	}
	return inst
}

// typeOf implements type(v). The class of an unknown value is unknown.
func typeOf(ctx *CallerContext, v Value) Value {
	if IsUnknown(v) {
		ctx.Opaque("type() of an unknown value")
		return NewUnknown("type of unknown value")
	}
	return v.Type()
}

// typeCall implements type.__call__: __new__, then __init__ when the result
// is an instance of the class.
func typeCall(ctx *CallerContext, args []Value, names []string) Value {
	cls, ok := args[0].(*Type)
	if !ok {
		return ctx.Raise(builtins.TypeError, "descriptor '__call__' requires a 'type' object")
	}
	rest := args[1:]
	if cls == builtins.TypeType && len(rest) == 1 && len(names) == 0 {
		return typeOf(ctx, rest[0])
	}
	newFn, _, ok := cls.Lookup("__new__")
	if !ok {
		return ctx.Raise(builtins.TypeError, "cannot create '%s' instances", cls.name)
	}
	ctor := GetDescr(ctx, newFn, nil, cls)
	inst := Call(ctx, ctor, prepend(cls, rest), names)
	if IsUnknown(inst) || !inst.Type().IsSubtype(cls) {
		return inst
	}
	init, _, ok := inst.Type().Lookup("__init__")
	if !ok {
		return inst
	}
	res := callSpecial(ctx, init, inst, rest, names)
	if !IsUnknown(res) && res != builtins.None {
		ctx.Raise(builtins.TypeError, "__init__() should return None, not '%s'", res.Type().name)
	}
	return inst
}

func objectNew(ctx *CallerContext, args []Value, names []string) Value {
	if len(args) == 0 {
		return ctx.Raise(builtins.TypeError, "object.__new__(): not enough arguments")
	}
	cls, ok := args[0].(*Type)
	if !ok {
		return ctx.Raise(builtins.TypeError, "object.__new__(X): X is not a type object (%s)", args[0].Type().name)
	}
	if len(args) > 1 {
		_, newOwner, _ := cls.Lookup("__new__")
		_, initOwner, _ := cls.Lookup("__init__")
		if newOwner != builtins.ObjectType {
			return ctx.Raise(builtins.TypeError, "object.__new__() takes exactly one argument (the type to instantiate)")
		}
		if initOwner == builtins.ObjectType {
			return ctx.Raise(builtins.TypeError, "%s() takes no arguments", cls.name)
		}
	}
	if cls.IsOpaque() {
		return NewUnknown("instance of unknown type")
	}
	return cls.ConstructInstance()
}

func objectInit(ctx *CallerContext, args []Value, names []string) Value {
	if len(args) > 1 {
		t := args[0].Type()
		_, newOwner, _ := t.Lookup("__new__")
		_, initOwner, _ := t.Lookup("__init__")
		if initOwner != builtins.ObjectType {
			return ctx.Raise(builtins.TypeError, "object.__init__() takes exactly one argument (the instance to initialize)")
		}
		if newOwner == builtins.ObjectType {
			return ctx.Raise(builtins.TypeError, "%s() takes no arguments", t.name)
		}
	}
	return builtins.None
}

// GetTruthValue evaluates bool(obj): __bool__, then __len__, else True.
// The result is True, False or Unknown.
func (t *Type) GetTruthValue(ctx *CallerContext, obj Value) Value {
	if IsUnknown(obj) {
		return NewUnknown("truth of unknown")
	}
	switch obj {
	case builtins.True:
		return builtins.True
	case builtins.False, builtins.None:
		return builtins.False
	}
	if fn, _, ok := t.Lookup("__bool__"); ok {
		res := callSpecial(ctx, fn, obj, nil, nil)
		if IsUnknown(res) {
			return res
		}
		if res != builtins.True && res != builtins.False {
			return ctx.Raise(builtins.TypeError, "__bool__ should return bool, returned %s", res.Type().name)
		}
		return res
	}
	if fn, _, ok := t.Lookup("__len__"); ok {
		n := lenResult(ctx, callSpecial(ctx, fn, obj, nil, nil))
		if n == nil {
			return NewUnknown("truth of unknown length")
		}
		return NewBool(n.Sign() != 0)
	}
	return builtins.True
}

// lenResult validates a __len__ result. nil means unknown or invalid.
func lenResult(ctx *CallerContext, res Value) *big.Int {
	if IsUnknown(res) {
		return nil
	}
	n, ok := AsInt(res)
	if !ok {
		ctx.Raise(builtins.TypeError, "'%s' object cannot be interpreted as an integer", res.Type().name)
		return nil
	}
	if n.Sign() < 0 {
		ctx.Raise(builtins.ValueError, "__len__() should return >= 0")
		return nil
	}
	return n
}

// Truth evaluates bool(v) through v's type.
func Truth(ctx *CallerContext, v Value) Value {
	return v.Type().GetTruthValue(ctx, v)
}

// Len evaluates len(v) as an int value or Unknown.
func Len(ctx *CallerContext, v Value) Value {
	if IsUnknown(v) {
		ctx.Opaque("len() of an unknown value")
		return NewUnknown("len of unknown")
	}
	fn, _, ok := v.Type().Lookup("__len__")
	if !ok {
		return ctx.Raise(builtins.TypeError, "object of type '%s' has no len()", v.Type().name)
	}
	n := lenResult(ctx, callSpecial(ctx, fn, v, nil, nil))
	if n == nil {
		return NewUnknown("len")
	}
	return NewIntBig(n)
}
