package objects

import (
	"math/big"
)

// Registry holds the built-in types and singletons. It is built once per
// process and shared read-only by every module analysis.
type Registry struct {
	ObjectType *Type
	TypeType   *Type
	ModuleType *Type
	OpaqueType *Type

	NoneType           *Type
	NotImplementedType *Type
	EllipsisType       *Type

	IntType   *Type
	BoolType  *Type
	FloatType *Type
	StrType   *Type
	BytesType *Type

	ListType  *Type
	TupleType *Type
	DictType  *Type
	SetType   *Type
	RangeType *Type
	SliceType *Type

	FunctionType         *Type
	BuiltinFunctionType  *Type
	MethodDescriptorType *Type
	MethodType           *Type
	StaticMethodType     *Type
	ClassMethodType      *Type
	PropertyType         *Type
	GetSetType           *Type
	SuperType            *Type
	IteratorType         *Type

	BaseException       *Type
	Exception           *Type
	ArithmeticError     *Type
	AssertionError      *Type
	AttributeError      *Type
	ImportError         *Type
	ModuleNotFoundError *Type
	LookupError         *Type
	IndexError          *Type
	KeyError            *Type
	NameError           *Type
	UnboundLocalError   *Type
	NotImplementedError *Type
	OverflowError       *Type
	RecursionError      *Type
	RuntimeError        *Type
	StopIteration       *Type
	TypeError           *Type
	ValueError          *Type
	ZeroDivisionError   *Type

	None           *Instance
	True           *Instance
	False          *Instance
	NotImplemented *Instance
	Ellipsis       *Instance

	types     []*Type
	smallInts [smallIntMax - smallIntMin + 1]*Instance
	names     *Namespace
}

const (
	smallIntMin = -5
	smallIntMax = 256
)

// builtins is assigned in init and never modified afterwards.
var builtins *Registry

func init() {
	builtins = &Registry{}
	builtins.build()
}

// Builtins returns the process-wide built-in registry.
func Builtins() *Registry { return builtins }

// Names returns the builtins namespace consulted after module globals.
func (r *Registry) Names() *Namespace { return r.names }

// Lookup returns the built-in bound to name.
func (r *Registry) Lookup(name string) (Value, bool) {
	return r.names.Get(name)
}

// Types returns every built-in type in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.types))
	copy(out, r.types)
	return out
}

func (r *Registry) build() {
	r.ObjectType = &Type{name: "object", flags: flagBuiltin | flagNoDict, dict: NewNamespace()}
	r.TypeType = &Type{name: "type", flags: flagBuiltin | flagLayout, dict: NewNamespace()}
	r.register(r.ObjectType)
	r.register(r.TypeType)
	r.ObjectType.meta = r.TypeType
	r.TypeType.meta = r.TypeType
	r.TypeType.bases = []*Type{r.ObjectType}

	// Descriptor types come first: defining any method needs them.
	r.MethodDescriptorType = r.newType("method_descriptor", flagNoDict|flagFinal)
	r.BuiltinFunctionType = r.newType("builtin_function_or_method", flagNoDict|flagFinal)
	r.FunctionType = r.newType("function", flagFinal)
	r.MethodType = r.newType("method", flagNoDict|flagFinal)
	r.StaticMethodType = r.newType("staticmethod", flagNoDict|flagLayout)
	r.ClassMethodType = r.newType("classmethod", flagNoDict|flagLayout)
	r.PropertyType = r.newType("property", flagNoDict|flagLayout)
	r.GetSetType = r.newType("getset_descriptor", flagNoDict|flagFinal)

	r.ModuleType = r.newType("module", 0)
	r.OpaqueType = r.newType("unknown", flagNoDict|flagFinal|flagOpaque)
	r.NoneType = r.newType("NoneType", flagNoDict|flagFinal)
	r.NotImplementedType = r.newType("NotImplementedType", flagNoDict|flagFinal)
	r.EllipsisType = r.newType("ellipsis", flagNoDict|flagFinal)

	r.IntType = r.newType("int", flagNoDict|flagLayout)
	r.BoolType = r.newType("bool", flagNoDict|flagFinal, r.IntType)
	r.FloatType = r.newType("float", flagNoDict|flagLayout)
	r.StrType = r.newType("str", flagNoDict|flagLayout)
	r.BytesType = r.newType("bytes", flagNoDict|flagLayout)
	r.ListType = r.newType("list", flagNoDict|flagLayout)
	r.TupleType = r.newType("tuple", flagNoDict|flagLayout)
	r.DictType = r.newType("dict", flagNoDict|flagLayout)
	r.SetType = r.newType("set", flagNoDict|flagLayout)
	r.RangeType = r.newType("range", flagNoDict|flagFinal)
	r.SliceType = r.newType("slice", flagNoDict|flagFinal)
	r.SuperType = r.newType("super", flagNoDict|flagLayout)
	r.IteratorType = r.newType("iterator", flagNoDict|flagFinal)

	r.None = &Instance{typ: r.NoneType}
	r.NotImplemented = &Instance{typ: r.NotImplementedType}
	r.Ellipsis = &Instance{typ: r.EllipsisType}
	r.True = &Instance{typ: r.BoolType, payload: big.NewInt(1)}
	r.False = &Instance{typ: r.BoolType, payload: big.NewInt(0)}
	for i := range r.smallInts {
		r.smallInts[i] = &Instance{typ: r.IntType, payload: big.NewInt(int64(i + smallIntMin))}
	}

	r.IntType.empty = func() any { return new(big.Int) }
	r.FloatType.empty = func() any { return 0.0 }
	r.StrType.empty = func() any { return "" }
	r.BytesType.empty = func() any { return []byte{} }
	r.ListType.empty = func() any { return NewListPayload(nil, false) }
	r.TupleType.empty = func() any { return NewListPayload(nil, false) }
	r.DictType.empty = func() any { return NewDictPayload() }
	r.SetType.empty = func() any { return NewDictPayload() }
	r.StaticMethodType.empty = func() any { return &Wrapped{Func: r.None} }
	r.ClassMethodType.empty = func() any { return &Wrapped{Func: r.None} }
	r.PropertyType.empty = func() any { return &Property{} }
	r.SuperType.empty = func() any { return &Super{} }

	r.buildExceptions()

	r.setupObject()
	r.setupType()
	r.setupDescriptors()
	r.setupSingletons()
	r.setupInt()
	r.setupBool()
	r.setupFloat()
	r.setupStr()
	r.setupBytes()
	r.setupList()
	r.setupTuple()
	r.setupDict()
	r.setupSet()
	r.setupRange()
	r.setupSlice()
	r.setupIterator()
	r.setupSuper()
	r.setupExceptions()

	for _, t := range r.types {
		if _, ok := t.dict.Get("__module__"); !ok {
			t.dict.Set("__module__", NewStr("builtins"))
		}
		if err := t.finalize(1 << 10); err != nil {
			panic("objects: built-in type " + t.name + ": " + err.Error())
		}
	}

	r.names = NewNamespace()
	r.setupFunctions()
}

func (r *Registry) register(t *Type) {
	r.types = append(r.types, t)
	t.id = TypeID(len(r.types))
}

// newType registers a built-in type. Without explicit bases it derives from
// object.
func (r *Registry) newType(name string, flags typeFlags, bases ...*Type) *Type {
	if len(bases) == 0 {
		bases = []*Type{r.ObjectType}
	}
	t := &Type{
		name:  name,
		bases: bases,
		meta:  r.TypeType,
		dict:  NewNamespace(),
		flags: flags | flagBuiltin,
	}
	r.register(t)
	return t
}

// def installs a native method on t. The wrapper rejects a missing or
// foreign self before fn runs.
func (r *Registry) def(t *Type, name string, fn NativeFunc) {
	qual := t.name + "." + name
	t.dict.Set(name, newMethodDescriptor(NewBuiltin(qual, func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) <= len(names) {
			return ctx.Raise(r.TypeError, "unbound method %s() needs an argument", qual)
		}
		self := args[0]
		if IsUnknown(self) {
			ctx.Opaque("%s() called on an unknown value", qual)
			return NewUnknown("result of %s()", qual)
		}
		if !self.Type().IsSubtype(t) {
			return ctx.Raise(r.TypeError, "descriptor '%s' for '%s' objects doesn't apply to a '%s' object", name, t.name, self.Type().name)
		}
		return fn(ctx, args, names)
	})))
}

// defStatic installs a static native function, like __new__.
func (r *Registry) defStatic(t *Type, name string, fn NativeFunc) {
	t.dict.Set(name, newStaticMethod(NewBuiltinFunction(NewBuiltin(t.name+"."+name, fn))))
}

// defGetSet installs a native data descriptor. A nil set makes it read-only.
func (r *Registry) defGetSet(t *Type, name string, get func(ctx *CallerContext, obj Value) Value, set func(ctx *CallerContext, obj, v Value)) {
	t.dict.Set(name, NewInstance(r.GetSetType, &GetSet{name: name, owner: t, get: get, set: set}))
}

// defFunc binds a module-level built-in function.
func (r *Registry) defFunc(name string, fn NativeFunc) {
	r.names.Set(name, NewBuiltinFunction(NewBuiltin(name, fn)))
}

// defEffect binds a built-in whose call has effects outside the module.
func (r *Registry) defEffect(name string, fn NativeFunc) {
	r.names.Set(name, NewBuiltinFunction(NewSideEffectBuiltin(name, fn)))
}

// binaryMethods installs the forward and reflected forms of a native
// operator implementation. fn receives the operands in source order.
func (r *Registry) binaryMethods(t *Type, op BinaryOp, fn func(ctx *CallerContext, a, b Value) Value) {
	r.def(t, op.Dunder(), func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) != 2 {
			return ctx.Raise(r.TypeError, "expected 1 argument, got %d", len(args)-1)
		}
		return fn(ctx, args[0], args[1])
	})
	r.def(t, op.Reflected(), func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) != 2 {
			return ctx.Raise(r.TypeError, "expected 1 argument, got %d", len(args)-1)
		}
		return fn(ctx, args[1], args[0])
	})
}

// unaryMethod installs a method taking only self.
func (r *Registry) unaryMethod(t *Type, name string, fn func(ctx *CallerContext, self Value) Value) {
	r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) != 1 {
			return ctx.Raise(r.TypeError, "%s.%s() takes no arguments (%d given)", t.name, name, len(args)-1)
		}
		return fn(ctx, args[0])
	})
}

// NewInt returns an int value.
func NewInt(n int64) *Instance {
	if n >= smallIntMin && n <= smallIntMax {
		return builtins.smallInts[n-smallIntMin]
	}
	return &Instance{typ: builtins.IntType, payload: big.NewInt(n)}
}

// NewIntBig returns an int value holding a copy of n.
func NewIntBig(n *big.Int) *Instance {
	if n.IsInt64() {
		return NewInt(n.Int64())
	}
	return &Instance{typ: builtins.IntType, payload: new(big.Int).Set(n)}
}

// NewBool returns True or False.
func NewBool(b bool) *Instance {
	if b {
		return builtins.True
	}
	return builtins.False
}

// NewFloat returns a float value.
func NewFloat(f float64) *Instance {
	return &Instance{typ: builtins.FloatType, payload: f}
}

// NewStr returns a str value.
func NewStr(s string) *Instance {
	return &Instance{typ: builtins.StrType, payload: s}
}

// NewBytes returns a bytes value.
func NewBytes(b []byte) *Instance {
	return &Instance{typ: builtins.BytesType, payload: b}
}

// NewTuple returns a tuple holding items.
func NewTuple(items []Value) *Instance {
	return &Instance{typ: builtins.TupleType, payload: NewListPayload(items, false)}
}

// NewList returns a list holding items.
func NewList(items []Value) *Instance {
	return &Instance{typ: builtins.ListType, payload: NewListPayload(items, false)}
}

// NewOpaqueList returns a list whose elements past items are unknown.
func NewOpaqueList(items []Value) *Instance {
	return &Instance{typ: builtins.ListType, payload: NewListPayload(items, true)}
}

// AsInt returns the integer payload of an int or bool, or of an instance of
// a subclass.
func AsInt(v Value) (*big.Int, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	n, ok := inst.payload.(*big.Int)
	return n, ok
}

// AsStr returns the payload of a str or str subclass instance.
func AsStr(v Value) (string, bool) {
	inst, ok := v.(*Instance)
	if !ok || !inst.typ.IsSubtype(builtins.StrType) {
		return "", false
	}
	s, ok := inst.payload.(string)
	return s, ok
}

// AsFloat returns the payload of a float or float subclass instance.
func AsFloat(v Value) (float64, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return 0, false
	}
	f, ok := inst.payload.(float64)
	return f, ok
}

// AsBytes returns the payload of a bytes instance.
func AsBytes(v Value) ([]byte, bool) {
	inst, ok := v.(*Instance)
	if !ok || !inst.typ.IsSubtype(builtins.BytesType) {
		return nil, false
	}
	b, ok := inst.payload.([]byte)
	return b, ok
}

// AsList returns the payload of a list or list subclass instance.
func AsList(v Value) (*List, bool) {
	inst, ok := v.(*Instance)
	if !ok || !inst.typ.IsSubtype(builtins.ListType) {
		return nil, false
	}
	l, ok := inst.payload.(*List)
	return l, ok
}

// AsDict returns the payload of a dict or dict subclass instance.
func AsDict(v Value) (*Dict, bool) {
	inst, ok := v.(*Instance)
	if !ok || !inst.typ.IsSubtype(builtins.DictType) {
		return nil, false
	}
	d, ok := inst.payload.(*Dict)
	return d, ok
}

func tupleItems(v Value) ([]Value, bool) {
	inst, ok := v.(*Instance)
	if !ok || !inst.typ.IsSubtype(builtins.TupleType) {
		return nil, false
	}
	l, ok := inst.payload.(*List)
	if !ok || l.Opaque {
		return nil, false
	}
	return l.Items, true
}

// TupleItems returns the elements of a fully known tuple.
func TupleItems(v Value) ([]Value, bool) { return tupleItems(v) }

func moduleName(v Value) string {
	if inst, ok := v.(*Instance); ok {
		if mi, ok := inst.payload.(*ModuleInfo); ok {
			return mi.Name
		}
	}
	return "?"
}

// NewModuleObject creates a module object for an imported module.
func NewModuleObject(name string, ns *Namespace) *Instance {
	if ns == nil {
		ns = NewNamespace()
	}
	if _, ok := ns.Get("__name__"); !ok {
		ns.Set("__name__", NewStr(name))
	}
	return &Instance{typ: builtins.ModuleType, dict: ns, payload: &ModuleInfo{Name: name}}
}
