package objects

import (
	"fmt"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
)

// GetSet is the payload of native data descriptors such as type.__name__.
type GetSet struct {
	name  string
	owner *Type
	get   func(ctx *CallerContext, obj Value) Value
	set   func(ctx *CallerContext, obj, v Value)
}

// Super is the payload of super objects.
type Super struct {
	This    *Type
	Obj     Value
	ObjType *Type
}

// IterState is the payload of native iterator objects.
type IterState struct {
	it Iterator
}

// NewIterator wraps it as an iterator object.
func NewIterator(it Iterator) *Instance {
	return NewInstance(builtins.IteratorType, &IterState{it: it})
}

func (r *Registry) setupObject() {
	t := r.ObjectType
	r.defStatic(t, "__new__", objectNew)
	r.def(t, "__init__", objectInit)
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(fmt.Sprintf("<%s object>", self.Type().QualName()))
	})
	r.unaryMethod(t, "__str__", func(ctx *CallerContext, self Value) Value {
		return Repr(ctx, self)
	})
	r.unaryMethod(t, "__hash__", func(ctx *CallerContext, self Value) Value {
		if !ctx.Module.SideEffectAllowed("hash") {
			ctx.Error(ir.KindSideEffectError, "hash() of a '%s' object depends on its address", self.Type().name)
		}
		return NewUnknown("identity hash")
	})
	r.def(t, "__eq__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__eq__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__eq__")
		}
		if a[0] == a[1] {
			return r.True
		}
		return r.NotImplemented
	})
	r.def(t, "__ne__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__ne__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__ne__")
		}
		eq, _, _ := a[0].Type().Lookup("__eq__")
		res := callSpecial(ctx, eq, a[0], []Value{a[1]}, nil)
		if res == r.NotImplemented || IsUnknown(res) {
			return res
		}
		truth := Truth(ctx, res)
		if IsUnknown(truth) {
			return truth
		}
		return NewBool(truth == r.False)
	})
	r.def(t, "__getattribute__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getattribute__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__getattribute__")
		}
		key, ok := AsStr(a[1])
		if !ok {
			return ctx.Raise(r.TypeError, "attribute name must be string, not '%s'", a[1].Type().name)
		}
		self := a[0]
		if v, ok := self.Type().genericGetAttr(ctx, self, key); ok {
			return v
		}
		return ctx.Raise(r.AttributeError, "'%s' object has no attribute '%s'", self.Type().name, key)
	})
	r.def(t, "__setattr__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__setattr__", args, names, 3, 3)
		if !ok {
			return NewUnknown("__setattr__")
		}
		key, ok := AsStr(a[1])
		if !ok {
			return ctx.Raise(r.TypeError, "attribute name must be string, not '%s'", a[1].Type().name)
		}
		genericSetAttr(ctx, a[0], key, a[2])
		return r.None
	})
	r.def(t, "__delattr__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__delattr__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__delattr__")
		}
		key, ok := AsStr(a[1])
		if !ok {
			return ctx.Raise(r.TypeError, "attribute name must be string, not '%s'", a[1].Type().name)
		}
		genericDelAttr(ctx, a[0], key)
		return r.None
	})
	r.def(t, "__format__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__format__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__format__")
		}
		if spec, ok := AsStr(a[1]); ok && spec != "" {
			return ctx.Raise(r.TypeError, "unsupported format string passed to %s.__format__", a[0].Type().name)
		}
		return Str(ctx, a[0])
	})
	t.dict.Set("__init_subclass__", newClassMethod(NewBuiltinFunction(NewBuiltin("object.__init_subclass__", func(ctx *CallerContext, args []Value, names []string) Value {
		if len(names) > 0 {
			cls := "object"
			if c, ok := args[0].(*Type); ok {
				cls = c.name
			}
			return ctx.Raise(r.TypeError, "%s.__init_subclass__() takes no keyword arguments", cls)
		}
		return r.None
	}))))
	r.defGetSet(t, "__class__", func(ctx *CallerContext, obj Value) Value {
		return typeOf(ctx, obj)
	}, nil)
}

func (r *Registry) setupType() {
	t := r.TypeType
	r.def(t, "__call__", typeCall)
	r.defStatic(t, "__new__", typeNew)
	r.def(t, "__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		pos, _ := splitArgs(args, names)
		if n := len(pos) - 1; n != 1 && n != 3 {
			return ctx.Raise(r.TypeError, "type.__init__() takes 1 or 3 arguments")
		}
		return r.None
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(self.(*Type).String())
	})
	r.def(t, "__getattribute__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getattribute__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__getattribute__")
		}
		key, ok := AsStr(a[1])
		if !ok {
			return ctx.Raise(r.TypeError, "attribute name must be string, not '%s'", a[1].Type().name)
		}
		cls := a[0].(*Type)
		if v, ok := typeGetAttr(ctx, cls, key); ok {
			return v
		}
		return ctx.Raise(r.AttributeError, "type object '%s' has no attribute '%s'", cls.name, key)
	})
	r.unaryMethod(t, "mro", func(ctx *CallerContext, self Value) Value {
		return NewList(typesToValues(self.(*Type).mro))
	})
	r.def(t, "__instancecheck__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__instancecheck__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__instancecheck__")
		}
		if IsUnknown(a[1]) {
			return NewUnknown("isinstance of unknown")
		}
		return NewBool(a[1].Type().IsSubtype(a[0].(*Type)))
	})
	r.def(t, "__subclasscheck__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__subclasscheck__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__subclasscheck__")
		}
		if IsUnknown(a[1]) {
			return NewUnknown("issubclass of unknown")
		}
		sub, ok := a[1].(*Type)
		if !ok {
			return ctx.Raise(r.TypeError, "issubclass() arg 1 must be a class")
		}
		return NewBool(sub.IsSubtype(a[0].(*Type)))
	})
	r.defGetSet(t, "__name__", func(ctx *CallerContext, obj Value) Value {
		return NewStr(obj.(*Type).name)
	}, nil)
	r.defGetSet(t, "__qualname__", func(ctx *CallerContext, obj Value) Value {
		return NewStr(obj.(*Type).name)
	}, nil)
	r.defGetSet(t, "__mro__", func(ctx *CallerContext, obj Value) Value {
		return NewTuple(typesToValues(obj.(*Type).mro))
	}, nil)
	r.defGetSet(t, "__bases__", func(ctx *CallerContext, obj Value) Value {
		return NewTuple(typesToValues(obj.(*Type).bases))
	}, nil)
	r.defGetSet(t, "__base__", func(ctx *CallerContext, obj Value) Value {
		cls := obj.(*Type)
		if len(cls.bases) == 0 {
			return r.None
		}
		return cls.bases[0]
	}, nil)
	r.defGetSet(t, "__dict__", func(ctx *CallerContext, obj Value) Value {
		return newDictFromNamespace(obj.(*Type).dict)
	}, nil)
}

// typeNew implements type.__new__: type(x) and type(name, bases, dict).
func typeNew(ctx *CallerContext, args []Value, names []string) Value {
	r := builtins
	pos, kwVals := splitArgs(args, names)
	if len(pos) == 0 {
		return ctx.Raise(r.TypeError, "type.__new__(): not enough arguments")
	}
	meta, ok := pos[0].(*Type)
	if !ok || !meta.IsSubtype(r.TypeType) {
		return ctx.Raise(r.TypeError, "type.__new__(X): X is not a type object")
	}
	if len(pos) == 2 && len(names) == 0 && meta == r.TypeType {
		return typeOf(ctx, pos[1])
	}
	if len(pos) != 4 {
		return ctx.Raise(r.TypeError, "type() takes 1 or 3 arguments")
	}
	if anyUnknown(pos[1:]...) {
		ctx.Opaque("type() with unknown arguments")
		return NewUnknown("dynamic class")
	}
	name, ok := AsStr(pos[1])
	if !ok {
		return ctx.Raise(r.TypeError, "type.__new__() argument 1 must be str, not %s", pos[1].Type().name)
	}
	baseVals, ok := tupleItems(pos[2])
	if !ok {
		return ctx.Raise(r.TypeError, "type.__new__() argument 2 must be tuple, not %s", pos[2].Type().name)
	}
	d, ok := AsDict(pos[3])
	if !ok {
		return ctx.Raise(r.TypeError, "type.__new__() argument 3 must be dict, not %s", pos[3].Type().name)
	}
	if d.Opaque {
		ctx.Opaque("class %s built from an opaque namespace", name)
		return NewUnknown("class %s", name)
	}
	body := NewNamespace()
	for i, k := range d.keys {
		ks, ok := AsStr(k)
		if !ok {
			return ctx.Raise(r.TypeError, "type.__new__(): class namespace keys must be str")
		}
		body.Set(ks, d.vals[i])
	}
	bases := make([]*Type, 0, len(baseVals))
	for _, b := range baseVals {
		bt, ok := b.(*Type)
		if !ok {
			return ctx.Raise(r.TypeError, "bases must be types")
		}
		bases = append(bases, bt)
	}
	if len(bases) == 0 {
		bases = []*Type{r.ObjectType}
	}
	winner, ok := calculateMeta(meta, bases)
	if !ok {
		return ctx.Raise(r.TypeError, "metaclass conflict: the metaclass of a derived class must be a (non-strict) subclass of the metaclasses of all its bases")
	}
	module := ctx.Module.Name
	if mv, ok := body.Get("__module__"); ok {
		if ms, ok := AsStr(mv); ok {
			module = ms
		}
	}
	kw := make(map[string]Value, len(names))
	for i, n := range names {
		kw[n] = kwVals[i]
	}
	return createType(ctx, winner, name, module, bases, body, kw, names)
}

func (r *Registry) setupDescriptors() {
	bindGet := func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__get__", args, names, 2, 3)
		if !ok {
			return NewUnknown("__get__")
		}
		if a[1] == r.None {
			return a[0]
		}
		return NewBoundMethod(a[0], a[1])
	}
	r.def(r.MethodDescriptorType, "__get__", bindGet)
	r.def(r.FunctionType, "__get__", bindGet)

	callSelf := func(ctx *CallerContext, args []Value, names []string) Value {
		return Call(ctx, args[0], args[1:], names)
	}
	r.def(r.FunctionType, "__call__", callSelf)
	r.def(r.MethodType, "__call__", callSelf)
	r.def(r.BuiltinFunctionType, "__call__", callSelf)
	r.def(r.MethodDescriptorType, "__call__", callSelf)

	r.unaryMethod(r.FunctionType, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(Describe(self))
	})
	r.unaryMethod(r.BuiltinFunctionType, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(Describe(self))
	})
	r.unaryMethod(r.MethodDescriptorType, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(Describe(self))
	})
	r.unaryMethod(r.MethodType, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(Describe(self))
	})
	callableName := func(ctx *CallerContext, obj Value) Value {
		if c, ok := obj.(*Instance).payload.(Callable); ok {
			name := c.Name()
			return NewStr(name[strings.LastIndex(name, ".")+1:])
		}
		return NewStr("?")
	}
	r.defGetSet(r.BuiltinFunctionType, "__name__", callableName, nil)
	r.defGetSet(r.MethodDescriptorType, "__name__", callableName, nil)

	r.defGetSet(r.MethodType, "__self__", func(ctx *CallerContext, obj Value) Value {
		return obj.(*Instance).payload.(*BoundMethod).Self
	}, nil)
	r.defGetSet(r.MethodType, "__func__", func(ctx *CallerContext, obj Value) Value {
		return obj.(*Instance).payload.(*BoundMethod).Func
	}, nil)
	r.def(r.MethodType, "__eq__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__eq__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__eq__")
		}
		x := a[0].(*Instance).payload.(*BoundMethod)
		other, ok := a[1].(*Instance)
		if !ok || other.typ != r.MethodType {
			return r.NotImplemented
		}
		y := other.payload.(*BoundMethod)
		return NewBool(x.Func == y.Func && x.Self == y.Self)
	})

	// staticmethod and classmethod
	wrapInit := func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__init__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__init__")
		}
		a[0].(*Instance).payload = &Wrapped{Func: a[1]}
		return r.None
	}
	wrapFunc := func(ctx *CallerContext, obj Value) Value {
		return obj.(*Instance).payload.(*Wrapped).Func
	}
	for _, t := range []*Type{r.StaticMethodType, r.ClassMethodType} {
		r.def(t, "__init__", wrapInit)
		r.defGetSet(t, "__func__", wrapFunc, nil)
		r.defGetSet(t, "__wrapped__", wrapFunc, nil)
	}
	r.def(r.StaticMethodType, "__get__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__get__", args, names, 2, 3)
		if !ok {
			return NewUnknown("__get__")
		}
		return a[0].(*Instance).payload.(*Wrapped).Func
	})
	r.def(r.StaticMethodType, "__call__", func(ctx *CallerContext, args []Value, names []string) Value {
		return Call(ctx, args[0].(*Instance).payload.(*Wrapped).Func, args[1:], names)
	})
	r.def(r.ClassMethodType, "__get__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__get__", args, names, 2, 3)
		if !ok {
			return NewUnknown("__get__")
		}
		var owner Value
		if len(a) == 3 && a[2] != r.None {
			owner = a[2]
		} else {
			owner = a[1].Type()
		}
		return NewBoundMethod(a[0].(*Instance).payload.(*Wrapped).Func, owner)
	})

	r.setupProperty()

	g := r.GetSetType
	r.def(g, "__get__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__get__", args, names, 2, 3)
		if !ok {
			return NewUnknown("__get__")
		}
		gs := a[0].(*Instance).payload.(*GetSet)
		if a[1] == r.None {
			return a[0]
		}
		if IsUnknown(a[1]) {
			return NewUnknown("%s of unknown", gs.name)
		}
		if !a[1].Type().IsSubtype(gs.owner) {
			return ctx.Raise(r.TypeError, "descriptor '%s' for '%s' objects doesn't apply to a '%s' object", gs.name, gs.owner.name, a[1].Type().name)
		}
		return gs.get(ctx, a[1])
	})
	r.def(g, "__set__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__set__", args, names, 3, 3)
		if !ok {
			return NewUnknown("__set__")
		}
		gs := a[0].(*Instance).payload.(*GetSet)
		if gs.set == nil {
			if _, isType := a[1].(*Type); isType {
				return ctx.Raise(r.AttributeError, "cannot set '%s' attribute of immutable type '%s'", gs.name, a[1].(*Type).name)
			}
			return ctx.Raise(r.AttributeError, "attribute '%s' of '%s' objects is not writable", gs.name, gs.owner.name)
		}
		gs.set(ctx, a[1], a[2])
		return r.None
	})
	r.def(g, "__delete__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__delete__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__delete__")
		}
		gs := a[0].(*Instance).payload.(*GetSet)
		return ctx.Raise(r.AttributeError, "cannot delete attribute '%s' of '%s' objects", gs.name, gs.owner.name)
	})
	r.unaryMethod(g, "__repr__", func(ctx *CallerContext, self Value) Value {
		gs := self.(*Instance).payload.(*GetSet)
		return NewStr(fmt.Sprintf("<attribute '%s' of '%s' objects>", gs.name, gs.owner.name))
	})
}

func (r *Registry) setupProperty() {
	t := r.PropertyType
	r.def(t, "__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "property", args[1:], names, []string{"fget", "fset", "fdel", "doc"}, 0)
		if !ok {
			return NewUnknown("property")
		}
		p := &Property{Get: noneToNil(a[0]), Set: noneToNil(a[1]), Del: noneToNil(a[2]), Doc: a[3]}
		args[0].(*Instance).payload = p
		return r.None
	})
	prop := func(v Value) *Property { return v.(*Instance).payload.(*Property) }
	r.def(t, "__get__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__get__", args, names, 2, 3)
		if !ok {
			return NewUnknown("__get__")
		}
		if a[1] == r.None {
			return a[0]
		}
		p := prop(a[0])
		if p.Get == nil {
			return ctx.Raise(r.AttributeError, "property of '%s' object has no getter", a[1].Type().name)
		}
		return Call(ctx, p.Get, []Value{a[1]}, nil)
	})
	r.def(t, "__set__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__set__", args, names, 3, 3)
		if !ok {
			return NewUnknown("__set__")
		}
		p := prop(a[0])
		if p.Set == nil {
			return ctx.Raise(r.AttributeError, "property of '%s' object has no setter", a[1].Type().name)
		}
		Call(ctx, p.Set, []Value{a[1], a[2]}, nil)
		return r.None
	})
	r.def(t, "__delete__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__delete__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__delete__")
		}
		p := prop(a[0])
		if p.Del == nil {
			return ctx.Raise(r.AttributeError, "property of '%s' object has no deleter", a[1].Type().name)
		}
		Call(ctx, p.Del, []Value{a[1]}, nil)
		return r.None
	})
	copyWith := func(name string, set func(p *Property, fn Value)) {
		r.def(t, name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 2, 2)
			if !ok {
				return NewUnknown("%s", name)
			}
			cp := *prop(a[0])
			set(&cp, noneToNil(a[1]))
			out := a[0].Type().ConstructInstance()
			out.payload = &cp
			return out
		})
	}
	copyWith("getter", func(p *Property, fn Value) { p.Get = fn })
	copyWith("setter", func(p *Property, fn Value) { p.Set = fn })
	copyWith("deleter", func(p *Property, fn Value) { p.Del = fn })
	accessor := func(pick func(p *Property) Value) func(ctx *CallerContext, obj Value) Value {
		return func(ctx *CallerContext, obj Value) Value { return orNone(pick(prop(obj))) }
	}
	r.defGetSet(t, "fget", accessor(func(p *Property) Value { return p.Get }), nil)
	r.defGetSet(t, "fset", accessor(func(p *Property) Value { return p.Set }), nil)
	r.defGetSet(t, "fdel", accessor(func(p *Property) Value { return p.Del }), nil)
	r.defGetSet(t, "__doc__", accessor(func(p *Property) Value { return p.Doc }), nil)
}

func (r *Registry) setupSingletons() {
	r.unaryMethod(r.NoneType, "__repr__", func(ctx *CallerContext, self Value) Value { return NewStr("None") })
	r.unaryMethod(r.NoneType, "__bool__", func(ctx *CallerContext, self Value) Value { return r.False })
	r.defStatic(r.NoneType, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) > 1 {
			return ctx.Raise(r.TypeError, "NoneType takes no arguments")
		}
		return r.None
	})
	r.unaryMethod(r.NotImplementedType, "__repr__", func(ctx *CallerContext, self Value) Value { return NewStr("NotImplemented") })
	r.unaryMethod(r.EllipsisType, "__repr__", func(ctx *CallerContext, self Value) Value { return NewStr("Ellipsis") })
	r.unaryMethod(r.ModuleType, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(fmt.Sprintf("<module '%s'>", moduleName(self)))
	})
	r.defGetSet(r.ModuleType, "__dict__", func(ctx *CallerContext, obj Value) Value {
		return newDictFromNamespace(obj.(*Instance).dict)
	}, nil)
}

func (r *Registry) setupIterator() {
	t := r.IteratorType
	r.unaryMethod(t, "__iter__", func(ctx *CallerContext, self Value) Value { return self })
	r.unaryMethod(t, "__next__", func(ctx *CallerContext, self Value) Value {
		st := self.(*Instance).payload.(*IterState)
		v, ok := st.it.Next()
		if !ok {
			return ctx.Raise(r.StopIteration, "")
		}
		return v
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value { return NewStr("<iterator object>") })
}

func (r *Registry) setupSuper() {
	t := r.SuperType
	r.def(t, "__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "super", args, names, 3, 3)
		if !ok {
			return NewUnknown("super")
		}
		if anyUnknown(a[1], a[2]) {
			ctx.Opaque("super() with unknown arguments")
			return r.None
		}
		this, ok := a[1].(*Type)
		if !ok {
			return ctx.Raise(r.TypeError, "super() argument 1 must be a type, not %s", a[1].Type().name)
		}
		var objType *Type
		if cls, ok := a[2].(*Type); ok && cls.IsSubtype(this) {
			objType = cls
		} else if a[2].Type().IsSubtype(this) {
			objType = a[2].Type()
		} else {
			return ctx.Raise(r.TypeError, "super(type, obj): obj must be an instance or subtype of type")
		}
		a[0].(*Instance).payload = &Super{This: this, Obj: a[2], ObjType: objType}
		return r.None
	})
	r.def(t, "__getattribute__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getattribute__", args, names, 2, 2)
		if !ok {
			return NewUnknown("__getattribute__")
		}
		key, ok := AsStr(a[1])
		if !ok {
			return ctx.Raise(r.TypeError, "attribute name must be string, not '%s'", a[1].Type().name)
		}
		s := a[0].(*Instance).payload.(*Super)
		if s.This == nil {
			ctx.Opaque("attribute %q of an unbound super object", key)
			return NewUnknown("super().%s", key)
		}
		if key != "__class__" {
			if v, ok := superLookup(ctx, s, key); ok {
				return v
			}
		}
		if v, ok := a[0].Type().genericGetAttr(ctx, a[0], key); ok {
			return v
		}
		return ctx.Raise(r.AttributeError, "'super' object has no attribute '%s'", key)
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		s := self.(*Instance).payload.(*Super)
		if s.This == nil {
			return NewStr("<super: <class 'super'>, NULL>")
		}
		return NewStr(fmt.Sprintf("<super: %s, <%s object>>", s.This, s.ObjType.name))
	})
	r.defGetSet(t, "__thisclass__", func(ctx *CallerContext, obj Value) Value {
		return orNoneType(obj.(*Instance).payload.(*Super).This)
	}, nil)
	r.defGetSet(t, "__self__", func(ctx *CallerContext, obj Value) Value {
		return orNone(obj.(*Instance).payload.(*Super).Obj)
	}, nil)
}

func orNoneType(t *Type) Value {
	if t == nil {
		return builtins.None
	}
	return t
}

// superLookup searches the MRO of the object's type after This.
func superLookup(ctx *CallerContext, s *Super, key string) (Value, bool) {
	mro := s.ObjType.mro
	i := 0
	for i < len(mro) && mro[i] != s.This {
		i++
	}
	for _, m := range mro[min(i+1, len(mro)):] {
		v, ok := m.dict.Get(key)
		if !ok {
			continue
		}
		if !hasGet(v) {
			return v, true
		}
		var inst Value
		if s.Obj != Value(s.ObjType) {
			inst = s.Obj
		}
		return GetDescr(ctx, v, inst, s.ObjType), true
	}
	return nil, false
}
