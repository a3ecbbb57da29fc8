package objects

// Attribute access with descriptor semantics.
//
// Lookup precedence for instances:
//   data descriptor on the type > instance namespace > non-data descriptor
//   > plain class attribute > __getattr__ > default > AttributeError
//
// For type objects the metatype is consulted first for data descriptors,
// then the type's own MRO (binding through __get__(None, T)), then the
// metatype's non-data descriptors and plain attributes.

func isDataDescriptor(v Value) bool {
	t := v.Type()
	return t.has("__set__") || t.has("__delete__")
}

func hasGet(v Value) bool {
	return v.Type().has("__get__")
}

// LoadAttr resolves obj.key. def, when non-nil, is returned instead of
// raising AttributeError.
func (t *Type) LoadAttr(ctx *CallerContext, obj Value, key string, def Value) Value {
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("attribute %q of an unknown value", key)
		return NewUnknown("%s of unknown", key)
	}

	ga, owner, _ := t.Lookup("__getattribute__")
	if owner != nil && owner != builtins.ObjectType && owner != builtins.TypeType && owner != builtins.ModuleType {
		return t.customGetattribute(ctx, obj, key, def, ga)
	}

	if v, ok := t.genericGetAttr(ctx, obj, key); ok {
		return v
	}
	return t.attributeMissing(ctx, obj, key, def)
}

// customGetattribute runs a user or native __getattribute__, falling back to
// __getattr__ when it raises AttributeError.
func (t *Type) customGetattribute(ctx *CallerContext, obj Value, key string, def Value, ga Value) Value {
	inner, trap := ctx.WithTrap()
	res := callSpecial(inner, ga, obj, []Value{NewStr(key)}, nil)
	if !trap.Caught() {
		return res
	}
	exc := trap.Exception()
	if !IsUnknown(exc) && exc.Type().IsSubtype(builtins.AttributeError) {
		return t.attributeMissing(ctx, obj, key, def)
	}
	ctx.Reraise(trap)
	return NewUnknown("%s raised", key)
}

func (t *Type) attributeMissing(ctx *CallerContext, obj Value, key string, def Value) Value {
	if hook, _, ok := t.Lookup("__getattr__"); ok {
		if def == nil {
			return callSpecial(ctx, hook, obj, []Value{NewStr(key)}, nil)
		}
		inner, trap := ctx.WithTrap()
		res := callSpecial(inner, hook, obj, []Value{NewStr(key)}, nil)
		if !trap.Caught() {
			return res
		}
		exc := trap.Exception()
		if IsUnknown(exc) || !exc.Type().IsSubtype(builtins.AttributeError) {
			ctx.Reraise(trap)
			return NewUnknown("%s raised", key)
		}
	}
	if def != nil {
		return def
	}
	if cls, ok := obj.(*Type); ok {
		return ctx.Raise(builtins.AttributeError, "type object '%s' has no attribute '%s'", cls.name, key)
	}
	if obj.Type() == builtins.ModuleType {
		return ctx.Raise(builtins.AttributeError, "module '%s' has no attribute '%s'", moduleName(obj), key)
	}
	return ctx.Raise(builtins.AttributeError, "'%s' object has no attribute '%s'", t.name, key)
}

// genericGetAttr implements object.__getattribute__ and
// type.__getattribute__ without the missing-attribute fallbacks.
func (t *Type) genericGetAttr(ctx *CallerContext, obj Value, key string) (Value, bool) {
	if cls, ok := obj.(*Type); ok {
		return typeGetAttr(ctx, cls, key)
	}

	attr, _, found := t.Lookup(key)
	if found && hasGet(attr) && isDataDescriptor(attr) {
		return GetDescr(ctx, attr, obj, t), true
	}
	if inst, ok := obj.(*Instance); ok && inst.dict != nil {
		if v, ok := inst.dict.Get(key); ok {
			return v, true
		}
	}
	if found {
		if hasGet(attr) {
			return GetDescr(ctx, attr, obj, t), true
		}
		return attr, true
	}
	return nil, false
}

func typeGetAttr(ctx *CallerContext, cls *Type, key string) (Value, bool) {
	meta := cls.meta
	metaAttr, _, metaFound := meta.Lookup(key)
	if metaFound && hasGet(metaAttr) && isDataDescriptor(metaAttr) {
		return GetDescr(ctx, metaAttr, cls, meta), true
	}
	if attr, _, ok := cls.Lookup(key); ok {
		if hasGet(attr) {
			return GetDescr(ctx, attr, nil, cls), true
		}
		return attr, true
	}
	if metaFound {
		if hasGet(metaAttr) {
			return GetDescr(ctx, metaAttr, cls, meta), true
		}
		return metaAttr, true
	}
	return nil, false
}

// GetDescr invokes descr.__get__(inst, owner). A nil inst stands for None,
// the class-level access form.
func GetDescr(ctx *CallerContext, descr Value, inst Value, owner *Type) Value {
	get, _, ok := descr.Type().Lookup("__get__")
	if !ok {
		return descr
	}
	inner, ok := ctx.descriptor()
	if !ok {
		return NewUnknown("descriptor chain too long")
	}
	if inst == nil {
		inst = builtins.None
	}
	var ownerVal Value = builtins.None
	if owner != nil {
		ownerVal = owner
	}
	return callSpecial(inner, get, descr, []Value{inst, ownerVal}, nil)
}

// SetDescr invokes descr.__set__(inst, value).
func SetDescr(ctx *CallerContext, descr, inst, value Value) {
	set, _, ok := descr.Type().Lookup("__set__")
	if !ok {
		ctx.Raise(builtins.AttributeError, "'%s' object attribute is read-only", inst.Type().name)
		return
	}
	inner, ok := ctx.descriptor()
	if !ok {
		return
	}
	callSpecial(inner, set, descr, []Value{inst, value}, nil)
}

// DelDescr invokes descr.__delete__(inst).
func DelDescr(ctx *CallerContext, descr, inst Value) {
	del, _, ok := descr.Type().Lookup("__delete__")
	if !ok {
		ctx.Raise(builtins.AttributeError, "'%s' object attribute cannot be deleted", inst.Type().name)
		return
	}
	inner, ok := ctx.descriptor()
	if !ok {
		return
	}
	callSpecial(inner, del, descr, []Value{inst}, nil)
}

// StoreAttr performs obj.key = value.
func (t *Type) StoreAttr(ctx *CallerContext, obj Value, key string, value Value) {
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("store to attribute %q of an unknown value", key)
		return
	}
	if sa, owner, ok := t.Lookup("__setattr__"); ok && !owner.IsBuiltin() {
		callSpecial(ctx, sa, obj, []Value{NewStr(key), value}, nil)
		return
	}
	genericSetAttr(ctx, obj, key, value)
}

// genericSetAttr implements object.__setattr__.
func genericSetAttr(ctx *CallerContext, obj Value, key string, value Value) {
	if cls, ok := obj.(*Type); ok {
		ctx.Raise(builtins.AttributeError, "cannot set '%s' attribute of immutable type '%s'", key, cls.name)
		return
	}
	t := obj.Type()
	if attr, _, ok := t.Lookup(key); ok && isDataDescriptor(attr) {
		SetDescr(ctx, attr, obj, value)
		return
	}
	inst, ok := obj.(*Instance)
	if !ok || inst.dict == nil {
		if _, _, found := t.Lookup(key); found {
			ctx.Raise(builtins.AttributeError, "'%s' object attribute '%s' is read-only", t.name, key)
			return
		}
		ctx.Raise(builtins.AttributeError, "'%s' object has no attribute '%s'", t.name, key)
		return
	}
	ctx.Module.Assign(inst.dict, key, value)
}

// DelAttr performs del obj.key.
func (t *Type) DelAttr(ctx *CallerContext, obj Value, key string) {
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("delete of attribute %q of an unknown value", key)
		return
	}
	if da, owner, ok := t.Lookup("__delattr__"); ok && !owner.IsBuiltin() {
		callSpecial(ctx, da, obj, []Value{NewStr(key)}, nil)
		return
	}
	genericDelAttr(ctx, obj, key)
}

func genericDelAttr(ctx *CallerContext, obj Value, key string) {
	if cls, ok := obj.(*Type); ok {
		ctx.Raise(builtins.AttributeError, "cannot delete '%s' attribute of immutable type '%s'", key, cls.name)
		return
	}
	t := obj.Type()
	if attr, _, ok := t.Lookup(key); ok && isDataDescriptor(attr) {
		DelDescr(ctx, attr, obj)
		return
	}
	inst, ok := obj.(*Instance)
	if ok && inst.dict != nil && ctx.Module.Unbind(inst.dict, key) {
		return
	}
	ctx.Raise(builtins.AttributeError, "'%s' object has no attribute '%s'", t.name, key)
}

// LoadAttr resolves obj.key through obj's type.
func LoadAttr(ctx *CallerContext, obj Value, key string) Value {
	return obj.Type().LoadAttr(ctx, obj, key, nil)
}

// LoadAttrDefault resolves obj.key, returning def when it is missing.
func LoadAttrDefault(ctx *CallerContext, obj Value, key string, def Value) Value {
	return obj.Type().LoadAttr(ctx, obj, key, def)
}

// StoreAttr performs obj.key = value through obj's type.
func StoreAttr(ctx *CallerContext, obj Value, key string, value Value) {
	obj.Type().StoreAttr(ctx, obj, key, value)
}

// DelAttr performs del obj.key through obj's type.
func DelAttr(ctx *CallerContext, obj Value, key string) {
	obj.Type().DelAttr(ctx, obj, key)
}

// HasAttr reports whether obj.key resolves, as a bool or Unknown.
func HasAttr(ctx *CallerContext, obj Value, key string) Value {
	if IsUnknown(obj) {
		return NewUnknown("hasattr of unknown")
	}
	inner, trap := ctx.WithTrap()
	obj.Type().LoadAttr(inner, obj, key, nil)
	if !trap.Caught() {
		return builtins.True
	}
	exc := trap.Exception()
	if !IsUnknown(exc) && exc.Type().IsSubtype(builtins.AttributeError) {
		return builtins.False
	}
	ctx.Reraise(trap)
	return NewUnknown("hasattr %s raised", key)
}
