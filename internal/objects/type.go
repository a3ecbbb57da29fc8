package objects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
)

// TypeID identifies a type within the built-in registry or a module arena.
type TypeID int32

type typeFlags uint16

const (
	flagBuiltin typeFlags = 1 << iota
	flagFinal             // cannot be subclassed
	flagNoDict            // instances carry no namespace
	flagOpaque            // the type of Unknown values
	flagLayout            // defines its own native instance layout
)

type memberSlot struct {
	value Value
	owner *Type
}

// Type is a class. Types are created once, either when the built-in
// registry is built or when a class statement is analyzed, and are never
// mutated afterwards.
type Type struct {
	id     TypeID
	name   string
	module string
	bases  []*Type
	mro    []*Type
	meta   *Type
	dict   *Namespace
	flags  typeFlags

	// members is the flattened dispatch table: each name maps to its first
	// definition along the MRO.
	members map[string]memberSlot

	// empty builds the native payload of a fresh instance. Subclasses of a
	// built-in inherit it from their solid base.
	empty func() any
}

func (t *Type) Type() *Type { return t.meta }
func (t *Type) Kind() Kind  { return KindType }
func (*Type) sealed()       {}

func (t *Type) ID() TypeID      { return t.id }
func (t *Type) Name() string    { return t.name }
func (t *Type) Module() string  { return t.module }
func (t *Type) Bases() []*Type  { return t.bases }
func (t *Type) MRO() []*Type    { return t.mro }
func (t *Type) Meta() *Type     { return t.meta }
func (t *Type) IsBuiltin() bool { return t.flags&flagBuiltin != 0 }
func (t *Type) IsOpaque() bool  { return t.flags&flagOpaque != 0 }

// Dict returns the type's own namespace. Callers must not modify it.
func (t *Type) Dict() *Namespace { return t.dict }

// QualName returns module.name for user types and the bare name for
// built-ins.
func (t *Type) QualName() string {
	if t.IsBuiltin() || t.module == "" {
		return t.name
	}
	return t.module + "." + t.name
}

func (t *Type) String() string {
	return fmt.Sprintf("<class '%s'>", t.QualName())
}

// Lookup finds name along the MRO and returns the value and the type that
// defines it.
func (t *Type) Lookup(name string) (Value, *Type, bool) {
	slot, ok := t.members[name]
	if !ok {
		return nil, nil, false
	}
	return slot.value, slot.owner, true
}

func (t *Type) has(name string) bool {
	_, ok := t.members[name]
	return ok
}

// IsSubtype reports whether other appears in t's MRO.
func (t *Type) IsSubtype(other *Type) bool {
	if t == other {
		return true
	}
	for _, m := range t.mro {
		if m == other {
			return true
		}
	}
	return false
}

func (t *Type) hasInstanceDict() bool {
	if !t.IsBuiltin() {
		return true
	}
	return t.flags&flagNoDict == 0
}

// solidBase returns the nearest built-in type in the MRO that defines an
// instance layout. Instances of t carry its native payload.
func (t *Type) solidBase() *Type {
	for _, m := range t.mro {
		if m.IsBuiltin() && m.flags&flagLayout != 0 {
			return m
		}
	}
	return builtins.ObjectType
}

// finalize computes the MRO and the flattened member table.
func (t *Type) finalize(limit int) error {
	mro, err := computeMRO(t, limit)
	if err != nil {
		return err
	}
	t.mro = mro
	t.members = make(map[string]memberSlot)
	for _, m := range mro {
		m.dict.Range(func(k string, v Value) bool {
			if _, ok := t.members[k]; !ok {
				t.members[k] = memberSlot{value: v, owner: m}
			}
			return true
		})
	}
	if t.empty == nil {
		for _, m := range mro[1:] {
			if m.empty != nil {
				t.empty = m.empty
				break
			}
		}
	}
	return nil
}

// ClassSpec describes a class statement being turned into a type.
type ClassSpec struct {
	Name     string
	Module   string
	Bases    []Value
	Meta     Value // explicit metaclass keyword, or nil
	Body     *Namespace
	Keywords map[string]Value // class keywords other than metaclass, for __init_subclass__
	KwOrder  []string
}

// NewClass creates a class from a class statement. Failures are raised as
// TypeError and yield Unknown.
func NewClass(ctx *CallerContext, spec ClassSpec) Value {
	bases := make([]*Type, 0, len(spec.Bases))
	for _, b := range spec.Bases {
		if IsUnknown(b) {
			ctx.Opaque("class %s has an unknown base", spec.Name)
			return NewUnknown("class %s with unknown base", spec.Name)
		}
		bt, ok := b.(*Type)
		if !ok {
			if entries, ok := mroEntries(ctx, b); ok {
				bases = append(bases, entries...)
				continue
			}
			return ctx.Raise(builtins.TypeError, "bases must be types")
		}
		bases = append(bases, bt)
	}
	if len(bases) == 0 {
		bases = []*Type{builtins.ObjectType}
	}

	meta := builtins.TypeType
	if spec.Meta != nil {
		if IsUnknown(spec.Meta) {
			ctx.Opaque("class %s has an unknown metaclass", spec.Name)
			return NewUnknown("class %s with unknown metaclass", spec.Name)
		}
		mt, ok := spec.Meta.(*Type)
		if !ok {
			// A callable metaclass that is not a type is simply called.
			return Call(ctx, spec.Meta, []Value{NewStr(spec.Name), NewTuple(typesToValues(bases)), newDictFromNamespace(spec.Body)}, nil)
		}
		meta = mt
	}
	winner, ok := calculateMeta(meta, bases)
	if !ok {
		return ctx.Raise(builtins.TypeError, "metaclass conflict: the metaclass of a derived class must be a (non-strict) subclass of the metaclasses of all its bases")
	}

	if winner != builtins.TypeType {
		args := []Value{NewStr(spec.Name), NewTuple(typesToValues(bases)), newDictFromNamespace(spec.Body)}
		var names []string
		for _, k := range spec.KwOrder {
			args = append(args, spec.Keywords[k])
			names = append(names, k)
		}
		return Call(ctx, winner, args, names)
	}
	return createType(ctx, winner, spec.Name, spec.Module, bases, spec.Body, spec.Keywords, spec.KwOrder)
}

// mroEntries resolves __mro_entries__ for non-type bases.
func mroEntries(ctx *CallerContext, b Value) ([]*Type, bool) {
	fn, _, ok := b.Type().Lookup("__mro_entries__")
	if !ok {
		return nil, false
	}
	res := callSpecial(ctx, fn, b, []Value{NewTuple([]Value{b})}, nil)
	vals, ok := tupleItems(res)
	if !ok {
		return nil, false
	}
	out := make([]*Type, 0, len(vals))
	for _, v := range vals {
		t, ok := v.(*Type)
		if !ok {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

func typesToValues(ts []*Type) []Value {
	out := make([]Value, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}

// calculateMeta picks the most derived metaclass among meta and the bases'
// metaclasses.
func calculateMeta(meta *Type, bases []*Type) (*Type, bool) {
	winner := meta
	for _, b := range bases {
		bm := b.meta
		switch {
		case winner.IsSubtype(bm):
		case bm.IsSubtype(winner):
			winner = bm
		default:
			return nil, false
		}
	}
	return winner, true
}

// createType builds, validates and registers a user class. It implements
// type.__new__.
func createType(ctx *CallerContext, meta *Type, name, module string, bases []*Type, body *Namespace, kw map[string]Value, kwOrder []string) Value {
	seen := make(map[*Type]bool, len(bases))
	for _, b := range bases {
		if seen[b] {
			return ctx.Raise(builtins.TypeError, "duplicate base class %s", b.name)
		}
		seen[b] = true
		if b.flags&flagFinal != 0 {
			return ctx.Raise(builtins.TypeError, "type '%s' is not an acceptable base type", b.name)
		}
		if b.IsOpaque() {
			ctx.Opaque("class %s derives from an unknown type", name)
			return NewUnknown("class %s", name)
		}
	}
	if conflict := layoutConflict(bases); conflict {
		return ctx.Raise(builtins.TypeError, "multiple bases have instance lay-out conflict")
	}

	m := ctx.Module
	t := &Type{
		id:     TypeID(len(builtins.types) + len(m.types) + 1),
		name:   name,
		module: module,
		bases:  bases,
		meta:   meta,
		dict:   body.Clone(),
	}
	if _, ok := t.dict.Get("__module__"); !ok && module != "" {
		t.dict.Set("__module__", NewStr(module))
	}
	// A class that defines __eq__ without __hash__ is unhashable.
	if _, ok := t.dict.Get("__eq__"); ok {
		if _, ok := t.dict.Get("__hash__"); !ok {
			t.dict.Set("__hash__", builtins.None)
		}
	}
	// __new__ is implicitly a static method.
	if fn, ok := t.dict.Get("__new__"); ok && isFunction(fn) {
		t.dict.Set("__new__", newStaticMethod(fn))
	}
	for _, implicit := range []string{"__init_subclass__", "__class_getitem__"} {
		if fn, ok := t.dict.Get(implicit); ok && isFunction(fn) {
			t.dict.Set(implicit, newClassMethod(fn))
		}
	}
	if err := t.finalize(m.limits.MaxMRO); err != nil {
		var mroErr *mroError
		if errors.As(err, &mroErr) && mroErr.tooLong {
			ctx.Error(ir.KindLimitError, "%s", err.Error())
			return NewUnknown("class %s", name)
		}
		return ctx.Raise(builtins.TypeError, "%s", err.Error())
	}
	m.types = append(m.types, t)

	for _, k := range t.dict.Keys() {
		v, _ := t.dict.Get(k)
		if fn, _, ok := v.Type().Lookup("__set_name__"); ok {
			callSpecial(ctx, fn, v, []Value{t, NewStr(k)}, nil)
		}
	}
	initSubclass(ctx, t, kw, kwOrder)
	return t
}

func initSubclass(ctx *CallerContext, t *Type, kw map[string]Value, kwOrder []string) {
	for _, base := range t.mro[1:] {
		fn, ok := base.dict.Get("__init_subclass__")
		if !ok {
			continue
		}
		bound := GetDescr(ctx, fn, nil, t)
		args := make([]Value, 0, len(kwOrder))
		for _, k := range kwOrder {
			args = append(args, kw[k])
		}
		Call(ctx, bound, args, kwOrder)
		return
	}
}

// layoutConflict reports whether bases derive from incompatible built-in
// payload types, e.g. class C(int, str).
func layoutConflict(bases []*Type) bool {
	var solid *Type
	for _, b := range bases {
		s := b.solidBase()
		if s == builtins.ObjectType {
			continue
		}
		switch {
		case solid == nil || s.IsSubtype(solid):
			solid = s
		case solid.IsSubtype(s):
		default:
			return true
		}
	}
	return false
}

func describeTypes(ts []*Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.name
	}
	return strings.Join(names, ", ")
}
