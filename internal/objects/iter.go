package objects

import (
	"math"
	"unicode/utf8"
)

// Iterator yields the elements of an iterable one at a time.
type Iterator interface {
	Next() (Value, bool)
}

type sliceIter struct {
	items []Value
	i     int
}

func (it *sliceIter) Next() (Value, bool) {
	if it.i >= len(it.items) {
		return nil, false
	}
	v := it.items[it.i]
	it.i++
	return v, true
}

// containerIter yields the items of a container, then one Unknown when the
// container is opaque.
func containerIter(items []Value, opaque bool) Iterator {
	if !opaque {
		return &sliceIter{items: items}
	}
	out := make([]Value, len(items), len(items)+1)
	copy(out, items)
	return &sliceIter{items: append(out, newTail("elements of an opaque container"))}
}

// boundedIter caps an iterator at limit elements. When more elements
// follow the cap they are replaced by a single Unknown.
type boundedIter struct {
	ctx   *CallerContext
	inner Iterator
	n     int
	limit int
	done  bool
}

func (it *boundedIter) Next() (Value, bool) {
	if it.done {
		return nil, false
	}
	v, ok := it.inner.Next()
	if !ok {
		it.done = true
		return nil, false
	}
	if it.n >= it.limit {
		it.done = true
		it.ctx.Opaque("iteration truncated after %d elements", it.limit)
		return newTail("elements past %d", it.limit), true
	}
	it.n++
	if isTail(v) {
		it.done = true
	}
	return v, true
}

func newTail(format string, args ...any) *Unknown {
	u := NewUnknown(format, args...)
	u.tail = true
	return u
}

func isTail(v Value) bool {
	u, ok := v.(*Unknown)
	return ok && u.tail
}

// IsTail reports whether v is the placeholder that ends a truncated or
// opaque iteration.
func IsTail(v Value) bool { return isTail(v) }

// Materialize collects v's elements. opaque reports that a trailing
// placeholder was dropped, so more elements may exist.
func Materialize(ctx *CallerContext, v Value) (items []Value, opaque bool) {
	return materialize(ctx, v)
}

// materialize collects v's elements. A trailing placeholder is dropped and
// reported as opaque.
func materialize(ctx *CallerContext, v Value) ([]Value, bool) {
	items := Elements(ctx, v)
	if n := len(items); n > 0 && isTail(items[n-1]) {
		return items[:n-1], true
	}
	return items, false
}

// protocolIter drives a user iterator through __next__, ending on
// StopIteration.
type protocolIter struct {
	ctx  *CallerContext
	obj  Value
	next Value
	done bool
}

func (it *protocolIter) Next() (Value, bool) {
	if it.done {
		return nil, false
	}
	inner, trap := it.ctx.WithTrap()
	v := callSpecial(inner, it.next, it.obj, nil, nil)
	if trap.Caught() {
		it.done = true
		exc := trap.Exception()
		if !IsUnknown(exc) && excType(exc).IsSubtype(builtins.StopIteration) {
			return nil, false
		}
		it.ctx.Reraise(trap)
		return nil, false
	}
	return v, true
}

// sequenceIter implements the legacy protocol: __getitem__ with 0, 1, 2...
// until IndexError or StopIteration.
type sequenceIter struct {
	ctx     *CallerContext
	obj     Value
	getitem Value
	i       int64
	done    bool
}

func (it *sequenceIter) Next() (Value, bool) {
	if it.done {
		return nil, false
	}
	inner, trap := it.ctx.WithTrap()
	v := callSpecial(inner, it.getitem, it.obj, []Value{NewInt(it.i)}, nil)
	if trap.Caught() {
		it.done = true
		exc := trap.Exception()
		if !IsUnknown(exc) && (excType(exc).IsSubtype(builtins.IndexError) || excType(exc).IsSubtype(builtins.StopIteration)) {
			return nil, false
		}
		it.ctx.Reraise(trap)
		return nil, false
	}
	it.i++
	return v, true
}

func excType(exc Value) *Type {
	if t, ok := exc.(*Type); ok {
		return t
	}
	return exc.Type()
}

func isIterable(t *Type) bool {
	return t.has("__iter__") || t.has("__getitem__")
}

// nativeIter returns an iterator over a built-in payload without calling
// into the object protocol.
func nativeIter(v Value) (Iterator, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	switch p := inst.payload.(type) {
	case *List:
		return containerIter(p.Items, p.Opaque), true
	case *Dict:
		return containerIter(p.Keys(), p.Opaque), true
	case string:
		return &strIter{s: []rune(p)}, true
	case []byte:
		return &bytesIter{b: p}, true
	case *Range:
		return p.iter(), true
	case *IterState:
		return p.it, true
	}
	return nil, false
}

// nativeLen returns the element count of a built-in payload whose length
// is known up front.
func nativeLen(v Value) (int, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return 0, false
	}
	switch p := inst.payload.(type) {
	case *List:
		return len(p.Items) + tailLen(p.Opaque), true
	case *Dict:
		return p.Len() + tailLen(p.Opaque), true
	case *IterState:
		if it, ok := p.it.(*sliceIter); ok {
			return len(it.items) - it.i, true
		}
	case string:
		return utf8.RuneCountInString(p), true
	case []byte:
		return len(p), true
	case *Range:
		if n := p.Len(); n <= math.MaxInt32 {
			return int(n), true
		}
	}
	return 0, false
}

func tailLen(opaque bool) int {
	if opaque {
		return 1
	}
	return 0
}

// GetElementsIter returns an iterator over obj's elements. Unknown
// iterables yield a single Unknown. Built-in containers no larger than
// MaxContainerSize are iterated in full; anything else is capped at
// MaxElements.
func (t *Type) GetElementsIter(ctx *CallerContext, obj Value) Iterator {
	limits := ctx.Module.limits
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("iteration over an unknown value")
		return &sliceIter{items: []Value{newTail("elements of unknown")}}
	}
	limit := limits.MaxElements
	if fn, owner, ok := t.Lookup("__iter__"); ok && fn != builtins.None && owner.IsBuiltin() {
		if n, ok := nativeLen(obj); ok && n <= limits.MaxContainerSize {
			limit = max(limit, n)
		}
	}
	return &boundedIter{ctx: ctx, inner: t.rawIter(ctx, obj), limit: limit}
}

func (t *Type) rawIter(ctx *CallerContext, obj Value) Iterator {
	if fn, owner, ok := t.Lookup("__iter__"); ok {
		if fn == builtins.None {
			ctx.Raise(builtins.TypeError, "'%s' object is not iterable", t.name)
			return &sliceIter{}
		}
		if owner.IsBuiltin() {
			if it, ok := nativeIter(obj); ok {
				return it
			}
		}
		itObj := callSpecial(ctx, fn, obj, nil, nil)
		if IsUnknown(itObj) {
			return &sliceIter{items: []Value{newTail("elements of unknown iterator")}}
		}
		if it, ok := nativeIter(itObj); ok && itObj.Type() == builtins.IteratorType {
			return it
		}
		next, _, ok := itObj.Type().Lookup("__next__")
		if !ok {
			ctx.Raise(builtins.TypeError, "iter() returned non-iterator of type '%s'", itObj.Type().name)
			return &sliceIter{}
		}
		return &protocolIter{ctx: ctx, obj: itObj, next: next}
	}
	if fn, _, ok := t.Lookup("__getitem__"); ok && fn != builtins.None {
		return &sequenceIter{ctx: ctx, obj: obj, getitem: fn}
	}
	ctx.Raise(builtins.TypeError, "'%s' object is not iterable", t.name)
	return &sliceIter{}
}

// GetElementsVec materializes obj's elements. The result is bounded by
// MaxElements plus one trailing Unknown.
func (t *Type) GetElementsVec(ctx *CallerContext, obj Value) []Value {
	it := t.GetElementsIter(ctx, obj)
	var out []Value
	for {
		v, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Elements materializes v's elements through its type.
func Elements(ctx *CallerContext, v Value) []Value {
	return v.Type().GetElementsVec(ctx, v)
}

// Iter returns a bounded iterator over v's elements.
func Iter(ctx *CallerContext, v Value) Iterator {
	return v.Type().GetElementsIter(ctx, v)
}

// GetElement evaluates obj[index].
func (t *Type) GetElement(ctx *CallerContext, obj, index Value) Value {
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("subscript of an unknown value")
		return NewUnknown("item of unknown")
	}
	if fn, _, ok := t.Lookup("__getitem__"); ok && fn != builtins.None {
		return callSpecial(ctx, fn, obj, []Value{index}, nil)
	}
	if cls, ok := obj.(*Type); ok {
		if _, _, ok := cls.Lookup("__class_getitem__"); ok {
			cg := LoadAttr(ctx, cls, "__class_getitem__")
			return Call(ctx, cg, []Value{index}, nil)
		}
		return ctx.Raise(builtins.TypeError, "type '%s' is not subscriptable", cls.name)
	}
	return ctx.Raise(builtins.TypeError, "'%s' object is not subscriptable", t.name)
}

// SetElement performs obj[index] = value.
func (t *Type) SetElement(ctx *CallerContext, obj, index, value Value) {
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("item assignment on an unknown value")
		return
	}
	if fn, _, ok := t.Lookup("__setitem__"); ok && fn != builtins.None {
		callSpecial(ctx, fn, obj, []Value{index, value}, nil)
		return
	}
	ctx.Raise(builtins.TypeError, "'%s' object does not support item assignment", t.name)
}

// DelElement performs del obj[index].
func (t *Type) DelElement(ctx *CallerContext, obj, index Value) {
	if IsUnknown(obj) || t.IsOpaque() {
		ctx.Opaque("item deletion on an unknown value")
		return
	}
	if fn, _, ok := t.Lookup("__delitem__"); ok && fn != builtins.None {
		callSpecial(ctx, fn, obj, []Value{index}, nil)
		return
	}
	ctx.Raise(builtins.TypeError, "'%s' object doesn't support item deletion", t.name)
}

// GetItem evaluates obj[index] through obj's type.
func GetItem(ctx *CallerContext, obj, index Value) Value {
	return obj.Type().GetElement(ctx, obj, index)
}

// SetItem performs obj[index] = value through obj's type.
func SetItem(ctx *CallerContext, obj, index, value Value) {
	obj.Type().SetElement(ctx, obj, index, value)
}

// DelItem performs del obj[index] through obj's type.
func DelItem(ctx *CallerContext, obj, index Value) {
	obj.Type().DelElement(ctx, obj, index)
}
