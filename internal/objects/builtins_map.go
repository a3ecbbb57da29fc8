package objects

import (
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"
)

// Dict is the payload of dict and set instances: an insertion-ordered
// hash table keyed by the canonical form of each key. Set entries carry
// None as their value. When Opaque is set the table may hold entries the
// analyzer does not know about.
type Dict struct {
	keys   []Value
	vals   []Value
	hashes []string
	index  map[string]int
	Opaque bool
	born   uint64
}

// NewDictPayload returns an empty table.
func NewDictPayload() *Dict {
	return &Dict{index: make(map[string]int), born: nextSerial()}
}

// Len returns the number of known entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the known keys in insertion order.
func (d *Dict) Keys() []Value { return slices.Clone(d.keys) }

// Values returns the known values in insertion order.
func (d *Dict) Values() []Value { return slices.Clone(d.vals) }

func (d *Dict) get(h string) (Value, bool) {
	i, ok := d.index[h]
	if !ok {
		return nil, false
	}
	return d.vals[i], true
}

// put stores v under h. An existing entry keeps its original key object.
func (d *Dict) put(k Value, h string, v Value) {
	if i, ok := d.index[h]; ok {
		d.vals[i] = v
		return
	}
	d.index[h] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	d.hashes = append(d.hashes, h)
}

func (d *Dict) remove(h string) (Value, bool) {
	i, ok := d.index[h]
	if !ok {
		return nil, false
	}
	v := d.vals[i]
	d.keys = slices.Delete(slices.Clone(d.keys), i, i+1)
	d.vals = slices.Delete(slices.Clone(d.vals), i, i+1)
	d.hashes = slices.Delete(slices.Clone(d.hashes), i, i+1)
	d.reindex()
	return v, true
}

func (d *Dict) reindex() {
	d.index = make(map[string]int, len(d.hashes))
	for i, h := range d.hashes {
		d.index[h] = i
	}
}

// forget drops every entry and marks the table opaque. It is used when a
// write with an unknown key may have replaced any entry.
func (d *Dict) forget() {
	d.keys, d.vals, d.hashes = nil, nil, nil
	d.index = make(map[string]int)
	d.Opaque = true
}

func (d *Dict) clone() *Dict {
	c := &Dict{
		keys:   slices.Clone(d.keys),
		vals:   slices.Clone(d.vals),
		hashes: slices.Clone(d.hashes),
		Opaque: d.Opaque,
		born:   nextSerial(),
	}
	c.reindex()
	return c
}

func (d *Dict) snapshot() any { return d.clone() }

func (d *Dict) restore(state any) {
	c := state.(*Dict).clone()
	d.keys, d.vals, d.hashes, d.index, d.Opaque = c.keys, c.vals, c.hashes, c.index, c.Opaque
}

func (d *Dict) widen(state any, _ map[string]bool) (any, bool) {
	s := state.(*Dict)
	out := NewDictPayload()
	out.Opaque = true
	return out, len(s.keys) > 0 || !s.Opaque
}

func (d *Dict) serial() uint64 { return d.born }

// reset empties the table.
func (d *Dict) reset() {
	d.keys, d.vals, d.hashes = nil, nil, nil
	d.index = make(map[string]int)
	d.Opaque = false
}

// merge keeps the entries both states agree on. Tables that differ become
// opaque.
func (d *Dict) merge(a, b any) any {
	x, y := a.(*Dict), b.(*Dict)
	out := NewDictPayload()
	differ := x.Opaque || y.Opaque || len(x.keys) != len(y.keys)
	for i, h := range x.hashes {
		if yv, ok := y.get(h); ok && Same(x.vals[i], yv) {
			out.put(x.keys[i], h, x.vals[i])
			continue
		}
		differ = true
	}
	out.Opaque = differ
	return out
}

type keyState uint8

const (
	keyOK keyState = iota
	keyUnhashable
	keyUnknown
)

// hashKey returns the canonical table key of v. Values that compare equal
// share a key: 1, 1.0 and True collide as they do at runtime. An
// unhashable value raises TypeError.
func hashKey(ctx *CallerContext, v Value) (string, keyState) {
	if IsUnknown(v) {
		return "", keyUnknown
	}
	if cls, ok := v.(*Type); ok {
		return fmt.Sprintf("o%p", cls), keyOK
	}
	inst := v.(*Instance)
	fn, owner, ok := inst.typ.Lookup("__hash__")
	if !ok || fn == builtins.None {
		ctx.Raise(builtins.TypeError, "unhashable type: '%s'", inst.typ.name)
		return "", keyUnhashable
	}
	if !owner.IsBuiltin() || inst.typ.IsOpaque() {
		return "", keyUnknown
	}
	switch p := inst.payload.(type) {
	case *big.Int:
		return "i" + p.String(), keyOK
	case float64:
		if math.IsNaN(p) {
			return fmt.Sprintf("o%p", inst), keyOK
		}
		if p == math.Trunc(p) && !math.IsInf(p, 0) {
			n, _ := big.NewFloat(p).Int(nil)
			return "i" + n.String(), keyOK
		}
		return "f" + strconv.FormatFloat(p, 'g', -1, 64), keyOK
	case string:
		return "s" + p, keyOK
	case []byte:
		return "b" + string(p), keyOK
	case *List:
		if p.Opaque {
			return "", keyUnknown
		}
		var sb strings.Builder
		sb.WriteString("(")
		for _, item := range p.Items {
			h, st := hashKey(ctx, item)
			if st != keyOK {
				return "", st
			}
			sb.WriteString(strconv.Itoa(len(h)))
			sb.WriteString(":")
			sb.WriteString(h)
		}
		sb.WriteString(")")
		return sb.String(), keyOK
	}
	return fmt.Sprintf("o%p", inst), keyOK
}

// Hash evaluates hash(v) through __hash__.
func Hash(ctx *CallerContext, v Value) Value {
	if IsUnknown(v) {
		return NewUnknown("hash of unknown")
	}
	fn, _, ok := v.Type().Lookup("__hash__")
	if !ok || fn == builtins.None {
		return ctx.Raise(builtins.TypeError, "unhashable type: '%s'", v.Type().name)
	}
	res := callSpecial(ctx, fn, v, nil, nil)
	if IsUnknown(res) {
		return res
	}
	if _, ok := AsInt(res); !ok {
		return ctx.Raise(builtins.TypeError, "__hash__ method should return an integer")
	}
	return res
}

func dictOf(v Value) *Dict {
	return v.(*Instance).payload.(*Dict)
}

func newDict(d *Dict) *Instance {
	return NewInstance(builtins.DictType, d)
}

// newDictFromNamespace returns a dict with str keys copied from ns.
func newDictFromNamespace(ns *Namespace) Value {
	d := NewDictPayload()
	ns.Range(func(k string, v Value) bool {
		d.put(NewStr(k), "s"+k, v)
		return true
	})
	return newDict(d)
}

// NewDict returns a dict holding the given pairs in order. Keys must be
// hashable.
func NewDict(ctx *CallerContext, keys, vals []Value) Value {
	d := NewDictPayload()
	for i, k := range keys {
		h, st := hashKey(ctx, k)
		switch st {
		case keyUnhashable:
			return NewUnknown("dict")
		case keyUnknown:
			ctx.Opaque("dict display with an unknown key")
			d.forget()
			continue
		}
		d.put(k, h, vals[i])
	}
	return newDict(d)
}

// NewSet returns a set of the given elements.
func NewSet(ctx *CallerContext, items []Value) Value {
	d := NewDictPayload()
	for _, k := range items {
		h, st := hashKey(ctx, k)
		switch st {
		case keyUnhashable:
			return NewUnknown("set")
		case keyUnknown:
			d.Opaque = true
			continue
		}
		d.put(k, h, builtins.None)
	}
	return NewInstance(builtins.SetType, d)
}

// dictUpdate merges a mapping or an iterable of pairs into the dict self.
func dictUpdate(ctx *CallerContext, self, src Value) bool {
	r := builtins
	d := dictOf(self)
	if sd, ok := AsDict(src); ok {
		ctx.Module.mutate(d)
		for i, h := range sd.hashes {
			d.put(sd.keys[i], h, sd.vals[i])
		}
		if sd.Opaque {
			d.forget()
		}
		return true
	}
	if IsUnknown(src) {
		ctx.Opaque("update from an unknown mapping")
		ctx.Module.mutate(d)
		d.forget()
		return true
	}
	if src.Type().has("keys") {
		keys, opaque := materialize(ctx, CallMethod(ctx, src, "keys"))
		for _, k := range keys {
			if !dictSet(ctx, d, k, GetItem(ctx, src, k)) {
				return false
			}
		}
		if opaque {
			ctx.Module.mutate(d)
			d.forget()
		}
		return true
	}
	pairs, opaque := materialize(ctx, src)
	for i, pair := range pairs {
		kv, kvOpaque := materialize(ctx, pair)
		if kvOpaque {
			ctx.Module.mutate(d)
			d.forget()
			continue
		}
		if len(kv) != 2 {
			ctx.Raise(r.ValueError, "dictionary update sequence element #%d has length %d; 2 is required", i, len(kv))
			return false
		}
		if !dictSet(ctx, d, kv[0], kv[1]) {
			return false
		}
	}
	if opaque {
		ctx.Module.mutate(d)
		d.forget()
	}
	return true
}

// dictSet stores k: v, handling unknown and unhashable keys.
func dictSet(ctx *CallerContext, d *Dict, k, v Value) bool {
	h, st := hashKey(ctx, k)
	switch st {
	case keyUnhashable:
		return false
	case keyUnknown:
		ctx.Opaque("dict assignment with an unknown key")
		ctx.Module.mutate(d)
		d.forget()
		return true
	}
	ctx.Module.mutate(d)
	d.put(k, h, v)
	return true
}

// dictLookup finds k. found is false for a missing key; the returned value
// is Unknown when the answer depends on unknown entries.
func dictLookup(ctx *CallerContext, d *Dict, k Value, what string) (v Value, found, ok bool) {
	h, st := hashKey(ctx, k)
	switch st {
	case keyUnhashable:
		return NewUnknown("%s", what), false, false
	case keyUnknown:
		ctx.Opaque("%s with an unknown key", what)
		return NewUnknown("%s", what), false, false
	}
	if v, ok := d.get(h); ok {
		return v, true, true
	}
	if d.Opaque {
		ctx.Opaque("%s of an opaque mapping", what)
		return NewUnknown("%s", what), false, false
	}
	return nil, false, true
}

func (r *Registry) setupDict() {
	t := r.DictType
	t.dict.Set("__hash__", r.None)
	mut := func(ctx *CallerContext, self Value) *Dict {
		d := dictOf(self)
		ctx.Module.mutate(d)
		return d
	}
	r.def(t, "__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		pos, kw := splitArgs(args, names)
		if len(pos) > 2 {
			return ctx.Raise(r.TypeError, "dict expected at most 1 argument, got %d", len(pos)-1)
		}
		if len(pos) == 2 && !dictUpdate(ctx, args[0], pos[1]) {
			return NewUnknown("dict")
		}
		d := mut(ctx, args[0])
		for i, name := range names {
			d.put(NewStr(name), "s"+name, kw[i])
		}
		return r.None
	})
	r.unaryMethod(t, "__len__", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		if d.Opaque {
			ctx.Opaque("length of an opaque mapping")
			return NewUnknown("len")
		}
		return NewInt(int64(d.Len()))
	})
	r.def(t, "__getitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getitem__", args, names, 2, 2)
		if !ok {
			return NewUnknown("item")
		}
		v, found, ok := dictLookup(ctx, dictOf(a[0]), a[1], "subscript")
		if found || !ok {
			return v
		}
		if a[0].Type() != r.DictType {
			if fn, _, ok := a[0].Type().Lookup("__missing__"); ok {
				return callSpecial(ctx, fn, a[0], []Value{a[1]}, nil)
			}
		}
		return ctx.RaiseKey(a[1])
	})
	r.def(t, "__setitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__setitem__", args, names, 3, 3)
		if !ok {
			return NewUnknown("setitem")
		}
		dictSet(ctx, dictOf(a[0]), a[1], a[2])
		return r.None
	})
	r.def(t, "__delitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__delitem__", args, names, 2, 2)
		if !ok {
			return NewUnknown("delitem")
		}
		d := dictOf(a[0])
		h, st := hashKey(ctx, a[1])
		switch st {
		case keyUnhashable:
			return r.None
		case keyUnknown:
			ctx.Opaque("dict deletion with an unknown key")
			mut(ctx, a[0]).forget()
			return r.None
		}
		if _, ok := d.get(h); !ok {
			if d.Opaque {
				return r.None
			}
			return ctx.RaiseKey(a[1])
		}
		mut(ctx, a[0]).remove(h)
		return r.None
	})
	r.def(t, "__contains__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__contains__", args, names, 2, 2)
		if !ok {
			return NewUnknown("contains")
		}
		_, found, ok := dictLookup(ctx, dictOf(a[0]), a[1], "membership test")
		if !ok {
			return NewUnknown("membership")
		}
		return NewBool(found)
	})
	r.unaryMethod(t, "__iter__", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		return NewIterator(containerIter(d.Keys(), d.Opaque))
	})
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		bd, ok := AsDict(b)
		if !ok || (op != Eq && op != NotEq) {
			return r.NotImplemented
		}
		ad := dictOf(a)
		if ad.Opaque || bd.Opaque {
			ctx.Opaque("comparison of an opaque mapping")
			return NewUnknown("comparison")
		}
		same := ad.Len() == bd.Len()
		for i, h := range ad.hashes {
			if !same {
				break
			}
			bv, ok := bd.get(h)
			if !ok {
				same = false
				break
			}
			eq := Truth(ctx, Compare(ctx, ad.vals[i], bv, Eq))
			if IsUnknown(eq) {
				return eq
			}
			same = eq == r.True
		}
		return NewBool(same == (op == Eq))
	})
	r.binaryMethodsForward(t, BitOr, func(ctx *CallerContext, a, b Value) Value {
		if _, ok := AsDict(b); !ok {
			return r.NotImplemented
		}
		out := newDict(dictOf(a).clone())
		dictUpdate(ctx, out, b)
		return out
	})
	r.def(t, "__ior__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__ior__", args, names, 2, 2)
		if !ok {
			return NewUnknown("|=")
		}
		dictUpdate(ctx, a[0], a[1])
		return a[0]
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		parts := make([]string, 0, d.Len()+1)
		for i, k := range d.keys {
			ks, ok := AsStr(Repr(ctx, k))
			if !ok {
				return NewUnknown("repr")
			}
			vs, ok := AsStr(Repr(ctx, d.vals[i]))
			if !ok {
				return NewUnknown("repr")
			}
			parts = append(parts, ks+": "+vs)
		}
		if d.Opaque {
			parts = append(parts, "...")
		}
		return NewStr("{" + strings.Join(parts, ", ") + "}")
	})
	r.def(t, "get", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "get", args, names, 2, 3)
		if !ok {
			return NewUnknown("get")
		}
		v, found, ok := dictLookup(ctx, dictOf(a[0]), a[1], "get")
		if found || !ok {
			return v
		}
		if len(a) == 3 {
			return a[2]
		}
		return r.None
	})
	r.def(t, "setdefault", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "setdefault", args, names, 2, 3)
		if !ok {
			return NewUnknown("setdefault")
		}
		d := dictOf(a[0])
		v, found, ok := dictLookup(ctx, d, a[1], "setdefault")
		if found {
			return v
		}
		if !ok {
			mut(ctx, a[0]).forget()
			return v
		}
		def := Value(r.None)
		if len(a) == 3 {
			def = a[2]
		}
		dictSet(ctx, d, a[1], def)
		return def
	})
	r.def(t, "pop", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "pop", args, names, 2, 3)
		if !ok {
			return NewUnknown("pop")
		}
		d := dictOf(a[0])
		v, found, ok := dictLookup(ctx, d, a[1], "pop")
		if !ok {
			mut(ctx, a[0]).forget()
			return v
		}
		if found {
			h, _ := hashKey(ctx, a[1])
			mut(ctx, a[0]).remove(h)
			return v
		}
		if len(a) == 3 {
			return a[2]
		}
		return ctx.RaiseKey(a[1])
	})
	r.unaryMethod(t, "popitem", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		if d.Opaque {
			ctx.Opaque("popitem of an opaque mapping")
			mut(ctx, self).forget()
			return NewUnknown("popitem")
		}
		if d.Len() == 0 {
			return ctx.Raise(r.KeyError, "popitem(): dictionary is empty")
		}
		n := d.Len() - 1
		k, v := d.keys[n], d.vals[n]
		mut(ctx, self).remove(d.hashes[n])
		return NewTuple([]Value{k, v})
	})
	r.def(t, "update", func(ctx *CallerContext, args []Value, names []string) Value {
		pos, kw := splitArgs(args, names)
		if len(pos) > 2 {
			return ctx.Raise(r.TypeError, "update expected at most 1 argument, got %d", len(pos)-1)
		}
		if len(pos) == 2 && !dictUpdate(ctx, args[0], pos[1]) {
			return r.None
		}
		d := mut(ctx, args[0])
		for i, name := range names {
			d.put(NewStr(name), "s"+name, kw[i])
		}
		return r.None
	})
	r.unaryMethod(t, "keys", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		return NewInstance(r.ListType, NewListPayload(d.Keys(), d.Opaque))
	})
	r.unaryMethod(t, "values", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		return NewInstance(r.ListType, NewListPayload(d.Values(), d.Opaque))
	})
	r.unaryMethod(t, "items", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		items := make([]Value, d.Len())
		for i, k := range d.keys {
			items[i] = NewTuple([]Value{k, d.vals[i]})
		}
		return NewInstance(r.ListType, NewListPayload(items, d.Opaque))
	})
	r.unaryMethod(t, "copy", func(ctx *CallerContext, self Value) Value {
		return newDict(dictOf(self).clone())
	})
	r.unaryMethod(t, "clear", func(ctx *CallerContext, self Value) Value {
		d := mut(ctx, self)
		d.reset()
		return r.None
	})
	t.dict.Set("fromkeys", newClassMethod(NewBuiltinFunction(NewBuiltin("dict.fromkeys", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "fromkeys", args, names, 2, 3)
		if !ok {
			return NewUnknown("fromkeys")
		}
		out := Call(ctx, a[0], nil, nil)
		d, ok := AsDict(out)
		if !ok {
			return out
		}
		v := Value(r.None)
		if len(a) == 3 {
			v = a[2]
		}
		keys, opaque := materialize(ctx, a[1])
		for _, k := range keys {
			dictSet(ctx, d, k, v)
		}
		if opaque {
			d.forget()
		}
		return out
	}))))
}

func (r *Registry) setupSet() {
	t := r.SetType
	t.dict.Set("__hash__", r.None)
	mut := func(ctx *CallerContext, self Value) *Dict {
		d := dictOf(self)
		ctx.Module.mutate(d)
		return d
	}
	asSet := func(v Value) (*Dict, bool) {
		inst, ok := v.(*Instance)
		if !ok || !inst.typ.IsSubtype(r.SetType) {
			return nil, false
		}
		d, ok := inst.payload.(*Dict)
		return d, ok
	}
	add := func(ctx *CallerContext, d *Dict, k Value) bool {
		h, st := hashKey(ctx, k)
		switch st {
		case keyUnhashable:
			return false
		case keyUnknown:
			ctx.Module.mutate(d)
			d.Opaque = true
			return true
		}
		ctx.Module.mutate(d)
		d.put(k, h, r.None)
		return true
	}
	addAll := func(ctx *CallerContext, d *Dict, src Value) bool {
		items, opaque := materialize(ctx, src)
		for _, k := range items {
			if !add(ctx, d, k) {
				return false
			}
		}
		if opaque {
			ctx.Module.mutate(d)
			d.Opaque = true
		}
		return true
	}
	newSet := func(d *Dict) Value { return NewInstance(r.SetType, d) }

	r.def(t, "__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "set", args, names, 1, 2)
		if !ok {
			return NewUnknown("set")
		}
		d := mut(ctx, a[0])
		d.reset()
		if len(a) == 2 {
			addAll(ctx, d, a[1])
		}
		return r.None
	})
	r.unaryMethod(t, "__len__", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		if d.Opaque {
			ctx.Opaque("length of an opaque set")
			return NewUnknown("len")
		}
		return NewInt(int64(d.Len()))
	})
	r.def(t, "__contains__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__contains__", args, names, 2, 2)
		if !ok {
			return NewUnknown("contains")
		}
		_, found, ok := dictLookup(ctx, dictOf(a[0]), a[1], "membership test")
		if !ok {
			return NewUnknown("membership")
		}
		return NewBool(found)
	})
	r.unaryMethod(t, "__iter__", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		return NewIterator(containerIter(d.Keys(), d.Opaque))
	})
	r.def(t, "add", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "add", args, names, 2, 2)
		if !ok {
			return NewUnknown("add")
		}
		add(ctx, dictOf(a[0]), a[1])
		return r.None
	})
	remove := func(ctx *CallerContext, self, k Value, strict bool) Value {
		d := dictOf(self)
		h, st := hashKey(ctx, k)
		switch st {
		case keyUnhashable:
			return NewUnknown("remove")
		case keyUnknown:
			ctx.Opaque("set removal with an unknown element")
			mut(ctx, self).forget()
			return r.None
		}
		if _, ok := d.get(h); !ok {
			if strict && !d.Opaque {
				return ctx.RaiseKey(k)
			}
			return r.None
		}
		mut(ctx, self).remove(h)
		return r.None
	}
	r.def(t, "remove", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "remove", args, names, 2, 2)
		if !ok {
			return NewUnknown("remove")
		}
		return remove(ctx, a[0], a[1], true)
	})
	r.def(t, "discard", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "discard", args, names, 2, 2)
		if !ok {
			return NewUnknown("discard")
		}
		return remove(ctx, a[0], a[1], false)
	})
	r.unaryMethod(t, "pop", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		if d.Opaque {
			ctx.Opaque("pop from an opaque set")
			mut(ctx, self).forget()
			return NewUnknown("popped element")
		}
		if d.Len() == 0 {
			return ctx.Raise(r.KeyError, "pop from an empty set")
		}
		k := d.keys[0]
		mut(ctx, self).remove(d.hashes[0])
		return k
	})
	r.unaryMethod(t, "clear", func(ctx *CallerContext, self Value) Value {
		d := mut(ctx, self)
		d.reset()
		return r.None
	})
	r.unaryMethod(t, "copy", func(ctx *CallerContext, self Value) Value {
		return newSet(dictOf(self).clone())
	})
	r.def(t, "update", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "update", args, names, 1, -1)
		if !ok {
			return NewUnknown("update")
		}
		for _, src := range a[1:] {
			if !addAll(ctx, dictOf(a[0]), src) {
				break
			}
		}
		return r.None
	})

	union := func(ctx *CallerContext, x *Dict, others ...Value) Value {
		out := x.clone()
		for _, o := range others {
			if !addAll(ctx, out, o) {
				return NewUnknown("union")
			}
		}
		return newSet(out)
	}
	// filter keeps the elements of x whose membership in y equals keep.
	filter := func(ctx *CallerContext, x, y *Dict, keep bool) Value {
		out := NewDictPayload()
		out.Opaque = x.Opaque
		for i, h := range x.hashes {
			_, in := y.get(h)
			if !in && y.Opaque {
				out.Opaque = true
				continue
			}
			if in == keep {
				out.put(x.keys[i], h, r.None)
			}
		}
		return newSet(out)
	}
	symdiff := func(x, y *Dict) Value {
		out := NewDictPayload()
		out.Opaque = x.Opaque || y.Opaque
		for i, h := range x.hashes {
			if _, in := y.get(h); !in {
				out.put(x.keys[i], h, r.None)
			}
		}
		for i, h := range y.hashes {
			if _, in := x.get(h); !in {
				out.put(y.keys[i], h, r.None)
			}
		}
		return newSet(out)
	}
	setOp := func(op BinaryOp) func(ctx *CallerContext, a, b Value) Value {
		return func(ctx *CallerContext, a, b Value) Value {
			y, ok := asSet(b)
			if !ok {
				return r.NotImplemented
			}
			x := dictOf(a)
			switch op {
			case BitOr:
				return union(ctx, x, b)
			case BitAnd:
				return filter(ctx, x, y, true)
			case Sub:
				return filter(ctx, x, y, false)
			}
			return symdiff(x, y)
		}
	}
	for _, op := range []BinaryOp{BitOr, BitAnd, Sub, BitXor} {
		r.binaryMethodsForward(t, op, setOp(op))
	}
	r.def(t, "union", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "union", args, names, 1, -1)
		if !ok {
			return NewUnknown("union")
		}
		return union(ctx, dictOf(a[0]), a[1:]...)
	})
	toSet := func(ctx *CallerContext, v Value) (*Dict, bool) {
		if d, ok := asSet(v); ok {
			return d, true
		}
		d := NewDictPayload()
		return d, addAll(ctx, d, v)
	}
	r.def(t, "intersection", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "intersection", args, names, 1, -1)
		if !ok {
			return NewUnknown("intersection")
		}
		out := newSet(dictOf(a[0]).clone())
		for _, o := range a[1:] {
			y, ok := toSet(ctx, o)
			if !ok {
				return NewUnknown("intersection")
			}
			out = filter(ctx, dictOf(out), y, true)
		}
		return out
	})
	r.def(t, "difference", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "difference", args, names, 1, -1)
		if !ok {
			return NewUnknown("difference")
		}
		out := newSet(dictOf(a[0]).clone())
		for _, o := range a[1:] {
			y, ok := toSet(ctx, o)
			if !ok {
				return NewUnknown("difference")
			}
			out = filter(ctx, dictOf(out), y, false)
		}
		return out
	})
	subset := func(ctx *CallerContext, x, y *Dict) Value {
		if x.Opaque || y.Opaque {
			ctx.Opaque("comparison of an opaque set")
			return NewUnknown("comparison")
		}
		for _, h := range x.hashes {
			if _, ok := y.get(h); !ok {
				return r.False
			}
		}
		return r.True
	}
	r.def(t, "issubset", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "issubset", args, names, 2, 2)
		if !ok {
			return NewUnknown("issubset")
		}
		y, ok := toSet(ctx, a[1])
		if !ok {
			return NewUnknown("issubset")
		}
		return subset(ctx, dictOf(a[0]), y)
	})
	r.def(t, "issuperset", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "issuperset", args, names, 2, 2)
		if !ok {
			return NewUnknown("issuperset")
		}
		y, ok := toSet(ctx, a[1])
		if !ok {
			return NewUnknown("issuperset")
		}
		return subset(ctx, y, dictOf(a[0]))
	})
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		y, ok := asSet(b)
		if !ok {
			return r.NotImplemented
		}
		x := dictOf(a)
		le, ge := subset(ctx, x, y), subset(ctx, y, x)
		if IsUnknown(le) || IsUnknown(ge) {
			return NewUnknown("comparison")
		}
		l, g := le == r.True, ge == r.True
		switch op {
		case Eq:
			return NewBool(l && g)
		case NotEq:
			return NewBool(!(l && g))
		case LtE:
			return NewBool(l)
		case GtE:
			return NewBool(g)
		case Lt:
			return NewBool(l && !g)
		}
		return NewBool(g && !l)
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		d := dictOf(self)
		name := self.Type().name
		if d.Len() == 0 && !d.Opaque {
			return NewStr(name + "()")
		}
		parts := make([]string, 0, d.Len()+1)
		for _, k := range d.keys {
			s, ok := AsStr(Repr(ctx, k))
			if !ok {
				return NewUnknown("repr")
			}
			parts = append(parts, s)
		}
		if d.Opaque {
			parts = append(parts, "...")
		}
		body := "{" + strings.Join(parts, ", ") + "}"
		if name != "set" {
			return NewStr(name + "(" + body + ")")
		}
		return NewStr(body)
	})
}
