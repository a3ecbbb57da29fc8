package objects

import (
	"maps"
	"slices"
)

// Namespace is an insertion-ordered string-keyed mapping. It backs instance
// attribute dictionaries, class bodies, module globals and function locals.
type Namespace struct {
	keys   []string
	values map[string]Value
	born   uint64
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{values: make(map[string]Value), born: nextSerial()}
}

// Get returns the value bound to key.
func (ns *Namespace) Get(key string) (Value, bool) {
	v, ok := ns.values[key]
	return v, ok
}

// Set binds key, keeping the position of an existing binding.
func (ns *Namespace) Set(key string, v Value) {
	if _, ok := ns.values[key]; !ok {
		ns.keys = append(ns.keys, key)
	}
	ns.values[key] = v
}

// Delete removes key and reports whether it was bound.
func (ns *Namespace) Delete(key string) bool {
	if _, ok := ns.values[key]; !ok {
		return false
	}
	delete(ns.values, key)
	if i := slices.Index(ns.keys, key); i >= 0 {
		ns.keys = slices.Delete(ns.keys, i, i+1)
	}
	return true
}

// Len returns the number of bindings.
func (ns *Namespace) Len() int {
	return len(ns.keys)
}

// Keys returns the bound names in insertion order.
func (ns *Namespace) Keys() []string {
	return slices.Clone(ns.keys)
}

// Range calls fn for each binding in insertion order until fn returns false.
func (ns *Namespace) Range(fn func(key string, v Value) bool) {
	for _, k := range ns.keys {
		if !fn(k, ns.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy.
func (ns *Namespace) Clone() *Namespace {
	c := &Namespace{keys: slices.Clone(ns.keys), values: make(map[string]Value, len(ns.values)), born: nextSerial()}
	for k, v := range ns.values {
		c.values[k] = v
	}
	return c
}

func (ns *Namespace) snapshot() any {
	return ns.Clone()
}

func (ns *Namespace) restore(state any) {
	c := state.(*Namespace).Clone()
	ns.keys, ns.values = c.keys, c.values
}

// merge keeps bindings both states agree on. A binding that differs, or is
// present on only one side, becomes Unknown.
func (ns *Namespace) merge(a, b any) any {
	x, y := a.(*Namespace), b.(*Namespace)
	out := NewNamespace()
	for _, k := range x.keys {
		xv := x.values[k]
		if yv, ok := y.values[k]; ok && Same(xv, yv) {
			out.Set(k, xv)
		} else {
			out.Set(k, NewUnknown("%s differs across branches", k))
		}
	}
	for _, k := range y.keys {
		if _, ok := x.values[k]; !ok {
			out.Set(k, NewUnknown("%s differs across branches", k))
		}
	}
	return out
}

func (ns *Namespace) widen(state any, keys map[string]bool) (any, bool) {
	out := state.(*Namespace).Clone()
	lost := false
	for _, k := range slices.Sorted(maps.Keys(keys)) {
		if v, ok := out.values[k]; ok && IsUnknown(v) {
			continue
		}
		out.Set(k, NewUnknown("%s is rebound in a loop", k))
		lost = true
	}
	return out, lost
}

func (ns *Namespace) serial() uint64 { return ns.born }
