package analyzer

import (
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// load resolves a name reference.
func (f *frame) load(n *ir.Node) objects.Value {
	r := objects.Builtins()
	v, res := f.scope.lookup(n.ID)
	switch res {
	case found:
		return v
	case unbound:
		return f.at(n).Raise(r.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", n.ID)
	case unboundFree:
		return f.at(n).Raise(r.NameError, "cannot access free variable '%s' where it is not associated with a value in enclosing scope", n.ID)
	}
	return f.at(n).Raise(r.NameError, "name '%s' is not defined", n.ID)
}

// store binds name in the scope that owns it.
func (f *frame) store(name string, v objects.Value) {
	owner := f.scope.owner(name)
	f.in.mod.Assign(owner.ns, name, v)
}

// assign stores v into an assignment target.
func (f *frame) assign(t *ir.Node, v objects.Value) {
	if f.raised() {
		return
	}
	switch t.Kind {
	case ir.KindName:
		f.store(t.ID, v)
	case ir.KindAttribute:
		obj := f.eval(t.Value)
		if f.raised() {
			return
		}
		objects.StoreAttr(f.at(t), obj, t.Attr, v)
	case ir.KindSubscript:
		obj := f.eval(t.Value)
		idx := f.eval(t.Index)
		if f.raised() {
			return
		}
		objects.SetItem(f.at(t), obj, idx, v)
	case ir.KindTuple, ir.KindList:
		f.unpack(t, v)
	case ir.KindStarred:
		f.at(t).Error(ir.KindSyntaxError, "starred assignment target must be in a list or tuple")
	default:
		f.at(t).Error(ir.KindSyntaxError, "cannot assign to %s", t.Kind)
	}
}

// unpack assigns the elements of v to the elements of a tuple or list
// target, with at most one starred element taking the rest as a list.
func (f *frame) unpack(t *ir.Node, v objects.Value) {
	r := objects.Builtins()
	ctx := f.at(t)
	star := -1
	for i, e := range t.Elts {
		if e.Kind != ir.KindStarred {
			continue
		}
		if star >= 0 {
			ctx.Error(ir.KindSyntaxError, "multiple starred expressions in assignment")
			return
		}
		star = i
	}

	items, opaque := objects.Materialize(ctx, v)
	if f.raised() {
		return
	}
	if opaque {
		for _, e := range t.Elts {
			if e.Kind == ir.KindStarred {
				f.assign(e.Value, objects.NewOpaqueList(nil))
				continue
			}
			f.assign(e, objects.NewUnknown("unpacked from an unknown iterable"))
		}
		return
	}

	n := len(t.Elts)
	if star < 0 {
		switch {
		case len(items) > n:
			ctx.Raise(r.ValueError, "too many values to unpack (expected %d)", n)
			return
		case len(items) < n:
			ctx.Raise(r.ValueError, "not enough values to unpack (expected %d, got %d)", n, len(items))
			return
		}
		for i, e := range t.Elts {
			f.assign(e, items[i])
		}
		return
	}

	if len(items) < n-1 {
		ctx.Raise(r.ValueError, "not enough values to unpack (expected at least %d, got %d)", n-1, len(items))
		return
	}
	after := n - star - 1
	for i := 0; i < star; i++ {
		f.assign(t.Elts[i], items[i])
	}
	mid := make([]objects.Value, len(items)-star-after)
	copy(mid, items[star:len(items)-after])
	f.assign(t.Elts[star].Value, objects.NewList(mid))
	for i := 0; i < after; i++ {
		f.assign(t.Elts[star+1+i], items[len(items)-after+i])
	}
}

func (f *frame) augAssign(n *ir.Node) {
	op, err := objects.ParseBinaryOp(n.Op)
	if err != nil {
		f.at(n).Error(ir.KindSyntaxError, "%v", err)
		return
	}
	t := n.Target
	switch t.Kind {
	case ir.KindName:
		old := f.load(t)
		val := f.eval(n.Value)
		if f.raised() {
			return
		}
		f.store(t.ID, objects.InplaceOperation(f.at(n), old, val, op))
	case ir.KindAttribute:
		obj := f.eval(t.Value)
		if f.raised() {
			return
		}
		old := objects.LoadAttr(f.at(t), obj, t.Attr)
		val := f.eval(n.Value)
		if f.raised() {
			return
		}
		res := objects.InplaceOperation(f.at(n), old, val, op)
		if !f.raised() {
			objects.StoreAttr(f.at(t), obj, t.Attr, res)
		}
	case ir.KindSubscript:
		obj := f.eval(t.Value)
		idx := f.eval(t.Index)
		if f.raised() {
			return
		}
		old := objects.GetItem(f.at(t), obj, idx)
		val := f.eval(n.Value)
		if f.raised() {
			return
		}
		res := objects.InplaceOperation(f.at(n), old, val, op)
		if !f.raised() {
			objects.SetItem(f.at(t), obj, idx, res)
		}
	default:
		f.at(t).Error(ir.KindSyntaxError, "illegal expression for augmented assignment")
	}
}

func (f *frame) delete(t *ir.Node) {
	if f.raised() {
		return
	}
	switch t.Kind {
	case ir.KindName:
		owner := f.scope.owner(t.ID)
		if !f.in.mod.Unbind(owner.ns, t.ID) {
			r := objects.Builtins()
			if owner.kind == scopeFunction || owner.kind == scopeComprehension {
				f.at(t).Raise(r.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", t.ID)
				return
			}
			f.at(t).Raise(r.NameError, "name '%s' is not defined", t.ID)
		}
	case ir.KindAttribute:
		obj := f.eval(t.Value)
		if !f.raised() {
			objects.DelAttr(f.at(t), obj, t.Attr)
		}
	case ir.KindSubscript:
		obj := f.eval(t.Value)
		idx := f.eval(t.Index)
		if !f.raised() {
			objects.DelItem(f.at(t), obj, idx)
		}
	case ir.KindTuple, ir.KindList:
		for _, e := range t.Elts {
			f.delete(e)
		}
	default:
		f.at(t).Error(ir.KindSyntaxError, "cannot delete %s", t.Kind)
	}
}
