package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// userFunction is a function or lambda defined in the analyzed module. Its
// body is interpreted on every call.
type userFunction struct {
	in       *interp
	node     *ir.Node
	name     string
	qualname string
	closure  *scope
	cell     *classCell
	names    *localNames
	defaults map[string]objects.Value
}

func (u *userFunction) Name() string { return u.name }

func (u *userFunction) Call(ctx *objects.CallerContext, args []objects.Value, names []string) objects.Value {
	r := objects.Builtins()
	deeper, ok := ctx.Deeper()
	if !ok {
		return objects.NewUnknown("result of %s()", u.name)
	}
	sc := u.closure.child(scopeFunction, u.names)
	if !u.bind(deeper, sc.ns, args, names) {
		return objects.NewUnknown("result of %s()", u.name)
	}

	inner, trap := deeper.WithTrap()
	act := &activation{fn: u}
	f := &frame{
		in:    u.in,
		ctx:   inner,
		scope: sc,
		call:  act,
		cell:  u.cell,
		qual:  u.qualname + ".<locals>.",
	}

	var e exit
	if u.node.Kind == ir.KindLambda {
		v := f.eval(u.node.Value)
		switch {
		case u.in.exhausted:
			e = exit{kind: flowAbort}
		case f.raised():
			e = exit{kind: flowRaise}
		default:
			act.returns = append(act.returns, v)
			e = exit{kind: flowReturn}
		}
	} else {
		e = f.execBlock(u.node.Body)
	}

	switch e.kind {
	case flowAbort:
		return objects.NewUnknown("result of %s()", u.name)
	case flowRaise:
		if !e.maybe {
			deeper.Reraise(trap)
			return objects.NewUnknown("exception in %s()", u.name)
		}
		f.reportMaybeRaise()
	}
	rets := act.returns
	if e.kind != flowReturn || e.maybe {
		rets = append(rets, r.None)
	}
	return mergeValues(rets)
}

// bind assigns call arguments to parameters in ns. A mismatch raises
// TypeError in ctx and returns false.
func (u *userFunction) bind(ctx *objects.CallerContext, ns *objects.Namespace, args []objects.Value, names []string) bool {
	r := objects.Builtins()
	pos := args[:len(args)-len(names)]
	kwvals := args[len(args)-len(names):]

	var positional, kwonly []*ir.Param
	var varargs, kwargs *ir.Param
	for _, p := range u.node.Params {
		switch p.Kind {
		case ir.ParamVarArgs:
			varargs = p
		case ir.ParamKwArgs:
			kwargs = p
		case ir.ParamKwOnly:
			kwonly = append(kwonly, p)
		default:
			positional = append(positional, p)
		}
	}

	set := make(map[string]bool, len(u.node.Params))
	for i, v := range pos {
		if i >= len(positional) {
			break
		}
		ns.Set(positional[i].Name, v)
		set[positional[i].Name] = true
	}
	if len(pos) > len(positional) {
		if varargs == nil {
			ctx.Raise(r.TypeError, "%s() takes %s but %d %s given", u.name, u.positionalCount(positional), len(pos), plural(len(pos), "was", "were"))
			return false
		}
		ns.Set(varargs.Name, objects.NewTuple(slices.Clone(pos[len(positional):])))
	} else if varargs != nil {
		ns.Set(varargs.Name, objects.NewTuple(nil))
	}

	var extraKeys, extraVals []objects.Value
	for i, name := range names {
		p := findParam(positional, name)
		if p == nil {
			p = findParam(kwonly, name)
		}
		if p == nil {
			if kwargs == nil {
				ctx.Raise(r.TypeError, "%s() got an unexpected keyword argument '%s'", u.name, name)
				return false
			}
			extraKeys = append(extraKeys, objects.NewStr(name))
			extraVals = append(extraVals, kwvals[i])
			continue
		}
		if set[name] {
			ctx.Raise(r.TypeError, "%s() got multiple values for argument '%s'", u.name, name)
			return false
		}
		ns.Set(name, kwvals[i])
		set[name] = true
	}

	if missing := u.fillDefaults(ns, positional, set); len(missing) > 0 {
		ctx.Raise(r.TypeError, "%s() missing %d required positional %s: %s", u.name, len(missing), plural(len(missing), "argument", "arguments"), quoteNames(missing))
		return false
	}
	if missing := u.fillDefaults(ns, kwonly, set); len(missing) > 0 {
		ctx.Raise(r.TypeError, "%s() missing %d required keyword-only %s: %s", u.name, len(missing), plural(len(missing), "argument", "arguments"), quoteNames(missing))
		return false
	}
	if kwargs != nil {
		ns.Set(kwargs.Name, objects.NewDict(ctx, extraKeys, extraVals))
	}
	return true
}

// fillDefaults binds defaults for unset params and returns the names still
// missing.
func (u *userFunction) fillDefaults(ns *objects.Namespace, params []*ir.Param, set map[string]bool) []string {
	var missing []string
	for _, p := range params {
		if set[p.Name] {
			continue
		}
		if d, ok := u.defaults[p.Name]; ok {
			ns.Set(p.Name, d)
			continue
		}
		missing = append(missing, p.Name)
	}
	return missing
}

func (u *userFunction) positionalCount(positional []*ir.Param) string {
	required := 0
	for _, p := range positional {
		if _, ok := u.defaults[p.Name]; !ok {
			required++
		}
	}
	if required == len(positional) {
		return fmt.Sprintf("%d positional %s", required, plural(required, "argument", "arguments"))
	}
	return fmt.Sprintf("from %d to %d positional arguments", required, len(positional))
}

func findParam(params []*ir.Param, name string) *ir.Param {
	for _, p := range params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// quoteNames renders 'a', 'a' and 'b', or 'a', 'b', and 'c'.
func quoteNames(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	switch len(q) {
	case 1:
		return q[0]
	case 2:
		return q[0] + " and " + q[1]
	}
	return strings.Join(q[:len(q)-1], ", ") + ", and " + q[len(q)-1]
}

// makeFunction creates the function object for a def or lambda. Defaults
// are evaluated now, in the defining scope.
func (f *frame) makeFunction(n *ir.Node, name string) objects.Value {
	defaults := make(map[string]objects.Value)
	for _, p := range n.Params {
		if p.Default == nil {
			continue
		}
		defaults[p.Name] = f.eval(p.Default)
	}
	if f.raised() {
		return objects.NewUnknown("function %s", name)
	}
	body := n.Body
	if n.Kind == ir.KindLambda {
		body = nil
	}
	u := &userFunction{
		in:       f.in,
		node:     n,
		name:     name,
		qualname: f.qual + name,
		closure:  f.scope.closure(),
		cell:     f.cell,
		names:    scanLocals(n.Params, body),
		defaults: defaults,
	}
	fn := objects.NewFunction(u)
	fn.Dict().Set("__qualname__", objects.NewStr(u.qualname))
	fn.Dict().Set("__module__", objects.NewStr(f.in.src.Name))
	fn.Dict().Set("__doc__", docstring(body))
	return fn
}

// docstring returns the leading string constant of a body, or None.
func docstring(body []*ir.Node) objects.Value {
	if len(body) > 0 {
		s := body[0]
		if s.Kind == ir.KindExpr && s.Value != nil && s.Value.Kind == ir.KindConstant && s.Value.Type == ir.ConstStr {
			return objects.NewStr(s.Value.Literal)
		}
	}
	return objects.Builtins().None
}

// defineFunction executes a def statement: decorators are evaluated first,
// then applied innermost first to the new function.
func (f *frame) defineFunction(n *ir.Node) {
	decorators := f.evalDecorators(n)
	if f.raised() {
		return
	}
	v := f.makeFunction(n, n.ID)
	v = f.decorate(n, decorators, v)
	if f.raised() {
		return
	}
	f.store(n.ID, v)
}

func (f *frame) evalDecorators(n *ir.Node) []objects.Value {
	out := make([]objects.Value, len(n.Decorators))
	for i, d := range n.Decorators {
		out[i] = f.eval(d)
	}
	return out
}

func (f *frame) decorate(n *ir.Node, decorators []objects.Value, v objects.Value) objects.Value {
	for i := len(decorators) - 1; i >= 0; i-- {
		if f.raised() {
			break
		}
		v = objects.Call(f.at(n.Decorators[i]), decorators[i], []objects.Value{v}, nil)
	}
	return v
}

// evalCall evaluates a call expression.
func (f *frame) evalCall(n *ir.Node) objects.Value {
	r := objects.Builtins()
	fn := f.eval(n.Func)
	args, names, known := f.evalArgs(n)
	if f.raised() {
		return objects.NewUnknown("after exception")
	}
	if !known {
		f.at(n).Opaque("call with unknown arguments")
		return objects.NewUnknown("result of call with unknown arguments")
	}
	if fn == objects.Value(r.SuperType) && len(args) == 0 && n.Func.Kind == ir.KindName {
		args = f.superArgs(n)
		if args == nil {
			return objects.NewUnknown("super()")
		}
	}
	return objects.Call(f.at(n), fn, args, names)
}

// evalArgs evaluates call arguments into the positional-then-keyword form
// objects.Call takes. known is false when a starred argument or mapping
// splat has unknown contents.
func (f *frame) evalArgs(n *ir.Node) (args []objects.Value, names []string, known bool) {
	r := objects.Builtins()
	known = true
	for _, a := range n.Args {
		if a.Kind != ir.KindStarred {
			args = append(args, f.eval(a))
			continue
		}
		v := f.eval(a.Value)
		if f.raised() {
			return nil, nil, false
		}
		items, opaque := objects.Materialize(f.at(a), v)
		args = append(args, items...)
		if opaque {
			known = false
		}
	}

	var kwvals []objects.Value
	add := func(k *ir.Node, name string, v objects.Value) bool {
		if slices.Contains(names, name) {
			f.at(k).Raise(r.TypeError, "got multiple values for keyword argument '%s'", name)
			return false
		}
		names = append(names, name)
		kwvals = append(kwvals, v)
		return true
	}
	for _, k := range n.Keywords {
		v := f.eval(k.Value)
		if f.raised() {
			return nil, nil, false
		}
		if k.ID != "" {
			if !add(k, k.ID, v) {
				return nil, nil, false
			}
			continue
		}
		keys, vals, ok := f.mappingItems(k, v)
		if !ok {
			known = false
			continue
		}
		for i, key := range keys {
			s, isStr := objects.AsStr(key)
			if !isStr {
				f.at(k).Raise(r.TypeError, "keywords must be strings")
				return nil, nil, false
			}
			if !add(k, s, vals[i]) {
				return nil, nil, false
			}
		}
	}
	return append(args, kwvals...), names, known
}

// mappingItems returns the keys and values of a ** operand. ok is false when
// the contents are unknown.
func (f *frame) mappingItems(n *ir.Node, v objects.Value) (keys, vals []objects.Value, ok bool) {
	ctx := f.at(n)
	if objects.IsUnknown(v) {
		return nil, nil, false
	}
	if d, isDict := objects.AsDict(v); isDict {
		if d.Opaque {
			return nil, nil, false
		}
		return d.Keys(), d.Values(), true
	}
	ks := objects.CallMethod(ctx, v, "keys")
	items, opaque := objects.Materialize(ctx, ks)
	if opaque || f.raised() {
		return nil, nil, false
	}
	for _, k := range items {
		keys = append(keys, k)
		vals = append(vals, objects.GetItem(ctx, v, k))
	}
	return keys, vals, !f.raised()
}

// superArgs supplies the implicit (class, first argument) pair of a
// zero-argument super() call. It returns nil after raising.
func (f *frame) superArgs(n *ir.Node) []objects.Value {
	r := objects.Builtins()
	ctx := f.at(n)
	if f.call == nil || f.cell == nil {
		ctx.Raise(r.RuntimeError, "super(): __class__ cell not found")
		return nil
	}
	if f.cell.typ == nil {
		ctx.Raise(r.RuntimeError, "super(): empty __class__ cell")
		return nil
	}
	params := f.call.fn.node.Params
	if len(params) == 0 || (params[0].Kind != "" && params[0].Kind != ir.ParamPositional) {
		ctx.Raise(r.RuntimeError, "super(): no arguments")
		return nil
	}
	self, ok := f.scope.ns.Get(params[0].Name)
	if !ok {
		ctx.Raise(r.RuntimeError, "super(): arg[0] deleted")
		return nil
	}
	return []objects.Value{f.cell.typ, self}
}
