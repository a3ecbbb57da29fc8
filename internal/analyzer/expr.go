package analyzer

import (
	"strings"

	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// eval evaluates an expression. Failures are diagnostics and yield Unknown;
// once the current block has raised, evaluation is skipped.
func (f *frame) eval(n *ir.Node) objects.Value {
	if n == nil {
		return objects.Builtins().None
	}
	if f.raised() {
		return objects.NewUnknown("after exception")
	}
	if !f.step(n) {
		return objects.NewUnknown("step budget exhausted")
	}
	r := objects.Builtins()
	switch n.Kind {
	case ir.KindConstant:
		v, err := constant(n.Type, n.Literal)
		if err != nil {
			f.at(n).Error(ir.KindSyntaxError, "%v", err)
			return objects.NewUnknown("bad constant")
		}
		return v
	case ir.KindName:
		return f.load(n)
	case ir.KindAttribute:
		obj := f.eval(n.Value)
		if f.raised() {
			return objects.NewUnknown("after exception")
		}
		return objects.LoadAttr(f.at(n), obj, n.Attr)
	case ir.KindSubscript:
		obj := f.eval(n.Value)
		idx := f.eval(n.Index)
		if f.raised() {
			return objects.NewUnknown("after exception")
		}
		return objects.GetItem(f.at(n), obj, idx)
	case ir.KindSlice:
		return objects.NewSlice(f.eval(n.Lower), f.eval(n.Upper), f.eval(n.Step))
	case ir.KindCall:
		return f.evalCall(n)
	case ir.KindBinOp:
		op, err := objects.ParseBinaryOp(n.Op)
		if err != nil {
			f.at(n).Error(ir.KindSyntaxError, "%v", err)
			return objects.NewUnknown("bad operator")
		}
		left := f.eval(n.Left)
		right := f.eval(n.Right)
		if f.raised() {
			return objects.NewUnknown("after exception")
		}
		return objects.BinaryOperation(f.at(n), left, right, op)
	case ir.KindUnaryOp:
		op, err := objects.ParseUnaryOp(n.Op)
		if err != nil {
			f.at(n).Error(ir.KindSyntaxError, "%v", err)
			return objects.NewUnknown("bad operator")
		}
		v := f.eval(n.Operand)
		if f.raised() {
			return objects.NewUnknown("after exception")
		}
		return objects.UnaryOperation(f.at(n), v, op)
	case ir.KindBoolOp:
		return f.evalBoolOp(n)
	case ir.KindCompare:
		return f.evalCompare(n)
	case ir.KindIfExp:
		switch t := f.truth(n.Test); {
		case f.raised():
			return objects.NewUnknown("after exception")
		case t == r.True:
			return f.eval(n.Then)
		case t == r.False:
			return f.eval(n.Else)
		}
		return f.speculateValue(
			func() objects.Value { return f.eval(n.Then) },
			func() objects.Value { return f.eval(n.Else) },
		)
	case ir.KindList:
		items, opaque := f.evalElts(n.Elts)
		if opaque {
			return objects.NewOpaqueList(items)
		}
		return objects.NewList(items)
	case ir.KindTuple:
		items, opaque := f.evalElts(n.Elts)
		if opaque {
			return objects.NewInstance(r.TupleType, objects.NewListPayload(items, true))
		}
		return objects.NewTuple(items)
	case ir.KindSet:
		items, opaque := f.evalElts(n.Elts)
		s := objects.NewSet(f.at(n), items)
		if opaque {
			f.at(n).Opaque("set display with unknown elements")
			return objects.NewUnknown("set with unknown elements")
		}
		return s
	case ir.KindDict:
		return f.evalDict(n)
	case ir.KindLambda:
		return f.makeFunction(n, "<lambda>")
	case ir.KindListComp:
		return f.evalListComp(n)
	case ir.KindJoinedStr:
		return f.evalJoinedStr(n)
	case ir.KindStarred:
		f.at(n).Error(ir.KindSyntaxError, "can't use starred expression here")
		return objects.NewUnknown("starred")
	}
	f.at(n).Error(ir.KindSyntaxError, "unsupported expression %s", n.Kind)
	return objects.NewUnknown("unsupported %s", n.Kind)
}

// evalElts evaluates display elements, expanding starred ones. opaque
// reports that an expanded iterable had unknown elements.
func (f *frame) evalElts(elts []*ir.Node) ([]objects.Value, bool) {
	out := make([]objects.Value, 0, len(elts))
	opaque := false
	for _, e := range elts {
		if e.Kind != ir.KindStarred {
			out = append(out, f.eval(e))
			continue
		}
		v := f.eval(e.Value)
		if f.raised() {
			return out, true
		}
		items, more := objects.Materialize(f.at(e), v)
		out = append(out, items...)
		opaque = opaque || more
	}
	return out, opaque
}

func (f *frame) evalDict(n *ir.Node) objects.Value {
	ctx := f.at(n)
	d := objects.NewDict(ctx, nil, nil)
	for i, kn := range n.Keys {
		var vn *ir.Node
		if i < len(n.Values) {
			vn = n.Values[i]
		}
		if kn == nil {
			other := f.eval(vn)
			if f.raised() {
				break
			}
			objects.CallMethod(f.at(vn), d, "update", other)
			continue
		}
		k := f.eval(kn)
		v := f.eval(vn)
		if f.raised() {
			break
		}
		objects.SetItem(f.at(kn), d, k, v)
	}
	return d
}

// evalBoolOp evaluates and/or with short-circuiting. When an operand's truth
// is unknown the remaining operands are evaluated speculatively and the
// result is Unknown.
func (f *frame) evalBoolOp(n *ir.Node) objects.Value {
	r := objects.Builtins()
	if len(n.Values) == 0 {
		f.at(n).Error(ir.KindSyntaxError, "empty boolean operation")
		return objects.NewUnknown("empty bool op")
	}
	isAnd := n.Op == "and"
	if !isAnd && n.Op != "or" {
		f.at(n).Error(ir.KindSyntaxError, "unknown boolean operator %q", n.Op)
		return objects.NewUnknown("bad bool op")
	}
	v := f.eval(n.Values[0])
	for i := 1; i < len(n.Values); i++ {
		if f.raised() {
			return objects.NewUnknown("after exception")
		}
		t := objects.Truth(f.at(n.Values[i-1]), v)
		switch {
		case t == r.True && !isAnd, t == r.False && isAnd:
			return v
		case t == r.True, t == r.False:
			v = f.eval(n.Values[i])
			continue
		}
		rest := n.Values[i:]
		prev := v
		return f.speculateValue(
			func() objects.Value { return prev },
			func() objects.Value {
				var last objects.Value
				for _, e := range rest {
					last = f.eval(e)
				}
				return last
			},
		)
	}
	return v
}

// evalCompare evaluates a comparison chain; a op1 b op2 c is a op1 b and
// b op2 c with b evaluated once.
func (f *frame) evalCompare(n *ir.Node) objects.Value {
	if len(n.Ops) != len(n.Comparators) || len(n.Ops) == 0 {
		f.at(n).Error(ir.KindSyntaxError, "malformed comparison")
		return objects.NewUnknown("bad compare")
	}
	return f.compareFrom(n, 0, f.eval(n.Left))
}

// compareFrom continues a comparison chain at operator start with left as
// the already evaluated left operand.
func (f *frame) compareFrom(n *ir.Node, start int, left objects.Value) objects.Value {
	r := objects.Builtins()
	var res objects.Value
	for i := start; i < len(n.Ops); i++ {
		op, err := objects.ParseCmpOp(n.Ops[i])
		if err != nil {
			f.at(n).Error(ir.KindSyntaxError, "%v", err)
			return objects.NewUnknown("bad operator")
		}
		right := f.eval(n.Comparators[i])
		if f.raised() {
			return objects.NewUnknown("after exception")
		}
		res = objects.Compare(f.at(n.Comparators[i]), left, right, op)
		if i == len(n.Ops)-1 || f.raised() {
			break
		}
		switch t := objects.Truth(f.at(n), res); {
		case t == r.False:
			return res
		case t != r.True:
			prev, nextLeft, nextOp := res, right, i+1
			return f.speculateValue(
				func() objects.Value { return prev },
				func() objects.Value { return f.compareFrom(n, nextOp, nextLeft) },
			)
		}
		left = right
	}
	return res
}

// evalJoinedStr evaluates an f-string.
func (f *frame) evalJoinedStr(n *ir.Node) objects.Value {
	var sb strings.Builder
	unknown := false
	for _, part := range n.Values {
		var v objects.Value
		if part.Kind == ir.KindFormattedValue {
			v = f.evalFormatted(part)
		} else {
			v = f.eval(part)
		}
		if f.raised() {
			return objects.NewUnknown("after exception")
		}
		s, ok := objects.AsStr(v)
		if !ok {
			unknown = true
			continue
		}
		sb.WriteString(s)
	}
	if unknown {
		return objects.NewUnknown("formatted string")
	}
	return objects.NewStr(sb.String())
}

func (f *frame) evalFormatted(n *ir.Node) objects.Value {
	ctx := f.at(n)
	v := f.eval(n.Value)
	if f.raised() {
		return objects.NewUnknown("after exception")
	}
	switch n.Op {
	case "":
	case "r":
		v = objects.Repr(ctx, v)
	case "s":
		v = objects.Str(ctx, v)
	case "a":
		ascii, _ := objects.Builtins().Lookup("ascii")
		v = objects.Call(ctx, ascii, []objects.Value{v}, nil)
	default:
		ctx.Error(ir.KindSyntaxError, "unknown conversion %q", n.Op)
		return objects.NewUnknown("bad conversion")
	}
	spec := ""
	if n.Spec != nil {
		sv := f.eval(n.Spec)
		s, ok := objects.AsStr(sv)
		if !ok {
			return objects.NewUnknown("format spec")
		}
		spec = s
	}
	return objects.Format(ctx, v, spec)
}

// evalListComp evaluates a list comprehension in its own scope. The first
// iterable is evaluated in the enclosing scope.
func (f *frame) evalListComp(n *ir.Node) objects.Value {
	if len(n.Generators) == 0 {
		f.at(n).Error(ir.KindSyntaxError, "comprehension without generators")
		return objects.NewUnknown("bad comprehension")
	}
	first := f.eval(n.Generators[0].Iter)
	if f.raised() {
		return objects.NewUnknown("after exception")
	}
	targets := make([]*ir.Node, len(n.Generators))
	for i, g := range n.Generators {
		targets[i] = g.Target
	}
	parent := f.scope
	if parent.kind == scopeClass {
		parent = parent.closure()
	}
	cf := *f
	cf.scope = parent.child(scopeComprehension, scanTargets(targets...))
	cf.loops = 0

	var out []objects.Value
	opaque := cf.comprehend(n, 0, first, &out)
	if opaque {
		return objects.NewOpaqueList(out)
	}
	return objects.NewList(out)
}

// comprehend runs generator i over iterable, appending results to out. It
// reports whether the result may contain more elements than collected.
func (f *frame) comprehend(n *ir.Node, i int, iterable objects.Value, out *[]objects.Value) bool {
	r := objects.Builtins()
	g := n.Generators[i]
	opaque := false
	it := objects.Iter(f.at(g), iterable)
	limit := f.in.mod.Limits().MaxLoopIterations
	for count := 0; ; count++ {
		if f.raised() || f.in.exhausted {
			return true
		}
		if count >= limit {
			f.at(g).Error(ir.KindLimitError, "loop exceeded %d iterations", limit)
			return true
		}
		v, ok := it.Next()
		if !ok {
			return opaque
		}
		if objects.IsTail(v) {
			return true
		}
		f.assign(g.Target, v)
		keep := true
		for _, cond := range g.Ifs {
			t := f.truth(cond)
			if t == r.False {
				keep = false
				break
			}
			if t != r.True {
				opaque = true
				keep = false
				break
			}
		}
		if !keep || f.raised() {
			continue
		}
		if i == len(n.Generators)-1 {
			*out = append(*out, f.eval(n.Elt))
			if len(*out) > f.in.mod.Limits().MaxContainerSize {
				f.at(n).Error(ir.KindLimitError, "container larger than %d elements", f.in.mod.Limits().MaxContainerSize)
				return true
			}
			continue
		}
		inner := f.eval(n.Generators[i+1].Iter)
		if f.comprehend(n, i+1, inner, out) {
			opaque = true
		}
	}
}
