package analyzer

import (
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// defineClass executes a class statement: bases and keywords are evaluated,
// the body runs in a fresh class namespace, and the class is created through
// the metaclass.
func (f *frame) defineClass(n *ir.Node) exit {
	decorators := f.evalDecorators(n)
	bases, _ := f.evalElts(n.Bases)
	if f.raised() {
		return exit{kind: flowRaise}
	}

	spec := objects.ClassSpec{
		Name:     n.ID,
		Module:   f.in.src.Name,
		Bases:    bases,
		Keywords: make(map[string]objects.Value),
	}
	for _, k := range n.Keywords {
		v := f.eval(k.Value)
		if f.raised() {
			return exit{kind: flowRaise}
		}
		switch k.ID {
		case "":
			f.at(k).Error(ir.KindSyntaxError, "mapping splat in class keywords is not supported")
		case "metaclass":
			spec.Meta = v
		default:
			spec.Keywords[k.ID] = v
			spec.KwOrder = append(spec.KwOrder, k.ID)
		}
	}

	qual := f.qual + n.ID
	cell := &classCell{}
	body := f.scope.child(scopeClass, scanLocals(nil, n.Body))
	body.ns.Set("__module__", objects.NewStr(f.in.src.Name))
	body.ns.Set("__qualname__", objects.NewStr(qual))
	if doc := docstring(n.Body); doc != objects.Value(objects.Builtins().None) {
		body.ns.Set("__doc__", doc)
	}
	cf := &frame{
		in:    f.in,
		ctx:   f.ctx,
		scope: body,
		cell:  cell,
		qual:  qual + ".",
	}
	e := cf.execBlock(n.Body)
	if e.kind == flowAbort || (e.kind == flowRaise && !e.maybe) {
		return e
	}
	if e.kind == flowRaise {
		f.reportMaybeRaise()
	}

	spec.Body = body.ns
	cls := objects.NewClass(f.at(n), spec)
	cell.typ = cls
	cls = f.decorate(n, decorators, cls)
	if f.raised() {
		return exit{kind: flowRaise}
	}
	f.store(n.ID, cls)
	f.in.log.Debug("class defined", "class", qual, "value", objects.Describe(cls))
	return next
}
