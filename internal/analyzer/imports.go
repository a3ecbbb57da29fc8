package analyzer

import (
	"path"
	"slices"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// Loader resolves an absolute module name to a module object. Modules the
// loader does not know are reported as opaque imports.
type Loader interface {
	Load(ctx *objects.CallerContext, name string) (objects.Value, bool)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx *objects.CallerContext, name string) (objects.Value, bool)

func (fn LoaderFunc) Load(ctx *objects.CallerContext, name string) (objects.Value, bool) {
	return fn(ctx, name)
}

// maxAliasDepth bounds chains of stub aliases.
const maxAliasDepth = 8

// StubLoader builds module objects from stub declarations. Every Load
// creates fresh objects, so one StubLoader can serve many analyses.
type StubLoader struct {
	stubs map[string]ir.StubModule
}

// NewStubLoader indexes stubs by module name.
func NewStubLoader(stubs []ir.StubModule) *StubLoader {
	l := &StubLoader{stubs: make(map[string]ir.StubModule, len(stubs))}
	for _, s := range stubs {
		l.stubs[s.Name] = s
	}
	return l
}

func (l *StubLoader) Load(ctx *objects.CallerContext, name string) (objects.Value, bool) {
	return l.load(ctx, name, 0)
}

func (l *StubLoader) load(ctx *objects.CallerContext, name string, depth int) (objects.Value, bool) {
	s, ok := l.stubs[name]
	if !ok {
		return nil, false
	}
	ns := objects.NewNamespace()
	for _, key := range sortedMembers(s.Members) {
		ns.Set(key, l.member(ctx, name, key, s.Members[key], false, depth))
	}
	return objects.NewModuleObject(name, ns), true
}

func sortedMembers(members map[string]ir.StubMember) []string {
	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// member builds one stub attribute. method is set for members of a stub
// class, whose functions bind to instances.
func (l *StubLoader) member(ctx *objects.CallerContext, module, key string, m ir.StubMember, method bool, depth int) objects.Value {
	qual := module + "." + key
	switch m.Kind {
	case ir.StubConst:
		v, err := constant(m.Type, m.Literal)
		if err != nil {
			return objects.NewUnknown("%s", qual)
		}
		return v
	case ir.StubFunction:
		fn := l.stubFunction(module, key, m, depth)
		if method {
			return objects.NewFunction(fn)
		}
		return objects.NewBuiltinFunction(fn)
	case ir.StubClass:
		body := objects.NewNamespace()
		for _, k := range sortedMembers(m.Members) {
			body.Set(k, l.member(ctx, qual, k, m.Members[k], true, depth))
		}
		return objects.NewClass(ctx, objects.ClassSpec{Name: key, Module: module, Body: body})
	case ir.StubAlias:
		return l.alias(ctx, m.Target, depth+1)
	}
	return objects.NewUnknown("%s", qual)
}

func (l *StubLoader) stubFunction(module, key string, m ir.StubMember, depth int) *objects.Builtin {
	qual := module + "." + key
	ret := m.Returns
	var cached objects.Value
	call := func(ctx *objects.CallerContext, args []objects.Value, names []string) objects.Value {
		if ret == nil {
			return objects.NewUnknown("result of %s()", qual)
		}
		if ret.Kind == ir.StubClass {
			if cached == nil {
				cached = l.member(ctx, module, key+"()", *ret, false, depth)
			}
			return objects.Call(ctx, cached, nil, nil)
		}
		return l.member(ctx, module, key+"()", *ret, false, depth)
	}
	if m.SideEffect {
		return objects.NewSideEffectBuiltin(qual, call)
	}
	return objects.NewBuiltin(qual, call)
}

// alias resolves "module.member" against the stubs.
func (l *StubLoader) alias(ctx *objects.CallerContext, target string, depth int) objects.Value {
	if depth > maxAliasDepth {
		ctx.Error(ir.KindLimitError, "stub alias chain longer than %d at %q", maxAliasDepth, target)
		return objects.NewUnknown("alias %s", target)
	}
	if mod, ok := l.load(ctx, target, depth); ok {
		return mod
	}
	i := strings.LastIndexByte(target, '.')
	if i < 0 {
		return objects.NewUnknown("alias %s", target)
	}
	s, ok := l.stubs[target[:i]]
	if !ok {
		return objects.NewUnknown("alias %s", target)
	}
	m, ok := s.Members[target[i+1:]]
	if !ok {
		return objects.NewUnknown("alias %s", target)
	}
	return l.member(ctx, target[:i], target[i+1:], m, false, depth)
}

// importModule loads name once per analysis. The analyzed module can import
// itself.
func (in *interp) importModule(ctx *objects.CallerContext, name string) (objects.Value, bool) {
	if name == in.src.Name {
		return in.mod.Object(), true
	}
	if v, ok := in.imports[name]; ok {
		return v, v != nil
	}
	v, ok := in.loader.Load(ctx, name)
	if !ok {
		in.imports[name] = nil
		return nil, false
	}
	in.imports[name] = v
	in.log.Debug("module imported", "import", name)
	return v, true
}

// moduleDict returns the namespace of a loaded module object.
func moduleDict(v objects.Value) (*objects.Namespace, bool) {
	inst, ok := v.(*objects.Instance)
	if !ok || inst.Dict() == nil {
		return nil, false
	}
	return inst.Dict(), true
}

func (f *frame) execImport(n *ir.Node) {
	for _, a := range n.Names {
		ctx := f.at(n)
		mod, ok := f.in.importModule(ctx, a.Name)
		if !ok || objects.IsUnknown(mod) {
			ctx.Opaque("module '%s' is not available for analysis", a.Name)
			f.store(a.BoundName(), objects.NewUnknown("module %s", a.Name))
			continue
		}
		if a.AsName != "" || !strings.Contains(a.Name, ".") {
			f.store(a.BoundName(), mod)
			continue
		}
		f.store(a.BoundName(), f.in.packageChain(ctx, a.Name, mod))
	}
}

// packageChain links the modules along a dotted name and returns the top
// package. Packages the loader does not know become empty module objects.
func (in *interp) packageChain(ctx *objects.CallerContext, name string, leaf objects.Value) objects.Value {
	parts := strings.Split(name, ".")
	var top, parent objects.Value
	for i := range parts {
		prefix := strings.Join(parts[:i+1], ".")
		var m objects.Value
		if i == len(parts)-1 {
			m = leaf
		} else if v, ok := in.importModule(ctx, prefix); ok {
			m = v
		} else {
			m = objects.NewModuleObject(prefix, nil)
			in.imports[prefix] = m
		}
		if parent != nil {
			if ns, ok := moduleDict(parent); ok {
				if _, exists := ns.Get(parts[i]); !exists {
					ns.Set(parts[i], m)
				}
			}
		} else {
			top = m
		}
		parent = m
	}
	return top
}

func (f *frame) execImportFrom(n *ir.Node) {
	r := objects.Builtins()
	ctx := f.at(n)
	name, ok := f.in.resolveRelative(n.Module, n.Level)
	if !ok {
		ctx.Raise(r.ImportError, "attempted relative import beyond top-level package")
		return
	}
	mod, ok := f.in.importModule(ctx, name)
	ns, hasDict := moduleDict(mod)
	if !ok || !hasDict {
		ctx.Opaque("module '%s' is not available for analysis", name)
		for _, a := range n.Names {
			if a.Name != "*" {
				f.store(a.BoundName(), objects.NewUnknown("%s.%s", name, a.Name))
			}
		}
		return
	}
	for _, a := range n.Names {
		if a.Name == "*" {
			f.importStar(ctx, ns)
			continue
		}
		v, ok := ns.Get(a.Name)
		if !ok {
			v, ok = f.in.importModule(ctx, name+"."+a.Name)
		}
		if !ok {
			ctx.Raise(r.ImportError, "cannot import name '%s' from '%s'", a.Name, name)
			return
		}
		f.store(a.BoundName(), v)
	}
}

// importStar binds the public names of a module: __all__ when present,
// otherwise every name without a leading underscore.
func (f *frame) importStar(ctx *objects.CallerContext, ns *objects.Namespace) {
	if all, ok := ns.Get("__all__"); ok {
		items, opaque := objects.Materialize(ctx, all)
		if opaque {
			ctx.Opaque("__all__ of an imported module is unknown")
		}
		for _, item := range items {
			key, ok := objects.AsStr(item)
			if !ok {
				ctx.Raise(objects.Builtins().TypeError, "Item in __all__ must be str, not %s", item.Type().Name())
				return
			}
			if v, ok := ns.Get(key); ok {
				f.store(key, v)
			}
		}
		return
	}
	for _, key := range ns.Keys() {
		if strings.HasPrefix(key, "_") {
			continue
		}
		v, _ := ns.Get(key)
		f.store(key, v)
	}
}

// resolveRelative turns a relative import into an absolute module name. The
// module being analyzed is a package when its file is __init__.py.
func (in *interp) resolveRelative(module string, level int) (string, bool) {
	if level == 0 {
		return module, true
	}
	parts := strings.Split(in.src.Name, ".")
	if path.Base(in.src.File) != "__init__.py" {
		parts = parts[:len(parts)-1]
	}
	drop := level - 1
	if drop >= len(parts) {
		return "", false
	}
	parts = parts[:len(parts)-drop]
	if module != "" {
		parts = append(parts, module)
	}
	return strings.Join(parts, "."), true
}
