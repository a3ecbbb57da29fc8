package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/roach88/strictmod/internal/ir"
)

func configStubs() []StubModule {
	return []StubModule{
		{
			Name: "config",
			Members: map[string]StubMember{
				"VERSION": {Kind: StubConst, Type: ConstInt, Literal: "3"},
				"get":     {Kind: StubFunction, Returns: &StubMember{Kind: StubConst, Type: ConstStr, Literal: "a"}},
				"fetch":   {Kind: StubFunction},
				"log":     {Kind: StubFunction, SideEffect: true},
				"V":       {Kind: StubAlias, Target: "config.VERSION"},
				"Thing": {Kind: StubClass, Members: map[string]StubMember{
					"size": {Kind: StubConst, Type: ConstInt, Literal: "2"},
				}},
				"mystery": {Kind: StubUnknown},
			},
		},
		{
			Name: "pkg.sub",
			Members: map[string]StubMember{
				"X": {Kind: StubConst, Type: ConstInt, Literal: "1"},
			},
		},
	}
}

func stubOptions() Options {
	return Options{Policy: Policy{Stubs: configStubs()}}
}

func TestStubModuleMembers(t *testing.T) {
	res := runWith(t, stubOptions(),
		Import(As("config", "")).At(1),
		AssignName("v", Attribute(Name("config"), "VERSION")).At(2),
		AssignName("g", Call(Attribute(Name("config"), "get"))).At(3),
		AssignName("s", Attribute(Call(Attribute(Name("config"), "Thing")), "size")).At(4),
		AssignName("a", Attribute(Name("config"), "V")).At(5),
		AssignName("f", Call(Attribute(Name("config"), "fetch"))).At(6),
		AssignName("u", Attribute(Name("config"), "mystery")).At(7),
	)

	requireClean(t, res)
	assert.Equal(t, "3", res.Bindings["v"])
	assert.Equal(t, "'a'", res.Bindings["g"])
	assert.Equal(t, "2", res.Bindings["s"])
	assert.Equal(t, "3", res.Bindings["a"])
	assert.Equal(t, "<unknown>", res.Bindings["f"])
	assert.Equal(t, "<unknown>", res.Bindings["u"])
}

func TestStubSideEffect(t *testing.T) {
	body := ExprStmt(Call(Attribute(Name("config"), "log"))).At(2)
	imp := Import(As("config", "")).At(1)

	res := runWith(t, stubOptions(), imp, body)
	assert.Equal(t, []string{"SideEffectError: call to config.log() has side effects"}, findings(res))

	opts := stubOptions()
	opts.Policy.AllowSideEffects = []string{"config.log"}
	requireClean(t, runWith(t, opts, imp, body))
}

func TestImportFrom(t *testing.T) {
	res := runWith(t, stubOptions(),
		ImportFrom("config", As("get", "fetch_value"), As("VERSION", "")).At(1),
		AssignName("x", Call(Name("fetch_value"))).At(2),
		ImportFrom("config", As("nope", "")).At(3),
	)

	assert.Equal(t, "'a'", res.Bindings["x"])
	assert.Equal(t, "3", res.Bindings["VERSION"])
	assert.Equal(t, []string{"RaiseError: uncaught ImportError: cannot import name 'nope' from 'config'"}, findings(res))
}

func TestImportStar(t *testing.T) {
	res := runWith(t, stubOptions(),
		ImportFrom("config", As("*", "")).At(1),
	)

	requireClean(t, res)
	assert.Equal(t, "3", res.Bindings["VERSION"])
	assert.Contains(t, res.Bindings, "Thing")
}

func TestDottedImportBuildsPackageChain(t *testing.T) {
	res := runWith(t, stubOptions(),
		Import(As("pkg.sub", "")).At(1),
		AssignName("y", Attribute(Attribute(Name("pkg"), "sub"), "X")).At(2),
		Import(As("pkg.sub", "alias")).At(3),
		AssignName("z", Attribute(Name("alias"), "X")).At(4),
		ImportFrom("pkg", As("sub", "again")).At(5),
		AssignName("w", Attribute(Name("again"), "X")).At(6),
	)

	requireClean(t, res)
	assert.Equal(t, "1", res.Bindings["y"])
	assert.Equal(t, "1", res.Bindings["z"])
	assert.Equal(t, "1", res.Bindings["w"])
}

func TestMissingModuleIsOpaque(t *testing.T) {
	res := run(t,
		ImportFrom("elsewhere", As("thing", "")).At(1),
	)

	assert.Equal(t, []string{"OpacityError: module 'elsewhere' is not available for analysis"}, findings(res))
	assert.Equal(t, "<unknown>", res.Bindings["thing"])
	assert.True(t, res.Verdict.Strict)
}

func TestSelfImport(t *testing.T) {
	res := run(t,
		AssignName("x", Int(5)).At(1),
		Import(As("m", "me")).At(2),
		AssignName("y", Attribute(Name("me"), "x")).At(3),
	)

	requireClean(t, res)
	assert.Equal(t, "5", res.Bindings["y"])
}

func TestAliasChainLimit(t *testing.T) {
	members := make(map[string]StubMember)
	members["a"] = StubMember{Kind: StubAlias, Target: "loop.b"}
	members["b"] = StubMember{Kind: StubAlias, Target: "loop.a"}
	opts := Options{Policy: Policy{Stubs: []StubModule{{Name: "loop", Members: members}}}}

	res := runWith(t, opts, Import(As("loop", "")).At(1))

	assert.Contains(t, findings(res), `LimitError: stub alias chain longer than 8 at "loop.a"`)
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		name   string
		src    *Module
		module string
		level  int
		want   string
		ok     bool
	}{
		{"absolute", &Module{Name: "a.b.c", File: "a/b/c.py"}, "x.y", 0, "x.y", true},
		{"sibling", &Module{Name: "a.b.c", File: "a/b/c.py"}, "x", 1, "a.b.x", true},
		{"parent package", &Module{Name: "a.b.c", File: "a/b/c.py"}, "", 2, "a", true},
		{"beyond top", &Module{Name: "a.b.c", File: "a/b/c.py"}, "x", 3, "", false},
		{"package init", &Module{Name: "a.b", File: "a/b/__init__.py"}, "x", 1, "a.b.x", true},
		{"top-level module", &Module{Name: "solo", File: "solo.py"}, "x", 1, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &interp{src: tt.src}
			got, ok := in.resolveRelative(tt.module, tt.level)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelativeImportBeyondTopLevel(t *testing.T) {
	node := ImportFrom("x", As("y", "")).At(1)
	node.Level = 1

	res := run(t, node)

	assert.Equal(t, []string{"RaiseError: uncaught ImportError: attempted relative import beyond top-level package"}, findings(res))
}
