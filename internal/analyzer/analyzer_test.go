package analyzer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

func run(t *testing.T, body ...*Node) *Result {
	t.Helper()
	return runWith(t, Options{}, body...)
}

func runWith(t *testing.T, opts Options, body ...*Node) *Result {
	t.Helper()
	res := Run(NewModule("m", body...), opts)
	require.NotNil(t, res)
	require.False(t, res.Panicked, "diagnostics: %v", res.Diagnostics)
	return res
}

// findings renders diagnostics as "Kind: message" for compact assertions.
func findings(res *Result) []string {
	out := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		out = append(out, string(d.Kind)+": "+d.Message)
	}
	return out
}

func requireClean(t *testing.T, res *Result) {
	t.Helper()
	require.Empty(t, findings(res))
	require.True(t, res.Verdict.Strict)
}

func method(name string, params []string, body ...*Node) *Node {
	ps := make([]*Param, len(params))
	for i, p := range params {
		ps[i] = P(p)
	}
	return FunctionDef(name, ps, body...)
}

func TestDunderAdd(t *testing.T) {
	res := run(t,
		ClassDef("A", nil, method("__add__", []string{"self", "other"}, Return(Int(1)))).At(1),
		AssignName("x", BinOp(Call(Name("A")), "+", Call(Name("A")))).At(3),
	)

	requireClean(t, res)
	assert.Equal(t, "1", res.Bindings["x"])
}

func TestReflectedAdd(t *testing.T) {
	res := run(t,
		ClassDef("B", nil, method("__radd__", []string{"self", "other"}, Return(Int(2)))).At(1),
		AssignName("x", BinOp(Int(1), "+", Call(Name("B")))).At(3),
	)

	requireClean(t, res)
	assert.Equal(t, "2", res.Bindings["x"])
}

func TestUnknownImportDegradesToWarning(t *testing.T) {
	body := []*Node{
		Import(As("ext", "")).At(1),
		AssignName("x", Attribute(Name("ext"), "foo")).At(2),
	}

	res := run(t, body...)
	require.NotEmpty(t, res.Diagnostics)
	for _, d := range res.Diagnostics {
		assert.Equal(t, KindOpacityError, d.Kind)
		assert.Equal(t, SeverityWarning, d.Severity)
	}
	assert.True(t, res.Verdict.Strict)
	assert.Equal(t, "<unknown>", res.Bindings["x"])

	strict := runWith(t, Options{Policy: Policy{Opacity: OpacityError}}, body...)
	assert.False(t, strict.Verdict.Strict)
	assert.Equal(t, SeverityError, strict.Diagnostics[0].Severity)
}

func TestMissingAttribute(t *testing.T) {
	res := run(t,
		ClassDef("C", nil, Pass()).At(1),
		AssignName("x", Attribute(Call(Name("C")), "y")).At(2),
	)

	want := []Diagnostic{{
		Location: Location{File: "m.py", Line: 2},
		Severity: SeverityError,
		Kind:     KindAttributeError,
		Message:  "'C' object has no attribute 'y'",
	}}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, res.Verdict.Strict)
	assert.Equal(t, 1, res.Verdict.Counts["AttributeError"])
}

func TestBranchOnUnknownMergesBindings(t *testing.T) {
	res := run(t,
		Import(As("ext", "")).At(1),
		If(Attribute(Name("ext"), "flag"),
			[]*Node{AssignName("x", Int(1)).At(3)},
			AssignName("x", Int(2)).At(5),
		).At(2),
		AssignName("same", Int(7)).At(6),
	)

	assert.True(t, res.Verdict.Strict)
	assert.Equal(t, "<unknown>", res.Bindings["x"])
	assert.Equal(t, "7", res.Bindings["same"])
}

func TestNonlocalCounter(t *testing.T) {
	res := run(t,
		FunctionDef("make", nil,
			AssignName("n", Int(0)),
			FunctionDef("inc", nil,
				Nonlocal("n"),
				AugAssign(Name("n"), "+", Int(1)),
				Return(Name("n")),
			),
			ExprStmt(Call(Name("inc"))),
			Return(Call(Name("inc"))),
		).At(1),
		AssignName("x", Call(Name("make"))).At(9),
	)

	requireClean(t, res)
	assert.Equal(t, "2", res.Bindings["x"])
}

func TestGlobalDeclaration(t *testing.T) {
	res := run(t,
		AssignName("total", Int(1)).At(1),
		FunctionDef("bump", nil,
			Global("total"),
			AugAssign(Name("total"), "+", Int(10)),
		).At(2),
		ExprStmt(Call(Name("bump"))).At(5),
	)

	requireClean(t, res)
	assert.Equal(t, "11", res.Bindings["total"])
}

func TestUnboundLocal(t *testing.T) {
	res := run(t,
		AssignName("y", Int(1)).At(1),
		FunctionDef("f", nil,
			AssignName("z", Name("y")).At(3),
			AssignName("y", Int(2)).At(4),
		).At(2),
		ExprStmt(Call(Name("f"))).At(5),
	)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, KindNameError, d.Kind)
	assert.Equal(t, 3, d.Location.Line)
	assert.Equal(t, "cannot access local variable 'y' where it is not associated with a value", d.Message)
}

func TestUndefinedName(t *testing.T) {
	res := run(t, AssignName("x", Name("nowhere")).At(1))

	assert.Equal(t, []string{"NameError: name 'nowhere' is not defined"}, findings(res))
	_, bound := res.Bindings["x"]
	assert.False(t, bound)
}

func TestStatementsContinueAfterUncaughtException(t *testing.T) {
	res := run(t,
		Raise(Call(Name("ValueError"), Str("bad"))).At(1),
		AssignName("after", Int(1)).At(2),
	)

	assert.Equal(t, []string{"ValueError: bad"}, findings(res))
	assert.Equal(t, "1", res.Bindings["after"])
}

func TestExceptBindsAndUnbindsName(t *testing.T) {
	res := run(t,
		AssignName("d", Dict(nil, nil)).At(1),
		Try(
			[]*Node{ExprStmt(Subscript(Name("d"), Str("k"))).At(3)},
			[]*Node{Except(Name("KeyError"), "e",
				AssignName("got", Attribute(Name("e"), "args")).At(5),
			).At(4)},
			nil, nil,
		).At(2),
	)

	requireClean(t, res)
	assert.Equal(t, "('k',)", res.Bindings["got"])
	_, bound := res.Bindings["e"]
	assert.False(t, bound)
}

func TestUncaughtUserException(t *testing.T) {
	res := run(t,
		ClassDef("MyErr", []*Node{Name("Exception")}, Pass()).At(1),
		Raise(Call(Name("MyErr"), Str("x"))).At(2),
	)

	want := []Diagnostic{{
		Location: Location{File: "m.py", Line: 2},
		Severity: SeverityError,
		Kind:     KindRaiseError,
		Message:  "uncaught MyErr: x",
	}}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestTryFinallyOrder(t *testing.T) {
	appendTo := func(v int64) *Node {
		return ExprStmt(Call(Attribute(Name("log"), "append"), Int(v)))
	}
	res := run(t,
		AssignName("log", List()).At(1),
		Try(
			[]*Node{Raise(Call(Name("ValueError"), Str("v"))).At(3)},
			[]*Node{Except(Name("ValueError"), "", appendTo(1)).At(4)},
			[]*Node{appendTo(9)},
			[]*Node{appendTo(2)},
		).At(2),
	)

	requireClean(t, res)
	assert.Equal(t, "[1, 2]", res.Bindings["log"])
}

func TestFinallyRunsForUncaughtException(t *testing.T) {
	res := run(t,
		AssignName("done", Bool(false)).At(1),
		Try(
			[]*Node{Raise(Call(Name("KeyError"), Str("k"))).At(3)},
			nil, nil,
			[]*Node{AssignName("done", Bool(true)).At(5)},
		).At(2),
	)

	assert.Equal(t, []string{"KeyError: 'k'"}, findings(res))
	assert.Equal(t, 3, res.Diagnostics[0].Location.Line)
	assert.Equal(t, "True", res.Bindings["done"])
}

func TestCallerCatchesFunctionRaise(t *testing.T) {
	res := run(t,
		FunctionDef("f", nil, Raise(Call(Name("KeyError"), Str("k")))).At(1),
		Try(
			[]*Node{ExprStmt(Call(Name("f"))).At(3)},
			[]*Node{Except(Name("LookupError"), "", AssignName("ok", Bool(true))).At(4)},
			nil, nil,
		).At(2),
	)

	requireClean(t, res)
	assert.Equal(t, "True", res.Bindings["ok"])
}

func TestBareReraise(t *testing.T) {
	res := run(t,
		Try(
			[]*Node{Raise(Call(Name("ValueError"), Str("inner"))).At(2)},
			[]*Node{Except(nil, "", Raise(nil).At(4)).At(3)},
			nil, nil,
		).At(1),
		Raise(nil).At(5),
	)

	assert.Equal(t, []string{
		"ValueError: inner",
		"RaiseError: uncaught RuntimeError: No active exception to reraise",
	}, findings(res))
	assert.Equal(t, 4, res.Diagnostics[0].Location.Line)
}

func TestRaiseNonException(t *testing.T) {
	res := run(t, Raise(Int(3)).At(1))
	assert.Equal(t, []string{"TypeError: exceptions must derive from BaseException"}, findings(res))
}

func TestZeroArgSuper(t *testing.T) {
	res := run(t,
		ClassDef("A", nil, method("f", []string{"self"}, Return(Int(1)))).At(1),
		ClassDef("B", []*Node{Name("A")},
			method("f", []string{"self"},
				Return(BinOp(Call(Attribute(Call(Name("super")), "f")), "+", Int(1))),
			),
		).At(3),
		AssignName("x", Call(Attribute(Call(Name("B")), "f"))).At(6),
	)

	requireClean(t, res)
	assert.Equal(t, "2", res.Bindings["x"])
}

func TestPropertyDecorator(t *testing.T) {
	res := run(t,
		ClassDef("P", nil,
			Decorated(method("v", []string{"self"}, Return(Int(5))), Name("property")),
		).At(1),
		AssignName("x", Attribute(Call(Name("P")), "v")).At(5),
	)

	requireClean(t, res)
	assert.Equal(t, "5", res.Bindings["x"])
}

func TestMetaclassKeyword(t *testing.T) {
	res := run(t,
		ClassDef("Meta", []*Node{Name("type")}, Pass()).At(1),
		WithKeywords(ClassDef("X", nil, Pass()), Keyword("metaclass", Name("Meta"))).At(3),
		AssignName("ok", Cmp(Call(Name("type"), Name("X")), "is", Name("Meta"))).At(5),
	)

	requireClean(t, res)
	assert.Equal(t, "True", res.Bindings["ok"])
}

func TestClassBodyNames(t *testing.T) {
	res := run(t,
		ClassDef("K", nil,
			ExprStmt(Str("Docs.")),
			AssignName("size", Int(3)),
			AssignName("double", BinOp(Name("size"), "*", Int(2))),
		).At(1),
		AssignName("d", Attribute(Name("K"), "double")).At(5),
		AssignName("q", Attribute(Name("K"), "__qualname__")).At(6),
		AssignName("doc", Attribute(Name("K"), "__doc__")).At(7),
		AssignName("mod", Attribute(Name("K"), "__module__")).At(8),
	)

	requireClean(t, res)
	assert.Equal(t, "6", res.Bindings["d"])
	assert.Equal(t, "'K'", res.Bindings["q"])
	assert.Equal(t, "'Docs.'", res.Bindings["doc"])
	assert.Equal(t, "'m'", res.Bindings["mod"])
}

func TestForRangeSum(t *testing.T) {
	res := run(t,
		AssignName("t", Int(0)).At(1),
		ForLoop(Name("i"), Call(Name("range"), Int(5)),
			AugAssign(Name("t"), "+", Name("i")),
		).At(2),
	)

	requireClean(t, res)
	assert.Equal(t, "10", res.Bindings["t"])
	assert.Equal(t, "4", res.Bindings["i"])
}

func TestLoopOverLargeKnownContainers(t *testing.T) {
	res := run(t,
		AssignName("xs", Call(Name("list"), Call(Name("range"), Int(1024)))).At(1),
		AssignName("n", Int(0)).At(2),
		ForLoop(Name("x"), Name("xs"),
			AugAssign(Name("n"), "+", Int(1)),
		).At(3),
		AssignName("size", Call(Name("len"), Call(Name("list"), Call(Name("range"), Int(2000))))).At(4),
		AssignName("total", Call(Name("sum"), Call(Name("range"), Int(2000)))).At(5),
	)

	requireClean(t, res)
	assert.Equal(t, "1024", res.Bindings["n"])
	assert.Equal(t, "2000", res.Bindings["size"])
	assert.Equal(t, "1999000", res.Bindings["total"])
}

func TestLoopElseAndBreak(t *testing.T) {
	res := run(t,
		AssignName("found", None()).At(1),
		&Node{
			Kind:   KindFor,
			Target: Name("i"),
			Iter:   List(Int(1), Int(4), Int(9)),
			Body: []*Node{
				If(Cmp(Name("i"), ">", Int(3)), []*Node{AssignName("found", Name("i")), Break()}),
			},
			Orelse: []*Node{AssignName("found", Int(-1))},
			Line:   2,
		},
	)

	requireClean(t, res)
	assert.Equal(t, "4", res.Bindings["found"])
}

func TestWhileLoopLimit(t *testing.T) {
	opts := Options{Policy: Policy{Limits: Limits{MaxLoopIterations: 10}}}
	res := runWith(t, opts,
		AssignName("n", Int(0)).At(1),
		While(Bool(true), AugAssign(Name("n"), "+", Int(1))).At(2),
		AssignName("after", Int(1)).At(3),
	)

	want := []Diagnostic{{
		Location: Location{File: "m.py", Line: 2},
		Severity: SeverityError,
		Kind:     KindLimitError,
		Message:  "loop exceeded 10 iterations",
	}}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "1", res.Bindings["after"])
}

func TestStepBudget(t *testing.T) {
	opts := Options{Policy: Policy{Limits: Limits{MaxSteps: 50}}}
	res := runWith(t, opts,
		ForLoop(Name("i"), Call(Name("range"), Int(1000)),
			AssignName("t", Name("i")),
		).At(1),
		AssignName("never", Int(1)).At(3),
	)

	assert.True(t, res.Exhausted)
	assert.Contains(t, findings(res), "LimitError: evaluation step budget exhausted")
	assert.False(t, res.Verdict.Strict)
	_, bound := res.Bindings["never"]
	assert.False(t, bound)
}

func TestLoopOverUnknownIterable(t *testing.T) {
	res := run(t,
		Import(As("ext", "")).At(1),
		AssignName("t", Int(0)).At(2),
		ForLoop(Name("i"), Attribute(Name("ext"), "items"),
			AssignName("t", Name("i")),
		).At(3),
	)

	assert.True(t, res.Verdict.Strict)
	for _, d := range res.Diagnostics {
		assert.Equal(t, KindOpacityError, d.Kind)
	}
	assert.Equal(t, "<unknown>", res.Bindings["t"])
}

func TestUnknownLoopReachesLaterIterations(t *testing.T) {
	shift := func(loop func(body ...*Node) *Node) []*Node {
		return []*Node{
			Import(As("ext", "")).At(1),
			AssignName("a", Int(0)).At(2),
			AssignName("b", Int(0)).At(3),
			AssignName("same", Int(7)).At(4),
			loop(
				If(Name("a"), []*Node{ExprStmt(Call(Name("print"), Str("inner"))).At(6)}),
				AssignName("a", Name("b")).At(7),
				AssignName("b", Int(1)).At(8),
			).At(5),
			If(Name("a"), []*Node{ExprStmt(Call(Name("print"), Str("after"))).At(10)}).At(9),
		}
	}
	tests := []struct {
		name string
		loop func(body ...*Node) *Node
	}{
		{"for", func(body ...*Node) *Node {
			return ForLoop(Name("i"), Attribute(Name("ext"), "items"), body...)
		}},
		{"while", func(body ...*Node) *Node {
			return While(Attribute(Name("ext"), "flag"), body...)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, shift(tt.loop)...)

			assert.Equal(t, "<unknown>", res.Bindings["a"])
			assert.Equal(t, "<unknown>", res.Bindings["b"])
			assert.Equal(t, "7", res.Bindings["same"])
			assert.False(t, res.Verdict.Strict)

			var lines []int
			for _, d := range res.Diagnostics {
				if d.Kind == KindSideEffectError {
					lines = append(lines, d.Location.Line)
				}
			}
			assert.ElementsMatch(t, []int{6, 10}, lines)
		})
	}
}

func TestUnknownLoopWidensMutatedContainers(t *testing.T) {
	res := run(t,
		Import(As("ext", "")).At(1),
		AssignName("xs", List(Int(1))).At(2),
		AssignName("kept", List(Int(1))).At(3),
		ForLoop(Name("i"), Attribute(Name("ext"), "items"),
			ExprStmt(Call(Attribute(Name("xs"), "append"), Name("i"))),
		).At(4),
		AssignName("n", Call(Name("len"), Name("xs"))).At(5),
		AssignName("m", Call(Name("len"), Name("kept"))).At(6),
	)

	assert.True(t, res.Verdict.Strict)
	assert.Equal(t, "<unknown>", res.Bindings["n"])
	assert.Equal(t, "1", res.Bindings["m"])
}

func TestUnknownLoopSettlesWithFreshObjects(t *testing.T) {
	opts := Options{Policy: Policy{Limits: Limits{MaxLoopIterations: 3}}}
	res := runWith(t, opts,
		Import(As("ext", "")).At(1),
		ForLoop(Name("i"), Attribute(Name("ext"), "items"),
			AssignName("tmp", List()),
			ExprStmt(Call(Attribute(Name("tmp"), "append"), Name("i"))),
			AssignName("d", Dict(nil, nil)),
			Assign(Subscript(Name("d"), Str("k")), Name("i")),
		).At(2),
	)

	assert.True(t, res.Verdict.Strict)
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, KindLimitError, d.Kind, d.Message)
	}
}

func TestListComprehension(t *testing.T) {
	res := run(t,
		AssignName("sq", ListComp(
			BinOp(Name("x"), "*", Name("x")),
			Comprehension(Name("x"), Call(Name("range"), Int(3)), Cmp(Name("x"), "!=", Int(1))),
		)).At(1),
	)

	requireClean(t, res)
	assert.Equal(t, "[0, 4]", res.Bindings["sq"])
	_, leaked := res.Bindings["x"]
	assert.False(t, leaked)
}

func TestStarredUnpack(t *testing.T) {
	res := run(t,
		Assign(
			Tuple(Name("a"), Starred(Name("b")), Name("c")),
			List(Int(1), Int(2), Int(3), Int(4)),
		).At(1),
	)

	requireClean(t, res)
	assert.Equal(t, "1", res.Bindings["a"])
	assert.Equal(t, "[2, 3]", res.Bindings["b"])
	assert.Equal(t, "4", res.Bindings["c"])
}

func TestUnpackErrors(t *testing.T) {
	res := run(t,
		Assign(Tuple(Name("a"), Name("b")), List(Int(1), Int(2), Int(3))).At(1),
		Assign(Tuple(Name("a"), Name("b"), Name("c")), List(Int(1))).At(2),
		Assign(Tuple(Name("a"), Name("b"), Starred(Name("c"))), List(Int(1))).At(3),
	)

	assert.Equal(t, []string{
		"ValueError: too many values to unpack (expected 2)",
		"ValueError: not enough values to unpack (expected 3, got 1)",
		"ValueError: not enough values to unpack (expected at least 2, got 1)",
	}, findings(res))
}

func TestFormattedString(t *testing.T) {
	res := run(t,
		AssignName("n", Int(3)).At(1),
		AssignName("s", FString(Str("n="), FormattedAs(Name("n"), "", Str("03")))).At(2),
		AssignName("r", FString(FormattedAs(Str("q"), "r", nil))).At(3),
	)

	requireClean(t, res)
	assert.Equal(t, "'n=003'", res.Bindings["s"])
	assert.Equal(t, `"'q'"`, res.Bindings["r"])
}

func TestComparisonsAndBoolOps(t *testing.T) {
	res := run(t,
		AssignName("chain", Compare(Int(1), []string{"<", "<"}, Int(2), Int(3))).At(1),
		AssignName("broken", Compare(Int(1), []string{"<", ">"}, Int(2), Int(3))).At(2),
		AssignName("either", BoolOp("or", Int(0), Int(5))).At(3),
		AssignName("both", BoolOp("and", Int(1), Str(""), Int(2))).At(4),
		AssignName("pick", IfExp(Bool(false), Int(1), Int(2))).At(5),
	)

	requireClean(t, res)
	assert.Equal(t, "True", res.Bindings["chain"])
	assert.Equal(t, "False", res.Bindings["broken"])
	assert.Equal(t, "5", res.Bindings["either"])
	assert.Equal(t, "''", res.Bindings["both"])
	assert.Equal(t, "2", res.Bindings["pick"])
}

func TestArgumentBindingErrors(t *testing.T) {
	res := run(t,
		FunctionDef("f", []*Param{P("a"), P("b")}, Return(Name("a"))).At(1),
		ExprStmt(Call(Name("f"), Int(1))).At(2),
		ExprStmt(Call(Name("f"), Int(1), Int(2), Int(3))).At(3),
		ExprStmt(CallKw(Name("f"), []*Node{Int(1)}, Keyword("b", Int(2)), Keyword("c", Int(3)))).At(4),
		ExprStmt(CallKw(Name("f"), []*Node{Int(1)}, Keyword("a", Int(2)))).At(5),
	)

	diag := func(line int, msg string) Diagnostic {
		return Diagnostic{Location: Location{File: "m.py", Line: line}, Severity: SeverityError, Kind: KindTypeError, Message: msg}
	}
	want := []Diagnostic{
		diag(2, "f() missing 1 required positional argument: 'b'"),
		diag(3, "f() takes 2 positional arguments but 3 were given"),
		diag(4, "f() got an unexpected keyword argument 'c'"),
		diag(5, "f() got multiple values for argument 'a'"),
	}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultsVarargsAndKwargs(t *testing.T) {
	res := run(t,
		FunctionDef("g", []*Param{P("a"), PDefault("b", Int(10)), PVar("rest"), PKwOnly("k", Int(0)), PKw("kw")},
			Return(Tuple(Name("a"), Name("b"), Name("rest"), Name("k"), Subscript(Name("kw"), Str("z")))),
		).At(1),
		AssignName("x", CallKw(Name("g"), []*Node{Int(1), Int(2), Int(3)}, Keyword("z", Int(4)))).At(3),
		AssignName("y", CallKw(Name("g"), []*Node{Int(1)}, Keyword("k", Int(7)), Keyword("z", Int(5)))).At(4),
	)

	requireClean(t, res)
	assert.Equal(t, "(1, 2, (3,), 0, 4)", res.Bindings["x"])
	assert.Equal(t, "(1, 10, (), 7, 5)", res.Bindings["y"])
}

func TestLambda(t *testing.T) {
	res := run(t,
		AssignName("inc", Lambda([]*Param{P("v")}, BinOp(Name("v"), "+", Int(1)))).At(1),
		AssignName("x", Call(Name("inc"), Int(41))).At(2),
	)

	requireClean(t, res)
	assert.Equal(t, "42", res.Bindings["x"])
}

func TestMaybeRaiseIsOpaque(t *testing.T) {
	res := run(t,
		Import(As("ext", "")).At(1),
		If(Attribute(Name("ext"), "flag"),
			[]*Node{Raise(Call(Name("ValueError"), Str("v"))).At(3)},
		).At(2),
		AssignName("after", Int(1)).At(4),
	)

	assert.True(t, res.Verdict.Strict)
	assert.Contains(t, findings(res), "OpacityError: ValueError may be raised depending on unknown values")
	assert.Equal(t, "1", res.Bindings["after"])
}

func TestRecursionLimit(t *testing.T) {
	res := run(t,
		FunctionDef("r", nil, Return(Call(Name("r")))).At(1),
		ExprStmt(Call(Name("r"))).At(3),
	)

	assert.Contains(t, findings(res), "LimitError: maximum call depth 128 exceeded")
	assert.False(t, res.Verdict.Strict)
}

func TestAssertStatement(t *testing.T) {
	res := run(t,
		Assert(Cmp(Int(1), "==", Int(2)), Str("math")).At(1),
		Assert(Bool(true), nil).At(2),
	)

	assert.Equal(t, []string{"RaiseError: uncaught AssertionError: math"}, findings(res))
}

func TestDeleteName(t *testing.T) {
	res := run(t,
		AssignName("x", Int(1)).At(1),
		Delete(Name("x")).At(2),
		Delete(Name("x")).At(3),
	)

	assert.Equal(t, []string{"NameError: name 'x' is not defined"}, findings(res))
	assert.Equal(t, 3, res.Diagnostics[0].Location.Line)
}

func TestSyntaxErrors(t *testing.T) {
	res := run(t,
		Break().At(1),
		Return(nil).At(2),
		Nonlocal("q").At(3),
		(&Node{Kind: "With"}).At(4),
		AssignName("after", Int(1)).At(5),
	)

	assert.Equal(t, []string{
		"SyntaxError: 'break' outside loop",
		"SyntaxError: 'return' outside function",
		"SyntaxError: nonlocal declaration not allowed at module level",
		"SyntaxError: unsupported statement With",
	}, findings(res))
	assert.Equal(t, "1", res.Bindings["after"])
}

func TestSideEffectBuiltin(t *testing.T) {
	body := ExprStmt(Call(Name("print"), Str("hi"))).At(1)

	res := run(t, body)
	assert.Equal(t, []string{"SideEffectError: call to print() has side effects"}, findings(res))

	allowed := runWith(t, Options{Policy: Policy{AllowSideEffects: []string{"print"}}}, body)
	requireClean(t, allowed)
}

func TestPanicBecomesInternalError(t *testing.T) {
	loader := LoaderFunc(func(*objects.CallerContext, string) (objects.Value, bool) {
		panic("boom")
	})
	res := Run(NewModule("m", Import(As("x", "")).At(1)), Options{Loader: loader})

	require.True(t, res.Panicked)
	assert.Equal(t, []string{"InternalError: internal error: boom"}, findings(res))
	assert.False(t, res.Verdict.Strict)
}

func TestVerdictCarriesModuleHash(t *testing.T) {
	m := NewModule("m", AssignName("x", Int(1)).At(1))
	v, diags := Analyze(m, Options{})

	assert.Empty(t, diags)
	assert.Equal(t, MustModuleHash(m), v.Hash)
	assert.Equal(t, "m", v.Module)
	assert.Equal(t, "m.py", v.File)
	assert.True(t, v.Strict)
}

func TestAnalysisIsDeterministic(t *testing.T) {
	build := func() *Module {
		return NewModule("m",
			Import(As("ext", "")).At(1),
			AssignName("x", BinOp(Attribute(Name("ext"), "a"), "+", Int(1))).At(2),
			AssignName("y", Name("missing")).At(3),
		)
	}
	first := Run(build(), Options{})
	second := Run(build(), Options{})

	if diff := cmp.Diff(first.Diagnostics, second.Diagnostics); diff != "" {
		t.Errorf("diagnostics differ between runs:\n%s", diff)
	}
	assert.Equal(t, first.Verdict, second.Verdict)
}
