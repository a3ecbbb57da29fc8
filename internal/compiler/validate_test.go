package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func TestValidateDefaultPolicy(t *testing.T) {
	p := ir.DefaultPolicy()
	assert.Empty(t, Validate(&p))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	p := &ir.Policy{
		Opacity:          "maybe",
		Limits:           ir.Limits{MaxSteps: -1},
		AllowSideEffects: []string{"print", " "},
		Stubs: []ir.StubModule{
			{Name: "m", Members: map[string]ir.StubMember{
				"bad_int":   {Kind: ir.StubConst, Type: ir.ConstInt, Literal: "12x"},
				"bad_type":  {Kind: ir.StubConst, Type: "complex", Literal: "1j"},
				"dangling":  {Kind: ir.StubAlias, Target: "nowhere.x"},
				"malformed": {Kind: ir.StubAlias, Target: "x."},
				"weird":     {Kind: "macro"},
			}},
			{Name: "m"},
			{Name: ""},
		},
	}

	errs := Validate(p)

	var codes []string
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{
		ErrInvalidOpacity,
		ErrInvalidLimit,
		ErrInvalidAllowedName,
		ErrInvalidConst,
		ErrInvalidConst,
		ErrInvalidAlias,
		ErrInvalidAlias,
		ErrInvalidStubKind,
		ErrInvalidStubName,
		ErrInvalidStubName,
	}, codes)
	assert.Equal(t, "stub.m.bad_int", errs[3].Field)
	assert.Equal(t, "[E105] stub.m.dangling: alias target \"nowhere.x\" names an unknown stub module", errs[5].Error())
}

func TestValidateNestedMembers(t *testing.T) {
	p := &ir.Policy{Stubs: []ir.StubModule{{Name: "m", Members: map[string]ir.StubMember{
		"C": {Kind: ir.StubClass, Members: map[string]ir.StubMember{
			"x": {Kind: ir.StubConst, Type: ir.ConstBool, Literal: "yes"},
		}},
		"f": {Kind: ir.StubFunction, Returns: &ir.StubMember{Kind: ir.StubAlias, Target: "m.C"}},
		"g": {Kind: ir.StubFunction, Returns: &ir.StubMember{Kind: ir.StubAlias, Target: "m.missing"}},
	}}}}

	errs := Validate(p)

	require.Len(t, errs, 2)
	assert.Equal(t, "stub.m.C.x", errs[0].Field)
	assert.Equal(t, ErrInvalidConst, errs[0].Code)
	assert.Equal(t, "stub.m.g.returns", errs[1].Field)
	assert.Equal(t, ErrInvalidAlias, errs[1].Code)
}

func TestValidateAliasToModule(t *testing.T) {
	p := &ir.Policy{Stubs: []ir.StubModule{
		{Name: "a.b"},
		{Name: "c", Members: map[string]ir.StubMember{"sub": {Kind: ir.StubAlias, Target: "a.b"}}},
	}}
	assert.Empty(t, Validate(p))
}
