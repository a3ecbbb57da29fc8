package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidenSettles(t *testing.T) {
	ctx := newTestContext(t)
	m := ctx.Module
	g := m.Globals
	g.Set("a", NewInt(0))
	g.Set("kept", NewInt(7))
	xs := NewList(ints(1, 2))
	g.Set("xs", xs)

	body := func() {
		m.Assign(g, "a", NewInt(0))
		CallMethod(ctx, xs, "append", NewInt(3))
		scratch := NewNamespace()
		m.Assign(scratch, "tmp", NewInt(1))
		fresh := NewList(nil)
		CallMethod(ctx, fresh, "append", NewInt(1))
	}

	require.True(t, m.Widen(body))
	a, _ := g.Get("a")
	assert.True(t, IsUnknown(a))
	kept, _ := g.Get("kept")
	requireInt(t, 7, kept)
	assert.Equal(t, "[...]", Describe(xs))

	assert.False(t, m.Widen(body), "a second run can reach nothing new")
	assert.False(t, m.Speculating())
}
