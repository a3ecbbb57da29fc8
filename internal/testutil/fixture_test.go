package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func TestWriteModule_RoundTripsThroughDecoder(t *testing.T) {
	m := ir.NewModule("pkg", ir.AssignName("x", ir.Int(1)).At(1))

	path := WriteModule(t, t.TempDir(), m)

	got, err := ir.DecodeModuleFile(path)
	require.NoError(t, err)
	assert.Equal(t, ir.MustModuleHash(m), ir.MustModuleHash(got))
}
