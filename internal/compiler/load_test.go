package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func writePolicyFile(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func requireLoadCode(t *testing.T, err error, code string) *LoadError {
	t.Helper()
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok, "want *LoadError, got %T: %v", err, err)
	assert.Equal(t, code, le.Code, le.Message)
	return le
}

func TestLoadPolicyDir(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "policy.cue", `policy: opacity: "error"`)
	writePolicyFile(t, dir, "stubs.cue", `stub: config: VERSION: 3`)

	p, err := LoadPolicyDir(dir)
	require.NoError(t, err)

	assert.Equal(t, ir.OpacityError, p.Opacity)
	require.Len(t, p.Stubs, 1)
	assert.Equal(t, "config", p.Stubs[0].Name)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, _, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
		requireLoadCode(t, err, ErrCodeNotFound)
	})

	t.Run("file not dir", func(t *testing.T) {
		dir := t.TempDir()
		writePolicyFile(t, dir, "policy.cue", `policy: {}`)
		_, _, err := LoadDir(filepath.Join(dir, "policy.cue"))
		requireLoadCode(t, err, ErrCodeNotFound)
	})

	t.Run("no cue files", func(t *testing.T) {
		dir := t.TempDir()
		writePolicyFile(t, dir, "README.md", "policies")
		_, _, err := LoadDir(dir)
		requireLoadCode(t, err, ErrCodeNoFiles)
	})

	t.Run("conflicting values", func(t *testing.T) {
		dir := t.TempDir()
		writePolicyFile(t, dir, "a.cue", `policy: opacity: "warn"`)
		writePolicyFile(t, dir, "b.cue", `policy: opacity: "error"`)
		_, _, err := LoadDir(dir)
		requireLoadCode(t, err, ErrCodeBuildFailed)
	})
}

func TestLoadPolicyDirCompileError(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "policy.cue", `policy: limits: max_steps: 0`)

	_, err := LoadPolicyDir(dir)
	le := requireLoadCode(t, err, ErrCodeCompile)
	assert.Contains(t, le.Message, "policy.limits.max_steps")
}

func TestCompilePolicySource(t *testing.T) {
	p, err := CompilePolicySource("inline.cue", `
policy: allow_side_effects: ["print"]
stub: ext: flag: true
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"print"}, p.AllowSideEffects)
	assert.Equal(t, ir.DefaultLimits(), p.Limits)

	_, err = CompilePolicySource("inline.cue", `policy: {`)
	requireLoadCode(t, err, ErrCodeBuildFailed)
}

func TestFindCUEFilesSorted(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "b.cue", `x: 1`)
	writePolicyFile(t, dir, "a.cue", `y: 1`)
	writePolicyFile(t, dir, "c.txt", `z`)

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "b.cue")}, files)
}
