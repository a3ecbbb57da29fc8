package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/engine"
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/testutil"
)

func strictTree(name string) *ir.Module {
	return ir.NewModule(name, ir.AssignName("x", ir.BinOp(ir.Int(1), "+", ir.Int(2))).At(1))
}

func failingTree(name string) *ir.Module {
	return ir.NewModule(name, ir.AssignName("y", ir.Name("missing")).At(1))
}

func printTree(name string) *ir.Module {
	return ir.NewModule(name, ir.ExprStmt(ir.Call(ir.Name("print"), ir.Str("hi"))).At(1))
}

func importTree(name string) *ir.Module {
	return ir.NewModule(name, ir.Import(ir.As("ext", "")).At(1))
}

// analyzeResponse mirrors CLIResponse with a typed payload.
type analyzeResponse struct {
	Status string        `json:"status"`
	Data   AnalyzeResult `json:"data"`
	Error  *CLIError     `json:"error"`
	RunID  string        `json:"run_id"`
}

func decodeAnalyze(t *testing.T, out string) analyzeResponse {
	t.Helper()
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestAnalyzeStrictModules(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, strictTree("a"))
	testutil.WriteModule(t, dir, strictTree("b"))

	out, _, err := execute(t, "analyze", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+filepath.ToSlash(filepath.Join(dir, "a.json"))+" [a] strict")
	assert.Contains(t, out, "Summary: 2/2 module(s) strict")
}

func TestAnalyzeNotStrictExitsOne(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, strictTree("a"))
	testutil.WriteModule(t, dir, failingTree("b"))

	out, _, err := execute(t, "analyze", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 module(s) not strict")

	assert.Contains(t, out, "[b] not strict (1 error, 0 warnings)")
	assert.Contains(t, out, "b.py:1:0: error: NameError: name 'missing' is not defined")
	assert.Contains(t, out, "Summary: 1/2 module(s) strict")
}

func TestAnalyzeJSON(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, failingTree("b"))
	testutil.WriteModule(t, dir, strictTree("a"))

	out, _, err := execute(t, "analyze", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeAnalyze(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotStrict, resp.Error.Code)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, resp.RunID, resp.Data.RunID)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Strict)

	require.Len(t, resp.Data.Modules, 2)
	a, b := resp.Data.Modules[0], resp.Data.Modules[1]
	assert.Equal(t, "a", a.Module)
	assert.True(t, a.Strict)
	assert.Empty(t, a.Diagnostics)
	assert.Equal(t, "b", b.Module)
	assert.False(t, b.Strict)
	assert.Equal(t, map[string]int{"NameError": 1}, b.Counts)
	require.Len(t, b.Diagnostics, 1)
	assert.Equal(t, ir.KindNameError, b.Diagnostics[0].Kind)
}

func TestAnalyzeFixedRunID(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteModule(t, dir, strictTree("a"))

	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	opts := &AnalyzeOptions{
		RootOptions: &RootOptions{Format: "json"},
		runIDs:      engine.NewFixedGenerator("run-fixed"),
	}

	require.NoError(t, runAnalyze(context.Background(), opts, []string{path}, cmd))
	resp := decodeAnalyze(t, buf.String())
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-fixed", resp.RunID)
	assert.Nil(t, resp.Error)
}

func TestAnalyzeDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "broken.json"), "{not json")

	out, _, err := execute(t, "analyze", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "not strict")
	assert.Contains(t, out, "SyntaxError")
}

func TestAnalyzeNoInputs(t *testing.T) {
	out, _, err := execute(t, "analyze", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoInputs)
}

func TestAnalyzeMissingPath(t *testing.T) {
	out, _, err := execute(t, "analyze", "/nonexistent/trees")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "input not found")
}

func TestAnalyzeOpacityOverride(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, importTree("client"))

	out, _, err := execute(t, "analyze", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "[client] strict (0 errors, 1 warning)")
	assert.Contains(t, out, "warning: OpacityError")

	out, _, err = execute(t, "analyze", dir, "--opacity", "error")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "error: OpacityError")
}

func TestAnalyzeInvalidOpacity(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, strictTree("a"))

	out, _, err := execute(t, "analyze", dir, "--opacity", "loud")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E101")
}

func TestAnalyzePolicyDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, printTree("greet"))
	policyDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(policyDir, "policy.cue"), `policy: allow_side_effects: ["print"]`)

	out, _, err := execute(t, "analyze", dir)
	require.Error(t, err)
	assert.Contains(t, out, "SideEffectError: call to print() has side effects")

	out, _, err = execute(t, "analyze", dir, "--policy", policyDir)
	require.NoError(t, err)
	assert.Contains(t, out, "[greet] strict")
}

func TestAnalyzeMissingPolicyDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, strictTree("a"))

	out, _, err := execute(t, "analyze", dir, "--policy", "/nonexistent/policy")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestAnalyzeDatabaseCache(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, strictTree("a"))
	db := filepath.Join(t.TempDir(), "strict.db")

	out, _, err := execute(t, "analyze", dir, "--db", db)
	require.NoError(t, err)
	assert.NotContains(t, out, "(cached)")

	out, _, err = execute(t, "analyze", dir, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "[a] strict (cached)")

	out, _, err = execute(t, "analyze", dir, "--db", db, "--force")
	require.NoError(t, err)
	assert.NotContains(t, out, "(cached)")
}

func TestAnalyzeVerboseLogsToStderr(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, strictTree("a"))

	out, stderr, err := execute(t, "analyze", dir, "--format", "json", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Analyzing 1 module(s)")

	resp := decodeAnalyze(t, out)
	assert.Equal(t, "ok", resp.Status)
}

func TestCountSuffix(t *testing.T) {
	warn := ir.Diagnostic{Severity: ir.SeverityWarning}
	errd := ir.Diagnostic{Severity: ir.SeverityError}

	assert.Equal(t, "", countSuffix(nil))
	assert.Equal(t, " (1 error, 0 warnings)", countSuffix([]ir.Diagnostic{errd}))
	assert.Equal(t, " (2 errors, 1 warning)", countSuffix([]ir.Diagnostic{errd, warn, errd}))
}
