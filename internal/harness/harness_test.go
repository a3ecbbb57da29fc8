package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, file string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", file))
	require.NoError(t, err)
	return s
}

func TestRun_ScenarioFixtures(t *testing.T) {
	files := []string{
		"clean_arithmetic.yaml",
		"side_effect_print.yaml",
		"side_effect_allowed.yaml",
		"opacity_error.yaml",
		"missing_attribute.yaml",
		"stub_import.yaml",
	}
	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, file))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	files := []string{
		"clean_arithmetic.yaml",
		"side_effect_print.yaml",
		"missing_attribute.yaml",
		"stub_import.yaml",
	}
	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, file))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "missing_attribute.yaml")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(1), second.Seq)
}

func TestRun_FailedExpectationsAreReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong-expectations
description: Every expectation here is wrong
module:
  name: m
  body:
    - kind: Assign
      line: 1
      targets: [{kind: Name, id: x}]
      value: {kind: Name, id: nowhere}
expect:
  strict: true
  diagnostics:
    - kind: TypeError
  bindings:
    x: "1"
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: strict")
	assert.Contains(t, result.Errors[1], "Assertion failed: diagnostics")
	assert.Contains(t, result.Errors[1], "NameError")
	assert.Contains(t, result.Errors[2], "Assertion failed: binding")
	assert.Contains(t, result.Errors[2], "x unbound")
}

func TestRun_InvalidPolicy(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad-policy
description: Policy source that does not compile
module: {name: m, body: []}
policy: |
  policy: opacity: "loud"
expect: {strict: true}
`))
	require.NoError(t, err)

	_, err = Run(s)
	assert.ErrorContains(t, err, "failed to compile policy")
}

func TestRun_PolicyValidationFails(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: dangling-alias
description: An alias to a module the policy never declares
module: {name: m, body: []}
policy: |
  stub: cfg: V: {kind: "alias", target: "nowhere.X"}
expect: {strict: true}
`))
	require.NoError(t, err)

	_, err = Run(s)
	assert.ErrorContains(t, err, "invalid policy")
}
