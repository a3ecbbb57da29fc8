package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisError_Error(t *testing.T) {
	err := NewPanicError("pkg.mod", "boom")
	assert.Equal(t, "PANIC: boom (module=pkg.mod)", err.Error())

	bare := &AnalysisError{Code: ErrCodeDecodeFailed, Message: "bad input"}
	assert.Equal(t, "DECODE_FAILED: bad input", bare.Error())
}

func TestBudgetError(t *testing.T) {
	err := NewBudgetError("m", 51, 50)

	assert.True(t, IsBudgetError(err))
	assert.False(t, IsPanicError(err))
	assert.Equal(t, "STEP_BUDGET_EXCEEDED: module m exceeded step budget: 51 steps (limit 50) (module=m)", err.Error())
	assert.Equal(t, map[string]string{"steps": "51", "max_steps": "50"}, err.Details)
}

func TestIsBudgetError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("analyzing: %w", NewBudgetError("m", 10, 5))
	assert.True(t, IsBudgetError(wrapped))

	steps := fmt.Errorf("inner: %w", &StepsExceededError{Module: "m", Steps: 3, Limit: 2})
	assert.True(t, IsBudgetError(steps))

	assert.False(t, IsBudgetError(errors.New("other")))
	assert.False(t, IsBudgetError(nil))
}

func TestDecodeError(t *testing.T) {
	err := NewDecodeError("x.yaml", errors.New("invalid YAML"))
	assert.True(t, IsDecodeError(err))
	assert.Equal(t, "x.yaml", err.Module)
}
