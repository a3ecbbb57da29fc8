package engine

import (
	"errors"
	"fmt"
)

// AnalysisError describes a module whose analysis did not complete normally.
// The module still gets a verdict; the error says why it may be incomplete.
type AnalysisError struct {
	// Code identifies the error category.
	Code AnalysisErrorCode

	// Message is a human-readable description.
	Message string

	// Module is the module name, or the input path when decoding failed.
	Module string

	// Details contains additional context.
	Details map[string]string
}

// AnalysisErrorCode categorizes analysis errors.
type AnalysisErrorCode string

const (
	// ErrCodeStepBudgetExceeded indicates the module ran out of evaluation steps.
	ErrCodeStepBudgetExceeded AnalysisErrorCode = "STEP_BUDGET_EXCEEDED"

	// ErrCodePanic indicates the analyzer hit an internal error.
	ErrCodePanic AnalysisErrorCode = "PANIC"

	// ErrCodeDecodeFailed indicates the syntax tree could not be decoded.
	ErrCodeDecodeFailed AnalysisErrorCode = "DECODE_FAILED"
)

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("%s: %s (module=%s)", e.Code, e.Message, e.Module)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBudgetError returns true if the error is a step budget error.
// Matches both AnalysisError with ErrCodeStepBudgetExceeded and
// StepsExceededError. Uses errors.As to handle wrapped errors.
func IsBudgetError(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeStepBudgetExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsPanicError returns true if the analyzer panicked.
func IsPanicError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Code == ErrCodePanic
}

// IsDecodeError returns true if the input could not be decoded.
func IsDecodeError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Code == ErrCodeDecodeFailed
}

// StepsExceededError reports a module that used its whole step budget.
type StepsExceededError struct {
	Module string
	Steps  int
	Limit  int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("module %s exceeded step budget: %d steps (limit %d)", e.Module, e.Steps, e.Limit)
}

// NewBudgetError creates an AnalysisError for an exhausted step budget,
// wrapping the StepsExceededError detail.
func NewBudgetError(module string, steps, limit int) *AnalysisError {
	return &AnalysisError{
		Code:    ErrCodeStepBudgetExceeded,
		Message: (&StepsExceededError{Module: module, Steps: steps, Limit: limit}).Error(),
		Module:  module,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", limit),
		},
	}
}

// NewPanicError creates an AnalysisError for an analyzer panic.
func NewPanicError(module, message string) *AnalysisError {
	return &AnalysisError{Code: ErrCodePanic, Message: message, Module: module}
}

// NewDecodeError creates an AnalysisError for an undecodable input.
func NewDecodeError(path string, err error) *AnalysisError {
	return &AnalysisError{Code: ErrCodeDecodeFailed, Message: err.Error(), Module: path}
}
