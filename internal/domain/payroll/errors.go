package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrPeriodNotFound    = errors.New("payroll period not found")
	ErrPeriodExists      = errors.New("a payroll period already exists for this month")
	ErrPayslipNotFound   = errors.New("payslip not found")
	ErrDeductionNotFound = errors.New("deduction not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrStatusChanged     = errors.New("status changed concurrently")
	ErrStaleCalculation  = errors.New("pay inputs changed after calculation; recalculate the period first")
)

// ValidationError is malformed input to a calculator or operation. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError is an operation attempted against a period or deduction whose current
// status does not allow it. Status names the blocking state.
type StateError struct {
	Entity string
	ID     string
	Status string
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s: status is %s", e.Action, e.Entity, e.ID, e.Status)
}

// ConfigurationError means required tax or statutory configuration is missing or unusable.
// The affected calculation is aborted rather than run with substitute values.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payroll configuration %s: %s", e.Key, e.Reason)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsState(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
