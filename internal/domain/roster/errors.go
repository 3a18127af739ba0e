package roster

import (
	"errors"
	"fmt"
)

var (
	ErrAssignmentNotFound = errors.New("roster assignment not found")
	ErrAssignmentConflict = errors.New("roster assignment overlaps an existing assignment")
	ErrAssignmentEnded    = errors.New("roster assignment already ended")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmployeeInactive   = errors.New("employee is not active")
)

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

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
