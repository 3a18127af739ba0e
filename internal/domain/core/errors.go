package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrMatriculeExists  = errors.New("an employee with this matricule already exists")
	ErrImportEmpty      = errors.New("attendance sheet has no data rows")
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
