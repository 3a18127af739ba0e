package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"guardhr/internal/domain/auth"
	"guardhr/internal/domain/core"
	"guardhr/internal/domain/payroll"
	"guardhr/internal/domain/roster"
	"guardhr/internal/transport/http/api"
)

var notFound = []error{
	payroll.ErrPeriodNotFound,
	payroll.ErrPayslipNotFound,
	payroll.ErrDeductionNotFound,
	payroll.ErrEmployeeNotFound,
	core.ErrEmployeeNotFound,
	roster.ErrAssignmentNotFound,
	roster.ErrEmployeeNotFound,
	auth.ErrOperatorNotFound,
}

var conflicts = []error{
	payroll.ErrPeriodExists,
	payroll.ErrLaterPeriodCalculated,
	payroll.ErrStaleCalculation,
	core.ErrMatriculeExists,
	roster.ErrAssignmentConflict,
	roster.ErrAssignmentEnded,
	roster.ErrEmployeeInactive,
	auth.ErrUsernameTaken,
}

// WriteError maps a domain error onto the HTTP error taxonomy. Unknown errors are logged
// and answered with 500 under the given fallback code.
func WriteError(w http.ResponseWriter, err error, fallbackCode, requestID string) {
	var (
		payrollInvalid *payroll.ValidationError
		coreInvalid    *core.ValidationError
		rosterInvalid  *roster.ValidationError
		stateErr       *payroll.StateError
		configErr      *payroll.ConfigurationError
	)
	switch {
	case errors.As(err, &payrollInvalid):
		FailValidation(w, requestID, []ValidationIssue{{Field: payrollInvalid.Field, Reason: payrollInvalid.Reason}})
	case errors.As(err, &coreInvalid):
		FailValidation(w, requestID, []ValidationIssue{{Field: coreInvalid.Field, Reason: coreInvalid.Reason}})
	case errors.As(err, &rosterInvalid):
		FailValidation(w, requestID, []ValidationIssue{{Field: rosterInvalid.Field, Reason: rosterInvalid.Reason}})
	case errors.Is(err, core.ErrImportEmpty):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	case errors.As(err, &stateErr):
		api.FailWithDetails(w, http.StatusConflict, "invalid_state", err.Error(), map[string]string{
			"entity": stateErr.Entity,
			"status": stateErr.Status,
		}, requestID)
	case errors.As(err, &configErr):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "configuration_error", err.Error(), map[string]string{
			"key": configErr.Key,
		}, requestID)
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
	case matchesAny(err, notFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case matchesAny(err, conflicts):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	default:
		slog.Error("request failed", "code", fallbackCode, "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, fallbackCode, "internal error", requestID)
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
