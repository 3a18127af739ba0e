package payroll

import "strings"

var periodOrder = map[PeriodStatus]int{
	PeriodStatusDraft:      0,
	PeriodStatusCalculated: 1,
	PeriodStatusValidated:  2,
	PeriodStatusLocked:     3,
}

// Mutable reports whether payslips and deduction applications of the period may still change.
func (s PeriodStatus) Mutable() bool {
	return s == PeriodStatusDraft || s == PeriodStatusCalculated
}

func (s PeriodStatus) Valid() bool {
	_, ok := periodOrder[s]
	return ok
}

func ParsePeriodStatus(raw string) (PeriodStatus, error) {
	s := PeriodStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", invalid("status", "must be DRAFT, CALCULATED, VALIDATED or LOCKED")
	}
	return s, nil
}

// CanTransition allows forward, single-step moves. CALCULATED to CALCULATED is the
// explicit recalculation of an open period.
func CanTransition(from, to PeriodStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == PeriodStatusCalculated && to == PeriodStatusCalculated {
		return true
	}
	return periodOrder[to] == periodOrder[from]+1
}

func checkTransition(p Period, to PeriodStatus, action string) error {
	if !CanTransition(p.Status, to) {
		return &StateError{Entity: "period", ID: p.ID, Status: string(p.Status), Action: action}
	}
	return nil
}

func validatePeriodMonth(year, month int) error {
	if month < 1 || month > 12 {
		return invalid("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return invalid("year", "is out of range")
	}
	return nil
}
