package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NewDeduction describes a deduction raised by the disciplinary, advances or finance side.
type NewDeduction struct {
	EmployeeID       string
	Kind             DeductionKind
	Reason           string
	ScheduleType     ScheduleType
	TotalAmount      decimal.Decimal
	InstallmentCount int
	RecurringAmount  decimal.Decimal
	StartYear        int
	StartMonth       int
}

// BuildDeduction validates a new deduction and returns it ACTIVE with its full balance
// outstanding. An uncapped RECURRING deduction has a zero total and zero balance.
func BuildDeduction(in NewDeduction) (Deduction, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return Deduction{}, invalid("employeeId", "is required")
	}
	switch in.Kind {
	case DeductionKindDisciplinary, DeductionKindAdvance, DeductionKindDebt, DeductionKindOther:
	default:
		return Deduction{}, invalid("kind", "must be DISCIPLINARY, ADVANCE, DEBT or OTHER")
	}
	if in.StartMonth < 1 || in.StartMonth > 12 {
		return Deduction{}, invalid("startMonth", "must be between 1 and 12")
	}
	if in.StartYear < 2000 || in.StartYear > 2100 {
		return Deduction{}, invalid("startYear", "is out of range")
	}
	if in.TotalAmount.IsNegative() {
		return Deduction{}, invalid("totalAmount", "must not be negative")
	}
	total := roundMoney(in.TotalAmount)

	d := Deduction{
		EmployeeID:   in.EmployeeID,
		Kind:         in.Kind,
		Reason:       strings.TrimSpace(in.Reason),
		ScheduleType: in.ScheduleType,
		TotalAmount:  total,
		StartYear:    in.StartYear,
		StartMonth:   in.StartMonth,
		Status:       DeductionStatusActive,
	}

	switch in.ScheduleType {
	case ScheduleOneTime:
		if !total.IsPositive() {
			return Deduction{}, invalid("totalAmount", "must be greater than 0")
		}
	case ScheduleInstallments:
		if !total.IsPositive() {
			return Deduction{}, invalid("totalAmount", "must be greater than 0")
		}
		if in.InstallmentCount < 1 {
			return Deduction{}, invalid("installmentCount", "must be at least 1")
		}
		d.InstallmentCount = in.InstallmentCount
	case ScheduleRecurring:
		if !in.RecurringAmount.IsPositive() {
			return Deduction{}, invalid("recurringAmount", "must be greater than 0")
		}
		d.RecurringAmount = roundMoney(in.RecurringAmount)
	default:
		return Deduction{}, invalid("scheduleType", "must be ONE_TIME, INSTALLMENTS or RECURRING")
	}

	d.AmountAlreadyDeducted = decimal.Zero
	d.AmountRemaining = total
	return d, nil
}

// EligibleIn reports whether the deduction starts on or before the period.
func (d Deduction) EligibleIn(p Period) bool {
	return monthIndex(d.StartYear, d.StartMonth) <= monthIndex(p.Year, p.Month)
}

// plannedAmount is what the schedule asks for this period, before the balance cap.
func (d Deduction) plannedAmount() decimal.Decimal {
	switch d.ScheduleType {
	case ScheduleOneTime:
		return minDecimal(d.TotalAmount, d.AmountRemaining)
	case ScheduleInstallments:
		if d.InstallmentCount <= 1 || d.PeriodsApplied >= d.InstallmentCount-1 {
			return d.AmountRemaining
		}
		installment := roundMoney(d.TotalAmount.Div(decimal.NewFromInt(int64(d.InstallmentCount))))
		return minDecimal(installment, d.AmountRemaining)
	case ScheduleRecurring:
		if !d.Capped() {
			return d.RecurringAmount
		}
		return minDecimal(d.RecurringAmount, d.AmountRemaining)
	}
	return decimal.Zero
}

// ApplyDeduction consumes this period's share of d and returns the updated deduction with
// the amount applied. SUSPENDED deductions and deductions not yet started apply 0 and are
// returned unchanged. COMPLETED and CANCELLED deductions, and periods past CALCULATED, are
// rejected.
func ApplyDeduction(d Deduction, period Period) (Deduction, decimal.Decimal, error) {
	if !period.Status.Mutable() {
		return d, decimal.Zero, &StateError{Entity: "period", ID: period.ID, Status: string(period.Status), Action: "apply deductions to"}
	}
	switch d.Status {
	case DeductionStatusSuspended:
		return d, decimal.Zero, nil
	case DeductionStatusCompleted, DeductionStatusCancelled:
		return d, decimal.Zero, &StateError{Entity: "deduction", ID: d.ID, Status: string(d.Status), Action: "apply"}
	case DeductionStatusActive:
	default:
		return d, decimal.Zero, invalid("deduction.status", "unknown status "+string(d.Status))
	}
	if !d.EligibleIn(period) {
		return d, decimal.Zero, nil
	}

	applied := roundMoney(d.plannedAmount())
	if applied.IsNegative() {
		applied = decimal.Zero
	}

	d.PeriodsApplied++
	if d.Capped() {
		d.AmountAlreadyDeducted = d.AmountAlreadyDeducted.Add(applied)
		d.AmountRemaining = d.TotalAmount.Sub(d.AmountAlreadyDeducted)
		if !d.AmountRemaining.IsPositive() {
			d.AmountRemaining = decimal.Zero
			d.Status = DeductionStatusCompleted
			d.CompletedPeriodID = period.ID
		}
	} else {
		d.AmountAlreadyDeducted = d.AmountAlreadyDeducted.Add(applied)
	}
	return d, applied, nil
}

// RevertApplication undoes an earlier ApplyDeduction for the same period. It is only used
// when an open period is recalculated; a deduction completed by that period goes back to
// ACTIVE, but a deduction completed elsewhere is never reactivated.
func RevertApplication(d Deduction, app DeductionApplication) (Deduction, error) {
	if app.DeductionID != d.ID {
		return d, invalid("application.deductionId", "does not match deduction")
	}
	d.AmountAlreadyDeducted = d.AmountAlreadyDeducted.Sub(app.Amount)
	if d.AmountAlreadyDeducted.IsNegative() {
		d.AmountAlreadyDeducted = decimal.Zero
	}
	if d.Capped() {
		d.AmountRemaining = d.TotalAmount.Sub(d.AmountAlreadyDeducted)
	}
	if d.PeriodsApplied > 0 {
		d.PeriodsApplied--
	}
	if app.Completed && d.Status == DeductionStatusCompleted && d.CompletedPeriodID == app.PeriodID {
		d.Status = DeductionStatusActive
		d.CompletedPeriodID = ""
	}
	return d, nil
}

// Suspend pauses an ACTIVE deduction. Its balance is kept for a later Resume.
func (d Deduction) Suspend() (Deduction, error) {
	if d.Status != DeductionStatusActive {
		return d, &StateError{Entity: "deduction", ID: d.ID, Status: string(d.Status), Action: "suspend"}
	}
	d.Status = DeductionStatusSuspended
	return d, nil
}

func (d Deduction) Resume() (Deduction, error) {
	if d.Status != DeductionStatusSuspended {
		return d, &StateError{Entity: "deduction", ID: d.ID, Status: string(d.Status), Action: "resume"}
	}
	d.Status = DeductionStatusActive
	return d, nil
}

// Cancel stops an ACTIVE or SUSPENDED deduction for good. Amounts already withheld stay.
func (d Deduction) Cancel() (Deduction, error) {
	if d.Status != DeductionStatusActive && d.Status != DeductionStatusSuspended {
		return d, &StateError{Entity: "deduction", ID: d.ID, Status: string(d.Status), Action: "cancel"}
	}
	d.Status = DeductionStatusCancelled
	return d, nil
}
