package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
)

type CalculationInput struct {
	Period     Period
	Employee   EmployeePayData
	Input      PayInput
	Rates      StatutoryRates
	Tax        TaxSchedule
	Deductions []Deduction
	Currency   string
}

type CalculationResult struct {
	Payslip      Payslip
	Deductions   []Deduction
	Applications []DeductionApplication
}

// CalculatePayslip runs gross, statutory, tax and the deduction ledger for one employee
// in one period. It is pure: the caller persists the payslip, the updated deductions and
// the applications together.
func CalculatePayslip(in CalculationInput) (CalculationResult, error) {
	if !in.Period.Status.Mutable() {
		return CalculationResult{}, &StateError{Entity: "period", ID: in.Period.ID, Status: string(in.Period.Status), Action: "calculate"}
	}
	var warnings []string

	days := decimal.Zero
	if in.Employee.PayMode == PayModeDaily {
		if in.Employee.DaysWorked.Valid {
			days = in.Employee.DaysWorked.Decimal
		} else {
			warnings = append(warnings, WarningMissingAttendance)
		}
		if days.GreaterThan(decimal.NewFromInt(int64(in.Period.DaysInMonth()))) {
			return CalculationResult{}, invalid("daysWorked", "exceeds the number of days in "+in.Period.Label())
		}
	}

	bonus := in.Input.Bonus
	arrears := in.Input.Arrears
	if arrears.IsNegative() {
		return CalculationResult{}, invalid("arrears", "must not be negative")
	}

	gross, err := ComputeGross(GrossInput{
		PayMode:    in.Employee.PayMode,
		BaseSalary: in.Employee.BaseSalary,
		DailyRate:  in.Employee.DailyRate,
		DaysWorked: days,
		Bonus:      bonus,
	})
	if err != nil {
		return CalculationResult{}, err
	}
	if gross.IsZero() {
		warnings = append(warnings, WarningZeroGross)
	}

	statutory, err := ComputeStatutory(gross, in.Rates)
	if err != nil {
		return CalculationResult{}, err
	}
	if len(in.Tax.Brackets) == 0 {
		return CalculationResult{}, &ConfigurationError{Key: "tax_brackets", Reason: "no tax schedule resolved"}
	}
	taxable := gross.Sub(statutory.Total())
	tax := ComputeProgressiveTax(taxable, in.Tax.Brackets)
	if in.Tax.Fallback {
		warnings = append(warnings, WarningTaxFallback)
	}

	deductions := make([]Deduction, len(in.Deductions))
	copy(deductions, in.Deductions)
	sort.SliceStable(deductions, func(i, j int) bool {
		if !deductions[i].CreatedAt.Equal(deductions[j].CreatedAt) {
			return deductions[i].CreatedAt.Before(deductions[j].CreatedAt)
		}
		return deductions[i].ID < deductions[j].ID
	})

	var (
		disciplinary = decimal.Zero
		advance      = decimal.Zero
		other        = decimal.Zero
		updated      []Deduction
		applications []DeductionApplication
	)
	for _, d := range deductions {
		if d.EmployeeID != in.Employee.EmployeeID || d.Status != DeductionStatusActive {
			continue
		}
		next, applied, err := ApplyDeduction(d, in.Period)
		if err != nil {
			return CalculationResult{}, err
		}
		if next.PeriodsApplied == d.PeriodsApplied {
			continue
		}
		updated = append(updated, next)
		applications = append(applications, DeductionApplication{
			DeductionID: d.ID,
			PeriodID:    in.Period.ID,
			EmployeeID:  d.EmployeeID,
			Kind:        d.Kind,
			Amount:      applied,
			Completed:   next.Status == DeductionStatusCompleted,
		})
		switch d.Kind {
		case DeductionKindDisciplinary:
			disciplinary = disciplinary.Add(applied)
		case DeductionKindAdvance:
			advance = advance.Add(applied)
		default:
			other = other.Add(applied)
		}
	}

	net := gross.Sub(statutory.Total()).Sub(tax).Sub(disciplinary).Sub(advance).Sub(other)
	if net.IsNegative() {
		warnings = append(warnings, WarningNegativeNet)
	}

	payslip := Payslip{
		PeriodID:               in.Period.ID,
		EmployeeID:             in.Employee.EmployeeID,
		Matricule:              in.Employee.Matricule,
		EmployeeName:           in.Employee.Name,
		Currency:               in.Currency,
		PayMode:                in.Employee.PayMode,
		BaseSalary:             in.Employee.BaseSalary,
		DailyRate:              in.Employee.DailyRate,
		DaysWorked:             days,
		Bonus:                  roundMoney(bonus),
		Arrears:                roundMoney(arrears),
		GrossPay:               gross,
		PensionDeduction:       statutory.Pension,
		UnemploymentDeduction:  statutory.Unemployment,
		TrainingDeduction:      statutory.Training,
		StatutoryTotal:         statutory.Total(),
		TaxableBase:            taxable,
		Tax:                    tax,
		DisciplinaryDeductions: disciplinary,
		AdvanceRepayment:       advance,
		OtherDeductions:        other,
		NetPay:                 net,
		AmountPayable:          net.Add(roundMoney(arrears)),
		TaxFallback:            in.Tax.Fallback,
		Warnings:               warnings,
	}
	return CalculationResult{Payslip: payslip, Deductions: updated, Applications: applications}, nil
}
