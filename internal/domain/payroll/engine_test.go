package payroll

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func referenceBrackets() []TaxBracket {
	return []TaxBracket{
		{Position: 0, Min: dec("0"), Max: decimal.NewNullDecimal(dec("72000")), Rate: dec("0")},
		{Position: 1, Min: dec("72000"), Max: decimal.NewNullDecimal(dec("144000")), Rate: dec("0.03")},
		{Position: 2, Min: dec("144000"), Max: decimal.NewNullDecimal(dec("288000")), Rate: dec("0.05")},
		{Position: 3, Min: dec("288000"), Rate: dec("0.10")},
	}
}

func defaultRates() StatutoryRates {
	return StatutoryRates{PensionRate: dec("0.05"), UnemploymentRate: dec("0.015"), TrainingRate: dec("0.005")}
}

func openPeriod(id string, year, month int) Period {
	return Period{ID: id, Year: year, Month: month, Status: PeriodStatusDraft}
}

func TestComputeGross(t *testing.T) {
	monthly, err := ComputeGross(GrossInput{PayMode: PayModeMonthly, BaseSalary: dec("1000"), Bonus: dec("50")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !monthly.Equal(dec("1050")) {
		t.Fatalf("expected 1050, got %s", monthly)
	}

	daily, err := ComputeGross(GrossInput{PayMode: PayModeDaily, DailyRate: dec("2500"), DaysWorked: dec("22.5"), Bonus: dec("100")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !daily.Equal(dec("56350")) {
		t.Fatalf("expected 56350, got %s", daily)
	}

	if _, err := ComputeGross(GrossInput{PayMode: PayModeDaily, DailyRate: dec("10"), DaysWorked: dec("-1")}); !IsValidation(err) {
		t.Fatalf("expected validation error for negative days, got %v", err)
	}
	if _, err := ComputeGross(GrossInput{PayMode: "WEEKLY"}); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown pay mode, got %v", err)
	}
}

func TestComputeStatutoryAdditive(t *testing.T) {
	gross := dec("200000")
	breakdown, err := ComputeStatutory(gross, defaultRates())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := gross.Mul(defaultRates().Total())
	if !breakdown.Total().Equal(want) {
		t.Fatalf("expected %s, got %s", want, breakdown.Total())
	}
	if !breakdown.Pension.Equal(dec("10000")) {
		t.Fatalf("expected pension 10000, got %s", breakdown.Pension)
	}
}

func TestComputeStatutoryRejectsBadRates(t *testing.T) {
	rates := defaultRates()
	rates.PensionRate = dec("-0.01")
	if _, err := ComputeStatutory(dec("100"), rates); !IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProgressiveTaxExample(t *testing.T) {
	tax := ComputeProgressiveTax(dec("100000"), referenceBrackets())
	if !tax.Equal(dec("840")) {
		t.Fatalf("expected 840, got %s", tax)
	}
}

func TestProgressiveTaxAcrossBrackets(t *testing.T) {
	// 72000*0.03 + 144000*0.05 + 12000*0.10
	tax := ComputeProgressiveTax(dec("300000"), referenceBrackets())
	if !tax.Equal(dec("10560")) {
		t.Fatalf("expected 10560, got %s", tax)
	}
	if !ComputeProgressiveTax(dec("-5"), referenceBrackets()).IsZero() {
		t.Fatal("expected zero tax for a negative base")
	}
}

func TestProgressiveTaxMonotonic(t *testing.T) {
	brackets := referenceBrackets()
	prev := decimal.Zero
	for base := int64(0); base <= 500000; base += 7919 {
		tax := ComputeProgressiveTax(decimal.NewFromInt(base), brackets)
		if tax.LessThan(prev) {
			t.Fatalf("tax decreased at base %d: %s < %s", base, tax, prev)
		}
		prev = tax
	}
}

func TestValidateBrackets(t *testing.T) {
	if err := ValidateBrackets(referenceBrackets()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gap := referenceBrackets()
	gap[2].Min = dec("150000")
	if err := ValidateBrackets(gap); !IsValidation(err) {
		t.Fatalf("expected validation error for gap, got %v", err)
	}

	open := referenceBrackets()
	open[1].Max = decimal.NullDecimal{}
	if err := ValidateBrackets(open); !IsValidation(err) {
		t.Fatalf("expected validation error for unbounded middle bracket, got %v", err)
	}

	offset := referenceBrackets()
	offset[0].Min = dec("10")
	if err := ValidateBrackets(offset); !IsValidation(err) {
		t.Fatalf("expected validation error for non-zero start, got %v", err)
	}
}

func TestResolveTaxSchedule(t *testing.T) {
	schedule, err := ResolveTaxSchedule(nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !schedule.Fallback || len(schedule.Brackets) != 3 {
		t.Fatalf("expected 3-tier fallback, got %+v", schedule)
	}
	if _, err := ResolveTaxSchedule(nil, true); !IsConfiguration(err) {
		t.Fatalf("expected configuration error in strict mode, got %v", err)
	}
	configured, err := ResolveTaxSchedule(referenceBrackets(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if configured.Fallback {
		t.Fatal("expected configured schedule")
	}
}

func TestInstallmentsAmortizeExactly(t *testing.T) {
	d, err := BuildDeduction(NewDeduction{
		EmployeeID: "emp-1", Kind: DeductionKindAdvance, ScheduleType: ScheduleInstallments,
		TotalAmount: dec("300"), InstallmentCount: 3, StartYear: 2024, StartMonth: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.ID = "ded-1"

	total := decimal.Zero
	for month := 1; month <= 3; month++ {
		var applied decimal.Decimal
		d, applied, err = ApplyDeduction(d, openPeriod("p", 2024, month))
		if err != nil {
			t.Fatalf("month %d: unexpected error: %v", month, err)
		}
		if !applied.Equal(dec("100")) {
			t.Fatalf("month %d: expected 100, got %s", month, applied)
		}
		if !d.Balanced() {
			t.Fatalf("month %d: balance invariant broken: %+v", month, d)
		}
		total = total.Add(applied)
	}
	if d.Status != DeductionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", d.Status)
	}
	if !d.AmountRemaining.IsZero() || !total.Equal(dec("300")) {
		t.Fatalf("expected remaining 0 and total 300, got %s and %s", d.AmountRemaining, total)
	}

	if _, _, err := ApplyDeduction(d, openPeriod("p4", 2024, 4)); !IsState(err) {
		t.Fatalf("expected state error applying a completed deduction, got %v", err)
	}
}

func TestInstallmentsFinalAbsorbsRounding(t *testing.T) {
	d, err := BuildDeduction(NewDeduction{
		EmployeeID: "emp-1", Kind: DeductionKindAdvance, ScheduleType: ScheduleInstallments,
		TotalAmount: dec("100"), InstallmentCount: 3, StartYear: 2024, StartMonth: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"33.33", "33.33", "33.34"}
	for i, expected := range want {
		var applied decimal.Decimal
		d, applied, err = ApplyDeduction(d, openPeriod("p", 2024, i+1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !applied.Equal(dec(expected)) {
			t.Fatalf("installment %d: expected %s, got %s", i+1, expected, applied)
		}
	}
	if d.Status != DeductionStatusCompleted || !d.AmountAlreadyDeducted.Equal(dec("100")) {
		t.Fatalf("expected completed with 100 deducted, got %s %s", d.Status, d.AmountAlreadyDeducted)
	}
}

func TestSuspendedDeductionIsSkipped(t *testing.T) {
	d, err := BuildDeduction(NewDeduction{
		EmployeeID: "emp-1", Kind: DeductionKindDisciplinary, ScheduleType: ScheduleOneTime,
		TotalAmount: dec("50"), StartYear: 2024, StartMonth: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, err = d.Suspend()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next, applied, err := ApplyDeduction(d, openPeriod("p", 2024, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied.IsZero() {
		t.Fatalf("expected 0 applied, got %s", applied)
	}
	if !next.AmountRemaining.Equal(dec("50")) || next.Status != DeductionStatusSuspended {
		t.Fatalf("expected untouched suspended deduction, got %+v", next)
	}

	resumed, err := next.Resume()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resumed.Status != DeductionStatusActive {
		t.Fatalf("expected ACTIVE, got %s", resumed.Status)
	}
}

func TestDeductionLifecycleTransitions(t *testing.T) {
	d := Deduction{ID: "d", Status: DeductionStatusCompleted}
	if _, err := d.Resume(); !IsState(err) {
		t.Fatalf("expected state error resuming a completed deduction, got %v", err)
	}
	if _, err := d.Cancel(); !IsState(err) {
		t.Fatalf("expected state error cancelling a completed deduction, got %v", err)
	}
	d.Status = DeductionStatusCancelled
	if _, err := d.Suspend(); !IsState(err) {
		t.Fatalf("expected state error suspending a cancelled deduction, got %v", err)
	}
}

func TestBuildDeductionValidation(t *testing.T) {
	tests := []struct {
		name string
		in   NewDeduction
	}{
		{"missing employee", NewDeduction{Kind: DeductionKindOther, ScheduleType: ScheduleOneTime, TotalAmount: dec("10"), StartYear: 2024, StartMonth: 1}},
		{"zero one time", NewDeduction{EmployeeID: "e", Kind: DeductionKindOther, ScheduleType: ScheduleOneTime, StartYear: 2024, StartMonth: 1}},
		{"no installments", NewDeduction{EmployeeID: "e", Kind: DeductionKindAdvance, ScheduleType: ScheduleInstallments, TotalAmount: dec("10"), StartYear: 2024, StartMonth: 1}},
		{"recurring without amount", NewDeduction{EmployeeID: "e", Kind: DeductionKindDebt, ScheduleType: ScheduleRecurring, StartYear: 2024, StartMonth: 1}},
		{"bad kind", NewDeduction{EmployeeID: "e", Kind: "FINE", ScheduleType: ScheduleOneTime, TotalAmount: dec("10"), StartYear: 2024, StartMonth: 1}},
		{"bad month", NewDeduction{EmployeeID: "e", Kind: DeductionKindOther, ScheduleType: ScheduleOneTime, TotalAmount: dec("10"), StartYear: 2024, StartMonth: 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildDeduction(tt.in); !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRecurringDeduction(t *testing.T) {
	uncapped, err := BuildDeduction(NewDeduction{
		EmployeeID: "e", Kind: DeductionKindDebt, ScheduleType: ScheduleRecurring,
		RecurringAmount: dec("15"), StartYear: 2024, StartMonth: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for month := 1; month <= 12; month++ {
		var applied decimal.Decimal
		uncapped, applied, err = ApplyDeduction(uncapped, openPeriod("p", 2024, month))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !applied.Equal(dec("15")) {
			t.Fatalf("expected 15, got %s", applied)
		}
	}
	if uncapped.Status != DeductionStatusActive || !uncapped.AmountAlreadyDeducted.Equal(dec("180")) {
		t.Fatalf("expected ACTIVE with 180 deducted, got %s %s", uncapped.Status, uncapped.AmountAlreadyDeducted)
	}

	capped, err := BuildDeduction(NewDeduction{
		EmployeeID: "e", Kind: DeductionKindDebt, ScheduleType: ScheduleRecurring,
		TotalAmount: dec("40"), RecurringAmount: dec("15"), StartYear: 2024, StartMonth: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var applied decimal.Decimal
	for month := 1; month <= 3; month++ {
		capped, applied, err = ApplyDeduction(capped, openPeriod("p", 2024, month))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !applied.Equal(dec("10")) || capped.Status != DeductionStatusCompleted {
		t.Fatalf("expected final 10 and COMPLETED, got %s %s", applied, capped.Status)
	}
}

func TestApplyDeductionRejectsFrozenPeriod(t *testing.T) {
	d := Deduction{ID: "d", ScheduleType: ScheduleOneTime, TotalAmount: dec("10"), AmountRemaining: dec("10"), Status: DeductionStatusActive, StartYear: 2024, StartMonth: 1}
	period := Period{ID: "p", Year: 2024, Month: 1, Status: PeriodStatusValidated}
	if _, _, err := ApplyDeduction(d, period); !IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestDeductionNotStartedYet(t *testing.T) {
	d := Deduction{ID: "d", ScheduleType: ScheduleOneTime, TotalAmount: dec("10"), AmountRemaining: dec("10"), Status: DeductionStatusActive, StartYear: 2024, StartMonth: 6}
	next, applied, err := ApplyDeduction(d, openPeriod("p", 2024, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied.IsZero() || next.PeriodsApplied != 0 {
		t.Fatalf("expected no application before start month, got %s", applied)
	}
}

func TestRevertApplicationRestoresBalance(t *testing.T) {
	d := Deduction{ID: "d", ScheduleType: ScheduleOneTime, TotalAmount: dec("20"), AmountRemaining: dec("20"), Status: DeductionStatusActive, StartYear: 2024, StartMonth: 1}
	period := openPeriod("p1", 2024, 1)
	applied, amount, err := ApplyDeduction(d, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied.Status != DeductionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", applied.Status)
	}
	reverted, err := RevertApplication(applied, DeductionApplication{DeductionID: "d", PeriodID: "p1", Amount: amount, Completed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reverted.Status != DeductionStatusActive || !reverted.AmountRemaining.Equal(dec("20")) || reverted.PeriodsApplied != 0 {
		t.Fatalf("expected original deduction back, got %+v", reverted)
	}
}

func TestPeriodTransitions(t *testing.T) {
	tests := []struct {
		from, to PeriodStatus
		ok       bool
	}{
		{PeriodStatusDraft, PeriodStatusCalculated, true},
		{PeriodStatusCalculated, PeriodStatusCalculated, true},
		{PeriodStatusCalculated, PeriodStatusValidated, true},
		{PeriodStatusValidated, PeriodStatusLocked, true},
		{PeriodStatusDraft, PeriodStatusValidated, false},
		{PeriodStatusDraft, PeriodStatusLocked, false},
		{PeriodStatusValidated, PeriodStatusCalculated, false},
		{PeriodStatusLocked, PeriodStatusValidated, false},
		{PeriodStatusLocked, PeriodStatusLocked, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestCalculatePayslipEndToEnd(t *testing.T) {
	created := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	in := CalculationInput{
		Period:   openPeriod("p1", 2024, 1),
		Employee: EmployeePayData{EmployeeID: "emp-1", Matricule: "G-001", Name: "Guard One", PayMode: PayModeMonthly, BaseSalary: dec("1000")},
		Input:    PayInput{Bonus: dec("50"), Arrears: dec("30")},
		Rates:    defaultRates(),
		Tax:      TaxSchedule{Brackets: referenceBrackets()},
		Deductions: []Deduction{
			{ID: "d1", EmployeeID: "emp-1", Kind: DeductionKindDisciplinary, ScheduleType: ScheduleOneTime, TotalAmount: dec("20"), AmountRemaining: dec("20"), Status: DeductionStatusActive, StartYear: 2024, StartMonth: 1, CreatedAt: created},
			{ID: "d2", EmployeeID: "emp-1", Kind: DeductionKindAdvance, ScheduleType: ScheduleOneTime, TotalAmount: dec("99"), AmountRemaining: dec("99"), Status: DeductionStatusSuspended, StartYear: 2024, StartMonth: 1, CreatedAt: created},
			{ID: "d3", EmployeeID: "emp-2", Kind: DeductionKindOther, ScheduleType: ScheduleOneTime, TotalAmount: dec("5"), AmountRemaining: dec("5"), Status: DeductionStatusActive, StartYear: 2024, StartMonth: 1, CreatedAt: created},
		},
		Currency: "XAF",
	}
	result, err := CalculatePayslip(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slip := result.Payslip
	if !slip.GrossPay.Equal(dec("1050")) {
		t.Fatalf("expected gross 1050, got %s", slip.GrossPay)
	}
	if !slip.StatutoryTotal.Equal(dec("73.5")) {
		t.Fatalf("expected statutory 73.5, got %s", slip.StatutoryTotal)
	}
	if !slip.TaxableBase.Equal(dec("976.5")) || !slip.Tax.IsZero() {
		t.Fatalf("expected taxable 976.5 and no tax, got %s and %s", slip.TaxableBase, slip.Tax)
	}
	if !slip.DisciplinaryDeductions.Equal(dec("20")) || !slip.AdvanceRepayment.IsZero() {
		t.Fatalf("expected only the disciplinary deduction, got %s and %s", slip.DisciplinaryDeductions, slip.AdvanceRepayment)
	}
	if !slip.NetPay.Equal(dec("956.5")) {
		t.Fatalf("expected net 956.5, got %s", slip.NetPay)
	}
	if !slip.NetPay.Equal(slip.GrossPay.Sub(slip.TotalDeductions())) {
		t.Fatalf("net invariant broken: %s vs %s", slip.NetPay, slip.GrossPay.Sub(slip.TotalDeductions()))
	}
	if !slip.AmountPayable.Equal(dec("986.5")) {
		t.Fatalf("expected arrears added to amount payable only, got %s", slip.AmountPayable)
	}
	if len(result.Applications) != 1 || result.Applications[0].DeductionID != "d1" || !result.Applications[0].Completed {
		t.Fatalf("expected one completing application for d1, got %+v", result.Applications)
	}
	if len(result.Deductions) != 1 || result.Deductions[0].Status != DeductionStatusCompleted {
		t.Fatalf("expected d1 completed, got %+v", result.Deductions)
	}
}

func TestCalculatePayslipDailyAttendance(t *testing.T) {
	in := CalculationInput{
		Period:   openPeriod("p2", 2024, 2),
		Employee: EmployeePayData{EmployeeID: "emp-1", PayMode: PayModeDaily, DailyRate: dec("3000"), DaysWorked: decimal.NewNullDecimal(dec("30"))},
		Rates:    defaultRates(),
		Tax:      TaxSchedule{Brackets: referenceBrackets()},
	}
	if _, err := CalculatePayslip(in); !IsValidation(err) {
		t.Fatalf("expected validation error for 30 days in February 2024, got %v", err)
	}

	in.Employee.DaysWorked = decimal.NullDecimal{}
	result, err := CalculatePayslip(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Payslip.GrossPay.IsZero() {
		t.Fatalf("expected zero gross without attendance, got %s", result.Payslip.GrossPay)
	}
	if len(result.Payslip.Warnings) != 2 || result.Payslip.Warnings[0] != WarningMissingAttendance {
		t.Fatalf("expected missing attendance and zero gross warnings, got %v", result.Payslip.Warnings)
	}
}

func TestCalculatePayslipRejectsValidatedPeriod(t *testing.T) {
	in := CalculationInput{
		Period: Period{ID: "p", Year: 2024, Month: 1, Status: PeriodStatusValidated},
		Rates:  defaultRates(),
		Tax:    TaxSchedule{Brackets: referenceBrackets()},
	}
	if _, err := CalculatePayslip(in); !IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}
