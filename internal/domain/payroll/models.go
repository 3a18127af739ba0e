package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Period struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	Year         int          `gorm:"not null;uniqueIndex:idx_payroll_period_month" json:"year"`
	Month        int          `gorm:"not null;uniqueIndex:idx_payroll_period_month" json:"month"`
	Status       PeriodStatus `gorm:"size:16;not null;index" json:"status"`
	TaxFallback  bool         `gorm:"not null;default:false" json:"taxFallback"`
	CreatedBy    string       `gorm:"size:36" json:"createdBy"`
	CalculatedBy string       `gorm:"size:36" json:"calculatedBy,omitempty"`
	CalculatedAt *time.Time   `json:"calculatedAt,omitempty"`
	ValidatedBy  string       `gorm:"size:36" json:"validatedBy,omitempty"`
	ValidatedAt  *time.Time   `json:"validatedAt,omitempty"`
	LockedBy     string       `gorm:"size:36" json:"lockedBy,omitempty"`
	LockedAt     *time.Time   `json:"lockedAt,omitempty"`
	// InputsChangedAt is set when pay inputs or deductions change after calculation and
	// cleared by the next calculation.
	InputsChangedAt *time.Time `json:"inputsChangedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (Period) TableName() string { return "payroll_periods" }

// DaysInMonth is the calendar length of the period's month.
func (p Period) DaysInMonth() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Stale reports a CALCULATED period whose payslips no longer reflect its inputs.
func (p Period) Stale() bool {
	return p.Status == PeriodStatusCalculated && p.InputsChangedAt != nil
}

func (p Period) Label() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// monthIndex orders periods so start-period eligibility is a single comparison.
func monthIndex(year, month int) int {
	return year*12 + month - 1
}

type Payslip struct {
	ID                     string          `gorm:"primaryKey;size:36" json:"id"`
	PeriodID               string          `gorm:"size:36;not null;uniqueIndex:idx_payslip_period_employee" json:"periodId"`
	EmployeeID             string          `gorm:"size:36;not null;uniqueIndex:idx_payslip_period_employee;index" json:"employeeId"`
	Matricule              string          `gorm:"size:32" json:"matricule"`
	EmployeeName           string          `gorm:"size:200" json:"employeeName"`
	Currency               string          `gorm:"size:8" json:"currency"`
	PayMode                PayMode         `gorm:"size:16" json:"payMode"`
	BaseSalary             decimal.Decimal `gorm:"type:numeric(18,2)" json:"baseSalary"`
	DailyRate              decimal.Decimal `gorm:"type:numeric(18,2)" json:"dailyRate"`
	DaysWorked             decimal.Decimal `gorm:"type:numeric(6,2)" json:"daysWorked"`
	Bonus                  decimal.Decimal `gorm:"type:numeric(18,2)" json:"bonus"`
	Arrears                decimal.Decimal `gorm:"type:numeric(18,2)" json:"arrears"`
	GrossPay               decimal.Decimal `gorm:"type:numeric(18,2)" json:"grossPay"`
	PensionDeduction       decimal.Decimal `gorm:"type:numeric(18,2)" json:"pensionDeduction"`
	UnemploymentDeduction  decimal.Decimal `gorm:"type:numeric(18,2)" json:"unemploymentDeduction"`
	TrainingDeduction      decimal.Decimal `gorm:"type:numeric(18,2)" json:"trainingDeduction"`
	StatutoryTotal         decimal.Decimal `gorm:"type:numeric(18,2)" json:"statutoryTotal"`
	TaxableBase            decimal.Decimal `gorm:"type:numeric(18,2)" json:"taxableBase"`
	Tax                    decimal.Decimal `gorm:"type:numeric(18,2)" json:"tax"`
	DisciplinaryDeductions decimal.Decimal `gorm:"type:numeric(18,2)" json:"disciplinaryDeductions"`
	AdvanceRepayment       decimal.Decimal `gorm:"type:numeric(18,2)" json:"advanceRepayment"`
	OtherDeductions        decimal.Decimal `gorm:"type:numeric(18,2)" json:"otherDeductions"`
	NetPay                 decimal.Decimal `gorm:"type:numeric(18,2)" json:"netPay"`
	AmountPayable          decimal.Decimal `gorm:"type:numeric(18,2)" json:"amountPayable"`
	TaxFallback            bool            `gorm:"not null;default:false" json:"taxFallback"`
	Warnings               []string        `gorm:"serializer:json;type:text" json:"warnings"`
	CreatedAt              time.Time       `json:"createdAt"`
}

func (Payslip) TableName() string { return "payslips" }

// TotalDeductions is everything withheld from gross pay.
func (p Payslip) TotalDeductions() decimal.Decimal {
	return p.StatutoryTotal.Add(p.Tax).Add(p.DisciplinaryDeductions).Add(p.AdvanceRepayment).Add(p.OtherDeductions)
}

type Deduction struct {
	ID                    string          `gorm:"primaryKey;size:36" json:"id"`
	EmployeeID            string          `gorm:"size:36;not null;index" json:"employeeId"`
	Kind                  DeductionKind   `gorm:"size:16;not null" json:"kind"`
	Reason                string          `gorm:"size:255" json:"reason"`
	ScheduleType          ScheduleType    `gorm:"size:16;not null" json:"scheduleType"`
	TotalAmount           decimal.Decimal `gorm:"type:numeric(18,2)" json:"totalAmount"`
	AmountAlreadyDeducted decimal.Decimal `gorm:"type:numeric(18,2)" json:"amountAlreadyDeducted"`
	AmountRemaining       decimal.Decimal `gorm:"type:numeric(18,2)" json:"amountRemaining"`
	InstallmentCount      int             `json:"installmentCount"`
	RecurringAmount       decimal.Decimal `gorm:"type:numeric(18,2)" json:"recurringAmount"`
	PeriodsApplied        int             `json:"periodsApplied"`
	StartYear             int             `json:"startYear"`
	StartMonth            int             `json:"startMonth"`
	Status                DeductionStatus `gorm:"size:16;not null;index" json:"status"`
	CompletedPeriodID     string          `gorm:"size:36" json:"completedPeriodId,omitempty"`
	CreatedBy             string          `gorm:"size:36" json:"createdBy"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func (Deduction) TableName() string { return "deductions" }

// Capped reports whether the deduction has a finite total. Only uncapped RECURRING
// deductions (total 0) run without a balance.
func (d Deduction) Capped() bool {
	return d.ScheduleType != ScheduleRecurring || d.TotalAmount.IsPositive()
}

// Balanced checks remaining = total - already deducted, remaining >= 0.
func (d Deduction) Balanced() bool {
	if !d.Capped() {
		return d.AmountRemaining.IsZero()
	}
	return !d.AmountRemaining.IsNegative() && d.AmountRemaining.Equal(d.TotalAmount.Sub(d.AmountAlreadyDeducted))
}

// DeductionApplication records one deduction applied to one period so a recalculation
// of a period that is still open can undo it.
type DeductionApplication struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	DeductionID string          `gorm:"size:36;not null;uniqueIndex:idx_application_deduction_period" json:"deductionId"`
	PeriodID    string          `gorm:"size:36;not null;uniqueIndex:idx_application_deduction_period;index" json:"periodId"`
	EmployeeID  string          `gorm:"size:36;not null" json:"employeeId"`
	Kind        DeductionKind   `gorm:"size:16" json:"kind"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
	Completed   bool            `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (DeductionApplication) TableName() string { return "deduction_applications" }

type StatutoryRates struct {
	ID               int             `gorm:"primaryKey;autoIncrement:false" json:"-"`
	PensionRate      decimal.Decimal `gorm:"type:numeric(9,6)" json:"pensionRate"`
	UnemploymentRate decimal.Decimal `gorm:"type:numeric(9,6)" json:"unemploymentRate"`
	TrainingRate     decimal.Decimal `gorm:"type:numeric(9,6)" json:"trainingRate"`
	UpdatedBy        string          `gorm:"size:36" json:"updatedBy"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (StatutoryRates) TableName() string { return "statutory_rates" }

func (r StatutoryRates) Total() decimal.Decimal {
	return r.PensionRate.Add(r.UnemploymentRate).Add(r.TrainingRate)
}

type TaxBracket struct {
	ID       int                 `gorm:"primaryKey" json:"-"`
	Position int                 `gorm:"not null" json:"-"`
	Min      decimal.Decimal     `gorm:"type:numeric(18,2)" json:"min"`
	Max      decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"max"`
	Rate     decimal.Decimal     `gorm:"type:numeric(9,6)" json:"rate"`
}

func (TaxBracket) TableName() string { return "tax_brackets" }

// PayInput carries the variable, per-period pay of one employee.
type PayInput struct {
	PeriodID   string          `gorm:"primaryKey;size:36" json:"periodId"`
	EmployeeID string          `gorm:"primaryKey;size:36" json:"employeeId"`
	Bonus      decimal.Decimal `gorm:"type:numeric(18,2)" json:"bonus"`
	Arrears    decimal.Decimal `gorm:"type:numeric(18,2)" json:"arrears"`
	Note       string          `gorm:"size:255" json:"note"`
	UpdatedBy  string          `gorm:"size:36" json:"updatedBy"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (PayInput) TableName() string { return "pay_inputs" }

// EmployeePayData is the read-only slice of the employee directory and attendance
// source that a calculation needs.
type EmployeePayData struct {
	EmployeeID string
	Matricule  string
	Name       string
	PayMode    PayMode
	BaseSalary decimal.Decimal
	DailyRate  decimal.Decimal
	DaysWorked decimal.NullDecimal
}

// Actor identifies the operator behind a mutating call.
type Actor struct {
	OperatorID string
	RequestID  string
	IP         string
}

type PeriodSummary struct {
	Period          Period          `json:"period"`
	EmployeeCount   int             `json:"employeeCount"`
	TotalGross      decimal.Decimal `json:"totalGross"`
	TotalStatutory  decimal.Decimal `json:"totalStatutory"`
	TotalTax        decimal.Decimal `json:"totalTax"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	TotalNet        decimal.Decimal `json:"totalNet"`
	TotalArrears    decimal.Decimal `json:"totalArrears"`
	Warnings        map[string]int  `json:"warnings"`
}

type DeductionFilter struct {
	EmployeeID string
	Status     DeductionStatus
	Kind       DeductionKind
}
