package payroll

import (
	"context"
	"time"
)

// PeriodTransition is a guarded status change: it only applies while the period is still
// in From.
type PeriodTransition struct {
	PeriodID    string
	From        PeriodStatus
	To          PeriodStatus
	By          string
	At          time.Time
	TaxFallback bool
}

type StoreAPI interface {
	// InTx runs fn against a store bound to one transaction. Any error rolls everything back.
	InTx(ctx context.Context, fn func(tx StoreAPI) error) error

	CreatePeriod(ctx context.Context, period Period) error
	GetPeriod(ctx context.Context, periodID string) (Period, error)
	CountPeriods(ctx context.Context) (int, error)
	ListPeriods(ctx context.Context, limit, offset int) ([]Period, error)
	LaterCalculatedPeriod(ctx context.Context, year, month int) (*Period, error)
	UpdatePeriodStatus(ctx context.Context, t PeriodTransition) error
	// LatestCalculatedPeriod returns the most recent period that has left DRAFT.
	LatestCalculatedPeriod(ctx context.Context) (*Period, error)
	// MarkInputsChanged flags a CALCULATED period as stale. Other statuses are left alone.
	MarkInputsChanged(ctx context.Context, periodID string, at time.Time) error

	ListEligibleEmployees(ctx context.Context, year, month int) ([]EmployeePayData, error)
	EmployeeExists(ctx context.Context, employeeID string) (bool, error)

	ListPayInputs(ctx context.Context, periodID string) ([]PayInput, error)
	UpsertPayInput(ctx context.Context, input PayInput) error

	GetStatutoryRates(ctx context.Context) (*StatutoryRates, error)
	SaveStatutoryRates(ctx context.Context, rates StatutoryRates) error
	ListTaxBrackets(ctx context.Context) ([]TaxBracket, error)
	ReplaceTaxBrackets(ctx context.Context, brackets []TaxBracket) error

	CreateDeduction(ctx context.Context, d Deduction) error
	GetDeduction(ctx context.Context, deductionID string) (Deduction, error)
	CountDeductions(ctx context.Context, filter DeductionFilter) (int, error)
	ListDeductions(ctx context.Context, filter DeductionFilter, limit, offset int) ([]Deduction, error)
	ListActiveDeductions(ctx context.Context) ([]Deduction, error)
	SaveDeduction(ctx context.Context, d Deduction) error

	ListApplications(ctx context.Context, periodID string) ([]DeductionApplication, error)
	ListDeductionApplications(ctx context.Context, deductionID string) ([]DeductionApplication, error)
	CreateApplications(ctx context.Context, apps []DeductionApplication) error
	DeleteApplications(ctx context.Context, periodID string) error

	CreatePayslips(ctx context.Context, slips []Payslip) error
	DeletePayslips(ctx context.Context, periodID string) error
	ListPayslips(ctx context.Context, periodID string) ([]Payslip, error)
	GetPayslip(ctx context.Context, periodID, employeeID string) (Payslip, error)
}
