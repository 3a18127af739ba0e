package payroll

type PeriodStatus string

const (
	PeriodStatusDraft      PeriodStatus = "DRAFT"
	PeriodStatusCalculated PeriodStatus = "CALCULATED"
	PeriodStatusValidated  PeriodStatus = "VALIDATED"
	PeriodStatusLocked     PeriodStatus = "LOCKED"
)

type PayMode string

const (
	PayModeMonthly PayMode = "MONTHLY"
	PayModeDaily   PayMode = "DAILY"
)

type ScheduleType string

const (
	ScheduleOneTime      ScheduleType = "ONE_TIME"
	ScheduleInstallments ScheduleType = "INSTALLMENTS"
	ScheduleRecurring    ScheduleType = "RECURRING"
)

type DeductionStatus string

const (
	DeductionStatusActive    DeductionStatus = "ACTIVE"
	DeductionStatusSuspended DeductionStatus = "SUSPENDED"
	DeductionStatusCompleted DeductionStatus = "COMPLETED"
	DeductionStatusCancelled DeductionStatus = "CANCELLED"
)

// DeductionKind decides which payslip column an applied deduction lands in.
type DeductionKind string

const (
	DeductionKindDisciplinary DeductionKind = "DISCIPLINARY"
	DeductionKindAdvance      DeductionKind = "ADVANCE"
	DeductionKindDebt         DeductionKind = "DEBT"
	DeductionKindOther        DeductionKind = "OTHER"
)

const (
	WarningNegativeNet       = "negative_net"
	WarningTaxFallback       = "tax_fallback"
	WarningMissingAttendance = "missing_attendance"
	WarningZeroGross         = "zero_gross"
)

const (
	statutoryRatesRowID       = 1
	moneyPlaces         int32 = 2
)
