package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrLaterPeriodCalculated = errors.New("a later payroll period has already been calculated")

type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type MetricsRecorder interface {
	RecordCalculation(payslips int, duration time.Duration, err error)
	RecordValidated()
	RecordLocked()
}

type Settings struct {
	Currency        string
	StrictTaxTables bool
}

type Service struct {
	store    StoreAPI
	audit    AuditRecorder
	metrics  MetricsRecorder
	settings Settings
	now      func() time.Time
}

func NewService(store StoreAPI, audit AuditRecorder, metrics MetricsRecorder, settings Settings) *Service {
	return &Service{
		store:    store,
		audit:    audit,
		metrics:  metrics,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) record(ctx context.Context, actor Actor, action, entityType, entityID string, before, after any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actor.OperatorID, action, entityType, entityID, actor.RequestID, actor.IP, before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func (s *Service) CreatePeriod(ctx context.Context, year, month int, actor Actor) (Period, error) {
	if err := validatePeriodMonth(year, month); err != nil {
		return Period{}, err
	}
	period := Period{
		ID:        uuid.NewString(),
		Year:      year,
		Month:     month,
		Status:    PeriodStatusDraft,
		CreatedBy: actor.OperatorID,
	}
	if err := s.store.CreatePeriod(ctx, period); err != nil {
		return Period{}, err
	}
	created, err := s.store.GetPeriod(ctx, period.ID)
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, actor, "payroll.period.create", "payroll_period", created.ID, nil, created)
	return created, nil
}

func (s *Service) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	return s.store.GetPeriod(ctx, periodID)
}

func (s *Service) CountPeriods(ctx context.Context) (int, error) {
	return s.store.CountPeriods(ctx)
}

func (s *Service) ListPeriods(ctx context.Context, limit, offset int) ([]Period, error) {
	return s.store.ListPeriods(ctx, limit, offset)
}

// Calculate generates one payslip per active employee. The previous run of the same
// period is undone first, so re-running with unchanged inputs yields the same payslips and
// ledger balances. Everything happens in one transaction.
func (s *Service) Calculate(ctx context.Context, periodID string, actor Actor) (Period, error) {
	started := time.Now()
	var (
		before   Period
		payslips int
		fallback bool
	)
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		period, err := tx.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		before = period
		if err := checkTransition(period, PeriodStatusCalculated, "calculate"); err != nil {
			return err
		}
		later, err := tx.LaterCalculatedPeriod(ctx, period.Year, period.Month)
		if err != nil {
			return err
		}
		if later != nil {
			return fmt.Errorf("%w: %s is %s", ErrLaterPeriodCalculated, later.Label(), later.Status)
		}

		rates, err := tx.GetStatutoryRates(ctx)
		if err != nil {
			return err
		}
		if rates == nil {
			return &ConfigurationError{Key: "statutory_rates", Reason: "no statutory rates configured"}
		}
		brackets, err := tx.ListTaxBrackets(ctx)
		if err != nil {
			return err
		}
		schedule, err := ResolveTaxSchedule(brackets, s.settings.StrictTaxTables)
		if err != nil {
			return err
		}
		fallback = schedule.Fallback

		if err := revertPeriod(ctx, tx, period.ID); err != nil {
			return err
		}

		employees, err := tx.ListEligibleEmployees(ctx, period.Year, period.Month)
		if err != nil {
			return err
		}
		inputs, err := tx.ListPayInputs(ctx, period.ID)
		if err != nil {
			return err
		}
		inputByEmployee := make(map[string]PayInput, len(inputs))
		for _, in := range inputs {
			inputByEmployee[in.EmployeeID] = in
		}
		active, err := tx.ListActiveDeductions(ctx)
		if err != nil {
			return err
		}
		deductionsByEmployee := make(map[string][]Deduction)
		for _, d := range active {
			deductionsByEmployee[d.EmployeeID] = append(deductionsByEmployee[d.EmployeeID], d)
		}

		slips := make([]Payslip, 0, len(employees))
		var apps []DeductionApplication
		for _, emp := range employees {
			result, err := CalculatePayslip(CalculationInput{
				Period:     period,
				Employee:   emp,
				Input:      inputByEmployee[emp.EmployeeID],
				Rates:      *rates,
				Tax:        schedule,
				Deductions: deductionsByEmployee[emp.EmployeeID],
				Currency:   s.settings.Currency,
			})
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.Matricule, err)
			}
			for _, d := range result.Deductions {
				if err := tx.SaveDeduction(ctx, d); err != nil {
					return fmt.Errorf("save deduction %s: %w", d.ID, err)
				}
			}
			for _, app := range result.Applications {
				app.ID = uuid.NewString()
				apps = append(apps, app)
			}
			slip := result.Payslip
			slip.ID = uuid.NewString()
			slips = append(slips, slip)
		}

		if err := tx.CreatePayslips(ctx, slips); err != nil {
			return fmt.Errorf("save payslips: %w", err)
		}
		if err := tx.CreateApplications(ctx, apps); err != nil {
			return fmt.Errorf("save deduction applications: %w", err)
		}
		payslips = len(slips)

		return transition(ctx, tx, period, PeriodTransition{
			PeriodID:    period.ID,
			From:        period.Status,
			To:          PeriodStatusCalculated,
			By:          actor.OperatorID,
			At:          s.now(),
			TaxFallback: schedule.Fallback,
		})
	})
	if s.metrics != nil {
		s.metrics.RecordCalculation(payslips, time.Since(started), err)
	}
	if err != nil {
		slog.Warn("payroll calculation failed", "periodId", periodID, "err", err)
		return Period{}, err
	}

	after, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	slog.Info("payroll calculated", "periodId", periodID, "period", after.Label(), "payslips", payslips, "taxFallback", fallback)
	s.record(ctx, actor, "payroll.period.calculate", "payroll_period", periodID, before, after)
	return after, nil
}

// revertPeriod undoes the ledger effect and payslips of an earlier run of the period.
func revertPeriod(ctx context.Context, tx StoreAPI, periodID string) error {
	apps, err := tx.ListApplications(ctx, periodID)
	if err != nil {
		return err
	}
	for _, app := range apps {
		d, err := tx.GetDeduction(ctx, app.DeductionID)
		if err != nil {
			return fmt.Errorf("load deduction %s: %w", app.DeductionID, err)
		}
		reverted, err := RevertApplication(d, app)
		if err != nil {
			return err
		}
		if err := tx.SaveDeduction(ctx, reverted); err != nil {
			return err
		}
	}
	if err := tx.DeleteApplications(ctx, periodID); err != nil {
		return err
	}
	return tx.DeletePayslips(ctx, periodID)
}

func transition(ctx context.Context, tx StoreAPI, period Period, t PeriodTransition) error {
	if err := tx.UpdatePeriodStatus(ctx, t); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			current, getErr := tx.GetPeriod(ctx, period.ID)
			if getErr != nil {
				return getErr
			}
			return &StateError{Entity: "period", ID: period.ID, Status: string(current.Status), Action: "update"}
		}
		return err
	}
	return nil
}

// Validate freezes the payslips and ledger balances of a CALCULATED period.
func (s *Service) Validate(ctx context.Context, periodID string, actor Actor) (Period, error) {
	before, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if err := checkTransition(before, PeriodStatusValidated, "validate"); err != nil {
		return Period{}, err
	}
	if before.Stale() {
		return Period{}, fmt.Errorf("%w: %s changed at %s", ErrStaleCalculation, before.Label(), before.InputsChangedAt.Format(time.RFC3339))
	}
	err = transition(ctx, s.store, before, PeriodTransition{
		PeriodID: periodID,
		From:     PeriodStatusCalculated,
		To:       PeriodStatusValidated,
		By:       actor.OperatorID,
		At:       s.now(),
	})
	if err != nil {
		return Period{}, err
	}
	after, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordValidated()
	}
	slog.Info("payroll period validated", "periodId", periodID, "period", after.Label())
	s.record(ctx, actor, "payroll.period.validate", "payroll_period", periodID, before, after)
	return after, nil
}

// Lock makes a VALIDATED period permanently read-only. The operator must confirm.
func (s *Service) Lock(ctx context.Context, periodID string, confirm bool, actor Actor) (Period, error) {
	if !confirm {
		return Period{}, invalid("confirm", "locking is irreversible and must be confirmed")
	}
	before, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if err := checkTransition(before, PeriodStatusLocked, "lock"); err != nil {
		return Period{}, err
	}
	err = transition(ctx, s.store, before, PeriodTransition{
		PeriodID: periodID,
		From:     PeriodStatusValidated,
		To:       PeriodStatusLocked,
		By:       actor.OperatorID,
		At:       s.now(),
	})
	if err != nil {
		return Period{}, err
	}
	after, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordLocked()
	}
	slog.Info("payroll period locked", "periodId", periodID, "period", after.Label())
	s.record(ctx, actor, "payroll.period.lock", "payroll_period", periodID, before, after)
	return after, nil
}

// UpsertInput sets the bonus and arrears of one employee for an open period. A
// CALCULATED period is marked stale and cannot be validated until it is recalculated, so
// the change is refused once a later period has been calculated.
func (s *Service) UpsertInput(ctx context.Context, periodID, employeeID string, bonus, arrears decimal.Decimal, note string, actor Actor) (PayInput, error) {
	if bonus.IsNegative() {
		return PayInput{}, invalid("bonus", "must not be negative")
	}
	if arrears.IsNegative() {
		return PayInput{}, invalid("arrears", "must not be negative")
	}
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return PayInput{}, err
	}
	if !period.Status.Mutable() {
		return PayInput{}, &StateError{Entity: "period", ID: period.ID, Status: string(period.Status), Action: "change pay inputs of"}
	}
	if period.Status == PeriodStatusCalculated {
		later, err := s.store.LaterCalculatedPeriod(ctx, period.Year, period.Month)
		if err != nil {
			return PayInput{}, err
		}
		if later != nil {
			return PayInput{}, fmt.Errorf("%w: %s is %s", ErrLaterPeriodCalculated, later.Label(), later.Status)
		}
	}
	exists, err := s.store.EmployeeExists(ctx, employeeID)
	if err != nil {
		return PayInput{}, err
	}
	if !exists {
		return PayInput{}, ErrEmployeeNotFound
	}
	input := PayInput{
		PeriodID:   periodID,
		EmployeeID: employeeID,
		Bonus:      roundMoney(bonus),
		Arrears:    roundMoney(arrears),
		Note:       note,
		UpdatedBy:  actor.OperatorID,
		UpdatedAt:  s.now(),
	}
	if err := s.store.UpsertPayInput(ctx, input); err != nil {
		return PayInput{}, err
	}
	if period.Status == PeriodStatusCalculated {
		if err := s.store.MarkInputsChanged(ctx, period.ID, input.UpdatedAt); err != nil {
			return PayInput{}, err
		}
	}
	s.record(ctx, actor, "payroll.input.upsert", "pay_input", periodID+":"+employeeID, nil, input)
	return input, nil
}

func (s *Service) ListPayslips(ctx context.Context, periodID string) ([]Payslip, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return s.store.ListPayslips(ctx, periodID)
}

func (s *Service) GetPayslip(ctx context.Context, periodID, employeeID string) (Payslip, error) {
	return s.store.GetPayslip(ctx, periodID, employeeID)
}

func (s *Service) Summary(ctx context.Context, periodID string) (PeriodSummary, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return PeriodSummary{}, err
	}
	slips, err := s.store.ListPayslips(ctx, periodID)
	if err != nil {
		return PeriodSummary{}, err
	}
	return summarize(period, slips), nil
}

func summarize(period Period, slips []Payslip) PeriodSummary {
	out := PeriodSummary{
		Period:          period,
		EmployeeCount:   len(slips),
		TotalGross:      decimal.Zero,
		TotalStatutory:  decimal.Zero,
		TotalTax:        decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNet:        decimal.Zero,
		TotalArrears:    decimal.Zero,
		Warnings:        map[string]int{},
	}
	for _, slip := range slips {
		out.TotalGross = out.TotalGross.Add(slip.GrossPay)
		out.TotalStatutory = out.TotalStatutory.Add(slip.StatutoryTotal)
		out.TotalTax = out.TotalTax.Add(slip.Tax)
		out.TotalDeductions = out.TotalDeductions.Add(slip.DisciplinaryDeductions).Add(slip.AdvanceRepayment).Add(slip.OtherDeductions)
		out.TotalNet = out.TotalNet.Add(slip.NetPay)
		out.TotalArrears = out.TotalArrears.Add(slip.Arrears)
		for _, w := range slip.Warnings {
			out.Warnings[w]++
		}
	}
	return out
}
