package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"guardhr/internal/domain/core"
	"guardhr/internal/platform/db"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{DB: gdb}
}

func (s *Store) InTx(ctx context.Context, fn func(tx StoreAPI) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) CreatePeriod(ctx context.Context, period Period) error {
	if err := s.DB.WithContext(ctx).Create(&period).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPeriodExists
		}
		return err
	}
	return nil
}

func (s *Store) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	var out Period
	err := s.DB.WithContext(ctx).First(&out, "id = ?", periodID).Error
	if db.IsNotFound(err) {
		return Period{}, ErrPeriodNotFound
	}
	return out, err
}

func (s *Store) CountPeriods(ctx context.Context) (int, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&Period{}).Count(&total).Error
	return int(total), err
}

func (s *Store) ListPeriods(ctx context.Context, limit, offset int) ([]Period, error) {
	var out []Period
	err := s.DB.WithContext(ctx).Order("year DESC, month DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

// LaterCalculatedPeriod returns the earliest period after year/month that has left DRAFT.
func (s *Store) LaterCalculatedPeriod(ctx context.Context, year, month int) (*Period, error) {
	var out Period
	err := s.DB.WithContext(ctx).
		Where("(year * 12 + month) > ? AND status <> ?", year*12+month, PeriodStatusDraft).
		Order("year ASC, month ASC").
		First(&out).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdatePeriodStatus(ctx context.Context, t PeriodTransition) error {
	updates := map[string]any{"status": t.To}
	switch t.To {
	case PeriodStatusCalculated:
		updates["calculated_by"] = t.By
		updates["calculated_at"] = t.At
		updates["tax_fallback"] = t.TaxFallback
		updates["inputs_changed_at"] = nil
	case PeriodStatusValidated:
		updates["validated_by"] = t.By
		updates["validated_at"] = t.At
	case PeriodStatusLocked:
		updates["locked_by"] = t.By
		updates["locked_at"] = t.At
	}
	query := s.DB.WithContext(ctx).Model(&Period{}).Where("id = ? AND status = ?", t.PeriodID, t.From)
	if t.To == PeriodStatusValidated {
		query = query.Where("inputs_changed_at IS NULL")
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (s *Store) LatestCalculatedPeriod(ctx context.Context) (*Period, error) {
	var out Period
	err := s.DB.WithContext(ctx).
		Where("status <> ?", PeriodStatusDraft).
		Order("year DESC, month DESC").
		First(&out).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) MarkInputsChanged(ctx context.Context, periodID string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&Period{}).
		Where("id = ? AND status = ?", periodID, PeriodStatusCalculated).
		Update("inputs_changed_at", at).Error
}

// ListEligibleEmployees joins the active employee directory with the month's attendance.
// Employees hired after the month are left out. A DAILY employee without an attendance
// row comes back with DaysWorked unset.
func (s *Store) ListEligibleEmployees(ctx context.Context, year, month int) ([]EmployeePayData, error) {
	nextMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	var employees []core.Employee
	if err := s.DB.WithContext(ctx).
		Where("status = ?", core.EmployeeStatusActive).
		Where("hire_date IS NULL OR hire_date < ?", nextMonth).
		Order("matricule ASC").
		Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	var attendance []core.Attendance
	if err := s.DB.WithContext(ctx).Where("year = ? AND month = ?", year, month).Find(&attendance).Error; err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	days := make(map[string]decimal.Decimal, len(attendance))
	for _, rec := range attendance {
		days[rec.EmployeeID] = rec.DaysWorked
	}

	out := make([]EmployeePayData, 0, len(employees))
	for _, emp := range employees {
		data := EmployeePayData{
			EmployeeID: emp.ID,
			Matricule:  emp.Matricule,
			Name:       emp.FullName(),
			PayMode:    PayMode(emp.PayMode),
			BaseSalary: emp.BaseSalary,
			DailyRate:  emp.DailyRate,
		}
		if d, ok := days[emp.ID]; ok {
			data.DaysWorked = decimal.NewNullDecimal(d)
		}
		out = append(out, data)
	}
	return out, nil
}

func (s *Store) EmployeeExists(ctx context.Context, employeeID string) (bool, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&core.Employee{}).Where("id = ?", employeeID).Count(&total).Error
	return total > 0, err
}

func (s *Store) ListPayInputs(ctx context.Context, periodID string) ([]PayInput, error) {
	var out []PayInput
	err := s.DB.WithContext(ctx).Where("period_id = ?", periodID).Find(&out).Error
	return out, err
}

func (s *Store) UpsertPayInput(ctx context.Context, input PayInput) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period_id"}, {Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bonus", "arrears", "note", "updated_by", "updated_at"}),
	}).Create(&input).Error
}

func (s *Store) GetStatutoryRates(ctx context.Context) (*StatutoryRates, error) {
	var out StatutoryRates
	err := s.DB.WithContext(ctx).First(&out, "id = ?", statutoryRatesRowID).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) SaveStatutoryRates(ctx context.Context, rates StatutoryRates) error {
	rates.ID = statutoryRatesRowID
	return s.DB.WithContext(ctx).Save(&rates).Error
}

func (s *Store) ListTaxBrackets(ctx context.Context) ([]TaxBracket, error) {
	var out []TaxBracket
	err := s.DB.WithContext(ctx).Order("position ASC").Find(&out).Error
	return out, err
}

func (s *Store) ReplaceTaxBrackets(ctx context.Context, brackets []TaxBracket) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&TaxBracket{}).Error; err != nil {
			return fmt.Errorf("clear tax brackets: %w", err)
		}
		for i := range brackets {
			brackets[i].ID = 0
			brackets[i].Position = i
		}
		if len(brackets) == 0 {
			return nil
		}
		return tx.Create(&brackets).Error
	})
}

func (s *Store) CreateDeduction(ctx context.Context, d Deduction) error {
	return s.DB.WithContext(ctx).Create(&d).Error
}

func (s *Store) GetDeduction(ctx context.Context, deductionID string) (Deduction, error) {
	var out Deduction
	err := s.DB.WithContext(ctx).First(&out, "id = ?", deductionID).Error
	if db.IsNotFound(err) {
		return Deduction{}, ErrDeductionNotFound
	}
	return out, err
}

func (s *Store) filteredDeductions(ctx context.Context, filter DeductionFilter) *gorm.DB {
	query := s.DB.WithContext(ctx).Model(&Deduction{})
	if filter.EmployeeID != "" {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	return query
}

func (s *Store) CountDeductions(ctx context.Context, filter DeductionFilter) (int, error) {
	var total int64
	err := s.filteredDeductions(ctx, filter).Count(&total).Error
	return int(total), err
}

func (s *Store) ListDeductions(ctx context.Context, filter DeductionFilter, limit, offset int) ([]Deduction, error) {
	var out []Deduction
	err := s.filteredDeductions(ctx, filter).Order("created_at DESC, id ASC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

func (s *Store) ListActiveDeductions(ctx context.Context) ([]Deduction, error) {
	var out []Deduction
	err := s.DB.WithContext(ctx).
		Where("status = ?", DeductionStatusActive).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) SaveDeduction(ctx context.Context, d Deduction) error {
	res := s.DB.WithContext(ctx).Model(&Deduction{}).Where("id = ?", d.ID).Updates(map[string]any{
		"amount_already_deducted": d.AmountAlreadyDeducted,
		"amount_remaining":        d.AmountRemaining,
		"periods_applied":         d.PeriodsApplied,
		"status":                  d.Status,
		"completed_period_id":     d.CompletedPeriodID,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeductionNotFound
	}
	return nil
}

func (s *Store) ListApplications(ctx context.Context, periodID string) ([]DeductionApplication, error) {
	var out []DeductionApplication
	err := s.DB.WithContext(ctx).Where("period_id = ?", periodID).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (s *Store) ListDeductionApplications(ctx context.Context, deductionID string) ([]DeductionApplication, error) {
	var out []DeductionApplication
	err := s.DB.WithContext(ctx).Where("deduction_id = ?", deductionID).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (s *Store) CreateApplications(ctx context.Context, apps []DeductionApplication) error {
	if len(apps) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).CreateInBatches(&apps, 200).Error
}

func (s *Store) DeleteApplications(ctx context.Context, periodID string) error {
	return s.DB.WithContext(ctx).Where("period_id = ?", periodID).Delete(&DeductionApplication{}).Error
}

func (s *Store) CreatePayslips(ctx context.Context, slips []Payslip) error {
	if len(slips) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).CreateInBatches(&slips, 200).Error
}

func (s *Store) DeletePayslips(ctx context.Context, periodID string) error {
	return s.DB.WithContext(ctx).Where("period_id = ?", periodID).Delete(&Payslip{}).Error
}

func (s *Store) ListPayslips(ctx context.Context, periodID string) ([]Payslip, error) {
	var out []Payslip
	err := s.DB.WithContext(ctx).Where("period_id = ?", periodID).Order("matricule ASC").Find(&out).Error
	return out, err
}

func (s *Store) GetPayslip(ctx context.Context, periodID, employeeID string) (Payslip, error) {
	var out Payslip
	err := s.DB.WithContext(ctx).First(&out, "period_id = ? AND employee_id = ?", periodID, employeeID).Error
	if db.IsNotFound(err) {
		return Payslip{}, ErrPayslipNotFound
	}
	return out, err
}
