package payroll

import (
	"context"

	"github.com/google/uuid"
)

func (s *Service) CreateDeduction(ctx context.Context, in NewDeduction, actor Actor) (Deduction, error) {
	d, err := BuildDeduction(in)
	if err != nil {
		return Deduction{}, err
	}
	exists, err := s.store.EmployeeExists(ctx, d.EmployeeID)
	if err != nil {
		return Deduction{}, err
	}
	if !exists {
		return Deduction{}, ErrEmployeeNotFound
	}
	d.ID = uuid.NewString()
	d.CreatedBy = actor.OperatorID
	if err := s.store.CreateDeduction(ctx, d); err != nil {
		return Deduction{}, err
	}
	created, err := s.store.GetDeduction(ctx, d.ID)
	if err != nil {
		return Deduction{}, err
	}
	if err := s.markDeductionChange(ctx, created); err != nil {
		return Deduction{}, err
	}
	s.record(ctx, actor, "payroll.deduction.create", "deduction", created.ID, nil, created)
	return created, nil
}

// markDeductionChange flags the latest period as stale when it is CALCULATED and d would
// apply to it. Earlier periods can no longer be recalculated and keep their payslips.
func (s *Service) markDeductionChange(ctx context.Context, d Deduction) error {
	latest, err := s.store.LatestCalculatedPeriod(ctx)
	if err != nil || latest == nil || latest.Status != PeriodStatusCalculated {
		return err
	}
	if monthIndex(latest.Year, latest.Month) < monthIndex(d.StartYear, d.StartMonth) {
		return nil
	}
	return s.store.MarkInputsChanged(ctx, latest.ID, s.now())
}

func (s *Service) GetDeduction(ctx context.Context, deductionID string) (Deduction, error) {
	return s.store.GetDeduction(ctx, deductionID)
}

func (s *Service) CountDeductions(ctx context.Context, filter DeductionFilter) (int, error) {
	return s.store.CountDeductions(ctx, filter)
}

func (s *Service) ListDeductions(ctx context.Context, filter DeductionFilter, limit, offset int) ([]Deduction, error) {
	return s.store.ListDeductions(ctx, filter, limit, offset)
}

func (s *Service) DeductionHistory(ctx context.Context, deductionID string) ([]DeductionApplication, error) {
	if _, err := s.store.GetDeduction(ctx, deductionID); err != nil {
		return nil, err
	}
	return s.store.ListDeductionApplications(ctx, deductionID)
}

func (s *Service) SuspendDeduction(ctx context.Context, deductionID string, actor Actor) (Deduction, error) {
	return s.changeDeduction(ctx, deductionID, "payroll.deduction.suspend", Deduction.Suspend, actor)
}

func (s *Service) ResumeDeduction(ctx context.Context, deductionID string, actor Actor) (Deduction, error) {
	return s.changeDeduction(ctx, deductionID, "payroll.deduction.resume", Deduction.Resume, actor)
}

func (s *Service) CancelDeduction(ctx context.Context, deductionID string, actor Actor) (Deduction, error) {
	return s.changeDeduction(ctx, deductionID, "payroll.deduction.cancel", Deduction.Cancel, actor)
}

func (s *Service) changeDeduction(ctx context.Context, deductionID, action string, change func(Deduction) (Deduction, error), actor Actor) (Deduction, error) {
	before, err := s.store.GetDeduction(ctx, deductionID)
	if err != nil {
		return Deduction{}, err
	}
	after, err := change(before)
	if err != nil {
		return Deduction{}, err
	}
	if err := s.store.SaveDeduction(ctx, after); err != nil {
		return Deduction{}, err
	}
	if err := s.markDeductionChange(ctx, after); err != nil {
		return Deduction{}, err
	}
	s.record(ctx, actor, action, "deduction", deductionID, before, after)
	return after, nil
}
