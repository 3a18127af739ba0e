package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerRepair reports one pass of RepairLedger.
type LedgerRepair struct {
	Checked  int      `json:"checked"`
	Repaired []string `json:"repaired"`
}

// RepairDeductionLedger rebuilds every deduction's running balance from its recorded
// applications. It is registered as a repeatable migration step, so it runs on every
// start and only writes rows that drifted.
func RepairDeductionLedger(tx *gorm.DB) error {
	_, err := repairLedger(tx.Statement.Context, &Store{DB: tx})
	return err
}

// RepairLedger is the on-demand form of RepairDeductionLedger.
func (s *Service) RepairLedger(ctx context.Context, actor Actor) (LedgerRepair, error) {
	var out LedgerRepair
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		var err error
		out, err = repairLedger(ctx, tx)
		return err
	})
	if err != nil {
		return LedgerRepair{}, err
	}
	s.record(ctx, actor, "payroll.deductions.repair", "deduction", "", nil, out)
	return out, nil
}

func repairLedger(ctx context.Context, store StoreAPI) (LedgerRepair, error) {
	out := LedgerRepair{Repaired: []string{}}
	total, err := store.CountDeductions(ctx, DeductionFilter{})
	if err != nil {
		return out, fmt.Errorf("count deductions: %w", err)
	}
	if total == 0 {
		return out, nil
	}
	deductions, err := store.ListDeductions(ctx, DeductionFilter{}, total, 0)
	if err != nil {
		return out, fmt.Errorf("load deductions: %w", err)
	}
	for _, d := range deductions {
		out.Checked++
		apps, err := store.ListDeductionApplications(ctx, d.ID)
		if err != nil {
			return out, fmt.Errorf("load applications of %s: %w", d.ID, err)
		}
		fixed := rebuildBalance(d, apps)
		if fixed.AmountAlreadyDeducted.Equal(d.AmountAlreadyDeducted) &&
			fixed.AmountRemaining.Equal(d.AmountRemaining) &&
			fixed.PeriodsApplied == d.PeriodsApplied &&
			fixed.Status == d.Status &&
			fixed.CompletedPeriodID == d.CompletedPeriodID {
			continue
		}
		if err := store.SaveDeduction(ctx, fixed); err != nil {
			return out, fmt.Errorf("save deduction %s: %w", d.ID, err)
		}
		out.Repaired = append(out.Repaired, d.ID)
	}
	if len(out.Repaired) > 0 {
		slog.Info("deduction ledger repaired", "checked", out.Checked, "repaired", len(out.Repaired))
	}
	return out, nil
}

func rebuildBalance(d Deduction, apps []DeductionApplication) Deduction {
	applied := decimal.Zero
	for _, app := range apps {
		applied = applied.Add(app.Amount)
	}
	d.AmountAlreadyDeducted = applied
	d.PeriodsApplied = len(apps)
	if !d.Capped() {
		d.AmountRemaining = decimal.Zero
		return d
	}
	d.AmountRemaining = d.TotalAmount.Sub(applied)
	if !d.AmountRemaining.IsPositive() {
		d.AmountRemaining = decimal.Zero
		if d.Status == DeductionStatusActive || d.Status == DeductionStatusSuspended {
			d.Status = DeductionStatusCompleted
		}
		if d.Status == DeductionStatusCompleted && d.CompletedPeriodID == "" {
			d.CompletedPeriodID = completingPeriod(apps)
		}
		return d
	}
	if d.Status == DeductionStatusCompleted {
		d.Status = DeductionStatusActive
		d.CompletedPeriodID = ""
	}
	return d
}

// completingPeriod is the period of the application flagged as completing the deduction,
// or else of the latest one.
func completingPeriod(apps []DeductionApplication) string {
	periodID := ""
	var latest time.Time
	for _, app := range apps {
		if app.Completed {
			return app.PeriodID
		}
		if periodID == "" || app.CreatedAt.After(latest) {
			periodID, latest = app.PeriodID, app.CreatedAt
		}
	}
	return periodID
}
