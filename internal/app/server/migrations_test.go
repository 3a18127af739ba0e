package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"guardhr/internal/domain/payroll"
	"guardhr/internal/platform/config"
	"guardhr/internal/platform/db"
)

func TestRestartRepairsDeductionLedger(t *testing.T) {
	gdb, err := db.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	ctx := context.Background()
	if err := db.Migrate(ctx, gdb, Migrations()); err != nil {
		t.Fatalf("first migrate: %v", err)
	}

	drifted := payroll.Deduction{
		ID: "ded-drift", EmployeeID: "emp-1", Kind: payroll.DeductionKindAdvance, ScheduleType: payroll.ScheduleOneTime,
		TotalAmount: decimal.NewFromInt(100), AmountRemaining: decimal.NewFromInt(999),
		StartYear: 2024, StartMonth: 1, Status: payroll.DeductionStatusActive,
	}
	finished := payroll.Deduction{
		ID: "ded-done", EmployeeID: "emp-1", Kind: payroll.DeductionKindDisciplinary, ScheduleType: payroll.ScheduleInstallments,
		TotalAmount: decimal.NewFromInt(300), AmountAlreadyDeducted: decimal.NewFromInt(150), AmountRemaining: decimal.NewFromInt(150),
		InstallmentCount: 2, PeriodsApplied: 1, StartYear: 2024, StartMonth: 1, Status: payroll.DeductionStatusActive,
	}
	seeded := []payroll.Deduction{drifted, finished}
	if err := gdb.Create(&seeded).Error; err != nil {
		t.Fatalf("seed deductions: %v", err)
	}
	apps := []payroll.DeductionApplication{
		{ID: "app-1", DeductionID: "ded-done", PeriodID: "per-1", EmployeeID: "emp-1", Kind: payroll.DeductionKindDisciplinary, Amount: decimal.NewFromInt(150)},
		{ID: "app-2", DeductionID: "ded-done", PeriodID: "per-2", EmployeeID: "emp-1", Kind: payroll.DeductionKindDisciplinary, Amount: decimal.NewFromInt(150), Completed: true},
	}
	if err := gdb.Create(&apps).Error; err != nil {
		t.Fatalf("seed applications: %v", err)
	}

	if err := db.Migrate(ctx, gdb, Migrations()); err != nil {
		t.Fatalf("restart migrate: %v", err)
	}

	var got payroll.Deduction
	if err := gdb.First(&got, "id = ?", "ded-drift").Error; err != nil {
		t.Fatalf("load drifted: %v", err)
	}
	if !got.AmountRemaining.Equal(decimal.NewFromInt(100)) || !got.AmountAlreadyDeducted.IsZero() {
		t.Fatalf("expected remaining 100 and nothing deducted, got remaining %s deducted %s", got.AmountRemaining, got.AmountAlreadyDeducted)
	}
	if got.Status != payroll.DeductionStatusActive {
		t.Fatalf("expected ACTIVE, got %s", got.Status)
	}

	if err := gdb.First(&got, "id = ?", "ded-done").Error; err != nil {
		t.Fatalf("load finished: %v", err)
	}
	if got.Status != payroll.DeductionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
	if !got.AmountRemaining.IsZero() || !got.AmountAlreadyDeducted.Equal(decimal.NewFromInt(300)) || got.PeriodsApplied != 2 {
		t.Fatalf("expected 300 deducted over 2 periods, got %s over %d (remaining %s)", got.AmountAlreadyDeducted, got.PeriodsApplied, got.AmountRemaining)
	}
	if got.CompletedPeriodID != "per-2" {
		t.Fatalf("expected completion in per-2, got %q", got.CompletedPeriodID)
	}
}
