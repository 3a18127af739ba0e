package server

import (
	"gorm.io/gorm"

	"guardhr/internal/domain/audit"
	"guardhr/internal/domain/auth"
	"guardhr/internal/domain/core"
	"guardhr/internal/domain/payroll"
	"guardhr/internal/domain/roster"
	"guardhr/internal/platform/db"
)

// Migrations is the ordered schema history. Append new steps; never edit applied ones.
// The ledger repair is repeatable and re-checks every deduction on each start.
func Migrations() []db.Migration {
	return []db.Migration{
		{Version: "0001_schema", Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&auth.Operator{},
				&core.Employee{},
				&core.Attendance{},
				&core.EmergencyContact{},
				&payroll.Period{},
				&payroll.Payslip{},
				&payroll.Deduction{},
				&payroll.DeductionApplication{},
				&payroll.StatutoryRates{},
				&payroll.TaxBracket{},
				&payroll.PayInput{},
				&roster.WeeklyAssignment{},
				&audit.Event{},
			)
		}},
		{Version: "0002_repair_deduction_ledger", Up: payroll.RepairDeductionLedger, Repeatable: true},
		{Version: "0003_period_inputs_changed_at", Up: func(tx *gorm.DB) error {
			if tx.Migrator().HasColumn(&payroll.Period{}, "InputsChangedAt") {
				return nil
			}
			return tx.Migrator().AddColumn(&payroll.Period{}, "InputsChangedAt")
		}},
	}
}
