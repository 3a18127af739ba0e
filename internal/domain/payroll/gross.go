package payroll

import "github.com/shopspring/decimal"

type GrossInput struct {
	PayMode    PayMode
	BaseSalary decimal.Decimal
	DailyRate  decimal.Decimal
	DaysWorked decimal.Decimal
	Bonus      decimal.Decimal
}

// ComputeGross returns base + bonus for MONTHLY pay and days x rate + bonus for DAILY
// pay. Arrears are never part of gross. The upper bound on days worked is enforced by
// the caller, which knows the period.
func ComputeGross(in GrossInput) (decimal.Decimal, error) {
	if in.BaseSalary.IsNegative() {
		return decimal.Zero, invalid("baseSalary", "must not be negative")
	}
	if in.DailyRate.IsNegative() {
		return decimal.Zero, invalid("dailyRate", "must not be negative")
	}
	if in.DaysWorked.IsNegative() {
		return decimal.Zero, invalid("daysWorked", "must not be negative")
	}
	if in.Bonus.IsNegative() {
		return decimal.Zero, invalid("bonus", "must not be negative")
	}

	switch in.PayMode {
	case PayModeMonthly:
		return roundMoney(in.BaseSalary.Add(in.Bonus)), nil
	case PayModeDaily:
		return roundMoney(in.DaysWorked.Mul(in.DailyRate).Add(in.Bonus)), nil
	default:
		return decimal.Zero, invalid("payMode", "must be MONTHLY or DAILY")
	}
}
