package payroll

import "github.com/shopspring/decimal"

type StatutoryBreakdown struct {
	Pension      decimal.Decimal
	Unemployment decimal.Decimal
	Training     decimal.Decimal
}

func (b StatutoryBreakdown) Total() decimal.Decimal {
	return b.Pension.Add(b.Unemployment).Add(b.Training)
}

// Validate checks each rate is a fraction in [0, 1) and that together they leave a
// positive taxable base.
func (r StatutoryRates) Validate() error {
	rates := []struct {
		field string
		value decimal.Decimal
	}{
		{"pensionRate", r.PensionRate},
		{"unemploymentRate", r.UnemploymentRate},
		{"trainingRate", r.TrainingRate},
	}
	for _, rate := range rates {
		if rate.value.IsNegative() || rate.value.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return invalid(rate.field, "must be a fraction between 0 and 1")
		}
	}
	if r.Total().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return invalid("rates", "combined statutory rates must be below 1")
	}
	return nil
}

// ComputeStatutory applies the three independent rates to gross pay. Each component is
// rounded to currency precision on its own.
func ComputeStatutory(gross decimal.Decimal, rates StatutoryRates) (StatutoryBreakdown, error) {
	if gross.IsNegative() {
		return StatutoryBreakdown{}, invalid("grossPay", "must not be negative")
	}
	if err := rates.Validate(); err != nil {
		return StatutoryBreakdown{}, &ConfigurationError{Key: "statutory_rates", Reason: err.Error()}
	}
	return StatutoryBreakdown{
		Pension:      roundMoney(gross.Mul(rates.PensionRate)),
		Unemployment: roundMoney(gross.Mul(rates.UnemploymentRate)),
		Training:     roundMoney(gross.Mul(rates.TrainingRate)),
	}, nil
}
