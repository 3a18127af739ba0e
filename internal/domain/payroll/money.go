package payroll

import "github.com/shopspring/decimal"

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ParseAmount parses a user-supplied money or rate string.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalid(field, "must be a decimal number")
	}
	return value, nil
}
