package payroll

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

// TaxSchedule is the bracket table a calculation runs against. Fallback is set when no
// table was configured and the built-in default was substituted.
type TaxSchedule struct {
	Brackets []TaxBracket
	Fallback bool
}

// fallbackBrackets is a simplified three-tier table used only when nothing is
// configured. It is not an authoritative tax table.
func fallbackBrackets() []TaxBracket {
	return []TaxBracket{
		{Position: 0, Min: decimal.Zero, Max: decimal.NewNullDecimal(decimal.NewFromInt(72000)), Rate: decimal.Zero},
		{Position: 1, Min: decimal.NewFromInt(72000), Max: decimal.NewNullDecimal(decimal.NewFromInt(288000)), Rate: decimal.RequireFromString("0.10")},
		{Position: 2, Min: decimal.NewFromInt(288000), Rate: decimal.RequireFromString("0.15")},
	}
}

// ResolveTaxSchedule returns the configured brackets, or the fallback table when none are
// configured and strict is false.
func ResolveTaxSchedule(configured []TaxBracket, strict bool) (TaxSchedule, error) {
	if len(configured) > 0 {
		if err := ValidateBrackets(configured); err != nil {
			return TaxSchedule{}, &ConfigurationError{Key: "tax_brackets", Reason: err.Error()}
		}
		return TaxSchedule{Brackets: configured}, nil
	}
	if strict {
		return TaxSchedule{}, &ConfigurationError{Key: "tax_brackets", Reason: "no tax brackets configured"}
	}
	slog.Warn("no tax brackets configured, using built-in fallback table (default, not authoritative)")
	return TaxSchedule{Brackets: fallbackBrackets(), Fallback: true}, nil
}

// ValidateBrackets requires an ordered partition: the first bracket starts at 0, each
// bracket starts where the previous one ends, only the last may be unbounded, and rates
// are fractions in [0, 1].
func ValidateBrackets(brackets []TaxBracket) error {
	if len(brackets) == 0 {
		return invalid("brackets", "at least one bracket is required")
	}
	sorted := sortedBrackets(brackets)
	if !sorted[0].Min.IsZero() {
		return invalid("brackets[0].min", "first bracket must start at 0")
	}
	one := decimal.NewFromInt(1)
	for i, b := range sorted {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return invalid("brackets.rate", "must be a fraction between 0 and 1")
		}
		last := i == len(sorted)-1
		if !b.Max.Valid {
			if !last {
				return invalid("brackets.max", "only the last bracket may be unbounded")
			}
			continue
		}
		if !b.Max.Decimal.GreaterThan(b.Min) {
			return invalid("brackets.max", "must be greater than min")
		}
		if !last && !sorted[i+1].Min.Equal(b.Max.Decimal) {
			return invalid("brackets.min", "brackets must be contiguous and non-overlapping")
		}
	}
	return nil
}

// ComputeProgressiveTax integrates the marginal rates over the taxable base: only the
// slice of income inside each bracket is taxed at that bracket's rate.
func ComputeProgressiveTax(taxable decimal.Decimal, brackets []TaxBracket) decimal.Decimal {
	if !taxable.IsPositive() {
		return decimal.Zero
	}
	tax := decimal.Zero
	for _, b := range sortedBrackets(brackets) {
		if b.Min.GreaterThanOrEqual(taxable) {
			break
		}
		upper := taxable
		if b.Max.Valid && b.Max.Decimal.LessThan(upper) {
			upper = b.Max.Decimal
		}
		if !upper.GreaterThan(b.Min) {
			continue
		}
		tax = tax.Add(upper.Sub(b.Min).Mul(b.Rate))
	}
	return roundMoney(tax)
}

func sortedBrackets(brackets []TaxBracket) []TaxBracket {
	out := make([]TaxBracket, len(brackets))
	copy(out, brackets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Min.LessThan(out[j].Min) })
	return out
}
