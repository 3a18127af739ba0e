package payroll

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// DefaultStatutoryRates are the seed values for a fresh install: pension 5%,
// unemployment 1.5%, training fund 0.5%.
func DefaultStatutoryRates() StatutoryRates {
	return StatutoryRates{
		ID:               statutoryRatesRowID,
		PensionRate:      decimal.RequireFromString("0.05"),
		UnemploymentRate: decimal.RequireFromString("0.015"),
		TrainingRate:     decimal.RequireFromString("0.005"),
	}
}

type TaxTable struct {
	Brackets   []TaxBracket `json:"brackets"`
	Configured bool         `json:"configured"`
	Fallback   bool         `json:"fallback"`
}

func (s *Service) GetStatutoryRates(ctx context.Context) (StatutoryRates, error) {
	rates, err := s.store.GetStatutoryRates(ctx)
	if err != nil {
		return StatutoryRates{}, err
	}
	if rates == nil {
		return StatutoryRates{}, &ConfigurationError{Key: "statutory_rates", Reason: "no statutory rates configured"}
	}
	return *rates, nil
}

// SetStatutoryRates replaces the rates. Payslips already calculated keep the rates they
// were calculated with until their period is recalculated.
func (s *Service) SetStatutoryRates(ctx context.Context, rates StatutoryRates, actor Actor) (StatutoryRates, error) {
	if err := rates.Validate(); err != nil {
		return StatutoryRates{}, err
	}
	before, err := s.store.GetStatutoryRates(ctx)
	if err != nil {
		return StatutoryRates{}, err
	}
	rates.ID = statutoryRatesRowID
	rates.UpdatedBy = actor.OperatorID
	rates.UpdatedAt = s.now()
	if err := s.store.SaveStatutoryRates(ctx, rates); err != nil {
		return StatutoryRates{}, err
	}
	s.record(ctx, actor, "payroll.config.rates", "statutory_rates", "1", before, rates)
	return rates, nil
}

// EnsureDefaultRates seeds the statutory rates when none exist yet.
func (s *Service) EnsureDefaultRates(ctx context.Context) (bool, error) {
	rates, err := s.store.GetStatutoryRates(ctx)
	if err != nil {
		return false, err
	}
	if rates != nil {
		return false, nil
	}
	defaults := DefaultStatutoryRates()
	defaults.UpdatedAt = s.now()
	if err := s.store.SaveStatutoryRates(ctx, defaults); err != nil {
		return false, err
	}
	slog.Info("seeded default statutory rates")
	return true, nil
}

// GetTaxTable returns the configured brackets, or the built-in fallback with Fallback set
// when none are configured.
func (s *Service) GetTaxTable(ctx context.Context) (TaxTable, error) {
	brackets, err := s.store.ListTaxBrackets(ctx)
	if err != nil {
		return TaxTable{}, err
	}
	if len(brackets) > 0 {
		return TaxTable{Brackets: brackets, Configured: true}, nil
	}
	if s.settings.StrictTaxTables {
		return TaxTable{Brackets: []TaxBracket{}}, nil
	}
	return TaxTable{Brackets: fallbackBrackets(), Fallback: true}, nil
}

func (s *Service) SetTaxBrackets(ctx context.Context, brackets []TaxBracket, actor Actor) (TaxTable, error) {
	if err := ValidateBrackets(brackets); err != nil {
		return TaxTable{}, err
	}
	before, err := s.store.ListTaxBrackets(ctx)
	if err != nil {
		return TaxTable{}, err
	}
	sorted := sortedBrackets(brackets)
	if err := s.store.ReplaceTaxBrackets(ctx, sorted); err != nil {
		return TaxTable{}, err
	}
	s.record(ctx, actor, "payroll.config.brackets", "tax_brackets", "", before, sorted)
	return s.GetTaxTable(ctx)
}
