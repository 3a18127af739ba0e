package payroll

import (
	"context"
	"sort"
	"time"
)

// fakeStore is an in-memory StoreAPI. InTx snapshots every table and restores it when fn
// fails.
type fakeStore struct {
	periods      map[string]Period
	employees    []EmployeePayData
	inputs       map[string]PayInput
	rates        *StatutoryRates
	brackets     []TaxBracket
	deductions   map[string]Deduction
	applications []DeductionApplication
	payslips     []Payslip

	failCreatePayslips error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		periods:    map[string]Period{},
		inputs:     map[string]PayInput{},
		deductions: map[string]Deduction{},
	}
}

type fakeSnapshot struct {
	periods      map[string]Period
	inputs       map[string]PayInput
	rates        *StatutoryRates
	brackets     []TaxBracket
	deductions   map[string]Deduction
	applications []DeductionApplication
	payslips     []Payslip
}

func (f *fakeStore) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		periods:      map[string]Period{},
		inputs:       map[string]PayInput{},
		deductions:   map[string]Deduction{},
		brackets:     append([]TaxBracket(nil), f.brackets...),
		applications: append([]DeductionApplication(nil), f.applications...),
		payslips:     append([]Payslip(nil), f.payslips...),
	}
	for k, v := range f.periods {
		snap.periods[k] = v
	}
	for k, v := range f.inputs {
		snap.inputs[k] = v
	}
	for k, v := range f.deductions {
		snap.deductions[k] = v
	}
	if f.rates != nil {
		rates := *f.rates
		snap.rates = &rates
	}
	return snap
}

func (f *fakeStore) restore(snap fakeSnapshot) {
	f.periods = snap.periods
	f.inputs = snap.inputs
	f.rates = snap.rates
	f.brackets = snap.brackets
	f.deductions = snap.deductions
	f.applications = snap.applications
	f.payslips = snap.payslips
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx StoreAPI) error) error {
	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) CreatePeriod(ctx context.Context, period Period) error {
	for _, p := range f.periods {
		if p.Year == period.Year && p.Month == period.Month {
			return ErrPeriodExists
		}
	}
	period.CreatedAt = time.Now()
	f.periods[period.ID] = period
	return nil
}

func (f *fakeStore) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	p, ok := f.periods[periodID]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (f *fakeStore) CountPeriods(ctx context.Context) (int, error) {
	return len(f.periods), nil
}

func (f *fakeStore) ListPeriods(ctx context.Context, limit, offset int) ([]Period, error) {
	var out []Period
	for _, p := range f.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return monthIndex(out[i].Year, out[i].Month) > monthIndex(out[j].Year, out[j].Month)
	})
	return out, nil
}

func (f *fakeStore) LaterCalculatedPeriod(ctx context.Context, year, month int) (*Period, error) {
	for _, p := range f.periods {
		if monthIndex(p.Year, p.Month) > monthIndex(year, month) && p.Status != PeriodStatusDraft {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LatestCalculatedPeriod(ctx context.Context) (*Period, error) {
	var latest *Period
	for _, p := range f.periods {
		if p.Status == PeriodStatusDraft {
			continue
		}
		if latest == nil || monthIndex(p.Year, p.Month) > monthIndex(latest.Year, latest.Month) {
			found := p
			latest = &found
		}
	}
	return latest, nil
}

func (f *fakeStore) MarkInputsChanged(ctx context.Context, periodID string, at time.Time) error {
	p, ok := f.periods[periodID]
	if !ok || p.Status != PeriodStatusCalculated {
		return nil
	}
	p.InputsChangedAt = &at
	f.periods[periodID] = p
	return nil
}

func (f *fakeStore) UpdatePeriodStatus(ctx context.Context, t PeriodTransition) error {
	p, ok := f.periods[t.PeriodID]
	if !ok || p.Status != t.From || (t.To == PeriodStatusValidated && p.InputsChangedAt != nil) {
		return ErrStatusChanged
	}
	p.Status = t.To
	at := t.At
	switch t.To {
	case PeriodStatusCalculated:
		p.CalculatedBy, p.CalculatedAt, p.TaxFallback = t.By, &at, t.TaxFallback
		p.InputsChangedAt = nil
	case PeriodStatusValidated:
		p.ValidatedBy, p.ValidatedAt = t.By, &at
	case PeriodStatusLocked:
		p.LockedBy, p.LockedAt = t.By, &at
	}
	f.periods[t.PeriodID] = p
	return nil
}

func (f *fakeStore) ListEligibleEmployees(ctx context.Context, year, month int) ([]EmployeePayData, error) {
	return append([]EmployeePayData(nil), f.employees...), nil
}

func (f *fakeStore) EmployeeExists(ctx context.Context, employeeID string) (bool, error) {
	for _, e := range f.employees {
		if e.EmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListPayInputs(ctx context.Context, periodID string) ([]PayInput, error) {
	var out []PayInput
	for _, in := range f.inputs {
		if in.PeriodID == periodID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertPayInput(ctx context.Context, input PayInput) error {
	f.inputs[input.PeriodID+"/"+input.EmployeeID] = input
	return nil
}

func (f *fakeStore) GetStatutoryRates(ctx context.Context) (*StatutoryRates, error) {
	if f.rates == nil {
		return nil, nil
	}
	rates := *f.rates
	return &rates, nil
}

func (f *fakeStore) SaveStatutoryRates(ctx context.Context, rates StatutoryRates) error {
	f.rates = &rates
	return nil
}

func (f *fakeStore) ListTaxBrackets(ctx context.Context) ([]TaxBracket, error) {
	return append([]TaxBracket(nil), f.brackets...), nil
}

func (f *fakeStore) ReplaceTaxBrackets(ctx context.Context, brackets []TaxBracket) error {
	f.brackets = append([]TaxBracket(nil), brackets...)
	return nil
}

func (f *fakeStore) CreateDeduction(ctx context.Context, d Deduction) error {
	d.CreatedAt = time.Now()
	f.deductions[d.ID] = d
	return nil
}

func (f *fakeStore) GetDeduction(ctx context.Context, deductionID string) (Deduction, error) {
	d, ok := f.deductions[deductionID]
	if !ok {
		return Deduction{}, ErrDeductionNotFound
	}
	return d, nil
}

func (f *fakeStore) CountDeductions(ctx context.Context, filter DeductionFilter) (int, error) {
	list, _ := f.ListDeductions(ctx, filter, 0, 0)
	return len(list), nil
}

func (f *fakeStore) ListDeductions(ctx context.Context, filter DeductionFilter, limit, offset int) ([]Deduction, error) {
	var out []Deduction
	for _, d := range f.deductions {
		if filter.EmployeeID != "" && d.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && d.Kind != filter.Kind {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListActiveDeductions(ctx context.Context) ([]Deduction, error) {
	return f.ListDeductions(ctx, DeductionFilter{Status: DeductionStatusActive}, 0, 0)
}

func (f *fakeStore) SaveDeduction(ctx context.Context, d Deduction) error {
	if _, ok := f.deductions[d.ID]; !ok {
		return ErrDeductionNotFound
	}
	f.deductions[d.ID] = d
	return nil
}

func (f *fakeStore) ListApplications(ctx context.Context, periodID string) ([]DeductionApplication, error) {
	var out []DeductionApplication
	for _, app := range f.applications {
		if app.PeriodID == periodID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDeductionApplications(ctx context.Context, deductionID string) ([]DeductionApplication, error) {
	var out []DeductionApplication
	for _, app := range f.applications {
		if app.DeductionID == deductionID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateApplications(ctx context.Context, apps []DeductionApplication) error {
	f.applications = append(f.applications, apps...)
	return nil
}

func (f *fakeStore) DeleteApplications(ctx context.Context, periodID string) error {
	kept := f.applications[:0:0]
	for _, app := range f.applications {
		if app.PeriodID != periodID {
			kept = append(kept, app)
		}
	}
	f.applications = kept
	return nil
}

func (f *fakeStore) CreatePayslips(ctx context.Context, slips []Payslip) error {
	if f.failCreatePayslips != nil {
		return f.failCreatePayslips
	}
	f.payslips = append(f.payslips, slips...)
	return nil
}

func (f *fakeStore) DeletePayslips(ctx context.Context, periodID string) error {
	kept := f.payslips[:0:0]
	for _, slip := range f.payslips {
		if slip.PeriodID != periodID {
			kept = append(kept, slip)
		}
	}
	f.payslips = kept
	return nil
}

func (f *fakeStore) ListPayslips(ctx context.Context, periodID string) ([]Payslip, error) {
	var out []Payslip
	for _, slip := range f.payslips {
		if slip.PeriodID == periodID {
			out = append(out, slip)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Matricule < out[j].Matricule })
	return out, nil
}

func (f *fakeStore) GetPayslip(ctx context.Context, periodID, employeeID string) (Payslip, error) {
	for _, slip := range f.payslips {
		if slip.PeriodID == periodID && slip.EmployeeID == employeeID {
			return slip, nil
		}
	}
	return Payslip{}, ErrPayslipNotFound
}

type fakeAudit struct {
	actions []string
}

func (a *fakeAudit) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	a.actions = append(a.actions, action)
	return nil
}
