package payroll

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var registerColumns = []string{
	"matricule", "employee", "pay_mode", "days_worked", "base_salary", "daily_rate", "bonus",
	"gross", "pension", "unemployment", "training", "statutory_total", "taxable_base", "tax",
	"disciplinary", "advance", "other", "net", "arrears", "amount_payable", "currency", "warnings",
}

func registerRow(slip Payslip) []string {
	warnings := ""
	for i, w := range slip.Warnings {
		if i > 0 {
			warnings += ";"
		}
		warnings += w
	}
	return []string{
		slip.Matricule,
		slip.EmployeeName,
		string(slip.PayMode),
		slip.DaysWorked.StringFixed(2),
		slip.BaseSalary.StringFixed(2),
		slip.DailyRate.StringFixed(2),
		slip.Bonus.StringFixed(2),
		slip.GrossPay.StringFixed(2),
		slip.PensionDeduction.StringFixed(2),
		slip.UnemploymentDeduction.StringFixed(2),
		slip.TrainingDeduction.StringFixed(2),
		slip.StatutoryTotal.StringFixed(2),
		slip.TaxableBase.StringFixed(2),
		slip.Tax.StringFixed(2),
		slip.DisciplinaryDeductions.StringFixed(2),
		slip.AdvanceRepayment.StringFixed(2),
		slip.OtherDeductions.StringFixed(2),
		slip.NetPay.StringFixed(2),
		slip.Arrears.StringFixed(2),
		slip.AmountPayable.StringFixed(2),
		slip.Currency,
		warnings,
	}
}

func (s *Service) exportData(ctx context.Context, periodID string) (Period, []Payslip, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, nil, err
	}
	if period.Status == PeriodStatusDraft {
		return Period{}, nil, &StateError{Entity: "period", ID: period.ID, Status: string(period.Status), Action: "export"}
	}
	slips, err := s.store.ListPayslips(ctx, periodID)
	if err != nil {
		return Period{}, nil, err
	}
	return period, slips, nil
}

// WriteRegisterCSV writes one line per payslip of the period.
func (s *Service) WriteRegisterCSV(ctx context.Context, w io.Writer, periodID string) error {
	_, slips, err := s.exportData(ctx, periodID)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(registerColumns); err != nil {
		return err
	}
	for _, slip := range slips {
		if err := writer.Write(registerRow(slip)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJournalCSV writes the accounting entry of the period: gross pay as expense against
// the withholding liabilities and net cash. Debit and credit totals are equal.
func (s *Service) WriteJournalCSV(ctx context.Context, w io.Writer, periodID string) error {
	period, slips, err := s.exportData(ctx, periodID)
	if err != nil {
		return err
	}
	sum := summarize(period, slips)
	writer := csv.NewWriter(w)
	rows := [][]string{
		{"account", "debit", "credit"},
		{"Payroll Expense", sum.TotalGross.StringFixed(2), ""},
		{"Statutory Contributions Payable", "", sum.TotalStatutory.StringFixed(2)},
		{"Income Tax Payable", "", sum.TotalTax.StringFixed(2)},
		{"Employee Deductions", "", sum.TotalDeductions.StringFixed(2)},
		{"Payroll Cash", "", sum.TotalNet.StringFixed(2)},
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// RegisterXLSX renders the register as a workbook with a totals line.
func (s *Service) RegisterXLSX(ctx context.Context, periodID string) ([]byte, error) {
	period, slips, err := s.exportData(ctx, periodID)
	if err != nil {
		return nil, err
	}

	book := excelize.NewFile()
	defer book.Close()
	sheet := "Register " + period.Label()
	index, err := book.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	book.SetActiveSheet(index)
	if err := book.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	header := make([]any, len(registerColumns))
	for i, col := range registerColumns {
		header[i] = col
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, slip := range slips {
		row := registerRow(slip)
		values := make([]any, len(row))
		for j, cell := range row {
			values[j] = cell
		}
		// amount columns are written as numbers
		for j := 3; j <= 19; j++ {
			if f, err := decimal.NewFromString(row[j]); err == nil {
				values[j], _ = f.Float64()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := book.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	sum := summarize(period, slips)
	totalRow := len(slips) + 2
	totals := map[int]decimal.Decimal{
		8:  sum.TotalGross,
		12: sum.TotalStatutory,
		14: sum.TotalTax,
		18: sum.TotalNet,
		19: sum.TotalArrears,
	}
	label, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := book.SetCellValue(sheet, label, "TOTAL"); err != nil {
		return nil, err
	}
	for col, value := range totals {
		cell, _ := excelize.CoordinatesToCellName(col, totalRow)
		f, _ := value.Float64()
		if err := book.SetCellValue(sheet, cell, f); err != nil {
			return nil, err
		}
	}
	if err := book.SetColWidth(sheet, "A", "B", 20); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PayslipPDF renders one payslip. Only periods that have been calculated have payslips.
func (s *Service) PayslipPDF(ctx context.Context, periodID, employeeID string) ([]byte, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	slip, err := s.store.GetPayslip(ctx, periodID, employeeID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", slip.EmployeeName, slip.Matricule))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s    Status: %s", period.Label(), period.Status))
	pdf.Ln(10)

	line := func(label string, amount decimal.Decimal) {
		pdf.CellFormat(110, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, amount.StringFixed(2)+" "+slip.Currency, "", 1, "R", false, 0, "")
	}
	if slip.PayMode == PayModeDaily {
		pdf.Cell(0, 7, fmt.Sprintf("Days worked: %s at %s", slip.DaysWorked.StringFixed(2), slip.DailyRate.StringFixed(2)))
		pdf.Ln(7)
	} else {
		line("Base salary", slip.BaseSalary)
	}
	line("Bonus", slip.Bonus)
	pdf.SetFont("Helvetica", "B", 11)
	line("Gross pay", slip.GrossPay)
	pdf.SetFont("Helvetica", "", 11)
	line("Pension", slip.PensionDeduction.Neg())
	line("Unemployment", slip.UnemploymentDeduction.Neg())
	line("Training fund", slip.TrainingDeduction.Neg())
	line("Taxable base", slip.TaxableBase)
	line("Income tax", slip.Tax.Neg())
	line("Disciplinary deductions", slip.DisciplinaryDeductions.Neg())
	line("Advance repayment", slip.AdvanceRepayment.Neg())
	line("Other deductions", slip.OtherDeductions.Neg())
	pdf.SetFont("Helvetica", "B", 12)
	line("Net pay", slip.NetPay)
	if slip.Arrears.IsPositive() {
		pdf.SetFont("Helvetica", "", 11)
		line("Arrears (not taxed)", slip.Arrears)
		pdf.SetFont("Helvetica", "B", 12)
		line("Amount payable", slip.AmountPayable)
	}
	if slip.TaxFallback {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Cell(0, 6, "Tax computed with the built-in default table (not authoritative).")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
