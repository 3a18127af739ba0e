package payroll

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func calculatedPeriod(t *testing.T) (*Service, Period) {
	t.Helper()
	svc, store, _ := newTestService(t)
	store.employees = append(store.employees, EmployeePayData{
		EmployeeID: "emp-2", Matricule: "R-002", Name: "Roving Guard", PayMode: PayModeDaily,
		DailyRate: dec("4000"), DaysWorked: decimal.NewNullDecimal(dec("20")),
	})
	ctx := context.Background()
	period := mustPeriod(t, svc, 2024, 3)
	if _, err := svc.CreateDeduction(ctx, NewDeduction{
		EmployeeID: "emp-2", Kind: DeductionKindAdvance, ScheduleType: ScheduleOneTime,
		TotalAmount: dec("1500"), StartYear: 2024, StartMonth: 3,
	}, testActor); err != nil {
		t.Fatalf("create deduction: %v", err)
	}
	calculated, err := svc.Calculate(ctx, period.ID, testActor)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	return svc, calculated
}

func TestExportRejectsDraftPeriod(t *testing.T) {
	svc, _, _ := newTestService(t)
	period := mustPeriod(t, svc, 2024, 1)
	var buf bytes.Buffer
	if err := svc.WriteRegisterCSV(context.Background(), &buf, period.ID); !IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestWriteRegisterCSV(t *testing.T) {
	svc, period := calculatedPeriod(t)
	var buf bytes.Buffer
	if err := svc.WriteRegisterCSV(context.Background(), &buf, period.ID); err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(registerColumns, ",") {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "G-001" || records[2][0] != "R-002" {
		t.Fatalf("expected rows ordered by matricule, got %s and %s", records[1][0], records[2][0])
	}
	if records[2][7] != "80000.00" || records[2][15] != "1500.00" {
		t.Fatalf("expected gross 80000.00 and advance 1500.00, got %s and %s", records[2][7], records[2][15])
	}
}

func TestWriteJournalCSVBalances(t *testing.T) {
	svc, period := calculatedPeriod(t)
	var buf bytes.Buffer
	if err := svc.WriteJournalCSV(context.Background(), &buf, period.ID); err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, row := range records[1:] {
		if row[1] != "" {
			debit = debit.Add(dec(row[1]))
		}
		if row[2] != "" {
			credit = credit.Add(dec(row[2]))
		}
	}
	if !debit.Equal(credit) || !debit.IsPositive() {
		t.Fatalf("expected balanced journal, got debit %s credit %s", debit, credit)
	}
}

func TestRegisterXLSX(t *testing.T) {
	svc, period := calculatedPeriod(t)
	data, err := svc.RegisterXLSX(context.Background(), period.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Register 2024-03")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header, 2 payslips and totals, got %d rows", len(rows))
	}
	if rows[3][0] != "TOTAL" {
		t.Fatalf("expected totals row, got %v", rows[3])
	}
}

func TestPayslipPDF(t *testing.T) {
	svc, period := calculatedPeriod(t)
	data, err := svc.PayslipPDF(context.Background(), period.ID, "emp-2")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
	if _, err := svc.PayslipPDF(context.Background(), period.ID, "ghost"); err != ErrPayslipNotFound {
		t.Fatalf("expected ErrPayslipNotFound, got %v", err)
	}
}
