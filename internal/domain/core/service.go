package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) CountEmployees(ctx context.Context, filter EmployeeFilter) (int, error) {
	return s.store.CountEmployees(ctx, filter)
}

func (s *Service) ListEmployees(ctx context.Context, filter EmployeeFilter, limit, offset int) ([]Employee, error) {
	return s.store.ListEmployees(ctx, filter, limit, offset)
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	return s.store.GetEmployee(ctx, employeeID)
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	if err := normalizeEmployee(&emp); err != nil {
		return "", err
	}
	return s.store.CreateEmployee(ctx, emp)
}

func (s *Service) UpdateEmployee(ctx context.Context, emp Employee) error {
	if err := normalizeEmployee(&emp); err != nil {
		return err
	}
	return s.store.UpdateEmployee(ctx, emp)
}

func normalizeEmployee(emp *Employee) error {
	emp.Matricule = strings.ToUpper(strings.TrimSpace(emp.Matricule))
	emp.FirstName = strings.TrimSpace(emp.FirstName)
	emp.LastName = strings.TrimSpace(emp.LastName)
	emp.Category = strings.ToLower(strings.TrimSpace(emp.Category))
	emp.PayMode = strings.ToUpper(strings.TrimSpace(emp.PayMode))
	emp.Status = strings.ToLower(strings.TrimSpace(emp.Status))

	if emp.Matricule == "" {
		return invalid("matricule", "is required")
	}
	if emp.FirstName == "" || emp.LastName == "" {
		return invalid("name", "first and last name are required")
	}
	if !validCategories[emp.Category] {
		return invalid("category", "must be guard, roteur, supervisor or staff")
	}
	if !validStatuses[emp.Status] {
		return invalid("status", "must be active, suspended or terminated")
	}
	if emp.BaseSalary.IsNegative() || emp.DailyRate.IsNegative() {
		return invalid("salary", "must not be negative")
	}
	switch emp.PayMode {
	case PayModeMonthly:
		if !emp.BaseSalary.IsPositive() {
			return invalid("baseSalary", "is required for MONTHLY pay")
		}
	case PayModeDaily:
		if !emp.DailyRate.IsPositive() {
			return invalid("dailyRate", "is required for DAILY pay")
		}
	default:
		return invalid("payMode", "must be MONTHLY or DAILY")
	}
	return nil
}

// ValidateDaysWorked bounds a days-worked count by the calendar length of the month.
func ValidateDaysWorked(year, month int, days decimal.Decimal) error {
	if month < 1 || month > 12 {
		return invalid("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return invalid("year", "is out of range")
	}
	if days.IsNegative() {
		return invalid("daysWorked", "must not be negative")
	}
	if days.GreaterThan(decimal.NewFromInt(int64(DaysInMonth(year, month)))) {
		return invalid("daysWorked", fmt.Sprintf("exceeds the %d days of %04d-%02d", DaysInMonth(year, month), year, month))
	}
	return nil
}

func (s *Service) SetAttendance(ctx context.Context, employeeID string, year, month int, days decimal.Decimal, actorID string) (Attendance, error) {
	if err := ValidateDaysWorked(year, month, days); err != nil {
		return Attendance{}, err
	}
	if _, err := s.store.GetEmployee(ctx, employeeID); err != nil {
		return Attendance{}, err
	}
	rec := Attendance{
		EmployeeID: employeeID,
		Year:       year,
		Month:      month,
		DaysWorked: days.Round(2),
		Source:     AttendanceSourceManual,
		UpdatedBy:  actorID,
	}
	if err := s.store.UpsertAttendance(ctx, rec); err != nil {
		return Attendance{}, err
	}
	return rec, nil
}

func (s *Service) GetAttendance(ctx context.Context, employeeID string, year, month int) (*Attendance, error) {
	return s.store.GetAttendance(ctx, employeeID, year, month)
}

func (s *Service) ListAttendance(ctx context.Context, year, month int) ([]Attendance, error) {
	return s.store.ListAttendance(ctx, year, month)
}

// ImportAttendance reads the first sheet of an XLSX workbook with the columns
// matricule, year, month, days worked. A header row is detected and skipped. Bad rows are
// reported and skipped; good rows are upserted.
func (s *Service) ImportAttendance(ctx context.Context, r io.Reader, actorID string) (ImportResult, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, invalid("file", "not a readable XLSX workbook")
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, ErrImportEmpty
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && isHeaderCell(rows[0][0]) {
		start = 1
	}
	if len(rows) <= start {
		return ImportResult{}, ErrImportEmpty
	}

	result := ImportResult{Errors: []ImportRowError{}}
	for i := start; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		if blankRow(row) {
			result.Skipped++
			continue
		}
		rec, err := s.parseAttendanceRow(ctx, row)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: line, Reason: err.Error()})
			continue
		}
		rec.Source = AttendanceSourceImport
		rec.UpdatedBy = actorID
		if err := s.store.UpsertAttendance(ctx, rec); err != nil {
			return result, fmt.Errorf("row %d: %w", line, err)
		}
		result.Imported++
	}
	return result, nil
}

func (s *Service) parseAttendanceRow(ctx context.Context, row []string) (Attendance, error) {
	if len(row) < 4 {
		return Attendance{}, errors.New("expected matricule, year, month and days worked")
	}
	matricule := strings.ToUpper(strings.TrimSpace(row[0]))
	year, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil {
		return Attendance{}, invalid("year", "must be a whole number")
	}
	month, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return Attendance{}, invalid("month", "must be a whole number")
	}
	days, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(row[3], ",", ".")))
	if err != nil {
		return Attendance{}, invalid("daysWorked", "must be a number")
	}
	if err := ValidateDaysWorked(year, month, days); err != nil {
		return Attendance{}, err
	}
	emp, err := s.store.GetEmployeeByMatricule(ctx, matricule)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return Attendance{}, fmt.Errorf("unknown matricule %q", matricule)
		}
		return Attendance{}, err
	}
	return Attendance{EmployeeID: emp.ID, Year: year, Month: month, DaysWorked: days.Round(2)}, nil
}

func isHeaderCell(cell string) bool {
	value := strings.ToLower(strings.TrimSpace(cell))
	return value == "matricule" || value == "employee" || value == "id"
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (s *Service) ListEmergencyContacts(ctx context.Context, employeeID string) ([]EmergencyContact, error) {
	return s.store.ListEmergencyContacts(ctx, employeeID)
}

func (s *Service) ReplaceEmergencyContacts(ctx context.Context, employeeID string, contacts []EmergencyContact) error {
	if _, err := s.store.GetEmployee(ctx, employeeID); err != nil {
		return err
	}
	primaries := 0
	for _, contact := range contacts {
		if contact.IsPrimary {
			primaries++
		}
	}
	if primaries > 1 {
		return invalid("contacts", "only one primary contact is allowed")
	}
	return s.store.ReplaceEmergencyContacts(ctx, employeeID, contacts)
}
