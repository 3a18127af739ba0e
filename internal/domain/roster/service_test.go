package roster

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"guardhr/internal/domain/core"
	"guardhr/internal/platform/config"
	"guardhr/internal/platform/db"
)

func newTestService(t *testing.T) (*Service, *core.Store) {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "roster.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	if err := gdb.AutoMigrate(&core.Employee{}, &WeeklyAssignment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	coreStore := core.NewStore(gdb)
	return NewService(NewStore(gdb), coreStore, nil), coreStore
}

func createRoteur(t *testing.T, store *core.Store, matricule, status string) string {
	t.Helper()
	id, err := store.CreateEmployee(context.Background(), core.Employee{
		Matricule: matricule,
		FirstName: "Jean",
		LastName:  "Ndzi",
		Category:  core.CategoryRoteur,
		PayMode:   core.PayModeDaily,
		DailyRate: decimal.NewFromInt(4000),
		Status:    status,
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return id
}

func TestCreateAssignmentRejectsClash(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	empID := createRoteur(t, store, "R-100", core.EmployeeStatusActive)

	first, err := svc.Create(ctx, NewAssignment{EmployeeID: empID, Site: "Bank HQ", Weekdays: []string{"mon", "tue"}, StartDate: day("2024-01-01")}, "op-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Status != StatusActive || first.Weekdays != Monday|Tuesday {
		t.Fatalf("unexpected assignment: %+v", first)
	}

	_, err = svc.Create(ctx, NewAssignment{EmployeeID: empID, Site: "Port Gate", Weekdays: []string{"tue"}, StartDate: day("2024-02-01")}, "op-1")
	if !errors.Is(err, ErrAssignmentConflict) {
		t.Fatalf("expected ErrAssignmentConflict, got %v", err)
	}

	if _, err := svc.Create(ctx, NewAssignment{EmployeeID: empID, Site: "Port Gate", Weekdays: []string{"sat", "sun"}, StartDate: day("2024-02-01")}, "op-1"); err != nil {
		t.Fatalf("expected weekend posting to fit, got %v", err)
	}
}

func TestCreateAssignmentValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	active := createRoteur(t, store, "R-200", core.EmployeeStatusActive)
	suspended := createRoteur(t, store, "R-201", core.EmployeeStatusSuspended)

	if _, err := svc.Create(ctx, NewAssignment{EmployeeID: active, Weekdays: []string{"mon"}, StartDate: day("2024-01-01")}, "op-1"); !IsValidation(err) {
		t.Fatalf("expected validation error for missing site, got %v", err)
	}
	if _, err := svc.Create(ctx, NewAssignment{EmployeeID: active, Site: "Mall", Weekdays: []string{"mon"}, StartDate: day("2024-02-01"), EndDate: datePtr("2024-01-01")}, "op-1"); !IsValidation(err) {
		t.Fatalf("expected validation error for reversed dates, got %v", err)
	}
	if _, err := svc.Create(ctx, NewAssignment{EmployeeID: "missing", Site: "Mall", Weekdays: []string{"mon"}, StartDate: day("2024-01-01")}, "op-1"); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, NewAssignment{EmployeeID: suspended, Site: "Mall", Weekdays: []string{"mon"}, StartDate: day("2024-01-01")}, "op-1"); !errors.Is(err, ErrEmployeeInactive) {
		t.Fatalf("expected ErrEmployeeInactive, got %v", err)
	}
}

func TestEndAssignmentFreesDays(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	empID := createRoteur(t, store, "R-300", core.EmployeeStatusActive)

	a, err := svc.Create(ctx, NewAssignment{EmployeeID: empID, Site: "Bank HQ", Weekdays: []string{"all"}, StartDate: day("2024-01-01")}, "op-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.End(ctx, a.ID, day("2023-12-01"), "op-1"); !IsValidation(err) {
		t.Fatalf("expected validation error ending before start, got %v", err)
	}
	ended, err := svc.End(ctx, a.ID, day("2024-01-31"), "op-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != StatusEnded || ended.EndDate == nil {
		t.Fatalf("expected ended assignment with end date, got %+v", ended)
	}
	if _, err := svc.End(ctx, a.ID, day("2024-01-20"), "op-1"); !errors.Is(err, ErrAssignmentEnded) {
		t.Fatalf("expected ErrAssignmentEnded, got %v", err)
	}

	if _, err := svc.Create(ctx, NewAssignment{EmployeeID: empID, Site: "Mall", Weekdays: []string{"mon"}, StartDate: day("2024-02-01")}, "op-1"); err != nil {
		t.Fatalf("expected new posting after end date, got %v", err)
	}

	week, err := svc.Week(ctx, empID, day("2024-01-31"))
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	// 2024-01-29..2024-02-04: Bank HQ Mon..Wed, then Mall from Monday 2024-02-05 only
	if len(week.Days) != 3 || week.Days[2].Date != "2024-01-31" {
		t.Fatalf("expected 3 posted days ending 2024-01-31, got %+v", week.Days)
	}
}
