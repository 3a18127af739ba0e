package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guardhr/internal/domain/core"
	"guardhr/internal/requestctx"
)

type EmployeeLookup interface {
	GetEmployee(ctx context.Context, employeeID string) (*core.Employee, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type Service struct {
	store     *Store
	employees EmployeeLookup
	audit     AuditRecorder
}

func NewService(store *Store, employees EmployeeLookup, audit AuditRecorder) *Service {
	return &Service{store: store, employees: employees, audit: audit}
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, before, after any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actorID, action, "roster_assignment", entityID, requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.store.Count(ctx, filter)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]WeeklyAssignment, error) {
	return s.store.List(ctx, filter, limit, offset)
}

func (s *Service) Get(ctx context.Context, assignmentID string) (WeeklyAssignment, error) {
	return s.store.Get(ctx, assignmentID)
}

// Create posts an active employee to a site. It is rejected with ErrAssignmentConflict
// when the employee would be posted twice on the same day.
func (s *Service) Create(ctx context.Context, in NewAssignment, actorID string) (WeeklyAssignment, error) {
	site := strings.TrimSpace(in.Site)
	if site == "" {
		return WeeklyAssignment{}, invalid("site", "is required")
	}
	if in.StartDate.IsZero() {
		return WeeklyAssignment{}, invalid("startDate", "is required")
	}
	mask, err := ParseWeekdays(in.Weekdays)
	if err != nil {
		return WeeklyAssignment{}, err
	}
	start := DateOnly(in.StartDate)
	var end *time.Time
	if in.EndDate != nil {
		e := DateOnly(*in.EndDate)
		if e.Before(start) {
			return WeeklyAssignment{}, invalid("endDate", "must not be before startDate")
		}
		end = &e
	}

	emp, err := s.employees.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			return WeeklyAssignment{}, ErrEmployeeNotFound
		}
		return WeeklyAssignment{}, err
	}
	if emp.Status != core.EmployeeStatusActive {
		return WeeklyAssignment{}, ErrEmployeeInactive
	}

	candidate := WeeklyAssignment{
		EmployeeID: emp.ID,
		Site:       site,
		Weekdays:   mask,
		StartDate:  start,
		EndDate:    end,
		Status:     StatusActive,
		Note:       strings.TrimSpace(in.Note),
		CreatedBy:  actorID,
	}
	existing, err := s.store.ListForEmployee(ctx, emp.ID, start)
	if err != nil {
		return WeeklyAssignment{}, err
	}
	for _, other := range existing {
		if Overlaps(candidate, other) {
			return WeeklyAssignment{}, fmt.Errorf("%w: %s on %s from %s", ErrAssignmentConflict, other.Site, strings.Join(other.Weekdays.Names(), ","), other.StartDate.Format(dateLayout))
		}
	}

	id, err := s.store.Create(ctx, candidate)
	if err != nil {
		return WeeklyAssignment{}, err
	}
	created, err := s.store.Get(ctx, id)
	if err != nil {
		return WeeklyAssignment{}, err
	}
	s.record(ctx, actorID, "roster.assignment.create", id, nil, created)
	return created, nil
}

// End fixes the last day of an active assignment.
func (s *Service) End(ctx context.Context, assignmentID string, endDate time.Time, actorID string) (WeeklyAssignment, error) {
	before, err := s.store.Get(ctx, assignmentID)
	if err != nil {
		return WeeklyAssignment{}, err
	}
	if before.Status == StatusEnded {
		return WeeklyAssignment{}, ErrAssignmentEnded
	}
	end := DateOnly(endDate)
	if end.Before(DateOnly(before.StartDate)) {
		return WeeklyAssignment{}, invalid("endDate", "must not be before startDate")
	}
	if before.EndDate != nil && end.After(DateOnly(*before.EndDate)) {
		return WeeklyAssignment{}, invalid("endDate", "cannot extend a planned end date")
	}
	if err := s.store.End(ctx, assignmentID, end); err != nil {
		return WeeklyAssignment{}, err
	}
	after, err := s.store.Get(ctx, assignmentID)
	if err != nil {
		return WeeklyAssignment{}, err
	}
	s.record(ctx, actorID, "roster.assignment.end", assignmentID, before, after)
	return after, nil
}

// Week returns where the employee is posted during the week containing date.
func (s *Service) Week(ctx context.Context, employeeID string, date time.Time) (WeekSchedule, error) {
	if _, err := s.employees.GetEmployee(ctx, employeeID); err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			return WeekSchedule{}, ErrEmployeeNotFound
		}
		return WeekSchedule{}, err
	}
	day := DateOnly(date)
	monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	assignments, err := s.store.ListForEmployee(ctx, employeeID, monday)
	if err != nil {
		return WeekSchedule{}, err
	}
	return BuildWeek(employeeID, day, assignments), nil
}
