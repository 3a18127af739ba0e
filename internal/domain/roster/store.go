package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardhr/internal/platform/db"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{DB: gdb}
}

func (s *Store) filtered(ctx context.Context, filter Filter) *gorm.DB {
	query := s.DB.WithContext(ctx).Model(&WeeklyAssignment{})
	if filter.EmployeeID != "" {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.Site != "" {
		query = query.Where("site = ?", filter.Site)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	var total int64
	if err := s.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]WeeklyAssignment, error) {
	var out []WeeklyAssignment
	err := s.filtered(ctx, filter).Order("start_date DESC, created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

// ListForEmployee returns every assignment of the employee that has not ended before from.
func (s *Store) ListForEmployee(ctx context.Context, employeeID string, from time.Time) ([]WeeklyAssignment, error) {
	var out []WeeklyAssignment
	err := s.DB.WithContext(ctx).
		Where("employee_id = ? AND (end_date IS NULL OR end_date >= ?)", employeeID, from).
		Order("start_date ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) Get(ctx context.Context, assignmentID string) (WeeklyAssignment, error) {
	var a WeeklyAssignment
	if err := s.DB.WithContext(ctx).First(&a, "id = ?", assignmentID).Error; err != nil {
		if db.IsNotFound(err) {
			return WeeklyAssignment{}, ErrAssignmentNotFound
		}
		return WeeklyAssignment{}, err
	}
	return a, nil
}

func (s *Store) Create(ctx context.Context, a WeeklyAssignment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(&a).Error; err != nil {
		return "", err
	}
	return a.ID, nil
}

// End closes an active assignment. Zero rows means it was ended or removed meanwhile.
func (s *Store) End(ctx context.Context, assignmentID string, endDate time.Time) error {
	res := s.DB.WithContext(ctx).Model(&WeeklyAssignment{}).
		Where("id = ? AND status = ?", assignmentID, StatusActive).
		Updates(map[string]any{"end_date": endDate, "status": StatusEnded, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAssignmentEnded
	}
	return nil
}
