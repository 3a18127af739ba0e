package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"guardhr/internal/platform/db"
)

// FieldCipher seals identity columns at rest.
type FieldCipher interface {
	Seal(value string) (string, error)
	Open(value string) (string, error)
}

type Store struct {
	DB     *gorm.DB
	cipher FieldCipher
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{DB: gdb}
}

// WithCipher makes the store seal national IDs on write and open them on read.
func (s *Store) WithCipher(c FieldCipher) *Store {
	s.cipher = c
	return s
}

func (s *Store) seal(emp *Employee) error {
	if s.cipher == nil {
		return nil
	}
	sealed, err := s.cipher.Seal(emp.NationalID)
	if err != nil {
		return fmt.Errorf("seal national id: %w", err)
	}
	emp.NationalID = sealed
	return nil
}

func (s *Store) open(emp *Employee) error {
	if s.cipher == nil {
		return nil
	}
	plain, err := s.cipher.Open(emp.NationalID)
	if err != nil {
		return fmt.Errorf("open national id of %s: %w", emp.Matricule, err)
	}
	emp.NationalID = plain
	return nil
}

func (s *Store) filtered(ctx context.Context, filter EmployeeFilter) *gorm.DB {
	query := s.DB.WithContext(ctx).Model(&Employee{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(matricule) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}
	return query
}

func (s *Store) CountEmployees(ctx context.Context, filter EmployeeFilter) (int, error) {
	var total int64
	if err := s.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *Store) ListEmployees(ctx context.Context, filter EmployeeFilter, limit, offset int) ([]Employee, error) {
	var out []Employee
	if err := s.filtered(ctx, filter).Order("matricule ASC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.open(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	var emp Employee
	if err := s.DB.WithContext(ctx).First(&emp, "id = ?", employeeID).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	if err := s.open(&emp); err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) GetEmployeeByMatricule(ctx context.Context, matricule string) (*Employee, error) {
	var emp Employee
	if err := s.DB.WithContext(ctx).First(&emp, "matricule = ?", matricule).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	if err := s.open(&emp); err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if err := s.seal(&emp); err != nil {
		return "", err
	}
	if err := s.DB.WithContext(ctx).Create(&emp).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return "", ErrMatriculeExists
		}
		return "", err
	}
	return emp.ID, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, emp Employee) error {
	if err := s.seal(&emp); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Model(&Employee{}).Where("id = ?", emp.ID).Updates(map[string]any{
		"matricule":   emp.Matricule,
		"first_name":  emp.FirstName,
		"last_name":   emp.LastName,
		"category":    emp.Category,
		"pay_mode":    emp.PayMode,
		"base_salary": emp.BaseSalary,
		"daily_rate":  emp.DailyRate,
		"status":      emp.Status,
		"hire_date":   emp.HireDate,
		"phone":       emp.Phone,
		"national_id": emp.NationalID,
	})
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error) {
			return ErrMatriculeExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// UpsertAttendance replaces the days-worked count of one employee for one month.
func (s *Store) UpsertAttendance(ctx context.Context, rec Attendance) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"days_worked", "source", "updated_by", "updated_at"}),
	}).Create(&rec).Error
}

func (s *Store) GetAttendance(ctx context.Context, employeeID string, year, month int) (*Attendance, error) {
	var rec Attendance
	err := s.DB.WithContext(ctx).First(&rec, "employee_id = ? AND year = ? AND month = ?", employeeID, year, month).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListAttendance(ctx context.Context, year, month int) ([]Attendance, error) {
	var out []Attendance
	err := s.DB.WithContext(ctx).Where("year = ? AND month = ?", year, month).Order("employee_id").Find(&out).Error
	return out, err
}

func (s *Store) ListEmergencyContacts(ctx context.Context, employeeID string) ([]EmergencyContact, error) {
	var out []EmergencyContact
	err := s.DB.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("is_primary DESC, created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) ReplaceEmergencyContacts(ctx context.Context, employeeID string, contacts []EmergencyContact) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employeeID).Delete(&EmergencyContact{}).Error; err != nil {
			return fmt.Errorf("clear emergency contacts: %w", err)
		}
		for _, contact := range contacts {
			if contact.FullName == "" || contact.Relationship == "" {
				continue
			}
			contact.ID = uuid.NewString()
			contact.EmployeeID = employeeID
			if err := tx.Create(&contact).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) EmployeeExists(ctx context.Context, employeeID string) (bool, error) {
	_, err := s.GetEmployee(ctx, employeeID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return false, nil
	}
	return err == nil, err
}
