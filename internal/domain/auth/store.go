package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardhr/internal/platform/db"
)

type Operator struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	DisplayName  string     `gorm:"size:200" json:"displayName"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         string     `gorm:"size:16;not null" json:"role"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (Operator) TableName() string { return "operators" }

type Store struct {
	DB *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{DB: gdb}
}

func (s *Store) FindActiveByUsername(ctx context.Context, username string) (Operator, error) {
	var out Operator
	err := s.DB.WithContext(ctx).Where("username = ? AND active = ?", username, true).First(&out).Error
	if db.IsNotFound(err) {
		return Operator{}, ErrOperatorNotFound
	}
	return out, err
}

func (s *Store) Get(ctx context.Context, operatorID string) (Operator, error) {
	var out Operator
	err := s.DB.WithContext(ctx).First(&out, "id = ?", operatorID).Error
	if db.IsNotFound(err) {
		return Operator{}, ErrOperatorNotFound
	}
	return out, err
}

func (s *Store) List(ctx context.Context) ([]Operator, error) {
	var out []Operator
	err := s.DB.WithContext(ctx).Order("username ASC").Find(&out).Error
	return out, err
}

func (s *Store) Create(ctx context.Context, op Operator) (string, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(&op).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return "", ErrUsernameTaken
		}
		return "", err
	}
	return op.ID, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&Operator{}).Count(&total).Error
	return int(total), err
}

func (s *Store) UpdateLastLogin(ctx context.Context, operatorID string) error {
	return s.DB.WithContext(ctx).Model(&Operator{}).Where("id = ?", operatorID).Update("last_login_at", time.Now().UTC()).Error
}

func (s *Store) UpdatePassword(ctx context.Context, operatorID, hash string) error {
	res := s.DB.WithContext(ctx).Model(&Operator{}).Where("id = ?", operatorID).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOperatorNotFound
	}
	return nil
}

func (s *Store) SetActive(ctx context.Context, operatorID string, active bool) error {
	res := s.DB.WithContext(ctx).Model(&Operator{}).Where("id = ?", operatorID).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOperatorNotFound
	}
	return nil
}
