package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	ActorID    string          `gorm:"size:36;index" json:"actorId"`
	Action     string          `gorm:"size:64;not null;index" json:"action"`
	EntityType string          `gorm:"size:64;not null;index:idx_audit_entity" json:"entityType"`
	EntityID   string          `gorm:"size:36;index:idx_audit_entity" json:"entityId"`
	RequestID  string          `gorm:"size:64" json:"requestId"`
	IP         string          `gorm:"size:64" json:"ip"`
	Before     json.RawMessage `gorm:"type:text" json:"before,omitempty"`
	After      json.RawMessage `gorm:"type:text" json:"after,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"createdAt"`
}

func (Event) TableName() string { return "audit_events" }

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
}

type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	evt := Event{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID,
		IP:         ip,
	}
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		evt.Before = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		evt.After = payload
	}
	return s.DB.WithContext(ctx).Create(&evt).Error
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	var total int64
	if err := s.filtered(ctx, filter).Model(&Event{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// List returns events newest first. Before/after payloads are only loaded when
// includeDetails is set.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	query := s.filtered(ctx, filter)
	if !includeDetails {
		query = query.Omit("before", "after")
	}
	var out []Event
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

func (s *Service) filtered(ctx context.Context, filter Filter) *gorm.DB {
	query := s.DB.WithContext(ctx)
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	return query
}
