package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Migration is one versioned schema or data-repair step. Steps run in version order,
// each inside its own transaction, and are recorded in schema_migrations so they are
// applied exactly once. A Repeatable step runs on every Migrate and must be idempotent.
type Migration struct {
	Version    string
	Up         func(tx *gorm.DB) error
	Repeatable bool
}

type schemaMigration struct {
	Version   string `gorm:"primaryKey;size:64"`
	AppliedAt time.Time
}

func (schemaMigration) TableName() string { return "schema_migrations" }

func Migrate(ctx context.Context, gdb *gorm.DB, migrations []Migration) error {
	if err := gdb.WithContext(ctx).AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for _, m := range ordered {
		applied, err := migrationApplied(ctx, gdb, m.Version)
		if err != nil {
			return err
		}
		if applied && !m.Repeatable {
			continue
		}

		err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			if applied {
				return tx.Model(&schemaMigration{}).Where("version = ?", m.Version).Update("applied_at", time.Now().UTC()).Error
			}
			return tx.Create(&schemaMigration{Version: m.Version, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
		if !applied {
			slog.Info("migration applied", "version", m.Version)
		}
	}
	return nil
}

func migrationApplied(ctx context.Context, gdb *gorm.DB, version string) (bool, error) {
	var count int64
	if err := gdb.WithContext(ctx).Model(&schemaMigration{}).Where("version = ?", version).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
