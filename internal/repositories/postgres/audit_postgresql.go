package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
)

type AuditPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAuditPostgreSQL(db *gorm.DB) repositories.AuditRepository {
	return &AuditPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AuditPostgreSQL) Create(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error {
	if err := a.helpers.conn(ctx, tx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (a *AuditPostgreSQL) ListByTarget(ctx context.Context, tx *gorm.DB, targetType string, targetID uint) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	if err := a.helpers.conn(ctx, tx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}
