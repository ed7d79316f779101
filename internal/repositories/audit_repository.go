package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

// AuditRepository persists the reviewer audit trail
type AuditRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error
	ListByTarget(ctx context.Context, tx *gorm.DB, targetType string, targetID uint) ([]*models.AuditLog, error) // Oldest first
}
