package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AuditEventType string

const (
	AuditGradeUpdated   AuditEventType = "grade_updated"
	AuditReviewApproved AuditEventType = "review_approved"
	AuditDataExported   AuditEventType = "data_exported"
)

// AuditLog records a reviewer action that changed or released results.
type AuditLog struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	EventType AuditEventType `json:"event_type" gorm:"not null;index;size:50"`

	// Actor information
	UserID   string   `json:"user_id" gorm:"not null;index;size:255"`
	UserRole UserRole `json:"user_role" gorm:"not null;size:20"`

	// Target information
	TargetType string `json:"target_type" gorm:"size:50;index:idx_audit_target"` // submission, assessment
	TargetID   uint   `json:"target_id" gorm:"index:idx_audit_target"`

	Description string         `json:"description" gorm:"type:text"`
	Changes     datatypes.JSON `json:"changes"` // before/after values

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog builds an entry for actor. changes is stored as JSON and may be nil.
func NewAuditLog(eventType AuditEventType, actor Caller, targetType string, targetID uint, description string, changes interface{}) (*AuditLog, error) {
	entry := &AuditLog{
		EventType:   eventType,
		UserID:      actor.ID,
		UserRole:    actor.Role,
		TargetType:  targetType,
		TargetID:    targetID,
		Description: description,
	}
	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return nil, err
		}
		entry.Changes = datatypes.JSON(raw)
	}
	return entry, nil
}
