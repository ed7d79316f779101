package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories behind one handle so
// services can run several of them inside a single transaction.
type Repository interface {
	Course() CourseRepository
	Assessment() AssessmentRepository
	Question() QuestionRepository
	Submission() SubmissionRepository
	Answer() AnswerRepository
	Audit() AuditRepository

	// WithTransaction runs fn inside a database transaction. The tx handed to
	// fn must be passed to every repository call made within it.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ===== SHARED FILTER STRUCTS =====

type SubmissionFilters struct {
	Status    *models.SubmissionStatus `json:"status"`
	UserID    *string                  `json:"user_id"`
	Reviewed  *bool                    `json:"reviewed"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "created_at", "attempt_number", "percentage"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

// ===== ERROR HELPERS =====

// IsNotFoundError reports whether err means the row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports whether err is a unique constraint violation.
// TranslateError covers postgres; sqlite surfaces the raw driver message.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
