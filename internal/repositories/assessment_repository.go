package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

// AssessmentRepository interface for assessment-specific operations
type AssessmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) // Active questions and options, ordered
	Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error

	// Query operations
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Assessment, error)
}

// QuestionRepository interface for question bank operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error // Creates options too
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	SyncOptions(ctx context.Context, tx *gorm.DB, questionID uint, options []models.Option) error // Keeps ids of options that already belong to the question
	SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error

	// Query operations
	ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, activeOnly bool) ([]*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
	GetNextOrder(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error)
}

// CourseRepository interface for courses and enrollments
type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)

	// Enrollment
	Enroll(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error // No-op if already enrolled
	IsEnrolled(ctx context.Context, tx *gorm.DB, courseID uint, userID string) (bool, error)
}
