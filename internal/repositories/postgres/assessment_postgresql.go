package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssessmentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Create inserts the assessment row only; questions are added through the question repository
func (a *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if err := a.helpers.conn(ctx, tx).Omit(clause.Associations).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

// GetByID retrieves an assessment by ID
func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := a.helpers.conn(ctx, tx).First(&assessment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get assessment %d: %w", id, err)
	}
	return &assessment, nil
}

// GetByIDWithQuestions loads active questions with their options, both in display order
func (a *AssessmentPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.helpers.conn(ctx, tx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order ASC, id ASC")
		}).
		Preload("Questions.Options", orderedOptions).
		First(&assessment, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment %d with questions: %w", id, err)
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if err := a.helpers.conn(ctx, tx).Omit(clause.Associations).Save(assessment).Error; err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}
	return nil
}

func (a *AssessmentPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Assessment, error) {
	var assessments []*models.Assessment
	if err := a.helpers.conn(ctx, tx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&assessments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assessments for course: %w", err)
	}
	return assessments, nil
}
