package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// ===== BASIC OPERATIONS =====

// Create inserts the question together with its options
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := q.helpers.conn(ctx, tx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// GetByID retrieves a question and its options
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.helpers.conn(ctx, tx).
		Preload("Options", orderedOptions).
		First(&question, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return &question, nil
}

// Update saves scalar columns; options are handled by SyncOptions
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := q.helpers.conn(ctx, tx).Omit(clause.Associations).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	return nil
}

// SyncOptions makes options the full option set of a question. Options whose id
// already belongs to the question are updated in place and keep that id; the
// rest are inserted, and stored options missing from the list are deleted.
func (q *QuestionPostgreSQL) SyncOptions(ctx context.Context, tx *gorm.DB, questionID uint, options []models.Option) error {
	db := q.helpers.conn(ctx, tx)

	var existing []uint
	if err := db.Model(&models.Option{}).Where("question_id = ?", questionID).Pluck("id", &existing).Error; err != nil {
		return fmt.Errorf("failed to list options: %w", err)
	}
	owned := make(map[uint]bool, len(existing))
	for _, id := range existing {
		owned[id] = true
	}

	kept := make([]uint, 0, len(options))
	for i := range options {
		option := &options[i]
		option.QuestionID = questionID
		if owned[option.ID] {
			if err := db.Model(&models.Option{}).
				Where("id = ?", option.ID).
				Updates(map[string]interface{}{
					"text":       option.Text,
					"is_correct": option.IsCorrect,
					"sort_order": option.Order,
				}).Error; err != nil {
				return fmt.Errorf("failed to update option %d: %w", option.ID, err)
			}
		} else {
			option.ID = 0
			if err := db.Create(option).Error; err != nil {
				return fmt.Errorf("failed to create option: %w", err)
			}
		}
		kept = append(kept, option.ID)
	}

	stale := db.Where("question_id = ?", questionID)
	if len(kept) > 0 {
		stale = stale.Where("id NOT IN ?", kept)
	}
	if err := stale.Delete(&models.Option{}).Error; err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error {
	result := q.helpers.conn(ctx, tx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update question status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ===== QUERIES =====

func (q *QuestionPostgreSQL) ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, activeOnly bool) ([]*models.Question, error) {
	var questions []*models.Question
	query := q.helpers.conn(ctx, tx).Where("assessment_id = ?", assessmentID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.
		Preload("Options", orderedOptions).
		Order("sort_order ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// GetByIDs loads questions with options; result order is unspecified
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	var questions []*models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	if err := q.helpers.conn(ctx, tx).
		Preload("Options", orderedOptions).
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// GetNextOrder returns max(sort_order)+1 for the assessment
func (q *QuestionPostgreSQL) GetNextOrder(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error) {
	var maxOrder int
	if err := q.helpers.conn(ctx, tx).
		Model(&models.Question{}).
		Where("assessment_id = ?", assessmentID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&maxOrder).Error; err != nil {
		return 0, fmt.Errorf("failed to get max question order: %w", err)
	}
	return maxOrder + 1, nil
}
