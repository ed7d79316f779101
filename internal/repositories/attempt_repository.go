package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

// SubmissionRepository interface for assessment attempt operations
type SubmissionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) // Include answers, questions, options
	Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error

	// Row locks, only meaningful inside a transaction. Exclusive for
	// finalize/grade, shared for answer saves.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	GetByIDForShare(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)

	// Query operations
	List(ctx context.Context, tx *gorm.DB, assessmentID uint, filters SubmissionFilters) ([]*models.Submission, int64, error)

	// Active attempt management
	GetInProgress(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (*models.Submission, error) // nil if none
	CountByUserAndAssessment(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (int, error)

	// Scoring and review
	UpdateScore(ctx context.Context, tx *gorm.DB, id uint, total, obtained, percentage float64, passed bool) error
	MarkReviewed(ctx context.Context, tx *gorm.DB, id uint, reviewerID string, at time.Time) (bool, error) // false if already reviewed

	// Analytics
	GetStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*SubmissionStats, error)
}

// SubmissionStats aggregates the submissions of one assessment. Score figures
// cover completed submissions only.
type SubmissionStats struct {
	TotalAttempts     int64   `json:"total_attempts"`
	UniqueStudents    int64   `json:"unique_students"`
	CompletedAttempts int64   `json:"completed_attempts"`
	ReviewedAttempts  int64   `json:"reviewed_attempts"`
	PassedAttempts    int64   `json:"passed_attempts"`
	AveragePercentage float64 `json:"average_percentage"`
	HighestPercentage float64 `json:"highest_percentage"`
	LowestPercentage  float64 `json:"lowest_percentage"`
}

// AnswerRepository interface for submission answer operations
type AnswerRepository interface {
	// Basic operations
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.SubmissionAnswer) error // Keyed on (submission, question)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SubmissionAnswer, error)
	GetBySubmissionAndQuestion(ctx context.Context, tx *gorm.DB, submissionID, questionID uint) (*models.SubmissionAnswer, error)

	// Query operations
	ListBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) ([]*models.SubmissionAnswer, error)
	ListPendingByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.SubmissionAnswer, error)
	CountByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) (int64, error)

	// Grading
	UpdateGrade(ctx context.Context, tx *gorm.DB, id uint, marks float64, isCorrect bool, gradedBy string, at time.Time) error
	SumMarks(ctx context.Context, tx *gorm.DB, submissionID uint) (float64, error)
	HasUngradedFreeText(ctx context.Context, tx *gorm.DB, submissionID uint) (bool, error)
}
