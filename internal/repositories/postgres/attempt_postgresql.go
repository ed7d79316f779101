package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Create inserts a new attempt. A clash on (assessment, user, attempt number)
// surfaces as a duplicate key error.
func (s *SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	if err := s.helpers.conn(ctx, tx).Omit(clause.Associations).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := s.helpers.conn(ctx, tx).First(&submission, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get submission %d: %w", id, err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := forUpdate(s.helpers.conn(ctx, tx)).First(&submission, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock submission %d: %w", id, err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByIDForShare(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := forShare(s.helpers.conn(ctx, tx)).First(&submission, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock submission %d: %w", id, err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := s.helpers.conn(ctx, tx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).
		Preload("Answers.Question").
		Preload("Answers.Question.Options", orderedOptions).
		First(&submission, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get submission %d with answers: %w", id, err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	if err := s.helpers.conn(ctx, tx).Omit(clause.Associations).Save(submission).Error; err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return nil
}

func (s *SubmissionPostgreSQL) List(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	var submissions []*models.Submission
	var total int64

	query := s.helpers.conn(ctx, tx).Model(&models.Submission{}).Where("assessment_id = ?", assessmentID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Reviewed != nil {
		query = query.Where("is_checked_by_teacher = ?", *filters.Reviewed)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	query = applySort(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"created_at":     true,
		"attempt_number": true,
		"percentage":     true,
	}, "created_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

// GetInProgress returns the open attempt for the pair, or nil when there is none
func (s *SubmissionPostgreSQL) GetInProgress(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (*models.Submission, error) {
	var submissions []models.Submission
	if err := s.helpers.conn(ctx, tx).
		Where("user_id = ? AND assessment_id = ? AND status = ?", userID, assessmentID, models.SubmissionInProgress).
		Order("attempt_number DESC").
		Limit(1).
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to get in-progress submission: %w", err)
	}
	if len(submissions) == 0 {
		return nil, nil
	}
	return &submissions[0], nil
}

// CountByUserAndAssessment counts attempts in every status
func (s *SubmissionPostgreSQL) CountByUserAndAssessment(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (int, error) {
	var count int64
	if err := s.helpers.conn(ctx, tx).
		Model(&models.Submission{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return int(count), nil
}

func (s *SubmissionPostgreSQL) UpdateScore(ctx context.Context, tx *gorm.DB, id uint, total, obtained, percentage float64, passed bool) error {
	result := s.helpers.conn(ctx, tx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_marks":    total,
			"obtained_marks": obtained,
			"percentage":     percentage,
			"is_passed":      passed,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update submission score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkReviewed sets the review flag only if it is still unset, so two
// concurrent approvals cannot both succeed.
func (s *SubmissionPostgreSQL) MarkReviewed(ctx context.Context, tx *gorm.DB, id uint, reviewerID string, at time.Time) (bool, error) {
	result := s.helpers.conn(ctx, tx).
		Model(&models.Submission{}).
		Where("id = ? AND is_checked_by_teacher = ?", id, false).
		Updates(map[string]interface{}{
			"is_checked_by_teacher": true,
			"checked_by":            reviewerID,
			"checked_at":            at,
			"updated_at":            at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark submission reviewed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *SubmissionPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, assessmentID uint) (*repositories.SubmissionStats, error) {
	var stats repositories.SubmissionStats
	completed := models.SubmissionCompleted
	err := s.helpers.conn(ctx, tx).
		Model(&models.Submission{}).
		Select(`COUNT(*) AS total_attempts,
			COUNT(DISTINCT user_id) AS unique_students,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed_attempts,
			COALESCE(SUM(CASE WHEN status = ? AND is_checked_by_teacher = ? THEN 1 ELSE 0 END), 0) AS reviewed_attempts,
			COALESCE(SUM(CASE WHEN status = ? AND is_passed = ? THEN 1 ELSE 0 END), 0) AS passed_attempts,
			COALESCE(AVG(CASE WHEN status = ? THEN percentage END), 0) AS average_percentage,
			COALESCE(MAX(CASE WHEN status = ? THEN percentage END), 0) AS highest_percentage,
			COALESCE(MIN(CASE WHEN status = ? THEN percentage END), 0) AS lowest_percentage`,
			completed, completed, true, completed, true, completed, completed, completed).
		Where("assessment_id = ?", assessmentID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate submissions: %w", err)
	}
	return &stats, nil
}

// ===== ANSWERS =====

type AnswerPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Upsert writes the answer keyed on (submission_id, question_id) and reloads
// the stored row into answer.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.SubmissionAnswer) error {
	db := a.helpers.conn(ctx, tx)
	err := db.
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_option_id",
				"text_answer",
				"is_correct",
				"marks_obtained",
				"is_graded",
				"time_spent",
				"updated_at",
			}),
		}).
		Create(answer).Error
	if err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}

	stored, err := a.GetBySubmissionAndQuestion(ctx, tx, answer.SubmissionID, answer.QuestionID)
	if err != nil {
		return err
	}
	*answer = *stored
	return nil
}

func (a *AnswerPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SubmissionAnswer, error) {
	var answer models.SubmissionAnswer
	if err := a.helpers.conn(ctx, tx).
		Preload("Question").
		First(&answer, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get answer %d: %w", id, err)
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) GetBySubmissionAndQuestion(ctx context.Context, tx *gorm.DB, submissionID, questionID uint) (*models.SubmissionAnswer, error) {
	var answer models.SubmissionAnswer
	if err := a.helpers.conn(ctx, tx).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		First(&answer).Error; err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) ListBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) ([]*models.SubmissionAnswer, error) {
	var answers []*models.SubmissionAnswer
	if err := a.helpers.conn(ctx, tx).
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}

// ListPendingByAssessment returns written free-text answers awaiting a grade on
// completed, unreviewed submissions.
func (a *AnswerPostgreSQL) ListPendingByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.SubmissionAnswer, error) {
	var answers []*models.SubmissionAnswer
	if err := a.helpers.conn(ctx, tx).
		Joins("JOIN submissions ON submissions.id = submission_answers.submission_id").
		Joins("JOIN questions ON questions.id = submission_answers.question_id").
		Where("submissions.assessment_id = ?", assessmentID).
		Where("submissions.status = ? AND submissions.is_checked_by_teacher = ?", models.SubmissionCompleted, false).
		Where("questions.type IN ?", []models.QuestionType{models.ShortAnswer, models.LongAnswer}).
		Where("submission_answers.is_graded = ?", false).
		Where("submission_answers.text_answer IS NOT NULL AND submission_answers.text_answer <> ''").
		Preload("Question").
		Order("submission_answers.submission_id ASC, submission_answers.question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending answers: %w", err)
	}
	return answers, nil
}

// CountByQuestion counts saved answers to a question across every submission.
func (a *AnswerPostgreSQL) CountByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) (int64, error) {
	var count int64
	if err := a.helpers.conn(ctx, tx).
		Model(&models.SubmissionAnswer{}).
		Where("question_id = ?", questionID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}

func (a *AnswerPostgreSQL) UpdateGrade(ctx context.Context, tx *gorm.DB, id uint, marks float64, isCorrect bool, gradedBy string, at time.Time) error {
	result := a.helpers.conn(ctx, tx).
		Model(&models.SubmissionAnswer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"marks_obtained": marks,
			"is_correct":     isCorrect,
			"is_graded":      true,
			"graded_by":      gradedBy,
			"graded_at":      at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update answer grade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SumMarks re-reads the committed marks of every answer on the submission
func (a *AnswerPostgreSQL) SumMarks(ctx context.Context, tx *gorm.DB, submissionID uint) (float64, error) {
	var sum float64
	if err := a.helpers.conn(ctx, tx).
		Model(&models.SubmissionAnswer{}).
		Where("submission_id = ?", submissionID).
		Select("COALESCE(SUM(marks_obtained), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to sum answer marks: %w", err)
	}
	return sum, nil
}

func (a *AnswerPostgreSQL) HasUngradedFreeText(ctx context.Context, tx *gorm.DB, submissionID uint) (bool, error) {
	var count int64
	if err := a.helpers.conn(ctx, tx).
		Model(&models.SubmissionAnswer{}).
		Joins("JOIN questions ON questions.id = submission_answers.question_id").
		Where("submission_answers.submission_id = ?", submissionID).
		Where("questions.type IN ?", []models.QuestionType{models.ShortAnswer, models.LongAnswer}).
		Where("submission_answers.is_graded = ?", false).
		// A blank text answer scores 0 without a grade, so it never blocks approval.
		Where("submission_answers.text_answer IS NOT NULL AND submission_answers.text_answer <> ''").
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check ungraded answers: %w", err)
	}
	return count > 0, nil
}
