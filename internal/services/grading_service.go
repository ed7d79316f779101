package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"gorm.io/gorm"
)

// GradingService is the reviewer's workbench: manual grades, the pending queue
// and the results export.
type GradingService interface {
	GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, reviewer models.Caller) (*GradeResponse, error)
	ListPendingAnswers(ctx context.Context, assessmentID uint, reviewer models.Caller) ([]PendingAnswer, error)
	ExportResults(ctx context.Context, assessmentID uint, reviewer models.Caller) ([]byte, error)
}

type gradingService struct {
	repo      repositories.Repository
	locker    cache.Locker
	cache     cache.CacheService
	notifier  *EventNotifier
	logger    *slog.Logger
	opLog     *ServiceLogger
	validator *validator.Validator

	now func() time.Time
}

func NewGradingService(
	repo repositories.Repository,
	locker cache.Locker,
	cacheService cache.CacheService,
	notifier *EventNotifier,
	logger *slog.Logger,
	validator *validator.Validator,
) GradingService {
	return &gradingService{
		repo:      repo,
		locker:    locker,
		cache:     cacheService,
		notifier:  notifier,
		logger:    logger,
		opLog:     NewServiceLogger(logger, "grading"),
		validator: validator,
		now:       time.Now,
	}
}

// ===== MANUAL GRADING =====

func (s *gradingService) GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, reviewer models.Caller) (resp *GradeResponse, err error) {
	start := time.Now()
	defer func() {
		s.opLog.LogOperation(ctx, "grade_answer", reviewer.ID, answerID, "answer", time.Since(start), err)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	marks := *req.MarksObtained

	answer, err := s.repo.Answer().GetByID(ctx, nil, answerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	question := answer.Question
	if question == nil {
		if question, err = s.repo.Question().GetByID(ctx, nil, answer.QuestionID); err != nil {
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
	}

	// Rejected before anything is locked or written.
	if marks < 0 || marks > question.Marks {
		return nil, fmt.Errorf("%w: %.2f not in [0, %.2f]", ErrMarksOutOfRange, marks, question.Marks)
	}

	unlock, err := lockSubmission(ctx, s.locker, answer.SubmissionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		previous  = answer.MarksObtained
		gradedAt  = s.now()
		isCorrect = marks == question.Marks
		sc        score
		audit     *models.AuditLog
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		submission, err := s.repo.Submission().GetByIDForUpdate(ctx, tx, answer.SubmissionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("failed to get submission: %w", err)
		}
		if submission.Status != models.SubmissionCompleted {
			return fmt.Errorf("%w: status is %s", ErrSubmissionNotCompleted, submission.Status)
		}
		if submission.IsCheckedByTeacher {
			return ErrAlreadyReviewed
		}

		assessment, err := s.repo.Assessment().GetByID(ctx, tx, submission.AssessmentID)
		if err != nil {
			return fmt.Errorf("failed to get assessment: %w", err)
		}
		if !canManage(assessment.CreatedBy, reviewer) {
			return NewPermissionError(reviewer.ID, answerID, "answer", "grade", ErrForbidden)
		}
		if assessment.TotalMarks <= 0 {
			return ErrInvalidConfiguration
		}

		if err := s.repo.Answer().UpdateGrade(ctx, tx, answer.ID, marks, isCorrect, reviewer.ID, gradedAt); err != nil {
			return err
		}

		// Re-summing committed rows under the row lock keeps concurrent grades
		// on sibling answers from overwriting each other's totals.
		obtained, err := s.repo.Answer().SumMarks(ctx, tx, submission.ID)
		if err != nil {
			return err
		}
		sc = computeScore(obtained, assessment.TotalMarks, assessment.PassingMarks)
		if err := s.repo.Submission().UpdateScore(ctx, tx, submission.ID, sc.Total, sc.Obtained, sc.Percentage, sc.Passed); err != nil {
			return err
		}

		audit, err = models.NewAuditLog(models.AuditGradeUpdated, reviewer, "submission", submission.ID,
			fmt.Sprintf("answer %d graded", answer.ID), gradeChange{
				AnswerID:   answer.ID,
				QuestionID: answer.QuestionID,
				OldMarks:   previous,
				NewMarks:   marks,
				Obtained:   sc.Obtained,
			})
		if err != nil {
			return err
		}
		audit.CreatedAt = gradedAt
		return s.repo.Audit().Create(ctx, tx, audit)
	})
	if err != nil {
		return nil, err
	}

	answer.MarksObtained = marks
	answer.IsCorrect = isCorrect
	answer.IsGraded = true

	metrics.AnswersGraded.WithLabelValues("manual").Inc()
	s.opLog.LogAuditEvent(ctx, audit)
	s.notifier.AnswerGraded(ctx, answer, reviewer.ID, gradedAt)
	s.invalidateResult(ctx, answer.SubmissionID)

	return &GradeResponse{
		AnswerID:      answer.ID,
		SubmissionID:  answer.SubmissionID,
		MarksObtained: marks,
		IsCorrect:     isCorrect,
		ObtainedMarks: sc.Obtained,
		TotalMarks:    sc.Total,
		Percentage:    sc.Percentage,
		IsPassed:      sc.Passed,
	}, nil
}

func (s *gradingService) invalidateResult(ctx context.Context, submissionID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.ResultKey(submissionID)); err != nil {
		s.logger.Warn("Failed to invalidate cached result",
			"submission_id", submissionID,
			"error", err)
	}
}

// ===== QUEUE =====

func (s *gradingService) ListPendingAnswers(ctx context.Context, assessmentID uint, reviewer models.Caller) ([]PendingAnswer, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if !canManage(assessment.CreatedBy, reviewer) {
		return nil, NewPermissionError(reviewer.ID, assessmentID, "assessment", "list pending answers", ErrForbidden)
	}

	answers, err := s.repo.Answer().ListPendingByAssessment(ctx, nil, assessmentID)
	if err != nil {
		return nil, err
	}

	pending := make([]PendingAnswer, 0, len(answers))
	for _, a := range answers {
		item := PendingAnswer{
			AnswerID:     a.ID,
			SubmissionID: a.SubmissionID,
			QuestionID:   a.QuestionID,
		}
		if a.TextAnswer != nil {
			item.TextAnswer = *a.TextAnswer
		}
		if a.Question != nil {
			item.QuestionText = a.Question.Text
			item.QuestionType = a.Question.Type
			item.MaxMarks = a.Question.Marks
		}
		pending = append(pending, item)
	}

	s.logger.Debug("Listed pending answers",
		"assessment_id", assessmentID,
		"reviewer_id", reviewer.ID,
		"count", len(pending))
	return pending, nil
}

// ===== EXPORT =====

func (s *gradingService) ExportResults(ctx context.Context, assessmentID uint, reviewer models.Caller) (data []byte, err error) {
	start := time.Now()
	defer func() {
		s.opLog.LogOperation(ctx, "export_results", reviewer.ID, assessmentID, "assessment", time.Since(start), err)
	}()

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if !canManage(assessment.CreatedBy, reviewer) {
		return nil, NewPermissionError(reviewer.ID, assessmentID, "assessment", "export results", ErrForbidden)
	}

	submissions, _, err := s.repo.Submission().List(ctx, nil, assessmentID, repositories.SubmissionFilters{
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, err
	}

	data, err = writeResultsWorkbook(assessment, submissions)
	if err != nil {
		return nil, err
	}

	audit, err := models.NewAuditLog(models.AuditDataExported, reviewer, "assessment", assessmentID,
		"results exported", map[string]int{"submissions": len(submissions)})
	if err != nil {
		return nil, err
	}
	// The workbook is already built; a failed audit write is logged, not returned.
	if err := s.repo.Audit().Create(ctx, nil, audit); err != nil {
		s.logger.Warn("Failed to record export audit", "assessment_id", assessmentID, "error", err)
	}
	s.opLog.LogAuditEvent(ctx, audit)
	return data, nil
}

type gradeChange struct {
	AnswerID   uint    `json:"answer_id"`
	QuestionID uint    `json:"question_id"`
	OldMarks   float64 `json:"old_marks"`
	NewMarks   float64 `json:"new_marks"`
	Obtained   float64 `json:"submission_obtained"`
}
