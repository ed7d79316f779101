package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
)

// ReviewService gates result visibility behind a reviewer's approval.
type ReviewService interface {
	ApproveReview(ctx context.Context, submissionID uint, reviewer models.Caller) (*ReviewResponse, error)
	GetResult(ctx context.Context, submissionID uint, viewer models.Caller) (*ResultResponse, error)
	GetAuditTrail(ctx context.Context, submissionID uint) ([]*models.AuditLog, error)
}

type reviewService struct {
	repo     repositories.Repository
	locker   cache.Locker
	cache    cache.CacheService
	notifier *EventNotifier
	logger   *slog.Logger
	opLog    *ServiceLogger

	resultTTL time.Duration
	now       func() time.Time
}

func NewReviewService(
	repo repositories.Repository,
	locker cache.Locker,
	cacheService cache.CacheService,
	notifier *EventNotifier,
	logger *slog.Logger,
	resultTTL time.Duration,
) ReviewService {
	return &reviewService{
		repo:      repo,
		locker:    locker,
		cache:     cacheService,
		notifier:  notifier,
		logger:    logger,
		opLog:     NewServiceLogger(logger, "review"),
		resultTTL: resultTTL,
		now:       time.Now,
	}
}

// ===== APPROVAL =====

func (s *reviewService) ApproveReview(ctx context.Context, submissionID uint, reviewer models.Caller) (resp *ReviewResponse, err error) {
	start := time.Now()
	defer func() {
		s.opLog.LogOperation(ctx, "approve_review", reviewer.ID, submissionID, "submission", time.Since(start), err)
	}()

	// Same lock as grading so no grade lands after the release.
	unlock, err := lockSubmission(ctx, s.locker, submissionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	approvedAt := s.now()
	var (
		submission *models.Submission
		audit      *models.AuditLog
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		submission, err = s.repo.Submission().GetByIDForUpdate(ctx, tx, submissionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("failed to get submission: %w", err)
		}
		assessment, err := s.repo.Assessment().GetByID(ctx, tx, submission.AssessmentID)
		if err != nil {
			return fmt.Errorf("failed to get assessment: %w", err)
		}
		if !canManage(assessment.CreatedBy, reviewer) {
			return NewPermissionError(reviewer.ID, submissionID, "submission", "approve", ErrForbidden)
		}
		if submission.Status != models.SubmissionCompleted {
			return fmt.Errorf("%w: status is %s", ErrSubmissionNotCompleted, submission.Status)
		}
		if submission.IsCheckedByTeacher {
			return ErrAlreadyReviewed
		}

		ungraded, err := s.repo.Answer().HasUngradedFreeText(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if ungraded {
			return ErrGradingIncomplete
		}

		marked, err := s.repo.Submission().MarkReviewed(ctx, tx, submissionID, reviewer.ID, approvedAt)
		if err != nil {
			return err
		}
		if !marked {
			return ErrAlreadyReviewed
		}

		audit, err = models.NewAuditLog(models.AuditReviewApproved, reviewer, "submission", submissionID,
			"result released", map[string]float64{
				"obtained_marks": submission.ObtainedMarks,
				"percentage":     submission.Percentage,
			})
		if err != nil {
			return err
		}
		audit.CreatedAt = approvedAt
		return s.repo.Audit().Create(ctx, tx, audit)
	})
	if err != nil {
		return nil, err
	}

	submission.IsCheckedByTeacher = true
	submission.CheckedBy = &reviewer.ID
	submission.CheckedAt = &approvedAt

	metrics.ReviewsApproved.Inc()
	s.opLog.LogAuditEvent(ctx, audit)
	s.notifier.ReviewApproved(ctx, submission, reviewer.ID, approvedAt)

	return &ReviewResponse{
		SubmissionID: submissionID,
		CheckedBy:    reviewer.ID,
		CheckedAt:    approvedAt,
	}, nil
}

// ===== RESULTS =====

func (s *reviewService) GetResult(ctx context.Context, submissionID uint, viewer models.Caller) (*ResultResponse, error) {
	submission, err := s.repo.Submission().GetByID(ctx, nil, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	isOwner := submission.UserID == viewer.ID
	if !isOwner && !viewer.IsReviewer() {
		return nil, NewPermissionError(viewer.ID, submissionID, "submission", "view result", ErrSubmissionNotOwned)
	}

	if !viewer.IsReviewer() && !submission.IsCheckedByTeacher {
		return withheldResult(submission), nil
	}

	if submission.IsCheckedByTeacher {
		if cached, ok := s.cachedResult(ctx, submissionID); ok {
			return cached, nil
		}
	}

	full, err := s.repo.Submission().GetByIDWithAnswers(ctx, nil, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission answers: %w", err)
	}
	result := fullResult(full)

	// Approved results no longer change.
	if full.IsCheckedByTeacher && s.cache != nil {
		if err := s.cache.Set(ctx, cache.ResultKey(submissionID), result, s.resultTTL); err != nil {
			s.logger.Warn("Failed to cache result", "submission_id", submissionID, "error", err)
		}
	}
	return result, nil
}

// GetAuditTrail lists grade changes and the approval of a submission, oldest first.
func (s *reviewService) GetAuditTrail(ctx context.Context, submissionID uint) ([]*models.AuditLog, error) {
	if _, err := s.repo.Submission().GetByID(ctx, nil, submissionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s.repo.Audit().ListByTarget(ctx, nil, "submission", submissionID)
}

func (s *reviewService) cachedResult(ctx context.Context, submissionID uint) (*ResultResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	var result ResultResponse
	if err := s.cache.Get(ctx, cache.ResultKey(submissionID), &result); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Result cache read failed", "submission_id", submissionID, "error", err)
		}
		return nil, false
	}
	return &result, true
}

// withheldResult is what the owner sees before approval: identity and status only.
func withheldResult(sub *models.Submission) *ResultResponse {
	status := string(sub.Status)
	if sub.Status == models.SubmissionCompleted {
		status = models.ResultPendingReview
	}
	return &ResultResponse{
		SubmissionID:  sub.ID,
		AssessmentID:  sub.AssessmentID,
		UserID:        sub.UserID,
		AttemptNumber: sub.AttemptNumber,
		Status:        status,
		Released:      false,
	}
}

func fullResult(sub *models.Submission) *ResultResponse {
	obtained, total, percentage, passed := sub.ObtainedMarks, sub.TotalMarks, sub.Percentage, sub.IsPassed
	result := &ResultResponse{
		SubmissionID:  sub.ID,
		AssessmentID:  sub.AssessmentID,
		UserID:        sub.UserID,
		AttemptNumber: sub.AttemptNumber,
		Status:        string(sub.Status),
		Released:      sub.IsCheckedByTeacher,
		ObtainedMarks: &obtained,
		TotalMarks:    &total,
		Percentage:    &percentage,
		IsPassed:      &passed,
		CheckedBy:     sub.CheckedBy,
		CheckedAt:     sub.CheckedAt,
		Answers:       make([]AnswerDetail, 0, len(sub.Answers)),
	}

	for _, a := range sub.Answers {
		detail := AnswerDetail{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			TextAnswer:       a.TextAnswer,
			IsCorrect:        a.IsCorrect,
			MarksObtained:    a.MarksObtained,
			IsGraded:         a.IsGraded,
		}
		if q := a.Question; q != nil {
			detail.QuestionText = q.Text
			detail.QuestionType = q.Type
			detail.MaxMarks = q.Marks
			if correct := q.CorrectOption(); correct != nil && q.Type.IsObjective() {
				id := correct.ID
				detail.CorrectOptionID = &id
			}
		}
		result.Answers = append(result.Answers, detail)
	}
	return result
}
