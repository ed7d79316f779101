package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"golang.org/x/sync/errgroup"
)

// AnalyticsService reports aggregate performance for an assessment.
type AnalyticsService interface {
	GetAssessmentAnalytics(ctx context.Context, assessmentID uint, reviewer models.Caller) (*AssessmentAnalytics, error)
}

type analyticsService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewAnalyticsService(repo repositories.Repository, logger *slog.Logger) AnalyticsService {
	return &analyticsService{
		repo:   repo,
		logger: logger,
	}
}

type AssessmentAnalytics struct {
	AssessmentID   uint    `json:"assessment_id"`
	Title          string  `json:"title"`
	TotalMarks     float64 `json:"total_marks"`
	PassingMarks   float64 `json:"passing_marks"`
	PassRate       float64 `json:"pass_rate"`
	PendingReview  int64   `json:"pending_review"`
	PendingAnswers int     `json:"pending_answers"`
	repositories.SubmissionStats
}

func (s *analyticsService) GetAssessmentAnalytics(ctx context.Context, assessmentID uint, reviewer models.Caller) (*AssessmentAnalytics, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if !canManage(assessment.CreatedBy, reviewer) {
		return nil, NewPermissionError(reviewer.ID, assessmentID, "assessment", "view analytics", ErrForbidden)
	}

	var (
		stats   *repositories.SubmissionStats
		pending []*models.SubmissionAnswer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.repo.Submission().GetStats(gctx, nil, assessmentID)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.repo.Answer().ListPendingByAssessment(gctx, nil, assessmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute analytics: %w", err)
	}

	analytics := &AssessmentAnalytics{
		AssessmentID:    assessment.ID,
		Title:           assessment.Title,
		TotalMarks:      assessment.TotalMarks,
		PassingMarks:    assessment.PassingMarks,
		PendingReview:   stats.CompletedAttempts - stats.ReviewedAttempts,
		PendingAnswers:  len(pending),
		SubmissionStats: *stats,
	}
	analytics.AveragePercentage = round2(stats.AveragePercentage)
	if stats.CompletedAttempts > 0 {
		analytics.PassRate = round2(float64(stats.PassedAttempts) / float64(stats.CompletedAttempts) * 100)
	}

	s.logger.Debug("Assessment analytics computed",
		"assessment_id", assessmentID,
		"reviewer_id", reviewer.ID,
		"completed", stats.CompletedAttempts)
	return analytics, nil
}
