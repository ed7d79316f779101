package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, caller models.Caller) (*models.Course, error)
	Enroll(ctx context.Context, courseID uint, req *EnrollRequest, caller models.Caller) (*models.Enrollment, error)
	IsEnrolled(ctx context.Context, courseID uint, userID string) (bool, error)
}

type courseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, caller models.Caller) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		IsActive:    true,
		CreatedBy:   caller.ID,
	}
	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, err
	}

	s.logger.Info("Course created", "course_id", course.ID, "created_by", caller.ID)
	return course, nil
}

// Enroll is idempotent: enrolling twice leaves a single enrollment.
func (s *courseService) Enroll(ctx context.Context, courseID uint, req *EnrollRequest, caller models.Caller) (*models.Enrollment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	enrollment := &models.Enrollment{
		CourseID:   courseID,
		UserID:     req.UserID,
		EnrolledAt: time.Now(),
	}
	if err := s.repo.Course().Enroll(ctx, nil, enrollment); err != nil {
		return nil, err
	}

	s.logger.Info("User enrolled",
		"course_id", courseID,
		"user_id", req.UserID,
		"enrolled_by", caller.ID)
	return enrollment, nil
}

func (s *courseService) IsEnrolled(ctx context.Context, courseID uint, userID string) (bool, error) {
	return s.repo.Course().IsEnrolled(ctx, nil, courseID, userID)
}
