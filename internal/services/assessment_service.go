package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

type AssessmentService interface {
	Create(ctx context.Context, req *CreateAssessmentRequest, caller models.Caller) (*models.Assessment, error)
	Update(ctx context.Context, id uint, patch models.AssessmentPatch, caller models.Caller) (*models.Assessment, error)
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	ListByCourse(ctx context.Context, courseID uint) ([]*models.Assessment, error)
}

type assessmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssessmentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AssessmentService {
	return &assessmentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest, caller models.Caller) (*models.Assessment, error) {
	s.logger.Info("Creating assessment", "creator_id", caller.ID, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Course().GetByID(ctx, nil, req.CourseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	assessment := &models.Assessment{
		CourseID:           req.CourseID,
		Title:              req.Title,
		Description:        req.Description,
		TotalMarks:         req.TotalMarks,
		PassingMarks:       req.PassingMarks,
		MaxAttempts:        req.MaxAttempts,
		TimeLimit:          req.TimeLimit,
		RandomizeQuestions: req.RandomizeQuestions,
		IsActive:           true,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		CreatedBy:          caller.ID,
	}
	if req.IsActive != nil {
		assessment.IsActive = *req.IsActive
	}

	if err := validateAssessmentRules(assessment); err != nil {
		return nil, err
	}

	if err := s.repo.Assessment().Create(ctx, nil, assessment); err != nil {
		return nil, err
	}

	s.logger.Info("Assessment created successfully", "assessment_id", assessment.ID)
	return assessment, nil
}

// Update applies the present fields of patch. Absent fields keep their stored
// value; sending null for a date clears it.
func (s *assessmentService) Update(ctx context.Context, id uint, patch models.AssessmentPatch, caller models.Caller) (*models.Assessment, error) {
	assessment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(assessment.CreatedBy, caller) {
		return nil, NewPermissionError(caller.ID, id, "assessment", "update", ErrForbidden)
	}
	if patch.IsEmpty() {
		return assessment, nil
	}

	patch.Apply(assessment)

	if err := s.validator.Validate(assessment); err != nil {
		return nil, err
	}
	if err := validateAssessmentRules(assessment); err != nil {
		return nil, err
	}

	if err := s.repo.Assessment().Update(ctx, nil, assessment); err != nil {
		return nil, err
	}

	s.logger.Info("Assessment updated", "assessment_id", id, "updated_by", caller.ID)
	return assessment, nil
}

func (s *assessmentService) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (s *assessmentService) ListByCourse(ctx context.Context, courseID uint) ([]*models.Assessment, error) {
	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return s.repo.Assessment().ListByCourse(ctx, nil, courseID)
}

// ===== HELPERS =====

// validateAssessmentRules checks constraints that span more than one field.
func validateAssessmentRules(a *models.Assessment) error {
	var errs ValidationErrors
	if a.PassingMarks > a.TotalMarks {
		errs = append(errs, *NewValidationError("passing_marks", "must not exceed total_marks", a.PassingMarks))
	}
	if a.StartDate != nil && a.EndDate != nil && !a.EndDate.After(*a.StartDate) {
		errs = append(errs, *NewValidationError("end_date", "must be after start_date", a.EndDate))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// canManage allows the creator and admins.
func canManage(createdBy string, caller models.Caller) bool {
	return caller.Role == models.RoleAdmin || createdBy == caller.ID
}
