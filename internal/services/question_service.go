package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"gorm.io/gorm"
)

// QuestionService manages the questions owned by an assessment. Its views
// include option correctness and are meant for authors and reviewers only.
type QuestionService interface {
	Create(ctx context.Context, assessmentID uint, req *CreateQuestionRequest, caller models.Caller) (*models.Question, error)
	Update(ctx context.Context, id uint, patch models.QuestionPatch, caller models.Caller) (*models.Question, error)
	ListByAssessment(ctx context.Context, assessmentID uint, includeInactive bool) ([]*models.Question, error)
	Deactivate(ctx context.Context, id uint, caller models.Caller) error
}

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *questionService) Create(ctx context.Context, assessmentID uint, req *CreateQuestionRequest, caller models.Caller) (*models.Question, error) {
	s.logger.Info("Creating question", "assessment_id", assessmentID, "type", req.Type, "creator_id", caller.ID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if !canManage(assessment.CreatedBy, caller) {
		return nil, NewPermissionError(caller.ID, assessmentID, "assessment", "add question", ErrForbidden)
	}

	question := &models.Question{
		AssessmentID: assessmentID,
		Text:         req.Text,
		Type:         req.Type,
		Marks:        req.Marks,
		IsActive:     true,
		Options:      buildOptions(req.Options),
	}
	if err := s.validator.Question().ValidateQuestion(question); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if req.Order != nil {
			question.Order = *req.Order
		} else {
			next, err := s.repo.Question().GetNextOrder(ctx, tx, assessmentID)
			if err != nil {
				return err
			}
			question.Order = next
		}
		return s.repo.Question().Create(ctx, tx, question)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question created", "question_id", question.ID, "order", question.Order)
	return question, nil
}

// Update applies patch. A present options list becomes the full option set;
// entries carrying the id of an existing option update it in place. Once the
// question has saved answers, marks and the option set (ids and which one is
// correct) are frozen so stored answers keep scoring the same way.
func (s *questionService) Update(ctx context.Context, id uint, patch models.QuestionPatch, caller models.Caller) (*models.Question, error) {
	var question *models.Question
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		question, err = s.repo.Question().GetByID(ctx, tx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		assessment, err := s.repo.Assessment().GetByID(ctx, tx, question.AssessmentID)
		if err != nil {
			return fmt.Errorf("failed to get assessment: %w", err)
		}
		if !canManage(assessment.CreatedBy, caller) {
			return NewPermissionError(caller.ID, id, "question", "update", ErrForbidden)
		}

		if err := s.checkAnsweredEdit(ctx, tx, question, patch); err != nil {
			return err
		}

		patch.Apply(question)
		if err := s.validator.Question().ValidateQuestion(question); err != nil {
			return err
		}

		if err := s.repo.Question().Update(ctx, tx, question); err != nil {
			return err
		}
		if patch.Options.Present {
			if err := s.repo.Question().SyncOptions(ctx, tx, id, question.Options); err != nil {
				return err
			}
		}

		question, err = s.repo.Question().GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question updated", "question_id", id, "updated_by", caller.ID)
	return question, nil
}

// checkAnsweredEdit rejects patches that would change how saved answers score.
func (s *questionService) checkAnsweredEdit(ctx context.Context, tx *gorm.DB, question *models.Question, patch models.QuestionPatch) error {
	marksChanged := patch.Marks.Present && patch.Marks.Value != question.Marks
	if !marksChanged && !patch.Options.Present {
		return nil
	}
	answered, err := s.repo.Answer().CountByQuestion(ctx, tx, question.ID)
	if err != nil {
		return err
	}
	if answered == 0 {
		return nil
	}
	if marksChanged {
		return fmt.Errorf("%w: marks", ErrQuestionAnswered)
	}
	if !sameChoices(question.Options, patch.Options.Value) {
		return fmt.Errorf("%w: options", ErrQuestionAnswered)
	}
	return nil
}

// sameChoices reports whether next keeps exactly the options of current, by id,
// with the same correct flag on each.
func sameChoices(current, next []models.Option) bool {
	if len(current) != len(next) {
		return false
	}
	correct := make(map[uint]bool, len(current))
	for _, o := range current {
		correct[o.ID] = o.IsCorrect
	}
	for _, o := range next {
		was, ok := correct[o.ID]
		if !ok || was != o.IsCorrect {
			return false
		}
		delete(correct, o.ID)
	}
	return true
}

func (s *questionService) ListByAssessment(ctx context.Context, assessmentID uint, includeInactive bool) ([]*models.Question, error) {
	if _, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return s.repo.Question().ListByAssessment(ctx, nil, assessmentID, !includeInactive)
}

// Deactivate hides the question from new attempts. Attempts that already
// served it keep it in their frozen order.
func (s *questionService) Deactivate(ctx context.Context, id uint, caller models.Caller) error {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, question.AssessmentID)
	if err != nil {
		return fmt.Errorf("failed to get assessment: %w", err)
	}
	if !canManage(assessment.CreatedBy, caller) {
		return NewPermissionError(caller.ID, id, "question", "deactivate", ErrForbidden)
	}

	if err := s.repo.Question().SetActive(ctx, nil, id, false); err != nil {
		return err
	}
	s.logger.Info("Question deactivated", "question_id", id, "deactivated_by", caller.ID)
	return nil
}

func buildOptions(inputs []OptionInput) []models.Option {
	options := make([]models.Option, 0, len(inputs))
	for i, in := range inputs {
		order := in.Order
		if order == 0 {
			order = i + 1
		}
		options = append(options, models.Option{
			Text:      in.Text,
			IsCorrect: in.IsCorrect,
			Order:     order,
		})
	}
	return options
}
