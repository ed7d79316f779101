package validator

import (
	"fmt"
	"strings"

	apperrors "github.com/SAP-F-2025/lms-service/internal/errors"
	"github.com/SAP-F-2025/lms-service/internal/models"
)

const maxOptions = 10

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion checks the option rules for the question's type.
func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	var errs apperrors.ValidationErrors

	if strings.TrimSpace(question.Text) == "" {
		errs = append(errs, *apperrors.NewValidationError("text", "is required", question.Text))
	}
	if question.Marks <= 0 {
		errs = append(errs, *apperrors.NewValidationError("marks", "must be greater than 0", question.Marks))
	}

	switch question.Type {
	case models.SingleChoice:
		errs = append(errs, v.validateChoiceOptions(question.Options, 2)...)
	case models.TrueFalse:
		errs = append(errs, v.validateChoiceOptions(question.Options, 2)...)
		if len(question.Options) != 2 {
			errs = append(errs, *apperrors.NewValidationError("options", "true/false questions need exactly 2 options", len(question.Options)))
		}
	case models.ShortAnswer, models.LongAnswer:
		if len(question.Options) > 0 {
			errs = append(errs, *apperrors.NewValidationError("options", "free-text questions cannot have options", len(question.Options)))
		}
	default:
		errs = append(errs, *apperrors.NewValidationError("type", fmt.Sprintf("unsupported question type: %s", question.Type), question.Type))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *QuestionValidator) validateChoiceOptions(options []models.Option, min int) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if len(options) < min {
		errs = append(errs, *apperrors.NewValidationError("options", fmt.Sprintf("must have at least %d options", min), len(options)))
	}
	if len(options) > maxOptions {
		errs = append(errs, *apperrors.NewValidationError("options", fmt.Sprintf("cannot have more than %d options", maxOptions), len(options)))
	}

	correct := 0
	for i, option := range options {
		if strings.TrimSpace(option.Text) == "" {
			errs = append(errs, *apperrors.NewValidationError(fmt.Sprintf("options[%d].text", i), "is required", option.Text))
		}
		if option.IsCorrect {
			correct++
		}
	}
	if len(options) > 0 && correct != 1 {
		errs = append(errs, *apperrors.NewValidationError("options", "exactly one option must be marked correct", correct))
	}

	return errs
}
