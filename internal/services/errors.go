package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	apperrors "github.com/SAP-F-2025/lms-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrForbidden    = errors.New("forbidden - insufficient permissions")
	ErrInvalidState = errors.New("operation not allowed in current state")

	// Not found
	ErrCourseNotFound     = errors.New("course not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAnswerNotFound     = errors.New("answer not found")

	// Access
	ErrNotEnrolled        = errors.New("user is not enrolled in the course")
	ErrSubmissionNotOwned = errors.New("submission belongs to another user")

	// Attempt lifecycle
	ErrAssessmentInactive     = errors.New("assessment is not active")
	ErrAssessmentNotOpen      = errors.New("assessment is outside its availability window")
	ErrAttemptLimitExceeded   = errors.New("maximum attempts exceeded")
	ErrConcurrentAttempt      = errors.New("another attempt was started concurrently")
	ErrSubmissionClosed       = errors.New("submission is no longer accepting answers")
	ErrAlreadyCompleted       = errors.New("submission already completed")
	ErrSubmissionNotCompleted = errors.New("submission has not been completed")
	ErrInvalidConfiguration   = errors.New("assessment total marks must be positive")
	ErrQuestionAnswered       = errors.New("question already has saved answers; only text and order can change")

	// Grading and review
	ErrMarksOutOfRange   = errors.New("marks out of range")
	ErrAlreadyReviewed   = errors.New("submission already approved")
	ErrGradingIncomplete = errors.New("free-text answers are still ungraded")
)

// ErrorKind is the caller-facing classification of a service error.
type ErrorKind string

const (
	KindNotFound                  ErrorKind = "NotFound"
	KindForbidden                 ErrorKind = "Forbidden"
	KindInvalidState              ErrorKind = "InvalidState"
	KindAttemptsExceeded          ErrorKind = "AttemptsExceeded"
	KindInvalidConfiguration      ErrorKind = "InvalidConfiguration"
	KindMarksOutOfRange           ErrorKind = "MarksOutOfRange"
	KindGradingIncomplete         ErrorKind = "GradingIncomplete"
	KindConcurrentAttemptConflict ErrorKind = "ConcurrentAttemptConflict"
	KindValidation                ErrorKind = "Validation"
	KindUnavailable               ErrorKind = "Unavailable"
	KindInternal                  ErrorKind = "Internal"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrCourseNotFound, KindNotFound},
	{ErrAssessmentNotFound, KindNotFound},
	{ErrQuestionNotFound, KindNotFound},
	{ErrSubmissionNotFound, KindNotFound},
	{ErrAnswerNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrNotEnrolled, KindForbidden},
	{ErrSubmissionNotOwned, KindForbidden},
	{ErrInvalidState, KindInvalidState},
	{ErrAssessmentInactive, KindInvalidState},
	{ErrAssessmentNotOpen, KindInvalidState},
	{ErrSubmissionClosed, KindInvalidState},
	{ErrAlreadyCompleted, KindInvalidState},
	{ErrSubmissionNotCompleted, KindInvalidState},
	{ErrAlreadyReviewed, KindInvalidState},
	{ErrQuestionAnswered, KindInvalidState},
	{ErrAttemptLimitExceeded, KindAttemptsExceeded},
	{ErrInvalidConfiguration, KindInvalidConfiguration},
	{ErrMarksOutOfRange, KindMarksOutOfRange},
	{ErrGradingIncomplete, KindGradingIncomplete},
	{ErrConcurrentAttempt, KindConcurrentAttemptConflict},
	{cache.ErrLockTimeout, KindUnavailable},
}

// Kind classifies err. Anything unrecognised, including storage failures, is Internal.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if IsValidation(err) {
		return KindValidation
	}
	var pe *PermissionError
	if errors.As(err, &pe) {
		return KindForbidden
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     error  `json:"-"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %v",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func (pe *PermissionError) Unwrap() error {
	return pe.Reason
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID string, resourceID uint, resource, action string, reason error) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return Kind(err) == KindNotFound
}

// IsForbidden checks if error represents an ownership or enrollment failure
func IsForbidden(err error) bool {
	return Kind(err) == KindForbidden
}

// IsInvalidState checks if the submission or assessment was in the wrong state
func IsInvalidState(err error) bool {
	return Kind(err) == KindInvalidState
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}
