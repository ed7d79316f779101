package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"gorm.io/gorm"
)

// AttemptService covers the student side of an assessment: starting or
// resuming an attempt, saving answers and submitting.
type AttemptService interface {
	StartAttempt(ctx context.Context, assessmentID uint, caller models.Caller) (*AttemptResponse, error)
	SaveAnswer(ctx context.Context, req *SaveAnswerRequest, caller models.Caller) (*AnswerResponse, error)
	Submit(ctx context.Context, submissionID uint, req *SubmitRequest, caller models.Caller) (*SubmitResponse, error)
}

type attemptService struct {
	repo      repositories.Repository
	locker    cache.Locker
	notifier  *EventNotifier
	logger    *slog.Logger
	validator *validator.Validator

	now     func() time.Time
	shuffle func(ids []uint)
}

func NewAttemptService(
	repo repositories.Repository,
	locker cache.Locker,
	notifier *EventNotifier,
	logger *slog.Logger,
	validator *validator.Validator,
) AttemptService {
	return &attemptService{
		repo:      repo,
		locker:    locker,
		notifier:  notifier,
		logger:    logger,
		validator: validator,
		now:       time.Now,
		shuffle: func(ids []uint) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
	}
}

// ===== START / RESUME =====

func (s *attemptService) StartAttempt(ctx context.Context, assessmentID uint, caller models.Caller) (*AttemptResponse, error) {
	s.logger.Info("Starting assessment attempt",
		"assessment_id", assessmentID,
		"user_id", caller.ID)

	resp, err := s.startAttempt(ctx, assessmentID, caller)
	switch {
	case err != nil:
		metrics.AttemptsStarted.WithLabelValues(string(Kind(err))).Inc()
	case resp.Resumed:
		metrics.AttemptsStarted.WithLabelValues("resumed").Inc()
	default:
		metrics.AttemptsStarted.WithLabelValues("created").Inc()
	}
	return resp, err
}

func (s *attemptService) startAttempt(ctx context.Context, assessmentID uint, caller models.Caller) (*AttemptResponse, error) {
	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if !assessment.IsActive {
		return nil, ErrAssessmentInactive
	}
	now := s.now()
	if !assessment.IsOpenAt(now) {
		return nil, ErrAssessmentNotOpen
	}

	enrolled, err := s.repo.Course().IsEnrolled(ctx, nil, assessment.CourseID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, NewPermissionError(caller.ID, assessmentID, "assessment", "start", ErrNotEnrolled)
	}

	// An open attempt is handed back as-is, even when the limit is already reached.
	existing, err := s.repo.Submission().GetInProgress(ctx, nil, caller.ID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check current attempt: %w", err)
	}
	if existing != nil {
		s.logger.Info("Resuming existing attempt",
			"submission_id", existing.ID,
			"attempt_number", existing.AttemptNumber)
		return s.resumeAttempt(ctx, existing, assessment)
	}

	count, err := s.repo.Submission().CountByUserAndAssessment(ctx, nil, caller.ID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if count >= assessment.MaxAttempts {
		return nil, fmt.Errorf("%w: %d of %d used", ErrAttemptLimitExceeded, count, assessment.MaxAttempts)
	}
	if assessment.TotalMarks <= 0 {
		return nil, ErrInvalidConfiguration
	}

	questions := make([]*models.Question, len(assessment.Questions))
	order := make([]uint, len(assessment.Questions))
	for i := range assessment.Questions {
		questions[i] = &assessment.Questions[i]
		order[i] = assessment.Questions[i].ID
	}
	if assessment.RandomizeQuestions {
		s.shuffle(order)
		questions = orderQuestions(questions, order)
	}

	submission := &models.Submission{
		AssessmentID:  assessmentID,
		UserID:        caller.ID,
		AttemptNumber: count + 1,
		Status:        models.SubmissionInProgress,
		TotalMarks:    assessment.TotalMarks,
		StartTime:     now,
	}
	if err := submission.SetFrozenOrder(order); err != nil {
		return nil, fmt.Errorf("failed to encode question order: %w", err)
	}

	if err := s.repo.Submission().Create(ctx, nil, submission); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			s.logger.Warn("Concurrent attempt start detected",
				"assessment_id", assessmentID,
				"user_id", caller.ID,
				"attempt_number", submission.AttemptNumber)
			return nil, ErrConcurrentAttempt
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("Attempt created",
		"submission_id", submission.ID,
		"attempt_number", submission.AttemptNumber,
		"question_count", len(order))
	s.notifier.AttemptStarted(ctx, submission, assessment)

	return buildAttemptResponse(submission, assessment, questions, nil, false), nil
}

func (s *attemptService) resumeAttempt(ctx context.Context, submission *models.Submission, assessment *models.Assessment) (*AttemptResponse, error) {
	var questions []*models.Question
	if order := submission.FrozenOrder(); order != nil {
		loaded, err := s.repo.Question().GetByIDs(ctx, nil, order)
		if err != nil {
			return nil, fmt.Errorf("failed to load attempt questions: %w", err)
		}
		questions = orderQuestions(loaded, order)
	} else {
		for i := range assessment.Questions {
			questions = append(questions, &assessment.Questions[i])
		}
	}

	answers, err := s.repo.Answer().ListBySubmission(ctx, nil, submission.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved answers: %w", err)
	}

	return buildAttemptResponse(submission, assessment, questions, answers, true), nil
}

// ===== ANSWERS =====

func (s *attemptService) SaveAnswer(ctx context.Context, req *SaveAnswerRequest, caller models.Caller) (*AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var answer *models.SubmissionAnswer
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		// Shared lock: saves run side by side, Submit waits for them.
		submission, err := s.repo.Submission().GetByIDForShare(ctx, tx, req.SubmissionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("failed to get submission: %w", err)
		}
		if submission.UserID != caller.ID {
			return NewPermissionError(caller.ID, submission.ID, "submission", "answer", ErrSubmissionNotOwned)
		}
		if submission.Status != models.SubmissionInProgress {
			return fmt.Errorf("%w: status is %s", ErrSubmissionClosed, submission.Status)
		}

		question, err := s.repo.Question().GetByID(ctx, tx, req.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}
		if question.AssessmentID != submission.AssessmentID || !inFrozenOrder(submission, question.ID) {
			return ErrQuestionNotFound
		}

		answer, err = gradeOnSave(submission.ID, question, req)
		if err != nil {
			return err
		}
		if err := s.repo.Answer().Upsert(ctx, tx, answer); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if answer.IsGraded {
		metrics.AnswersGraded.WithLabelValues("auto").Inc()
	}
	s.logger.Debug("Answer saved",
		"submission_id", answer.SubmissionID,
		"question_id", answer.QuestionID,
		"answer_id", answer.ID)

	return &AnswerResponse{
		AnswerID:         answer.ID,
		SubmissionID:     answer.SubmissionID,
		QuestionID:       answer.QuestionID,
		SelectedOptionID: answer.SelectedOptionID,
		TextAnswer:       answer.TextAnswer,
		TimeSpent:        answer.TimeSpent,
		SavedAt:          answer.UpdatedAt,
	}, nil
}

// ===== SUBMIT =====

func (s *attemptService) Submit(ctx context.Context, submissionID uint, req *SubmitRequest, caller models.Caller) (*SubmitResponse, error) {
	s.logger.Info("Submitting assessment attempt",
		"submission_id", submissionID,
		"assessment_id", req.AssessmentID,
		"user_id", caller.ID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	unlock, err := lockSubmission(ctx, s.locker, submissionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		submission      *models.Submission
		gradingRequired bool
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
		if submission.AssessmentID != req.AssessmentID {
			return ErrSubmissionNotFound
		}
		if submission.UserID != caller.ID {
			return NewPermissionError(caller.ID, submission.ID, "submission", "submit", ErrSubmissionNotOwned)
		}
		switch submission.Status {
		case models.SubmissionInProgress:
		case models.SubmissionCompleted:
			return ErrAlreadyCompleted
		default:
			return fmt.Errorf("%w: status is %s", ErrSubmissionClosed, submission.Status)
		}

		// Current assessment values win over the snapshot taken at start.
		assessment, err := s.repo.Assessment().GetByID(ctx, tx, submission.AssessmentID)
		if err != nil {
			return fmt.Errorf("failed to get assessment: %w", err)
		}
		if assessment.TotalMarks <= 0 {
			return ErrInvalidConfiguration
		}

		obtained, err := s.repo.Answer().SumMarks(ctx, tx, submission.ID)
		if err != nil {
			return err
		}
		sc := computeScore(obtained, assessment.TotalMarks, assessment.PassingMarks)

		now := s.now()
		submission.Status = models.SubmissionCompleted
		submission.TotalMarks = sc.Total
		submission.ObtainedMarks = sc.Obtained
		submission.Percentage = sc.Percentage
		submission.IsPassed = sc.Passed
		submission.EndTime = &now
		submission.TimeSpent = elapsedSeconds(submission.StartTime, now)
		submission.IsCheckedByTeacher = false
		submission.CheckedBy = nil
		submission.CheckedAt = nil

		if err := s.repo.Submission().Update(ctx, tx, submission); err != nil {
			return err
		}

		gradingRequired, err = s.repo.Answer().HasUngradedFreeText(ctx, tx, submission.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.SubmissionsCompleted.Inc()
	s.logger.Info("Attempt submitted",
		"submission_id", submission.ID,
		"obtained_marks", submission.ObtainedMarks,
		"total_marks", submission.TotalMarks,
		"grading_required", gradingRequired)
	s.notifier.AttemptSubmitted(ctx, submission, gradingRequired)

	return &SubmitResponse{
		SubmissionID:  submission.ID,
		Status:        models.ResultPendingReview,
		ObtainedMarks: submission.ObtainedMarks,
		TotalMarks:    submission.TotalMarks,
		Percentage:    submission.Percentage,
		IsPassed:      submission.IsPassed,
		TimeSpent:     submission.TimeSpent,
		SubmittedAt:   *submission.EndTime,
	}, nil
}
