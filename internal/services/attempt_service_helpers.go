package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
)

// lockSubmission takes the per-submission lock shared by Submit and GradeAnswer.
func lockSubmission(ctx context.Context, locker cache.Locker, submissionID uint) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	start := time.Now()
	unlock, err := locker.Lock(ctx, cache.SubmissionLockKey(submissionID))
	metrics.ObserveLockWait(start)
	if err != nil {
		return nil, fmt.Errorf("failed to lock submission %d: %w", submissionID, err)
	}
	return unlock, nil
}

// gradeOnSave builds the answer row for req. Objective answers are scored
// immediately; free-text answers wait for a reviewer.
func gradeOnSave(submissionID uint, question *models.Question, req *SaveAnswerRequest) (*models.SubmissionAnswer, error) {
	answer := &models.SubmissionAnswer{
		SubmissionID: submissionID,
		QuestionID:   question.ID,
		TimeSpent:    req.TimeSpent,
	}

	switch {
	case question.Type.IsObjective():
		if req.SelectedOptionID == nil {
			return nil, ValidationErrors{*NewValidationError("selected_option_id", "is required", nil)}
		}
		option := question.FindOption(*req.SelectedOptionID)
		if option == nil {
			return nil, ValidationErrors{*NewValidationError("selected_option_id", "does not belong to the question", *req.SelectedOptionID)}
		}
		optionID := option.ID
		answer.SelectedOptionID = &optionID
		answer.IsCorrect = option.IsCorrect
		if option.IsCorrect {
			answer.MarksObtained = question.Marks
		}
		answer.IsGraded = true

	case question.Type.IsFreeText():
		answer.TextAnswer = req.TextAnswer

	default:
		return nil, fmt.Errorf("unsupported question type %q", question.Type)
	}

	return answer, nil
}

// inFrozenOrder reports whether questionID was served in this attempt.
// Attempts without a recorded order accept any question of the assessment.
func inFrozenOrder(submission *models.Submission, questionID uint) bool {
	order := submission.FrozenOrder()
	if order == nil {
		return true
	}
	for _, id := range order {
		if id == questionID {
			return true
		}
	}
	return false
}

// orderQuestions arranges questions by order, dropping ids that no longer resolve.
func orderQuestions(questions []*models.Question, order []uint) []*models.Question {
	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]*models.Question, 0, len(order))
	for _, id := range order {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}

func buildAttemptResponse(
	submission *models.Submission,
	assessment *models.Assessment,
	questions []*models.Question,
	answers []*models.SubmissionAnswer,
	resumed bool,
) *AttemptResponse {
	resp := &AttemptResponse{
		SubmissionID:  submission.ID,
		AssessmentID:  submission.AssessmentID,
		AttemptNumber: submission.AttemptNumber,
		Status:        submission.Status,
		StartTime:     submission.StartTime,
		Resumed:       resumed,
		Questions:     make([]QuestionView, 0, len(questions)),
	}
	if assessment.TimeLimit > 0 {
		deadline := submission.StartTime.Add(time.Duration(assessment.TimeLimit) * time.Minute)
		resp.Deadline = &deadline
	}

	for _, q := range questions {
		view := QuestionView{
			ID:    q.ID,
			Text:  q.Text,
			Type:  q.Type,
			Marks: q.Marks,
		}
		for _, o := range q.Options {
			view.Options = append(view.Options, OptionView{ID: o.ID, Text: o.Text, Order: o.Order})
		}
		resp.Questions = append(resp.Questions, view)
	}

	for _, a := range answers {
		resp.SavedAnswers = append(resp.SavedAnswers, SavedAnswerView{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			TextAnswer:       a.TextAnswer,
			TimeSpent:        a.TimeSpent,
		})
	}

	return resp
}
