package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func questionIDs(attempt *AttemptResponse) []uint {
	ids := make([]uint, 0, len(attempt.Questions))
	for _, q := range attempt.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func TestStartAttempt_AttemptLimit(t *testing.T) {
	for _, limit := range []int{1, 3} {
		f := newFixture(t)
		q := f.newQuiz(t, func(r *CreateAssessmentRequest) { r.MaxAttempts = limit })

		for i := 1; i <= limit; i++ {
			attempt := f.start(t, q, student)
			assert.Equal(t, i, attempt.AttemptNumber)
			assert.False(t, attempt.Resumed)
			f.submit(t, q, attempt.SubmissionID, student)
		}

		_, err := f.attempts.StartAttempt(f.ctx, q.assessment.ID, student)
		require.ErrorIs(t, err, ErrAttemptLimitExceeded)
		assert.Equal(t, KindAttemptsExceeded, Kind(err))

		// The limit is per user.
		attempt := f.start(t, q, other)
		assert.Equal(t, 1, attempt.AttemptNumber)
	}
}

func TestStartAttempt_ResumesWithFrozenOrder(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, func(r *CreateAssessmentRequest) { r.RandomizeQuestions = true })
	f.attempts.shuffle = func(ids []uint) {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	first := f.start(t, q, student)
	assert.Equal(t, []uint{q.essay.ID, q.choice.ID}, questionIDs(first))

	f.choose(t, first.SubmissionID, q.choice.ID, q.wrongID, student)

	// A different shuffle must not leak into the resumed attempt.
	f.attempts.shuffle = func([]uint) {}
	second := f.start(t, q, student)

	assert.True(t, second.Resumed)
	assert.Equal(t, first.SubmissionID, second.SubmissionID)
	assert.Equal(t, questionIDs(first), questionIDs(second))
	require.Len(t, second.SavedAnswers, 1)
	assert.Equal(t, q.wrongID, *second.SavedAnswers[0].SelectedOptionID)

	count, err := f.repo.Submission().CountByUserAndAssessment(f.ctx, nil, student.ID, q.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStartAttempt_ResumeIgnoresExhaustedLimit(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, func(r *CreateAssessmentRequest) { r.MaxAttempts = 1 })

	first := f.start(t, q, student)
	second := f.start(t, q, student)

	assert.Equal(t, first.SubmissionID, second.SubmissionID)
	assert.True(t, second.Resumed)
}

func TestStartAttempt_HidesCorrectness(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, func(r *CreateAssessmentRequest) { r.TimeLimit = 30 })

	attempt := f.start(t, q, student)

	require.Len(t, attempt.Questions, 2)
	assert.Equal(t, q.choice.ID, attempt.Questions[0].ID)
	assert.Len(t, attempt.Questions[0].Options, 2)
	assert.Empty(t, attempt.Questions[1].Options)

	require.NotNil(t, attempt.Deadline)
	assert.Equal(t, attempt.StartTime.Add(30*time.Minute), *attempt.Deadline)
	assert.Equal(t, models.SubmissionInProgress, attempt.Status)
}

func TestStartAttempt_Preconditions(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	inactive := false

	tests := []struct {
		name    string
		mutate  func(*CreateAssessmentRequest)
		caller  models.Caller
		wantErr error
		kind    ErrorKind
	}{
		{
			name:    "not enrolled",
			caller:  models.Caller{ID: "stranger", Role: models.RoleStudent},
			wantErr: ErrNotEnrolled,
			kind:    KindForbidden,
		},
		{
			name:    "inactive",
			mutate:  func(r *CreateAssessmentRequest) { r.IsActive = &inactive },
			caller:  student,
			wantErr: ErrAssessmentInactive,
			kind:    KindInvalidState,
		},
		{
			name:    "not yet open",
			mutate:  func(r *CreateAssessmentRequest) { r.StartDate = &future },
			caller:  student,
			wantErr: ErrAssessmentNotOpen,
			kind:    KindInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			q := f.newQuiz(t, tt.mutate)

			_, err := f.attempts.StartAttempt(f.ctx, q.assessment.ID, tt.caller)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, Kind(err))
		})
	}

	t.Run("unknown assessment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.attempts.StartAttempt(f.ctx, 404, student)
		require.ErrorIs(t, err, ErrAssessmentNotFound)
		assert.Equal(t, KindNotFound, Kind(err))
	})
}

// staleRepo reports no prior attempts, as a request racing another start would see.
type staleRepo struct {
	repositories.Repository
}

func (r staleRepo) Submission() repositories.SubmissionRepository {
	return staleSubmissions{r.Repository.Submission()}
}

type staleSubmissions struct {
	repositories.SubmissionRepository
}

func (staleSubmissions) GetInProgress(context.Context, *gorm.DB, string, uint) (*models.Submission, error) {
	return nil, nil
}

func (staleSubmissions) CountByUserAndAssessment(context.Context, *gorm.DB, string, uint) (int, error) {
	return 0, nil
}

func TestStartAttempt_ConcurrentStartConflict(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	f.start(t, q, student)

	racing := NewAttemptService(staleRepo{f.repo}, cache.NewLocalLocker(), nil, f.attempts.logger, validator.New())
	_, err := racing.StartAttempt(f.ctx, q.assessment.ID, student)

	require.ErrorIs(t, err, ErrConcurrentAttempt)
	assert.Equal(t, KindConcurrentAttemptConflict, Kind(err))
}

func TestSaveAnswer_Idempotent(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)

	first := f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, student)
	second := f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, student)
	assert.Equal(t, first.AnswerID, second.AnswerID)

	answers, err := f.repo.Answer().ListBySubmission(f.ctx, nil, attempt.SubmissionID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, q.correctID, *answers[0].SelectedOptionID)
	assert.Equal(t, 5.0, answers[0].MarksObtained)
	assert.True(t, answers[0].IsCorrect)
	assert.True(t, answers[0].IsGraded)

	// Changing the choice overwrites the same row.
	third := f.choose(t, attempt.SubmissionID, q.choice.ID, q.wrongID, student)
	assert.Equal(t, first.AnswerID, third.AnswerID)

	stored, err := f.repo.Answer().GetByID(f.ctx, nil, first.AnswerID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.MarksObtained)
	assert.False(t, stored.IsCorrect)
}

func TestSaveAnswer_ObjectiveMarksAreAllOrNothing(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)

	for _, optionID := range []uint{q.correctID, q.wrongID, q.correctID} {
		resp := f.choose(t, attempt.SubmissionID, q.choice.ID, optionID, student)
		stored, err := f.repo.Answer().GetByID(f.ctx, nil, resp.AnswerID)
		require.NoError(t, err)
		assert.Contains(t, []float64{0, q.choice.Marks}, stored.MarksObtained)
	}
}

func TestSaveAnswer_FreeTextWaitsForReviewer(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)

	resp := f.write(t, attempt.SubmissionID, q.essay.ID, "draft", student)
	stored, err := f.repo.Answer().GetByID(f.ctx, nil, resp.AnswerID)
	require.NoError(t, err)

	assert.False(t, stored.IsGraded)
	assert.Zero(t, stored.MarksObtained)
	assert.Equal(t, "draft", *stored.TextAnswer)
}

func TestSaveAnswer_Rejections(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)

	foreign := f.newQuiz(t, nil)

	missing := uint(99999)
	tests := []struct {
		name string
		req  *SaveAnswerRequest
		as   models.Caller
		kind ErrorKind
	}{
		{
			name: "option from another question",
			req:  &SaveAnswerRequest{SubmissionID: attempt.SubmissionID, QuestionID: q.choice.ID, SelectedOptionID: &missing},
			as:   student,
			kind: KindValidation,
		},
		{
			name: "no option selected",
			req:  &SaveAnswerRequest{SubmissionID: attempt.SubmissionID, QuestionID: q.choice.ID},
			as:   student,
			kind: KindValidation,
		},
		{
			name: "question of another assessment",
			req:  &SaveAnswerRequest{SubmissionID: attempt.SubmissionID, QuestionID: foreign.choice.ID, SelectedOptionID: &foreign.correctID},
			as:   student,
			kind: KindNotFound,
		},
		{
			name: "someone else's submission",
			req:  &SaveAnswerRequest{SubmissionID: attempt.SubmissionID, QuestionID: q.choice.ID, SelectedOptionID: &q.correctID},
			as:   other,
			kind: KindForbidden,
		},
		{
			name: "unknown submission",
			req:  &SaveAnswerRequest{SubmissionID: 4242, QuestionID: q.choice.ID, SelectedOptionID: &q.correctID},
			as:   student,
			kind: KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.attempts.SaveAnswer(f.ctx, tt.req, tt.as)
			require.Error(t, err)
			assert.Equal(t, tt.kind, Kind(err))
		})
	}

	answers, err := f.repo.Answer().ListBySubmission(f.ctx, nil, attempt.SubmissionID)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestSaveAnswer_ClosedAfterSubmit(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	submissionID, _ := f.completed(t, q, student)

	_, err := f.attempts.SaveAnswer(f.ctx, &SaveAnswerRequest{
		SubmissionID:     submissionID,
		QuestionID:       q.choice.ID,
		SelectedOptionID: &q.wrongID,
	}, student)

	require.ErrorIs(t, err, ErrSubmissionClosed)
	assert.Equal(t, KindInvalidState, Kind(err))
}

func TestSubmit_ComputesProvisionalScore(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)
	f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, student)
	f.write(t, attempt.SubmissionID, q.essay.ID, "answer", student)

	resp := f.submit(t, q, attempt.SubmissionID, student)

	assert.Equal(t, models.ResultPendingReview, resp.Status)
	assert.Equal(t, 5.0, resp.ObtainedMarks)
	assert.Equal(t, 10.0, resp.TotalMarks)
	assert.Equal(t, 50.0, resp.Percentage)
	assert.False(t, resp.IsPassed)
	assert.GreaterOrEqual(t, resp.TimeSpent, 0)

	sub := f.submission(t, attempt.SubmissionID)
	assert.Equal(t, models.SubmissionCompleted, sub.Status)
	assert.False(t, sub.IsCheckedByTeacher)
	assert.Nil(t, sub.CheckedBy)
	require.NotNil(t, sub.EndTime)

	submitted := f.publisher.EventsOfType(events.EventAttemptSubmitted)
	require.Len(t, submitted, 1)
	data, ok := submitted[0].Data.(events.AttemptSubmittedEvent)
	require.True(t, ok)
	assert.True(t, data.GradingRequired)
}

func TestSubmit_PassingThresholdIsInclusive(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, func(r *CreateAssessmentRequest) { r.PassingMarks = 5 })
	attempt := f.start(t, q, student)
	f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, student)

	resp := f.submit(t, q, attempt.SubmissionID, student)
	assert.Equal(t, 5.0, resp.ObtainedMarks)
	assert.True(t, resp.IsPassed)
}

func TestSubmit_UsesCurrentAssessmentTotal(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)
	f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, student)

	_, err := f.assessments.Update(f.ctx, q.assessment.ID, models.AssessmentPatch{
		TotalMarks: models.Some(15.0),
	}, teacher)
	require.NoError(t, err)

	resp := f.submit(t, q, attempt.SubmissionID, student)
	assert.Equal(t, 15.0, resp.TotalMarks)
	assert.Equal(t, 33.33, resp.Percentage)
	assert.Equal(t, 15.0, f.submission(t, attempt.SubmissionID).TotalMarks)
}

func TestSubmit_Rejections(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)

	_, err := f.attempts.Submit(f.ctx, attempt.SubmissionID, &SubmitRequest{AssessmentID: q.assessment.ID}, other)
	assert.Equal(t, KindForbidden, Kind(err))

	_, err = f.attempts.Submit(f.ctx, attempt.SubmissionID, &SubmitRequest{AssessmentID: q.assessment.ID + 100}, student)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = f.attempts.Submit(f.ctx, attempt.SubmissionID, &SubmitRequest{}, student)
	assert.Equal(t, KindValidation, Kind(err))

	f.submit(t, q, attempt.SubmissionID, student)

	_, err = f.attempts.Submit(f.ctx, attempt.SubmissionID, &SubmitRequest{AssessmentID: q.assessment.ID}, student)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, KindInvalidState, Kind(err))
}

func TestAttempt_PublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.publisher.Err = errors.New("broker unavailable")
	q := f.newQuiz(t, nil)

	attempt := f.start(t, q, student)
	f.submit(t, q, attempt.SubmissionID, student)

	assert.Equal(t, models.SubmissionCompleted, f.submission(t, attempt.SubmissionID).Status)
	assert.Empty(t, f.publisher.GetPublishedEvents())
}
