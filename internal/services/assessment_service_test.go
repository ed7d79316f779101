package services

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseService_EnrollIsIdempotent(t *testing.T) {
	f := newFixture(t)
	course := f.newCourse(t)

	for i := 0; i < 2; i++ {
		_, err := f.courses.Enroll(f.ctx, course.ID, &EnrollRequest{UserID: student.ID}, teacher)
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Where("course_id = ?", course.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	enrolled, err := f.courses.IsEnrolled(f.ctx, course.ID, student.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	_, err = f.courses.Enroll(f.ctx, 555, &EnrollRequest{UserID: student.ID}, teacher)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestAssessmentService_Create(t *testing.T) {
	f := newFixture(t)
	course := f.newCourse(t)

	tests := []struct {
		name    string
		req     CreateAssessmentRequest
		wantErr bool
		field   string
	}{
		{
			name: "valid",
			req:  CreateAssessmentRequest{CourseID: course.ID, Title: "Quiz", TotalMarks: 10, PassingMarks: 5, MaxAttempts: 1},
		},
		{
			name:    "passing above total",
			req:     CreateAssessmentRequest{CourseID: course.ID, Title: "Quiz", TotalMarks: 10, PassingMarks: 11, MaxAttempts: 1},
			wantErr: true,
			field:   "passing_marks",
		},
		{
			name:    "non-positive total",
			req:     CreateAssessmentRequest{CourseID: course.ID, Title: "Quiz", TotalMarks: 0, MaxAttempts: 1},
			wantErr: true,
			field:   "total_marks",
		},
		{
			name:    "zero attempts",
			req:     CreateAssessmentRequest{CourseID: course.ID, Title: "Quiz", TotalMarks: 10},
			wantErr: true,
			field:   "max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			assessment, err := f.assessments.Create(f.ctx, &req, teacher)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.True(t, assessment.IsActive)
				assert.Equal(t, teacher.ID, assessment.CreatedBy)
				return
			}
			var ve ValidationErrors
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.HasField(tt.field), "expected error on %s, got %v", tt.field, ve)
		})
	}

	_, err := f.assessments.Create(f.ctx, &CreateAssessmentRequest{CourseID: 999, Title: "Quiz", TotalMarks: 10, MaxAttempts: 1}, teacher)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestAssessmentService_UpdatePatch(t *testing.T) {
	f := newFixture(t)
	start := time.Now().Add(-time.Hour).Truncate(time.Second)
	q := f.newQuiz(t, func(r *CreateAssessmentRequest) {
		r.TimeLimit = 45
		r.StartDate = &start
	})

	updated, err := f.assessments.Update(f.ctx, q.assessment.ID, models.AssessmentPatch{
		Title:     models.Some("Final"),
		StartDate: models.Some[*time.Time](nil),
	}, teacher)
	require.NoError(t, err)

	assert.Equal(t, "Final", updated.Title)
	assert.Nil(t, updated.StartDate)
	// Absent fields keep their stored values.
	assert.Equal(t, 45, updated.TimeLimit)
	assert.Equal(t, 10.0, updated.TotalMarks)

	stored, err := f.assessments.GetByID(f.ctx, q.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", stored.Title)
	assert.Nil(t, stored.StartDate)

	_, err = f.assessments.Update(f.ctx, q.assessment.ID, models.AssessmentPatch{Title: models.Some("Hijack")}, models.Caller{ID: "teacher-2", Role: models.RoleTeacher})
	assert.Equal(t, KindForbidden, Kind(err))

	_, err = f.assessments.Update(f.ctx, q.assessment.ID, models.AssessmentPatch{PassingMarks: models.Some(50.0)}, admin)
	assert.Equal(t, KindValidation, Kind(err))
}

func TestAssessmentService_ListByCourse(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)

	list, err := f.assessments.ListByCourse(f.ctx, q.assessment.CourseID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, q.assessment.ID, list[0].ID)

	_, err = f.assessments.ListByCourse(f.ctx, 999)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestQuestionService_CreateValidatesOptions(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)

	tests := []struct {
		name  string
		req   CreateQuestionRequest
		field string
	}{
		{
			name:  "single choice without a correct option",
			req:   CreateQuestionRequest{Text: "?", Type: models.SingleChoice, Marks: 1, Options: []OptionInput{{Text: "a"}, {Text: "b"}}},
			field: "options",
		},
		{
			name:  "true false with three options",
			req:   CreateQuestionRequest{Text: "?", Type: models.TrueFalse, Marks: 1, Options: []OptionInput{{Text: "t", IsCorrect: true}, {Text: "f"}, {Text: "x"}}},
			field: "options",
		},
		{
			name:  "free text with options",
			req:   CreateQuestionRequest{Text: "?", Type: models.ShortAnswer, Marks: 1, Options: []OptionInput{{Text: "a"}}},
			field: "options",
		},
		{
			name:  "unknown type",
			req:   CreateQuestionRequest{Text: "?", Type: "matching", Marks: 1},
			field: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.questions.Create(f.ctx, q.assessment.ID, &req, teacher)
			var ve ValidationErrors
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.HasField(tt.field), "expected error on %s, got %v", tt.field, ve)
		})
	}
}

func TestQuestionService_OrderAndDeactivate(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	assert.Equal(t, 1, q.choice.Order)
	assert.Equal(t, 2, q.essay.Order)

	require.NoError(t, f.questions.Deactivate(f.ctx, q.essay.ID, teacher))

	active, err := f.questions.ListByAssessment(f.ctx, q.assessment.ID, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, q.choice.ID, active[0].ID)

	all, err := f.questions.ListByAssessment(f.ctx, q.assessment.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// New attempts no longer serve the deactivated question.
	attempt := f.start(t, q, student)
	assert.Equal(t, []uint{q.choice.ID}, questionIDs(attempt))

	err = f.questions.Deactivate(f.ctx, q.choice.ID, other)
	assert.Equal(t, KindForbidden, Kind(err))
}

func TestQuestionService_UpdateReplacesOptions(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)

	updated, err := f.questions.Update(f.ctx, q.choice.ID, models.QuestionPatch{
		Marks: models.Some(2.0),
		Options: models.Some([]models.Option{
			{Text: "Hybrid logical clock", IsCorrect: true, Order: 1},
			{Text: "NTP", Order: 2},
			{Text: "GPS", Order: 3},
		}),
	}, teacher)
	require.NoError(t, err)

	assert.Equal(t, 2.0, updated.Marks)
	require.Len(t, updated.Options, 3)
	assert.Equal(t, "Hybrid logical clock", updated.Options[0].Text)
	assert.Equal(t, "GPS", updated.Options[2].Text)
	require.NotNil(t, updated.CorrectOption())
	assert.Equal(t, "Hybrid logical clock", updated.CorrectOption().Text)

	_, err = f.questions.Update(f.ctx, q.choice.ID, models.QuestionPatch{
		Options: models.Some([]models.Option{{Text: "only", IsCorrect: true}}),
	}, teacher)
	assert.Equal(t, KindValidation, Kind(err))
}

func TestAnalyticsService(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)

	passing, essayID := f.completed(t, q, student)
	f.grade(t, essayID, 5)
	_, err := f.review.ApproveReview(f.ctx, passing, teacher)
	require.NoError(t, err)

	f.completed(t, q, other)
	f.start(t, q, student)

	analytics, err := f.analytics.GetAssessmentAnalytics(f.ctx, q.assessment.ID, teacher)
	require.NoError(t, err)

	assert.Equal(t, int64(3), analytics.TotalAttempts)
	assert.Equal(t, int64(2), analytics.UniqueStudents)
	assert.Equal(t, int64(2), analytics.CompletedAttempts)
	assert.Equal(t, int64(1), analytics.ReviewedAttempts)
	assert.Equal(t, int64(1), analytics.PassedAttempts)
	assert.Equal(t, int64(1), analytics.PendingReview)
	assert.Equal(t, 1, analytics.PendingAnswers)
	assert.Equal(t, 50.0, analytics.PassRate)
	assert.Equal(t, 75.0, analytics.AveragePercentage)
	assert.Equal(t, 100.0, analytics.HighestPercentage)
	assert.Equal(t, 50.0, analytics.LowestPercentage)

	_, err = f.analytics.GetAssessmentAnalytics(f.ctx, 999, teacher)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestQuestionService_EditsAfterAnswersKeepScoring(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	attempt := f.start(t, q, student)
	f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, student)

	revise := func(mutate func(*models.Option)) []models.Option {
		opts := make([]models.Option, 0, len(q.choice.Options))
		for _, o := range q.choice.Options {
			mutate(&o)
			opts = append(opts, o)
		}
		return opts
	}

	// Rewording keeps option ids, so the saved selection stays valid.
	updated, err := f.questions.Update(f.ctx, q.choice.ID, models.QuestionPatch{
		Text:    models.Some("Which clock never goes backwards?"),
		Options: models.Some(revise(func(o *models.Option) { o.Text += " (revised)" })),
	}, teacher)
	require.NoError(t, err)
	require.Len(t, updated.Options, 2)
	require.NotNil(t, updated.CorrectOption())
	assert.Equal(t, q.correctID, updated.CorrectOption().ID)
	assert.Equal(t, "Lamport clock (revised)", updated.CorrectOption().Text)

	f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, student)

	tests := []struct {
		name  string
		patch models.QuestionPatch
	}{
		{"marks", models.QuestionPatch{Marks: models.Some(2.0)}},
		{"correct option moved", models.QuestionPatch{Options: models.Some(revise(func(o *models.Option) { o.IsCorrect = !o.IsCorrect }))}},
		{"options without ids", models.QuestionPatch{Options: models.Some([]models.Option{
			{Text: "Wall clock", Order: 1},
			{Text: "Lamport clock", IsCorrect: true, Order: 2},
		})}},
		{"option added", models.QuestionPatch{Options: models.Some(append(revise(func(*models.Option) {}), models.Option{Text: "GPS", Order: 3}))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.questions.Update(f.ctx, q.choice.ID, tt.patch, teacher)
			require.ErrorIs(t, err, ErrQuestionAnswered)
			assert.Equal(t, KindInvalidState, Kind(err))
		})
	}

	// Sending the current marks back is not a change.
	_, err = f.questions.Update(f.ctx, q.choice.ID, models.QuestionPatch{Marks: models.Some(5.0)}, teacher)
	require.NoError(t, err)

	submitted := f.submit(t, q, attempt.SubmissionID, student)
	assert.Equal(t, 5.0, submitted.ObtainedMarks)

	result, err := f.review.GetResult(f.ctx, attempt.SubmissionID, teacher)
	require.NoError(t, err)
	require.Len(t, result.Answers, 1)
	detail := result.Answers[0]
	require.NotNil(t, detail.SelectedOptionID)
	require.NotNil(t, detail.CorrectOptionID)
	assert.Equal(t, q.correctID, *detail.SelectedOptionID)
	assert.Equal(t, q.correctID, *detail.CorrectOptionID)
	assert.True(t, detail.IsCorrect)
	assert.Equal(t, 5.0, detail.MarksObtained)
}

func TestReviewerMustOwnAssessment(t *testing.T) {
	f := newFixture(t)
	q := f.newQuiz(t, nil)
	submissionID, essayID := f.completed(t, q, student)
	stranger := models.Caller{ID: "teacher-2", Role: models.RoleTeacher}

	marks := 5.0
	_, err := f.grading.GradeAnswer(f.ctx, essayID, &GradeAnswerRequest{MarksObtained: &marks}, stranger)
	assert.Equal(t, KindForbidden, Kind(err))
	answer, err := f.repo.Answer().GetByID(f.ctx, nil, essayID)
	require.NoError(t, err)
	assert.False(t, answer.IsGraded)

	_, err = f.grading.ListPendingAnswers(f.ctx, q.assessment.ID, stranger)
	assert.Equal(t, KindForbidden, Kind(err))
	_, err = f.grading.ExportResults(f.ctx, q.assessment.ID, stranger)
	assert.Equal(t, KindForbidden, Kind(err))
	_, err = f.analytics.GetAssessmentAnalytics(f.ctx, q.assessment.ID, stranger)
	assert.Equal(t, KindForbidden, Kind(err))

	f.grade(t, essayID, 5)
	_, err = f.review.ApproveReview(f.ctx, submissionID, stranger)
	assert.Equal(t, KindForbidden, Kind(err))
	assert.False(t, f.submission(t, submissionID).IsCheckedByTeacher)

	// Admins review any assessment.
	_, err = f.review.ApproveReview(f.ctx, submissionID, admin)
	require.NoError(t, err)
}
