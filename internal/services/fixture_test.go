package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"github.com/SAP-F-2025/lms-service/pkg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	teacher = models.Caller{ID: "teacher-1", Role: models.RoleTeacher}
	student = models.Caller{ID: "student-1", Role: models.RoleStudent}
	other   = models.Caller{ID: "student-2", Role: models.RoleStudent}
	admin   = models.Caller{ID: "admin-1", Role: models.RoleAdmin}
)

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	repo      repositories.Repository
	cache     cache.CacheService
	publisher *events.MockEventPublisher

	courses     CourseService
	assessments AssessmentService
	questions   QuestionService
	attempts    *attemptService
	grading     GradingService
	review      ReviewService
	analytics   AnalyticsService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to :memory: is its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, pkg.AutoMigrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewRepository(db)
	v := validator.New()
	locker := cache.NewLocalLocker()
	memCache := cache.NewMemoryCache()
	publisher := events.NewMockEventPublisher(log)
	notifier := NewEventNotifier(publisher, log)

	return &fixture{
		ctx:         context.Background(),
		db:          db,
		repo:        repo,
		cache:       memCache,
		publisher:   publisher,
		courses:     NewCourseService(repo, log, v),
		assessments: NewAssessmentService(repo, log, v),
		questions:   NewQuestionService(repo, log, v),
		attempts:    NewAttemptService(repo, locker, notifier, log, v).(*attemptService),
		grading:     NewGradingService(repo, locker, memCache, notifier, log, v),
		review:      NewReviewService(repo, locker, memCache, notifier, log, time.Minute),
		analytics:   NewAnalyticsService(repo, log),
	}
}

// quiz is an assessment with one single-choice and one long-answer question,
// and an enrolled student.
type quiz struct {
	assessment *models.Assessment
	choice     *models.Question
	essay      *models.Question
	correctID  uint
	wrongID    uint
}

func (f *fixture) newCourse(t *testing.T, enrolled ...models.Caller) *models.Course {
	t.Helper()
	course, err := f.courses.Create(f.ctx, &CreateCourseRequest{Title: "Distributed Systems"}, teacher)
	require.NoError(t, err)
	for _, c := range enrolled {
		_, err := f.courses.Enroll(f.ctx, course.ID, &EnrollRequest{UserID: c.ID}, teacher)
		require.NoError(t, err)
	}
	return course
}

// newQuiz builds the 10-mark quiz: a 5-mark single choice whose second
// option is correct and a 5-mark long answer.
func (f *fixture) newQuiz(t *testing.T, mutate func(*CreateAssessmentRequest)) *quiz {
	t.Helper()
	course := f.newCourse(t, student, other)

	req := &CreateAssessmentRequest{
		CourseID:     course.ID,
		Title:        "Midterm",
		TotalMarks:   10,
		PassingMarks: 6,
		MaxAttempts:  2,
	}
	if mutate != nil {
		mutate(req)
	}
	assessment, err := f.assessments.Create(f.ctx, req, teacher)
	require.NoError(t, err)

	choice, err := f.questions.Create(f.ctx, assessment.ID, &CreateQuestionRequest{
		Text:  "Which clock is monotonic?",
		Type:  models.SingleChoice,
		Marks: 5,
		Options: []OptionInput{
			{Text: "Wall clock"},
			{Text: "Lamport clock", IsCorrect: true},
		},
	}, teacher)
	require.NoError(t, err)

	essay, err := f.questions.Create(f.ctx, assessment.ID, &CreateQuestionRequest{
		Text:  "Explain vector clocks.",
		Type:  models.LongAnswer,
		Marks: 5,
	}, teacher)
	require.NoError(t, err)

	q := &quiz{assessment: assessment, choice: choice, essay: essay}
	for _, o := range choice.Options {
		if o.IsCorrect {
			q.correctID = o.ID
		} else {
			q.wrongID = o.ID
		}
	}
	require.NotZero(t, q.correctID)
	require.NotZero(t, q.wrongID)
	return q
}

func (f *fixture) start(t *testing.T, q *quiz, caller models.Caller) *AttemptResponse {
	t.Helper()
	attempt, err := f.attempts.StartAttempt(f.ctx, q.assessment.ID, caller)
	require.NoError(t, err)
	return attempt
}

func (f *fixture) choose(t *testing.T, submissionID, questionID, optionID uint, caller models.Caller) *AnswerResponse {
	t.Helper()
	answer, err := f.attempts.SaveAnswer(f.ctx, &SaveAnswerRequest{
		SubmissionID:     submissionID,
		QuestionID:       questionID,
		SelectedOptionID: &optionID,
	}, caller)
	require.NoError(t, err)
	return answer
}

func (f *fixture) write(t *testing.T, submissionID, questionID uint, text string, caller models.Caller) *AnswerResponse {
	t.Helper()
	answer, err := f.attempts.SaveAnswer(f.ctx, &SaveAnswerRequest{
		SubmissionID: submissionID,
		QuestionID:   questionID,
		TextAnswer:   &text,
	}, caller)
	require.NoError(t, err)
	return answer
}

func (f *fixture) submit(t *testing.T, q *quiz, submissionID uint, caller models.Caller) *SubmitResponse {
	t.Helper()
	resp, err := f.attempts.Submit(f.ctx, submissionID, &SubmitRequest{AssessmentID: q.assessment.ID}, caller)
	require.NoError(t, err)
	return resp
}

// completed runs a full attempt: correct choice, a written essay, then submit.
// It returns the submission id and the essay answer id.
func (f *fixture) completed(t *testing.T, q *quiz, caller models.Caller) (uint, uint) {
	t.Helper()
	attempt := f.start(t, q, caller)
	f.choose(t, attempt.SubmissionID, q.choice.ID, q.correctID, caller)
	essay := f.write(t, attempt.SubmissionID, q.essay.ID, "Each node keeps a counter per peer.", caller)
	f.submit(t, q, attempt.SubmissionID, caller)
	return attempt.SubmissionID, essay.AnswerID
}

func (f *fixture) grade(t *testing.T, answerID uint, marks float64) *GradeResponse {
	t.Helper()
	resp, err := f.grading.GradeAnswer(f.ctx, answerID, &GradeAnswerRequest{MarksObtained: &marks}, teacher)
	require.NoError(t, err)
	return resp
}

func (f *fixture) submission(t *testing.T, id uint) *models.Submission {
	t.Helper()
	sub, err := f.repo.Submission().GetByID(f.ctx, nil, id)
	require.NoError(t, err)
	return sub
}
