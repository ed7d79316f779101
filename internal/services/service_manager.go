package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// ServiceManager hands out the services sharing one repository, lock and cache.
type ServiceManager interface {
	Course() CourseService
	Assessment() AssessmentService
	Question() QuestionService
	Attempt() AttemptService
	Grading() GradingService
	Review() ReviewService
	Analytics() AnalyticsService
}

type Dependencies struct {
	Repo      repositories.Repository
	Locker    cache.Locker
	Cache     cache.CacheService
	Publisher events.EventPublisher
	Logger    *slog.Logger
	Validator *validator.Validator
	ResultTTL time.Duration
}

type serviceManager struct {
	course     CourseService
	assessment AssessmentService
	question   QuestionService
	attempt    AttemptService
	grading    GradingService
	review     ReviewService
	analytics  AnalyticsService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Locker == nil {
		deps.Locker = cache.NewLocalLocker()
	}
	notifier := NewEventNotifier(deps.Publisher, deps.Logger)

	return &serviceManager{
		course:     NewCourseService(deps.Repo, deps.Logger, deps.Validator),
		assessment: NewAssessmentService(deps.Repo, deps.Logger, deps.Validator),
		question:   NewQuestionService(deps.Repo, deps.Logger, deps.Validator),
		attempt:    NewAttemptService(deps.Repo, deps.Locker, notifier, deps.Logger, deps.Validator),
		grading:    NewGradingService(deps.Repo, deps.Locker, deps.Cache, notifier, deps.Logger, deps.Validator),
		review:     NewReviewService(deps.Repo, deps.Locker, deps.Cache, notifier, deps.Logger, deps.ResultTTL),
		analytics:  NewAnalyticsService(deps.Repo, deps.Logger),
	}
}

func (m *serviceManager) Course() CourseService         { return m.course }
func (m *serviceManager) Assessment() AssessmentService { return m.assessment }
func (m *serviceManager) Question() QuestionService     { return m.question }
func (m *serviceManager) Attempt() AttemptService       { return m.attempt }
func (m *serviceManager) Grading() GradingService       { return m.grading }
func (m *serviceManager) Review() ReviewService         { return m.review }
func (m *serviceManager) Analytics() AnalyticsService   { return m.analytics }
