package handlers

import (
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/policy"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	courseHandler     *CourseHandler
	assessmentHandler *AssessmentHandler
	questionHandler   *QuestionHandler
	attemptHandler    *AttemptHandler
	gradingHandler    *GradingHandler

	auth   Authenticator
	policy *policy.Policy
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	auth Authenticator,
	p *policy.Policy,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		courseHandler:     NewCourseHandler(serviceManager.Course(), serviceManager.Assessment(), logger),
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), serviceManager.Attempt(), logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), serviceManager.Review(), logger),
		gradingHandler:    NewGradingHandler(serviceManager.Grading(), serviceManager.Review(), serviceManager.Analytics(), logger),
		auth:              auth,
		policy:            p,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(metrics.MetricsMiddleware())

	router.GET("/health", HealthCheck)
	router.GET("/metrics", metrics.PrometheusHandler())

	can := func(c policy.Capability) gin.HandlerFunc {
		return RequireCapability(hm.policy, c)
	}

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.auth))
	{
		courses := v1.Group("/courses")
		{
			courses.POST("", can(policy.ManageCourses), hm.courseHandler.CreateCourse)
			courses.POST("/:id/enrollments", can(policy.ManageEnrollments), hm.courseHandler.Enroll)
			courses.GET("/:id/assessments", can(policy.ViewAssessment), hm.courseHandler.ListAssessments)
		}

		assessments := v1.Group("/assessments")
		{
			assessments.POST("", can(policy.ManageAssessments), hm.assessmentHandler.CreateAssessment)
			assessments.GET("/:id", can(policy.ViewAssessment), hm.assessmentHandler.GetAssessment)
			assessments.PATCH("/:id", can(policy.ManageAssessments), hm.assessmentHandler.UpdateAssessment)

			// Question management
			assessments.POST("/:id/questions", can(policy.ManageQuestions), hm.questionHandler.CreateQuestion)
			assessments.GET("/:id/questions", can(policy.ViewQuestionBank), hm.questionHandler.ListQuestions)

			// Taking the assessment
			assessments.POST("/:id/attempts", can(policy.StartTakingAssessment), hm.assessmentHandler.StartAttempt)
		}

		questions := v1.Group("/questions")
		{
			questions.PATCH("/:id", can(policy.ManageQuestions), hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", can(policy.ManageQuestions), hm.questionHandler.DeactivateQuestion)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.PUT("/:id/answers/:question_id", can(policy.AnswerQuestions), hm.attemptHandler.SaveAnswer)
			submissions.POST("/:id/submit", can(policy.SubmitAssessment), hm.attemptHandler.Submit)
			submissions.GET("/:id/result", can(policy.ViewResults), hm.attemptHandler.GetResult)
		}

		grading := v1.Group("/grading")
		{
			grading.POST("/answers/:answer_id", can(policy.GiveGradeToQuestions), hm.gradingHandler.GradeAnswer)
			grading.GET("/assessments/:id/pending", can(policy.GiveGradeToQuestions), hm.gradingHandler.ListPending)
			grading.GET("/assessments/:id/export", can(policy.ExportResults), hm.gradingHandler.ExportResults)
			grading.GET("/assessments/:id/analytics", can(policy.ViewAnalytics), hm.gradingHandler.GetAnalytics)
			grading.POST("/submissions/:id/approve", can(policy.ApproveReview), hm.gradingHandler.ApproveReview)
			grading.GET("/submissions/:id/audit", can(policy.ApproveReview), hm.gradingHandler.GetAuditTrail)
		}
	}
}
