package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type CourseHandler struct {
	BaseHandler
	courseService     services.CourseService
	assessmentService services.AssessmentService
}

func NewCourseHandler(courseService services.CourseService, assessmentService services.AssessmentService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:       NewBaseHandler(logger),
		courseService:     courseService,
		assessmentService: assessmentService,
	}
}

// CreateCourse creates a new course
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// Enroll adds a user to the course; repeating it is a no-op
// @Router /courses/{id}/enrollments [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var req services.EnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Enrolling user", "course_id", courseID, "enrollee", req.UserID)

	enrollment, err := h.courseService.Enroll(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

// ListAssessments lists the assessments of a course
// @Router /courses/{id}/assessments [get]
func (h *CourseHandler) ListAssessments(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	assessments, err := h.assessmentService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessments)
}
