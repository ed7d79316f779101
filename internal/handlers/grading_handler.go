package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type GradingHandler struct {
	BaseHandler
	gradingService   services.GradingService
	reviewService    services.ReviewService
	analyticsService services.AnalyticsService
}

func NewGradingHandler(
	gradingService services.GradingService,
	reviewService services.ReviewService,
	analyticsService services.AnalyticsService,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:      NewBaseHandler(logger),
		gradingService:   gradingService,
		reviewService:    reviewService,
		analyticsService: analyticsService,
	}
}

// GradeAnswer manually grades a single answer
// @Summary Grade answer
// @Tags grading
// @Param answer_id path uint true "Answer ID"
// @Param grade body services.GradeAnswerRequest true "Grading data"
// @Success 200 {object} services.GradeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /grading/answers/{answer_id} [post]
func (h *GradingHandler) GradeAnswer(c *gin.Context) {
	answerID := h.parseIDParam(c, "answer_id")
	if answerID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Grading answer", "answer_id", answerID)

	var req services.GradeAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.gradingService.GradeAnswer(c.Request.Context(), answerID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPending lists written free-text answers still waiting for a grade
// @Router /grading/assessments/{id}/pending [get]
func (h *GradingHandler) ListPending(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	pending, err := h.gradingService.ListPendingAnswers(c.Request.Context(), assessmentID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// ExportResults downloads every submission of the assessment as xlsx
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /grading/assessments/{id}/export [get]
func (h *GradingHandler) ExportResults(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	data, err := h.gradingService.ExportResults(c.Request.Context(), assessmentID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="assessment-%d-results.xlsx"`, assessmentID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetAnalytics reports aggregate performance of the assessment
// @Router /grading/assessments/{id}/analytics [get]
func (h *GradingHandler) GetAnalytics(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	analytics, err := h.analyticsService.GetAssessmentAnalytics(c.Request.Context(), assessmentID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// ApproveReview releases the result of a completed submission
// @Router /grading/submissions/{id}/approve [post]
func (h *GradingHandler) ApproveReview(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Approving review", "submission_id", submissionID)

	review, err := h.reviewService.ApproveReview(c.Request.Context(), submissionID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Review approved", review)
}

// GetAuditTrail lists the grade changes and approval recorded for a submission
// @Router /grading/submissions/{id}/audit [get]
func (h *GradingHandler) GetAuditTrail(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}

	entries, err := h.reviewService.GetAuditTrail(c.Request.Context(), submissionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
