package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	reviewService  services.ReviewService
}

func NewAttemptHandler(attemptService services.AttemptService, reviewService services.ReviewService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		reviewService:  reviewService,
	}
}

// SaveAnswer records or replaces the caller's answer to one question
// @Router /submissions/{id}/answers/{question_id} [put]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var req services.SaveAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.SubmissionID = submissionID
	req.QuestionID = questionID

	answer, err := h.attemptService.SaveAnswer(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// Submit finalizes the attempt and returns the provisional score
// @Router /submissions/{id}/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var req services.SubmitRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting attempt", "submission_id", submissionID, "assessment_id", req.AssessmentID)

	result, err := h.attemptService.Submit(c.Request.Context(), submissionID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetResult returns the result as visible to the caller
// @Router /submissions/{id}/result [get]
func (h *AttemptHandler) GetResult(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	result, err := h.reviewService.GetResult(c.Request.Context(), submissionID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
