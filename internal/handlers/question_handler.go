package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// CreateQuestion adds a question with its options to an assessment
// @Router /assessments/{id}/questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var req services.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), assessmentID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// ListQuestions returns the author view, correctness flags included.
// ?include_inactive=true also returns deactivated questions.
// @Router /assessments/{id}/questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}

	includeInactive := c.Query("include_inactive") == "true"
	questions, err := h.questionService.ListByAssessment(c.Request.Context(), assessmentID, includeInactive)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// UpdateQuestion applies a partial update. A present options list replaces all options.
// @Router /questions/{id} [patch]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var patch models.QuestionPatch
	if !h.bindJSON(c, &patch) {
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, patch, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeactivateQuestion hides the question from new attempts
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeactivateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	if err := h.questionService.Deactivate(c.Request.Context(), id, caller); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
