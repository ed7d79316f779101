package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	attemptService    services.AttemptService
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	attemptService services.AttemptService,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		attemptService:    attemptService,
	}
}

// CreateAssessment creates a new assessment
// @Summary Create assessment
// @Tags assessments
// @Param assessment body services.CreateAssessmentRequest true "Assessment data"
// @Success 201 {object} models.Assessment
// @Failure 400 {object} ErrorResponse
// @Router /assessments [post]
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var req services.CreateAssessmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	assessment, err := h.assessmentService.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assessment)
}

// GetAssessment retrieves an assessment by ID
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// UpdateAssessment applies a partial update. Only fields present in the body change.
// @Router /assessments/{id} [patch]
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}
	var patch models.AssessmentPatch
	if !h.bindJSON(c, &patch) {
		return
	}

	h.LogRequest(c, "Updating assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Update(c.Request.Context(), id, patch, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// StartAttempt starts a new attempt or resumes the caller's open one
// @Summary Start or resume attempt
// @Tags attempts
// @Success 201 {object} services.AttemptResponse "new attempt"
// @Success 200 {object} services.AttemptResponse "resumed attempt"
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/attempts [post]
func (h *AssessmentHandler) StartAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.mustCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting attempt", "assessment_id", id)

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), id, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if attempt.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, attempt)
}
