package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides logging and error mapping shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs an incoming request with caller context
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c),
		"remote_addr", c.ClientIP(),
	)
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c), additionalFields...)
	h.logger.LogError(err, message, fields...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c), additionalFields...)
	h.logger.Warn(message, fields...)
}

func (h *BaseHandler) contextFields(c *gin.Context) []interface{} {
	var userID string
	if caller, ok := callerFrom(c); ok {
		userID = caller.ID
	}
	return []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", userID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "error", err)
	}

	c.AbortWithStatusJSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// ===== ERROR MAPPING =====

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:                  http.StatusNotFound,
	services.KindForbidden:                 http.StatusForbidden,
	services.KindInvalidState:              http.StatusConflict,
	services.KindAttemptsExceeded:          http.StatusConflict,
	services.KindConcurrentAttemptConflict: http.StatusConflict,
	services.KindGradingIncomplete:         http.StatusConflict,
	services.KindMarksOutOfRange:           http.StatusBadRequest,
	services.KindValidation:                http.StatusBadRequest,
	services.KindInvalidConfiguration:      http.StatusUnprocessableEntity,
	services.KindUnavailable:               http.StatusServiceUnavailable,
	services.KindInternal:                  http.StatusInternalServerError,
}

// StatusForError maps a service error to its HTTP status.
func StatusForError(err error) int {
	if status, ok := kindStatus[services.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	kind := services.Kind(err)
	status := StatusForError(err)

	resp := ErrorResponse{Code: string(kind), Message: err.Error()}

	var validationErrors services.ValidationErrors
	var permissionError *services.PermissionError
	switch {
	case errors.As(err, &validationErrors):
		resp.Message = "Validation failed"
		resp.Details = validationErrors
	case errors.As(err, &permissionError):
		details := map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
		}
		if permissionError.Reason != nil {
			details["reason"] = permissionError.Reason.Error()
		}
		resp.Message = "Access denied"
		resp.Details = details
	case kind == services.KindInternal:
		// Storage details stay in the log.
		resp.Message = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.LogError(c, err, "Request failed", "status_code", status, "kind", kind)
	} else {
		h.LogWarn(c, "Request rejected", "status_code", status, "kind", kind, "error", err.Error())
	}
	c.AbortWithStatusJSON(status, resp)
}

// ===== REQUEST HELPERS =====

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := parseUintParam(c.Param(param))
	if err != nil || id == 0 {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid "+param, err)
		return 0
	}
	return id
}

// mustCaller returns the authenticated caller or writes a 401.
func (h *BaseHandler) mustCaller(c *gin.Context) (models.Caller, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", nil)
	}
	return caller, ok
}

func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return false
	}
	return true
}
