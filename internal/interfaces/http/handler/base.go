// Package handler holds the gin handlers of the ledger API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dateLayout is accepted for date-only query parameters
const dateLayout = "2006-01-02"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// tenantID returns the tenant resolved by the tenant middleware. Without
// the middleware in the chain the X-Tenant-ID header is parsed directly.
func (h *BaseHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	if id, ok := middleware.GetTenantUUID(c); ok {
		return id, true
	}
	id, err := uuid.Parse(c.GetHeader(middleware.TenantHeaderKey))
	if err != nil || id == uuid.Nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return id, true
}

// uuidParam parses a uuid path parameter, answering 400 when malformed
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// dateQuery parses an optional date query parameter given as YYYY-MM-DD or RFC 3339
func (h *BaseHandler) dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+name+", expected YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// bindJSON binds and validates the body, answering 400 with field details on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.validationFailed(c, err)
		return false
	}
	return true
}

// bindQuery binds and validates query parameters
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.validationFailed(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) validationFailed(c *gin.Context, err error) {
	details := middleware.ValidationDetails(err)
	message := "Request validation failed"
	if details == nil {
		message = "Malformed request: " + err.Error()
	}
	c.Set(middleware.ErrorCodeKey, dto.CodeValidation)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(message, middleware.RequestIDFrom(c), details))
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.RequestIDFrom(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.CodeBadRequest, message)
}

// HandleError maps domain errors to their status and logs anything else
// as unexpected
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Code == shared.CodeUnexpected {
			logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
		}
		h.Error(c, domainErr.Code, domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unexpected error", zap.Error(err))
	h.Error(c, dto.CodeUnexpected, "An unexpected error occurred")
}
