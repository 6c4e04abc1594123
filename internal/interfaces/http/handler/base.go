package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// sessionContext builds the cart session of the request. Cookies set by the
// services are written straight onto the response.
func sessionContext(c *gin.Context) session.SessionContext {
	return session.FromCookies(c, session.CookieWriterFunc(func(cookie *http.Cookie) {
		http.SetCookie(c.Writer, cookie)
	}))
}

// requireCart returns the cart session of the request and answers 401 when
// it has no cart token. Checkout endpoints call it before reading the body,
// so a missing token wins over any body error.
func (h *BaseHandler) requireCart(c *gin.Context) (session.SessionContext, bool) {
	sc := sessionContext(c)
	if !sc.CartSession().HasToken() {
		h.HandleError(c, shared.NewUnauthenticatedError("Missing cart token"))
		return sc, false
	}
	return sc, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Ack sends a success response for operations without a payload
func (h *BaseHandler) Ack(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.AckResponse{OK: true}))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts errors to HTTP responses. A DomainError answers with
// its own status when it has one, so upstream failures keep the commerce
// backend's status and message; otherwise the status follows the code.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := domainErr.Status
		if status == 0 {
			status = dto.GetHTTPStatus(code)
		}
		c.JSON(status, dto.NewErrorResponseWithRequestID(code, domainErr.Message, getRequestID(c)))
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// bindJSON decodes the request body into req. An empty body leaves req at
// its zero value so the services report the missing field by name.
// It answers the request and returns false on failure.
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return h.validate(c, req)
	}
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return h.validate(c, req)
		}
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) validate(c *gin.Context, req any) bool {
	if err := binding.Validator.ValidateStruct(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// param returns a trimmed path parameter
func param(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}
