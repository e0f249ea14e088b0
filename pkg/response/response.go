package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ksred/summit-api/internal/types"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeDuplicateResource = "DUPLICATE_RESOURCE"
	ErrCodeBusinessRule      = "BUSINESS_RULE"
	ErrCodeRateLimited       = "RATE_LIMITED"
)

// Handle processes the error and returns appropriate response
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		Conflict(c, "Resource already exists")
	default:
		handleError(c, err)
	}
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

func abort(c *gin.Context, status int, code, kind, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Kind:    kind,
			Message: message,
		},
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, ErrCodeNotFound, "", message)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, ErrCodeBadRequest, "", message)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, ErrCodeUnauthorized, "", message)
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, ErrCodeForbidden, "", message)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	abort(c, http.StatusInternalServerError, ErrCodeInternalError, "", message)
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	abort(c, http.StatusConflict, ErrCodeDuplicateResource, "", message)
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context, message string) {
	abort(c, http.StatusTooManyRequests, ErrCodeRateLimited, "", message)
}

// handleError maps ledger error kinds to HTTP statuses. Persistence failures never expose their cause.
func handleError(c *gin.Context, err error) {
	kind := types.Kind(err)

	switch kind {
	case "invalid_request":
		abort(c, http.StatusBadRequest, ErrCodeBadRequest, kind, err.Error())
	case "invalid_amount":
		abort(c, http.StatusBadRequest, ErrCodeValidationFailed, kind, err.Error())
	case "not_found":
		abort(c, http.StatusNotFound, ErrCodeNotFound, kind, err.Error())
	case "unauthorized":
		abort(c, http.StatusForbidden, ErrCodeForbidden, kind, err.Error())
	case "account_frozen", "insufficient_funds", "insufficient_inventory", "insufficient_shares":
		abort(c, http.StatusUnprocessableEntity, ErrCodeBusinessRule, kind, err.Error())
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, ErrCodeInternalError, "", "An unexpected error occurred")
	}
}
