package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Machine-readable error codes.
const (
	CodeBadRequest      = "bad_request"
	CodeValidation      = "validation_error"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeUnavailable     = "unavailable"
	CodeInternalError   = "internal_error"
	internalErrorString = "internal server error"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeBadRequest})
}

// respondNotFound sends a 404 Not Found response with the given message.
func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: message, Code: CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	loggerFrom(c).WithError(err).WithField("context", context).Error("Internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: internalErrorString, Code: CodeInternalError})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondBindingError turns a binding failure into a 400. Validation failures
// are reported per field.
func respondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError(fe))
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "request fields validation error",
			Code:    CodeValidation,
			Details: details,
		})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "unable to parse the request",
		Code:  CodeBadRequest,
	})
}

func fieldError(fe validator.FieldError) FieldError {
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "this field is required"
	case "max":
		msg = fmt.Sprintf("this field cannot be longer than %s", fe.Param())
	case "min":
		msg = fmt.Sprintf("this field must be at least %s", fe.Param())
	default:
		msg = fmt.Sprintf("%s is not valid", fe.Field())
	}
	return FieldError{Field: fe.Field(), Message: msg}
}

// loggerFrom returns the request-scoped logger set by RequestLogger, or the
// standard logger when the middleware is not installed.
func loggerFrom(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}
