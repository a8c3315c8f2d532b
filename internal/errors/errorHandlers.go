// File: spotfinder_go_backend/internal/errors/errorHandlers.go

package errors

import (
	stderrors "errors"
	"net/http"

	"spotfinder_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeConflict            ErrorType = "CONFLICT"
	ErrorTypeUnprocessable       ErrorType = "UNPROCESSABLE_ENTITY"
	ErrorTypeTooManyRequests     ErrorType = "TOO_MANY_REQUESTS"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnavailable         ErrorType = "SERVICE_UNAVAILABLE"
)

// CustomError represents a custom error with associated HTTP status code and type
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Internal
}

func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// New400Error creates a new bad request error
func New400Error(message string) *CustomError {
	return newError(ErrorTypeBadRequest, message, http.StatusBadRequest, nil)
}

// New404Error creates a new not found error
func New404Error(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, nil)
}

func New409Error(message string) *CustomError {
	return newError(ErrorTypeConflict, message, http.StatusConflict, nil)
}

func New422Error(message string) *CustomError {
	return newError(ErrorTypeUnprocessable, message, http.StatusUnprocessableEntity, nil)
}

func New429Error() *CustomError {
	return newError(ErrorTypeTooManyRequests, "Too many requests, slow down", http.StatusTooManyRequests, nil)
}

// New500Error creates a new internal server error
func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

func New503Error(message string, internal error) *CustomError {
	return newError(ErrorTypeUnavailable, message, http.StatusServiceUnavailable, internal)
}

// FromServiceError maps the conversation and store sentinels onto HTTP errors.
func FromServiceError(err error) *CustomError {
	var customErr *CustomError
	if stderrors.As(err, &customErr) {
		return customErr
	}
	var locErr *services.LocationError
	if stderrors.As(err, &locErr) {
		return newError(ErrorTypeUnavailable, locErr.Alert, http.StatusServiceUnavailable, err)
	}

	switch {
	case stderrors.Is(err, services.ErrSessionNotFound),
		stderrors.Is(err, services.ErrMessageNotFound),
		stderrors.Is(err, services.ErrNoActiveSession):
		return New404Error(err.Error())
	case stderrors.Is(err, services.ErrBusy),
		stderrors.Is(err, services.ErrLocationPending):
		return New409Error(err.Error())
	case stderrors.Is(err, services.ErrInvalidTarget),
		stderrors.Is(err, services.ErrInvalidColor):
		return New422Error(err.Error())
	case stderrors.Is(err, services.ErrEmptyQuery),
		stderrors.Is(err, services.ErrEmptyTitle),
		stderrors.Is(err, services.ErrInvalidLanguage):
		return New400Error(err.Error())
	case stderrors.Is(err, services.ErrExportUnavailable):
		return New503Error(err.Error(), err)
	default:
		return New500Error(err)
	}
}

// HandleError handles the custom error and sends an appropriate JSON response
func HandleError(c *gin.Context, err error) {
	customErr := FromServiceError(err)

	// Log internal server errors
	if customErr.Type == ErrorTypeInternalServerError {
		log.Error().
			Err(customErr.Internal).
			Str("url", c.Request.URL.String()).
			Msg("Internal Server Error")
	}

	c.AbortWithStatusJSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}

// LogAndReturn500 logs an internal error and returns a 500 error
func LogAndReturn500(internal error) *CustomError {
	log.Error().Err(internal).Msg("Internal Server Error")
	return New500Error(internal)
}
