package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeSelfReference = "SELF_REFERENCE"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeBotDenied     = "BOT_DENIED"
	CodeNotFound      = "NOT_FOUND"
	CodeRateLimited   = "RATE_LIMITED"
	CodeDependency    = "DEPENDENCY_FAILURE"
	CodeInternal      = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundMessage reports a missing resource with a caller-chosen message.
func NewNotFoundMessage(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewSelfReferenceError(message string) *AppError {
	return &AppError{Code: CodeSelfReference, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewRateLimitedError(message string) *AppError {
	return &AppError{Code: CodeRateLimited, Message: message}
}

func NewBotDeniedError(message string) *AppError {
	return &AppError{Code: CodeBotDenied, Message: message}
}

// NewDependencyError wraps a failure of an external collaborator
// (image store, notification channel).
func NewDependencyError(message string, err error) *AppError {
	return &AppError{Code: CodeDependency, Message: message, Err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error to the HTTP status it should be reported with.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation, CodeSelfReference:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden, CodeBotDenied:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	case CodeDependency:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// CodeForStatus picks the error code for a bare HTTP status, such as one
// raised by the framework before any handler ran.
func CodeForStatus(status int) string {
	switch {
	case status == fiber.StatusUnauthorized:
		return CodeUnauthorized
	case status == fiber.StatusForbidden:
		return CodeForbidden
	case status == fiber.StatusNotFound:
		return CodeNotFound
	case status == fiber.StatusTooManyRequests:
		return CodeRateLimited
	case status >= 400 && status < 500:
		return CodeValidation
	case status == fiber.StatusBadGateway, status == fiber.StatusServiceUnavailable, status == fiber.StatusGatewayTimeout:
		return CodeDependency
	default:
		return CodeInternal
	}
}

// RespondWithError creates a standardized error response. Internal errors
// never leak their cause to the caller.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}
