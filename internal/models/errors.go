package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeStorage          = "STORAGE_ERROR"
)

// ErrorResponse is the JSON body returned for a failed request.
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

// Response converts any error into the standard response body.
func Response(err error) ErrorResponse {
	var appErr *AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{Error: appErr.Message, Code: appErr.Code}
		if appErr.Err != nil {
			resp.Details = appErr.Err.Error()
		}
		return resp
	}
	return ErrorResponse{Error: err.Error()}
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewStorageError wraps a failed durable read or write. The in-memory state of
// the store that returned it is unchanged.
func NewStorageError(op string, err error) *AppError {
	return &AppError{
		Code:    CodeStorage,
		Message: "storage " + op + " failed",
		Err:     err,
	}
}

// ErrNotAuthenticated is returned by session operations that need an active user.
var ErrNotAuthenticated = &AppError{
	Code:    CodeNotAuthenticated,
	Message: "no user is logged in",
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

func IsStorage(err error) bool { return HasCode(err, CodeStorage) }

func IsNotAuthenticated(err error) bool { return HasCode(err, CodeNotAuthenticated) }
