package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeParseFailed      = "ERR_PARSE_FAILED"
	ErrCodeMarkdownFailed   = "ERR_MARKDOWN_FAILED"
	ErrCodeTemplateNotFound = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeMissingTemplate  = "ERR_MISSING_TEMPLATE"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// Error is a structured error type with context.
type Error struct {
	Type    ErrorType
	Code    string
	Message string
	Path    string
	Cause   error
	Context map[string]interface{}
	// Recoverable errors are logged and the build goes on with the
	// affected input treated as absent.
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file the error is about.
func (e *Error) WithPath(path string) *Error {
	e.Path = path

	return e
}

// NewNotFoundError creates an error for an absent optional or required file.
func NewNotFoundError(path string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeNotFound,
		Code:        ErrCodeFileNotFound,
		Message:     "file not found",
		Path:        path,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewParseError creates an error for malformed structured data or markdown.
func NewParseError(code, path string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeParse,
		Code:    code,
		Message: "parse failed",
		Path:    path,
		Cause:   cause,
	}
}

// NewRenderError creates a template rendering error.
func NewRenderError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeRender,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}

	return false
}

// IsNotFound reports whether err describes a missing file. Plain
// fs.ErrNotExist errors count as well.
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound) || errors.Is(err, fs.ErrNotExist)
}

// IsParse checks if an error is a parse failure.
func IsParse(err error) bool {
	return isType(err, ErrorTypeParse)
}

// IsRender checks if an error is a template rendering failure.
func IsRender(err error) bool {
	return isType(err, ErrorTypeRender)
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err with a severity matching its type. Missing files are
// notices, not failures.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var e *Error
	if !errors.As(err, &e) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch e.Type {
	case ErrorTypeNotFound:
		h.logger.Info(ctx, "NOTICE: "+e.Path+" not found.",
			"notice", true,
			"code", e.Code)
	case ErrorTypeParse, ErrorTypeRender, ErrorTypeValidation:
		h.logger.Warn(ctx, err, "Page build failed",
			"type", e.Type,
			"code", e.Code,
			"file", e.Path)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", e.Type,
			"code", e.Code)
	}
}
