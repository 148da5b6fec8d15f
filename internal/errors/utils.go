package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCodeMultipleErrors marks an error combining several failures.
const ErrCodeMultipleErrors = "ERR_MULTIPLE_ERRORS"

// Wrap wraps err with a type, code and message. The path and recoverability
// of a wrapped *Error are preserved.
func Wrap(err error, errType ErrorType, code, message string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Type:        errType,
			Code:        code,
			Message:     message,
			Path:        e.Path,
			Cause:       e,
			Context:     e.Context,
			Recoverable: e.Recoverable,
		}
	}

	return &Error{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeNotFound,
	}
}

// WrapIO wraps err as an I/O error
func WrapIO(err error, code, message string) *Error {
	e := Wrap(err, ErrorTypeIO, code, message)
	if e != nil {
		e.Recoverable = false
	}
	return e
}

// WrapRender wraps err as a render error unless it already is one.
func WrapRender(err error, code, message string) error {
	if err == nil || IsRender(err) {
		return err
	}
	return Wrap(err, ErrorTypeRender, code, message)
}

// GetErrorContext extracts context information from an *Error
func GetErrorContext(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		context := make(map[string]interface{}, len(e.Context)+4)
		for k, v := range e.Context {
			context[k] = v
		}
		if e.Path != "" {
			context["file"] = e.Path
		}
		context["type"] = string(e.Type)
		context["code"] = e.Code
		context["recoverable"] = e.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// ExtractCause returns the innermost error of a chain of *Error values.
func ExtractCause(err error) error {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return err
		}
		if e.Cause == nil {
			return e
		}
		err = e.Cause
	}
	return nil
}

// HasErrorCode reports whether any *Error in the chain carries code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// CombineErrors combines the non-nil errors into one. A single error is
// returned unchanged.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, 0, len(nonNil))
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &Error{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeMultipleErrors,
		Message: fmt.Sprintf("%d errors occurred: %s", len(nonNil), strings.Join(messages, "; ")),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
			"errors":      messages,
		},
	}
}
