package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeClassification ErrorType = "classification"
	ErrorTypeCompile        ErrorType = "compile"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeIO             ErrorType = "io"
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeInternal       ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeNotFound          = "ERR_NOT_FOUND"
	ErrCodeUnclassifiedAsset = "ERR_UNCLASSIFIED_ASSET"
	ErrCodeCompile           = "ERR_COMPILE"
	ErrCodeViewCollision     = "ERR_VIEW_COLLISION"
	ErrCodeIconCollision     = "ERR_ICON_COLLISION"
	ErrCodeUnknownMode       = "ERR_UNKNOWN_MODE"
	ErrCodeInvalidPath       = "ERR_INVALID_PATH"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeWriteFailed       = "ERR_WRITE_FAILED"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// BuildError is a structured error type carrying the offending file and,
// where known, its line and column.
type BuildError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	FilePath string
	Line     int
	Column   int
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if loc := e.Location(); loc != "" {
		parts = append(parts, loc)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Location renders file:line:col, omitting the parts that are unknown.
func (e *BuildError) Location() string {
	if e.FilePath == "" {
		return ""
	}

	location := e.FilePath
	if e.Line > 0 {
		location += fmt.Sprintf(":%d", e.Line)
		if e.Column > 0 {
			location += fmt.Sprintf(":%d", e.Column)
		}
	}

	return location
}

// Unwrap returns the underlying cause error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BuildError) Is(target error) bool {
	var t *BuildError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuildError) WithContext(key string, value interface{}) *BuildError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *BuildError) WithLocation(filePath string, line, column int) *BuildError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// Error creation functions

// NewNotFoundError reports a missing required input directory or file.
func NewNotFoundError(path string, cause error) *BuildError {
	return &BuildError{
		Type:     ErrorTypeNotFound,
		Code:     ErrCodeNotFound,
		Message:  "required input not found",
		Cause:    cause,
		FilePath: path,
	}
}

// NewUnclassifiedAssetError reports an asset that no routing rule matches.
func NewUnclassifiedAssetError(path string) *BuildError {
	return &BuildError{
		Type:     ErrorTypeClassification,
		Code:     ErrCodeUnclassifiedAsset,
		Message:  "no asset rule matches",
		FilePath: path,
	}
}

// NewCompileError reports a stylesheet or script failure at a source location.
func NewCompileError(file string, line, column int, message string, cause error) *BuildError {
	return &BuildError{
		Type:     ErrorTypeCompile,
		Code:     ErrCodeCompile,
		Message:  message,
		Cause:    cause,
		FilePath: file,
		Line:     line,
		Column:   column,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *BuildError {
	return &BuildError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BuildError {
	return &BuildError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func hasType(err error, t ErrorType) bool {
	var be *BuildError
	for err != nil {
		if !errors.As(err, &be) {
			return false
		}
		if be.Type == t {
			return true
		}
		err = be.Cause
	}

	return false
}

// IsNotFound checks if an error reports a missing input.
func IsNotFound(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsUnclassified checks if an error reports an asset no rule matched.
func IsUnclassified(err error) bool {
	return hasType(err, ErrorTypeClassification)
}

// IsCompile checks if an error is a stylesheet or script compile failure.
func IsCompile(err error) bool {
	return hasType(err, ErrorTypeCompile)
}

// IsValidation checks if an error is a validation failure.
func IsValidation(err error) bool {
	return hasType(err, ErrorTypeValidation)
}
