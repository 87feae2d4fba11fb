package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a BuildError if the
// input is not already one. Location information from an inner BuildError is
// preserved so the outermost error still points at the offending file.
func Wrap(err error, errType ErrorType, code, message string) *BuildError {
	if err == nil {
		return nil
	}

	var be *BuildError
	if errors.As(err, &be) {
		return &BuildError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Cause:    err,
			Context:  be.Context,
			FilePath: be.FilePath,
			Line:     be.Line,
			Column:   be.Column,
		}
	}

	return &BuildError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps a filesystem failure on path.
func WrapIO(err error, path, message string) *BuildError {
	wrapped := Wrap(err, ErrorTypeIO, ErrCodeWriteFailed, message)
	if wrapped != nil && wrapped.FilePath == "" {
		wrapped.FilePath = path
	}
	return wrapped
}

// ExtractLocation returns the file, line and column of the innermost
// BuildError that carries a file path.
func ExtractLocation(err error) (file string, line, column int) {
	var be *BuildError
	for err != nil {
		if !errors.As(err, &be) {
			break
		}
		if be.FilePath != "" {
			file, line, column = be.FilePath, be.Line, be.Column
		}
		err = be.Cause
	}

	return file, line, column
}
