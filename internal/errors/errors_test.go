package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSeverityString(t *testing.T) {
	testCases := []struct {
		severity ErrorSeverity
		expected string
	}{
		{ErrorSeverityInfo, "info"},
		{ErrorSeverityWarning, "warning"},
		{ErrorSeverityError, "error"},
		{ErrorSeverity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestBuildErrorFormatting(t *testing.T) {
	t.Run("full location", func(t *testing.T) {
		err := NewCompileError("src/scss/style.scss", 12, 4, "expected \";\"", nil)
		assert.Equal(t, "[ERR_COMPILE] src/scss/style.scss:12:4 expected \";\"", err.Error())
	})

	t.Run("file only", func(t *testing.T) {
		err := NewNotFoundError("src/html/views", nil)
		assert.Equal(t, "[ERR_NOT_FOUND] src/html/views required input not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		err := NewIOError(ErrCodeWriteFailed, "write failed", fmt.Errorf("disk full"))
		assert.Equal(t, "[ERR_WRITE_FAILED] write failed: disk full", err.Error())
	})
}

func TestTaxonomyPredicates(t *testing.T) {
	notFound := NewNotFoundError("views", nil)
	unclassified := NewUnclassifiedAssetError("doc.xyz")
	compile := NewCompileError("index.js", 1, 1, "bad", nil)

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(compile))
	assert.True(t, IsUnclassified(unclassified))
	assert.True(t, IsCompile(compile))
	assert.False(t, IsCompile(unclassified))

	// Predicates see through fmt wrapping and through Wrap.
	wrapped := fmt.Errorf("build pass: %w", compile)
	assert.True(t, IsCompile(wrapped))

	outer := Wrap(compile, ErrorTypeInternal, ErrCodeInternalError, "pass failed")
	assert.True(t, IsCompile(outer))
	assert.Equal(t, "index.js", outer.FilePath)
}

func TestBuildErrorIs(t *testing.T) {
	a := NewCompileError("a.js", 1, 1, "x", nil)
	b := NewCompileError("b.js", 2, 2, "y", nil)
	c := NewNotFoundError("c", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestExtractLocation(t *testing.T) {
	inner := NewCompileError("src/js/index.js", 7, 3, "unexpected token", nil)
	outer := fmt.Errorf("scripts: %w", Wrap(inner, ErrorTypeInternal, ErrCodeInternalError, "bundle"))

	file, line, col := ExtractLocation(outer)
	assert.Equal(t, "src/js/index.js", file)
	assert.Equal(t, 7, line)
	assert.Equal(t, 3, col)
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Err("scripts"))

	c.Add(Diagnostic{File: "a.js", Line: 1, Column: 2, Message: "unused", Severity: ErrorSeverityWarning})
	assert.False(t, c.HasErrors())
	assert.Len(t, c.Warnings(), 1)
	require.NoError(t, c.Err("scripts"))

	c.Add(Diagnostic{File: "b.js", Line: 3, Column: 4, Message: "could not resolve \"x\"", Severity: ErrorSeverityError})
	c.Add(Diagnostic{File: "c.js", Line: 5, Column: 6, Message: "second", Severity: ErrorSeverityError})
	assert.True(t, c.HasErrors())

	err := c.Err("script bundle failed")
	require.Error(t, err)
	assert.True(t, IsCompile(err))

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "b.js", be.FilePath)
	assert.Equal(t, 3, be.Line)
	assert.Equal(t, 4, be.Column)
	assert.Contains(t, be.Context["diagnostics"], "c.js:5:6: error: second")
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{File: "x.scss", Line: 2, Column: 9, Message: "boom", Severity: ErrorSeverityError}
	assert.Equal(t, "x.scss:2:9: error: boom", d.String())
}
