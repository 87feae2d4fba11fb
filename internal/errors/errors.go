package errors

import (
	"fmt"
	"strings"
	"sync"
)

// Diagnostic is a single compiler message with its source location.
type Diagnostic struct {
	File     string
	Line     int
	Column   int
	Message  string
	Severity ErrorSeverity
}

// ErrorSeverity represents the severity of a diagnostic
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// String formats the diagnostic as file:line:col: severity: message.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// Collector gathers diagnostics from a compiler run.
type Collector struct {
	diagnostics []Diagnostic
	mutex       sync.RWMutex
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{diagnostics: make([]Diagnostic, 0)}
}

// Add records a diagnostic
func (c *Collector) Add(d Diagnostic) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diagnostics = append(c.diagnostics, d)
}

// Diagnostics returns a copy of everything collected so far
func (c *Collector) Diagnostics() []Diagnostic {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]Diagnostic, len(c.diagnostics))
	copy(result, c.diagnostics)
	return result
}

// HasErrors returns true if any diagnostic has error severity
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	for _, d := range c.diagnostics {
		if d.Severity >= ErrorSeverityError {
			return true
		}
	}
	return false
}

// Warnings returns only the warning diagnostics
func (c *Collector) Warnings() []Diagnostic {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var warnings []Diagnostic
	for _, d := range c.diagnostics {
		if d.Severity == ErrorSeverityWarning {
			warnings = append(warnings, d)
		}
	}
	return warnings
}

// Err converts the collected errors into a CompileError located at the first
// error. It returns nil when nothing was collected at error severity.
func (c *Collector) Err(message string) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var first *Diagnostic
	var lines []string
	for i := range c.diagnostics {
		d := c.diagnostics[i]
		if d.Severity < ErrorSeverityError {
			continue
		}
		if first == nil {
			first = &d
		}
		lines = append(lines, d.String())
	}
	if first == nil {
		return nil
	}

	err := NewCompileError(first.File, first.Line, first.Column, message, fmt.Errorf("%s", first.Message))
	if len(lines) > 1 {
		err.WithContext("diagnostics", strings.Join(lines, "\n"))
	}
	return err
}
