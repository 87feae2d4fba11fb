package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validatePathsConfig(&config.Paths); err != nil {
		return fmt.Errorf("paths config: %w", err)
	}

	if config.Assets.InlineLimit < 0 {
		return &ValidationError{
			Field:       "assets.inline_limit",
			Value:       config.Assets.InlineLimit,
			Message:     "must not be negative",
			Suggestions: []string{"use 0 to disable data URL inlining"},
		}
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if config.Watch.Debounce < 0 {
		return &ValidationError{Field: "watch.debounce", Value: config.Watch.Debounce, Message: "must not be negative"}
	}

	return nil
}

func validatePathsConfig(paths *PathsConfig) error {
	if err := validatePath(paths.Output); err != nil {
		return &ValidationError{Field: "paths.output", Value: paths.Output, Message: err.Error()}
	}

	// The output directory is removed and replaced on every build, so it
	// must never be the project root or contain a source directory.
	out := filepath.Clean(paths.Output)
	if out == "." {
		return &ValidationError{
			Field:       "paths.output",
			Value:       paths.Output,
			Message:     "output directory cannot be the project root",
			Suggestions: []string{"use a dedicated directory such as dist"},
		}
	}

	sources := []struct {
		field string
		path  string
	}{
		{"paths.views", paths.Views},
		{"paths.includes", paths.Includes},
		{"paths.icons", paths.Icons},
	}
	for _, s := range paths.Styles {
		sources = append(sources, struct {
			field string
			path  string
		}{"paths.styles", s})
	}
	for _, s := range paths.Scripts {
		sources = append(sources, struct {
			field string
			path  string
		}{"paths.scripts", s})
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}
		if err := validatePath(src.path); err != nil {
			return &ValidationError{Field: src.field, Value: src.path, Message: err.Error()}
		}
		if within(filepath.Clean(src.path), out) {
			return &ValidationError{
				Field:   src.field,
				Value:   src.path,
				Message: fmt.Sprintf("source path lies inside the output directory %s", paths.Output),
			}
		}
	}

	for _, target := range paths.Static {
		if err := validatePath(target.From); err != nil {
			return &ValidationError{Field: "paths.static.from", Value: target.From, Message: err.Error()}
		}
		if err := validatePath(target.To); err != nil {
			return &ValidationError{Field: "paths.static.to", Value: target.To, Message: err.Error()}
		}
		if filepath.IsAbs(target.To) {
			return &ValidationError{Field: "paths.static.to", Value: target.To, Message: "must be relative to the output directory"}
		}
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Paths are resolved against the project root; climbing out of it is
	// never intended.
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// within reports whether p equals dir or lies beneath it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
