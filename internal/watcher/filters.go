package watcher

import (
	"path/filepath"
	"strings"
)

// NoEditorTempFilter drops swap, backup and lock files that editors write
// next to the file being edited.
func NoEditorTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasPrefix(base, ".#"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		base == "4913",
		base == ".DS_Store":
		return false
	}
	return true
}

func NoNodeModulesFilter(path string) bool {
	return !hasSegment(path, "node_modules")
}

func NoGitFilter(path string) bool {
	return !hasSegment(path, ".git")
}

// NoOutputFilter drops dir and everything under it, including the staging
// directories created beside it during a commit.
func NoOutputFilter(dir string) FileFilter {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	staging := "." + filepath.Base(abs) + "-staging-"
	parent := filepath.Dir(abs)

	return func(path string) bool {
		p, err := filepath.Abs(path)
		if err != nil {
			return true
		}
		if p == abs || strings.HasPrefix(p, abs+string(filepath.Separator)) {
			return false
		}
		if rel, err := filepath.Rel(parent, p); err == nil && strings.HasPrefix(rel, staging) {
			return false
		}
		return true
	}
}

// IgnoreFilter drops paths whose base name, or any directory segment,
// matches one of the glob patterns.
func IgnoreFilter(patterns []string) FileFilter {
	return func(path string) bool {
		for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
			if segment == "" {
				continue
			}
			for _, pattern := range patterns {
				if ok, _ := filepath.Match(pattern, segment); ok {
					return false
				}
			}
		}
		return true
	}
}

func hasSegment(path, name string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == name {
			return true
		}
	}
	return false
}
