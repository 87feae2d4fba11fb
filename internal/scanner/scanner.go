// Package scanner discovers the page templates of a site.
//
// Every regular file directly inside the views directory becomes one output
// page. The scan does not recurse: partials live in a separate includes
// directory. The template's extension is kept so the renderer registry can
// pick the matching template engine.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/sitepack/internal/errors"
)

// ViewDescriptor describes one page to generate.
type ViewDescriptor struct {
	// Name is the file name with its extension stripped.
	Name string
	// SourcePath is the template path as found on disk.
	SourcePath string
	// Ext is the template extension including the dot, e.g. ".html".
	Ext string
	// OutputFilename is Name + ".html".
	OutputFilename string
}

// NewViewDescriptor builds the descriptor for a template path.
func NewViewDescriptor(path string) ViewDescriptor {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return ViewDescriptor{
		Name:           name,
		SourcePath:     path,
		Ext:            ext,
		OutputFilename: name + ".html",
	}
}

// Discover lists the templates directly inside dir. The returned order
// follows the directory listing and callers must not rely on it.
//
// A missing directory is a NotFoundError. Two templates sharing a base name
// (about.html and about.md) produce a collision error.
func Discover(dir string) ([]ViewDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(dir, err)
		}
		return nil, errors.WrapIO(err, dir, "failed to read views directory")
	}

	views := make([]ViewDescriptor, 0, len(entries))
	seen := make(map[string]string, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.Type().IsRegular():
		case entry.Type()&os.ModeSymlink != 0:
			// Only links resolving to a regular file are pages.
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		default:
			continue
		}

		view := NewViewDescriptor(path)
		if view.Name == "" {
			continue
		}

		if prev, ok := seen[view.Name]; ok {
			return nil, errors.NewValidationError(errors.ErrCodeViewCollision,
				fmt.Sprintf("views %s and %s both produce %s", prev, view.SourcePath, view.OutputFilename)).
				WithLocation(view.SourcePath, 0, 0)
		}
		seen[view.Name] = view.SourcePath

		views = append(views, view)
	}

	return views, nil
}
