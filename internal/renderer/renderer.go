// Package renderer turns view templates into HTML documents.
//
// A Registry maps a template extension to the Renderer that understands it.
// HTML templates go through html/template with the site helpers (include,
// asset, icon, title, markdown), Markdown views through goldmark with
// optional YAML front matter, and anything else is passed through as is.
package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/sitepack/internal/assets"
	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/profile"
	"github.com/conneroisu/sitepack/internal/scanner"
)

// Page is a rendered view.
type Page struct {
	Title string
	HTML  []byte
}

// Env is what a renderer may consult while rendering one view.
type Env struct {
	View       scanner.ViewDescriptor
	Includes   string
	Assets     *assets.Resolver
	IconPrefix string
	Profile    profile.BuildProfile
}

// Renderer renders one template source.
type Renderer interface {
	Render(ctx context.Context, env *Env, source []byte) (*Page, error)
}

// Registry dispatches on template extension.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
	fallback  Renderer
}

// NewRegistry returns a registry with the built-in renderers registered.
func NewRegistry() *Registry {
	tmpl := &TemplateRenderer{}
	r := &Registry{
		renderers: make(map[string]Renderer),
		fallback:  PassthroughRenderer{},
	}
	for _, ext := range []string{".html", ".htm", ".tmpl", ".gohtml"} {
		r.Register(ext, tmpl)
	}
	r.Register(".md", &MarkdownRenderer{Layouts: tmpl})
	r.Register(".markdown", &MarkdownRenderer{Layouts: tmpl})
	return r
}

// Register binds ext (with or without the leading dot) to a renderer,
// replacing any previous binding.
func (r *Registry) Register(ext string, renderer Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[normalizeExt(ext)] = renderer
}

// Lookup returns the renderer for ext, or the passthrough renderer.
func (r *Registry) Lookup(ext string) Renderer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if renderer, ok := r.renderers[normalizeExt(ext)]; ok {
		return renderer
	}
	return r.fallback
}

// Render reads the view's source and renders it with the matching renderer.
func (r *Registry) Render(ctx context.Context, env *Env) (*Page, error) {
	source, err := os.ReadFile(env.View.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(env.View.SourcePath, err)
		}
		return nil, errors.WrapIO(err, env.View.SourcePath, "failed to read view")
	}
	return r.Lookup(env.View.Ext).Render(ctx, env, source)
}

// PassthroughRenderer emits the source unchanged.
type PassthroughRenderer struct{}

func (PassthroughRenderer) Render(_ context.Context, env *Env, source []byte) (*Page, error) {
	return &Page{Title: Title(env.View.Name), HTML: source}, nil
}

// Title turns a view name such as "about-us" into "About Us".
func Title(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// validateIncludeName rejects include names that escape the includes
// directory.
func validateIncludeName(name string) error {
	clean := filepath.Clean(name)

	if clean == "" || clean == "." {
		return fmt.Errorf("empty include name")
	}
	if filepath.IsAbs(clean) {
		return fmt.Errorf("absolute path not allowed: %s", name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal attempt detected: %s", name)
	}

	return nil
}
