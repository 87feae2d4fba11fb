package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/conneroisu/sitepack/internal/errors"
)

const maxIncludeDepth = 16

// TemplateData is the dot value for view templates.
type TemplateData struct {
	Title      string
	Name       string
	Mode       string
	Production bool
	// Content holds the rendered Markdown body when the template is a layout.
	Content template.HTML
	// Meta holds Markdown front matter.
	Meta map[string]any
}

// TemplateRenderer renders html/template views.
type TemplateRenderer struct{}

func (t *TemplateRenderer) Render(_ context.Context, env *Env, source []byte) (*Page, error) {
	data := newTemplateData(env)
	out, err := t.execute(env, env.View.SourcePath, source, data, 0)
	if err != nil {
		return nil, err
	}
	return &Page{Title: data.Title, HTML: out}, nil
}

// RenderLayout renders the include named layout with data.
func (t *TemplateRenderer) RenderLayout(env *Env, layout string, data TemplateData) ([]byte, error) {
	path, source, err := readInclude(env, layout)
	if err != nil {
		return nil, err
	}
	return t.execute(env, path, source, data, 1)
}

func newTemplateData(env *Env) TemplateData {
	return TemplateData{
		Title:      Title(env.View.Name),
		Name:       env.View.Name,
		Mode:       string(env.Profile.Mode),
		Production: env.Profile.IsProduction(),
	}
}

func (t *TemplateRenderer) execute(env *Env, file string, source []byte, data any, depth int) ([]byte, error) {
	var inner error
	keep := func(err error) error {
		if inner == nil {
			inner = err
		}
		return err
	}

	funcs := template.FuncMap{
		"include": func(name string, args ...any) (template.HTML, error) {
			if depth >= maxIncludeDepth {
				return "", keep(errors.NewCompileError(file, 0, 0,
					fmt.Sprintf("include %q nested more than %d levels deep", name, maxIncludeDepth), nil))
			}
			path, src, err := readInclude(env, name)
			if err != nil {
				return "", keep(err)
			}
			arg := data
			if len(args) > 0 {
				arg = args[0]
			}
			out, err := t.execute(env, path, src, arg, depth+1)
			if err != nil {
				return "", keep(err)
			}
			return template.HTML(out), nil
		},
		"asset": func(ref string) (template.URL, error) {
			if env.Assets == nil {
				return "", keep(errors.NewInternalError(errors.ErrCodeInternalError, "asset helper used without a resolver", nil))
			}
			path := ref
			if !filepath.IsAbs(path) {
				path = filepath.Join(filepath.Dir(file), ref)
			}
			url, err := env.Assets.Resolve(path)
			if err != nil {
				return "", keep(err)
			}
			return template.URL(url), nil
		},
		"icon": func(name string, classes ...string) template.HTML {
			return Icon(env.IconPrefix, name, classes...)
		},
		"title":    Title,
		"markdown": markdownToHTML,
	}

	tmpl, err := template.New(filepath.Base(file)).Funcs(funcs).Parse(string(source))
	if err != nil {
		return nil, templateError(file, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		if inner != nil {
			return nil, inner
		}
		return nil, templateError(file, err)
	}
	return buf.Bytes(), nil
}

// Icon renders a reference to a sprite symbol.
func Icon(prefix, name string, classes ...string) template.HTML {
	id := prefix + name
	class := strings.TrimSpace("icon " + id + " " + strings.Join(classes, " "))
	return template.HTML(fmt.Sprintf(`<svg class="%s" aria-hidden="true"><use href="#%s"></use></svg>`,
		template.HTMLEscapeString(class), template.HTMLEscapeString(id)))
}

func readInclude(env *Env, name string) (string, []byte, error) {
	if err := validateIncludeName(name); err != nil {
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidPath, err.Error()).
			WithLocation(env.View.SourcePath, 0, 0)
	}
	path := filepath.Join(env.Includes, name)
	source, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errors.NewNotFoundError(path, err)
		}
		return "", nil, errors.WrapIO(err, path, "failed to read include")
	}
	return path, source, nil
}

// html/template errors look like "template: name:12:5: ..." or
// "template: name:12: ...".
var templateLocation = regexp.MustCompile(`template: [^:]*:(\d+)(?::(\d+))?:`)

func templateError(file string, err error) error {
	line, col := 0, 0
	if m := templateLocation.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			col, _ = strconv.Atoi(m[2])
		}
	}
	return errors.NewCompileError(file, line, col, "template error", err)
}
