package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/sitepack/internal/errors"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// FrontMatter is the optional YAML header of a Markdown view.
type FrontMatter struct {
	Title  string         `yaml:"title"`
	Layout string         `yaml:"layout"`
	Meta   map[string]any `yaml:",inline"`
}

// MarkdownRenderer renders Markdown views. A view whose front matter names a
// layout is wrapped in that include, which receives the body as .Content;
// otherwise a minimal document is produced.
type MarkdownRenderer struct {
	Layouts *TemplateRenderer
}

func (m *MarkdownRenderer) Render(_ context.Context, env *Env, source []byte) (*Page, error) {
	fm, body, err := SplitFrontMatter(source)
	if err != nil {
		return nil, errors.NewCompileError(env.View.SourcePath, 1, 1, "invalid front matter", err)
	}

	var buf bytes.Buffer
	if err := markdown.Convert(body, &buf); err != nil {
		return nil, errors.NewCompileError(env.View.SourcePath, 0, 0, "markdown conversion failed", err)
	}

	data := newTemplateData(env)
	if fm.Title != "" {
		data.Title = fm.Title
	}
	data.Content = template.HTML(buf.String())
	data.Meta = fm.Meta

	if fm.Layout != "" && m.Layouts != nil {
		out, err := m.Layouts.RenderLayout(env, fm.Layout, data)
		if err != nil {
			return nil, err
		}
		return &Page{Title: data.Title, HTML: out}, nil
	}

	doc := fmt.Sprintf("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n"+
		"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		template.HTMLEscapeString(data.Title), buf.String())
	return &Page{Title: data.Title, HTML: []byte(doc)}, nil
}

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// body. Sources without one return an empty FrontMatter and the input.
func SplitFrontMatter(source []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter

	src := bytes.TrimPrefix(source, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(src, []byte("---\n")) && !bytes.HasPrefix(src, []byte("---\r\n")) {
		return fm, source, nil
	}

	rest := src[bytes.IndexByte(src, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return fm, source, fmt.Errorf("front matter is not terminated")
	}

	header := rest[:end]
	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, source, err
	}
	return fm, body, nil
}

func markdownToHTML(input string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(buf.String())
}
