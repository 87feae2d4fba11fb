// Package styles compiles the SCSS entries into the single CSS bundle.
//
// Each entry is transpiled with libsass, then esbuild joins the results in
// entry order, minifies them for production and emits the source map. url()
// references are left untouched; static images and fonts are copied
// verbatim, so the paths written in the stylesheet stay valid.
package styles

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bep/golibsass/libsass"
	"github.com/bep/golibsass/libsass/libsasserrors"
	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/sitepack/internal/assets"
	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/profile"
)

const (
	bundleDir  = "css"
	bundleBase = "style.bundle"
	namespace  = "sitepack-style"
)

// Bundle is the compiled stylesheet.
type Bundle struct {
	// Name is the output path, css/style.bundle.css or
	// css/style.bundle.<hash>.css.
	Name string
	CSS  []byte
	// MapName and SourceMap are set when the map is written externally.
	MapName   string
	SourceMap []byte
	Entries   []string
}

// Empty reports whether no stylesheet was compiled.
func (b *Bundle) Empty() bool {
	return b == nil || len(b.CSS) == 0
}

// Options tunes compilation.
type Options struct {
	// IncludePaths are searched for @import targets after the entry's own
	// directory.
	IncludePaths []string
	// WorkDir anchors source paths in the source map.
	WorkDir string
}

// Compile builds the CSS bundle from the SCSS entries.
func Compile(ctx context.Context, entries []string, p profile.BuildProfile, opts Options) (*Bundle, error) {
	if len(entries) == 0 {
		return &Bundle{}, nil
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	workDir, _ = filepath.Abs(workDir)

	compiled := make([]string, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		css, err := transpile(entry, p, opts.IncludePaths)
		if err != nil {
			return nil, err
		}
		compiled[i] = css
	}

	css, sourceMap, err := join(compiled, entries, p, workDir)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Entries: append([]string(nil), entries...)}
	name := bundleBase
	if p.Hashed() {
		name += "." + assets.ContentHash(css)
	}
	b.Name = bundleDir + "/" + name + ".css"

	if p.SourceMaps == profile.SourceMapsExternal && len(sourceMap) > 0 {
		b.MapName = b.Name + ".map"
		b.SourceMap = sourceMap
		css = append(css, []byte("/*# sourceMappingURL="+filepath.Base(b.MapName)+" */\n")...)
	}
	b.CSS = css

	return b, nil
}

func transpile(entry string, p profile.BuildProfile, includePaths []string) (string, error) {
	source, err := os.ReadFile(entry)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFoundError(entry, err)
		}
		return "", errors.WrapIO(err, entry, "failed to read stylesheet")
	}

	mapOpts := libsass.SourceMapOptions{InputPath: entry}
	if p.SourceMaps != profile.SourceMapsNone {
		mapOpts.Filename = filepath.Base(entry) + ".map"
		mapOpts.Contents = true
		mapOpts.EnableEmbedded = true
	}

	t, err := libsass.New(libsass.Options{
		IncludePaths:     append([]string{filepath.Dir(entry)}, includePaths...),
		OutputStyle:      libsass.ExpandedStyle,
		Precision:        8,
		SassSyntax:       strings.EqualFold(filepath.Ext(entry), ".sass"),
		SourceMapOptions: mapOpts,
	})
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternalError, "failed to create SCSS compiler", err)
	}

	res, err := t.Execute(string(source))
	if err != nil {
		return "", sassError(entry, err)
	}
	return res.CSS, nil
}

func sassError(entry string, err error) error {
	var se libsasserrors.Error
	if !stderrors.As(err, &se) {
		return errors.NewCompileError(entry, 0, 0, "SCSS compilation failed", err)
	}

	file := se.File
	if file == "" || file == "stdin" {
		file = entry
	}
	return errors.NewCompileError(file, se.Line, se.Column, strings.TrimSpace(se.Message), nil)
}

// join bundles the transpiled sheets through esbuild, which handles
// minification and the final source map.
func join(sheets, entries []string, p profile.BuildProfile, workDir string) ([]byte, []byte, error) {
	var imports strings.Builder
	for i := range sheets {
		fmt.Fprintf(&imports, "@import %q;\n", namespace+":"+strconv.Itoa(i))
	}

	plugin := api.Plugin{
		Name: namespace,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if strings.HasPrefix(args.Path, namespace+":") {
					return api.OnResolveResult{Path: args.Path, Namespace: namespace}, nil
				}
				// url() and any other import stay exactly as written.
				return api.OnResolveResult{Path: args.Path, External: true}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: namespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				i, err := strconv.Atoi(strings.TrimPrefix(args.Path, namespace+":"))
				if err != nil || i < 0 || i >= len(sheets) {
					return api.OnLoadResult{}, fmt.Errorf("unknown stylesheet %s", args.Path)
				}
				contents := sheets[i]
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderCSS,
					ResolveDir: filepath.Dir(entries[i]),
				}, nil
			})
		},
	}

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   imports.String(),
			Loader:     api.LoaderCSS,
			ResolveDir: workDir,
			Sourcefile: bundleBase + ".css",
		},
		AbsWorkingDir:    workDir,
		Bundle:           true,
		Write:            false,
		Outfile:          filepath.Join(workDir, bundleBase+".css"),
		MinifyWhitespace: p.MinifyCSS,
		MinifySyntax:     p.MinifyCSS,
		LegalComments:    cond(p.StripDiagnostics, api.LegalCommentsNone, api.LegalCommentsInline),
		Sourcemap:        sourceMapMode(p.SourceMaps),
		Plugins:          []api.Plugin{plugin},
		LogLevel:         api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return nil, nil, messageError(result.Errors[0], "CSS bundling failed")
	}

	var css, sourceMap []byte
	for _, out := range result.OutputFiles {
		switch {
		case strings.HasSuffix(out.Path, ".css.map"):
			sourceMap = out.Contents
		case strings.HasSuffix(out.Path, ".css"):
			css = out.Contents
		}
	}
	return css, sourceMap, nil
}

func sourceMapMode(s profile.SourceMaps) api.SourceMap {
	switch s {
	case profile.SourceMapsInline:
		return api.SourceMapInline
	case profile.SourceMapsExternal:
		return api.SourceMapExternal
	default:
		return api.SourceMapNone
	}
}

func messageError(msg api.Message, fallback string) error {
	text := msg.Text
	if text == "" {
		text = fallback
	}
	if msg.Location == nil {
		return errors.NewCompileError("", 0, 0, text, nil)
	}
	return errors.NewCompileError(msg.Location.File, msg.Location.Line, msg.Location.Column+1, text, nil)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
