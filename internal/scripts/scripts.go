// Package scripts bundles the site's JavaScript with esbuild.
//
// Development builds one IIFE bundle, js/bundle.js, with an inline source
// map, and reuses an incremental esbuild context between watch passes.
// Production builds three classic scripts that load in document order:
//
//	js/runtime.<hash>.js  module registry
//	js/vendors.<hash>.js  node_modules packages, registered by name
//	js/main.<hash>.js     application code, reading packages from the registry
//
// Production output drops console calls and debugger statements and moves
// legal comments to a .LEGAL.txt sidecar.
package scripts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/sitepack/internal/assets"
	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/logging"
	"github.com/conneroisu/sitepack/internal/profile"
)

const (
	outDir      = "js"
	devBundle   = "bundle"
	mainChunk   = "main"
	vendorChunk = "vendors"
	runtimeName = "runtime"
)

// Options configures the pipeline.
type Options struct {
	// Entries are the entry scripts, bundled in the given order.
	Entries []string
	// WorkDir is the project root. Relative entries resolve against it.
	WorkDir string
	// Incremental keeps an esbuild context alive between development builds.
	Incremental bool
}

// OutputFile is one emitted file.
type OutputFile struct {
	Path     string
	Contents []byte
}

// Result is the outcome of one build.
type Result struct {
	// Scripts are the script paths in load order.
	Scripts []string
	// Files holds every emitted file: bundles, source maps and legal sidecars.
	Files    []OutputFile
	Metafile *Metafile
	// Vendors lists the packages moved into the vendor bundle.
	Vendors []string
}

// Pipeline builds script bundles for one profile.
type Pipeline struct {
	opts    Options
	profile profile.BuildProfile
	logger  logging.Logger
	ref     *resolverRef

	mu  sync.Mutex
	dev api.BuildContext
}

// New creates a pipeline. Nothing is built until Build is called.
func New(opts Options, p profile.BuildProfile, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.WorkDir == "" {
		opts.WorkDir, _ = os.Getwd()
	}
	opts.WorkDir, _ = filepath.Abs(opts.WorkDir)

	return &Pipeline{
		opts:    opts,
		profile: p,
		logger:  logger.WithComponent("scripts"),
		ref:     &resolverRef{},
	}
}

// Build bundles the entries. Asset imports are resolved through r, which
// also receives the copied asset files. esbuild builds cannot be
// interrupted, so ctx is only checked before the build starts.
func (p *Pipeline) Build(ctx context.Context, r *assets.Resolver) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.opts.Entries) == 0 {
		return &Result{Metafile: &Metafile{}}, nil
	}

	entries, err := p.entries()
	if err != nil {
		return nil, err
	}

	p.ref.set(r)
	defer p.ref.set(nil)

	if p.profile.CodeSplitting {
		return p.buildSplit(ctx, entries)
	}
	return p.buildSingle(ctx, entries)
}

// Close releases the incremental context, if any.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev != nil {
		p.dev.Dispose()
		p.dev = nil
	}
}

func (p *Pipeline) entries() ([]string, error) {
	out := make([]string, 0, len(p.opts.Entries))
	for _, e := range p.opts.Entries {
		if !filepath.IsAbs(e) {
			e = filepath.Join(p.opts.WorkDir, e)
		}
		if _, err := os.Stat(e); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewNotFoundError(e, err)
			}
			return nil, errors.WrapIO(err, e, "failed to stat script entry")
		}
		out = append(out, e)
	}
	return out, nil
}

func (p *Pipeline) baseOptions(entry, name string, plugins ...api.Plugin) api.BuildOptions {
	minify := p.profile.MinifyJS
	opts := api.BuildOptions{
		EntryPoints:       []string{entry},
		AbsWorkingDir:     p.opts.WorkDir,
		Bundle:            true,
		Write:             false,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2017,
		Outfile:           filepath.Join(p.opts.WorkDir, outDir, name+".js"),
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		Sourcemap:         sourceMapMode(p.profile.SourceMaps),
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
		Plugins:           plugins,
		Define: map[string]string{
			"process.env.NODE_ENV": jsString(string(p.profile.Mode)),
		},
	}
	if p.profile.StripDiagnostics {
		opts.Drop = api.DropConsole | api.DropDebugger
		opts.LegalComments = api.LegalCommentsExternal
	}
	return opts
}

func (p *Pipeline) buildSingle(ctx context.Context, entries []string) (*Result, error) {
	opts := p.baseOptions(entryModule, devBundle,
		assetPlugin(p.ref),
		virtualPlugin(entries, p.opts.WorkDir),
	)

	var result api.BuildResult
	if p.opts.Incremental {
		if p.dev == nil {
			c, cerr := api.Context(opts)
			if cerr != nil {
				return nil, p.fail(ctx, cerr.Errors)
			}
			p.dev = c
		}
		result = p.dev.Rebuild()
	} else {
		result = api.Build(opts)
	}

	if len(result.Errors) > 0 {
		return nil, p.fail(ctx, result.Errors)
	}
	p.warn(ctx, result.Warnings)

	meta, err := parseMetafile(result.Metafile)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "failed to parse esbuild metafile", err)
	}

	out := &Result{Metafile: meta}
	chunk, err := p.collect(devBundle, result.OutputFiles, false)
	if err != nil {
		return nil, err
	}
	out.add(chunk)
	return out, nil
}

func (p *Pipeline) buildSplit(ctx context.Context, entries []string) (*Result, error) {
	vendors := newVendorCollector()

	mainResult := api.Build(p.baseOptions(entryModule, mainChunk,
		assetPlugin(p.ref),
		vendors.plugin(),
		virtualPlugin(entries, p.opts.WorkDir),
	))
	if len(mainResult.Errors) > 0 {
		return nil, p.fail(ctx, mainResult.Errors)
	}
	p.warn(ctx, mainResult.Warnings)

	meta, err := parseMetafile(mainResult.Metafile)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "failed to parse esbuild metafile", err)
	}

	out := &Result{Metafile: meta, Vendors: vendors.Specifiers()}

	runtime, err := p.buildRuntime()
	if err != nil {
		return nil, err
	}
	out.add(runtime)

	if len(out.Vendors) > 0 {
		vendorResult := api.Build(p.baseOptions(vendorModule, vendorChunk,
			assetPlugin(p.ref),
			vendorEntryPlugin(vendors, p.opts.WorkDir),
		))
		if len(vendorResult.Errors) > 0 {
			return nil, p.fail(ctx, vendorResult.Errors)
		}
		p.warn(ctx, vendorResult.Warnings)

		vendorMeta, err := parseMetafile(vendorResult.Metafile)
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeInternalError, "failed to parse esbuild metafile", err)
		}
		meta.merge(vendorMeta)

		chunk, err := p.collect(vendorChunk, vendorResult.OutputFiles, true)
		if err != nil {
			return nil, err
		}
		out.add(chunk)
	}

	main, err := p.collect(mainChunk, mainResult.OutputFiles, true)
	if err != nil {
		return nil, err
	}
	out.add(main)

	return out, nil
}

func (p *Pipeline) buildRuntime() (*chunk, error) {
	minify := p.profile.MinifyJS
	res := api.Transform(runtimeSource, api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        runtimeName + ".js",
		Target:            api.ES2017,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		Sourcemap:         sourceMapMode(p.profile.SourceMaps),
	})
	if len(res.Errors) > 0 {
		return nil, messageError(res.Errors[0], "runtime transform failed")
	}
	return &chunk{
		script: p.chunkName(runtimeName, res.Code, true),
		js:     res.Code,
		srcMap: res.Map,
	}, nil
}

type chunk struct {
	script string
	js     []byte
	srcMap []byte
	legal  []byte
}

func (p *Pipeline) collect(name string, files []api.OutputFile, hashed bool) (*chunk, error) {
	c := &chunk{}
	for _, f := range files {
		switch {
		case strings.HasSuffix(f.Path, ".LEGAL.txt"):
			c.legal = f.Contents
		case strings.HasSuffix(f.Path, ".js.map"):
			c.srcMap = f.Contents
		case strings.HasSuffix(f.Path, ".js"):
			c.js = f.Contents
		}
	}
	if c.js == nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError,
			fmt.Sprintf("esbuild produced no output for %s", name), nil)
	}
	c.script = p.chunkName(name, c.js, hashed)
	return c, nil
}

func (p *Pipeline) chunkName(name string, js []byte, hashed bool) string {
	if hashed && p.profile.Hashed() {
		name += "." + assets.ContentHash(js)
	}
	return outDir + "/" + name + ".js"
}

func (r *Result) add(c *chunk) {
	js := c.js
	if len(c.srcMap) > 0 {
		mapName := c.script + ".map"
		js = append(append([]byte(nil), js...), []byte("//# sourceMappingURL="+filepath.Base(mapName)+"\n")...)
		r.Files = append(r.Files, OutputFile{Path: mapName, Contents: c.srcMap})
	}
	if len(strings.TrimSpace(string(c.legal))) > 0 {
		r.Files = append(r.Files, OutputFile{Path: c.script + ".LEGAL.txt", Contents: c.legal})
	}
	r.Files = append(r.Files, OutputFile{Path: c.script, Contents: js})
	r.Scripts = append(r.Scripts, c.script)
}

// fail converts esbuild messages into a CompileError, preferring a typed
// error raised by one of the plugins.
func (p *Pipeline) fail(ctx context.Context, msgs []api.Message) error {
	for _, m := range msgs {
		loc := ""
		if m.Location != nil {
			loc = fmt.Sprintf("%s:%d:%d", m.Location.File, m.Location.Line, m.Location.Column+1)
		}
		p.logger.Error(ctx, nil, m.Text, "location", loc, "plugin", m.PluginName)
	}
	if err := p.ref.err(); err != nil {
		return err
	}
	return messageError(msgs[0], "script bundling failed")
}

func (p *Pipeline) warn(ctx context.Context, msgs []api.Message) {
	for _, m := range msgs {
		p.logger.Warn(ctx, nil, m.Text)
	}
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
