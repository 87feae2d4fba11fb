package output

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/conneroisu/sitepack/internal/assets"
	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/logging"
	"github.com/conneroisu/sitepack/internal/profile"
	"github.com/conneroisu/sitepack/internal/renderer"
	"github.com/conneroisu/sitepack/internal/scanner"
	"github.com/conneroisu/sitepack/internal/scripts"
	"github.com/conneroisu/sitepack/internal/styles"
)

// StaticDir is a directory copied verbatim to To inside the output.
type StaticDir struct {
	From string
	To   string
}

// Options configures the assembler.
type Options struct {
	OutputDir string
	Static    []StaticDir
	// Compress adds a .gz sibling for every script and stylesheet.
	Compress bool
	// Manifest writes manifest.json mapping logical names to emitted paths.
	Manifest bool
	// ReloadPath, when set, adds the live reload client to every page.
	ReloadPath string
}

// Input is everything a pass produced before assembly.
type Input struct {
	Views      []scanner.ViewDescriptor
	Includes   string
	IconPrefix string
	Profile    profile.BuildProfile
	Assets     *assets.Resolver
	Style      *styles.Bundle
	Scripts    *scripts.Result
	Sprite     *assets.Sprite
}

// Assembler renders pages and lays out the output tree.
type Assembler struct {
	opts      Options
	renderers *renderer.Registry
	logger    logging.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(opts Options, renderers *renderer.Registry, logger logging.Logger) *Assembler {
	if renderers == nil {
		renderers = renderer.NewRegistry()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Assembler{
		opts:      opts,
		renderers: renderers,
		logger:    logger.WithComponent("output"),
	}
}

// Assemble fills m with the pass's files. Nothing is written to disk.
func (a *Assembler) Assemble(ctx context.Context, m *Manifest, in Input) error {
	for _, dir := range a.opts.Static {
		if err := copyStatic(m, dir); err != nil {
			return err
		}
	}

	var inj Injection

	if in.Style != nil && !in.Style.Empty() {
		m.Add(KindStyle, "", in.Style.Name, in.Style.CSS)
		m.Alias(logicalName(in.Style.Name), in.Style.Name)
		if in.Style.MapName != "" {
			m.Add(KindSourceMap, "", in.Style.MapName, in.Style.SourceMap)
		}
		inj.Stylesheet = in.Style.Name
	}

	if in.Scripts != nil {
		for _, f := range in.Scripts.Files {
			m.Add(scriptKind(f.Path), "", f.Path, f.Contents)
		}
		for _, s := range in.Scripts.Scripts {
			m.Alias(logicalName(s), s)
		}
		inj.Scripts = append(inj.Scripts, in.Scripts.Scripts...)
	}

	if in.Sprite != nil && !in.Sprite.Empty() {
		inj.Sprite = in.Sprite.HTML()
	}

	if a.opts.ReloadPath != "" {
		inj.Inline = ReloadClient(a.opts.ReloadPath)
	}

	views := append([]scanner.ViewDescriptor(nil), in.Views...)
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })

	for _, view := range views {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := a.renderers.Render(ctx, &renderer.Env{
			View:       view,
			Includes:   in.Includes,
			Assets:     in.Assets,
			IconPrefix: in.IconPrefix,
			Profile:    in.Profile,
		})
		if err != nil {
			return err
		}

		out, err := Inject(page.HTML, inj)
		if err != nil {
			return errors.NewCompileError(view.SourcePath, 0, 0, "failed to inject assets into page", err)
		}
		m.Add(KindPage, view.SourcePath, view.OutputFilename, out)
		a.logger.Debug(ctx, "rendered page", "view", view.Name, "output", view.OutputFilename)
	}

	if a.opts.Compress {
		if err := compress(m); err != nil {
			return err
		}
	}

	if a.opts.Manifest {
		b, err := m.JSON()
		if err != nil {
			return errors.NewInternalError(errors.ErrCodeInternalError, "failed to encode manifest", err)
		}
		m.Add(KindManifest, "", ManifestFile, b)
	}

	for _, p := range m.Conflicts() {
		a.logger.Warn(ctx, nil, "output path written twice with different content", "path", p)
	}

	return nil
}

// Commit writes m to a staging directory beside the output directory and
// swaps it in. On failure the previous output is left in place.
func (a *Assembler) Commit(ctx context.Context, m *Manifest) error {
	out, err := filepath.Abs(a.opts.OutputDir)
	if err != nil {
		return errors.WrapIO(err, a.opts.OutputDir, "failed to resolve output directory")
	}
	parent := filepath.Dir(out)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.WrapIO(err, parent, "failed to create output parent")
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(out)+"-staging-")
	if err != nil {
		return errors.WrapIO(err, parent, "failed to create staging directory")
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	if err := os.Chmod(staging, 0755); err != nil {
		return errors.WrapIO(err, staging, "failed to set staging permissions")
	}

	for _, e := range m.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(staging, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return errors.WrapIO(err, dst, "failed to create output directory")
		}
		if err := os.WriteFile(dst, e.Content, 0644); err != nil {
			return errors.WrapIO(err, dst, "failed to write output file")
		}
	}

	if err := swap(staging, out); err != nil {
		return err
	}
	committed = true

	a.logger.Debug(ctx, "output committed", "dir", out, "files", m.Len())
	return nil
}

// swap replaces out with staging. The old tree is moved aside first and
// restored if the second rename fails.
func swap(staging, out string) error {
	var trash string
	if _, err := os.Stat(out); err == nil {
		trash = staging + ".old"
		if err := os.Rename(out, trash); err != nil {
			return errors.WrapIO(err, out, "failed to move previous output aside")
		}
	}

	if err := os.Rename(staging, out); err != nil {
		if trash != "" {
			_ = os.Rename(trash, out)
		}
		return errors.WrapIO(err, out, "failed to swap in new output")
	}

	if trash != "" {
		_ = os.RemoveAll(trash)
	}
	return nil
}

func copyStatic(m *Manifest, dir StaticDir) error {
	info, err := os.Stat(dir.From)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapIO(err, dir.From, "failed to stat static directory")
	}
	if !info.IsDir() {
		return errors.NewValidationError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("static source %s is not a directory", dir.From))
	}

	return filepath.WalkDir(dir.From, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WrapIO(err, p, "failed to walk static directory")
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir.From, p)
		if err != nil {
			return errors.WrapIO(err, p, "failed to relativize static file")
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return errors.WrapIO(err, p, "failed to read static file")
		}
		m.Add(KindStatic, p, path.Join(dir.To, filepath.ToSlash(rel)), content)
		return nil
	})
}

func compress(m *Manifest) error {
	for _, e := range m.Entries() {
		if e.Kind != KindScript && e.Kind != KindStyle {
			continue
		}
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return errors.NewInternalError(errors.ErrCodeInternalError, "failed to create gzip writer", err)
		}
		if _, err := zw.Write(e.Content); err != nil {
			return errors.NewInternalError(errors.ErrCodeInternalError, "failed to compress "+e.Path, err)
		}
		if err := zw.Close(); err != nil {
			return errors.NewInternalError(errors.ErrCodeInternalError, "failed to compress "+e.Path, err)
		}
		m.Add(KindCompressed, e.Path, e.Path+".gz", buf.Bytes())
	}
	return nil
}

func scriptKind(p string) Kind {
	switch {
	case strings.HasSuffix(p, ".map"):
		return KindSourceMap
	case strings.HasSuffix(p, ".LEGAL.txt"):
		return KindLegal
	default:
		return KindScript
	}
}

var hashSegment = regexp.MustCompile(`\.[0-9a-f]{8}(\.[^.]+)$`)

// logicalName strips the content hash from an emitted path:
// js/main.1a2b3c4d.js becomes main.js.
func logicalName(p string) string {
	return hashSegment.ReplaceAllString(path.Base(p), "$1")
}
