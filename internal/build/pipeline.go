// Package build runs build passes.
//
// A pass is strictly sequential: discover views, build the icon sprite,
// compile styles, bundle scripts, render and assemble pages, then swap the
// new output tree in. Any error aborts the pass before the swap, so the
// previous output survives a failed pass untouched.
package build

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/sitepack/internal/assets"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/logging"
	"github.com/conneroisu/sitepack/internal/output"
	"github.com/conneroisu/sitepack/internal/profile"
	"github.com/conneroisu/sitepack/internal/renderer"
	"github.com/conneroisu/sitepack/internal/scanner"
	"github.com/conneroisu/sitepack/internal/scripts"
	"github.com/conneroisu/sitepack/internal/styles"
)

// Pipeline runs passes for one configuration and profile. Run is not safe
// for concurrent use; the Rebuilder serializes calls.
type Pipeline struct {
	cfg        *config.Config
	profile    profile.BuildProfile
	logger     logging.Logger
	classifier *assets.Classifier
	hashes     *assets.HashProvider
	scripts    *scripts.Pipeline
	assembler  *output.Assembler
	metrics    *BuildMetrics

	incremental bool
	reloadPath  string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIncremental keeps the script bundler's context alive between passes.
func WithIncremental() Option {
	return func(p *Pipeline) { p.incremental = true }
}

// WithReloadPath adds the live reload client, connecting to path, to every
// page.
func WithReloadPath(path string) Option {
	return func(p *Pipeline) { p.reloadPath = path }
}

// NewPipeline creates a pipeline. cfg must already be validated.
func NewPipeline(cfg *config.Config, p profile.BuildProfile, logger logging.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}

	pl := &Pipeline{
		cfg:     cfg,
		profile: p,
		logger:  logger.WithComponent("build"),
		classifier: assets.NewClassifier(
			assets.DefaultRules(cfg.Resolve(cfg.Paths.Icons), cfg.Assets.InlineLimit)),
		hashes:  assets.NewHashProvider(),
		metrics: NewBuildMetrics(),
	}
	for _, opt := range opts {
		opt(pl)
	}

	pl.scripts = scripts.New(scripts.Options{
		Entries:     cfg.ResolveAll(cfg.Paths.Scripts),
		WorkDir:     cfg.Paths.Root,
		Incremental: pl.incremental,
	}, p, logger)

	static := make([]output.StaticDir, 0, len(cfg.Paths.Static))
	for _, s := range cfg.Paths.Static {
		static = append(static, output.StaticDir{From: cfg.Resolve(s.From), To: s.To})
	}

	pl.assembler = output.NewAssembler(output.Options{
		OutputDir:  cfg.OutputDir(),
		Static:     static,
		Compress:   cfg.Build.Compress && p.IsProduction(),
		Manifest:   cfg.Build.Manifest && p.IsProduction(),
		ReloadPath: pl.reloadPath,
	}, renderer.NewRegistry(), logger)

	return pl
}

// Profile returns the profile the pipeline builds with.
func (p *Pipeline) Profile() profile.BuildProfile {
	return p.profile
}

// Metrics returns a snapshot of the pass counters.
func (p *Pipeline) Metrics() BuildMetrics {
	return p.metrics.GetSnapshot()
}

// Close releases the script bundler.
func (p *Pipeline) Close() {
	p.scripts.Close()
}

// Run executes one pass.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	id := uuid.NewString()
	ctx = logging.WithPassID(ctx, id)
	op := logging.StartOperation(p.logger, "pass")
	start := time.Now()

	report, err := p.run(ctx)
	if report == nil {
		report = &Report{}
	}
	report.PassID = id
	report.Mode = p.profile.Mode
	report.OutputDir = p.cfg.OutputDir()
	report.Duration = time.Since(start)

	p.metrics.RecordPass(report.Duration, err)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}
	op.End(ctx)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (*Report, error) {
	cfg := p.cfg
	report := &Report{}

	views, err := scanner.Discover(cfg.Resolve(cfg.Paths.Views))
	if err != nil {
		return nil, err
	}
	report.Views = len(views)
	p.logger.Debug(ctx, "discovered views", "count", len(views))

	manifest := output.NewManifest()
	resolver := assets.NewResolver(p.classifier, p.profile, p.hashes, manifest, cfg.Assets.IconPrefix)

	sprite, err := assets.BuildSprite(cfg.Resolve(cfg.Paths.Icons), cfg.Assets.IconPrefix)
	if err != nil {
		return nil, err
	}
	report.Icons = len(sprite.Symbols)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	styleEntries := cfg.ResolveAll(cfg.Paths.Styles)
	style, err := styles.Compile(ctx, styleEntries, p.profile, styles.Options{
		IncludePaths: includePaths(cfg, styleEntries),
		WorkDir:      cfg.Paths.Root,
	})
	if err != nil {
		return nil, err
	}
	if !style.Empty() {
		report.Style = style.Name
	}

	bundle, err := p.scripts.Build(ctx, resolver)
	if err != nil {
		return nil, err
	}
	report.Scripts = bundle.Scripts
	report.Vendors = bundle.Vendors

	if err := p.assembler.Assemble(ctx, manifest, output.Input{
		Views:      views,
		Includes:   cfg.Resolve(cfg.Paths.Includes),
		IconPrefix: cfg.Assets.IconPrefix,
		Profile:    p.profile,
		Assets:     resolver,
		Style:      style,
		Scripts:    bundle,
		Sprite:     sprite,
	}); err != nil {
		return nil, err
	}

	if err := p.assembler.Commit(ctx, manifest); err != nil {
		return nil, err
	}

	for _, v := range views {
		report.Pages = append(report.Pages, v.OutputFilename)
	}
	report.Files = manifest.Len()
	report.Bytes = manifest.Bytes()
	return report, nil
}

// includePaths lets partials be imported from each entry's directory and
// from node_modules.
func includePaths(cfg *config.Config, entries []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		dir := filepath.Dir(e)
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return append(out, cfg.Resolve("node_modules"))
}
