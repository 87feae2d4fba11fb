// Package assets routes source assets to a handling strategy.
//
// Classification is an ordered list of predicate/strategy pairs evaluated top
// to bottom; the first rule whose predicate matches decides the asset's
// fate. The classifier only decides. Emission of the bytes is left to the
// output assembler through a Sink.
package assets

import (
	"path/filepath"
	"strings"

	"github.com/conneroisu/sitepack/internal/profile"
)

// Strategy is how an asset ends up in the output.
type Strategy int

const (
	// InlineDataURL embeds the asset into the referencing document.
	InlineDataURL Strategy = iota
	// CopyToNamedPath copies the asset to a templated output path.
	CopyToNamedPath
	// SpriteInline adds the asset to the inline SVG sprite.
	SpriteInline
	// ExtractBundle hands the asset to the style pipeline.
	ExtractBundle
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case InlineDataURL:
		return "inline-data-url"
	case CopyToNamedPath:
		return "copy"
	case SpriteInline:
		return "sprite"
	case ExtractBundle:
		return "extract-bundle"
	default:
		return "unknown"
	}
}

// Asset is a source file reference as seen by the classifier.
type Asset struct {
	Path string
	Size int64
}

// Ext returns the lower-cased extension of the asset, including the dot.
func (a Asset) Ext() string {
	return strings.ToLower(filepath.Ext(a.Path))
}

// Predicate reports whether a rule applies to an asset.
type Predicate func(Asset) bool

// AssetRule pairs a predicate with the strategy chosen when it matches.
// OutputPathTemplate uses [name], [ext] and [hash] placeholders and is only
// meaningful for CopyToNamedPath.
type AssetRule struct {
	Name               string
	Match              Predicate
	Strategy           Strategy
	OutputPathTemplate string
}

// Extension groups recognized by the default rules.
var (
	StyleExts = []string{".scss", ".sass", ".css"}
	ImageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif"}
	FontExts  = []string{".woff", ".woff2", ".eot", ".ttf", ".otf"}
	BinExts   = []string{".ico", ".pdf"}
)

// HasExt matches assets whose extension is one of exts.
func HasExt(exts ...string) Predicate {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = struct{}{}
	}
	return func(a Asset) bool {
		_, ok := set[a.Ext()]
		return ok
	}
}

// Under matches assets located inside dir.
func Under(dir string) Predicate {
	root := normalize(dir)
	return func(a Asset) bool {
		if dir == "" {
			return false
		}
		return within(normalize(a.Path), root)
	}
}

// AtMost matches assets no larger than limit bytes.
func AtMost(limit int64) Predicate {
	return func(a Asset) bool { return a.Size <= limit }
}

// All matches when every predicate matches.
func All(preds ...Predicate) Predicate {
	return func(a Asset) bool {
		for _, p := range preds {
			if !p(a) {
				return false
			}
		}
		return true
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(a Asset) bool { return !p(a) }
}

// DefaultRules returns the standard routing table:
//
//	styles            -> ExtractBundle
//	svg under icons   -> SpriteInline
//	small images      -> InlineDataURL (images under icons match nothing)
//	images            -> CopyToNamedPath img/[name][ext]
//	fonts             -> CopyToNamedPath fonts/[name][ext]
//	ico, pdf          -> CopyToNamedPath assets/[name][ext]
func DefaultRules(iconsDir string, inlineLimit int64) []AssetRule {
	icons := Under(iconsDir)
	images := All(HasExt(ImageExts...), Not(icons))

	return []AssetRule{
		{Name: "styles", Match: HasExt(StyleExts...), Strategy: ExtractBundle},
		{Name: "icons", Match: All(HasExt(".svg"), icons), Strategy: SpriteInline},
		{Name: "images-inline", Match: All(images, AtMost(inlineLimit)), Strategy: InlineDataURL},
		{Name: "images", Match: images, Strategy: CopyToNamedPath, OutputPathTemplate: "img/[name][ext]"},
		{Name: "fonts", Match: HasExt(FontExts...), Strategy: CopyToNamedPath, OutputPathTemplate: "fonts/[name][ext]"},
		{Name: "binary", Match: HasExt(BinExts...), Strategy: CopyToNamedPath, OutputPathTemplate: "assets/[name][ext]"},
	}
}

// Decision is the outcome of classifying one asset.
type Decision struct {
	Asset    Asset
	Rule     string
	Strategy Strategy
	Template string
}

// OutputPath expands the decision's template for the given profile. When the
// profile hashes names and the template has no [hash] placeholder, the hash
// is inserted before the extension. Output paths always use forward slashes.
func (d Decision) OutputPath(p profile.BuildProfile, hash string) string {
	if d.Strategy != CopyToNamedPath {
		return ""
	}

	tmpl := d.Template
	if p.Hashed() && hash != "" && !strings.Contains(tmpl, "[hash]") {
		tmpl = strings.Replace(tmpl, "[ext]", ".[hash][ext]", 1)
	}

	base := filepath.Base(d.Asset.Path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if hash == "" {
		tmpl = strings.NewReplacer(".[hash]", "", "-[hash]", "", "[hash]", "").Replace(tmpl)
	}

	out := strings.NewReplacer(
		"[name]", name,
		"[ext]", ext,
		"[hash]", hash,
	).Replace(tmpl)

	return filepath.ToSlash(out)
}

func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
