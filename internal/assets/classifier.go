package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/profile"
)

// Classifier evaluates an ordered rule list, first match wins.
type Classifier struct {
	rules []AssetRule
}

// NewClassifier creates a classifier over rules. The slice is copied, so
// later changes by the caller do not affect classification.
func NewClassifier(rules []AssetRule) *Classifier {
	return &Classifier{rules: append([]AssetRule(nil), rules...)}
}

// Rules returns a copy of the rule list in evaluation order.
func (c *Classifier) Rules() []AssetRule {
	return append([]AssetRule(nil), c.rules...)
}

// Classify picks the strategy for an asset. It has no side effects and
// always returns the same decision for the same path and size.
func (c *Classifier) Classify(a Asset) (Decision, error) {
	for _, rule := range c.rules {
		if rule.Match(a) {
			return Decision{
				Asset:    a,
				Rule:     rule.Name,
				Strategy: rule.Strategy,
				Template: rule.OutputPathTemplate,
			}, nil
		}
	}
	return Decision{}, errors.NewUnclassifiedAssetError(a.Path)
}

// ClassifyFile stats path and classifies it.
func (c *Classifier) ClassifyFile(path string) (Decision, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Decision{}, errors.NewNotFoundError(path, err)
		}
		return Decision{}, errors.WrapIO(err, path, "failed to stat asset")
	}
	if stat.IsDir() {
		return Decision{}, errors.NewUnclassifiedAssetError(path)
	}
	return c.Classify(Asset{Path: path, Size: stat.Size()})
}

// Sink receives the files that copied assets emit.
type Sink interface {
	Emit(source, outputPath string, content []byte)
}

// Resolver turns an asset reference into the URL a page or script uses,
// emitting copied files to its sink along the way.
type Resolver struct {
	classifier *Classifier
	profile    profile.BuildProfile
	hashes     *HashProvider
	sink       Sink
	iconPrefix string
}

// NewResolver binds a classifier to a profile and a sink for one pass.
func NewResolver(c *Classifier, p profile.BuildProfile, hashes *HashProvider, sink Sink, iconPrefix string) *Resolver {
	if hashes == nil {
		hashes = NewHashProvider()
	}
	return &Resolver{
		classifier: c,
		profile:    p,
		hashes:     hashes,
		sink:       sink,
		iconPrefix: iconPrefix,
	}
}

// Resolve classifies path and returns its public URL:
//
//	InlineDataURL    data:...;base64,...
//	CopyToNamedPath  img/logo.png (or img/logo.3f2a1b9c.png in production)
//	SpriteInline     #icon-logo
//
// Stylesheets are bundled by the style pipeline and cannot be referenced
// as individual assets.
func (r *Resolver) Resolve(path string) (string, error) {
	decision, err := r.classifier.ClassifyFile(path)
	if err != nil {
		return "", err
	}

	switch decision.Strategy {
	case InlineDataURL:
		content, err := os.ReadFile(path)
		if err != nil {
			return "", errors.WrapIO(err, path, "failed to read asset")
		}
		return EncodeDataURL(decision.Asset.Ext(), content), nil

	case CopyToNamedPath:
		hash, content, err := r.hashes.FileHash(path)
		if err != nil {
			return "", errors.WrapIO(err, path, "failed to read asset")
		}
		out := decision.OutputPath(r.profile, hash)
		if r.sink != nil {
			r.sink.Emit(path, out, content)
		}
		return out, nil

	case SpriteInline:
		return "#" + SymbolID(r.iconPrefix, path), nil

	case ExtractBundle:
		return "", errors.NewValidationError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("stylesheet %s is compiled into the style bundle and cannot be referenced directly", path)).
			WithLocation(path, 0, 0)
	}

	return "", errors.NewInternalError(errors.ErrCodeInternalError,
		fmt.Sprintf("unhandled strategy %s", decision.Strategy), nil)
}

// SymbolID returns the sprite symbol id for an icon file.
func SymbolID(prefix, path string) string {
	base := filepath.Base(path)
	return prefix + strings.TrimSuffix(base, filepath.Ext(base))
}
