// Package profile selects the build profile for an invocation.
//
// A BuildProfile is chosen once from the mode flag, the environment and a
// default, then passed by value to every pipeline stage. Nothing in the
// build mutates it afterwards.
package profile

import (
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/sitepack/internal/errors"
)

// Mode is the build mode requested at invocation time.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// EnvVar is consulted when no explicit mode flag is given. LegacyEnvVar is
// read after it so projects migrating from a NODE_ENV based setup keep working.
const (
	EnvVar       = "SITEPACK_MODE"
	LegacyEnvVar = "NODE_ENV"
)

// SourceMaps controls how source maps are emitted.
type SourceMaps int

const (
	SourceMapsNone SourceMaps = iota
	SourceMapsInline
	SourceMapsExternal
)

// String returns the string representation of the source map mode
func (s SourceMaps) String() string {
	switch s {
	case SourceMapsNone:
		return "none"
	case SourceMapsInline:
		return "inline"
	case SourceMapsExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ChunkNaming controls whether bundle filenames carry a content hash.
type ChunkNaming int

const (
	ChunkNamingFixed ChunkNaming = iota
	ChunkNamingContentHash
)

// String returns the string representation of the chunk naming scheme
func (c ChunkNaming) String() string {
	switch c {
	case ChunkNamingFixed:
		return "fixed"
	case ChunkNamingContentHash:
		return "content-hash"
	default:
		return "unknown"
	}
}

// BuildProfile parametrizes one build pass.
type BuildProfile struct {
	Mode             Mode
	SourceMaps       SourceMaps
	MinifyCSS        bool
	MinifyJS         bool
	CodeSplitting    bool
	ChunkNaming      ChunkNaming
	StripDiagnostics bool
}

// IsProduction reports whether this is the production profile.
func (p BuildProfile) IsProduction() bool {
	return p.Mode == Production
}

// Hashed reports whether emitted bundle names carry a content hash.
func (p BuildProfile) Hashed() bool {
	return p.ChunkNaming == ChunkNamingContentHash
}

// String summarizes the profile for logs.
func (p BuildProfile) String() string {
	return fmt.Sprintf("%s (sourcemaps=%s minify=%t split=%t naming=%s strip=%t)",
		p.Mode, p.SourceMaps, p.MinifyJS, p.CodeSplitting, p.ChunkNaming, p.StripDiagnostics)
}

// DevelopmentProfile favors fast rebuilds and debuggability.
func DevelopmentProfile() BuildProfile {
	return BuildProfile{
		Mode:        Development,
		SourceMaps:  SourceMapsInline,
		ChunkNaming: ChunkNamingFixed,
	}
}

// ProductionProfile minifies, hashes and splits output.
func ProductionProfile() BuildProfile {
	return BuildProfile{
		Mode:             Production,
		SourceMaps:       SourceMapsExternal,
		MinifyCSS:        true,
		MinifyJS:         true,
		CodeSplitting:    true,
		ChunkNaming:      ChunkNamingContentHash,
		StripDiagnostics: true,
	}
}

// Resolve picks the raw mode string: explicit flag, then SITEPACK_MODE, then
// NODE_ENV, then "development".
func Resolve(flag string, lookupEnv func(string) (string, bool)) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	for _, key := range []string{EnvVar, LegacyEnvVar} {
		if v, ok := lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return string(Development)
}

// Select maps a mode string to a profile. "production" selects the
// production profile and every other value, including unknown ones, selects
// development.
func Select(mode string) BuildProfile {
	if Mode(mode) == Production {
		return ProductionProfile()
	}
	return DevelopmentProfile()
}

// Strict is like Select but rejects anything other than the two known modes.
func Strict(mode string) (BuildProfile, error) {
	switch Mode(mode) {
	case Production:
		return ProductionProfile(), nil
	case Development:
		return DevelopmentProfile(), nil
	default:
		return BuildProfile{}, errors.NewValidationError(errors.ErrCodeUnknownMode,
			fmt.Sprintf("unknown build mode %q (expected development or production)", mode))
	}
}
