package profile

import (
	"testing"

	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vals map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vals[key]
		return v, ok
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		env      map[string]string
		expected string
	}{
		{"flag wins over env", "production", map[string]string{EnvVar: "development"}, "production"},
		{"env used without flag", "", map[string]string{EnvVar: "production"}, "production"},
		{"sitepack env wins over legacy", "", map[string]string{EnvVar: "development", LegacyEnvVar: "production"}, "development"},
		{"legacy env fallback", "", map[string]string{LegacyEnvVar: "production"}, "production"},
		{"blank env ignored", "", map[string]string{EnvVar: "  "}, "development"},
		{"default", "", nil, "development"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.flag, env(tt.env)))
		})
	}
}

func TestSelect(t *testing.T) {
	prod := Select("production")
	assert.Equal(t, Production, prod.Mode)
	assert.True(t, prod.MinifyCSS)
	assert.True(t, prod.MinifyJS)
	assert.True(t, prod.CodeSplitting)
	assert.True(t, prod.StripDiagnostics)
	assert.Equal(t, SourceMapsExternal, prod.SourceMaps)
	assert.Equal(t, ChunkNamingContentHash, prod.ChunkNaming)
	assert.True(t, prod.Hashed())

	for _, mode := range []string{"development", "", "staging", "PRODUCTION"} {
		t.Run("fallback "+mode, func(t *testing.T) {
			dev := Select(mode)
			assert.Equal(t, DevelopmentProfile(), dev)
			assert.False(t, dev.MinifyJS)
			assert.False(t, dev.CodeSplitting)
			assert.False(t, dev.StripDiagnostics)
			assert.Equal(t, SourceMapsInline, dev.SourceMaps)
			assert.Equal(t, ChunkNamingFixed, dev.ChunkNaming)
		})
	}
}

func TestStrict(t *testing.T) {
	p, err := Strict("production")
	require.NoError(t, err)
	assert.True(t, p.IsProduction())

	p, err = Strict("development")
	require.NoError(t, err)
	assert.False(t, p.IsProduction())

	_, err = Strict("staging")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "staging")
}

func TestProfileIsAValue(t *testing.T) {
	p := Select("production")
	q := p
	q.MinifyJS = false
	assert.True(t, p.MinifyJS, "copies must not alias")
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "external", SourceMapsExternal.String())
	assert.Equal(t, "content-hash", ChunkNamingContentHash.String())
	assert.Contains(t, ProductionProfile().String(), "production")
}
