//go:build property

package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDiscoverProperties checks that discovery yields one descriptor per
// template and that each output name is the base name plus .html.
func TestDiscoverProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	exts := []string{".html", ".htm", ".md", ".tmpl", ".gohtml", ".txt"}

	properties.Property("one descriptor per template", prop.ForAll(
		func(count int, extIndex int) bool {
			dir, err := os.MkdirTemp("", "sitepack-views-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(dir)

			want := make(map[string]bool, count)
			for i := 0; i < count; i++ {
				name := fmt.Sprintf("page-%d", i)
				ext := exts[(extIndex+i)%len(exts)]
				if err := os.WriteFile(filepath.Join(dir, name+ext), []byte("x"), 0644); err != nil {
					return false
				}
				want[name] = true
			}

			views, err := Discover(dir)
			if err != nil || len(views) != count {
				return false
			}

			for _, v := range views {
				if !want[v.Name] {
					return false
				}
				if v.OutputFilename != v.Name+".html" {
					return false
				}
				if !strings.HasSuffix(v.SourcePath, v.Ext) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 25),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
