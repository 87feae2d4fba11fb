//go:build property

package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDebouncerProperties validates batching of the debouncer
func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: a flush emits each touched path once, sorted
	properties.Property("flush deduplicates and sorts paths", prop.ForAll(
		func(ids []int) bool {
			d := newDebouncer(time.Hour)
			want := make(map[string]bool)
			for _, id := range ids {
				path := fmt.Sprintf("src/file%d.scss", id)
				d.pending = append(d.pending, ChangeEvent{Path: path, Type: EventTypeModified})
				want[path] = true
			}

			d.flush()
			if len(ids) == 0 {
				return len(d.output) == 0
			}

			batch := <-d.output
			paths := Paths(batch)
			if len(paths) != len(want) || !sort.StringsAreSorted(paths) {
				return false
			}
			for _, p := range paths {
				if !want[p] {
					return false
				}
			}
			return len(d.pending) == 0
		},
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	// Property: the last event for a path wins
	properties.Property("latest event type wins", prop.ForAll(
		func(types []int) bool {
			if len(types) == 0 {
				return true
			}
			d := newDebouncer(time.Hour)
			for _, typ := range types {
				d.pending = append(d.pending, ChangeEvent{Path: "a.js", Type: EventType(typ)})
			}
			d.flush()
			batch := <-d.output
			return len(batch) == 1 && batch[0].Type == EventType(types[len(types)-1])
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

// TestFilterProperties validates the path filters
func TestFilterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	root := t.TempDir()
	out := filepath.Join(root, "dist")
	noOutput := NoOutputFilter(out)

	properties.Property("everything under the output directory is dropped", prop.ForAll(
		func(name string) bool {
			return !noOutput(filepath.Join(out, "sub", name+".html"))
		},
		gen.Identifier(),
	))

	properties.Property("sources beside the output directory are kept", prop.ForAll(
		func(name string) bool {
			return noOutput(filepath.Join(root, "src", name+".scss")) &&
				NoEditorTempFilter(filepath.Join(root, "src", name+".scss"))
		},
		gen.Identifier(),
	))

	properties.Property("editor swap files are dropped", prop.ForAll(
		func(name string) bool {
			return !NoEditorTempFilter(name+".swp") &&
				!NoEditorTempFilter(name+"~") &&
				!NoEditorTempFilter(".#"+name)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
