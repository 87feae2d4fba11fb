// Package output assembles a build pass into the output directory.
//
// Every stage of a pass hands its files to a Manifest. Once every stage has
// succeeded the Assembler writes the manifest into a staging directory next
// to the output directory and swaps it in, so readers of the output see
// either the previous pass or the new one.
package output

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"
)

// Kind classifies an emitted file.
type Kind string

const (
	KindPage       Kind = "page"
	KindStyle      Kind = "style"
	KindScript     Kind = "script"
	KindSourceMap  Kind = "sourcemap"
	KindLegal      Kind = "legal"
	KindAsset      Kind = "asset"
	KindStatic     Kind = "static"
	KindSprite     Kind = "sprite"
	KindCompressed Kind = "compressed"
	KindManifest   Kind = "manifest"
)

// ManifestFile is the name of the logical-name index written in production.
const ManifestFile = "manifest.json"

// Entry is one file of the output tree.
type Entry struct {
	// Path is slash-separated and relative to the output directory.
	Path    string
	Source  string
	Kind    Kind
	Content []byte
}

// Manifest collects the files of one pass. It is safe for concurrent use
// and is discarded when the pass ends.
type Manifest struct {
	mu        sync.Mutex
	entries   map[string]Entry
	logical   map[string]string
	conflicts []string
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]Entry),
		logical: make(map[string]string),
	}
}

// Add records a file. Adding a path twice keeps the last content; if the
// contents differ the path is reported by Conflicts.
func (m *Manifest) Add(kind Kind, source, path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.entries[path]; ok && !bytes.Equal(prev.Content, content) {
		m.conflicts = append(m.conflicts, path)
	}
	m.entries[path] = Entry{Path: path, Source: source, Kind: kind, Content: content}
}

// Emit records a copied asset. It lets the manifest serve as the asset
// resolver's sink.
func (m *Manifest) Emit(source, outputPath string, content []byte) {
	m.Add(KindAsset, source, outputPath, content)
}

// Alias maps a stable logical name, such as "main.js", to an emitted path.
func (m *Manifest) Alias(logical, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logical[logical] = path
}

// Get returns the entry at path.
func (m *Manifest) Get(path string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	return e, ok
}

// Len returns the number of files.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns every file, sorted by path.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Logical returns a copy of the logical name index.
func (m *Manifest) Logical() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.logical))
	for k, v := range m.logical {
		out[k] = v
	}
	return out
}

// Conflicts returns the paths that were added twice with different content.
func (m *Manifest) Conflicts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.conflicts...)
}

// Bytes returns the total size of all files.
func (m *Manifest) Bytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.entries {
		n += int64(len(e.Content))
	}
	return n
}

// JSON renders the logical name index. Keys are sorted.
func (m *Manifest) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(m.Logical(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
