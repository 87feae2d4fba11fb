package scripts

import (
	"encoding/json"
	"sort"
	"strings"
)

// Metafile is the subset of esbuild's metafile JSON the pipeline reads.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput is an input file in the metafile.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"`
}

// MetafileImport is an import edge in the metafile.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput is an emitted file in the metafile.
type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []MetafileImport        `json:"imports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

// InputContrib is the contribution of an input to an output.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

func parseMetafile(raw string) (*Metafile, error) {
	if raw == "" {
		return &Metafile{}, nil
	}
	var m Metafile
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SourceFiles returns the on-disk inputs, sorted. Virtual modules are
// reported by esbuild as "namespace:path" and are skipped.
func (m *Metafile) SourceFiles() []string {
	if m == nil {
		return nil
	}
	files := make([]string, 0, len(m.Inputs))
	for path := range m.Inputs {
		if i := strings.Index(path, ":"); i > 1 {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// merge folds other into m.
func (m *Metafile) merge(other *Metafile) {
	if other == nil {
		return
	}
	if m.Inputs == nil {
		m.Inputs = make(map[string]MetafileInput)
	}
	if m.Outputs == nil {
		m.Outputs = make(map[string]MetafileOutput)
	}
	for k, v := range other.Inputs {
		m.Inputs[k] = v
	}
	for k, v := range other.Outputs {
		m.Outputs[k] = v
	}
}
