package modal

import (
	"sort"
	"sync"
)

// MemoryDocument is an in-memory Document. Elements are identified by id and
// carry a class set; the root is tracked separately.
type MemoryDocument struct {
	mu         sync.Mutex
	root       map[string]bool
	elements   map[string]map[string]bool
	containers map[string]bool
}

// NewMemoryDocument creates a document with one modal container per id.
func NewMemoryDocument(containerIDs ...string) *MemoryDocument {
	d := &MemoryDocument{
		root:       make(map[string]bool),
		elements:   make(map[string]map[string]bool),
		containers: make(map[string]bool),
	}
	for _, id := range containerIDs {
		d.elements[id] = map[string]bool{ContainerClass: true}
		d.containers[id] = true
	}
	return d
}

func (d *MemoryDocument) AddRootClass(classes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range classes {
		d.root[c] = true
	}
}

func (d *MemoryDocument) RemoveRootClass(classes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range classes {
		delete(d.root, c)
	}
}

func (d *MemoryDocument) HasElement(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.elements[id]
	return ok
}

func (d *MemoryDocument) AddClass(id string, classes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[id]
	if !ok {
		return
	}
	for _, c := range classes {
		el[c] = true
	}
}

func (d *MemoryDocument) RemoveClass(id string, classes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[id]
	if !ok {
		return
	}
	for _, c := range classes {
		delete(el, c)
	}
}

func (d *MemoryDocument) Containers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.containers))
	for id := range d.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RootClasses returns the root's classes, sorted.
func (d *MemoryDocument) RootClasses() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.root)
}

// Classes returns the classes of element id, sorted.
func (d *MemoryDocument) Classes(id string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.elements[id])
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
