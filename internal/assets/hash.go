package assets

import (
	"fmt"
	"hash/crc32"
	"os"
	"sync"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// ContentHash returns the 8 hex digit content hash used in file names.
// The same bytes always produce the same hash.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%08x", crc32.Checksum(content, castagnoli))
}

// HashProvider hashes files, caching results by path, mtime and size so
// repeated watch-mode passes only reread files that changed.
type HashProvider struct {
	mu    sync.RWMutex
	cache map[string]string
}

// NewHashProvider creates an empty hash provider.
func NewHashProvider() *HashProvider {
	return &HashProvider{cache: make(map[string]string)}
}

// FileHash returns the content hash of path along with its contents.
func (hp *HashProvider) FileHash(path string) (string, []byte, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	key := fmt.Sprintf("%s:%d:%d", path, stat.ModTime().UnixNano(), stat.Size())

	hp.mu.RLock()
	hash, ok := hp.cache[key]
	hp.mu.RUnlock()
	if ok {
		return hash, content, nil
	}

	hash = ContentHash(content)

	hp.mu.Lock()
	hp.cache[key] = hash
	hp.mu.Unlock()

	return hash, content, nil
}

// Len returns the number of cached hashes.
func (hp *HashProvider) Len() int {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	return len(hp.cache)
}
