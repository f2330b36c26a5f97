// Package cache persists keyframe hashes next to the keyframes they were computed from
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"clipwatch/domain/snippet"

	"github.com/vmihailenco/msgpack/v5"
)

// FileName is the cache file written inside a keyframe directory
const FileName = ".hashes.msgpack"

// entry is the cached hash of one keyframe file
type entry struct {
	Size    int64  `msgpack:"size"`
	ModUnix int64  `msgpack:"mod"`
	Hash    []byte `msgpack:"hash"`
}

type document struct {
	Method  string           `msgpack:"method"`
	Backend string           `msgpack:"backend"`
	Entries map[string]entry `msgpack:"entries"`
}

// HashCache maps keyframe files of one directory to their hashes for a given method.
// Entries are invalidated when the file size or modification time changes.
type HashCache struct {
	dir   string
	doc   document
	dirty bool
}

// Open loads the cache for dir, method and hashing backend. A missing, unreadable
// or foreign cache starts empty; hashes of the same method from another backend are foreign.
func Open(dir string, method snippet.Method, backend string) (*HashCache, error) {
	c := &HashCache{
		dir: dir,
		doc: document{Method: method.String(), Backend: backend, Entries: make(map[string]entry)},
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("failed to read hash cache: %w", err)
	}

	var doc document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return c, fmt.Errorf("failed to decode hash cache: %w", err)
	}
	if doc.Method == method.String() && doc.Backend == backend && doc.Entries != nil {
		c.doc = doc
	}
	return c, nil
}

// Get returns the cached hash of path if the file is unchanged since it was stored
func (c *HashCache) Get(path string, info fs.FileInfo) (snippet.Hash, bool) {
	e, ok := c.doc.Entries[filepath.Base(path)]
	if !ok || e.Size != info.Size() || e.ModUnix != info.ModTime().UnixNano() {
		return nil, false
	}
	return snippet.Hash(e.Hash).Clone(), true
}

// Put records the hash of path
func (c *HashCache) Put(path string, info fs.FileInfo, h snippet.Hash) {
	c.doc.Entries[filepath.Base(path)] = entry{
		Size:    info.Size(),
		ModUnix: info.ModTime().UnixNano(),
		Hash:    h.Clone(),
	}
	c.dirty = true
}

// Save writes the cache back when it changed
func (c *HashCache) Save() error {
	if !c.dirty {
		return nil
	}

	data, err := msgpack.Marshal(&c.doc)
	if err != nil {
		return fmt.Errorf("failed to encode hash cache: %w", err)
	}

	tmp := filepath.Join(c.dir, FileName+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write hash cache: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(c.dir, FileName)); err != nil {
		return fmt.Errorf("failed to replace hash cache: %w", err)
	}

	c.dirty = false
	return nil
}
