// Package cache memoizes the binary decoder's output (token.Header +
// token.Instruction list) keyed by a content hash of the
// input bytes, so re-running the same immutable binary (e.g. the debugger
// reloading a module, or a batch --check run over many golden fixtures)
// skips re-decoding.
//
// Grounded in the teacher's internal/driver/dcache.go DiskCache: the same
// content-hash key, atomic temp-file-then-rename disk write, and
// github.com/vmihailenco/msgpack/v5 serialization. Concurrent identical
// lookups are deduplicated with golang.org/x/sync/singleflight exactly as
// SPEC_FULL §4.10 specifies — the teacher's own dcache has no in-flight
// dedup, but its sibling internal/driver/parallel.go establishes the
// errgroup/singleflight idiom this package borrows.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"spirvm/internal/token"
)

const schemaVersion uint16 = 1

// Digest is a content hash of the decoded binary's raw bytes.
type Digest [sha256.Size]byte

func HashBytes(b []byte) Digest {
	return sha256.Sum256(b)
}

// Decoded is the cached output of the binary decoder: the parsed header
// and the flat instruction stream. It never caches
// execution/invocation state — runtime Values are always rebuilt fresh.
type Decoded struct {
	Schema       uint16
	Header       token.Header
	Instructions []token.Instruction
}

// Cache holds decoded binaries in memory and, when dir is non-empty, also
// persists them to disk the way DiskCache does.
type Cache struct {
	mu    sync.RWMutex
	mem   map[Digest]*Decoded
	dir   string
	group singleflight.Group
}

func New(dir string) *Cache {
	return &Cache{mem: make(map[Digest]*Decoded), dir: dir}
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, hex.EncodeToString(key[:])+".mp")
}

// GetOrDecode returns the cached Decoded for key, calling decode to
// produce it on a miss. Concurrent calls for the same key share one
// in-flight decode via singleflight.
func (c *Cache) GetOrDecode(key Digest, decode func() (*Decoded, error)) (*Decoded, error) {
	if d, ok := c.lookup(key); ok {
		return d, nil
	}

	v, err, _ := c.group.Do(hex.EncodeToString(key[:]), func() (any, error) {
		if d, ok := c.lookup(key); ok {
			return d, nil
		}
		d, err := decode()
		if err != nil {
			return nil, err
		}
		d.Schema = schemaVersion
		c.store(key, d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Decoded), nil
}

func (c *Cache) lookup(key Digest) (*Decoded, bool) {
	c.mu.RLock()
	d, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return d, true
	}
	if c.dir == "" {
		return nil, false
	}
	d, err := c.readDisk(key)
	if err != nil || d == nil {
		return nil, false
	}
	c.mu.Lock()
	c.mem[key] = d
	c.mu.Unlock()
	return d, true
}

func (c *Cache) store(key Digest, d *Decoded) {
	c.mu.Lock()
	c.mem[key] = d
	c.mu.Unlock()
	if c.dir != "" {
		_ = c.writeDisk(key, d)
	}
}

func (c *Cache) writeDisk(key Digest, d *Decoded) error {
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

func (c *Cache) readDisk(key Digest) (*Decoded, error) {
	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var d Decoded
	if err := msgpack.NewDecoder(f).Decode(&d); err != nil {
		return nil, err
	}
	if d.Schema != schemaVersion {
		return nil, nil
	}
	return &d, nil
}
