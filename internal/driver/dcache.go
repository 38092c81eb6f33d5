package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"reify/internal/diag"
	"reify/internal/reify"
	"reify/internal/unit"
)

// Current schema version - increment when CachePayload format changes
const diskCacheSchemaVersion uint16 = 1

// Digest is a SHA-256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DiskCache stores finished runs keyed by the digest of their inputs.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachePayload is what a cached run restores: the rewritten assembly of every
// source file plus the per-method counters and the diagnostics.
type CachePayload struct {
	Schema uint16

	Files       []CachedFile
	BodyUsages  []string
	Usages      []string
	Diagnostics []diag.Diagnostic
}

// CachedFile holds one rewritten source file.
type CachedFile struct {
	Path     string
	Assembly string
	Methods  []CachedMethod
}

// CachedMethod mirrors reify.Result for one method of a file.
type CachedMethod struct {
	Rewritten  int
	Partial    int
	Deferred   int
	Skipped    int
	ExtraStack int
	Usages     []string
	Abandoned  []reify.AbandonedMarker
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "runs", key.String()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *CachePayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload from the disk cache. A payload of
// another schema version counts as a miss.
func (c *DiskCache) Get(key Digest, out *CachePayload) (found bool, err error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// cacheKey digests everything a run depends on: the manifest, the bytes of
// every source in order and the effective options.
func cacheKey(u *unit.Unit, sources []sourceFile, strict, unified bool) (Digest, error) {
	h := sha256.New()
	h.Write([]byte("reify-cache\x00"))
	h.Write([]byte{byte(diskCacheSchemaVersion >> 8), byte(diskCacheSchemaVersion)})

	manifest, err := msgpack.Marshal(&u.Manifest)
	if err != nil {
		return Digest{}, err
	}
	h.Write(manifest)
	for _, src := range sources {
		h.Write([]byte(src.path))
		h.Write([]byte{0})
		h.Write(src.data)
		h.Write([]byte{0})
	}
	h.Write([]byte{boolByte(strict), boolByte(unified)})

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
