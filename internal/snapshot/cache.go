package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"typelib/internal/types"
)

// Digest is the key of a cached snapshot.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// KeyFor hashes the source of a registry: its input content followed by
// any settings that change how the input is interpreted.
func KeyFor(content []byte, settings ...string) Digest {
	h := sha256.New()
	_, _ = h.Write(content)
	for _, s := range settings {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(s))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// DiskCache keeps snapshots on disk keyed by Digest. It is safe for
// concurrent use.
type DiskCache struct {
	mu     sync.RWMutex
	dir    string
	logger *zap.Logger
}

// OpenDiskCache opens the cache of app under $XDG_CACHE_HOME, or
// ~/.cache when unset.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache opens a cache rooted at dir, creating it when needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger used to report cache hits and misses.
func (c *DiskCache) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	c.logger = l
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "snapshots", key.String()+".tlb")
}

// Put stores the snapshot of r under key. The file is replaced atomically.
func (c *DiskCache) Put(key Digest, r *types.Registry) (err error) {
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
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(Capture(r)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	c.logger.Debug("snapshot cached", zap.Stringer("key", key), zap.Int("types", r.Len()))
	return nil
}

// Get restores the snapshot stored under key. ok is false on a miss.
func (c *DiskCache) Get(key Digest) (r *types.Registry, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("snapshot cache miss", zap.Stringer("key", key))
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	r, err = Decode(f)
	if err != nil {
		return nil, false, err
	}
	c.logger.Debug("snapshot cache hit", zap.Stringer("key", key))
	return r, true, nil
}

// DropAll removes every cached snapshot.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "snapshots"))
}
