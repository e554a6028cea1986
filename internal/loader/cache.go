package loader

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"exportgen/internal/metadata"
)

// Current index schema - increment when cacheIndex changes shape.
const cacheSchemaVersion uint16 = 1

// Cache is the global module cache consulted first during reference
// resolution. Images live under <dir>/gac/<name>/<version>_<token>/<name>.dll
// and an msgpack index maps identities to those files.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// CacheEntry describes one installed image.
type CacheEntry struct {
	Identity metadata.AssemblyName
	// File is relative to the cache directory.
	File string
}

type cacheIndex struct {
	Schema  uint16
	Entries []CacheEntry
}

// DefaultCacheDir is $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenCache returns the cache rooted at dir. The directory is created lazily on Put.
func OpenCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, "gac", "index.mp")
}

func (c *Cache) readIndex() (*cacheIndex, error) {
	idx := &cacheIndex{Schema: cacheSchemaVersion}
	f, err := os.Open(c.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(idx); err != nil {
		return nil, fmt.Errorf("cache index %s: %w", c.indexPath(), err)
	}
	if idx.Schema != cacheSchemaVersion {
		// stale layout; treat as empty and let Put rewrite it
		return &cacheIndex{Schema: cacheSchemaVersion}, nil
	}
	return idx, nil
}

func (c *Cache) writeIndex(idx *cacheIndex) error {
	p := c.indexPath()
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "index-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()
	idx.Schema = cacheSchemaVersion
	if err := msgpack.NewEncoder(f).Encode(idx); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Put installs img into the cache, replacing an entry with the same identity.
func (c *Cache) Put(img *metadata.Image) (string, error) {
	if c == nil || img == nil {
		return "", fmt.Errorf("missing cache or image")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id := img.Identity
	if strings.TrimSpace(id.Name) == "" {
		return "", fmt.Errorf("image has no identity name")
	}
	if !safeName(id.Name) {
		return "", fmt.Errorf("identity name %q cannot name a cache entry", id.Name)
	}
	token := hex.EncodeToString(id.PublicKeyToken)
	if token == "" {
		token = "null"
	}
	rel := filepath.Join("gac", id.Name, id.Version.String()+"_"+token, id.Name+".dll")
	if err := metadata.WriteFile(filepath.Join(c.dir, rel), img); err != nil {
		return "", err
	}

	idx, err := c.readIndex()
	if err != nil {
		return "", err
	}
	key := id.Key()
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Identity.Key() != key {
			kept = append(kept, e)
		}
	}
	idx.Entries = append(kept, CacheEntry{Identity: id, File: rel})
	sort.Slice(idx.Entries, func(i, j int) bool { return idx.Entries[i].Identity.Key() < idx.Entries[j].Identity.Key() })
	if err := c.writeIndex(idx); err != nil {
		return "", err
	}
	return filepath.Join(c.dir, rel), nil
}

// Lookup returns the path of the image installed for ref. Name, version and
// public key token must match; culture must match when ref names one.
func (c *Cache) Lookup(ref metadata.AssemblyName) (string, bool, error) {
	if c == nil || c.dir == "" {
		return "", false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, err := c.readIndex()
	if err != nil {
		return "", false, err
	}
	for _, e := range idx.Entries {
		id := e.Identity
		if !strings.EqualFold(id.Name, ref.Name) || id.Version != ref.Version {
			continue
		}
		if hex.EncodeToString(id.PublicKeyToken) != hex.EncodeToString(ref.PublicKeyToken) {
			continue
		}
		if ref.Culture != "" && !strings.EqualFold(id.Culture, ref.Culture) {
			continue
		}
		return filepath.Join(c.dir, e.File), true, nil
	}
	return "", false, nil
}

// List returns every installed entry in identity order.
func (c *Cache) List() ([]CacheEntry, error) {
	if c == nil {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, err := c.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Entries, nil
}

// safeName rejects names that would escape their directory under the cache root.
func safeName(name string) bool {
	if name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
